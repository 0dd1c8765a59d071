package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://localhost:8000")
	}
	if cfg.API.Timeout != 0 {
		t.Errorf("API.Timeout = %v, want no timeout", cfg.API.Timeout)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, "file")
	}
	if len(cfg.Workflow.InstagramProjects) != 1 || cfg.Workflow.InstagramProjects[0] != "KAN" {
		t.Errorf("Workflow.InstagramProjects = %v, want [KAN]", cfg.Workflow.InstagramProjects)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("default config should be valid, got %v", errs)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]any
		check   func(t *testing.T, cfg *Config)
		wantErr string
	}{
		{
			name: "defaults only",
			check: func(t *testing.T, cfg *Config) {
				if cfg.API.BaseURL != DefaultBaseURL {
					t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
				}
			},
		},
		{
			name: "overrides",
			set: map[string]any{
				"api.base_url":                "https://tasks.example.test",
				"api.timeout":                 "15s",
				"storage.backend":             "sqlite",
				"workflow.instagram_projects": []string{"KAN", "IG"},
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.API.Timeout != 15*time.Second {
					t.Errorf("API.Timeout = %v, want 15s", cfg.API.Timeout)
				}
				if cfg.Storage.Backend != "sqlite" {
					t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
				}
				if !strings.HasSuffix(cfg.StoragePath(), "credentials.db") {
					t.Errorf("StoragePath() = %q, want sqlite file", cfg.StoragePath())
				}
			},
		},
		{
			name:    "bad url",
			set:     map[string]any{"api.base_url": "localhost:8000"},
			wantErr: "api.base_url",
		},
		{
			name:    "bad backend",
			set:     map[string]any{"storage.backend": "keychain"},
			wantErr: "storage.backend",
		},
		{
			name:    "bad level",
			set:     map[string]any{"logging.level": "loud"},
			wantErr: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			SetDefaults()
			for k, v := range tt.set {
				viper.Set(k, v)
			}

			cfg, err := Load()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Load() error = %v, want mention of %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	resetViper(t)
	SetDefaults()
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	t.Setenv("JIRA_TUI_API_BASE_URL", "https://env.example.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "https://env.example.test" {
		t.Errorf("API.BaseURL = %q, want env override", cfg.API.BaseURL)
	}
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := ConfigDir(); got != filepath.Join("/tmp/xdg", "jira-tui") {
		t.Errorf("ConfigDir() = %q", got)
	}
	if got := ConfigFile(); got != filepath.Join("/tmp/xdg", "jira-tui", "config.yaml") {
		t.Errorf("ConfigFile() = %q", got)
	}
}

func TestModeForProject(t *testing.T) {
	cfg := Default()
	cfg.Workflow.InstagramProjects = []string{"KAN", " ig "}

	tests := []struct {
		key  string
		want WorkflowMode
	}{
		{"KAN", ModeInstagram},
		{"kan", ModeInstagram},
		{"IG", ModeInstagram},
		{"OPS", ModeStandard},
		{"", ModeStandard},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := cfg.ModeForProject(tt.key); got != tt.want {
				t.Errorf("ModeForProject(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}

	if ModeInstagram.Info().Name != "Instagram" {
		t.Errorf("Info().Name = %q", ModeInstagram.Info().Name)
	}
}

func TestSaveLastProjectKeepsOtherKeys(t *testing.T) {
	resetViper(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := SaveLastProject(path, "KAN"); err != nil {
		t.Fatalf("SaveLastProject() on missing file error = %v", err)
	}

	existing := "api:\n  base_url: https://tasks.example.test\ntui:\n  debug: true\n"
	if err := os.WriteFile(path, []byte(existing), 0644); err != nil {
		t.Fatal(err)
	}
	if err := SaveLastProject(path, "OPS"); err != nil {
		t.Fatalf("SaveLastProject() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		API struct {
			BaseURL string `yaml:"base_url"`
		} `yaml:"api"`
		TUI struct {
			Debug       bool   `yaml:"debug"`
			LastProject string `yaml:"last_project"`
		} `yaml:"tui"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.API.BaseURL != "https://tasks.example.test" || !doc.TUI.Debug {
		t.Errorf("other keys lost: %s", data)
	}
	if doc.TUI.LastProject != "OPS" {
		t.Errorf("last_project = %q, want OPS", doc.TUI.LastProject)
	}
	if viper.GetString("tui.last_project") != "OPS" {
		t.Error("viper state not updated")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("JIRA_TUI_TEST_DOTENV=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JIRA_TUI_TEST_DOTENV", "")
	os.Unsetenv("JIRA_TUI_TEST_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("JIRA_TUI_TEST_DOTENV"); got != "from-file" {
		t.Errorf("JIRA_TUI_TEST_DOTENV = %q, want from-file", got)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	if !strings.Contains(errs.Error(), "2 validation errors") {
		t.Errorf("Error() = %q", errs.Error())
	}
	if (ValidationErrors{}).Error() != "" {
		t.Error("empty ValidationErrors should render empty")
	}
}
