// Package config loads user settings through viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/clive/jira-tui/internal/credentials"
)

// AppName names the config directory and env prefix
const AppName = "jira-tui"

// EnvPrefix is prepended to environment overrides, e.g. JIRA_TUI_API_BASE_URL
const EnvPrefix = "JIRA_TUI"

// Config represents the user's configuration
type Config struct {
	API      APIConfig      `mapstructure:"api" yaml:"api"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Workflow WorkflowConfig `mapstructure:"workflow" yaml:"workflow"`
	TUI      TUIConfig      `mapstructure:"tui" yaml:"tui"`
}

// APIConfig points at the task-creation backend
type APIConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// StorageConfig selects where the session token and profile are kept
type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig controls the debug log file
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	Dir   string `mapstructure:"dir" yaml:"dir"`
}

// WorkflowConfig holds per-project behaviour
type WorkflowConfig struct {
	// InstagramProjects use the content workflow with subtask selection
	InstagramProjects []string `mapstructure:"instagram_projects" yaml:"instagram_projects"`
}

// TUIConfig holds interactive state remembered between runs
type TUIConfig struct {
	LastProject string `mapstructure:"last_project" yaml:"last_project"`
	Debug       bool   `mapstructure:"debug" yaml:"debug"`
}

// DefaultBaseURL is the backend address used when none is configured
const DefaultBaseURL = "http://localhost:8000"

// Default returns the default configuration
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
		},
		Storage: StorageConfig{
			Backend: credentials.BackendFile,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Workflow: WorkflowConfig{
			InstagramProjects: []string{"KAN"},
		},
	}
}

// SetDefaults registers every default with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("api.base_url", defaults.API.BaseURL)
	viper.SetDefault("api.timeout", defaults.API.Timeout)

	viper.SetDefault("storage.backend", defaults.Storage.Backend)
	viper.SetDefault("storage.path", defaults.Storage.Path)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	viper.SetDefault("workflow.instagram_projects", defaults.Workflow.InstagramProjects)

	viper.SetDefault("tui.last_project", defaults.TUI.LastProject)
	viper.SetDefault("tui.debug", defaults.TUI.Debug)
}

// Load unmarshals and validates the current viper state
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StoragePath returns the credential file, defaulting into ConfigDir by backend
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.Storage.Backend == credentials.BackendSQLite {
		return filepath.Join(ConfigDir(), "credentials.db")
	}
	return filepath.Join(ConfigDir(), "credentials.json")
}

// LogDir returns where the log file goes
func (c *Config) LogDir() string {
	if c.Logging.Dir != "" {
		return c.Logging.Dir
	}
	return filepath.Join(ConfigDir(), "logs")
}

// LoadDotEnv loads a .env file into the environment if one exists.
// Variables already set win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// SaveLastProject records the chosen project in the config file at path,
// keeping every other key in the file as it was.
func SaveLastProject(path, key string) error {
	if path == "" {
		path = ConfigFile()
	}

	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	tui, _ := doc["tui"].(map[string]any)
	if tui == nil {
		tui = map[string]any{}
	}
	tui["last_project"] = key
	doc["tui"] = tui

	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return err
	}

	viper.Set("tui.last_project", key)
	return nil
}
