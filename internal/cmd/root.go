// Package cmd holds the jira-tui command tree.
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clive/jira-tui/internal/config"
)

// NewRootCmd builds the full command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jira-tui",
		Short: "Create Jira tasks in batches from the terminal",
		Long: `jira-tui talks to the task-creation backend to create Jira issues in
batches, including Instagram content workflows with production subtasks.

Run without arguments to open the interactive interface.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			return initConfig(cfgFile)
		},
		RunE: runTUI,
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/jira-tui/config.yaml)")
	root.PersistentFlags().String("api-url", "", "backend base URL (overrides api.base_url)")
	_ = viper.BindPFlag("api.base_url", root.PersistentFlags().Lookup("api-url"))

	root.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newJiraCmd(),
		newProjectsCmd(),
		newUsersCmd(),
		newSubmitCmd(),
		newSubtasksCmd(),
		newStatusCmd(),
		newDevserverCmd(),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func initConfig(cfgFile string) error {
	if err := config.LoadDotEnv(""); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix(config.EnvPrefix)
	// JIRA_TUI_API_BASE_URL for api.base_url
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}
