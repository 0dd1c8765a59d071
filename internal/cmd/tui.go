package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/clive/jira-tui/internal/config"
	"github.com/clive/jira-tui/internal/tui"
)

// runTUI opens the interactive interface
func runTUI(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		a.logger.Info("starting tui", "backend", a.cfg.API.BaseURL)

		opts := tui.Options{
			Config:    a.cfg,
			Logger:    a.logger,
			Session:   a.session,
			Catalog:   a.catalog,
			Tracker:   a.tracker,
			Submitter: a.submitter,
			SaveProject: func(key string) error {
				return config.SaveLastProject("", key)
			},
		}

		p := tea.NewProgram(
			tui.NewRootModel(opts),
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
		)
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("running program: %w", err)
		}
		return nil
	})
}
