package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clive/jira-tui/internal/api"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend health and session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Backend:  %s\n", a.client.BaseURL())

				health, err := a.client.Health(cmd.Context())
				if err != nil {
					fmt.Fprintf(out, "Health:   unreachable (%s)\n", api.Message(err))
				} else {
					fmt.Fprintf(out, "Health:   %s\n", health.Status)
				}

				fmt.Fprintf(out, "Storage:  %s (%s)\n", a.cfg.Storage.Backend, a.cfg.StoragePath())

				snap, err := a.session.Resume(cmd.Context())
				switch {
				case api.IsKind(err, api.KindTransport):
					fmt.Fprintln(out, "Session:  stored, not verified")
				case err != nil:
					return err
				case snap.IsAuthenticated():
					fmt.Fprintf(out, "Session:  logged in as %s\n", snap.User.DisplayName())
				default:
					fmt.Fprintln(out, "Session:  not logged in")
				}
				if a.cfg.TUI.LastProject != "" {
					fmt.Fprintf(out, "Project:  %s (%s workflow)\n", a.cfg.TUI.LastProject,
						a.cfg.ModeForProject(a.cfg.TUI.LastProject).Info().Name)
				}
				return nil
			})
		},
	}
}
