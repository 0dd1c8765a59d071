package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clive/jira-tui/internal/api"
)

func newProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List Jira projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				// projects are visible without a session, but the token scopes them when present
				if _, err := a.resume(cmd.Context()); err != nil {
					return err
				}
				projects, err := a.tracker.Projects(cmd.Context())
				if err != nil {
					return fmt.Errorf("list projects: %s", api.Message(err))
				}
				if len(projects) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No projects")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "KEY\tNAME\tWORKFLOW")
				for _, p := range projects {
					fmt.Fprintf(w, "%s\t%s\t%s\n", p.Key, p.Name, a.cfg.ModeForProject(p.Key).Info().Name)
				}
				return w.Flush()
			})
		},
	}
}

func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users <project>",
		Short: "List users assignable in a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				if _, err := a.resume(cmd.Context()); err != nil {
					return err
				}
				users, err := a.tracker.Users(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("list users: %s", api.Message(err))
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ACCOUNT\tNAME\tEMAIL")
				for _, u := range users {
					fmt.Fprintf(w, "%s\t%s\t%s\n", u.AccountID, u.DisplayName, u.Email)
				}
				return w.Flush()
			})
		},
	}
}
