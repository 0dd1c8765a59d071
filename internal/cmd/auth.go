package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clive/jira-tui/internal/api"
	"github.com/clive/jira-tui/internal/model"
	"github.com/clive/jira-tui/internal/session"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Log in and remember the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := newPrompter(cmd)
			username := ""
			if len(args) == 1 {
				username = args[0]
			}
			if username == "" {
				var err error
				if username, err = in.line("Username: "); err != nil {
					return err
				}
			}
			password, err := in.secret("Password: ")
			if err != nil {
				return err
			}

			return withApp(func(a *app) error {
				snap, err := a.session.Login(cmd.Context(), strings.TrimSpace(username), password)
				if err != nil {
					return fmt.Errorf("login failed: %s", api.Message(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", snap.User.DisplayName())
				return nil
			})
		},
	}
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var reg model.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log into it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reg.Email == "" || reg.Username == "" {
				return errors.New("--email and --username are required")
			}
			password, err := newPrompter(cmd).secret("Password: ")
			if err != nil {
				return err
			}
			reg.Password = password

			return withApp(func(a *app) error {
				snap, err := a.session.Register(cmd.Context(), reg)
				if errors.Is(err, session.ErrAutoLoginFailed) {
					return fmt.Errorf("account created, but logging in failed: %s. Try 'jira-tui login %s'",
						api.Message(err), reg.Username)
				}
				if err != nil {
					return fmt.Errorf("registration failed: %s", api.Message(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", snap.User.DisplayName())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&reg.Username, "username", "", "account username")
	cmd.Flags().StringVar(&reg.JiraEmail, "jira-email", "", "Jira account email")
	cmd.Flags().StringVar(&reg.JiraAPIToken, "jira-token", "", "Jira API token")
	cmd.Flags().StringVar(&reg.JiraBaseURL, "jira-url", "", "Jira site URL, e.g. https://acme.atlassian.net")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				_, _, ok, err := a.store.Load()
				if err != nil {
					return err
				}
				if ok {
					// Logout only calls the server for an authenticated session
					if _, err := a.session.Resume(cmd.Context()); err != nil {
						a.logger.Debug("restore before logout failed", "error", err)
					}
				}
				a.session.Logout(cmd.Context())
				if ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				}
				return nil
			})
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				if _, err := a.requireSession(cmd.Context()); err != nil {
					return err
				}
				user, err := a.session.RefreshUser(cmd.Context())
				if err != nil {
					return fmt.Errorf("session expired: %s", api.Message(err))
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "User:     %s\n", user.Username)
				fmt.Fprintf(out, "Email:    %s\n", user.Email)
				if user.HasJiraCredentials() {
					fmt.Fprintf(out, "Jira:     %s (%s)\n", user.JiraBaseURL, user.JiraEmail)
				} else {
					fmt.Fprintln(out, "Jira:     not configured")
				}
				if user.LastLogin != nil {
					fmt.Fprintf(out, "Last login: %s\n", user.LastLogin.Local().Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
}

func newJiraCmd() *cobra.Command {
	var creds model.JiraCredentials

	cmd := &cobra.Command{
		Use:   "jira",
		Short: "Set the Jira credentials used for your account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.APIToken == "" {
				token, err := newPrompter(cmd).secret("Jira API token: ")
				if err != nil {
					return err
				}
				creds.APIToken = token
			}

			return withApp(func(a *app) error {
				if _, err := a.requireSession(cmd.Context()); err != nil {
					return err
				}
				user, err := a.session.UpdateJiraCredentials(cmd.Context(), creds)
				if err != nil {
					return fmt.Errorf("update Jira credentials: %s", api.Message(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Jira set to %s (%s)\n", user.JiraBaseURL, user.JiraEmail)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "Jira account email")
	cmd.Flags().StringVar(&creds.BaseURL, "url", "", "Jira site URL")
	cmd.Flags().StringVar(&creds.APIToken, "token", "", "Jira API token (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}
