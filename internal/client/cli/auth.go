package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/cvewatch/internal/client/storage"
)

func (a *App) newLoginCmd() *cobra.Command {
	var (
		username string
		password Passwords
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the dashboard server",
		Long:  "Authenticate with username and password and keep the session in the local database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.promptLogin(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			a.io.Println("✓ Login successful!")
			if st.User != nil {
				a.io.Printf("Username: %s\n", st.User.Username)
				if st.User.Role != "" {
					a.io.Printf("Role: %s\n", st.User.Role)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted if omitted)")
	cmd.Flags().StringVar(&password.FromArgs, "password", "", "Password (prefer "+EnvPassword+" or --password-file)")
	cmd.Flags().StringVar(&password.FromFile, "password-file", "", "Read password from file")
	return cmd
}

func (a *App) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.gate.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logout failed: %w", err)
			}
			a.io.Println("✓ Logged out")
			return nil
		},
	}
}

func (a *App) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.manager.Describe(cmd.Context())
			if errors.Is(err, storage.ErrCorruptRecord) {
				a.io.Printf("Server:  %s\n", a.cfg.ServerURL)
				a.io.Println("Stored session is unreadable. Run 'cvewatch login' or 'cvewatch logout'.")
				return nil
			}
			if err != nil {
				return err
			}

			gs := a.gate.Status()
			a.io.Printf("Server:  %s\n", a.cfg.ServerURL)
			a.io.Printf("State:   %s\n", gs.State)
			if !st.Authenticated {
				a.io.Println("Not logged in. Run 'cvewatch login'.")
				return nil
			}
			if st.Username != "" {
				a.io.Printf("User:    %s\n", st.Username)
			}
			if st.Role != "" {
				a.io.Printf("Role:    %s\n", st.Role)
			}
			if st.ExpiresAt.IsZero() {
				a.io.Println("Expires: never")
			} else {
				a.io.Printf("Expires: %s (in %s)\n", st.ExpiresAt.Local().Format(time.DateTime), st.Remaining.Round(time.Second))
			}
			if st.HasRefreshToken {
				a.io.Println("Refresh: available")
			} else {
				a.io.Println("Refresh: unavailable")
			}
			return nil
		},
	}
}
