package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/passa-a-bola/web/internal/domain/session"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange credentials for a session",
	Long: `Log in against the backend's authentication endpoint and persist the session.

The password can be given with --password or the PASSABOLA_PASSWORD
environment variable; the email with --email or PASSABOLA_EMAIL.

After a successful login the profile is fetched once. Accounts without a
profile (fans, scouts, admins) log in normally.

Examples:
  passabola login --email ana@example.com
  PASSABOLA_PASSWORD=secret passabola login --email ana@example.com`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email (default: $PASSABOLA_EMAIL)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (default: $PASSABOLA_PASSWORD)")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	creds := session.Credentials{Email: loginEmail, Password: loginPassword}
	if creds.Email == "" {
		creds.Email = os.Getenv("PASSABOLA_EMAIL")
	}
	if creds.Password == "" {
		creds.Password = os.Getenv("PASSABOLA_PASSWORD")
	}

	return withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app) error {
		res, err := a.store.Login(cmd.Context(), creds)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Logged in as %s.\n", res.Session.Role.Name())
		if res.Session.Profile != nil && res.Session.Profile.DisplayName != "" {
			fmt.Fprintf(out, "Welcome, %s.\n", res.Session.Profile.DisplayName)
		}
		fmt.Fprintf(out, "Continue at %s\n", res.RedirectTo)
		return nil
	})
}
