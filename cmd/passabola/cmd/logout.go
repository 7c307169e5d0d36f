package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the session",
	Long: `Remove the token, role and profile from session storage.

Logout is local only and always succeeds; an already anonymous session
stays anonymous.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app) error {
			redirect := a.store.Logout(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out. Continue at %s\n", redirect)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
