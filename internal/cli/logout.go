package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry(cmd)
		if err != nil {
			return err
		}
		defer reg.Close()

		session, err := reg.sessions.Load()
		if err != nil {
			return err
		}
		reg.authenticator().Logout(session)
		if err := reg.sessions.Clear(); err != nil {
			return err
		}
		for _, w := range reg.audit.Warnings() {
			fmtWarn("%s", w)
		}

		if jsonOutput {
			return outputJSON(map[string]any{"logged_out": session.Username})
		}
		fmt.Printf("Logged out %s\n", session.Username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
