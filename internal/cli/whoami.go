package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/pkg/color"
	"github.com/jvs-project/regis/pkg/model"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry(cmd)
		if err != nil {
			return err
		}
		defer reg.Close()
		session, err := reg.session()
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(session)
		}
		fmt.Printf("%s (%s)\n", color.Success(session.Username), session.Role)
		fmt.Printf("  Session: %s\n", session.ID)
		fmt.Printf("  Since: %s\n", session.StartedAt.Format(model.AuditTimeLayout))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
