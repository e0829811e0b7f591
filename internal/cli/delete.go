package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/internal/access"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <kind> <id>",
	Short: "Delete a record",
	Long:  "Delete a record. Its ID is retired and never assigned again.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return withGuard(cmd, func(g *access.Guard) error {
			if err := g.Delete(kind, id); err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(map[string]any{"kind": kind, "id": id, "deleted": true})
			}
			fmt.Printf("Deleted %s %d\n", kind, id)
			return nil
		})
	},
}

func init() {
	deleteCmd.ValidArgsFunction = completeKind
	rootCmd.AddCommand(deleteCmd)
}
