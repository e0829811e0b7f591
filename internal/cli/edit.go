package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/internal/access"
	"github.com/jvs-project/regis/internal/schema"
	"github.com/jvs-project/regis/pkg/errclass"
)

var editSets []string

var editCmd = &cobra.Command{
	Use:   "edit <kind> <id> --set Column=value ...",
	Short: "Update a record",
	Long: `Update a record. Columns not named with --set keep their current values;
a user's password is kept unless PasswordHash is set.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		if len(editSets) == 0 {
			return errclass.ErrValidation.WithMessage("nothing to change; pass --set Column=value")
		}
		sc, _ := schema.Lookup(kind)

		return withGuard(cmd, func(g *access.Guard) error {
			// The current values carry the redaction placeholder for the
			// secret, which keeps the stored digest on update.
			current, err := g.Get(kind, id)
			if err != nil {
				return err
			}
			fields := append([]string(nil), current.Values...)
			if err := applySets(sc, fields, editSets); err != nil {
				return err
			}
			if err := g.Update(kind, id, fields); err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(map[string]any{"kind": kind, "id": id})
			}
			fmt.Printf("Updated %s %d\n", kind, id)
			return nil
		})
	},
}

func init() {
	editCmd.ValidArgsFunction = completeKind
	editCmd.Flags().StringArrayVar(&editSets, "set", nil, "Column=value (repeatable)")
	_ = editCmd.RegisterFlagCompletionFunc("set", completeSet)
	rootCmd.AddCommand(editCmd)
}
