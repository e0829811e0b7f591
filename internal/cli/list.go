package cli

import (
	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/internal/access"
	"github.com/jvs-project/regis/internal/schema"
)

var listCmd = &cobra.Command{
	Use:   "list <kind>",
	Short: "List records of a kind",
	Long: `List every record of a kind in stored order.

Kinds: visitors, members, employees, users. Password digests are never shown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		return withGuard(cmd, func(g *access.Guard) error {
			records, err := g.List(kind)
			if err != nil {
				return err
			}
			sc, _ := schema.Lookup(kind)
			return printRecords(sc, records)
		})
	},
}

func init() {
	listCmd.ValidArgsFunction = completeKind
	rootCmd.AddCommand(listCmd)
}
