package cli

import (
	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/internal/access"
	"github.com/jvs-project/regis/internal/schema"
)

var showCmd = &cobra.Command{
	Use:   "show <kind> <id>",
	Short: "Show one record",
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
			r, err := g.Get(kind, id)
			if err != nil {
				return err
			}
			sc, _ := schema.Lookup(kind)
			return printRecord(sc, r)
		})
	},
}

func init() {
	showCmd.ValidArgsFunction = completeKind
	rootCmd.AddCommand(showCmd)
}
