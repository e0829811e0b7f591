package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/internal/access"
	"github.com/jvs-project/regis/internal/schema"
)

var searchCmd = &cobra.Command{
	Use:   "search <kind> [query...]",
	Short: "Find records containing text",
	Long: `Find records whose ID or any field contains the query, ignoring case and
Unicode composition. Several words are searched as one phrase. An empty
query lists everything.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		query := strings.Join(args[1:], " ")
		return withGuard(cmd, func(g *access.Guard) error {
			records, err := g.Search(kind, query)
			if err != nil {
				return err
			}
			sc, _ := schema.Lookup(kind)
			return printRecords(sc, records)
		})
	},
}

func init() {
	searchCmd.ValidArgsFunction = completeKind
	rootCmd.AddCommand(searchCmd)
}
