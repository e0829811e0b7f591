package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/internal/access"
	"github.com/jvs-project/regis/internal/report"
)

var statsCmd = &cobra.Command{
	Use:   "stats <table> <column>",
	Short: "Count occurrences of each value in a column",
	Long: `Count how often each non-empty value occurs in a column, most frequent
first. Password digests cannot be counted.

Example:
  regis stats members Position`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := parseTable(args[0])
		column := args[1]
		return withGuard(cmd, func(g *access.Guard) error {
			values, err := g.ColumnValues(name, column)
			if err != nil {
				return err
			}
			counts := report.Tally(values)

			if jsonOutput {
				return outputJSON(map[string]any{
					"table":  name,
					"column": column,
					"total":  len(values),
					"counts": counts,
				})
			}
			if len(counts) == 0 {
				fmt.Printf("No values in %s.%s.\n", name, column)
				return nil
			}
			return report.WriteTally(os.Stdout, column, counts)
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
