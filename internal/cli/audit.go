package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/internal/access"
	"github.com/jvs-project/regis/pkg/color"
	"github.com/jvs-project/regis/pkg/model"
)

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent audit entries",
	Long:  "Show the most recent audit log entries, oldest first. Use -n 0 for all of them.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGuard(cmd, func(g *access.Guard) error {
			entries, err := g.AuditTail(auditLimit)
			if err != nil {
				return err
			}
			if jsonOutput {
				if entries == nil {
					entries = []model.AuditEntry{}
				}
				return outputJSON(entries)
			}
			if len(entries) == 0 {
				fmt.Println("No audit entries.")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  %s  %s\n", color.Dim(e.Timestamp.Format(model.AuditTimeLayout)), color.Highlight(e.Actor), e.Action)
			}
			return nil
		})
	},
}

func init() {
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "number of entries to show (0 for all)")
	rootCmd.AddCommand(auditCmd)
}
