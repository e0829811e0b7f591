package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/internal/schema"
	"github.com/jvs-project/regis/internal/table"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show registry information",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry(cmd)
		if err != nil {
			return err
		}
		defer reg.Close()

		counts := make(map[string]int)
		for _, sc := range schema.All() {
			n, err := reg.store.Count(sc.Kind)
			if err != nil {
				return err
			}
			counts[sc.Table] = n
		}
		entries, err := table.Collect(reg.tables, schema.AuditTable)
		if err != nil {
			return err
		}
		counts[schema.AuditTable] = len(entries)

		if jsonOutput {
			return outputJSON(map[string]any{
				"root":           reg.repo.Root,
				"store_id":       reg.repo.StoreID,
				"format_version": reg.repo.FormatVersion,
				"backend":        reg.cfg.Storage.Backend,
				"data_dir":       reg.dataDir,
				"hasher":         reg.hasher.Name(),
				"rows":           counts,
			})
		}

		fmt.Printf("Registry: %s\n", reg.repo.Root)
		fmt.Printf("  Store ID: %s\n", reg.repo.StoreID)
		fmt.Printf("  Format version: %d\n", reg.repo.FormatVersion)
		fmt.Printf("  Storage: %s (%s)\n", reg.cfg.Storage.Backend, reg.dataDir)
		fmt.Printf("  Hasher: %s\n", reg.hasher.Name())
		for _, sc := range schema.All() {
			fmt.Printf("  %s: %d\n", sc.Table, counts[sc.Table])
		}
		fmt.Printf("  %s: %d\n", schema.AuditTable, counts[schema.AuditTable])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
