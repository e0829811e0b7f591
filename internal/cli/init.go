package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/internal/record"
	"github.com/jvs-project/regis/internal/repo"
	"github.com/jvs-project/regis/pkg/color"
	"github.com/jvs-project/regis/pkg/config"
)

var (
	initBackend string
	initHasher  string
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a new registry",
	Long: `Initialize a new registry in dir (default: the current directory).

This creates:
  - .regis/ with format_version, store_id and config.yaml
  - the visitors, members, employees, users and audit_log tables
  - an administrator account admin / admin; change its password right away`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		cfg := config.Default()
		if initBackend != "" {
			cfg.Storage.Backend = initBackend
		}
		if initHasher != "" {
			cfg.Security.Hasher = initHasher
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		r, err := repo.Init(dir)
		if err != nil {
			return err
		}
		if err := config.Save(r.Root, cfg); err != nil {
			return err
		}

		reg, err := openAt(cmd, r)
		if err != nil {
			return err
		}
		defer reg.Close()

		seeded, err := reg.store.Init()
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(map[string]any{
				"root":           r.Root,
				"store_id":       r.StoreID,
				"format_version": r.FormatVersion,
				"backend":        cfg.Storage.Backend,
				"hasher":         reg.hasher.Name(),
				"seeded_admin":   seeded,
			})
		}
		fmt.Printf("Initialized regis registry in %s\n", color.Success(r.Root))
		fmt.Printf("  Storage: %s (%s)\n", cfg.Storage.Backend, reg.dataDir)
		if seeded {
			fmt.Printf("  Administrator: %s / %s\n", color.Highlight(record.SeedUsername), record.SeedSecret)
			fmt.Println(color.Dim("  Change it: regis login admin, then regis edit user 1 --set PasswordHash=<new>"))
		}
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initBackend, "backend", "", "table backend (csv, sqlite)")
	initCmd.Flags().StringVar(&initHasher, "hasher", "", "password hasher (sha256, bcrypt)")
	rootCmd.AddCommand(initCmd)
}
