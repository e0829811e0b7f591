package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/internal/doctor"
	"github.com/jvs-project/regis/pkg/color"
)

var doctorStrict bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check registry health",
	Long: `Check registry health.

Reports missing tables, header mismatches, duplicate or non-numeric IDs,
duplicate usernames, invalid roles and temp files left by interrupted writes.
Exits non-zero when an error is found; with --strict, warnings count too.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry(cmd)
		if err != nil {
			return err
		}
		defer reg.Close()

		result, err := doctor.NewDoctor(reg.repo.Root, reg.dataDir, reg.tables).Check(doctorStrict)
		if err != nil {
			return err
		}

		if jsonOutput {
			if err := outputJSON(result); err != nil {
				return err
			}
		} else if len(result.Findings) == 0 {
			fmt.Println(color.Success("Registry is healthy."))
		} else {
			fmt.Printf("Findings (%d):\n", len(result.Findings))
			for _, f := range result.Findings {
				where := f.Category
				if f.Table != "" {
					where = f.Table + " " + f.Category
				}
				fmt.Printf("  [%s] %s: %s\n", severity(f.Severity), where, f.Description)
			}
		}

		if !result.Healthy {
			return errUnhealthy
		}
		return nil
	},
}

func severity(s string) string {
	switch s {
	case doctor.SeverityCritical, doctor.SeverityError:
		return color.Error(s)
	case doctor.SeverityWarning:
		return color.Warning(s)
	}
	return color.Dim(s)
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "treat warnings as unhealthy")
	rootCmd.AddCommand(doctorCmd)
}
