package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/pkg/color"
	"github.com/jvs-project/regis/pkg/errclass"
	"github.com/jvs-project/regis/pkg/logging"
)

var (
	jsonOutput bool
	noColor    bool
	logLevel   string
	rootCmd    = &cobra.Command{
		Use:   "regis",
		Short: "regis - member, visitor and employee registry",
		Long: `regis keeps an organization's visitors, members, employees and user
accounts in local tables. Every command past login runs under the logged-in
account's role, and every change is written to an append-only audit log.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupGlobals,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// errUnhealthy is returned by doctor after the findings have been printed.
var errUnhealthy = errors.New("registry is unhealthy")

func setupGlobals(cmd *cobra.Command, args []string) error {
	if noColor {
		color.Disable()
	}
	color.Init(noColor)
	if logLevel != "" {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return errclass.ErrConfigInvalid.Wrap(err, "--log-level")
		}
		logging.Global().SetLevel(level)
	}
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmtErr("%v", err)
		return 1
	}
	return 0
}

// outputJSON prints v as indented JSON on stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fmtErr(format string, args ...any) {
	prefix := "regis: "
	if color.Enabled() {
		prefix = color.Error("regis:") + " "
	}
	fmt.Fprintf(os.Stderr, prefix+format+"\n", args...)
}

func fmtWarn(format string, args ...any) {
	prefix := "warning: "
	if color.Enabled() {
		prefix = color.Warning("warning:") + " "
	}
	fmt.Fprintf(os.Stderr, prefix+format+"\n", args...)
}
