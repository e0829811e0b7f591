package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/pkg/errclass"
)

// completionShells maps each supported shell to its script generator.
var completionShells = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
}

var completionCmd = &cobra.Command{
	Use:   "completion <bash|zsh|fish|powershell>",
	Short: "Print a shell completion script",
	Long: `Print a completion script for regis to stdout.

Completion covers subcommands and flags, record kinds for list, search,
show, add, edit, delete and export, column names for --set, and the keys
accepted by 'regis config get' and 'regis config set'.

Install it once per machine, or source it from your shell profile:

  bash        regis completion bash > ~/.local/share/bash-completion/completions/regis
              source <(regis completion bash)
  zsh         regis completion zsh > "${fpath[1]}/_regis"   (then run compinit)
  fish        regis completion fish > ~/.config/fish/completions/regis.fish
  powershell  regis completion powershell | Out-String | Invoke-Expression

The bash script needs the bash-completion package, version 2 or later.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		gen := completionShells[args[0]]
		if err := gen(cmd.Root(), os.Stdout); err != nil {
			return errclass.ErrIOFailure.Wrap(err, "write %s completion", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
