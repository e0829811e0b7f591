package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/internal/access"
	"github.com/jvs-project/regis/internal/schema"
	"github.com/jvs-project/regis/pkg/color"
)

var addSets []string

var addCmd = &cobra.Command{
	Use:   "add <kind> --set Column=value ...",
	Short: "Create a record",
	Long: `Create a record. Every column except ID is required; the ID is assigned.

Examples:
  regis add visitor --set Name="Ana Souza" --set Phone=555-0100 ...
  regis add user --set Username=ana --set PasswordHash=s3cret --set Role=full

The PasswordHash column takes the plain password; it is hashed before it is
stored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		sc, _ := schema.Lookup(kind)
		fields := make([]string, len(sc.FieldColumns()))
		if err := applySets(sc, fields, addSets); err != nil {
			return err
		}

		return withGuard(cmd, func(g *access.Guard) error {
			id, err := g.Create(kind, fields)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(map[string]any{"kind": kind, "id": id})
			}
			fmt.Printf("Created %s %s\n", kind, color.Success(fmt.Sprint(id)))
			return nil
		})
	},
}

func init() {
	addCmd.ValidArgsFunction = completeKind
	addCmd.Flags().StringArrayVar(&addSets, "set", nil, "Column=value (repeatable)")
	_ = addCmd.RegisterFlagCompletionFunc("set", completeSet)
	rootCmd.AddCommand(addCmd)
}
