package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/internal/schema"
	"github.com/jvs-project/regis/pkg/color"
	"github.com/jvs-project/regis/pkg/errclass"
)

// parseKind parses a kind argument, suggesting close matches on failure.
func parseKind(arg string) (schema.Kind, error) {
	kind, err := schema.ParseKind(arg)
	if err == nil {
		return kind, nil
	}
	return "", errclass.ErrNotFound.WithMessagef("unknown entity kind %q. %s", arg, suggestKinds(arg))
}

// parseTable accepts a table name or a kind name and returns the table name.
func parseTable(arg string) string {
	if kind, err := schema.ParseKind(arg); err == nil {
		sc, _ := schema.Lookup(kind)
		return sc.Table
	}
	return strings.ToLower(strings.TrimSpace(arg))
}

// suggestKinds returns a "did you mean" hint for a mistyped kind.
func suggestKinds(query string) string {
	q := strings.ToLower(query)
	var matches, all []string
	for _, sc := range schema.All() {
		all = append(all, sc.Table)
		if q != "" && (strings.HasPrefix(sc.Table, q) || strings.Contains(sc.Table, q)) {
			matches = append(matches, color.Highlight(sc.Table))
		}
	}
	if len(matches) > 0 {
		hint := "Did you mean"
		if len(matches) > 1 {
			hint += " one of"
		}
		return fmt.Sprintf("%s: %s?", hint, strings.Join(matches, ", "))
	}
	return fmt.Sprintf("Available kinds: %s", strings.Join(all, ", "))
}

// suggestColumns lists the settable columns of a kind.
func suggestColumns(sc schema.Schema) string {
	return fmt.Sprintf("Columns of %s: %s", sc.Table, strings.Join(sc.FieldColumns(), ", "))
}

// completeKind completes the kind argument of the record commands.
func completeKind(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, sc := range schema.All() {
		if strings.HasPrefix(sc.Table, strings.ToLower(toComplete)) {
			out = append(out, sc.Table)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completeSet completes "Column=" for --set, using the kind already typed.
func completeSet(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	kind, err := schema.ParseKind(args[0])
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	sc, _ := schema.Lookup(kind)
	prefix := strings.ToLower(toComplete)
	var out []string
	for _, col := range sc.FieldColumns() {
		if strings.HasPrefix(strings.ToLower(col), prefix) {
			out = append(out, col+"=")
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

func suggestInit() string {
	return fmt.Sprintf("Run %s to create a new registry.", color.Highlight("regis init"))
}

func notInRegistryMessage() string {
	return "not a regis registry (or any parent). " + suggestInit()
}
