package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jvs-project/regis/internal/record"
	"github.com/jvs-project/regis/internal/report"
	"github.com/jvs-project/regis/internal/schema"
	"github.com/jvs-project/regis/internal/table"
	"github.com/jvs-project/regis/pkg/color"
	"github.com/jvs-project/regis/pkg/errclass"
)

// recordRows flattens records into table rows, ID first.
func recordRows(records []record.Record) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, append(table.Row{strconv.Itoa(r.ID)}, r.Values...))
	}
	return rows
}

// printRecords writes records as an aligned table, or as JSON objects keyed
// by column.
func printRecords(sc schema.Schema, records []record.Record) error {
	if jsonOutput {
		return report.WriteSnapshot(os.Stdout, report.FormatJSON, sc.Columns, recordRows(records))
	}
	if len(records) == 0 {
		fmt.Printf("No %s.\n", sc.Table)
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(sc.Columns, "\t"))
	for _, row := range recordRows(records) {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = strings.ReplaceAll(v, "\n", " ")
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// printRecord writes one record as "Column: value" lines.
func printRecord(sc schema.Schema, r record.Record) error {
	if jsonOutput {
		fields := make(map[string]string, len(r.Values))
		for i, col := range sc.FieldColumns() {
			fields[col] = r.Values[i]
		}
		return outputJSON(map[string]any{"kind": sc.Kind, "id": r.ID, "fields": fields})
	}
	width := 0
	for _, col := range sc.Columns {
		width = max(width, len(col))
	}
	fmt.Printf("%-*s  %s\n", width, schema.IDColumn, color.Highlight(strconv.Itoa(r.ID)))
	for i, col := range sc.FieldColumns() {
		fmt.Printf("%-*s  %s\n", width, col, r.Values[i])
	}
	return nil
}

// applySets overlays Column=value assignments onto fields, which are aligned
// to sc.FieldColumns(). Column names match case-insensitively.
func applySets(sc schema.Schema, fields []string, sets []string) error {
	for _, set := range sets {
		name, value, ok := strings.Cut(set, "=")
		if !ok {
			return errclass.ErrValidation.WithMessagef("--set %q: want Column=value", set)
		}
		idx, err := sc.ColumnIndex(strings.TrimSpace(name))
		if err != nil {
			return errclass.ErrNotFound.WithMessagef("%s has no column %q. %s", sc.Kind, name, suggestColumns(sc))
		}
		if idx == 0 {
			return errclass.ErrValidation.WithMessage("ID is assigned by the registry and cannot be set")
		}
		fields[idx-1] = value
	}
	return nil
}

// parseID parses a record identifier argument.
func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, errclass.ErrValidation.WithMessagef("invalid ID %q", arg)
	}
	return id, nil
}
