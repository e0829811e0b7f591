// Package report renders the read-only table views: snapshot exports and
// per-value tallies of a column.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jvs-project/regis/internal/table"
	"github.com/jvs-project/regis/pkg/errclass"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts csv or json in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", errclass.ErrValidation.WithMessagef("unknown export format %q (want csv or json)", s)
}

// WriteSnapshot renders a table snapshot. CSV output is the header row
// followed by the data rows; JSON output is an array of objects keyed by
// column in header order.
func WriteSnapshot(w io.Writer, format Format, header []string, rows []table.Row) error {
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, row := range rows {
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatJSON:
		objects := make([]object, 0, len(rows))
		for _, row := range rows {
			objects = append(objects, object{keys: header, values: row})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(objects)
	}
	return errclass.ErrValidation.WithMessagef("unknown export format %q", format)
}

// object marshals a row as a JSON object whose keys keep header order.
// Missing trailing fields render as empty strings; surplus fields are dropped.
type object struct {
	keys   []string
	values []string
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		v := ""
		if i < len(o.values) {
			v = o.values[i]
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Count is the number of occurrences of one value.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Tally groups values, most frequent first. Ties keep first-appearance order.
func Tally(values []string) []Count {
	index := make(map[string]int)
	var out []Count
	for _, v := range values {
		if i, ok := index[v]; ok {
			out[i].Count++
			continue
		}
		index[v] = len(out)
		out = append(out, Count{Value: v, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// WriteTally renders counts as two aligned columns under a header.
func WriteTally(w io.Writer, column string, counts []Count) error {
	width := utf8.RuneCountInString(column)
	for _, c := range counts {
		width = max(width, utf8.RuneCountInString(c.Value))
	}
	if _, err := fmt.Fprintf(w, "%s  %s\n", pad(column, width), "COUNT"); err != nil {
		return err
	}
	for _, c := range counts {
		if _, err := fmt.Fprintf(w, "%s  %d\n", pad(c.Value, width), c.Count); err != nil {
			return err
		}
	}
	return nil
}

func pad(s string, width int) string {
	return s + strings.Repeat(" ", width-utf8.RuneCountInString(s))
}
