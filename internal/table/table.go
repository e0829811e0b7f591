// Package table persists named tables of string rows, each with a header row.
//
// Two backends implement Store: FileStore keeps one CSV file per table and
// SQLiteStore keeps every table in a single SQLite database. Positions are
// 0-based indexes into the data rows; the header is never addressable.
package table

import (
	"iter"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jvs-project/regis/pkg/errclass"
)

// Row is one data row, fields in header order.
type Row []string

// Store is an ordered, header-carrying table medium.
type Store interface {
	// Ensure creates table with header if it does not exist. An existing table
	// is left untouched, header mismatches included.
	Ensure(table string, header []string) (created bool, err error)
	Header(table string) ([]string, error)
	Append(table string, row Row) error
	Scan(table string) (*Rows, error)
	UpdateAt(table string, index int, row Row) error
	DeleteAt(table string, index int) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// SQLiteFile is the database file name the sqlite backend uses inside the data directory.
const SQLiteFile = "registry.db"

// Open returns the named backend rooted at dir, creating dir if needed.
func Open(backend, dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errclass.ErrIOFailure.Wrap(err, "create data dir")
	}
	switch backend {
	case "", BackendCSV:
		return NewFileStore(dir), nil
	case BackendSQLite:
		return OpenSQLite(filepath.Join(dir, SQLiteFile))
	default:
		return nil, errclass.ErrConfigInvalid.WithMessagef("unknown storage backend %q", backend)
	}
}

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func validateName(table string) error {
	if !namePattern.MatchString(table) {
		return errclass.ErrValidation.WithMessagef("invalid table name %q", table)
	}
	return nil
}

// Rows is a restartable sequence of a table's data rows.
type Rows struct {
	read func(yield func(int, Row) bool) error
	err  error
}

// All yields every data row with its position. Each call reads the table
// from the medium again.
func (r *Rows) All() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		r.err = r.read(yield)
	}
}

// Err returns the read error of the most recent iteration, if any.
func (r *Rows) Err() error {
	return r.err
}

// Collect reads every data row of table into memory.
func Collect(s Store, table string) ([]Row, error) {
	rows, err := s.Scan(table)
	if err != nil {
		return nil, err
	}
	var out []Row
	for _, row := range rows.All() {
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func outOfRange(table string, index, count int) error {
	return errclass.ErrOutOfRange.WithMessagef("%s has %d rows, no position %d", table, count, index)
}

func missing(table string) error {
	return errclass.ErrNotFound.WithMessagef("table %s does not exist", table)
}
