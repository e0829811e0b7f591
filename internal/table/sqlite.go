package table

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jvs-project/regis/pkg/errclass"
	"github.com/jvs-project/regis/pkg/logging"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore keeps every table in one SQLite database.
// A row's position is its rank by insertion sequence within its table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errclass.ErrIOFailure.Wrap(err, "open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errclass.ErrIOFailure.Wrap(err, "connect to database")
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, errclass.ErrIOFailure.Wrap(err, "apply pragmas")
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errclass.ErrIOFailure.Wrap(err, "apply schema")
	}
	return &SQLiteStore{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Ensure registers table with header unless it is already registered.
func (s *SQLiteStore) Ensure(table string, header []string) (bool, error) {
	if err := validateName(table); err != nil {
		return false, err
	}
	encoded, err := json.Marshal(header)
	if err != nil {
		return false, errclass.ErrIOFailure.Wrap(err, "encode %s header", table)
	}
	res, err := s.db.Exec(`INSERT OR IGNORE INTO tables (name, header) VALUES (?, ?)`, table, string(encoded))
	if err != nil {
		return false, errclass.ErrIOFailure.Wrap(err, "create %s", table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errclass.ErrIOFailure.Wrap(err, "create %s", table)
	}
	if n == 1 {
		logging.Debug("table created", map[string]any{"table": table, "backend": BackendSQLite})
	}
	return n == 1, nil
}

// Header returns the header table was registered with.
func (s *SQLiteStore) Header(table string) ([]string, error) {
	if err := validateName(table); err != nil {
		return nil, err
	}
	var encoded string
	err := s.db.QueryRow(`SELECT header FROM tables WHERE name = ?`, table).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, missing(table)
	}
	if err != nil {
		return nil, errclass.ErrIOFailure.Wrap(err, "read %s header", table)
	}
	var header []string
	if err := json.Unmarshal([]byte(encoded), &header); err != nil {
		return nil, errclass.ErrIOFailure.Wrap(err, "decode %s header", table)
	}
	return header, nil
}

// Append inserts row after every existing row of table.
func (s *SQLiteStore) Append(table string, row Row) error {
	if err := s.exists(table); err != nil {
		return err
	}
	encoded, err := json.Marshal([]string(row))
	if err != nil {
		return errclass.ErrIOFailure.Wrap(err, "encode %s row", table)
	}
	if _, err := s.db.Exec(`INSERT INTO table_rows (tbl, fields) VALUES (?, ?)`, table, string(encoded)); err != nil {
		return errclass.ErrIOFailure.Wrap(err, "append %s", table)
	}
	logging.Debug("row appended", map[string]any{"table": table})
	return nil
}

// Scan returns the rows of table in insertion order. Each iteration queries
// the database again and buffers the result, so the caller may use the store
// while iterating over the single connection.
func (s *SQLiteStore) Scan(table string) (*Rows, error) {
	if err := s.exists(table); err != nil {
		return nil, err
	}
	return &Rows{read: func(yield func(int, Row) bool) error {
		rows, err := s.load(table)
		if err != nil {
			return err
		}
		for i, row := range rows {
			if !yield(i, row) {
				return nil
			}
		}
		return nil
	}}, nil
}

func (s *SQLiteStore) load(table string) ([]Row, error) {
	q, err := s.db.Query(`SELECT fields FROM table_rows WHERE tbl = ? ORDER BY seq`, table)
	if err != nil {
		return nil, errclass.ErrIOFailure.Wrap(err, "read %s", table)
	}
	defer q.Close()

	var out []Row
	for q.Next() {
		var encoded string
		if err := q.Scan(&encoded); err != nil {
			return nil, errclass.ErrIOFailure.Wrap(err, "read %s", table)
		}
		var row Row
		if err := json.Unmarshal([]byte(encoded), &row); err != nil {
			return nil, errclass.ErrIOFailure.Wrap(err, "decode %s row", table)
		}
		out = append(out, row)
	}
	if err := q.Err(); err != nil {
		return nil, errclass.ErrIOFailure.Wrap(err, "read %s", table)
	}
	return out, nil
}

// UpdateAt replaces the fields of the row at index.
func (s *SQLiteStore) UpdateAt(table string, index int, row Row) error {
	seq, err := s.seqAt(table, index)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal([]string(row))
	if err != nil {
		return errclass.ErrIOFailure.Wrap(err, "encode %s row", table)
	}
	if _, err := s.db.Exec(`UPDATE table_rows SET fields = ? WHERE seq = ?`, string(encoded), seq); err != nil {
		return errclass.ErrIOFailure.Wrap(err, "update %s", table)
	}
	logging.Debug("row updated", map[string]any{"table": table, "position": index})
	return nil
}

// DeleteAt removes the row at index.
func (s *SQLiteStore) DeleteAt(table string, index int) error {
	seq, err := s.seqAt(table, index)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM table_rows WHERE seq = ?`, seq); err != nil {
		return errclass.ErrIOFailure.Wrap(err, "delete from %s", table)
	}
	logging.Debug("row deleted", map[string]any{"table": table, "position": index})
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) seqAt(table string, index int) (int64, error) {
	if err := s.exists(table); err != nil {
		return 0, err
	}
	if index >= 0 {
		var seq int64
		err := s.db.QueryRow(`SELECT seq FROM table_rows WHERE tbl = ? ORDER BY seq LIMIT 1 OFFSET ?`, table, index).Scan(&seq)
		if err == nil {
			return seq, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, errclass.ErrIOFailure.Wrap(err, "locate %s row", table)
		}
	}
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM table_rows WHERE tbl = ?`, table).Scan(&count); err != nil {
		return 0, errclass.ErrIOFailure.Wrap(err, "count %s", table)
	}
	return 0, outOfRange(table, index, count)
}

func (s *SQLiteStore) exists(table string) error {
	if err := validateName(table); err != nil {
		return err
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tables WHERE name = ?`, table).Scan(&n); err != nil {
		return errclass.ErrIOFailure.Wrap(err, "look up %s", table)
	}
	if n == 0 {
		return missing(table)
	}
	return nil
}
