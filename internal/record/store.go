// Package record implements create, read, update, delete and search over the
// registry's entity tables. It assigns identifiers, hashes and redacts the
// secret column, and validates field sets. It knows nothing about roles.
package record

import (
	"strconv"
	"strings"

	"github.com/jvs-project/regis/internal/hasher"
	"github.com/jvs-project/regis/internal/schema"
	"github.com/jvs-project/regis/internal/table"
	"github.com/jvs-project/regis/pkg/errclass"
	"github.com/jvs-project/regis/pkg/model"
	"github.com/jvs-project/regis/pkg/textutil"
)

// RedactionPlaceholder is shown in place of a secret on every read path.
// Passed back on update it means "keep the stored secret".
const RedactionPlaceholder = "********"

// Seeded administrator account written when the users table is first created.
const (
	SeedUsername = "admin"
	SeedSecret   = "admin"
)

// Record is one entity row. Values are aligned to Schema.FieldColumns().
type Record struct {
	ID     int      `json:"id"`
	Values []string `json:"values"`
}

// Store is the record layer over a table.Store.
type Store struct {
	tables table.Store
	hasher hasher.Hasher
	arenas map[string]*arena
	seq    *sequences
}

// New returns a record store writing through tables and hashing secrets with h.
func New(tables table.Store, h hasher.Hasher) *Store {
	return &Store{
		tables: tables,
		hasher: h,
		arenas: make(map[string]*arena),
	}
}

// Init creates every entity table, the audit table and the sequence table
// when missing. A users table created by this call is seeded with the
// administrator account.
func (s *Store) Init() (bool, error) {
	if _, err := s.tables.Ensure(schema.AuditTable, schema.AuditColumns); err != nil {
		return false, err
	}
	if _, err := s.tables.Ensure(schema.SequenceTable, schema.SequenceColumns); err != nil {
		return false, err
	}
	s.seq = nil

	seeded := false
	for _, sc := range schema.All() {
		created, err := s.tables.Ensure(sc.Table, sc.Columns)
		if err != nil {
			return false, err
		}
		if !created || sc.Kind != schema.User {
			continue
		}
		digest, err := s.hasher.Digest(SeedSecret)
		if err != nil {
			return false, errclass.ErrIOFailure.Wrap(err, "hash seed secret")
		}
		if err := s.reserve(sc.Table, 1); err != nil {
			return false, err
		}
		if err := s.tables.Append(sc.Table, table.Row{"1", SeedUsername, digest, string(model.RoleAdmin)}); err != nil {
			return false, err
		}
		delete(s.arenas, sc.Table)
		seeded = true
	}
	return seeded, nil
}

// List returns every record of kind in stored order, secrets redacted.
func (s *Store) List(kind schema.Kind) ([]Record, error) {
	sc, a, err := s.load(kind)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(a.rows))
	for _, row := range a.rows {
		out = append(out, redact(sc, toRecord(sc, row)))
	}
	return out, nil
}

// Search returns the records whose ID or any non-secret field contains query,
// compared after Unicode normalization and case folding. An empty query
// matches every record.
func (s *Store) Search(kind schema.Kind, query string) ([]Record, error) {
	sc, a, err := s.load(kind)
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, row := range a.rows {
		if matches(sc, row, query) {
			out = append(out, redact(sc, toRecord(sc, row)))
		}
	}
	return out, nil
}

func matches(sc schema.Schema, row table.Row, query string) bool {
	if query == "" {
		return true
	}
	for i, v := range row {
		if i == sc.Secret {
			continue
		}
		if textutil.ContainsFold(v, query) {
			return true
		}
	}
	return false
}

// Get returns the first record with id, secret redacted.
func (s *Store) Get(kind schema.Kind, id int) (Record, error) {
	sc, a, err := s.load(kind)
	if err != nil {
		return Record{}, err
	}
	pos, ok := a.first(id)
	if !ok {
		return Record{}, notFound(sc, id)
	}
	return redact(sc, toRecord(sc, a.rows[pos])), nil
}

// Count returns the number of rows in the kind's table.
func (s *Store) Count(kind schema.Kind) (int, error) {
	_, a, err := s.load(kind)
	if err != nil {
		return 0, err
	}
	return len(a.rows), nil
}

// Create validates fields, assigns the next identifier, hashes the secret
// and appends the record. It returns the new identifier.
func (s *Store) Create(kind schema.Kind, fields []string) (int, error) {
	sc, a, err := s.load(kind)
	if err != nil {
		return 0, err
	}
	if err := s.validate(sc, a, fields, -1); err != nil {
		return 0, err
	}

	id := a.nextID()
	if err := s.reserve(sc.Table, id); err != nil {
		return 0, err
	}
	a.highWater = id

	row := make(table.Row, 0, len(sc.Columns))
	row = append(row, strconv.Itoa(id))
	row = append(row, fields...)
	if sc.HasSecret() {
		digest, err := s.hasher.Digest(row[sc.Secret])
		if err != nil {
			return 0, errclass.ErrIOFailure.Wrap(err, "hash secret")
		}
		row[sc.Secret] = digest
	}

	if err := s.tables.Append(sc.Table, row); err != nil {
		return 0, err
	}
	a.push(row)
	return id, nil
}

// Update replaces the fields of the first record with id. A secret equal to
// RedactionPlaceholder keeps the stored digest; any other value is hashed.
func (s *Store) Update(kind schema.Kind, id int, fields []string) error {
	sc, a, err := s.load(kind)
	if err != nil {
		return err
	}
	pos, ok := a.first(id)
	if !ok {
		return notFound(sc, id)
	}
	if err := s.validate(sc, a, fields, pos); err != nil {
		return err
	}

	current := a.rows[pos]
	row := make(table.Row, 0, len(sc.Columns))
	row = append(row, current[0])
	row = append(row, fields...)
	if sc.HasSecret() {
		if row[sc.Secret] == RedactionPlaceholder {
			row[sc.Secret] = field(current, sc.Secret)
		} else {
			digest, err := s.hasher.Digest(row[sc.Secret])
			if err != nil {
				return errclass.ErrIOFailure.Wrap(err, "hash secret")
			}
			row[sc.Secret] = digest
		}
	}

	if err := s.tables.UpdateAt(sc.Table, pos, row); err != nil {
		return err
	}
	a.replace(pos, row)
	return nil
}

// Delete removes the first record with id. The identifier is never reissued
// by this store.
func (s *Store) Delete(kind schema.Kind, id int) error {
	sc, a, err := s.load(kind)
	if err != nil {
		return err
	}
	pos, ok := a.first(id)
	if !ok {
		return notFound(sc, id)
	}
	if err := s.tables.DeleteAt(sc.Table, pos); err != nil {
		return err
	}
	a.remove(pos)
	return nil
}

// Unredacted returns every record of kind with its true secret values.
// It is for internal consumers such as the authenticator.
func (s *Store) Unredacted(kind schema.Kind) ([]Record, error) {
	sc, a, err := s.load(kind)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(a.rows))
	for _, row := range a.rows {
		out = append(out, toRecord(sc, row))
	}
	return out, nil
}

// Snapshot returns the header and every row of a named table in stored
// order. Entity secrets are redacted.
func (s *Store) Snapshot(name string) ([]string, []table.Row, error) {
	header, err := s.tables.Header(name)
	if err != nil {
		return nil, nil, err
	}
	rows, err := table.Collect(s.tables, name)
	if err != nil {
		return nil, nil, err
	}
	if sc, err := schema.ByTable(name); err == nil && sc.HasSecret() {
		for i, row := range rows {
			if sc.Secret < len(row) {
				redacted := append(table.Row(nil), row...)
				redacted[sc.Secret] = RedactionPlaceholder
				rows[i] = redacted
			}
		}
	}
	return header, rows, nil
}

// ColumnValues returns every non-empty value of column across the named
// table in stored order. Secret columns are never aggregated.
func (s *Store) ColumnValues(name, column string) ([]string, error) {
	header, err := s.tables.Header(name)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, h := range header {
		if strings.EqualFold(h, column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errclass.ErrNotFound.WithMessagef("%s has no column %q", name, column)
	}
	if sc, err := schema.ByTable(name); err == nil && idx == sc.Secret {
		return nil, errclass.ErrValidation.WithMessagef("column %s of %s is secret", header[idx], name)
	}

	rows, err := table.Collect(s.tables, name)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, row := range rows {
		if v := field(row, idx); !textutil.IsBlank(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Store) load(kind schema.Kind) (schema.Schema, *arena, error) {
	sc, err := schema.Lookup(kind)
	if err != nil {
		return schema.Schema{}, nil, err
	}
	if a, ok := s.arenas[sc.Table]; ok {
		return sc, a, nil
	}
	a, err := loadArena(s.tables, sc.Table)
	if err != nil {
		return schema.Schema{}, nil, err
	}
	seq, err := s.loadSequences()
	if err != nil {
		return schema.Schema{}, nil, err
	}
	a.highWater = max(a.highWater, seq.high[sc.Table])
	s.arenas[sc.Table] = a
	return sc, a, nil
}

// validate checks a caller-supplied field set. self is the position being
// updated, or -1 on create.
func (s *Store) validate(sc schema.Schema, a *arena, fields []string, self int) error {
	cols := sc.FieldColumns()
	if len(fields) != len(cols) {
		return errclass.ErrValidation.WithMessagef("%s takes %d fields, got %d", sc.Kind, len(cols), len(fields))
	}
	for i, f := range fields {
		if textutil.IsBlank(f) {
			return errclass.ErrValidation.WithMessagef("%s is required", cols[i])
		}
	}
	if sc.Kind != schema.User {
		return nil
	}

	if _, err := model.ParseRole(fields[schema.UserRole-1]); err != nil {
		return errclass.ErrValidation.WithMessagef("invalid role %q", fields[schema.UserRole-1])
	}
	username := fields[sc.Unique-1]
	for pos, row := range a.rows {
		if pos != self && field(row, sc.Unique) == username {
			return errclass.ErrValidation.WithMessagef("username %q already exists", username)
		}
	}
	return nil
}

func toRecord(sc schema.Schema, row table.Row) Record {
	id, _ := parseID(row)
	values := make([]string, len(sc.Columns)-1)
	for i := range values {
		values[i] = field(row, i+1)
	}
	return Record{ID: id, Values: values}
}

func redact(sc schema.Schema, r Record) Record {
	if sc.HasSecret() {
		r.Values[sc.Secret-1] = RedactionPlaceholder
	}
	return r
}

// field returns row[i], or "" for a short row.
func field(row table.Row, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func notFound(sc schema.Schema, id int) error {
	return errclass.ErrNotFound.WithMessagef("%s %d not found", sc.Kind, id)
}
