// Package schema describes each entity kind's columns and backing table.
// The registry is static and read-only for the life of the process.
package schema

import (
	"strings"

	"github.com/jvs-project/regis/pkg/errclass"
)

// Kind is one of the registry's entity categories.
type Kind string

const (
	Visitor  Kind = "visitor"
	Member   Kind = "member"
	Employee Kind = "employee"
	User     Kind = "user"
)

// IDColumn is the first column of every entity table.
const IDColumn = "ID"

// AuditTable is the append-only audit log table. It is not an entity kind.
const AuditTable = "audit_log"

// AuditColumns is the audit log header.
var AuditColumns = []string{"Actor", "Action", "Timestamp"}

// SequenceTable persists the highest identifier issued per entity table so
// deleted identifiers stay retired across processes.
const SequenceTable = "id_sequence"

// SequenceColumns is the sequence table header.
var SequenceColumns = []string{"Table", "HighWater"}

// NoColumn marks an absent optional column index.
const NoColumn = -1

// Schema describes one entity kind.
type Schema struct {
	Kind    Kind
	Table   string
	Columns []string
	// Secret is the index of the column hashed on write and redacted on read.
	Secret int
	// Unique is the index of a natural-key column that must not repeat.
	Unique int
}

var registry = []Schema{
	{
		Kind:    Visitor,
		Table:   "visitors",
		Columns: []string{IDColumn, "Name", "Phone", "Email", "Address", "BirthDate", "VisitDate", "OriginChurch", "Notes", "Family"},
		Secret:  NoColumn,
		Unique:  NoColumn,
	},
	{
		Kind:    Member,
		Table:   "members",
		Columns: []string{IDColumn, "Name", "Phone", "Email", "BirthDate", "Position", "Baptized", "Address", "Family"},
		Secret:  NoColumn,
		Unique:  NoColumn,
	},
	{
		Kind:    Employee,
		Table:   "employees",
		Columns: []string{IDColumn, "Name", "Position", "Phone", "Email", "HireDate", "Salary", "Notes", "Family"},
		Secret:  NoColumn,
		Unique:  NoColumn,
	},
	{
		Kind:    User,
		Table:   "users",
		Columns: []string{IDColumn, "Username", "PasswordHash", "Role"},
		Secret:  2,
		Unique:  1,
	},
}

// Users column positions, used by the authenticator.
const (
	UserUsername = 1
	UserPassword = 2
	UserRole     = 3
)

// Kinds returns every entity kind in registry order.
func Kinds() []Kind {
	out := make([]Kind, len(registry))
	for i, s := range registry {
		out[i] = s.Kind
	}
	return out
}

// All returns a copy of every schema in registry order.
func All() []Schema {
	out := make([]Schema, len(registry))
	for i, s := range registry {
		out[i] = s.clone()
	}
	return out
}

// Lookup returns the schema for a kind.
func Lookup(kind Kind) (Schema, error) {
	for _, s := range registry {
		if s.Kind == kind {
			return s.clone(), nil
		}
	}
	return Schema{}, errclass.ErrNotFound.WithMessagef("unknown entity kind %q", kind)
}

// ByTable returns the schema backed by the named table.
func ByTable(table string) (Schema, error) {
	for _, s := range registry {
		if s.Table == table {
			return s.clone(), nil
		}
	}
	return Schema{}, errclass.ErrNotFound.WithMessagef("unknown table %q", table)
}

// ParseKind accepts a kind or table name, singular or plural, in any case.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, sc := range registry {
		if name == string(sc.Kind) || name == sc.Table {
			return sc.Kind, nil
		}
	}
	return "", errclass.ErrNotFound.WithMessagef("unknown entity kind %q (want visitor, member, employee or user)", s)
}

// FieldColumns returns the caller-supplied columns, i.e. every column but ID.
func (s Schema) FieldColumns() []string {
	return append([]string(nil), s.Columns[1:]...)
}

// ColumnIndex returns the position of a column by case-insensitive name.
func (s Schema) ColumnIndex(name string) (int, error) {
	for i, c := range s.Columns {
		if strings.EqualFold(c, name) {
			return i, nil
		}
	}
	return NoColumn, errclass.ErrNotFound.WithMessagef("%s has no column %q", s.Table, name)
}

// HasSecret reports whether the kind holds a secret column.
func (s Schema) HasSecret() bool {
	return s.Secret != NoColumn
}

func (s Schema) clone() Schema {
	s.Columns = append([]string(nil), s.Columns...)
	return s
}
