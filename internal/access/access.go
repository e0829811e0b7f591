// Package access decides which role may perform which operation and binds a
// session to the record store so every call is checked and every mutation
// is audited.
package access

import (
	"fmt"

	"github.com/jvs-project/regis/internal/audit"
	"github.com/jvs-project/regis/internal/record"
	"github.com/jvs-project/regis/internal/schema"
	"github.com/jvs-project/regis/internal/table"
	"github.com/jvs-project/regis/pkg/errclass"
	"github.com/jvs-project/regis/pkg/model"
)

// Authorize reports whether role may perform op on kind.
//
//	admin     read and mutate everything
//	full      read everything, mutate everything but users
//	readonly  read only
//
// Unknown roles are denied everything.
func Authorize(role model.Role, kind schema.Kind, op model.Operation) bool {
	switch role {
	case model.RoleAdmin:
		return true
	case model.RoleFull:
		return !op.Mutates() || kind != schema.User
	case model.RoleReadOnly:
		return !op.Mutates()
	default:
		return false
	}
}

// Guard is the session-bound, checked view of the record store.
type Guard struct {
	session model.Session
	store   *record.Store
	log     *audit.Log
}

// NewGuard binds session to store. Mutations are audited to log.
func NewGuard(session model.Session, store *record.Store, log *audit.Log) *Guard {
	return &Guard{session: session, store: store, log: log}
}

// Session returns the bound session.
func (g *Guard) Session() model.Session {
	return g.session
}

func (g *Guard) check(kind schema.Kind, op model.Operation) error {
	if Authorize(g.session.Role, kind, op) {
		return nil
	}
	return errclass.ErrPermissionDenied.WithMessagef("role %s may not %s %s records", g.session.Role, op, kind)
}

func (g *Guard) audit(op model.Operation, kind schema.Kind, id int) {
	g.log.Note(g.session.Username, fmt.Sprintf("%s %s %d", op, kind, id))
}

// List returns every record of kind, secrets redacted.
func (g *Guard) List(kind schema.Kind) ([]record.Record, error) {
	if err := g.check(kind, model.OpRead); err != nil {
		return nil, err
	}
	return g.store.List(kind)
}

// Search returns the records of kind matching query.
func (g *Guard) Search(kind schema.Kind, query string) ([]record.Record, error) {
	if err := g.check(kind, model.OpRead); err != nil {
		return nil, err
	}
	return g.store.Search(kind, query)
}

// Get returns one record of kind.
func (g *Guard) Get(kind schema.Kind, id int) (record.Record, error) {
	if err := g.check(kind, model.OpRead); err != nil {
		return record.Record{}, err
	}
	return g.store.Get(kind, id)
}

// Create adds a record and audits "create <kind> <id>".
func (g *Guard) Create(kind schema.Kind, fields []string) (int, error) {
	if err := g.check(kind, model.OpCreate); err != nil {
		return 0, err
	}
	id, err := g.store.Create(kind, fields)
	if err != nil {
		return 0, err
	}
	g.audit(model.OpCreate, kind, id)
	return id, nil
}

// Update replaces a record and audits "update <kind> <id>".
func (g *Guard) Update(kind schema.Kind, id int, fields []string) error {
	if err := g.check(kind, model.OpUpdate); err != nil {
		return err
	}
	if err := g.store.Update(kind, id, fields); err != nil {
		return err
	}
	g.audit(model.OpUpdate, kind, id)
	return nil
}

// Delete removes a record and audits "delete <kind> <id>".
func (g *Guard) Delete(kind schema.Kind, id int) error {
	if err := g.check(kind, model.OpDelete); err != nil {
		return err
	}
	if err := g.store.Delete(kind, id); err != nil {
		return err
	}
	g.audit(model.OpDelete, kind, id)
	return nil
}

// Snapshot returns the redacted contents of a named table. The audit table
// is readable by every role.
func (g *Guard) Snapshot(name string) ([]string, []table.Row, error) {
	if err := g.checkTable(name); err != nil {
		return nil, nil, err
	}
	return g.store.Snapshot(name)
}

// ColumnValues returns the non-empty values of one column of a named table.
func (g *Guard) ColumnValues(name, column string) ([]string, error) {
	if err := g.checkTable(name); err != nil {
		return nil, err
	}
	return g.store.ColumnValues(name, column)
}

// AuditTail returns the most recent audit entries. Every role may read them.
func (g *Guard) AuditTail(n int) ([]model.AuditEntry, error) {
	if _, err := model.ParseRole(string(g.session.Role)); err != nil {
		return nil, errclass.ErrPermissionDenied.WithMessagef("role %q may not read the audit log", g.session.Role)
	}
	return g.log.Tail(n)
}

// Warnings returns audit failures that were downgraded during this session.
func (g *Guard) Warnings() []string {
	return g.log.Warnings()
}

func (g *Guard) checkTable(name string) error {
	sc, err := schema.ByTable(name)
	if err == nil {
		return g.check(sc.Kind, model.OpRead)
	}
	if name == schema.AuditTable {
		if _, err := model.ParseRole(string(g.session.Role)); err == nil {
			return nil
		}
		return errclass.ErrPermissionDenied.WithMessagef("role %q may not read %s", g.session.Role, name)
	}
	return errclass.ErrNotFound.WithMessagef("unknown table %q", name)
}
