// Package audit appends actor/action entries to the registry's audit table.
package audit

import (
	"sync"
	"time"

	"github.com/jvs-project/regis/internal/schema"
	"github.com/jvs-project/regis/internal/table"
	"github.com/jvs-project/regis/pkg/errclass"
	"github.com/jvs-project/regis/pkg/logging"
	"github.com/jvs-project/regis/pkg/model"
)

// Log is the append-only audit log. Entries are never rewritten or removed.
type Log struct {
	tables table.Store
	now    func() time.Time

	mu       sync.Mutex
	warnings []string
}

// NewLog returns an audit log stored in the audit table of tables.
func NewLog(tables table.Store) *Log {
	return &Log{tables: tables, now: time.Now}
}

// SetClock replaces the time source; used by tests.
func (l *Log) SetClock(now func() time.Time) {
	l.now = now
}

// Record appends one entry stamped with the current time.
func (l *Log) Record(actor, action string) error {
	row := table.Row{actor, action, l.now().Format(model.AuditTimeLayout)}
	if err := l.tables.Append(schema.AuditTable, row); err != nil {
		return errclass.ErrIOFailure.Wrap(err, "write audit entry")
	}
	return nil
}

// Note records an entry without failing the caller. A write failure is
// logged and kept so it can be reported after the operation completes.
func (l *Log) Note(actor, action string) {
	err := l.Record(actor, action)
	if err == nil {
		return
	}
	logging.Warn("audit entry not written", map[string]any{
		"actor":  actor,
		"action": action,
		"error":  err.Error(),
	})
	l.mu.Lock()
	l.warnings = append(l.warnings, "audit entry not written ("+action+"): "+err.Error())
	l.mu.Unlock()
}

// Warnings returns the failures collected by Note.
func (l *Log) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warnings...)
}

// Entries returns every entry in append order. Timestamps that do not parse
// are left zero.
func (l *Log) Entries() ([]model.AuditEntry, error) {
	rows, err := table.Collect(l.tables, schema.AuditTable)
	if err != nil {
		return nil, err
	}
	out := make([]model.AuditEntry, 0, len(rows))
	for _, row := range rows {
		var e model.AuditEntry
		if len(row) > 0 {
			e.Actor = row[0]
		}
		if len(row) > 1 {
			e.Action = row[1]
		}
		if len(row) > 2 {
			e.Timestamp, _ = time.ParseInLocation(model.AuditTimeLayout, row[2], time.Local)
		}
		out = append(out, e)
	}
	return out, nil
}

// Tail returns the last n entries, oldest first. n <= 0 returns everything.
func (l *Log) Tail(n int) ([]model.AuditEntry, error) {
	entries, err := l.Entries()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
