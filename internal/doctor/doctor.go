package doctor

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/jvs-project/regis/internal/repo"
	"github.com/jvs-project/regis/internal/schema"
	"github.com/jvs-project/regis/internal/table"
	"github.com/jvs-project/regis/pkg/config"
	"github.com/jvs-project/regis/pkg/errclass"
	"github.com/jvs-project/regis/pkg/fsutil"
	"github.com/jvs-project/regis/pkg/model"
)

// Severities, least to most serious.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Finding represents a detected issue.
type Finding struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Table       string `json:"table,omitempty"`
	Path        string `json:"path,omitempty"`
}

// Result contains doctor check results.
type Result struct {
	Healthy  bool      `json:"healthy"`
	Findings []Finding `json:"findings"`
}

func (r *Result) add(f Finding) {
	r.Findings = append(r.Findings, f)
	if f.Severity == SeverityError || f.Severity == SeverityCritical {
		r.Healthy = false
	}
}

// Doctor performs registry health checks.
type Doctor struct {
	repoRoot string
	dataDir  string
	tables   table.Store
}

// NewDoctor creates a doctor for the registry at repoRoot whose tables live
// in dataDir.
func NewDoctor(repoRoot, dataDir string, tables table.Store) *Doctor {
	return &Doctor{repoRoot: repoRoot, dataDir: dataDir, tables: tables}
}

// Check runs all diagnostic checks. In strict mode warnings also make the
// registry unhealthy.
func (d *Doctor) Check(strict bool) (*Result, error) {
	result := &Result{Healthy: true, Findings: []Finding{}}

	d.checkFormatVersion(result)
	for _, sc := range schema.All() {
		d.checkEntityTable(result, sc)
	}
	d.checkHeader(result, schema.AuditTable, schema.AuditColumns, SeverityError)
	d.checkHeader(result, schema.SequenceTable, schema.SequenceColumns, SeverityInfo)
	d.checkOrphanTmp(result)

	if strict {
		for _, f := range result.Findings {
			if f.Severity == SeverityWarning {
				result.Healthy = false
			}
		}
	}
	return result, nil
}

func (d *Doctor) checkFormatVersion(result *Result) {
	metaDir := filepath.Join(d.repoRoot, config.Dir)
	version, err := repo.ReadFormatVersion(metaDir)
	if err != nil {
		result.add(Finding{
			Category:    "format",
			Description: "format_version file missing or unreadable",
			Severity:    SeverityCritical,
			Path:        filepath.Join(metaDir, repo.FormatVersionFile),
		})
		return
	}
	if version > repo.FormatVersion {
		result.add(Finding{
			Category:    "format",
			Description: fmt.Sprintf("format version %d > supported %d", version, repo.FormatVersion),
			Severity:    SeverityCritical,
		})
	}
}

// checkHeader reports a missing table or a header that differs from want.
// It returns false when the table cannot be inspected further.
func (d *Doctor) checkHeader(result *Result, name string, want []string, missing string) bool {
	got, err := d.tables.Header(name)
	if errors.Is(err, errclass.ErrNotFound) {
		result.add(Finding{
			Category:    "table",
			Description: fmt.Sprintf("table %s is missing; run 'regis init'", name),
			Severity:    missing,
			Table:       name,
		})
		return false
	}
	if err != nil {
		result.add(Finding{
			Category:    "table",
			Description: fmt.Sprintf("cannot read table %s: %v", name, err),
			Severity:    SeverityError,
			Table:       name,
		})
		return false
	}
	if !slices.Equal(got, want) {
		result.add(Finding{
			Category:    "header",
			Description: fmt.Sprintf("header is [%s], expected [%s]", strings.Join(got, ","), strings.Join(want, ",")),
			Severity:    SeverityError,
			Table:       name,
		})
	}
	return true
}

func (d *Doctor) checkEntityTable(result *Result, sc schema.Schema) {
	if !d.checkHeader(result, sc.Table, sc.Columns, SeverityError) {
		return
	}
	rows, err := table.Collect(d.tables, sc.Table)
	if err != nil {
		result.add(Finding{
			Category:    "table",
			Description: fmt.Sprintf("cannot read rows: %v", err),
			Severity:    SeverityError,
			Table:       sc.Table,
		})
		return
	}

	seenIDs := make(map[int]int)
	seenKeys := make(map[string]int)
	for pos, row := range rows {
		line := pos + 1
		if len(row) != len(sc.Columns) {
			result.add(Finding{
				Category:    "row",
				Description: fmt.Sprintf("row %d has %d fields, expected %d", line, len(row), len(sc.Columns)),
				Severity:    SeverityWarning,
				Table:       sc.Table,
			})
		}

		rawID := ""
		if len(row) > 0 {
			rawID = strings.TrimSpace(row[0])
		}
		if id, err := strconv.Atoi(rawID); err != nil {
			result.add(Finding{
				Category:    "id",
				Description: fmt.Sprintf("row %d has non-numeric ID %q", line, rawID),
				Severity:    SeverityWarning,
				Table:       sc.Table,
			})
		} else if first, dup := seenIDs[id]; dup {
			result.add(Finding{
				Category:    "id",
				Description: fmt.Sprintf("ID %d repeats on rows %d and %d; only the first is addressable", id, first, line),
				Severity:    SeverityWarning,
				Table:       sc.Table,
			})
		} else {
			seenIDs[id] = line
		}

		if sc.Unique != schema.NoColumn && sc.Unique < len(row) {
			key := row[sc.Unique]
			if first, dup := seenKeys[key]; dup {
				result.add(Finding{
					Category:    "unique",
					Description: fmt.Sprintf("%s %q repeats on rows %d and %d", sc.Columns[sc.Unique], key, first, line),
					Severity:    SeverityWarning,
					Table:       sc.Table,
				})
			} else {
				seenKeys[key] = line
			}
		}

		if sc.Kind == schema.User && schema.UserRole < len(row) {
			if _, err := model.ParseRole(row[schema.UserRole]); err != nil {
				result.add(Finding{
					Category:    "role",
					Description: fmt.Sprintf("row %d has invalid role %q; the account cannot log in", line, row[schema.UserRole]),
					Severity:    SeverityWarning,
					Table:       sc.Table,
				})
			}
		}
	}
}

func (d *Doctor) checkOrphanTmp(result *Result) {
	for _, dir := range []string{filepath.Join(d.repoRoot, config.Dir), d.dataDir} {
		temps, err := fsutil.LeftoverTemps(dir)
		if err != nil {
			continue
		}
		for _, path := range temps {
			result.add(Finding{
				Category:    "tmp",
				Description: fmt.Sprintf("orphan temp file: %s", filepath.Base(path)),
				Severity:    SeverityInfo,
				Path:        path,
			})
		}
	}
}
