package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jvs-project/regis/pkg/errclass"
	"github.com/jvs-project/regis/pkg/fsutil"
	"github.com/jvs-project/regis/pkg/logging"
)

// FileStore keeps each table in <dir>/<table>.csv.
type FileStore struct {
	dir string
}

// NewFileStore returns a CSV store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file backing table.
func (s *FileStore) Path(table string) string {
	return filepath.Join(s.dir, table+".csv")
}

// Ensure writes a header-only file when table does not exist yet.
func (s *FileStore) Ensure(table string, header []string) (bool, error) {
	if err := validateName(table); err != nil {
		return false, err
	}
	path := s.Path(table)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, errclass.ErrIOFailure.Wrap(err, "stat %s", table)
	}

	data, err := encodeCSV([]Row{header})
	if err != nil {
		return false, errclass.ErrIOFailure.Wrap(err, "encode %s header", table)
	}
	if err := fsutil.AtomicWrite(path, data, 0644); err != nil {
		return false, errclass.ErrIOFailure.Wrap(err, "create %s", table)
	}
	logging.Debug("table created", map[string]any{"table": table, "backend": BackendCSV})
	return true, nil
}

// Header returns the first row of the table file.
func (s *FileStore) Header(table string) ([]string, error) {
	f, err := s.open(table, os.O_RDONLY)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := newReader(f).Read()
	if err == io.EOF {
		return nil, errclass.ErrIOFailure.WithMessagef("%s has no header row", table)
	}
	if err != nil {
		return nil, errclass.ErrIOFailure.Wrap(err, "read %s header", table)
	}
	return header, nil
}

// Append adds row at the end of the file under an exclusive lock. A record
// left incomplete by an interrupted append is cut off first.
func (s *FileStore) Append(table string, row Row) error {
	f, err := s.open(table, os.O_RDWR|os.O_APPEND)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := fsutil.LockFile(f); err != nil {
		return errclass.ErrIOFailure.Wrap(err, "lock %s", table)
	}
	defer fsutil.UnlockFile(f)

	if err := trimTail(table, f); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return errclass.ErrIOFailure.Wrap(err, "append %s", table)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errclass.ErrIOFailure.Wrap(err, "append %s", table)
	}
	if err := f.Sync(); err != nil {
		return errclass.ErrIOFailure.Wrap(err, "sync %s", table)
	}
	logging.Debug("row appended", map[string]any{"table": table})
	return nil
}

// Scan returns the data rows of table. The file is reopened on every iteration.
func (s *FileStore) Scan(table string) (*Rows, error) {
	if err := validateName(table); err != nil {
		return nil, err
	}
	path := s.Path(table)
	if _, err := os.Stat(path); err != nil {
		return nil, statError(table, err)
	}
	return &Rows{read: func(yield func(int, Row) bool) error {
		f, err := os.Open(path)
		if err != nil {
			return statError(table, err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return errclass.ErrIOFailure.Wrap(err, "stat %s", table)
		}

		r := newReader(f)
		if _, err := r.Read(); err != nil {
			if err == io.EOF {
				return nil
			}
			return errclass.ErrIOFailure.Wrap(err, "read %s header", table)
		}
		for i := 0; ; i++ {
			rec, err := r.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				if torn(r, info.Size()) {
					logging.Debug("skipped incomplete last row", map[string]any{"table": table})
					return nil
				}
				return errclass.ErrIOFailure.Wrap(err, "read %s", table)
			}
			if !yield(i, rec) {
				return nil
			}
		}
	}}, nil
}

// UpdateAt replaces the row at index.
func (s *FileStore) UpdateAt(table string, index int, row Row) error {
	return s.rewrite(table, index, func(rows []Row) []Row {
		rows[index+1] = row
		return rows
	})
}

// DeleteAt removes the row at index; later rows move up by one.
func (s *FileStore) DeleteAt(table string, index int) error {
	return s.rewrite(table, index, func(rows []Row) []Row {
		return append(rows[:index+1], rows[index+2:]...)
	})
}

// Close is a no-op; files are opened per call.
func (s *FileStore) Close() error {
	return nil
}

// rewrite loads the whole file, applies edit to the records (header at 0)
// and atomically replaces the file.
func (s *FileStore) rewrite(table string, index int, edit func([]Row) []Row) error {
	f, err := s.open(table, os.O_RDWR)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := fsutil.LockFile(f); err != nil {
		return errclass.ErrIOFailure.Wrap(err, "lock %s", table)
	}
	defer fsutil.UnlockFile(f)

	info, err := f.Stat()
	if err != nil {
		return errclass.ErrIOFailure.Wrap(err, "stat %s", table)
	}
	var rows []Row
	r := newReader(f)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(rows) > 0 && torn(r, info.Size()) {
				logging.Warn("dropped incomplete last row", map[string]any{"table": table})
				break
			}
			return errclass.ErrIOFailure.Wrap(err, "read %s", table)
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return errclass.ErrIOFailure.WithMessagef("%s has no header row", table)
	}
	if index < 0 || index >= len(rows)-1 {
		return outOfRange(table, index, len(rows)-1)
	}

	data, err := encodeCSV(edit(rows))
	if err != nil {
		return errclass.ErrIOFailure.Wrap(err, "encode %s", table)
	}
	if err := fsutil.AtomicWrite(s.Path(table), data, 0644); err != nil {
		return errclass.ErrIOFailure.Wrap(err, "rewrite %s", table)
	}
	logging.Debug("table rewritten", map[string]any{"table": table, "position": index})
	return nil
}

func (s *FileStore) open(table string, flag int) (*os.File, error) {
	if err := validateName(table); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(s.Path(table), flag, 0)
	if err != nil {
		return nil, statError(table, err)
	}
	return f, nil
}

// trimTail truncates f after its last complete record when the final record
// cannot be parsed up to end of file, such as a quoted field that never
// closes. A last row missing only its line terminator is kept and terminated.
// Damage before the final record is left for doctor to report.
func trimTail(table string, f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return errclass.ErrIOFailure.Wrap(err, "stat %s", table)
	}
	size := info.Size()

	r := newReader(io.NewSectionReader(f, 0, size))
	var complete int64
	for {
		_, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if complete == 0 || !torn(r, size) {
				break
			}
			if err := f.Truncate(complete); err != nil {
				return errclass.ErrIOFailure.Wrap(err, "truncate %s", table)
			}
			logging.Warn("dropped incomplete last row", map[string]any{
				"table": table,
				"bytes": size - complete,
			})
			break
		}
		complete = r.InputOffset()
	}

	terminated, err := fsutil.RepairTail(f)
	if err != nil {
		return errclass.ErrIOFailure.Wrap(err, "repair %s", table)
	}
	if terminated {
		logging.Warn("terminated truncated last row", map[string]any{"table": table})
	}
	return nil
}

// torn reports whether the record r just failed on ran to the end of a file
// of size bytes, which is what an interrupted append leaves behind.
func torn(r *csv.Reader, size int64) bool {
	return r.InputOffset() >= size
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	// Rows edited by hand may carry a different field count than the header.
	cr.FieldsPerRecord = -1
	return cr
}

func encodeCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	return buf.Bytes(), nil
}

func statError(table string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return missing(table)
	}
	return errclass.ErrIOFailure.Wrap(err, "open %s", table)
}
