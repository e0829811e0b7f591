package auth

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/jvs-project/regis/pkg/errclass"
	"github.com/jvs-project/regis/pkg/fsutil"
	"github.com/jvs-project/regis/pkg/model"
)

// SessionFile persists the live session so separate invocations share it.
type SessionFile struct {
	path string
}

// NewSessionFile returns a session file at path.
func NewSessionFile(path string) *SessionFile {
	return &SessionFile{path: path}
}

// Path returns the file location.
func (f *SessionFile) Path() string {
	return f.path
}

// Exists reports whether a session is stored.
func (f *SessionFile) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// Load returns the stored session.
func (f *SessionFile) Load() (model.Session, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Session{}, errclass.ErrNotLoggedIn.WithMessage("run 'regis login <username>' first")
	}
	if err != nil {
		return model.Session{}, errclass.ErrIOFailure.Wrap(err, "read session")
	}
	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil || s.Username == "" {
		return model.Session{}, errclass.ErrNotLoggedIn.WithMessage("session file is unreadable; log in again")
	}
	return s, nil
}

// Save stores s, replacing any previous session.
func (f *SessionFile) Save(s model.Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errclass.ErrIOFailure.Wrap(err, "encode session")
	}
	if err := fsutil.AtomicWrite(f.path, append(data, '\n'), 0600); err != nil {
		return errclass.ErrIOFailure.Wrap(err, "write session")
	}
	return nil
}

// Clear removes the stored session. A missing file is not an error.
func (f *SessionFile) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errclass.ErrIOFailure.Wrap(err, "remove session")
	}
	return nil
}
