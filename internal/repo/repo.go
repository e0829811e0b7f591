// Package repo locates and initializes a registry home: a directory holding
// the .regis/ metadata directory and the data directory.
package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jvs-project/regis/pkg/config"
	"github.com/jvs-project/regis/pkg/errclass"
	"github.com/jvs-project/regis/pkg/fsutil"
)

const (
	FormatVersion     = 1
	FormatVersionFile = "format_version"
	StoreIDFile       = "store_id"
	SessionFile       = "session.json"
)

// Repo is an initialized registry home.
type Repo struct {
	Root          string
	FormatVersion int
	StoreID       string
}

// Init creates the .regis/ directory under path with a format version and a
// fresh store id. Initializing an existing registry is an error.
func Init(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	metaDir := filepath.Join(abs, config.Dir)
	if _, err := os.Stat(filepath.Join(metaDir, FormatVersionFile)); err == nil {
		return nil, errclass.ErrValidation.WithMessagef("registry already initialized in %s", abs)
	}
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		return nil, errclass.ErrIOFailure.Wrap(err, "create %s", metaDir)
	}

	storeID := uuid.NewString()
	if err := fsutil.AtomicWrite(filepath.Join(metaDir, StoreIDFile), []byte(storeID+"\n"), 0644); err != nil {
		return nil, errclass.ErrIOFailure.Wrap(err, "write store_id")
	}
	// format_version goes last: its presence marks a complete init.
	version := []byte(strconv.Itoa(FormatVersion) + "\n")
	if err := fsutil.AtomicWrite(filepath.Join(metaDir, FormatVersionFile), version, 0644); err != nil {
		return nil, errclass.ErrIOFailure.Wrap(err, "write format_version")
	}
	if err := fsutil.FsyncDir(abs); err != nil {
		return nil, errclass.ErrIOFailure.Wrap(err, "fsync registry root")
	}

	return &Repo{Root: abs, FormatVersion: FormatVersion, StoreID: storeID}, nil
}

// Discover walks up from cwd to the nearest directory containing .regis/.
func Discover(cwd string) (*Repo, error) {
	path, err := filepath.Abs(cwd)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", cwd, err)
	}
	for {
		metaDir := filepath.Join(path, config.Dir)
		if info, err := os.Stat(metaDir); err == nil && info.IsDir() {
			return open(path)
		}

		parent := filepath.Dir(path)
		if parent == path {
			return nil, errclass.ErrNotFound.WithMessage("not a regis registry (no .regis/ in this or any parent directory)")
		}
		path = parent
	}
}

func open(root string) (*Repo, error) {
	metaDir := filepath.Join(root, config.Dir)
	version, err := ReadFormatVersion(metaDir)
	if err != nil {
		return nil, err
	}
	if version > FormatVersion {
		return nil, errclass.ErrFormatUnsupported.WithMessagef(
			"format version %d > supported %d", version, FormatVersion)
	}
	storeID, _ := readTrimmed(filepath.Join(metaDir, StoreIDFile))
	return &Repo{Root: root, FormatVersion: version, StoreID: storeID}, nil
}

// ReadFormatVersion reads format_version from a .regis/ directory.
func ReadFormatVersion(metaDir string) (int, error) {
	s, err := readTrimmed(filepath.Join(metaDir, FormatVersionFile))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, errclass.ErrFormatUnsupported.WithMessage("missing format_version; run 'regis init'")
	}
	if err != nil {
		return 0, errclass.ErrIOFailure.Wrap(err, "read format_version")
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errclass.ErrFormatUnsupported.WithMessagef("invalid format_version %q", s)
	}
	return v, nil
}

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// MetaDir returns the .regis/ directory.
func (r *Repo) MetaDir() string {
	return filepath.Join(r.Root, config.Dir)
}

// SessionPath returns the live-session file.
func (r *Repo) SessionPath() string {
	return filepath.Join(r.MetaDir(), SessionFile)
}
