//go:build windows

package fsutil

import "os"

// LockFile is a no-op on Windows; regis assumes a single running instance.
func LockFile(_ *os.File) error { return nil }

// UnlockFile is a no-op on Windows.
func UnlockFile(_ *os.File) error { return nil }
