package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

var ErrVaultBusy = errors.New("vault: in use by another process")

// FileLock is an advisory, process-wide lock on a vault. It lives in a
// sibling "<vault>.lock" file so the vault itself can be renamed over.
type FileLock struct {
	fl *flock.Flock
}

// LockPath returns the lock file used for the vault at path.
func LockPath(vaultPath string) string {
	return vaultPath + ".lock"
}

// AcquireLock takes the lock without waiting. It returns ErrVaultBusy when
// another holder has it.
func AcquireLock(vaultPath string) (*FileLock, error) {
	fl := flock.New(LockPath(vaultPath))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, &IOError{Op: "lock", Path: fl.Path(), Err: err}
	}
	if !ok {
		return nil, ErrVaultBusy
	}
	return &FileLock{fl: fl}, nil
}

// AcquireNewLock is AcquireLock for a vault that is about to be written.
// The parent directory is created first.
func AcquireNewLock(vaultPath string) (*FileLock, error) {
	dir := filepath.Dir(vaultPath)
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return nil, &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	return AcquireLock(vaultPath)
}

// Release drops the lock. The lock file is left in place.
func (l *FileLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return &IOError{Op: "unlock", Path: l.fl.Path(), Err: err}
	}
	return nil
}

// Discard drops the lock and removes the lock file. It is used when the
// vault the lock was taken for never got written.
func (l *FileLock) Discard() error {
	if err := l.Release(); err != nil {
		return err
	}
	if l == nil || l.fl == nil {
		return nil
	}
	if err := os.Remove(l.fl.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &IOError{Op: "remove", Path: l.fl.Path(), Err: err}
	}
	return nil
}
