package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// writeAtomic replaces path with data. Readers observe either the old or
// the new file, never a partial one.
func (s *Store) writeAtomic(path string, data []byte) error {
	tmpPath, err := writeTemp(path, data)
	if err != nil {
		return err
	}

	if s.beforeRename != nil {
		if err := s.beforeRename(tmpPath); err != nil {
			os.Remove(tmpPath)
			return &IOError{Op: "rename", Path: path, Err: err}
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	s.syncDir(filepath.Dir(path))
	return nil
}

// writeNew is writeAtomic for a path that must not exist yet. The hard
// link fails if another writer created path in the meantime.
func (s *Store) writeNew(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmpPath, err := writeTemp(path, data)
	if err != nil {
		return err
	}
	defer os.Remove(tmpPath)

	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrAlreadyExists
		}
		return &IOError{Op: "link", Path: path, Err: err}
	}
	s.syncDir(dir)
	return nil
}

// writeTemp writes data to a new file next to path and flushes it to disk.
// On error the temp file is removed.
func writeTemp(path string, data []byte) (tmpPath string, err error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", &IOError{Op: "create temp", Path: dir, Err: err}
	}
	tmpPath = f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	if err = f.Chmod(FilePerm); err != nil {
		return "", &IOError{Op: "chmod", Path: tmpPath, Err: err}
	}
	if _, err = f.Write(data); err != nil {
		return "", &IOError{Op: "write", Path: tmpPath, Err: err}
	}
	if err = f.Sync(); err != nil {
		return "", &IOError{Op: "fsync", Path: tmpPath, Err: err}
	}
	if err = f.Close(); err != nil {
		return "", &IOError{Op: "close", Path: tmpPath, Err: err}
	}
	return tmpPath, nil
}

// syncDir makes a rename durable. Some platforms cannot fsync a directory,
// so a failure here is only logged.
func (s *Store) syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		s.logger.Debug().Err(err).Str("dir", dir).Msg("failed to open directory for fsync")
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		s.logger.Debug().Err(err).Str("dir", dir).Msg("directory fsync failed")
	}
}
