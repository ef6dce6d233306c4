// Package fs provides file-based storage for fetch results, the progress
// cache and run checkpoints.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
)

// renameFunc moves a finished temp file into place. It is a variable on the
// store so tests can simulate a crash between write and rename.
type renameFunc func(oldpath, newpath string) error

// writeFileAtomic writes data to a temp file next to path, syncs it, and
// renames it over path. On any failure the temp file is removed and path
// is left as it was.
func writeFileAtomic(path string, data []byte, rename renameFunc) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp, 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err = rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
