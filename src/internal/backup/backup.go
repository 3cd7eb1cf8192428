// Package backup implements the backup-then-overwrite safety net for
// in-place bibliography edits, plus a project-level lock so two runs cannot
// interleave writes.
package backup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Suffix is appended to a bibliography path to form its backup path.
const Suffix = ".backup"

// Create copies path to path+suffix, preserving permissions, and returns the
// backup path.
func Create(path, suffix string) (string, error) {
	if suffix == "" {
		suffix = Suffix
	}
	target := path + suffix
	if err := copyFile(path, target); err != nil {
		return "", fmt.Errorf("backup %s: %w", path, err)
	}
	return target, nil
}

// Restore copies the backup back over the original.
func Restore(backupPath, path string) error {
	if err := copyFile(backupPath, path); err != nil {
		return fmt.Errorf("restore %s: %w", path, err)
	}
	return nil
}

// Remove deletes a backup file. Cleanup is best-effort.
func Remove(path string) {
	_ = os.Remove(path)
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, b, info.Mode().Perm())
}

// Lock guards a project directory against concurrent runs.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes a non-blocking lock on <dir>/.bibfix.lock. A held lock
// means another run is editing the same project.
func Acquire(dir string) (*Lock, error) {
	fl := flock.New(filepath.Join(dir, ".bibfix.lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("another bibfix run is active in %s", dir)
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock and removes the lock file.
func (l *Lock) Release() {
	if l == nil || l.fl == nil {
		return
	}
	path := l.fl.Path()
	_ = l.fl.Unlock()
	_ = os.Remove(path)
}
