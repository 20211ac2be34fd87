// Package lock provides file-based locking so two releases of the same
// environment cannot interleave.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Lock is a flock-backed file lock.
type Lock struct {
	path string
	file *os.File
}

// New creates a lock for the given operation under the project root.
func New(root, operation string) *Lock {
	return &Lock{
		path: filepath.Join(root, ".stevedore", "locks", operation+".lock"),
	}
}

// Acquire attempts to take the lock without blocking.
// Returns an error when another process already holds it.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		l.file = nil
		if err == syscall.EWOULDBLOCK {
			op := strings.TrimSuffix(filepath.Base(l.path), ".lock")
			return fmt.Errorf("another %s operation is already running", op)
		}
		return fmt.Errorf("acquire lock: %w", err)
	}

	// PID in the lock file helps figure out who holds it.
	f.Truncate(0)
	f.Seek(0, 0)
	fmt.Fprintf(f, "%d\n", os.Getpid())

	l.file = f
	return nil
}

// Release releases and removes the lock.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.file.Close()
		return fmt.Errorf("release lock: %w", err)
	}

	l.file.Close()
	os.Remove(l.path)
	l.file = nil

	return nil
}

// WithLock runs fn while holding the named lock.
func WithLock(root, operation string, fn func() error) error {
	lock := New(root, operation)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	return fn()
}
