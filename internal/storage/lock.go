package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const lockFileName = "session.lock"

// ErrLocked is returned by Acquire when another live process holds the lock.
var ErrLocked = errors.New("another session is already open")

// SessionLock is a PID lock file that keeps a single editing session active
// per data directory.
type SessionLock struct {
	path string
}

// NewSessionLock creates a lock for the given data directory.
func NewSessionLock(dir string) *SessionLock {
	return &SessionLock{path: filepath.Join(dir, lockFileName)}
}

// Path returns the lock file location.
func (l *SessionLock) Path() string {
	return l.path
}

// Acquire takes the lock. A lock left by a dead process, or one holding
// garbage, is reclaimed; reclaimed reports whether that happened.
func (l *SessionLock) Acquire() (reclaimed bool, err error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	if err := l.create(); err == nil {
		return false, nil
	} else if !os.IsExist(err) {
		return false, fmt.Errorf("failed to create lock file: %w", err)
	}

	pid, ok, err := l.owner()
	if err != nil {
		return false, err
	}
	if ok && processExists(pid) {
		return false, fmt.Errorf("%w (PID %d)", ErrLocked, pid)
	}

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to remove stale lock file: %w", err)
	}

	// Only one retry so two processes reclaiming at once cannot loop.
	if err := l.create(); err != nil {
		if os.IsExist(err) {
			return false, fmt.Errorf("%w (acquired during retry)", ErrLocked)
		}
		return false, fmt.Errorf("failed to create lock file on retry: %w", err)
	}
	return true, nil
}

// Release removes the lock file. Releasing a missing lock is not an error.
func (l *SessionLock) Release() error {
	err := os.Remove(l.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (l *SessionLock) create() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, writeErr := fmt.Fprintf(f, "%d", os.Getpid())
	f.Close()
	if writeErr != nil {
		os.Remove(l.path)
		return fmt.Errorf("failed to write lock file: %w", writeErr)
	}
	return nil
}

// owner reads the PID stored in the lock file. ok is false when the content
// is not a PID.
func (l *SessionLock) owner() (pid int, ok bool, err error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read existing lock file: %w", err)
	}
	pid, parseErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if parseErr != nil {
		return 0, false, nil
	}
	return pid, true, nil
}

// processExists checks for a live process using signal 0.
func processExists(pid int) bool {
	if pid == os.Getpid() {
		return true
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
