package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

// FileLock serialises writers of one database file across processes. The
// lock lives in "<db>.lock".
type FileLock struct {
	fl *flock.Flock
}

func NewFileLock(dbPath string) (*FileLock, error) {
	abs, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("lock: resolve %q: %w", dbPath, err)
	}
	return &FileLock{fl: flock.New(abs + ".lock")}, nil
}

func (l *FileLock) Path() string { return l.fl.Path() }

// Lock blocks until the lock is held or ctx is done.
func (l *FileLock) Lock(ctx context.Context) error {
	ok, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", l.Path(), err)
	}
	if ok {
		return nil
	}

	Log.Debugf("Waiting for %s", l.Path())
	ok, err = l.fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", l.Path(), err)
	}
	if !ok {
		return fmt.Errorf("lock %s: not acquired", l.Path())
	}
	return nil
}

// Unlock is a no-op when the lock file is already gone.
func (l *FileLock) Unlock() error {
	err := l.fl.Unlock()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("unlock %s: %w", l.Path(), err)
}

// WithLock runs fn while holding the lock.
func (l *FileLock) WithLock(ctx context.Context, fn func() error) error {
	if err := l.Lock(ctx); err != nil {
		return err
	}
	defer func() {
		if err := l.Unlock(); err != nil {
			Log.Warnf("Could not release %s: %v", l.Path(), err)
		}
	}()
	return fn()
}

// GetAbsDBPath resolves the session database path. Empty means
// ~/.config/sigtrail/session.sqlite.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath != "" {
		return filepath.Abs(dbPath)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "sigtrail", "session.sqlite"), nil
}
