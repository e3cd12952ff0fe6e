// Package fslock guards a registry cache folder against concurrent
// regenerate, save and update runs from several artman processes.
package fslock

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	amerrors "github.com/Aman-CERP/artman/internal/errors"
)

// FileName is the lock file created inside a guarded folder.
const FileName = ".artman.lock"

// retryDelay is how often a blocked Lock polls the lock file.
const retryDelay = 50 * time.Millisecond

// Lock is an exclusive cross-process lock on a folder.
type Lock struct {
	path  string
	flock *flock.Flock
}

// New returns an unlocked lock for dir.
func New(dir string) *Lock {
	path := filepath.Join(dir, FileName)
	return &Lock{path: path, flock: flock.New(path)}
}

// Lock blocks until the lock is held or ctx is done.
func (l *Lock) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return amerrors.New(amerrors.ErrCodeLockFailed, "failed to create lock directory", err).WithDetail("path", l.path)
	}
	ok, err := l.flock.TryLockContext(ctx, retryDelay)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeLockFailed, "failed to acquire lock", err).WithDetail("path", l.path)
	}
	if !ok {
		return amerrors.New(amerrors.ErrCodeLockFailed, "lock not acquired", ctx.Err()).WithDetail("path", l.path)
	}
	return nil
}

// TryLock takes the lock if it is free.
func (l *Lock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, amerrors.New(amerrors.ErrCodeLockFailed, "failed to create lock directory", err).WithDetail("path", l.path)
	}
	ok, err := l.flock.TryLock()
	if err != nil {
		return false, amerrors.New(amerrors.ErrCodeLockFailed, "failed to acquire lock", err).WithDetail("path", l.path)
	}
	return ok, nil
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *Lock) Unlock() error {
	if !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return amerrors.New(amerrors.ErrCodeLockFailed, "failed to release lock", err).WithDetail("path", l.path)
	}
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// With runs fn while holding the lock on dir.
func With(ctx context.Context, dir string, fn func() error) (err error) {
	l := New(dir)
	if err := l.Lock(ctx); err != nil {
		return err
	}
	defer func() {
		if uerr := l.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}()
	return fn()
}
