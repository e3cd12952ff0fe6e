package fslock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/artman/internal/errors"
)

func TestLock_LockUnlock(t *testing.T) {
	// Given: a folder that does not exist yet
	dir := filepath.Join(t.TempDir(), "cache")
	l := New(dir)

	// When: locking
	require.NoError(t, l.Lock(context.Background()))

	// Then: the lock file exists and a second lock cannot be taken
	_, err := os.Stat(l.Path())
	require.NoError(t, err)
	ok, err := New(dir).TryLock()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Unlock())
	require.NoError(t, l.Unlock())
}

func TestLock_ContextCancelled(t *testing.T) {
	dir := t.TempDir()
	holder := New(dir)
	require.NoError(t, holder.Lock(context.Background()))
	defer holder.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	err := New(dir).Lock(ctx)

	assert.Equal(t, amerrors.ErrCodeLockFailed, amerrors.GetCode(err))
}

func TestWith_ReleasesAfterRun(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")

	err := With(context.Background(), dir, func() error { return boom })
	assert.ErrorIs(t, err, boom)

	ok, err := New(dir).TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
}
