package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	lock := New("/tmp/test", "release-prod")
	assert.Equal(t, "/tmp/test/.stevedore/locks/release-prod.lock", lock.path)
}

func TestLock_AcquireRelease(t *testing.T) {
	tmpDir := t.TempDir()
	lock := New(tmpDir, "release-dev")

	require.NoError(t, lock.Acquire())

	lockPath := filepath.Join(tmpDir, ".stevedore", "locks", "release-dev.lock")
	_, err := os.Stat(lockPath)
	require.NoError(t, err)

	require.NoError(t, lock.Release())

	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err))
}

func TestLock_DoubleAcquire(t *testing.T) {
	tmpDir := t.TempDir()
	lock1 := New(tmpDir, "release-dev")
	lock2 := New(tmpDir, "release-dev")

	require.NoError(t, lock1.Acquire())
	defer lock1.Release()

	err := lock2.Acquire()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "another release-dev operation is already running")
}

func TestLock_ReleaseWithoutAcquire(t *testing.T) {
	lock := New(t.TempDir(), "release-dev")
	require.NoError(t, lock.Release())
}

func TestWithLock(t *testing.T) {
	executed := false
	err := WithLock(t.TempDir(), "release-dev", func() error {
		executed = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, executed)
}

func TestWithLock_Blocked(t *testing.T) {
	tmpDir := t.TempDir()
	lock := New(tmpDir, "release-dev")

	require.NoError(t, lock.Acquire())
	defer lock.Release()

	err := WithLock(tmpDir, "release-dev", func() error { return nil })
	assert.Error(t, err)
}
