package doctor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearProfileLocks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SingletonLock"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lockfile"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Preferences"), []byte("{}"), 0644))

	removed, err := clearProfileLocks(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// Real profile data must survive.
	_, err = os.Stat(filepath.Join(dir, "Preferences"))
	assert.NoError(t, err)

	// Second pass finds nothing left to do.
	removed, err = clearProfileLocks(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestClearProfileLocksMissingDir(t *testing.T) {
	removed, err := clearProfileLocks(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestClearProfileLocksEmptyPath(t *testing.T) {
	removed, err := clearProfileLocks("")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}
