package adapters

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkDirAdapter_ScopedIsRemovedOnRelease(t *testing.T) {
	root := filepath.Join(t.TempDir(), "work")
	adapter := NewWorkDirAdapter(root)
	dir, release, err := adapter.Scoped("build")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(dir), "pysetupinfo-build-"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file"), []byte("x"), 0644))
	release()
	assert.NoDirExists(t, dir)
}

func TestWorkDirAdapter_TrackedLivesUntilCleanup(t *testing.T) {
	adapter := NewWorkDirAdapter(t.TempDir())
	first, err := adapter.Tracked("source")
	require.NoError(t, err)
	second, err := adapter.Tracked("source")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.DirExists(t, first)

	require.NoError(t, adapter.Cleanup())
	assert.NoDirExists(t, first)
	assert.NoDirExists(t, second)
	require.NoError(t, adapter.Cleanup())
}
