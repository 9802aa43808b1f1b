package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/barnyard/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_StoreFetch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	backend, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, backend.Available(ctx))
	assert.Equal(t, "file-data", backend.Name())
	assert.Equal(t, "file://"+dir, backend.LocationURI())

	_, err = backend.Fetch(ctx, "secrets.snapshot")
	require.ErrorIs(t, err, interfaces.ErrSnapshotNotFound)

	require.NoError(t, backend.Store(ctx, "secrets.snapshot", []byte("v1")))
	require.NoError(t, backend.Store(ctx, "secrets.snapshot", []byte("v2")))

	data, err := backend.Fetch(ctx, "secrets.snapshot")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)

	info, err := os.Stat(filepath.Join(dir, "secrets.snapshot"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "Snapshot must be owner-only")
}

func TestFileBackend_RejectsEscapingNames(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	for _, name := range []string{"", ".", "..", "../escape", "sub/dir", `sub\dir`} {
		assert.Error(t, backend.Store(ctx, name, []byte("x")), "name %q", name)
		_, err := backend.Fetch(ctx, name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestFileBackend_Unavailable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	backend, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))
	assert.False(t, backend.Available(context.Background()))
}
