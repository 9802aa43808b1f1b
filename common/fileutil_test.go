package common

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.bin")

	require.NoError(t, WriteFileAtomic(path, []byte("first")))
	require.NoError(t, WriteFileAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "No temporary files should be left behind")
}

func TestWriteFileAtomic_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "state.bin")
	assert.Error(t, WriteFileAtomic(path, []byte("data")))
}

func TestSetupLogger(t *testing.T) {
	log := SetupLogger(&LoggingOpts{Debug: true, JSON: true, Service: PackageName, Version: Version})
	require.NotNil(t, log)
	assert.True(t, log.Enabled(t.Context(), slog.LevelDebug), "Debug level should be enabled")
}
