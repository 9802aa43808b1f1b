package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruteri/barnyard/common"
	"github.com/ruteri/barnyard/interfaces"
)

// FileBackend stores snapshots as files in a single directory.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file backend rooted at baseDir, creating the
// directory with mode 0700 if it does not exist.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if log == nil {
		log = slog.Default()
	}

	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Fetch reads the snapshot file called name.
// Returns ErrSnapshotNotFound if the file doesn't exist.
func (b *FileBackend) Fetch(ctx context.Context, name string) ([]byte, error) {
	filePath, err := b.getFilePath(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, interfaces.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched snapshot from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Store replaces the snapshot file called name. The write is atomic and
// the file is readable only by its owner.
func (b *FileBackend) Store(ctx context.Context, name string, data []byte) error {
	filePath, err := b.getFilePath(name)
	if err != nil {
		return err
	}

	if err := common.WriteFileAtomic(filePath, data); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	b.log.Debug("Stored snapshot in file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return nil
}

// Available checks if the file backend is accessible by verifying the base directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

// getFilePath resolves name inside the base directory. Names that would
// escape it are rejected.
func (b *FileBackend) getFilePath(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid snapshot name %q", name)
	}
	return filepath.Join(b.baseDir, name), nil
}
