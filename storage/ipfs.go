package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/barnyard/interfaces"
)

// IPFSBackend stores snapshots in the mutable file system (MFS) of an IPFS
// node. Snapshots live at /{prefix}/{name}; writing one again replaces the
// file and moves the MFS entry to the new content.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates a new IPFS storage backend talking to the node API
// at host:port.
func NewIPFSBackend(host, port, prefix string, timeout time.Duration, log *slog.Logger) (*IPFSBackend, error) {
	if log == nil {
		log = slog.Default()
	}
	if host == "" {
		return nil, fmt.Errorf("%w: empty IPFS host", interfaces.ErrInvalidLocationURI)
	}

	apiURL := fmt.Sprintf("%s:%s", host, port)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "barnyard"
	}

	sh := shell.NewShell(apiURL)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}

	return &IPFSBackend{
		shell:       sh,
		host:        host,
		port:        port,
		prefix:      prefix,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/%s?timeout=%s", apiURL, prefix, timeout),
	}, nil
}

// Fetch reads the snapshot file called name from MFS.
// Returns ErrSnapshotNotFound if the file doesn't exist and
// ErrBackendUnavailable if the node is not reachable.
func (b *IPFSBackend) Fetch(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	mfsPath := b.getMFSPath(name)

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.FilesRead(ctx, mfsPath)
	if err != nil {
		if isMFSNotFound(err) {
			b.log.Debug("Snapshot not found in IPFS",
				slog.String("path", mfsPath),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrSnapshotNotFound
		}

		b.log.Error("Failed to read snapshot from IPFS",
			slog.String("path", mfsPath),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to read from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}

	b.log.Debug("Fetched snapshot from IPFS",
		slog.String("path", mfsPath),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store writes data to the MFS file called name, creating parent
// directories and truncating any previous contents.
func (b *IPFSBackend) Store(ctx context.Context, name string, data []byte) error {
	start := time.Now()
	mfsPath := b.getMFSPath(name)

	if !b.shell.IsUp() {
		return interfaces.ErrBackendUnavailable
	}

	err := b.shell.FilesWrite(ctx, mfsPath, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return fmt.Errorf("failed to write to IPFS: %w", err)
	}

	b.log.Debug("Stored snapshot in IPFS",
		slog.String("path", mfsPath),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this storage backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

func (b *IPFSBackend) getMFSPath(name string) string {
	return "/" + path.Join(b.prefix, name)
}

func isMFSNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "does not exist") || strings.Contains(msg, "no link named")
}
