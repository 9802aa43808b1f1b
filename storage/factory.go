package storage

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/barnyard/interfaces"
)

// StorageBackendFactory creates snapshot backends from location URIs and
// manages multi-backend configurations for redundant storage.
type StorageBackendFactory struct {
	log *slog.Logger
}

// NewStorageBackendFactory creates a new factory instance.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageBackendFactory{log: logger}
}

// StorageBackendFor creates a snapshot backend from a location URI.
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - vault:// - HashiCorp Vault KV v2
//   - ipfs:// - IPFS mutable file system
func (sf *StorageBackendFactory) StorageBackendFor(location interfaces.StorageBackendLocation) (interfaces.SnapshotBackend, error) {
	switch location.Scheme {
	case interfaces.SchemeFile:
		return sf.createFileBackend(location)
	case interfaces.SchemeS3:
		return sf.createS3Backend(location)
	case interfaces.SchemeVault:
		return sf.createVaultBackend(location)
	case interfaces.SchemeIPFS:
		return sf.createIPFSBackend(location)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme: %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiBackend creates a multi-storage backend from a list of locations.
// Locations that fail to produce a backend are logged and skipped. Returns an
// error if no valid backend could be created.
func (sf *StorageBackendFactory) CreateMultiBackend(locations []interfaces.StorageBackendLocation) (interfaces.SnapshotBackend, error) {
	backends := make([]interfaces.SnapshotBackend, 0, len(locations))

	for _, location := range locations {
		backend, err := sf.StorageBackendFor(location)
		if err != nil {
			sf.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("locationURI", location.String()))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created")
	}

	return NewMultiStorageBackend(backends, sf.log), nil
}

// createFileBackend creates a file system storage backend.
// URI format: file:///absolute/path or file://./relative/path
func (sf *StorageBackendFactory) createFileBackend(location interfaces.StorageBackendLocation) (interfaces.SnapshotBackend, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", location.String()))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}

	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, location.String())
	}

	return NewFileBackend(path, sf.log)
}

// createS3Backend creates an S3 or S3-compatible storage backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=custom.s3.com&path_style=true
func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.SnapshotBackend, error) {
	sf.log.Debug("Creating S3 backend", slog.String("bucket", location.Host))

	accessKey, secretKey, _ := strings.Cut(location.Auth, ":")

	return NewS3Backend(S3Config{
		Bucket:    location.Host,
		Prefix:    strings.TrimPrefix(location.Path, "/"),
		Region:    location.Param("region", ""),
		Endpoint:  location.Param("endpoint", ""),
		AccessKey: accessKey,
		SecretKey: secretKey,
		PathStyle: location.Flag("path_style"),
	}, sf.log)
}

// createVaultBackend creates a Vault KV v2 storage backend.
// URI format: vault://[TOKEN@]host:port/mount/path?tls=false
// The first path segment is the mount, the rest is the path within it.
// TLS is used unless tls=false is given.
func (sf *StorageBackendFactory) createVaultBackend(location interfaces.StorageBackendLocation) (interfaces.SnapshotBackend, error) {
	sf.log.Debug("Creating Vault backend", slog.String("host", location.Host))

	if location.Host == "" {
		return nil, fmt.Errorf("%w: empty Vault host", interfaces.ErrInvalidLocationURI)
	}

	scheme := "https"
	if location.Param("tls", "true") == "false" {
		scheme = "http"
	}

	mount, dataPath, _ := strings.Cut(strings.TrimPrefix(location.Path, "/"), "/")
	token, _, _ := strings.Cut(location.Auth, ":")

	return NewVaultBackend(scheme+"://"+location.Host, mount, dataPath, token, sf.log)
}

// createIPFSBackend creates an IPFS MFS storage backend.
// URI format: ipfs://host:port/prefix?timeout=30s
func (sf *StorageBackendFactory) createIPFSBackend(location interfaces.StorageBackendLocation) (interfaces.SnapshotBackend, error) {
	sf.log.Debug("Creating IPFS backend", slog.String("uri", location.String()))

	host, port, found := strings.Cut(location.Host, ":")
	if !found || port == "" {
		port = "5001"
	}

	timeout := 30 * time.Second
	if raw := location.Param("timeout", ""); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout %q: %v", interfaces.ErrInvalidLocationURI, raw, err)
		}
		timeout = parsed
	}

	return NewIPFSBackend(host, port, location.Path, timeout, sf.log)
}

var _ interfaces.StorageBackendFactory = (*StorageBackendFactory)(nil)
