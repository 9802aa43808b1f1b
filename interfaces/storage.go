package interfaces

import (
	"context"
	"fmt"
	"net/url"
)

// BackendScheme names a kind of snapshot backend in a location URI.
type BackendScheme string

const (
	SchemeFile  BackendScheme = "file"
	SchemeS3    BackendScheme = "s3"
	SchemeVault BackendScheme = "vault"
	SchemeIPFS  BackendScheme = "ipfs"
)

// StorageBackendLocation is a parsed snapshot location such as
// s3://key:secret@bucket/prefix?region=eu-west-1.
type StorageBackendLocation struct {
	Raw    string
	Scheme BackendScheme
	Host   string
	Path   string
	Query  url.Values
	// Auth is the userinfo part, "user" or "user:password".
	Auth string
}

// NewStorageBackendLocation parses uri and rejects schemes without a backend.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := BackendScheme(parsed.Scheme)
	switch scheme {
	case SchemeFile, SchemeS3, SchemeVault, SchemeIPFS:
	default:
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported storage scheme: %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	loc := StorageBackendLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
	}
	if parsed.User != nil {
		loc.Auth = parsed.User.String()
	}
	return loc, nil
}

// ParseStorageBackendLocations parses every uri, failing on the first bad one.
func ParseStorageBackendLocations(uris []string) ([]StorageBackendLocation, error) {
	locations := make([]StorageBackendLocation, 0, len(uris))
	for _, uri := range uris {
		loc, err := NewStorageBackendLocation(uri)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

// Param returns the query parameter name, or fallback when it is absent.
func (loc StorageBackendLocation) Param(name, fallback string) string {
	if v := loc.Query.Get(name); v != "" {
		return v
	}
	return fallback
}

// Flag reports whether the query parameter name is set to a true value.
func (loc StorageBackendLocation) Flag(name string) bool {
	switch loc.Query.Get(name) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// SnapshotBackend stores opaque encrypted snapshots under a name.
type SnapshotBackend interface {
	// Fetch retrieves the snapshot stored under name.
	// Returns ErrSnapshotNotFound if nothing was stored yet.
	Fetch(ctx context.Context, name string) ([]byte, error)

	// Store saves data under name, overwriting any prior snapshot.
	Store(ctx context.Context, name string, data []byte) error

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// StorageBackendFactory creates storage backends.
type StorageBackendFactory interface {
	// StorageBackendFor creates backend from URI.
	// Supports file://, s3://, ipfs://, vault://
	StorageBackendFor(location StorageBackendLocation) (SnapshotBackend, error)

	// CreateMultiBackend creates aggregated storage backend.
	CreateMultiBackend(locations []StorageBackendLocation) (SnapshotBackend, error)
}
