package interfaces

import "errors"

var (
	// ErrIntegrity is returned when authenticated decryption fails, either
	// because the ciphertext was tampered with or the wrong key was used.
	// No plaintext is ever returned alongside it.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrReconstruction is returned when shares cannot be combined: fewer than
	// the threshold, colliding x-coordinates, or mismatched lengths.
	ErrReconstruction = errors.New("secret reconstruction failed")

	// ErrPersistence is returned when the underlying storage cannot be read or
	// written. A missing snapshot is not a persistence error.
	ErrPersistence = errors.New("persistence failure")

	// ErrAccessDenied is returned when an identity has no grant for a resource path.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidKey is returned for key material of the wrong length.
	ErrInvalidKey = errors.New("invalid key")

	// ErrSecretNotFound is returned when no record is stored under a name.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrSnapshotNotFound is returned by snapshot backends when nothing has been persisted yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrBackendUnavailable is returned when a storage backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)
