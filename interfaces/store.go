package interfaces

import "context"

// SecretStore keeps already-encrypted records by name and persists the whole
// map as one encrypted snapshot.
type SecretStore interface {
	// Set stores or replaces the record for name.
	Set(name string, nonce, ciphertext []byte) error

	// Get returns a copy of the record for name, or false if absent.
	Get(name string) (SecretRecord, bool)

	// Names lists stored names in sorted order.
	Names() []string

	// SaveTo encrypts the full map under key and stores it in backend as snapshotName.
	SaveTo(ctx context.Context, backend SnapshotBackend, snapshotName string, key MasterKey) error

	// LoadFrom replaces the map with the snapshot stored in backend.
	// A missing snapshot leaves the store unchanged.
	LoadFrom(ctx context.Context, backend SnapshotBackend, snapshotName string, key MasterKey) error
}

// KeySplitter splits and reconstructs secrets with a threshold scheme.
type KeySplitter interface {
	// Split produces the configured number of shares for secret.
	Split(secret []byte) ([]Share, error)

	// Reconstruct recovers the secret from at least threshold shares.
	Reconstruct(shares []Share) ([]byte, error)

	// Threshold returns the number of shares needed to reconstruct.
	Threshold() int

	// TotalShares returns the number of shares Split produces.
	TotalShares() int
}

// AccessGate is an additive allow-list of (identity, path) pairs.
type AccessGate interface {
	// Grant idempotently allows identity to read path.
	Grant(identity Identity, path string)

	// Check reports whether identity may read path. Matching is exact.
	Check(identity Identity, path string) bool
}
