// Package interfaces defines the core types and interfaces of the barnyard
// secret store, separating contracts from their implementations.
//
// # Data Types
//
//   - MasterKey: 32 bytes of symmetric key material protecting every value and
//     the at-rest snapshot
//   - SecretRecord: one nonce and ciphertext pair as produced by a single
//     encryption call
//   - Share: one fragment of a threshold split of a secret (x-coordinate plus
//     one y byte per secret byte)
//   - AccessGrant: an (identity, resource path) pair allowed to read
//
// # Component Interfaces
//
// SecretStore: concurrent name to SecretRecord map with encrypted snapshots.
//
// KeySplitter: threshold splitting and reconstruction of key material.
//
// AccessGate: additive allow-list consulted before decrypting on behalf of an
// identity.
//
// SnapshotBackend: named blob storage for encrypted snapshots (file, S3,
// Vault, IPFS).
//
// # Errors
//
// Callers branch on the sentinel errors with errors.Is:
//
//   - ErrIntegrity: authentication tag verification failed
//   - ErrReconstruction: insufficient, duplicate or malformed shares
//   - ErrPersistence: storage read or write failure
//   - ErrAccessDenied: gate check failed
package interfaces
