// Package storage provides pluggable backends for the encrypted secrets
// snapshot.
//
// A backend stores opaque bytes under a name. It never sees plaintext: the
// snapshot is sealed under the master key before it reaches Store, and is
// only opened again after Fetch returns.
//
//   - File system storage for local use and tests
//   - S3-compatible object storage
//   - HashiCorp Vault KV v2
//   - IPFS mutable file system (MFS) on a local node
//
// # Storage URI Format
//
// Backends are selected with a URI:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/barnyard/ or file://./secure_data
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=minio.local:9000
//   - vault://[TOKEN@]vault.example.com:8200/secret/barnyard?tls=false
//   - ipfs://127.0.0.1:5001/barnyard?timeout=30s
//
// # Missing Snapshots
//
// Every backend reports a snapshot that was never stored with
// interfaces.ErrSnapshotNotFound. Callers treat that as an empty store.
// Any other error means the backend could not be read.
//
// # Multiple Backends
//
// MultiStorageBackend writes every snapshot to all available backends and
// reads from the first one that has it, so a deployment can keep a local
// copy next to a remote one.
package storage
