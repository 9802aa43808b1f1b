// Package cryptoutils provides the symmetric cipher and key bootstrap used by
// the barnyard secret store.
//
// Values and snapshots are sealed with XChaCha20-Poly1305:
//
//   - 256-bit key (the process master key)
//   - 24-byte nonce drawn from crypto/rand on every call, never chosen by callers
//   - 16-byte Poly1305 tag appended to the ciphertext, no padding
//
// Any authentication failure (tampered ciphertext, wrong key, wrong nonce)
// surfaces as interfaces.ErrIntegrity and never yields partial plaintext.
//
// # Key Functions
//
// # Encrypt / Decrypt - nonce and ciphertext kept apart, as stored in SecretRecord
//
// # Seal / Open - nonce || ciphertext framing, as written to snapshot files
//
// # LoadOrCreateMasterKey - reads a 32-byte key file or generates one
//
// # LoadOrCreateIdentity - reads a UUID identity file or generates one
//
// # Sealed Format
//
//	[nonce (24 bytes)][ciphertext || tag (len(plaintext) + 16 bytes)]
package cryptoutils
