package interfaces

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// MasterKeySize is the size of the symmetric master key in bytes.
const MasterKeySize = 32

// NonceSize is the size of the per-encryption nonce in bytes.
const NonceSize = 24

// MasterKey is the symmetric key protecting stored values and snapshots.
// It is never logged: String and GoString are redacted.
type MasterKey [MasterKeySize]byte

// NewMasterKey creates a master key from raw bytes with length validation.
func NewMasterKey(source []byte) (MasterKey, error) {
	if len(source) != MasterKeySize {
		return MasterKey{}, fmt.Errorf("%w: master key must be %d bytes, got %d", ErrInvalidKey, MasterKeySize, len(source))
	}

	var key MasterKey
	copy(key[:], source)
	return key, nil
}

// Bytes returns a copy of the raw key material.
func (k MasterKey) Bytes() []byte {
	out := make([]byte, MasterKeySize)
	copy(out, k[:])
	return out
}

// IsZero reports whether the key is unset.
func (k MasterKey) IsZero() bool {
	return k == MasterKey{}
}

// String redacts the key.
func (k MasterKey) String() string {
	return "MasterKey(redacted)"
}

// GoString redacts the key in %#v output.
func (k MasterKey) GoString() string {
	return k.String()
}

// Identity is the textual token identifying a caller to the access gate.
type Identity string

// SecretRecord is one stored ciphertext together with the nonce it was sealed under.
// Records are replaced wholesale on re-encryption, never mutated in place.
type SecretRecord struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Clone returns a deep copy of the record.
func (r SecretRecord) Clone() SecretRecord {
	return SecretRecord{
		Nonce:      bytes.Clone(r.Nonce),
		Ciphertext: bytes.Clone(r.Ciphertext),
	}
}

// Equal compares two records byte for byte.
func (r SecretRecord) Equal(other SecretRecord) bool {
	return bytes.Equal(r.Nonce, other.Nonce) && bytes.Equal(r.Ciphertext, other.Ciphertext)
}

// MinShareSize is the smallest encodable share: one x byte and one y byte.
const MinShareSize = 2

// Share is one fragment of a threshold split. X is the non-zero evaluation
// point and Y holds one byte per byte of the split secret.
type Share struct {
	X byte
	Y []byte
}

// Bytes encodes the share as X followed by Y. The encoding carries no length
// field; decoders must know the secret length or use ParseShareFor.
func (s Share) Bytes() []byte {
	out := make([]byte, 0, 1+len(s.Y))
	out = append(out, s.X)
	return append(out, s.Y...)
}

// String returns the hex encoding of Bytes.
func (s Share) String() string {
	return hex.EncodeToString(s.Bytes())
}

// ParseShare decodes a share from its byte encoding.
func ParseShare(data []byte) (Share, error) {
	if len(data) < MinShareSize {
		return Share{}, fmt.Errorf("%w: share needs at least %d bytes, got %d", ErrReconstruction, MinShareSize, len(data))
	}
	if data[0] == 0 {
		return Share{}, fmt.Errorf("%w: share x-coordinate must be non-zero", ErrReconstruction)
	}

	return Share{X: data[0], Y: bytes.Clone(data[1:])}, nil
}

// ParseShareFor decodes a share that must belong to a secret of secretLen bytes.
func ParseShareFor(data []byte, secretLen int) (Share, error) {
	if len(data) != secretLen+1 {
		return Share{}, fmt.Errorf("%w: expected %d share bytes for a %d-byte secret, got %d", ErrReconstruction, secretLen+1, secretLen, len(data))
	}
	return ParseShare(data)
}

// ParseShareHex decodes a hex-encoded share, ignoring surrounding whitespace
// and an optional 0x prefix.
func ParseShareHex(source string) (Share, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(source), "0x")
	data, err := hex.DecodeString(clean)
	if err != nil {
		return Share{}, fmt.Errorf("%w: invalid hex format: %v", ErrReconstruction, err)
	}
	return ParseShare(data)
}

// AccessGrant allows Identity to read the resource at Path.
type AccessGrant struct {
	Identity Identity `json:"identity"`
	Path     string   `json:"path"`
}

// String renders the grant as identity=path, the format accepted by the CLI.
func (g AccessGrant) String() string {
	return string(g.Identity) + "=" + g.Path
}
