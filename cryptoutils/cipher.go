package cryptoutils

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/ruteri/barnyard/interfaces"
	"golang.org/x/crypto/chacha20poly1305"
)

// Overhead is the authentication tag size added to every ciphertext.
const Overhead = chacha20poly1305.Overhead

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", interfaces.ErrInvalidKey, chacha20poly1305.KeySize, len(key))
	}
	return chacha20poly1305.NewX(key)
}

// Encrypt seals plaintext under key with a fresh random nonce.
// The returned ciphertext is len(plaintext)+Overhead bytes long.
func Encrypt(key, plaintext []byte) (nonce, ciphertext []byte, err error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext = aead.Seal(nil, nonce, plaintext, nil)
	return nonce, ciphertext, nil
}

// Decrypt opens ciphertext sealed under key and nonce. Any tampering or a
// wrong key yields interfaces.ErrIntegrity and nil plaintext.
func Decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	if len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: nonce must be %d bytes, got %d", interfaces.ErrIntegrity, chacha20poly1305.NonceSizeX, len(nonce))
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrIntegrity, err)
	}
	return plaintext, nil
}

// Seal encrypts plaintext and returns nonce || ciphertext.
func Seal(key, plaintext []byte) ([]byte, error) {
	nonce, ciphertext, err := Encrypt(key, plaintext)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(nonce)+len(ciphertext))
	out = append(out, nonce...)
	return append(out, ciphertext...), nil
}

// Open splits sealed into nonce and ciphertext and decrypts it.
func Open(key, sealed []byte) ([]byte, error) {
	if len(sealed) < chacha20poly1305.NonceSizeX+Overhead {
		return nil, fmt.Errorf("%w: sealed data too short (%d bytes)", interfaces.ErrIntegrity, len(sealed))
	}
	return Decrypt(key, sealed[:chacha20poly1305.NonceSizeX], sealed[chacha20poly1305.NonceSizeX:])
}

// EncryptRecord encrypts plaintext under the master key into a SecretRecord.
func EncryptRecord(key interfaces.MasterKey, plaintext []byte) (interfaces.SecretRecord, error) {
	nonce, ciphertext, err := Encrypt(key[:], plaintext)
	if err != nil {
		return interfaces.SecretRecord{}, err
	}
	return interfaces.SecretRecord{Nonce: nonce, Ciphertext: ciphertext}, nil
}

// DecryptRecord decrypts a SecretRecord under the master key.
func DecryptRecord(key interfaces.MasterKey, record interfaces.SecretRecord) ([]byte, error) {
	return Decrypt(key[:], record.Nonce, record.Ciphertext)
}

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
