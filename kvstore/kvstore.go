// Package kvstore implements the in-memory secret map and its encrypted
// at-rest snapshot.
//
// The store only ever holds already-encrypted records: callers encrypt a
// value before Set and decrypt it after Get. Snapshots add a second,
// independent layer: the whole map is serialized to canonical JSON and
// sealed again under the master key.
//
// # Locking
//
// A single reader/writer lock guards the whole map. Get, Names and the copy
// taken by a save run under the read lock; Set, Delete and the final map
// replacement of a load take the write lock. No disk or network I/O happens
// while the lock is held.
//
// # Snapshot Layout
//
//	[nonce (24 bytes)][XChaCha20-Poly1305 ciphertext of the JSON map]
//
// There is no header or length prefix. The JSON plaintext is
//
//	{"secrets":{"<name>":{"nonce":"<base64>","ciphertext":"<base64>"}}}
//
// with names in sorted order.
package kvstore

import (
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/ruteri/barnyard/interfaces"
)

// ErrEmptyName is returned by Set for an empty record name.
var ErrEmptyName = errors.New("secret name must not be empty")

// KVStore is a concurrent map of name to SecretRecord.
type KVStore struct {
	mu      sync.RWMutex
	secrets map[string]interfaces.SecretRecord
	log     *slog.Logger
}

// New creates an empty store.
func New(log *slog.Logger) *KVStore {
	if log == nil {
		log = slog.Default()
	}

	return &KVStore{
		secrets: make(map[string]interfaces.SecretRecord),
		log:     log,
	}
}

// Set stores or replaces the record for name. The store keeps its own copy
// of nonce and ciphertext.
func (s *KVStore) Set(name string, nonce, ciphertext []byte) error {
	if name == "" {
		return ErrEmptyName
	}

	record := interfaces.SecretRecord{Nonce: nonce, Ciphertext: ciphertext}.Clone()

	s.mu.Lock()
	s.secrets[name] = record
	s.mu.Unlock()

	return nil
}

// Get returns a copy of the record stored under name.
func (s *KVStore) Get(name string) (interfaces.SecretRecord, bool) {
	s.mu.RLock()
	record, ok := s.secrets[name]
	s.mu.RUnlock()

	if !ok {
		return interfaces.SecretRecord{}, false
	}
	return record.Clone(), true
}

// Delete removes name and reports whether it was present.
func (s *KVStore) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.secrets[name]
	delete(s.secrets, name)
	return ok
}

// Names returns all stored names in sorted order.
func (s *KVStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Sorted(maps.Keys(s.secrets))
}

// Len returns the number of stored records.
func (s *KVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.secrets)
}

// snapshot copies the map under the read lock. Records are immutable once
// stored, so a shallow copy of the map is a consistent view.
func (s *KVStore) snapshot() map[string]interfaces.SecretRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.secrets)
}

// replace swaps in a fully decoded map under the write lock.
func (s *KVStore) replace(secrets map[string]interfaces.SecretRecord) {
	if secrets == nil {
		secrets = make(map[string]interfaces.SecretRecord)
	}

	s.mu.Lock()
	s.secrets = secrets
	s.mu.Unlock()
}

var _ interfaces.SecretStore = (*KVStore)(nil)
