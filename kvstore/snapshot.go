package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/ruteri/barnyard/common"
	"github.com/ruteri/barnyard/cryptoutils"
	"github.com/ruteri/barnyard/interfaces"
)

// persistedSecrets is the plaintext form of a snapshot.
type persistedSecrets struct {
	Secrets map[string]interfaces.SecretRecord `json:"secrets"`
}

// encodeSnapshot serializes secrets to canonical JSON. encoding/json writes
// map keys in sorted order, so equal maps encode to equal bytes.
func encodeSnapshot(secrets map[string]interfaces.SecretRecord) ([]byte, error) {
	if secrets == nil {
		secrets = map[string]interfaces.SecretRecord{}
	}
	return json.Marshal(persistedSecrets{Secrets: secrets})
}

func decodeSnapshot(data []byte) (map[string]interfaces.SecretRecord, error) {
	var persisted persistedSecrets
	if err := json.Unmarshal(data, &persisted); err != nil {
		return nil, err
	}
	if persisted.Secrets == nil {
		persisted.Secrets = make(map[string]interfaces.SecretRecord)
	}
	return persisted.Secrets, nil
}

// sealSnapshot copies the map under the read lock and returns the sealed
// snapshot bytes: nonce || ciphertext.
func (s *KVStore) sealSnapshot(key interfaces.MasterKey) ([]byte, int, error) {
	secrets := s.snapshot()

	plaintext, err := encodeSnapshot(secrets)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	defer cryptoutils.Wipe(plaintext)

	sealed, err := cryptoutils.Seal(key[:], plaintext)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encrypt snapshot: %w", err)
	}
	return sealed, len(secrets), nil
}

// openSnapshot decrypts and decodes sealed snapshot bytes. Nothing is
// applied to the store until the whole snapshot has been decoded.
func openSnapshot(sealed []byte, key interfaces.MasterKey) (map[string]interfaces.SecretRecord, error) {
	plaintext, err := cryptoutils.Open(key[:], sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt snapshot: %w", err)
	}
	defer cryptoutils.Wipe(plaintext)

	secrets, err := decodeSnapshot(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed snapshot: %v", interfaces.ErrPersistence, err)
	}
	return secrets, nil
}

// SaveEncrypted writes the whole map, sealed under key, to path. Any prior
// file is replaced; the new contents become visible in one rename.
func (s *KVStore) SaveEncrypted(path string, key interfaces.MasterKey) error {
	start := time.Now()

	sealed, count, err := s.sealSnapshot(key)
	if err != nil {
		return err
	}

	if err := common.WriteFileAtomic(path, sealed); err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrPersistence, err)
	}

	s.log.Debug("Saved encrypted snapshot",
		slog.String("path", path),
		slog.Int("entries", count),
		slog.Int("size", len(sealed)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// LoadEncrypted replaces the map with the snapshot at path. A missing file
// leaves the store unchanged; a snapshot that fails to decrypt is an error
// and never yields an empty store.
func (s *KVStore) LoadEncrypted(path string, key interfaces.MasterKey) error {
	start := time.Now()

	sealed, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Debug("No snapshot to load", slog.String("path", path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read snapshot: %w", interfaces.ErrPersistence, err)
	}

	secrets, err := openSnapshot(sealed, key)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", path, err)
	}
	s.replace(secrets)

	s.log.Debug("Loaded encrypted snapshot",
		slog.String("path", path),
		slog.Int("entries", len(secrets)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// SaveTo seals the map and stores it in backend under snapshotName.
func (s *KVStore) SaveTo(ctx context.Context, backend interfaces.SnapshotBackend, snapshotName string, key interfaces.MasterKey) error {
	start := time.Now()

	sealed, count, err := s.sealSnapshot(key)
	if err != nil {
		return err
	}

	if err := backend.Store(ctx, snapshotName, sealed); err != nil {
		return fmt.Errorf("%w: store snapshot in %s: %w", interfaces.ErrPersistence, backend.Name(), err)
	}

	s.log.Debug("Saved encrypted snapshot",
		slog.String("backend", backend.Name()),
		slog.String("snapshot", snapshotName),
		slog.Int("entries", count),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// LoadFrom replaces the map with the snapshot stored in backend. A backend
// reporting ErrSnapshotNotFound leaves the store unchanged.
func (s *KVStore) LoadFrom(ctx context.Context, backend interfaces.SnapshotBackend, snapshotName string, key interfaces.MasterKey) error {
	start := time.Now()

	sealed, err := backend.Fetch(ctx, snapshotName)
	if errors.Is(err, interfaces.ErrSnapshotNotFound) {
		s.log.Debug("No snapshot to load",
			slog.String("backend", backend.Name()),
			slog.String("snapshot", snapshotName))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: fetch snapshot from %s: %w", interfaces.ErrPersistence, backend.Name(), err)
	}

	secrets, err := openSnapshot(sealed, key)
	if err != nil {
		return fmt.Errorf("snapshot %s from %s: %w", snapshotName, backend.Name(), err)
	}
	s.replace(secrets)

	s.log.Debug("Loaded encrypted snapshot",
		slog.String("backend", backend.Name()),
		slog.String("snapshot", snapshotName),
		slog.Int("entries", len(secrets)),
		slog.Duration("duration", time.Since(start)))
	return nil
}
