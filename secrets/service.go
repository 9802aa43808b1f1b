// Package secrets ties the cipher, the key-value store, the access gate and
// a snapshot backend into the operations exposed by the CLI and the HTTP API.
//
// Store encrypts a value under the master key, records it, grants the caller
// read access and persists the sealed snapshot. Load checks the grant before
// touching the store, then decrypts. The store itself never checks access;
// the gate is enforced here, at the service boundary.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/ruteri/barnyard/access"
	"github.com/ruteri/barnyard/cryptoutils"
	"github.com/ruteri/barnyard/interfaces"
	"github.com/ruteri/barnyard/kvstore"
	"github.com/ruteri/barnyard/metrics"
)

const (
	// DefaultSnapshotName is the object name the snapshot is stored under.
	DefaultSnapshotName = "secrets.snapshot"
	// DefaultResourcePrefix prefixes secret names to form resource paths.
	DefaultResourcePrefix = "secure_data"
	// DefaultSecretName is used by the CLI when no name is given.
	DefaultSecretName = "my_secret_document.txt"
)

// ErrInvalidName is returned for names that are empty or contain a path separator.
var ErrInvalidName = errors.New("invalid secret name")

// Config wires a Service to its collaborators.
type Config struct {
	Store   *kvstore.KVStore
	Gate    *access.Gate
	Backend interfaces.SnapshotBackend

	SnapshotName   string
	ResourcePrefix string
	MasterKey      interfaces.MasterKey

	// Owner, when set, is granted every secret found in the snapshot on Open.
	Owner interfaces.Identity

	Log *slog.Logger
}

// Service implements store, load and list on top of an encrypted snapshot.
type Service struct {
	store   *kvstore.KVStore
	gate    *access.Gate
	backend interfaces.SnapshotBackend

	snapshotName   string
	resourcePrefix string
	key            interfaces.MasterKey
	owner          interfaces.Identity

	// persistMu serializes Set+save so snapshots land in mutation order.
	persistMu sync.Mutex

	log *slog.Logger
}

// New validates cfg and creates a Service. A nil Store or Gate is replaced
// with an empty one.
func New(cfg Config) (*Service, error) {
	if cfg.Backend == nil {
		return nil, errors.New("snapshot backend is required")
	}
	if cfg.MasterKey.IsZero() {
		return nil, fmt.Errorf("%w: master key is not set", interfaces.ErrInvalidKey)
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	store := cfg.Store
	if store == nil {
		store = kvstore.New(log)
	}
	gate := cfg.Gate
	if gate == nil {
		gate = access.New()
	}
	snapshotName := cfg.SnapshotName
	if snapshotName == "" {
		snapshotName = DefaultSnapshotName
	}
	prefix := strings.TrimSuffix(cfg.ResourcePrefix, "/")
	if prefix == "" {
		prefix = DefaultResourcePrefix
	}

	return &Service{
		store:          store,
		gate:           gate,
		backend:        cfg.Backend,
		snapshotName:   snapshotName,
		resourcePrefix: prefix,
		key:            cfg.MasterKey,
		owner:          cfg.Owner,
		log:            log,
	}, nil
}

// Open loads the snapshot from the backend. A missing snapshot leaves the
// store empty; a snapshot that fails to decrypt is an error.
func (s *Service) Open(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.SnapshotDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	}()

	if err := s.store.LoadFrom(ctx, s.backend, s.snapshotName, s.key); err != nil {
		return err
	}

	names := s.store.Names()
	if s.owner != "" {
		for _, name := range names {
			s.gate.Grant(s.owner, s.ResourcePath(name))
		}
	}
	metrics.StoredSecrets.Set(float64(len(names)))

	s.log.Info("Opened secret store",
		slog.String("backend", s.backend.Name()),
		slog.Int("entries", len(names)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// ResourcePath returns the path access grants refer to for name.
func (s *Service) ResourcePath(name string) string {
	return path.Join(s.resourcePrefix, name)
}

// Store encrypts plaintext under the master key, stores it as name, grants
// identity read access and persists the snapshot. It returns the resource
// path of the stored secret.
//
// If persisting fails the record stays in memory and the error wraps
// interfaces.ErrPersistence.
func (s *Service) Store(ctx context.Context, identity interfaces.Identity, name string, plaintext []byte) (string, error) {
	if err := validateName(name); err != nil {
		metrics.SecretOperations.WithLabelValues("store", metrics.ResultError).Inc()
		return "", err
	}

	record, err := cryptoutils.EncryptRecord(s.key, plaintext)
	if err != nil {
		metrics.SecretOperations.WithLabelValues("store", metrics.ResultError).Inc()
		return "", fmt.Errorf("failed to encrypt secret: %w", err)
	}

	resourcePath := s.ResourcePath(name)

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := s.store.Set(name, record.Nonce, record.Ciphertext); err != nil {
		metrics.SecretOperations.WithLabelValues("store", metrics.ResultError).Inc()
		return "", err
	}
	if identity != "" {
		s.gate.Grant(identity, resourcePath)
	}
	metrics.StoredSecrets.Set(float64(s.store.Len()))

	if err := s.persist(ctx); err != nil {
		metrics.SecretOperations.WithLabelValues("store", metrics.ResultError).Inc()
		return resourcePath, err
	}

	metrics.SecretOperations.WithLabelValues("store", metrics.ResultOK).Inc()
	s.log.Info("Stored secret",
		slog.String("name", name),
		slog.String("resource", resourcePath),
		slog.Int("size", len(plaintext)))
	return resourcePath, nil
}

// Load returns the plaintext of name if identity was granted its resource
// path. The grant is checked before the store is read, so a denied caller
// cannot tell whether name exists.
func (s *Service) Load(ctx context.Context, identity interfaces.Identity, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		metrics.SecretOperations.WithLabelValues("load", metrics.ResultError).Inc()
		return nil, err
	}

	resourcePath := s.ResourcePath(name)
	if err := s.gate.Require(identity, resourcePath); err != nil {
		metrics.SecretOperations.WithLabelValues("load", metrics.ResultDenied).Inc()
		s.log.Warn("Access denied",
			slog.String("identity", string(identity)),
			slog.String("resource", resourcePath))
		return nil, err
	}

	record, ok := s.store.Get(name)
	if !ok {
		metrics.SecretOperations.WithLabelValues("load", metrics.ResultError).Inc()
		return nil, fmt.Errorf("%w: %s", interfaces.ErrSecretNotFound, name)
	}

	plaintext, err := cryptoutils.DecryptRecord(s.key, record)
	if err != nil {
		metrics.SecretOperations.WithLabelValues("load", metrics.ResultError).Inc()
		s.log.Error("Failed to decrypt secret", slog.String("name", name), "err", err)
		return nil, fmt.Errorf("secret %s: %w", name, err)
	}

	metrics.SecretOperations.WithLabelValues("load", metrics.ResultOK).Inc()
	return plaintext, nil
}

// Names lists stored secret names in sorted order.
func (s *Service) Names() []string {
	return s.store.Names()
}

// Grant allows identity to read name.
func (s *Service) Grant(identity interfaces.Identity, name string) string {
	resourcePath := s.ResourcePath(name)
	s.gate.Grant(identity, resourcePath)
	return resourcePath
}

// Save persists the current snapshot.
func (s *Service) Save(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.persist(ctx)
}

func (s *Service) persist(ctx context.Context) error {
	start := time.Now()
	err := s.store.SaveTo(ctx, s.backend, s.snapshotName, s.key)
	metrics.SnapshotDuration.WithLabelValues("save").Observe(time.Since(start).Seconds())
	return err
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
