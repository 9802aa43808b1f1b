package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/barnyard/interfaces"
)

// VaultBackend stores snapshots in a HashiCorp Vault KV v2 secrets engine.
// Each snapshot is one secret at {mount}/data/{path}/{name} with the sealed
// bytes base64-encoded under the "content" key.
type VaultBackend struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a new Vault storage backend using token
// authentication. An empty token falls back to VAULT_TOKEN, which the Vault
// client reads from the environment.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: Path within the mount (e.g. "barnyard")
//   - token: Vault token
func NewVaultBackend(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultBackend, error) {
	if log == nil {
		log = slog.Default()
	}

	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.Trim(mountPath, "/")
	if mountPath == "" {
		mountPath = "secret"
	}
	dataPath = strings.Trim(dataPath, "/")

	return &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://"), mountPath, dataPath),
	}, nil
}

// Fetch reads the snapshot secret called name.
// Returns ErrSnapshotNotFound if no such secret exists.
func (b *VaultBackend) Fetch(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	secretPath := b.secretPath(name)

	secret, err := b.client.Logical().ReadWithContext(ctx, secretPath)
	if err != nil {
		b.log.Error("Failed to read from Vault",
			slog.String("path", secretPath),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil || secret.Data["data"] == nil {
		b.log.Debug("Snapshot not found in Vault", slog.String("path", secretPath))
		return nil, interfaces.ErrSnapshotNotFound
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}

	content, ok := data["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content key not found in Vault data")
	}

	decoded, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("invalid content encoding in Vault data: %w", err)
	}

	b.log.Debug("Fetched snapshot from Vault",
		slog.String("path", secretPath),
		slog.Int("size", len(decoded)),
		slog.Duration("duration", time.Since(start)))

	return decoded, nil
}

// Store writes data as a new version of the snapshot secret called name.
func (b *VaultBackend) Store(ctx context.Context, name string, data []byte) error {
	start := time.Now()
	secretPath := b.secretPath(name)

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"content": base64.StdEncoding.EncodeToString(data),
		},
	}

	if _, err := b.client.Logical().WriteWithContext(ctx, secretPath, secretData); err != nil {
		b.log.Error("Failed to write to Vault",
			slog.String("path", secretPath),
			"err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored snapshot in Vault",
		slog.String("path", secretPath),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Available checks if the Vault backend is accessible.
// It uses the health endpoint to verify that Vault is initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, b.dataPath)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}

// secretPath is the KV v2 API path for name.
func (b *VaultBackend) secretPath(name string) string {
	return path.Join(b.mountPath, "data", b.dataPath, name)
}
