package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/barnyard/interfaces"
)

// MultiStorageBackend implements interfaces.SnapshotBackend using multiple backends with fallback.
type MultiStorageBackend struct {
	backends []interfaces.SnapshotBackend
	log      *slog.Logger
}

// NewMultiStorageBackend creates a new multi-storage backend with fallback.
func NewMultiStorageBackend(backends []interfaces.SnapshotBackend, logger *slog.Logger) *MultiStorageBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStorageBackend{
		backends: backends,
		log:      logger,
	}
}

// Fetch returns the snapshot from the first available backend that has it.
// The snapshot is reported missing only when every configured backend was
// reachable and reported it missing. An unreachable backend may hold the
// only copy, so it yields ErrBackendUnavailable instead.
func (m *MultiStorageBackend) Fetch(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	var errs []error
	notFound := 0

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("snapshot", name))
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), interfaces.ErrBackendUnavailable))
			continue
		}

		data, err := backend.Fetch(ctx, name)
		if err == nil {
			m.log.Debug("Fetched snapshot",
				slog.String("backend_name", backend.Name()),
				slog.String("snapshot", name),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		if errors.Is(err, interfaces.ErrSnapshotNotFound) {
			notFound++
			continue
		}

		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to fetch from backend",
			slog.String("backend_name", backend.Name()),
			slog.String("snapshot", name),
			"err", err)
	}

	if len(errs) == 0 && notFound > 0 {
		return nil, interfaces.ErrSnapshotNotFound
	}

	m.log.Error("Failed to fetch snapshot",
		slog.String("snapshot", name),
		slog.Int("failed_backends", len(errs)),
		slog.Int("missing_in", notFound),
		slog.Duration("duration", time.Since(start)))

	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no backend configured", interfaces.ErrBackendUnavailable)
	}
	return nil, fmt.Errorf("could not fetch %s: %w", name, errors.Join(errs...))
}

// Store saves data to all available backends. It succeeds if at least one
// backend stored the snapshot.
func (m *MultiStorageBackend) Store(ctx context.Context, name string, data []byte) error {
	start := time.Now()
	stored := 0
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		if err := backend.Store(ctx, name, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Warn("Failed to store to backend",
				slog.String("backend_name", backend.Name()),
				slog.String("snapshot", name),
				"err", err)
			continue
		}
		stored++
	}

	if stored == 0 {
		m.log.Error("All backends failed to store snapshot",
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		if len(errs) == 0 {
			return fmt.Errorf("%w: no backend available", interfaces.ErrBackendUnavailable)
		}
		return fmt.Errorf("all backends failed to store snapshot: %w", errors.Join(errs...))
	}

	m.log.Debug("Stored snapshot",
		slog.String("snapshot", name),
		slog.Int("backends", stored),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Available checks if any backend is available.
func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend.
func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

// LocationURI returns the combined location of all backends.
func (m *MultiStorageBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
