package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ruteri/barnyard/access"
	"github.com/ruteri/barnyard/cmd/flags"
	"github.com/ruteri/barnyard/cryptoutils"
	"github.com/ruteri/barnyard/interfaces"
	"github.com/ruteri/barnyard/kvstore"
	"github.com/ruteri/barnyard/secrets"
	"github.com/ruteri/barnyard/storage"
	"github.com/urfave/cli/v2"
)

// runtime is everything a command needs after process start: the master key
// and identity are loaded or created once here and passed on explicitly.
type runtime struct {
	log      *slog.Logger
	identity interfaces.Identity
	service  *secrets.Service
}

func bootstrap(cCtx *cli.Context) (*runtime, error) {
	logger := flags.SetupLogger(cCtx)

	key, created, err := cryptoutils.LoadOrCreateMasterKey(cCtx.String(flags.KeyFileFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("could not load master key: %w", err)
	}
	if created {
		logger.Info("Generated new master key", "path", cCtx.String(flags.KeyFileFlag.Name))
	}

	identity, created, err := cryptoutils.LoadOrCreateIdentity(cCtx.String(flags.IdentityFileFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("could not load identity: %w", err)
	}
	if created {
		logger.Info("Generated new identity", "path", cCtx.String(flags.IdentityFileFlag.Name))
	}

	backend, err := snapshotBackend(cCtx, logger)
	if err != nil {
		return nil, err
	}

	gate := access.New()
	for _, raw := range cCtx.StringSlice(flags.GrantFlag.Name) {
		grant, err := access.ParseGrant(raw)
		if err != nil {
			return nil, err
		}
		gate.Grant(grant.Identity, grant.Path)
	}

	service, err := secrets.New(secrets.Config{
		Store:          kvstore.New(logger),
		Gate:           gate,
		Backend:        backend,
		SnapshotName:   cCtx.String(flags.SnapshotNameFlag.Name),
		ResourcePrefix: cCtx.String(flags.DataDirFlag.Name),
		MasterKey:      key,
		Owner:          identity,
		Log:            logger,
	})
	if err != nil {
		return nil, err
	}

	if err := service.Open(context.Background()); err != nil {
		return nil, fmt.Errorf("could not open secret store: %w", err)
	}

	return &runtime{log: logger, identity: identity, service: service}, nil
}

func snapshotBackend(cCtx *cli.Context, logger *slog.Logger) (interfaces.SnapshotBackend, error) {
	locations, err := flags.SnapshotLocations(cCtx)
	if err != nil {
		return nil, err
	}

	factory := storage.NewStorageBackendFactory(logger)
	if len(locations) == 1 {
		return factory.StorageBackendFor(locations[0])
	}
	return factory.CreateMultiBackend(locations)
}
