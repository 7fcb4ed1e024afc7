package main

import (
	"context"
	"fmt"
	"log/slog"

	agentbbolt "github.com/kolide/hybridenroll/pkg/agent/storage/bbolt"
	agentregistry "github.com/kolide/hybridenroll/pkg/agent/storage/registry"
	"github.com/kolide/hybridenroll/pkg/agent/types"
)

// openFlagStore opens the configured flag backend. The returned func releases
// it and is safe to call when an error was returned.
func openFlagStore(ctx context.Context, slogger *slog.Logger, opts *options) (types.KVStore, func(), error) {
	noop := func() {}

	switch opts.FlagStore {
	case flagStoreRegistry:
		store, err := agentregistry.NewStore(slogger, opts.RegistryPath)
		if err != nil {
			return nil, noop, fmt.Errorf("opening registry flag store: %w", err)
		}
		return store, noop, nil

	case flagStoreBbolt:
		db, err := agentbbolt.OpenDB(opts.RootDirectory)
		if err != nil {
			return nil, noop, fmt.Errorf("opening flag database: %w", err)
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				slogger.Log(ctx, slog.LevelWarn,
					"could not close flag database",
					"err", err,
				)
			}
		}

		store, err := agentbbolt.NewStore(ctx, slogger, db, agentbbolt.FlagsBucket)
		if err != nil {
			closeDB()
			return nil, noop, fmt.Errorf("opening bbolt flag store: %w", err)
		}
		return store, closeDB, nil

	default:
		return nil, noop, fmt.Errorf("unknown flag store %q", opts.FlagStore)
	}
}
