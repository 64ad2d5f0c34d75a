package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leofalp/aichat/core/settings"
	"github.com/leofalp/aichat/providers/storage"
	"github.com/leofalp/aichat/providers/storage/filestore"
	"github.com/leofalp/aichat/providers/storage/inmemory"
	"github.com/leofalp/aichat/providers/storage/pgstore"
	"github.com/leofalp/aichat/providers/storage/redisstore"
	"github.com/leofalp/aichat/providers/storage/sqlitestore"
)

// openStore opens the configured conversation store. The returned close
// function releases its connections and is never nil.
func openStore(ctx context.Context, cfg settings.StorageConfig) (storage.Store, func(), error) {
	noop := func() {}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return inmemory.New(), noop, nil

	case "file":
		store, err := filestore.New(cfg.DSN)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case "sqlite":
		store, err := sqlitestore.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, noop, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Warn("failed to close sqlite store", "error", err.Error())
			}
		}, nil

	case "postgres", "postgresql":
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, noop, fmt.Errorf("error connecting to postgres: %w", err)
		}
		store := pgstore.New(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return store, pool.Close, nil

	case "redis":
		store, client, err := redisstore.Dial(ctx, cfg.DSN)
		if err != nil {
			return nil, noop, err
		}
		return store, func() {
			if err := client.Close(); err != nil {
				slog.Warn("failed to close redis client", "error", err.Error())
			}
		}, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
