// Package storage defines the key-value persistence contract used to
// round-trip conversation state, and hosts its backends in subpackages:
//
//   - inmemory: process-local map, for tests and ephemeral sessions
//   - filestore: one JSON file per key in a directory
//   - pgstore: PostgreSQL table via pgx
//   - redisstore: Redis strings via go-redis
//   - sqlitestore: SQLite table via the pure-Go modernc driver
package storage

import "context"

// Store loads and saves opaque values by key.
//
// Load returns (nil, nil) when the key has never been saved; callers treat
// that as a first run. Save replaces any previous value.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}
