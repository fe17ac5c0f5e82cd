// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package kvstore provides the persistent key-value store used to cache the
authentication token, submitted request identifiers and staged payloads.

# Contract

	Get(ctx, key) (string, bool)
	Set(ctx, key, value) error
	Remove(ctx, key) error
	RemoveMany(ctx, keys...) error

Get never returns an error. A read failure is logged and reported as a
missing key. Operations on different keys are independent: a crash between
two Set calls can leave related keys inconsistent.

# Implementations

  - SQLStore: kv table in SQLite (modernc.org/sqlite) or PostgreSQL
  - BoltStore: one bucket in a BoltDB file
  - MemoryStore: a map, for tests and throwaway sessions

Open picks one from the configured store type:

	store, err := kvstore.Open(ctx, cfg.StoreType, cfg.StoreURL)
*/
package kvstore
