// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package kvstore

import (
	"context"
	"fmt"

	"github.com/danielhkuo/abri/cliparse"
	"github.com/danielhkuo/abri/db"
)

// Store is the persistent string-to-string store shared by every workflow.
//
// Get never fails: a missing key and a read error both report ok=false,
// read errors are logged. Writes are not transactional across keys.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	RemoveMany(ctx context.Context, keys ...string) error
	Close() error
}

// Open returns the store selected by storeType (see cliparse store types).
func Open(ctx context.Context, storeType, url string) (Store, error) {
	switch storeType {
	case cliparse.StoreSQLite:
		conn, err := db.Open(ctx, db.DriverSQLite, url)
		if err != nil {
			return nil, err
		}
		return NewSQLStore(conn, db.DriverSQLite), nil
	case cliparse.StorePostgres:
		conn, err := db.Open(ctx, db.DriverPostgres, url)
		if err != nil {
			return nil, err
		}
		return NewSQLStore(conn, db.DriverPostgres), nil
	case cliparse.StoreBolt:
		return OpenBolt(url)
	case cliparse.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", storeType)
	}
}
