// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the SQL database behind the local key-value store and
manages its schema.

# Drivers

Two drivers are registered:

  - "sqlite" (modernc.org/sqlite, pure Go): the default on-device store.
    The connection is limited to one and opened in WAL mode with a busy
    timeout.
  - "postgres" (github.com/lib/pq): for shared kiosk deployments where
    several workstations use one store.

# Schema

One table holds every key:

	kv (
	    k          TEXT PRIMARY KEY,
	    v          TEXT NOT NULL,
	    updated_at TIMESTAMP NOT NULL
	)

CreateSchema is idempotent (IF NOT EXISTS) and runs on every Open.

# Example

	conn, err := db.Open(ctx, db.DriverSQLite, "/home/me/.config/abri/abri.db")
	if err != nil {
		return err
	}
	store := kvstore.NewSQLStore(conn, db.DriverSQLite)
*/
package db
