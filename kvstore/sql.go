// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/danielhkuo/abri/db"
)

var placeholder = regexp.MustCompile(`\$\d+`)

// SQLStore keeps keys in the kv table of a SQLite or PostgreSQL database.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(conn *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: conn, driver: driver}
}

// rebind turns $N placeholders into ? for SQLite. Queries must use each
// placeholder once, in order.
func (s *SQLStore) rebind(query string) string {
	if s.driver == db.DriverSQLite {
		return placeholder.ReplaceAllString(query, "?")
	}
	return query
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool) {
	var v string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT v FROM kv WHERE k = $1`), key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		slog.Error("failed to read key", "key", key, "error", err)
		return "", false
	}
	return v, true
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO kv (k, v, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, updated_at = EXCLUDED.updated_at
	`), key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM kv WHERE k = $1`), key)
	if err != nil {
		return fmt.Errorf("failed to remove key %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) RemoveMany(ctx context.Context, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM kv WHERE k = $1`), key); err != nil {
			return fmt.Errorf("failed to remove key %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit removal: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
