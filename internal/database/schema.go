package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema creates every table the repositories use. Each statement is
// idempotent so Migrate can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS routes (
		id         UUID PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		user_id    UUID NOT NULL REFERENCES users (id),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS routes_user_id_idx ON routes (user_id, updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS waypoints (
		id               UUID PRIMARY KEY,
		route_id         UUID NOT NULL REFERENCES routes (id) ON DELETE CASCADE,
		sequence         INTEGER NOT NULL,
		date             TEXT NOT NULL DEFAULT '',
		time             TEXT NOT NULL DEFAULT '',
		timezone         TEXT NOT NULL DEFAULT '',
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		location_name    TEXT NOT NULL DEFAULT '',
		latitude         DOUBLE PRECISION NOT NULL,
		longitude        DOUBLE PRECISION NOT NULL,
		elevation        DOUBLE PRECISION,
		UNIQUE (route_id, sequence)
	)`,
	`CREATE TABLE IF NOT EXISTS zone_cache (
		cache_key  TEXT PRIMARY KEY,
		zone       TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the schema in a single transaction.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}
	return tx.Commit(ctx)
}
