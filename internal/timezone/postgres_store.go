package timezone

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists zone lookups in the zone_cache table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL zone store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get returns the stored zone for key.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var zone string
	err := s.pool.QueryRow(ctx, `SELECT zone FROM zone_cache WHERE cache_key = $1`, key).Scan(&zone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query zone cache: %w", err)
	}
	return zone, true, nil
}

// Put upserts the zone for key.
func (s *PostgresStore) Put(ctx context.Context, key, zone string) error {
	query := `
		INSERT INTO zone_cache (cache_key, zone, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (cache_key) DO UPDATE
		SET zone = EXCLUDED.zone,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.pool.Exec(ctx, query, key, zone); err != nil {
		return fmt.Errorf("upsert zone cache: %w", err)
	}
	return nil
}
