package trip

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL route repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a route with its waypoints.
func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Route, error) {
	var route Route
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, user_id, created_at, updated_at
		FROM routes
		WHERE id = $1
	`, id).Scan(&route.ID, &route.Name, &route.UserID, &route.CreatedAt, &route.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT
			id, sequence, date, time, timezone, duration_minutes,
			location_name, latitude, longitude, elevation
		FROM waypoints
		WHERE route_id = $1
		ORDER BY sequence
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	route.Waypoints = []Waypoint{}
	for rows.Next() {
		var wp Waypoint
		if err := rows.Scan(
			&wp.ID,
			&wp.Sequence,
			&wp.Date,
			&wp.Time,
			&wp.Timezone,
			&wp.DurationMinutes,
			&wp.LocationName,
			&wp.Latitude,
			&wp.Longitude,
			&wp.Elevation,
		); err != nil {
			return nil, err
		}
		route.Waypoints = append(route.Waypoints, wp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &route, nil
}

// Save upserts the route row and replaces its waypoints in one transaction.
func (r *PostgresRepository) Save(ctx context.Context, route *Route) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback error is not critical

	_, err = tx.Exec(ctx, `
		INSERT INTO routes (id, name, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			user_id = EXCLUDED.user_id,
			updated_at = EXCLUDED.updated_at
	`, route.ID, route.Name, route.UserID, route.CreatedAt, route.UpdatedAt)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM waypoints WHERE route_id = $1`, route.ID); err != nil {
		return err
	}

	if len(route.Waypoints) > 0 {
		batch := &pgx.Batch{}
		for _, wp := range route.Waypoints {
			batch.Queue(`
				INSERT INTO waypoints (
					id, route_id, sequence, date, time, timezone, duration_minutes,
					location_name, latitude, longitude, elevation
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			`,
				wp.ID,
				route.ID,
				wp.Sequence,
				wp.Date,
				wp.Time,
				wp.Timezone,
				wp.DurationMinutes,
				wp.LocationName,
				wp.Latitude,
				wp.Longitude,
				wp.Elevation,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

const summaryColumns = `
	r.id, r.name, r.user_id, r.created_at, r.updated_at,
	(SELECT count(*) FROM waypoints w WHERE w.route_id = r.id)
`

// ListByUser returns the user's routes.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return r.querySummaries(ctx, `
		SELECT `+summaryColumns+`
		FROM routes r
		WHERE r.user_id = $1
		ORDER BY r.updated_at DESC, r.name
		LIMIT $2
	`, userID, limit)
}

// Search returns routes whose name contains query.
func (r *PostgresRepository) Search(ctx context.Context, query string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return r.querySummaries(ctx, `
		SELECT `+summaryColumns+`
		FROM routes r
		WHERE r.name ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY r.updated_at DESC, r.name
		LIMIT $2
	`, escapeLike(query), limit)
}

func (r *PostgresRepository) querySummaries(ctx context.Context, query string, args ...any) ([]Summary, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Summary, 0)
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Name, &s.UserID, &s.CreatedAt, &s.UpdatedAt, &s.WaypointCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a route. Waypoints go with it via ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrRouteNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
