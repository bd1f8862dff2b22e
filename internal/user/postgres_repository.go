package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, created_at`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE name = $1`, name)
}

func (r *PostgresRepository) one(ctx context.Context, query string, arg any) (*User, error) {
	rows, _ := r.pool.Query(ctx, query, arg)
	u, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[User])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// Create inserts u. A clash on either id or name is ErrUserExists.
func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		u.ID, u.Name, u.CreatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserExists
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
