// File: internal/infra/db/postgres/postgres_config_repo.go
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/ports/repository"
)

var _ repository.ConfigRepository = (*configRepo)(nil)

// configRepo stores opaque configuration blobs under deterministic keys,
// among them the routing dictionaries and default connector lists.
type configRepo struct{ pool *pgxpool.Pool }

func NewConfigRepo(pool *pgxpool.Pool) *configRepo {
	return &configRepo{pool: pool}
}

func (r *configRepo) Find(ctx context.Context, key string) (string, error) {
	const q = `SELECT value FROM configs WHERE key=$1;`
	var value string
	if err := r.pool.QueryRow(ctx, q, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", domain.ErrReadDatabaseRow
	}
	return value, nil
}

func (r *configRepo) Insert(ctx context.Context, key, value string) error {
	const q = `INSERT INTO configs (key, value, created_at) VALUES ($1,$2,NOW());`
	_, err := r.pool.Exec(ctx, q, key, value)
	return mapInsertErr(err)
}

func (r *configRepo) Update(ctx context.Context, key, value string) error {
	const q = `UPDATE configs SET value=$2, updated_at=NOW() WHERE key=$1;`
	cmd, err := r.pool.Exec(ctx, q, key, value)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
