// File: internal/infra/db/postgres/connection.go
// Package postgres implements every Store port on pgx. Conditional
// single-row updates keyed by (merchant_id, id[, attempt_id]) are how
// concurrent writers get serialized; there is no in-process locking.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"payment-orchestration-core/internal/domain"
)

// Connect opens a pool against the configured URL.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return pgxpool.Connect(ctx, url)
}

const uniqueViolation = "23505"

// mapInsertErr turns a unique violation into the domain sentinel so
// callers can treat duplicate ids uniformly across stores.
func mapInsertErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrAlreadyExists
	}
	return domain.ErrOperationFailed
}
