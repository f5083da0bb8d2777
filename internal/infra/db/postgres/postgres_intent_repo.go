// File: internal/infra/db/postgres/postgres_intent_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
	"payment-orchestration-core/internal/domain/ports/repository"
)

var _ repository.IntentRepository = (*intentRepo)(nil)

type intentRepo struct{ pool *pgxpool.Pool }

func NewIntentRepo(pool *pgxpool.Pool) *intentRepo {
	return &intentRepo{pool: pool}
}

const intentColumns = `payment_id, merchant_id, profile_id, amount, currency, status, capture_method, setup_future_usage, customer_id, active_attempt_id, shipping_address_id, billing_address_id, description, return_url, metadata, created_at, updated_at`

func (r *intentRepo) Insert(ctx context.Context, intent *model.Intent, _ model.StorageScheme) error {
	const q = `
INSERT INTO payment_intents (` + intentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17);`

	meta, err := json.Marshal(intent.Metadata)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	_, err = r.pool.Exec(ctx, q,
		intent.ID, intent.MerchantID, intent.ProfileID, intent.Amount, intent.Currency,
		intent.Status, intent.CaptureMethod, intent.SetupFutureUsage, intent.CustomerID,
		intent.ActiveAttemptID, intent.ShippingAddressID, intent.BillingAddressID,
		intent.Description, intent.ReturnURL, meta, intent.CreatedAt, intent.UpdatedAt)
	return mapInsertErr(err)
}

func (r *intentRepo) FindByPaymentIDMerchantID(ctx context.Context, paymentID, merchantID string, _ model.StorageScheme) (*model.Intent, error) {
	const q = `SELECT ` + intentColumns + ` FROM payment_intents WHERE payment_id=$1 AND merchant_id=$2;`
	return r.scanOne(r.pool.QueryRow(ctx, q, paymentID, merchantID))
}

func (r *intentRepo) Update(ctx context.Context, paymentID, merchantID string, update repository.IntentUpdate, _ model.StorageScheme) (*model.Intent, error) {
	const q = `
UPDATE payment_intents SET
  amount             = COALESCE($3, amount),
  currency           = COALESCE($4, currency),
  status             = COALESCE($5, status),
  setup_future_usage = COALESCE($6, setup_future_usage),
  customer_id        = COALESCE($7, customer_id),
  active_attempt_id  = COALESCE($8, active_attempt_id),
  shipping_address_id= COALESCE($9, shipping_address_id),
  billing_address_id = COALESCE($10, billing_address_id),
  description        = COALESCE($11, description),
  return_url         = COALESCE($12, return_url),
  metadata           = COALESCE($13, metadata),
  updated_at         = NOW()
WHERE payment_id=$1 AND merchant_id=$2
RETURNING ` + intentColumns + `;`

	var meta []byte
	if update.Metadata != nil {
		b, err := json.Marshal(update.Metadata)
		if err != nil {
			return nil, domain.ErrInvalidArgument
		}
		meta = b
	}
	row := r.pool.QueryRow(ctx, q, paymentID, merchantID,
		update.Amount, update.Currency, update.Status, update.SetupFutureUsage,
		update.CustomerID, update.ActiveAttemptID, update.ShippingAddress,
		update.BillingAddress, update.Description, update.ReturnURL, meta)
	return r.scanOne(row)
}

func (r *intentRepo) scanOne(row pgx.Row) (*model.Intent, error) {
	intent := &model.Intent{}
	var meta []byte
	err := row.Scan(&intent.ID, &intent.MerchantID, &intent.ProfileID, &intent.Amount,
		&intent.Currency, &intent.Status, &intent.CaptureMethod, &intent.SetupFutureUsage,
		&intent.CustomerID, &intent.ActiveAttemptID, &intent.ShippingAddressID,
		&intent.BillingAddressID, &intent.Description, &intent.ReturnURL, &meta,
		&intent.CreatedAt, &intent.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &intent.Metadata); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return intent, nil
}
