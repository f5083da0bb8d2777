// File: internal/infra/db/postgres/postgres_mandate_repo.go
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

var _ repository.MandateRepository = (*mandateRepo)(nil)

type mandateRepo struct{ pool *pgxpool.Pool }

func NewMandateRepo(pool *pgxpool.Pool) *mandateRepo {
	return &mandateRepo{pool: pool}
}

const mandateColumns = `mandate_id, merchant_id, customer_id, payment_method_id, status, network_transaction_id, connector_mandate_ids, created_at, updated_at`

func (r *mandateRepo) Insert(ctx context.Context, mandate *model.Mandate, _ model.StorageScheme) error {
	const q = `
INSERT INTO mandates (` + mandateColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	refs, err := json.Marshal(mandate.ConnectorMandateIDs)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	_, err = r.pool.Exec(ctx, q,
		mandate.MandateID, mandate.MerchantID, mandate.CustomerID,
		mandate.PaymentMethodID, mandate.Status, mandate.NetworkTransactionID,
		refs, mandate.CreatedAt, mandate.UpdatedAt)
	return mapInsertErr(err)
}

func (r *mandateRepo) FindByMerchantIDMandateID(ctx context.Context, merchantID, mandateID string, _ model.StorageScheme) (*model.Mandate, error) {
	const q = `SELECT ` + mandateColumns + ` FROM mandates WHERE merchant_id=$1 AND mandate_id=$2;`

	mandate := &model.Mandate{}
	var refs []byte
	err := r.pool.QueryRow(ctx, q, merchantID, mandateID).Scan(
		&mandate.MandateID, &mandate.MerchantID, &mandate.CustomerID,
		&mandate.PaymentMethodID, &mandate.Status, &mandate.NetworkTransactionID,
		&refs, &mandate.CreatedAt, &mandate.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(refs) > 0 {
		if err := json.Unmarshal(refs, &mandate.ConnectorMandateIDs); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return mandate, nil
}

func (r *mandateRepo) UpdateStatus(ctx context.Context, merchantID, mandateID string, status model.MandateStatus, _ model.StorageScheme) error {
	const q = `UPDATE mandates SET status=$3, updated_at=NOW() WHERE merchant_id=$1 AND mandate_id=$2;`
	cmd, err := r.pool.Exec(ctx, q, merchantID, mandateID, status)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
