// File: internal/infra/db/postgres/postgres_payment_method_repo.go
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

var _ repository.PaymentMethodRepository = (*paymentMethodRepo)(nil)

type paymentMethodRepo struct{ pool *pgxpool.Pool }

func NewPaymentMethodRepo(pool *pgxpool.Pool) *paymentMethodRepo {
	return &paymentMethodRepo{pool: pool}
}

const paymentMethodColumns = `payment_method_id, merchant_id, customer_id, locker_id, payment_method, saved_to_locker, single_use_token, network_txn_id, mandate_references, metadata, created_at, updated_at`

func (r *paymentMethodRepo) Insert(ctx context.Context, pm *model.PaymentMethod, _ model.StorageScheme) error {
	const q = `
INSERT INTO payment_methods (` + paymentMethodColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`

	refs, err := json.Marshal(pm.MandateReferences)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	meta, err := json.Marshal(pm.Metadata)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	_, err = r.pool.Exec(ctx, q,
		pm.PaymentMethodID, pm.MerchantID, pm.CustomerID, pm.LockerID,
		pm.PaymentMethod, pm.SavedToLocker, pm.SingleUseToken, pm.NetworkTxnID,
		refs, meta, pm.CreatedAt, pm.UpdatedAt)
	return mapInsertErr(err)
}

func (r *paymentMethodRepo) FindByID(ctx context.Context, paymentMethodID string, _ model.StorageScheme) (*model.PaymentMethod, error) {
	const q = `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE payment_method_id=$1;`
	return r.scanOne(r.pool.QueryRow(ctx, q, paymentMethodID))
}

func (r *paymentMethodRepo) FindByLockerID(ctx context.Context, lockerID string, _ model.StorageScheme) (*model.PaymentMethod, error) {
	const q = `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE locker_id=$1 LIMIT 1;`
	return r.scanOne(r.pool.QueryRow(ctx, q, lockerID))
}

func (r *paymentMethodRepo) FindByCustomer(ctx context.Context, merchantID, customerID string, _ model.StorageScheme) ([]*model.PaymentMethod, error) {
	const q = `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE merchant_id=$1 AND customer_id=$2 ORDER BY created_at DESC;`
	rows, err := r.pool.Query(ctx, q, merchantID, customerID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.PaymentMethod
	for rows.Next() {
		pm, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pm)
	}
	return out, nil
}

func (r *paymentMethodRepo) UpdateMetadata(ctx context.Context, paymentMethodID string, metadata map[string]string, _ model.StorageScheme) error {
	const q = `UPDATE payment_methods SET metadata=$2, updated_at=NOW() WHERE payment_method_id=$1;`
	meta, err := json.Marshal(metadata)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	cmd, err := r.pool.Exec(ctx, q, paymentMethodID, meta)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *paymentMethodRepo) UpdateMandateReferences(ctx context.Context, paymentMethodID string, refs model.MandateReferenceMap, _ model.StorageScheme) error {
	const q = `UPDATE payment_methods SET mandate_references=$2, updated_at=NOW() WHERE payment_method_id=$1;`
	b, err := json.Marshal(refs)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	cmd, err := r.pool.Exec(ctx, q, paymentMethodID, b)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *paymentMethodRepo) DeleteByMerchantIDPaymentMethodID(ctx context.Context, merchantID, paymentMethodID string, _ model.StorageScheme) error {
	const q = `DELETE FROM payment_methods WHERE merchant_id=$1 AND payment_method_id=$2;`
	cmd, err := r.pool.Exec(ctx, q, merchantID, paymentMethodID)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *paymentMethodRepo) scanOne(row pgx.Row) (*model.PaymentMethod, error) {
	pm := &model.PaymentMethod{}
	var refs, meta []byte
	err := row.Scan(&pm.PaymentMethodID, &pm.MerchantID, &pm.CustomerID, &pm.LockerID,
		&pm.PaymentMethod, &pm.SavedToLocker, &pm.SingleUseToken, &pm.NetworkTxnID,
		&refs, &meta, &pm.CreatedAt, &pm.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(refs) > 0 && string(refs) != "null" {
		if err := json.Unmarshal(refs, &pm.MandateReferences); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	if len(meta) > 0 && string(meta) != "null" {
		if err := json.Unmarshal(meta, &pm.Metadata); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return pm, nil
}
