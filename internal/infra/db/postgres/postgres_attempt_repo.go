// File: internal/infra/db/postgres/postgres_attempt_repo.go
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

var _ repository.AttemptRepository = (*attemptRepo)(nil)

type attemptRepo struct{ pool *pgxpool.Pool }

func NewAttemptRepo(pool *pgxpool.Pool) *attemptRepo {
	return &attemptRepo{pool: pool}
}

const attemptColumns = `attempt_id, payment_id, merchant_id, connector, merchant_connector_id, amount, currency, status, capture_method, amount_to_capture, surcharge_amount, tax_on_surcharge, payment_method, payment_method_id, payment_token, authentication_type, mandate_details, connector_transaction_id, error_code, error_message, created_at, updated_at`

func (r *attemptRepo) Insert(ctx context.Context, attempt *model.Attempt, _ model.StorageScheme) error {
	const q = `
INSERT INTO payment_attempts (` + attemptColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22);`

	mandate, err := json.Marshal(attempt.MandateDetails)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	_, err = r.pool.Exec(ctx, q,
		attempt.AttemptID, attempt.PaymentID, attempt.MerchantID, attempt.Connector,
		attempt.MerchantConnectorID, attempt.Amount, attempt.Currency, attempt.Status,
		attempt.CaptureMethod, attempt.AmountToCapture, attempt.SurchargeAmount,
		attempt.TaxOnSurcharge, attempt.PaymentMethod, attempt.PaymentMethodID,
		attempt.PaymentToken, attempt.AuthenticationType, mandate,
		attempt.ConnectorTransaction, attempt.ErrorCode, attempt.ErrorMessage,
		attempt.CreatedAt, attempt.UpdatedAt)
	return mapInsertErr(err)
}

func (r *attemptRepo) FindByPaymentIDMerchantIDAttemptID(ctx context.Context, paymentID, merchantID, attemptID string, _ model.StorageScheme) (*model.Attempt, error) {
	const q = `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE payment_id=$1 AND merchant_id=$2 AND attempt_id=$3;`
	return r.scanOne(r.pool.QueryRow(ctx, q, paymentID, merchantID, attemptID))
}

func (r *attemptRepo) FindByConnectorTransactionID(ctx context.Context, merchantID, connectorTxnID string, _ model.StorageScheme) (*model.Attempt, error) {
	const q = `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE merchant_id=$1 AND connector_transaction_id=$2 LIMIT 1;`
	return r.scanOne(r.pool.QueryRow(ctx, q, merchantID, connectorTxnID))
}

func (r *attemptRepo) Update(ctx context.Context, paymentID, merchantID, attemptID string, update repository.AttemptUpdate, _ model.StorageScheme) (*model.Attempt, error) {
	const q = `
UPDATE payment_attempts SET
  amount                  = COALESCE($4, amount),
  currency                = COALESCE($5, currency),
  status                  = COALESCE($6, status),
  connector               = COALESCE($7, connector),
  merchant_connector_id   = COALESCE($8, merchant_connector_id),
  amount_to_capture       = COALESCE($9, amount_to_capture),
  capture_method          = COALESCE($10, capture_method),
  payment_method          = COALESCE($11, payment_method),
  payment_method_id       = COALESCE($12, payment_method_id),
  payment_token           = COALESCE($13, payment_token),
  surcharge_amount        = COALESCE($14, surcharge_amount),
  tax_on_surcharge        = COALESCE($15, tax_on_surcharge),
  connector_transaction_id= COALESCE($16, connector_transaction_id),
  error_code              = COALESCE($17, error_code),
  error_message           = COALESCE($18, error_message),
  updated_at              = NOW()
WHERE payment_id=$1 AND merchant_id=$2 AND attempt_id=$3
RETURNING ` + attemptColumns + `;`

	row := r.pool.QueryRow(ctx, q, paymentID, merchantID, attemptID,
		update.Amount, update.Currency, update.Status, update.Connector,
		update.MerchantConnectorID, update.AmountToCapture, update.CaptureMethod,
		update.PaymentMethod, update.PaymentMethodID, update.PaymentToken,
		update.SurchargeAmount, update.TaxOnSurcharge, update.ConnectorTransaction,
		update.ErrorCode, update.ErrorMessage)
	return r.scanOne(row)
}

func (r *attemptRepo) scanOne(row pgx.Row) (*model.Attempt, error) {
	attempt := &model.Attempt{}
	var mandate []byte
	err := row.Scan(&attempt.AttemptID, &attempt.PaymentID, &attempt.MerchantID,
		&attempt.Connector, &attempt.MerchantConnectorID, &attempt.Amount,
		&attempt.Currency, &attempt.Status, &attempt.CaptureMethod,
		&attempt.AmountToCapture, &attempt.SurchargeAmount, &attempt.TaxOnSurcharge,
		&attempt.PaymentMethod, &attempt.PaymentMethodID, &attempt.PaymentToken,
		&attempt.AuthenticationType, &mandate, &attempt.ConnectorTransaction,
		&attempt.ErrorCode, &attempt.ErrorMessage, &attempt.CreatedAt, &attempt.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(mandate) > 0 && string(mandate) != "null" {
		if err := json.Unmarshal(mandate, &attempt.MandateDetails); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return attempt, nil
}
