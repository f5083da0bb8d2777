// File: internal/infra/db/postgres/postgres_merchant_repo.go
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

var _ repository.MerchantRepository = (*merchantRepo)(nil)
var _ repository.MerchantConnectorRepository = (*merchantConnectorRepo)(nil)

type merchantRepo struct{ pool *pgxpool.Pool }

func NewMerchantRepo(pool *pgxpool.Pool) *merchantRepo {
	return &merchantRepo{pool: pool}
}

func (r *merchantRepo) FindByMerchantID(ctx context.Context, merchantID string) (*model.MerchantAccount, error) {
	const q = `SELECT merchant_id, storage_scheme, connector_agnostic_mit, default_profile_id, created_at FROM merchant_accounts WHERE merchant_id=$1;`
	merchant := &model.MerchantAccount{}
	err := r.pool.QueryRow(ctx, q, merchantID).Scan(
		&merchant.MerchantID, &merchant.StorageScheme, &merchant.ConnectorAgnosticMIT,
		&merchant.DefaultProfileID, &merchant.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return merchant, nil
}

type merchantConnectorRepo struct{ pool *pgxpool.Pool }

func NewMerchantConnectorRepo(pool *pgxpool.Pool) *merchantConnectorRepo {
	return &merchantConnectorRepo{pool: pool}
}

const mcaColumns = `merchant_connector_id, merchant_id, profile_id, connector_name, disabled, auth_config, webhook_secret, created_at`

func (r *merchantConnectorRepo) ListByMerchantID(ctx context.Context, merchantID string) ([]*model.MerchantConnectorAccount, error) {
	const q = `SELECT ` + mcaColumns + ` FROM merchant_connector_accounts WHERE merchant_id=$1 ORDER BY created_at;`
	rows, err := r.pool.Query(ctx, q, merchantID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.MerchantConnectorAccount
	for rows.Next() {
		mca, err := scanMCA(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, mca)
	}
	return out, nil
}

func (r *merchantConnectorRepo) FindByMerchantIDConnectorName(ctx context.Context, merchantID, profileID, connectorName string) (*model.MerchantConnectorAccount, error) {
	const q = `SELECT ` + mcaColumns + ` FROM merchant_connector_accounts WHERE merchant_id=$1 AND profile_id=$2 AND connector_name=$3 LIMIT 1;`
	return scanMCA(r.pool.QueryRow(ctx, q, merchantID, profileID, connectorName))
}

func scanMCA(row pgx.Row) (*model.MerchantConnectorAccount, error) {
	mca := &model.MerchantConnectorAccount{}
	var auth []byte
	err := row.Scan(&mca.MerchantConnectorID, &mca.MerchantID, &mca.ProfileID,
		&mca.ConnectorName, &mca.Disabled, &auth, &mca.WebhookSecret, &mca.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(auth) > 0 && string(auth) != "null" {
		if err := json.Unmarshal(auth, &mca.AuthConfig); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return mca, nil
}
