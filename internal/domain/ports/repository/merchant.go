package repository

import (
	"context"

	"payment-orchestration-core/internal/domain/model"
)

type MerchantRepository interface {
	FindByMerchantID(ctx context.Context, merchantID string) (*model.MerchantAccount, error)
}

type MerchantConnectorRepository interface {
	// ListByMerchantID returns every connector account for the merchant,
	// including disabled ones; callers filter by profile and disabled flag.
	ListByMerchantID(ctx context.Context, merchantID string) ([]*model.MerchantConnectorAccount, error)
	FindByMerchantIDConnectorName(ctx context.Context, merchantID, profileID, connectorName string) (*model.MerchantConnectorAccount, error)
}
