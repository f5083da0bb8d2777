package repository

import (
	"context"

	"payment-orchestration-core/internal/domain/model"
)

type MandateRepository interface {
	Insert(ctx context.Context, mandate *model.Mandate, scheme model.StorageScheme) error
	FindByMerchantIDMandateID(ctx context.Context, merchantID, mandateID string, scheme model.StorageScheme) (*model.Mandate, error)
	UpdateStatus(ctx context.Context, merchantID, mandateID string, status model.MandateStatus, scheme model.StorageScheme) error
}
