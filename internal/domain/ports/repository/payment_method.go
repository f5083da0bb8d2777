package repository

import (
	"context"

	"payment-orchestration-core/internal/domain/model"
)

type PaymentMethodRepository interface {
	Insert(ctx context.Context, pm *model.PaymentMethod, scheme model.StorageScheme) error
	FindByID(ctx context.Context, paymentMethodID string, scheme model.StorageScheme) (*model.PaymentMethod, error)
	FindByLockerID(ctx context.Context, lockerID string, scheme model.StorageScheme) (*model.PaymentMethod, error)
	FindByCustomer(ctx context.Context, merchantID, customerID string, scheme model.StorageScheme) ([]*model.PaymentMethod, error)
	UpdateMetadata(ctx context.Context, paymentMethodID string, metadata map[string]string, scheme model.StorageScheme) error
	UpdateMandateReferences(ctx context.Context, paymentMethodID string, refs model.MandateReferenceMap, scheme model.StorageScheme) error
	DeleteByMerchantIDPaymentMethodID(ctx context.Context, merchantID, paymentMethodID string, scheme model.StorageScheme) error
}
