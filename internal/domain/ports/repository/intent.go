package repository

import (
	"context"

	"payment-orchestration-core/internal/domain/model"
)

// IntentUpdate is the conditional single-row update applied to an Intent.
// Nil fields are left untouched; the row is keyed by (merchant_id, payment_id)
// so concurrent writers are serialized by the store.
type IntentUpdate struct {
	Amount           *int64
	Currency         *string
	Status           *model.IntentStatus
	SetupFutureUsage *model.FutureUsage
	CustomerID       *string
	ActiveAttemptID  *string
	ShippingAddress  *string
	BillingAddress   *string
	Description      *string
	ReturnURL        *string
	Metadata         map[string]interface{}
}

type IntentRepository interface {
	Insert(ctx context.Context, intent *model.Intent, scheme model.StorageScheme) error
	// FindByPaymentIDMerchantID returns domain.ErrNotFound when no row exists.
	FindByPaymentIDMerchantID(ctx context.Context, paymentID, merchantID string, scheme model.StorageScheme) (*model.Intent, error)
	Update(ctx context.Context, paymentID, merchantID string, update IntentUpdate, scheme model.StorageScheme) (*model.Intent, error)
}
