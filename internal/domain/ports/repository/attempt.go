package repository

import (
	"context"

	"payment-orchestration-core/internal/domain/model"
)

// AttemptUpdate mirrors IntentUpdate for the attempt row, keyed by
// (merchant_id, payment_id, attempt_id).
type AttemptUpdate struct {
	Amount               *int64
	Currency             *string
	Status               *model.AttemptStatus
	Connector            *string
	MerchantConnectorID  *string
	AmountToCapture      *int64
	CaptureMethod        *model.CaptureMethod
	PaymentMethod        *model.PaymentMethodType
	PaymentMethodID      *string
	PaymentToken         *string
	SurchargeAmount      *int64
	TaxOnSurcharge       *int64
	ConnectorTransaction *string
	ErrorCode            *string
	ErrorMessage         *string
}

type AttemptRepository interface {
	Insert(ctx context.Context, attempt *model.Attempt, scheme model.StorageScheme) error
	FindByPaymentIDMerchantIDAttemptID(ctx context.Context, paymentID, merchantID, attemptID string, scheme model.StorageScheme) (*model.Attempt, error)
	Update(ctx context.Context, paymentID, merchantID, attemptID string, update AttemptUpdate, scheme model.StorageScheme) (*model.Attempt, error)
	// FindByConnectorTransactionID backs webhook reference resolution.
	FindByConnectorTransactionID(ctx context.Context, merchantID, connectorTxnID string, scheme model.StorageScheme) (*model.Attempt, error)
}
