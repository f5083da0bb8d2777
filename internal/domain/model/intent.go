package model

import "time"

type IntentStatus string

const (
	IntentStatusRequiresPaymentMethod  IntentStatus = "requires_payment_method"
	IntentStatusRequiresConfirmation   IntentStatus = "requires_confirmation"
	IntentStatusRequiresCustomerAction IntentStatus = "requires_customer_action"
	IntentStatusRequiresCapture        IntentStatus = "requires_capture"
	IntentStatusProcessing             IntentStatus = "processing"
	IntentStatusSucceeded              IntentStatus = "succeeded"
	IntentStatusPartiallyCaptured      IntentStatus = "partially_captured"
	IntentStatusFailed                 IntentStatus = "failed"
	IntentStatusCancelled              IntentStatus = "cancelled"
)

// IsTerminal reports whether no further status transition is possible.
func (s IntentStatus) IsTerminal() bool {
	switch s {
	case IntentStatusSucceeded, IntentStatusPartiallyCaptured, IntentStatusFailed, IntentStatusCancelled:
		return true
	}
	return false
}

type CaptureMethod string

const (
	CaptureMethodAutomatic CaptureMethod = "automatic"
	CaptureMethodManual    CaptureMethod = "manual"
)

type FutureUsage string

const (
	FutureUsageOnSession  FutureUsage = "on_session"
	FutureUsageOffSession FutureUsage = "off_session"
)

type TransactionType string

const (
	TransactionTypePayment TransactionType = "payment"
	TransactionTypePayout  TransactionType = "payout"
)

// StorageScheme names the authoritative backing store for a merchant's rows.
// Concurrent updates to the same row are serialized by that store, not by us.
type StorageScheme string

const (
	StorageSchemePostgresOnly StorageScheme = "postgres_only"
	StorageSchemeRedisKV      StorageScheme = "redis_kv"
)

// Intent is the merchant's logical request for a charge; it may span
// multiple Attempts but exactly one Attempt is active at a time.
type Intent struct {
	ID                string
	MerchantID        string
	ProfileID         string
	Amount            int64  // minor units
	Currency          string // ISO 4217
	Status            IntentStatus
	CaptureMethod     CaptureMethod
	SetupFutureUsage  FutureUsage // empty means on-session single charge
	CustomerID        string
	ActiveAttemptID   string
	ShippingAddressID string
	BillingAddressID  string
	Description       string
	ReturnURL         string
	Metadata          map[string]interface{}
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AmountMutable reports whether the intent amount may still change.
// Once the active attempt reaches a capture-eligible or terminal status the
// amount is frozen; only an update strictly before confirmation may touch it.
func (i *Intent) AmountMutable() bool {
	switch i.Status {
	case IntentStatusRequiresPaymentMethod, IntentStatusRequiresConfirmation:
		return true
	}
	return false
}
