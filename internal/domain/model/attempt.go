package model

import "time"

type AttemptStatus string

const (
	AttemptStatusStarted               AttemptStatus = "started"
	AttemptStatusPaymentMethodAwaited  AttemptStatus = "payment_method_awaited"
	AttemptStatusConfirmationAwaited   AttemptStatus = "confirmation_awaited"
	AttemptStatusAuthenticationPending AttemptStatus = "authentication_pending"
	AttemptStatusAuthenticationFailed  AttemptStatus = "authentication_failed"
	AttemptStatusAuthorized            AttemptStatus = "authorized"
	AttemptStatusCharged               AttemptStatus = "charged"
	AttemptStatusPartialCharged        AttemptStatus = "partial_charged"
	AttemptStatusVoided                AttemptStatus = "voided"
	AttemptStatusPending               AttemptStatus = "pending"
	AttemptStatusFailure               AttemptStatus = "failure"
)

// IntentStatusFor maps an attempt outcome onto the owning intent's status.
func (s AttemptStatus) IntentStatusFor() IntentStatus {
	switch s {
	case AttemptStatusPaymentMethodAwaited:
		return IntentStatusRequiresPaymentMethod
	case AttemptStatusConfirmationAwaited:
		return IntentStatusRequiresConfirmation
	case AttemptStatusAuthenticationPending:
		return IntentStatusRequiresCustomerAction
	case AttemptStatusAuthorized:
		return IntentStatusRequiresCapture
	case AttemptStatusCharged:
		return IntentStatusSucceeded
	case AttemptStatusPartialCharged:
		return IntentStatusPartiallyCaptured
	case AttemptStatusVoided:
		return IntentStatusCancelled
	case AttemptStatusAuthenticationFailed, AttemptStatusFailure:
		return IntentStatusFailed
	}
	return IntentStatusProcessing
}

type PaymentMethodType string

const (
	PaymentMethodTypeCard         PaymentMethodType = "card"
	PaymentMethodTypeBankRedirect PaymentMethodType = "bank_redirect"
	PaymentMethodTypeWallet       PaymentMethodType = "wallet"
)

// MandateDetails is the consent snapshot carried on an attempt.
type MandateDetails struct {
	CustomerAcceptance bool
	AcceptedAt         *time.Time
	OnlineIPAddress    string
	OnlineUserAgent    string
}

// Attempt is one execution of an Intent against one connector.
type Attempt struct {
	AttemptID            string
	PaymentID            string // owning Intent
	MerchantID           string
	Connector            string
	MerchantConnectorID  string
	Amount               int64
	Currency             string
	Status               AttemptStatus
	CaptureMethod        CaptureMethod
	AmountToCapture      int64 // 0 means full amount
	SurchargeAmount      int64
	TaxOnSurcharge       int64
	PaymentMethod        PaymentMethodType
	PaymentMethodID      string
	PaymentToken         string
	AuthenticationType   string // "no_three_ds" | "three_ds"
	MandateDetails       *MandateDetails
	ConnectorTransaction string // connector-issued transaction id
	ErrorCode            string
	ErrorMessage         string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TotalSurcharge is the amount added on top of Intent.Amount for this attempt.
func (a *Attempt) TotalSurcharge() int64 {
	return a.SurchargeAmount + a.TaxOnSurcharge
}
