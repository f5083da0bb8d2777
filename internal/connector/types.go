// File: internal/connector/types.go
package connector

import (
	"net/http"

	"payment-orchestration-core/internal/domain/model"
)

// Flow identifies one adapter capability.
type Flow string

const (
	FlowAuthorize         Flow = "authorize"
	FlowSessionToken      Flow = "session_token"
	FlowInitPayment       Flow = "init_payment"
	FlowCompleteAuthorize Flow = "complete_authorize"
	FlowCapture           Flow = "capture"
	FlowVoid              Flow = "void"
	FlowSync              Flow = "sync"
	FlowSetupMandate      Flow = "setup_mandate"
	FlowTokenize          Flow = "tokenize"
)

// FlowSupport is per-capability: an adapter that does not support a flow
// returns NotImplemented rather than being structurally absent, and flows
// never relevant to a connector are no-ops returning an empty success.
type FlowSupport int

const (
	FlowSupported FlowSupport = iota
	FlowNotImplemented
	FlowNoOp
)

// CardData is the raw instrument payload for a card charge. It only ever
// lives inside a CallContext.
type CardData struct {
	Number      string
	ExpiryMonth string
	ExpiryYear  string
	CVC         string
	HolderName  string
}

// RequestData is the flow-specific request payload inside a call context.
// Adapters transform it into their wire format; unused fields are zero.
type RequestData struct {
	Amount           int64
	Currency         string
	CaptureMethod    model.CaptureMethod
	AmountToCapture  int64
	Card             *CardData
	PaymentToken     string
	MandateReference *model.MandateReferenceID
	SetupFutureUsage model.FutureUsage
	OffSession       bool
	CustomerID       string
	Email            string
	ReturnURL        string
	BrowserIP        string
	// Written back by pretasks before the main call proceeds.
	EnrolledFor3DS       bool
	RelatedTransactionID string
}

// MandateReference is the consent reference a connector hands back on a
// successful consent-capturing charge.
type MandateReference struct {
	ConnectorMandateID string
	PaymentMethodID    string
}

// RedirectForm describes the customer-action redirect a connector demands.
type RedirectForm struct {
	URL    string
	Method string
	Fields map[string]string
}

// TransactionResponse is the normalized success value of an adapter call.
type TransactionResponse struct {
	ResourceID       string // connector-issued transaction id
	Status           model.AttemptStatus
	Redirect         *RedirectForm
	MandateReference *MandateReference
	NetworkTxnID     string
	ConnectorToken   string // connector-issued instrument token, if any
	SessionToken     string
	Enrolled3DS      bool
	RelatedTxnID     string
}

// ErrorResponse is the structured error half of the pending-outcome union.
// It is data, not a Go error: transport worked, the processor said no.
type ErrorResponse struct {
	StatusCode int
	Code       string
	Message    string
	Reason     string
}

// Outcome is the pending-outcome slot of a call context: exactly one of
// Response or Error is set once the call completes.
type Outcome struct {
	Response *TransactionResponse
	Error    *ErrorResponse
}

// Succeeded reports whether the slot holds a success value.
func (o *Outcome) Succeeded() bool { return o != nil && o.Response != nil }

// CallContext is the ephemeral per-call bundle: credentials, the attempt
// snapshot, the flow request and the pending-outcome slot. It exists for
// the duration of one adapter call and is copied by value, never shared
// across concurrent calls.
type CallContext struct {
	Flow          Flow
	Connector     string
	MerchantID    string
	PaymentID     string
	Attempt       model.Attempt // snapshot, not a live reference
	AuthConfig    map[string]string
	BaseURL       string
	WebhookSecret string
	Request       RequestData
	SessionToken  string
	Outcome       Outcome
}

// Request is the assembled wire request an adapter hands to the executor.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// HTTPResponse is the raw transport result handed to response handling.
// The raw body reaches the observability hook regardless of parse outcome.
type HTTPResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Ok reports a 2xx transport status.
func (r *HTTPResponse) Ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
