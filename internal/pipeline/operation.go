// File: internal/pipeline/operation.go
// Package pipeline orchestrates the payment lifecycle verbs. Each verb is
// one component implementing four capability interfaces invoked in fixed
// order: validate, load trackers, enrich domain data, persist results. The
// adapter call sits between enrichment and persistence and is driven by the
// executor, never by the verbs themselves.
package pipeline

import (
	"context"
	"encoding/json"

	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
)

type Verb string

const (
	VerbCreate  Verb = "create"
	VerbUpdate  Verb = "update"
	VerbConfirm Verb = "confirm"
	VerbCapture Verb = "capture"
	VerbVoid    Verb = "void"
	VerbSync    Verb = "sync"
)

// Request is the normalized inbound payment request. A verb reads the
// fields relevant to it and ignores the rest; nil pointer fields mean "not
// provided" as opposed to a zero value.
type Request struct {
	MerchantID string
	PaymentID  string
	ProfileID  string

	Amount          *int64
	Currency        string
	CaptureMethod   model.CaptureMethod
	AmountToCapture *int64

	Confirm bool
	// Requeue marks an explicit idempotent re-invocation of an adapter
	// call that may already have been transmitted.
	Requeue bool
	// Resume marks a post-redirect continuation of an authentication
	// that already left for the customer's bank.
	Resume bool

	CustomerID string
	Email      string

	PaymentMethod    model.PaymentMethodType
	Card             *connector.CardData
	PaymentToken     string
	MandateID        string
	RecurringDetails *model.MandateReferenceID
	MandateDetails   *model.MandateDetails

	SetupFutureUsage   model.FutureUsage
	OffSession         bool
	AuthenticationType string

	ShippingAddress *model.Address
	BillingAddress  *model.Address

	Description        string
	ReturnURL          string
	CancellationReason string
	BrowserIP          string
	Metadata           map[string]interface{}

	RedirectPayload json.RawMessage

	ForceSync bool
}

// ValidateResult is what validation hands to tracker loading. Validation
// never touches the store.
type ValidateResult struct {
	PaymentID string
	Requeue   bool
}

// Trackers is the state bundle threaded through one pipeline run.
type Trackers struct {
	Merchant *model.MerchantAccount
	Scheme   model.StorageScheme

	Intent  *model.Intent
	Attempt *model.Attempt

	Customer      *model.Customer
	PaymentMethod *model.PaymentMethod

	// Mandate resolution output of GetTrackers; the connector-specific
	// reference is resolved once a connector is chosen.
	Mandate          *model.Mandate
	MandateReference *model.MandateReferenceID
	// HasSetupMandateDetails marks a customer-present consent setup on
	// this very request.
	HasSetupMandateDetails bool

	Choice *model.ConnectorChoice
	MCA    *model.MerchantConnectorAccount

	// CaptureConsent triggers reconciliation after a successful call.
	CaptureConsent bool

	Call *connector.CallContext

	PaymentMethodID      string
	SingleUseToken       bool
	InstrumentSaveFailed bool
}

// NextAction is the explicit tagged handoff result: continue with the
// current verb's persistence, or advance to another verb before the
// adapter is ever called.
type NextAction struct {
	next Verb
}

func Continue() NextAction       { return NextAction{} }
func Advance(v Verb) NextAction  { return NextAction{next: v} }
func (n NextAction) Advances() bool { return n.next != "" }
func (n NextAction) Next() Verb     { return n.next }

// The four capabilities. They are deliberately separate interfaces so a
// test can exercise one stage in isolation.

type RequestValidator interface {
	// ValidateRequest performs field-level and cross-field checks. It
	// rejects before any mutation.
	ValidateRequest(ctx context.Context, req *Request) (*ValidateResult, error)
}

type TrackerLoader interface {
	// GetTrackers loads or creates the Intent and Attempt, resolves
	// addresses and mandate precedence, and may defer to a different verb.
	GetTrackers(ctx context.Context, deps *Deps, req *Request, vr *ValidateResult) (*Trackers, NextAction, error)
}

type DomainEnricher interface {
	// Domain resolves the customer, materializes the payment method,
	// selects a connector and runs the blocklist guard. The returned flow
	// is what the executor calls the adapter with; empty means no
	// external call for this verb.
	Domain(ctx context.Context, deps *Deps, req *Request, trk *Trackers) (connector.Flow, error)
}

type TrackerUpdater interface {
	// UpdateTrackers persists the Attempt, then the Intent, and returns
	// the next verb to run, which may be none.
	UpdateTrackers(ctx context.Context, deps *Deps, req *Request, trk *Trackers) (NextAction, error)
}

// Operation is one lifecycle verb.
type Operation interface {
	Verb() Verb
	RequestValidator
	TrackerLoader
	DomainEnricher
	TrackerUpdater
}

// Registry maps verb ids to operations. Populated at startup, read-only
// afterwards.
type Registry struct {
	ops map[Verb]Operation
}

func NewRegistry() *Registry {
	return &Registry{ops: make(map[Verb]Operation)}
}

func (r *Registry) Register(op Operation) {
	r.ops[op.Verb()] = op
}

func (r *Registry) Get(verb Verb) (Operation, error) {
	op, ok := r.ops[verb]
	if !ok {
		return nil, domain.NewNotSupported("unknown payment operation " + string(verb))
	}
	return op, nil
}

// DefaultRegistry wires every lifecycle verb.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CreateOperation{})
	r.Register(&UpdateOperation{})
	r.Register(&ConfirmOperation{})
	r.Register(&CaptureOperation{})
	r.Register(&VoidOperation{})
	r.Register(&SyncOperation{})
	return r
}
