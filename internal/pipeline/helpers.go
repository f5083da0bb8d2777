// File: internal/pipeline/helpers.go
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"payment-orchestration-core/internal/config"
	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
	"payment-orchestration-core/internal/domain/ports/repository"
	"payment-orchestration-core/internal/infra/metrics"
	"payment-orchestration-core/internal/routing"
)

// RunResult is what a completed pipeline run reports back to the caller.
type RunResult struct {
	Intent  *model.Intent
	Attempt *model.Attempt
	// Redirect is set when the connector demands a customer action.
	Redirect *connector.RedirectForm
	// PaymentMethodID is the instrument reconciliation recorded, if any.
	PaymentMethodID string
	// InstrumentSaveFailed marks a successful payment whose instrument
	// save step failed; the charge itself stands.
	InstrumentSaveFailed bool
}

func resultFrom(trk *Trackers) *RunResult {
	res := &RunResult{
		Intent:               trk.Intent,
		Attempt:              trk.Attempt,
		PaymentMethodID:      trk.PaymentMethodID,
		InstrumentSaveFailed: trk.InstrumentSaveFailed,
	}
	if trk.Call != nil && trk.Call.Outcome.Succeeded() {
		res.Redirect = trk.Call.Outcome.Response.Redirect
	}
	return res
}

func newPaymentID() string { return "pay_" + uuid.NewString() }
func newAttemptID() string { return "attempt_" + uuid.NewString() }
func newAddressID() string { return "addr_" + uuid.NewString() }

// updateRejected is the set of intent statuses in which an Update request
// is rejected outright, before any mutation.
func updateRejected(status model.IntentStatus) bool {
	switch status {
	case model.IntentStatusFailed,
		model.IntentStatusSucceeded,
		model.IntentStatusPartiallyCaptured,
		model.IntentStatusRequiresCapture:
		return true
	}
	return false
}

func notAllowed(action string, status model.IntentStatus) error {
	return fmt.Errorf("%w: you cannot %s this payment because it has status %s",
		domain.ErrNotAllowedStatus, action, status)
}

func validateAmount(amount int64) error {
	if amount <= 0 {
		return domain.NewInvalidDataFormat("amount", "positive integer in minor units")
	}
	return nil
}

func validateCurrency(currency string) error {
	if len(currency) != 3 || strings.ToUpper(currency) != currency {
		return domain.NewInvalidDataFormat("currency", "three-letter ISO 4217 code")
	}
	return nil
}

// validateAmountToCapture enforces amount_to_capture <= amount + surcharge.
// Callers re-run it after merging the request with the stored attempt.
func validateAmountToCapture(amount, surcharge int64, amountToCapture *int64) error {
	if amountToCapture == nil {
		return nil
	}
	if *amountToCapture <= 0 || *amountToCapture > amount+surcharge {
		return domain.NewInvalidDataFormat("amount_to_capture", "amount_to_capture lesser than or equal to amount")
	}
	return nil
}

// loadMerchant resolves the merchant account and its storage scheme; every
// later store call is keyed on that scheme.
func loadMerchant(ctx context.Context, deps *Deps, trk *Trackers, merchantID string) error {
	merchant, err := deps.Merchants.FindByMerchantID(ctx, merchantID)
	if err != nil {
		return translateStoreErr(err, "merchant account")
	}
	trk.Merchant = merchant
	trk.Scheme = merchant.StorageScheme
	return nil
}

// resolveMandateInput applies the mandate precedence: an explicit
// mandate_id wins over recurring details, which win over a payment token.
// A requested reference that fails to resolve is a hard error; no request
// at all is fine.
func resolveMandateInput(ctx context.Context, deps *Deps, req *Request, trk *Trackers) error {
	switch {
	case req.MandateID != "":
		mandate, err := deps.Mandates.FindByMerchantIDMandateID(ctx, req.MerchantID, req.MandateID, trk.Scheme)
		if err != nil {
			if domain.IsNotFound(err) {
				return domain.NewMandateValidationFailed("mandate " + req.MandateID + " not found")
			}
			return translateStoreErr(err, "mandate")
		}
		if mandate.Status != model.MandateStatusActive {
			return domain.NewMandateValidationFailed("mandate " + req.MandateID + " is not active")
		}
		trk.Mandate = mandate
	case req.RecurringDetails != nil:
		if req.RecurringDetails.NetworkTransactionID == "" && req.RecurringDetails.ConnectorMandateID == "" {
			return domain.NewMandateValidationFailed("recurring details carry no usable reference")
		}
		ref := *req.RecurringDetails
		trk.MandateReference = &ref
	}
	if req.MandateDetails != nil {
		trk.HasSetupMandateDetails = true
	}
	return nil
}

// resolveMandateForConnector finishes mandate resolution once a connector
// is chosen. Only the explicit-mandate path needs this second step.
func resolveMandateForConnector(trk *Trackers, connectorName string) error {
	if trk.Mandate == nil {
		return nil
	}
	ref, ok := trk.Mandate.Resolve(connectorName)
	if !ok {
		return domain.NewMandateValidationFailed(
			"mandate " + trk.Mandate.MandateID + " has no reference usable with " + connectorName)
	}
	trk.MandateReference = &ref
	return nil
}

// resolveAddresses creates or updates the billing and shipping addresses
// carried on the request and records their ids on the intent.
func resolveAddresses(ctx context.Context, deps *Deps, req *Request, trk *Trackers) error {
	if addr := req.BillingAddress; addr != nil {
		id, err := upsertAddress(ctx, deps, trk, addr, trk.Intent.BillingAddressID)
		if err != nil {
			return err
		}
		trk.Intent.BillingAddressID = id
	}
	if addr := req.ShippingAddress; addr != nil {
		id, err := upsertAddress(ctx, deps, trk, addr, trk.Intent.ShippingAddressID)
		if err != nil {
			return err
		}
		trk.Intent.ShippingAddressID = id
	}
	return nil
}

func upsertAddress(ctx context.Context, deps *Deps, trk *Trackers, addr *model.Address, existingID string) (string, error) {
	a := *addr
	a.MerchantID = trk.Intent.MerchantID
	a.PaymentID = trk.Intent.ID
	a.CustomerID = trk.Intent.CustomerID
	if existingID != "" {
		a.AddressID = existingID
		if err := deps.Addresses.Update(ctx, &a, trk.Scheme); err != nil {
			return "", translateStoreErr(err, "address")
		}
		return existingID, nil
	}
	a.AddressID = newAddressID()
	if err := deps.Addresses.Insert(ctx, &a, trk.Scheme); err != nil {
		return "", translateStoreErr(err, "address")
	}
	return a.AddressID, nil
}

// resolveCustomer loads or creates the payer identity.
func resolveCustomer(ctx context.Context, deps *Deps, req *Request, trk *Trackers) error {
	customerID := req.CustomerID
	if customerID == "" {
		customerID = trk.Intent.CustomerID
	}
	if customerID == "" {
		return nil
	}
	customer, err := deps.Customers.FindByCustomerIDMerchantID(ctx, customerID, req.MerchantID, trk.Scheme)
	if err != nil {
		if !domain.IsNotFound(err) {
			return translateStoreErr(err, "customer")
		}
		customer = &model.Customer{
			CustomerID: customerID,
			MerchantID: req.MerchantID,
			Email:      req.Email,
			CreatedAt:  time.Now().UTC(),
		}
		if err := deps.Customers.Insert(ctx, customer, trk.Scheme); err != nil {
			return translateStoreErr(err, "customer")
		}
	}
	trk.Customer = customer
	trk.Intent.CustomerID = customer.CustomerID
	return nil
}

// amountBucket coarsens the amount for routing rule predicates.
func amountBucket(amount int64) string {
	switch {
	case amount < 1_000:
		return "low"
	case amount < 100_000:
		return "medium"
	default:
		return "high"
	}
}

func attemptContextFor(trk *Trackers) routing.AttemptContext {
	return routing.AttemptContext{
		"payment_method": string(trk.Attempt.PaymentMethod),
		"currency":       trk.Attempt.Currency,
		"capture_method": string(trk.Attempt.CaptureMethod),
		"amount_bucket":  amountBucket(trk.Attempt.Amount),
	}
}

// selectConnector runs the routing engine for the merchant and picks the
// first ranked connector that has an enabled account on the profile. The
// merchant's default list is the fallback when no dictionary record is
// active.
func selectConnector(ctx context.Context, deps *Deps, req *Request, trk *Trackers) error {
	profileID := trk.Intent.ProfileID
	if profileID == "" {
		profileID = trk.Merchant.DefaultProfileID
	}

	var ranked []model.ConnectorChoice
	dict, err := deps.Router.Dictionary(ctx, req.MerchantID)
	if err != nil {
		return err
	}
	if record, ok := dict.ActiveRecord(); ok {
		ranked = deps.Evaluator.Evaluate(&record.Algorithm, attemptContextFor(trk))
	}
	if len(ranked) == 0 {
		ranked, err = deps.Router.DefaultConfig(ctx, req.MerchantID, model.TransactionTypePayment)
		if err != nil {
			return err
		}
	}
	if len(ranked) == 0 {
		return domain.NewNotSupported("no connector configured for merchant " + req.MerchantID)
	}

	for _, choice := range ranked {
		mca, err := deps.MerchantConnectors.FindByMerchantIDConnectorName(ctx, req.MerchantID, profileID, choice.Connector)
		if err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			return translateStoreErr(err, "merchant connector account")
		}
		if !mca.ConnectorEnabled() {
			continue
		}
		c := choice
		c.MerchantConnectorID = mca.MerchantConnectorID
		trk.Choice = &c
		trk.MCA = mca
		return nil
	}
	return domain.NewNotSupported("no routable connector enabled for profile " + profileID)
}

// loadMCAForAttempt restores the connector account of an attempt that was
// already routed, for post-authorization flows.
func loadMCAForAttempt(ctx context.Context, deps *Deps, trk *Trackers) error {
	profileID := trk.Intent.ProfileID
	if profileID == "" {
		profileID = trk.Merchant.DefaultProfileID
	}
	mca, err := deps.MerchantConnectors.FindByMerchantIDConnectorName(ctx, trk.Intent.MerchantID, profileID, trk.Attempt.Connector)
	if err != nil {
		return translateStoreErr(err, "merchant connector account")
	}
	trk.MCA = mca
	return nil
}

// buildCallContext assembles the per-call value bundle. Connector
// configuration is an explicit snapshot so the call is replayable.
func buildCallContext(cfg *config.Config, req *Request, trk *Trackers, flow connector.Flow) *connector.CallContext {
	call := &connector.CallContext{
		Flow:       flow,
		Connector:  trk.Attempt.Connector,
		MerchantID: trk.Intent.MerchantID,
		PaymentID:  trk.Intent.ID,
		Attempt:    *trk.Attempt,
		BaseURL:    cfg.ConnectorBaseURL(trk.Attempt.Connector),
		Request: connector.RequestData{
			Amount:           trk.Attempt.Amount,
			Currency:         trk.Attempt.Currency,
			CaptureMethod:    trk.Attempt.CaptureMethod,
			AmountToCapture:  trk.Attempt.AmountToCapture,
			Card:             req.Card,
			PaymentToken:     trk.Attempt.PaymentToken,
			MandateReference: trk.MandateReference,
			SetupFutureUsage: trk.Intent.SetupFutureUsage,
			OffSession:       req.OffSession,
			CustomerID:       trk.Intent.CustomerID,
			Email:            req.Email,
			ReturnURL:        trk.Intent.ReturnURL,
			BrowserIP:        req.BrowserIP,
		},
	}
	if trk.MCA != nil {
		call.AuthConfig = trk.MCA.AuthConfig
		call.WebhookSecret = trk.MCA.WebhookSecret
	}
	return call
}

// applyOutcome maps the adapter outcome onto the attempt and returns the
// conditional update to persist. Processor declines land here as data.
func applyOutcome(trk *Trackers) repository.AttemptUpdate {
	out := trk.Call.Outcome
	var status model.AttemptStatus
	var errCode, errMsg, txnID string
	if out.Succeeded() {
		status = out.Response.Status
		txnID = out.Response.ResourceID
	} else {
		status = model.AttemptStatusFailure
		if out.Error != nil {
			errCode = out.Error.Code
			errMsg = out.Error.Message
		}
	}
	trk.Attempt.Status = status
	if txnID != "" {
		trk.Attempt.ConnectorTransaction = txnID
	}
	trk.Attempt.ErrorCode = errCode
	trk.Attempt.ErrorMessage = errMsg

	update := repository.AttemptUpdate{Status: &status}
	if txnID != "" {
		update.ConnectorTransaction = &txnID
	}
	if errCode != "" || errMsg != "" {
		update.ErrorCode = &errCode
		update.ErrorMessage = &errMsg
	}
	if trk.PaymentMethodID != "" {
		update.PaymentMethodID = &trk.PaymentMethodID
	}
	return update
}

// persistOutcome writes the Attempt, then the Intent: two sequential
// conditional updates, not one transaction. A crash between them leaves a
// stale Intent status that Sync recovers.
func persistOutcome(ctx context.Context, deps *Deps, trk *Trackers) error {
	attemptUpdate := applyOutcome(trk)
	updated, err := deps.Attempts.Update(ctx, trk.Intent.ID, trk.Intent.MerchantID, trk.Attempt.AttemptID, attemptUpdate, trk.Scheme)
	if err != nil {
		return translateStoreErr(err, "payment attempt")
	}
	trk.Attempt = updated

	intentStatus := trk.Attempt.Status.IntentStatusFor()
	intent, err := deps.Intents.Update(ctx, trk.Intent.ID, trk.Intent.MerchantID, repository.IntentUpdate{
		Status:          &intentStatus,
		ActiveAttemptID: &trk.Attempt.AttemptID,
	}, trk.Scheme)
	if err != nil {
		return translateStoreErr(err, "payment intent")
	}
	trk.Intent = intent
	metrics.IncIntentStatus(string(intentStatus))
	return nil
}
