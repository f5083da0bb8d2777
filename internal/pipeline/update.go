// File: internal/pipeline/update.go
package pipeline

import (
	"context"

	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
	"payment-orchestration-core/internal/domain/ports/repository"
	"payment-orchestration-core/internal/infra/metrics"
)

// UpdateOperation mutates an Intent strictly before confirmation. A
// request that also sets confirm=true defers the whole run to Confirm
// after the update is applied.
type UpdateOperation struct{}

var _ Operation = (*UpdateOperation)(nil)

func (*UpdateOperation) Verb() Verb { return VerbUpdate }

func (*UpdateOperation) ValidateRequest(_ context.Context, req *Request) (*ValidateResult, error) {
	if req.PaymentID == "" {
		return nil, domain.NewInvalidDataFormat("payment_id", "non-empty payment identifier")
	}
	if req.Amount != nil {
		if err := validateAmount(*req.Amount); err != nil {
			return nil, err
		}
	}
	if req.Currency != "" {
		if err := validateCurrency(req.Currency); err != nil {
			return nil, err
		}
	}
	// Pre-merge check against the requested amount; re-checked below once
	// the stored attempt's surcharge is known.
	if req.Amount != nil {
		if err := validateAmountToCapture(*req.Amount, 0, req.AmountToCapture); err != nil {
			return nil, err
		}
	}
	return &ValidateResult{PaymentID: req.PaymentID, Requeue: req.Requeue}, nil
}

func (*UpdateOperation) GetTrackers(ctx context.Context, deps *Deps, req *Request, vr *ValidateResult) (*Trackers, NextAction, error) {
	trk := &Trackers{}
	if err := loadMerchant(ctx, deps, trk, req.MerchantID); err != nil {
		return nil, Continue(), err
	}

	intent, err := deps.Intents.FindByPaymentIDMerchantID(ctx, vr.PaymentID, req.MerchantID, trk.Scheme)
	if err != nil {
		return nil, Continue(), translateStoreErr(err, "payment intent")
	}
	// Rejection happens here, before any mutation.
	if updateRejected(intent.Status) {
		return nil, Continue(), notAllowed("update", intent.Status)
	}
	trk.Intent = intent

	attempt, err := deps.Attempts.FindByPaymentIDMerchantIDAttemptID(ctx, vr.PaymentID, req.MerchantID, intent.ActiveAttemptID, trk.Scheme)
	if err != nil {
		return nil, Continue(), translateStoreErr(err, "payment attempt")
	}
	trk.Attempt = attempt

	mergedAmount := intent.Amount
	if req.Amount != nil {
		if !intent.AmountMutable() {
			return nil, Continue(), notAllowed("update the amount of", intent.Status)
		}
		mergedAmount = *req.Amount
	}
	// Re-check against the merged amount plus the stored attempt's
	// surcharge.
	amountToCapture := req.AmountToCapture
	if amountToCapture == nil && attempt.AmountToCapture > 0 {
		amountToCapture = &attempt.AmountToCapture
	}
	if err := validateAmountToCapture(mergedAmount, attempt.TotalSurcharge(), amountToCapture); err != nil {
		return nil, Continue(), err
	}

	if err := resolveMandateInput(ctx, deps, req, trk); err != nil {
		return nil, Continue(), err
	}

	if req.Confirm {
		// The update persists first, then Confirm runs the charge.
		if _, err := (&UpdateOperation{}).UpdateTrackers(ctx, deps, req, trk); err != nil {
			return nil, Continue(), err
		}
		return trk, Advance(VerbConfirm), nil
	}
	return trk, Continue(), nil
}

func (*UpdateOperation) Domain(ctx context.Context, deps *Deps, req *Request, trk *Trackers) (connector.Flow, error) {
	if err := resolveCustomer(ctx, deps, req, trk); err != nil {
		return "", err
	}
	return "", nil
}

func (*UpdateOperation) UpdateTrackers(ctx context.Context, deps *Deps, req *Request, trk *Trackers) (NextAction, error) {
	attemptUpdate := repository.AttemptUpdate{
		Amount:          req.Amount,
		AmountToCapture: req.AmountToCapture,
	}
	if req.Currency != "" {
		attemptUpdate.Currency = &req.Currency
	}
	if req.CaptureMethod != "" {
		attemptUpdate.CaptureMethod = &req.CaptureMethod
	}
	if req.PaymentToken != "" {
		attemptUpdate.PaymentToken = &req.PaymentToken
	}
	status := trk.Attempt.Status
	if hasInstrument(req) || trk.Attempt.PaymentToken != "" {
		status = model.AttemptStatusConfirmationAwaited
	}
	attemptUpdate.Status = &status

	attempt, err := deps.Attempts.Update(ctx, trk.Intent.ID, trk.Intent.MerchantID, trk.Attempt.AttemptID, attemptUpdate, trk.Scheme)
	if err != nil {
		return Continue(), translateStoreErr(err, "payment attempt")
	}
	trk.Attempt = attempt

	if err := resolveAddresses(ctx, deps, req, trk); err != nil {
		return Continue(), err
	}

	intentUpdate := repository.IntentUpdate{
		Amount:   req.Amount,
		Metadata: req.Metadata,
	}
	if req.Currency != "" {
		intentUpdate.Currency = &req.Currency
	}
	if req.Description != "" {
		intentUpdate.Description = &req.Description
	}
	if req.ReturnURL != "" {
		intentUpdate.ReturnURL = &req.ReturnURL
	}
	if req.SetupFutureUsage != "" {
		intentUpdate.SetupFutureUsage = &req.SetupFutureUsage
	}
	if trk.Intent.BillingAddressID != "" || trk.Intent.ShippingAddressID != "" {
		intentUpdate.ShippingAddress = &trk.Intent.ShippingAddressID
		intentUpdate.BillingAddress = &trk.Intent.BillingAddressID
	}
	if status == model.AttemptStatusConfirmationAwaited {
		s := model.IntentStatusRequiresConfirmation
		intentUpdate.Status = &s
	}
	intent, err := deps.Intents.Update(ctx, trk.Intent.ID, trk.Intent.MerchantID, intentUpdate, trk.Scheme)
	if err != nil {
		return Continue(), translateStoreErr(err, "payment intent")
	}
	trk.Intent = intent
	metrics.IncIntentStatus(string(intent.Status))
	return Continue(), nil
}
