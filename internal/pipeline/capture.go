// File: internal/pipeline/capture.go
package pipeline

import (
	"context"

	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
)

// CaptureOperation settles a previously authorized attempt.
type CaptureOperation struct{}

var _ Operation = (*CaptureOperation)(nil)

func (*CaptureOperation) Verb() Verb { return VerbCapture }

func (*CaptureOperation) ValidateRequest(_ context.Context, req *Request) (*ValidateResult, error) {
	if req.PaymentID == "" {
		return nil, domain.NewInvalidDataFormat("payment_id", "non-empty payment identifier")
	}
	if req.AmountToCapture != nil && *req.AmountToCapture <= 0 {
		return nil, domain.NewInvalidDataFormat("amount_to_capture", "positive integer in minor units")
	}
	return &ValidateResult{PaymentID: req.PaymentID, Requeue: req.Requeue}, nil
}

func (*CaptureOperation) GetTrackers(ctx context.Context, deps *Deps, req *Request, vr *ValidateResult) (*Trackers, NextAction, error) {
	trk := &Trackers{}
	if err := loadMerchant(ctx, deps, trk, req.MerchantID); err != nil {
		return nil, Continue(), err
	}

	intent, err := deps.Intents.FindByPaymentIDMerchantID(ctx, vr.PaymentID, req.MerchantID, trk.Scheme)
	if err != nil {
		return nil, Continue(), translateStoreErr(err, "payment intent")
	}
	if intent.Status != model.IntentStatusRequiresCapture {
		return nil, Continue(), notAllowed("capture", intent.Status)
	}
	trk.Intent = intent

	attempt, err := deps.Attempts.FindByPaymentIDMerchantIDAttemptID(ctx, vr.PaymentID, req.MerchantID, intent.ActiveAttemptID, trk.Scheme)
	if err != nil {
		return nil, Continue(), translateStoreErr(err, "payment attempt")
	}
	trk.Attempt = attempt

	// Re-check against the stored attempt: its surcharge participates.
	amountToCapture := req.AmountToCapture
	if amountToCapture == nil && attempt.AmountToCapture > 0 {
		amountToCapture = &attempt.AmountToCapture
	}
	if err := validateAmountToCapture(attempt.Amount, attempt.TotalSurcharge(), amountToCapture); err != nil {
		return nil, Continue(), err
	}
	if amountToCapture != nil {
		trk.Attempt.AmountToCapture = *amountToCapture
	}

	if vr.Requeue && attempt.ConnectorTransaction == "" {
		return nil, Continue(), domain.NewInvalidDataFormat("requeue", "only valid for a previously transmitted attempt")
	}
	return trk, Continue(), nil
}

func (*CaptureOperation) Domain(ctx context.Context, deps *Deps, _ *Request, trk *Trackers) (connector.Flow, error) {
	if err := loadMCAForAttempt(ctx, deps, trk); err != nil {
		return "", err
	}
	return connector.FlowCapture, nil
}

func (*CaptureOperation) UpdateTrackers(ctx context.Context, deps *Deps, _ *Request, trk *Trackers) (NextAction, error) {
	if err := persistOutcome(ctx, deps, trk); err != nil {
		return Continue(), err
	}
	return Continue(), nil
}
