// File: internal/pipeline/void.go
package pipeline

import (
	"context"

	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
)

// VoidOperation cancels an authorization that has not settled.
type VoidOperation struct{}

var _ Operation = (*VoidOperation)(nil)

func (*VoidOperation) Verb() Verb { return VerbVoid }

func (*VoidOperation) ValidateRequest(_ context.Context, req *Request) (*ValidateResult, error) {
	if req.PaymentID == "" {
		return nil, domain.NewInvalidDataFormat("payment_id", "non-empty payment identifier")
	}
	return &ValidateResult{PaymentID: req.PaymentID, Requeue: req.Requeue}, nil
}

func (*VoidOperation) GetTrackers(ctx context.Context, deps *Deps, req *Request, vr *ValidateResult) (*Trackers, NextAction, error) {
	trk := &Trackers{}
	if err := loadMerchant(ctx, deps, trk, req.MerchantID); err != nil {
		return nil, Continue(), err
	}

	intent, err := deps.Intents.FindByPaymentIDMerchantID(ctx, vr.PaymentID, req.MerchantID, trk.Scheme)
	if err != nil {
		return nil, Continue(), translateStoreErr(err, "payment intent")
	}
	if intent.Status.IsTerminal() {
		return nil, Continue(), notAllowed("cancel", intent.Status)
	}
	trk.Intent = intent

	attempt, err := deps.Attempts.FindByPaymentIDMerchantIDAttemptID(ctx, vr.PaymentID, req.MerchantID, intent.ActiveAttemptID, trk.Scheme)
	if err != nil {
		return nil, Continue(), translateStoreErr(err, "payment attempt")
	}
	trk.Attempt = attempt

	if attempt.ConnectorTransaction == "" {
		// Nothing left for the connector; the records close locally.
		return trk, Continue(), nil
	}
	return trk, Continue(), nil
}

func (*VoidOperation) Domain(ctx context.Context, deps *Deps, _ *Request, trk *Trackers) (connector.Flow, error) {
	if trk.Attempt.ConnectorTransaction == "" {
		return "", nil
	}
	if err := loadMCAForAttempt(ctx, deps, trk); err != nil {
		return "", err
	}
	return connector.FlowVoid, nil
}

func (*VoidOperation) UpdateTrackers(ctx context.Context, deps *Deps, req *Request, trk *Trackers) (NextAction, error) {
	if trk.Call == nil {
		// Local cancellation without an adapter round-trip.
		trk.Attempt.Status = model.AttemptStatusVoided
		trk.Call = &connector.CallContext{Outcome: connector.Outcome{
			Response: &connector.TransactionResponse{Status: model.AttemptStatusVoided},
		}}
	}
	if err := persistOutcome(ctx, deps, trk); err != nil {
		return Continue(), err
	}
	if req.CancellationReason != "" {
		deps.Log.Info().
			Str("payment_id", trk.Intent.ID).
			Str("reason", req.CancellationReason).
			Msg("payment cancelled")
	}
	return Continue(), nil
}
