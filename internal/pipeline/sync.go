// File: internal/pipeline/sync.go
package pipeline

import (
	"context"

	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
	"payment-orchestration-core/internal/domain/ports/repository"
	"payment-orchestration-core/internal/infra/metrics"
)

// SyncOperation re-reads the authoritative status from the connector. It
// doubles as the recovery path for an Intent left stale by a crash between
// the Attempt write and the Intent write.
type SyncOperation struct{}

var _ Operation = (*SyncOperation)(nil)

func (*SyncOperation) Verb() Verb { return VerbSync }

func (*SyncOperation) ValidateRequest(_ context.Context, req *Request) (*ValidateResult, error) {
	if req.PaymentID == "" {
		return nil, domain.NewInvalidDataFormat("payment_id", "non-empty payment identifier")
	}
	return &ValidateResult{PaymentID: req.PaymentID}, nil
}

func (*SyncOperation) GetTrackers(ctx context.Context, deps *Deps, req *Request, vr *ValidateResult) (*Trackers, NextAction, error) {
	trk := &Trackers{}
	if err := loadMerchant(ctx, deps, trk, req.MerchantID); err != nil {
		return nil, Continue(), err
	}

	intent, err := deps.Intents.FindByPaymentIDMerchantID(ctx, vr.PaymentID, req.MerchantID, trk.Scheme)
	if err != nil {
		return nil, Continue(), translateStoreErr(err, "payment intent")
	}
	trk.Intent = intent

	if intent.ActiveAttemptID == "" {
		return nil, Continue(), domain.NewNotFound("active attempt")
	}
	attempt, err := deps.Attempts.FindByPaymentIDMerchantIDAttemptID(ctx, vr.PaymentID, req.MerchantID, intent.ActiveAttemptID, trk.Scheme)
	if err != nil {
		return nil, Continue(), translateStoreErr(err, "payment attempt")
	}
	trk.Attempt = attempt
	return trk, Continue(), nil
}

func (*SyncOperation) Domain(ctx context.Context, deps *Deps, req *Request, trk *Trackers) (connector.Flow, error) {
	// Without a transmitted transaction (or when the caller settles for
	// the stored state) the sync is a local read.
	if trk.Attempt.ConnectorTransaction == "" || (!req.ForceSync && trk.Intent.Status.IsTerminal()) {
		return "", nil
	}
	if err := loadMCAForAttempt(ctx, deps, trk); err != nil {
		return "", err
	}
	return connector.FlowSync, nil
}

func (*SyncOperation) UpdateTrackers(ctx context.Context, deps *Deps, _ *Request, trk *Trackers) (NextAction, error) {
	if trk.Call != nil {
		if err := persistOutcome(ctx, deps, trk); err != nil {
			return Continue(), err
		}
		return Continue(), nil
	}

	// Local read: repair a stale Intent status left by a crash between
	// the two tracker writes.
	if expected := trk.Attempt.Status.IntentStatusFor(); trk.Intent.Status != expected && trk.Attempt.Status != model.AttemptStatusStarted {
		intent, err := deps.Intents.Update(ctx, trk.Intent.ID, trk.Intent.MerchantID, repository.IntentUpdate{
			Status: &expected,
		}, trk.Scheme)
		if err != nil {
			return Continue(), translateStoreErr(err, "payment intent")
		}
		trk.Intent = intent
		metrics.IncIntentStatus(string(expected))
	}
	return Continue(), nil
}
