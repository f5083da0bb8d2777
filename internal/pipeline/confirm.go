// File: internal/pipeline/confirm.go
package pipeline

import (
	"context"

	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
	"payment-orchestration-core/internal/domain/ports/repository"
)

// ConfirmOperation runs the charge: it routes the attempt to a connector,
// authorizes through the adapter and persists the outcome. It is also the
// landing verb for post-redirect continuation.
type ConfirmOperation struct{}

var _ Operation = (*ConfirmOperation)(nil)

func (*ConfirmOperation) Verb() Verb { return VerbConfirm }

func (*ConfirmOperation) ValidateRequest(_ context.Context, req *Request) (*ValidateResult, error) {
	if req.PaymentID == "" {
		return nil, domain.NewInvalidDataFormat("payment_id", "non-empty payment identifier")
	}
	if req.Amount != nil {
		if err := validateAmount(*req.Amount); err != nil {
			return nil, err
		}
	}
	return &ValidateResult{PaymentID: req.PaymentID, Requeue: req.Requeue}, nil
}

func (*ConfirmOperation) GetTrackers(ctx context.Context, deps *Deps, req *Request, vr *ValidateResult) (*Trackers, NextAction, error) {
	trk := &Trackers{}
	if err := loadMerchant(ctx, deps, trk, req.MerchantID); err != nil {
		return nil, Continue(), err
	}

	intent, err := deps.Intents.FindByPaymentIDMerchantID(ctx, vr.PaymentID, req.MerchantID, trk.Scheme)
	if err != nil {
		return nil, Continue(), translateStoreErr(err, "payment intent")
	}
	if intent.Status.IsTerminal() || intent.Status == model.IntentStatusRequiresCapture {
		return nil, Continue(), notAllowed("confirm", intent.Status)
	}
	trk.Intent = intent

	attempt, err := deps.Attempts.FindByPaymentIDMerchantIDAttemptID(ctx, vr.PaymentID, req.MerchantID, intent.ActiveAttemptID, trk.Scheme)
	if err != nil {
		return nil, Continue(), translateStoreErr(err, "payment attempt")
	}
	trk.Attempt = attempt

	if attempt.PaymentMethod == "" && req.PaymentMethod == "" && req.Card == nil && attempt.PaymentToken == "" && req.MandateID == "" && req.RecurringDetails == nil {
		return nil, Continue(), notAllowed("confirm", model.IntentStatusRequiresPaymentMethod)
	}

	// Requeue is only meaningful as an idempotent re-send of a call that
	// already left; a fresh attempt has nothing to re-send.
	if vr.Requeue && attempt.ConnectorTransaction == "" && !req.Resume {
		return nil, Continue(), domain.NewInvalidDataFormat("requeue", "only valid for a previously transmitted attempt")
	}

	if req.MandateDetails != nil && attempt.MandateDetails == nil {
		attempt.MandateDetails = req.MandateDetails
	}
	if req.Card != nil && attempt.PaymentMethod == "" {
		attempt.PaymentMethod = model.PaymentMethodTypeCard
	}
	if req.PaymentMethod != "" {
		attempt.PaymentMethod = req.PaymentMethod
	}
	if req.AuthenticationType != "" {
		attempt.AuthenticationType = req.AuthenticationType
	}
	if req.AmountToCapture != nil {
		if err := validateAmountToCapture(attempt.Amount, attempt.TotalSurcharge(), req.AmountToCapture); err != nil {
			return nil, Continue(), err
		}
		attempt.AmountToCapture = *req.AmountToCapture
	}

	if err := resolveMandateInput(ctx, deps, req, trk); err != nil {
		return nil, Continue(), err
	}
	if err := resolveAddresses(ctx, deps, req, trk); err != nil {
		return nil, Continue(), err
	}
	return trk, Continue(), nil
}

func (*ConfirmOperation) Domain(ctx context.Context, deps *Deps, req *Request, trk *Trackers) (connector.Flow, error) {
	if err := resolveCustomer(ctx, deps, req, trk); err != nil {
		return "", err
	}

	if req.Resume {
		// Post-redirect continuation: the attempt is already routed, the
		// connector already holds the transaction.
		if err := loadMCAForAttempt(ctx, deps, trk); err != nil {
			return "", err
		}
		if err := resolveMandateForConnector(trk, trk.Attempt.Connector); err != nil {
			return "", err
		}
		trk.CaptureConsent = consentCaptured(req, trk)
		return connector.FlowCompleteAuthorize, nil
	}

	blocked, err := deps.Guard.Blocked(ctx, req.MerchantID, req)
	if err != nil {
		return "", err
	}
	if blocked {
		return "", domain.NewNotSupported("payment blocked by merchant fraud rules")
	}

	if err := selectConnector(ctx, deps, req, trk); err != nil {
		return "", err
	}
	trk.Attempt.Connector = trk.Choice.Connector
	trk.Attempt.MerchantConnectorID = trk.Choice.MerchantConnectorID

	if err := resolveMandateForConnector(trk, trk.Choice.Connector); err != nil {
		return "", err
	}
	if err := materializeToken(ctx, deps, req, trk); err != nil {
		return "", err
	}

	trk.CaptureConsent = consentCaptured(req, trk)
	return connector.FlowAuthorize, nil
}

func (*ConfirmOperation) UpdateTrackers(ctx context.Context, deps *Deps, req *Request, trk *Trackers) (NextAction, error) {
	// Record the routing decision alongside the outcome.
	if trk.Choice != nil {
		connectorName := trk.Choice.Connector
		mcaID := trk.Choice.MerchantConnectorID
		if _, err := deps.Attempts.Update(ctx, trk.Intent.ID, trk.Intent.MerchantID, trk.Attempt.AttemptID, repository.AttemptUpdate{
			Connector:           &connectorName,
			MerchantConnectorID: &mcaID,
		}, trk.Scheme); err != nil {
			return Continue(), translateStoreErr(err, "payment attempt")
		}
	}
	if err := persistOutcome(ctx, deps, trk); err != nil {
		return Continue(), err
	}
	return Continue(), nil
}

// consentCaptured reports whether this charge captured reusable consent:
// either the merchant asked to store the instrument for future use, or the
// request carried an explicit consent setup.
func consentCaptured(req *Request, trk *Trackers) bool {
	return trk.Intent.SetupFutureUsage != "" || trk.HasSetupMandateDetails || req.SetupFutureUsage != ""
}

// materializeToken loads the stored instrument and, when its connector
// token may be reused with the chosen connector, places it on the attempt.
// Single-use tokens are never replayed across attempts.
func materializeToken(ctx context.Context, deps *Deps, req *Request, trk *Trackers) error {
	if req.Card != nil || trk.Attempt.PaymentMethodID == "" {
		return nil
	}
	pm, err := deps.Methods.FindByID(ctx, trk.Attempt.PaymentMethodID, trk.Scheme)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.NewNotFound("payment method " + trk.Attempt.PaymentMethodID)
		}
		return translateStoreErr(err, "payment method")
	}
	trk.PaymentMethod = pm
	if pm.SingleUseToken {
		return nil
	}
	if tok, ok := pm.ConnectorToken(trk.Attempt.Connector); ok {
		trk.Attempt.PaymentToken = tok
	}
	return nil
}
