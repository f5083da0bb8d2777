// File: internal/pipeline/create.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
	"payment-orchestration-core/internal/domain/ports/repository"
	"payment-orchestration-core/internal/infra/metrics"
)

// CreateOperation opens a new Intent and its first Attempt. It never calls
// a connector; a create with confirm=true hands off to Confirm after the
// records are persisted.
type CreateOperation struct{}

var _ Operation = (*CreateOperation)(nil)

func (*CreateOperation) Verb() Verb { return VerbCreate }

func (*CreateOperation) ValidateRequest(_ context.Context, req *Request) (*ValidateResult, error) {
	if req.Amount == nil {
		return nil, domain.NewInvalidDataFormat("amount", "positive integer in minor units")
	}
	if err := validateAmount(*req.Amount); err != nil {
		return nil, err
	}
	if err := validateCurrency(req.Currency); err != nil {
		return nil, err
	}
	if err := validateAmountToCapture(*req.Amount, 0, req.AmountToCapture); err != nil {
		return nil, err
	}
	if req.Requeue {
		return nil, domain.NewInvalidDataFormat("requeue", "not valid on payment creation")
	}
	if req.MandateID != "" && req.MandateDetails != nil {
		return nil, domain.NewMandateValidationFailed("a new consent setup cannot reference an existing mandate")
	}
	paymentID := req.PaymentID
	if paymentID == "" {
		paymentID = newPaymentID()
	}
	return &ValidateResult{PaymentID: paymentID}, nil
}

func (*CreateOperation) GetTrackers(ctx context.Context, deps *Deps, req *Request, vr *ValidateResult) (*Trackers, NextAction, error) {
	trk := &Trackers{}
	if err := loadMerchant(ctx, deps, trk, req.MerchantID); err != nil {
		return nil, Continue(), err
	}

	if req.PaymentID != "" {
		_, err := deps.Intents.FindByPaymentIDMerchantID(ctx, req.PaymentID, req.MerchantID, trk.Scheme)
		switch {
		case err == nil:
			return nil, Continue(), fmt.Errorf("%w: payment %s", domain.ErrAlreadyExists, req.PaymentID)
		case !domain.IsNotFound(err):
			return nil, Continue(), translateStoreErr(err, "payment intent")
		}
	}

	now := time.Now().UTC()
	attemptID := newAttemptID()
	trk.Intent = &model.Intent{
		ID:               vr.PaymentID,
		MerchantID:       req.MerchantID,
		ProfileID:        req.ProfileID,
		Amount:           *req.Amount,
		Currency:         req.Currency,
		Status:           model.IntentStatusRequiresPaymentMethod,
		CaptureMethod:    req.CaptureMethod,
		SetupFutureUsage: req.SetupFutureUsage,
		CustomerID:       req.CustomerID,
		ActiveAttemptID:  attemptID,
		Description:      req.Description,
		ReturnURL:        req.ReturnURL,
		Metadata:         req.Metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	trk.Attempt = &model.Attempt{
		AttemptID:          attemptID,
		PaymentID:          vr.PaymentID,
		MerchantID:         req.MerchantID,
		Amount:             *req.Amount,
		Currency:           req.Currency,
		Status:             model.AttemptStatusStarted,
		CaptureMethod:      req.CaptureMethod,
		PaymentMethod:      req.PaymentMethod,
		PaymentToken:       req.PaymentToken,
		AuthenticationType: req.AuthenticationType,
		MandateDetails:     req.MandateDetails,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.AmountToCapture != nil {
		trk.Attempt.AmountToCapture = *req.AmountToCapture
	}
	if hasInstrument(req) {
		trk.Intent.Status = model.IntentStatusRequiresConfirmation
		trk.Attempt.Status = model.AttemptStatusConfirmationAwaited
	} else {
		trk.Attempt.Status = model.AttemptStatusPaymentMethodAwaited
	}

	if err := resolveMandateInput(ctx, deps, req, trk); err != nil {
		return nil, Continue(), err
	}
	return trk, Continue(), nil
}

func (*CreateOperation) Domain(ctx context.Context, deps *Deps, req *Request, trk *Trackers) (connector.Flow, error) {
	if err := resolveCustomer(ctx, deps, req, trk); err != nil {
		return "", err
	}
	return "", nil
}

func (*CreateOperation) UpdateTrackers(ctx context.Context, deps *Deps, req *Request, trk *Trackers) (NextAction, error) {
	if err := deps.Attempts.Insert(ctx, trk.Attempt, trk.Scheme); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return Continue(), err
		}
		return Continue(), translateStoreErr(err, "payment attempt")
	}
	if err := deps.Intents.Insert(ctx, trk.Intent, trk.Scheme); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return Continue(), err
		}
		return Continue(), translateStoreErr(err, "payment intent")
	}
	if err := resolveAddresses(ctx, deps, req, trk); err != nil {
		return Continue(), err
	}
	if trk.Intent.BillingAddressID != "" || trk.Intent.ShippingAddressID != "" {
		intent, err := deps.Intents.Update(ctx, trk.Intent.ID, trk.Intent.MerchantID, repository.IntentUpdate{
			ShippingAddress: &trk.Intent.ShippingAddressID,
			BillingAddress:  &trk.Intent.BillingAddressID,
		}, trk.Scheme)
		if err != nil {
			return Continue(), translateStoreErr(err, "payment intent")
		}
		trk.Intent = intent
	}
	metrics.IncIntentStatus(string(trk.Intent.Status))

	if req.Confirm {
		return Advance(VerbConfirm), nil
	}
	return Continue(), nil
}

func hasInstrument(req *Request) bool {
	return req.Card != nil || req.PaymentToken != "" || req.MandateID != "" || req.RecurringDetails != nil
}
