// File: internal/pipeline/update_test.go
package pipeline

import (
	"context"
	"errors"
	"testing"

	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
)

// openPayment creates a fresh unconfirmed payment and returns its id.
func openPayment(t *testing.T, td *testDeps) string {
	t.Helper()
	res, err := td.executor.Run(context.Background(), VerbCreate, createReq(), connector.TriggerAction())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return res.Intent.ID
}

func TestUpdateOperation(t *testing.T) {
	ctx := context.Background()

	t.Run("should apply field changes before confirmation", func(t *testing.T) {
		td := newTestDeps()
		paymentID := openPayment(t, td)

		amount := int64(2500)
		req := &Request{
			MerchantID:  "m1",
			PaymentID:   paymentID,
			Amount:      &amount,
			Currency:    "EUR",
			Description: "updated order",
			ReturnURL:   "https://merchant.example.com/return",
			Metadata:    map[string]interface{}{"order": "o_42"},
		}
		res, err := td.executor.Run(ctx, VerbUpdate, req, connector.TriggerAction())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Intent.Amount != 2500 || res.Intent.Currency != "EUR" {
			t.Errorf("intent amount/currency = %d %s", res.Intent.Amount, res.Intent.Currency)
		}
		if res.Intent.Description != "updated order" {
			t.Errorf("description = %q", res.Intent.Description)
		}
		if res.Attempt.Amount != 2500 || res.Attempt.Currency != "EUR" {
			t.Errorf("attempt amount/currency = %d %s", res.Attempt.Amount, res.Attempt.Currency)
		}

		stored, err := td.intents.FindByPaymentIDMerchantID(ctx, paymentID, "m1", model.StorageSchemePostgresOnly)
		if err != nil {
			t.Fatalf("stored intent: %v", err)
		}
		if stored.Amount != 2500 {
			t.Errorf("stored amount = %d, want 2500", stored.Amount)
		}
		if stored.Metadata["order"] != "o_42" {
			t.Errorf("stored metadata = %v", stored.Metadata)
		}
	})

	t.Run("should move to requires_confirmation when a token arrives", func(t *testing.T) {
		td := newTestDeps()
		paymentID := openPayment(t, td)

		req := &Request{MerchantID: "m1", PaymentID: paymentID, PaymentToken: "tok_1"}
		res, err := td.executor.Run(ctx, VerbUpdate, req, connector.TriggerAction())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Intent.Status != model.IntentStatusRequiresConfirmation {
			t.Errorf("intent status = %s, want %s", res.Intent.Status, model.IntentStatusRequiresConfirmation)
		}
		if res.Attempt.Status != model.AttemptStatusConfirmationAwaited {
			t.Errorf("attempt status = %s, want %s", res.Attempt.Status, model.AttemptStatusConfirmationAwaited)
		}
		if res.Attempt.PaymentToken != "tok_1" {
			t.Errorf("payment token = %q", res.Attempt.PaymentToken)
		}
	})

	t.Run("should reject updates in settled or capturable states", func(t *testing.T) {
		rejected := []model.IntentStatus{
			model.IntentStatusFailed,
			model.IntentStatusSucceeded,
			model.IntentStatusPartiallyCaptured,
			model.IntentStatusRequiresCapture,
		}
		for _, status := range rejected {
			t.Run(string(status), func(t *testing.T) {
				td := newTestDeps()
				paymentID := openPayment(t, td)
				forceIntentStatus(t, td, paymentID, status)
				before := snapshotIntent(t, td, paymentID)

				amount := int64(9900)
				req := &Request{MerchantID: "m1", PaymentID: paymentID, Amount: &amount}
				_, err := td.executor.Run(ctx, VerbUpdate, req, connector.TriggerAction())
				if !errors.Is(err, domain.ErrNotAllowedStatus) {
					t.Fatalf("Run() error = %v, want ErrNotAllowedStatus", err)
				}
				after := snapshotIntent(t, td, paymentID)
				if before.Amount != after.Amount || before.Status != after.Status {
					t.Errorf("rejected update mutated the intent: before=%+v after=%+v", before, after)
				}
			})
		}
	})

	t.Run("should re-check amount_to_capture against the merged amount", func(t *testing.T) {
		td := newTestDeps()
		paymentID := openPayment(t, td)

		lower := int64(1000)
		keepCapture := int64(1200)
		req := &Request{MerchantID: "m1", PaymentID: paymentID, Amount: &lower, AmountToCapture: &keepCapture}
		_, err := td.executor.Run(ctx, VerbUpdate, req, connector.TriggerAction())
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("Run() error = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("should reject for an unknown payment", func(t *testing.T) {
		td := newTestDeps()
		amount := int64(100)
		req := &Request{MerchantID: "m1", PaymentID: "pay_ghost", Amount: &amount}
		_, err := td.executor.Run(ctx, VerbUpdate, req, connector.TriggerAction())
		if !domain.IsNotFound(err) {
			t.Fatalf("Run() error = %v, want not found", err)
		}
	})

	t.Run("should run the charge when confirm rides along", func(t *testing.T) {
		td := newTestDeps()
		paymentID := openPayment(t, td)

		req := &Request{
			MerchantID:    "m1",
			PaymentID:     paymentID,
			PaymentMethod: model.PaymentMethodTypeCard,
			Card:          testCard(),
			PaymentToken:  "tok_1",
			Confirm:       true,
		}
		res, err := td.executor.Run(ctx, VerbUpdate, req, connector.TriggerAction())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Intent.Status != model.IntentStatusSucceeded {
			t.Errorf("intent status = %s, want %s", res.Intent.Status, model.IntentStatusSucceeded)
		}
		flows := td.integ.calledFlows()
		if len(flows) != 1 || flows[0] != connector.FlowAuthorize {
			t.Errorf("flows = %v, want single authorize", flows)
		}
	})
}

// forceIntentStatus puts the stored intent into the given status directly.
func forceIntentStatus(t *testing.T, td *testDeps, paymentID string, status model.IntentStatus) {
	t.Helper()
	td.intents.mu.Lock()
	defer td.intents.mu.Unlock()
	intent, ok := td.intents.store[intentKey("m1", paymentID)]
	if !ok {
		t.Fatalf("intent %s not stored", paymentID)
	}
	intent.Status = status
}

func snapshotIntent(t *testing.T, td *testDeps, paymentID string) model.Intent {
	t.Helper()
	intent, err := td.intents.FindByPaymentIDMerchantID(context.Background(), paymentID, "m1", model.StorageSchemePostgresOnly)
	if err != nil {
		t.Fatalf("snapshot intent: %v", err)
	}
	return *intent
}
