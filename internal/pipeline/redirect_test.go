// File: internal/pipeline/redirect_test.go
package pipeline

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
)

// redirectedPayment opens a payment stuck in the customer-action state
// with a transmitted transaction.
func redirectedPayment(t *testing.T, td *testDeps) string {
	t.Helper()
	td.integ.script(connector.Outcome{Response: &connector.TransactionResponse{
		ResourceID: "txn_1",
		Status:     model.AttemptStatusAuthenticationPending,
		Redirect:   &connector.RedirectForm{URL: "https://acs.example.com/challenge"},
	}})
	paymentID := openConfirmablePayment(t, td)
	if _, err := td.executor.Run(context.Background(), VerbConfirm, confirmReq(paymentID), connector.TriggerAction()); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	return paymentID
}

func TestCompleteRedirect(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"cres":"abc"}`)

	t.Run("should complete authorization when the challenge passed", func(t *testing.T) {
		td := newTestDeps()
		paymentID := redirectedPayment(t, td)
		td.integ.script(connector.Outcome{Response: &connector.TransactionResponse{
			ResourceID: "txn_1",
			Status:     model.AttemptStatusCharged,
		}})

		res, err := td.executor.CompleteRedirect(ctx, "m1", paymentID, "testpay", url.Values{}, payload)
		if err != nil {
			t.Fatalf("CompleteRedirect() error = %v", err)
		}
		if res.Intent.Status != model.IntentStatusSucceeded {
			t.Errorf("intent status = %s, want %s", res.Intent.Status, model.IntentStatusSucceeded)
		}
		flows := td.integ.calledFlows()
		if flows[len(flows)-1] != connector.FlowCompleteAuthorize {
			t.Errorf("flows = %v, want trailing complete-authorize", flows)
		}
	})

	t.Run("should fail the attempt without a call when the challenge failed", func(t *testing.T) {
		td := newTestDeps()
		paymentID := redirectedPayment(t, td)
		td.redirect.action = connector.StatusUpdateAction(model.AttemptStatusAuthenticationFailed, "auth_failed", "authentication was rejected")
		before := len(td.integ.calledFlows())

		res, err := td.executor.CompleteRedirect(ctx, "m1", paymentID, "testpay", url.Values{}, payload)
		if err != nil {
			t.Fatalf("CompleteRedirect() error = %v", err)
		}
		if got := len(td.integ.calledFlows()); got != before {
			t.Errorf("proven failure must not transmit, flows grew %d -> %d", before, got)
		}
		if res.Intent.Status != model.IntentStatusFailed {
			t.Errorf("intent status = %s, want %s", res.Intent.Status, model.IntentStatusFailed)
		}
	})

	t.Run("should reject an undecodable challenge payload", func(t *testing.T) {
		td := newTestDeps()
		paymentID := redirectedPayment(t, td)
		td.redirect.err = errors.New("bad base64")

		_, err := td.executor.CompleteRedirect(ctx, "m1", paymentID, "testpay", url.Values{}, []byte("{"))
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("CompleteRedirect() error = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("should reject an unknown connector", func(t *testing.T) {
		td := newTestDeps()
		_, err := td.executor.CompleteRedirect(ctx, "m1", "pay_1", "ghostpay", url.Values{}, payload)
		var notSupported *domain.NotSupportedError
		if !errors.As(err, &notSupported) {
			t.Fatalf("CompleteRedirect() error = %v, want NotSupportedError", err)
		}
	})
}
