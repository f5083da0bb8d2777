// File: internal/pipeline/create_test.go
package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
)

func createReq() *Request {
	amount := int64(1500)
	return &Request{
		MerchantID:    "m1",
		Amount:        &amount,
		Currency:      "USD",
		CaptureMethod: model.CaptureMethodAutomatic,
	}
}

func testCard() *connector.CardData {
	return &connector.CardData{
		Number:      "4111111111111111",
		ExpiryMonth: "12",
		ExpiryYear:  "2030",
		CVC:         "737",
		HolderName:  "J Doe",
	}
}

func TestCreateOperation(t *testing.T) {
	ctx := context.Background()

	t.Run("should open intent and attempt awaiting a payment method", func(t *testing.T) {
		td := newTestDeps()

		res, err := td.executor.Run(ctx, VerbCreate, createReq(), connector.TriggerAction())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !strings.HasPrefix(res.Intent.ID, "pay_") {
			t.Errorf("payment id = %q, want pay_ prefix", res.Intent.ID)
		}
		if res.Intent.Status != model.IntentStatusRequiresPaymentMethod {
			t.Errorf("intent status = %s, want %s", res.Intent.Status, model.IntentStatusRequiresPaymentMethod)
		}
		if res.Attempt.Status != model.AttemptStatusPaymentMethodAwaited {
			t.Errorf("attempt status = %s, want %s", res.Attempt.Status, model.AttemptStatusPaymentMethodAwaited)
		}

		stored, err := td.intents.FindByPaymentIDMerchantID(ctx, res.Intent.ID, "m1", model.StorageSchemePostgresOnly)
		if err != nil {
			t.Fatalf("stored intent: %v", err)
		}
		if stored.ActiveAttemptID != res.Attempt.AttemptID {
			t.Errorf("active attempt = %q, want %q", stored.ActiveAttemptID, res.Attempt.AttemptID)
		}
		if _, err := td.attempts.FindByPaymentIDMerchantIDAttemptID(ctx, res.Intent.ID, "m1", res.Attempt.AttemptID, model.StorageSchemePostgresOnly); err != nil {
			t.Errorf("stored attempt: %v", err)
		}
		if len(td.integ.calledFlows()) != 0 {
			t.Errorf("create must not call the connector, flows = %v", td.integ.calledFlows())
		}
	})

	t.Run("should await confirmation when an instrument is present", func(t *testing.T) {
		td := newTestDeps()
		req := createReq()
		req.Card = testCard()
		req.PaymentMethod = model.PaymentMethodTypeCard

		res, err := td.executor.Run(ctx, VerbCreate, req, connector.TriggerAction())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Intent.Status != model.IntentStatusRequiresConfirmation {
			t.Errorf("intent status = %s, want %s", res.Intent.Status, model.IntentStatusRequiresConfirmation)
		}
		if res.Attempt.Status != model.AttemptStatusConfirmationAwaited {
			t.Errorf("attempt status = %s, want %s", res.Attempt.Status, model.AttemptStatusConfirmationAwaited)
		}
	})

	t.Run("should reject a duplicate payment id", func(t *testing.T) {
		td := newTestDeps()
		req := createReq()
		req.PaymentID = "pay_dup"

		if _, err := td.executor.Run(ctx, VerbCreate, req, connector.TriggerAction()); err != nil {
			t.Fatalf("first Run() error = %v", err)
		}
		_, err := td.executor.Run(ctx, VerbCreate, createReqWithID("pay_dup"), connector.TriggerAction())
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("Run() error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("should reject malformed fields before any write", func(t *testing.T) {
		zero := int64(0)
		tooMuch := int64(2000)
		cases := []struct {
			name   string
			mutate func(*Request)
		}{
			{"missing amount", func(r *Request) { r.Amount = nil }},
			{"zero amount", func(r *Request) { r.Amount = &zero }},
			{"lowercase currency", func(r *Request) { r.Currency = "usd" }},
			{"long currency", func(r *Request) { r.Currency = "USDT" }},
			{"capture above amount", func(r *Request) { r.AmountToCapture = &tooMuch }},
			{"requeue on create", func(r *Request) { r.Requeue = true }},
			{"mandate id plus consent setup", func(r *Request) {
				r.MandateID = "man_1"
				r.MandateDetails = &model.MandateDetails{CustomerAcceptance: true}
			}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				td := newTestDeps()
				req := createReq()
				tc.mutate(req)

				_, err := td.executor.Run(ctx, VerbCreate, req, connector.TriggerAction())
				if !errors.Is(err, domain.ErrInvalidArgument) {
					t.Fatalf("Run() error = %v, want ErrInvalidArgument", err)
				}
				if len(td.intents.store) != 0 || len(td.attempts.store) != 0 {
					t.Errorf("validation failure must not write trackers")
				}
			})
		}
	})

	t.Run("should fail for a missing mandate reference", func(t *testing.T) {
		td := newTestDeps()
		req := createReq()
		req.MandateID = "man_ghost"

		_, err := td.executor.Run(ctx, VerbCreate, req, connector.TriggerAction())
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("Run() error = %v, want mandate validation failure", err)
		}
	})

	t.Run("should reject recurring details with no usable reference", func(t *testing.T) {
		td := newTestDeps()
		req := createReq()
		req.RecurringDetails = &model.MandateReferenceID{}

		_, err := td.executor.Run(ctx, VerbCreate, req, connector.TriggerAction())
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("Run() error = %v, want mandate validation failure", err)
		}
	})

	t.Run("should create the customer alongside the intent", func(t *testing.T) {
		td := newTestDeps()
		req := createReq()
		req.CustomerID = "cus_1"
		req.Email = "payer@example.com"

		res, err := td.executor.Run(ctx, VerbCreate, req, connector.TriggerAction())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Intent.CustomerID != "cus_1" {
			t.Errorf("intent customer = %q, want cus_1", res.Intent.CustomerID)
		}
		customer, err := td.customers.FindByCustomerIDMerchantID(ctx, "cus_1", "m1", model.StorageSchemePostgresOnly)
		if err != nil {
			t.Fatalf("stored customer: %v", err)
		}
		if customer.Email != "payer@example.com" {
			t.Errorf("customer email = %q", customer.Email)
		}
	})

	t.Run("should persist billing and shipping addresses on the intent", func(t *testing.T) {
		td := newTestDeps()
		req := createReq()
		req.BillingAddress = &model.Address{City: "Berlin", Country: "DE"}
		req.ShippingAddress = &model.Address{City: "Paris", Country: "FR"}

		res, err := td.executor.Run(ctx, VerbCreate, req, connector.TriggerAction())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Intent.BillingAddressID == "" || res.Intent.ShippingAddressID == "" {
			t.Fatalf("address ids missing: billing=%q shipping=%q", res.Intent.BillingAddressID, res.Intent.ShippingAddressID)
		}
		billing, err := td.addresses.FindByID(ctx, res.Intent.BillingAddressID, model.StorageSchemePostgresOnly)
		if err != nil {
			t.Fatalf("stored billing address: %v", err)
		}
		if billing.City != "Berlin" || billing.PaymentID != res.Intent.ID {
			t.Errorf("billing address = %+v", billing)
		}
	})

	t.Run("should hand off to confirm when confirm is set", func(t *testing.T) {
		td := newTestDeps()
		req := createReq()
		req.Card = testCard()
		req.PaymentMethod = model.PaymentMethodTypeCard
		req.Confirm = true

		res, err := td.executor.Run(ctx, VerbCreate, req, connector.TriggerAction())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		flows := td.integ.calledFlows()
		if len(flows) != 1 || flows[0] != connector.FlowAuthorize {
			t.Fatalf("flows = %v, want [%s]", flows, connector.FlowAuthorize)
		}
		if res.Attempt.Status != model.AttemptStatusCharged {
			t.Errorf("attempt status = %s, want %s", res.Attempt.Status, model.AttemptStatusCharged)
		}
		if res.Intent.Status != model.IntentStatusSucceeded {
			t.Errorf("intent status = %s, want %s", res.Intent.Status, model.IntentStatusSucceeded)
		}
		if res.Attempt.Connector != "testpay" {
			t.Errorf("attempt connector = %q, want testpay", res.Attempt.Connector)
		}
		if res.Attempt.ConnectorTransaction != "txn_1" {
			t.Errorf("connector transaction = %q, want txn_1", res.Attempt.ConnectorTransaction)
		}
	})
}

func createReqWithID(paymentID string) *Request {
	req := createReq()
	req.PaymentID = paymentID
	return req
}
