// File: internal/connector/nuvei/nuvei.go
// Package nuvei adapts the Nuvei payment gateway to the adapter protocol.
// Nuvei authenticates per request with a checksum embedded in the signed
// body, requires a session token before every payment flow, and runs an
// extra 3DS enrollment call for three-ds card payments.
package nuvei

import (
	"context"
	"encoding/json"
	"fmt"

	"payment-orchestration-core/internal/connector"
)

const connectorName = "nuvei"

type Nuvei struct{}

var _ connector.Integration = (*Nuvei)(nil)

func New() *Nuvei { return &Nuvei{} }

// NewAdapter bundles the integration with its webhook and redirect
// handlers for registry wiring.
func NewAdapter() connector.Adapter {
	n := New()
	return connector.Adapter{
		Integration: n,
		Webhook:     &WebhookHandler{},
		Redirect:    n,
	}
}

func (n *Nuvei) Name() string { return connectorName }

func (n *Nuvei) ContentType() string { return "application/json" }

func (n *Nuvei) SupportsFlow(flow connector.Flow) connector.FlowSupport {
	switch flow {
	case connector.FlowAuthorize,
		connector.FlowSessionToken,
		connector.FlowInitPayment,
		connector.FlowCompleteAuthorize,
		connector.FlowCapture,
		connector.FlowVoid,
		connector.FlowSync:
		return connector.FlowSupported
	case connector.FlowTokenize:
		// Instrument tokens come back on the payment response itself.
		return connector.FlowNoOp
	default:
		return connector.FlowNotImplemented
	}
}

// AuthHeaders is empty: credentials ride inside the checksummed body.
func (n *Nuvei) AuthHeaders(_ *connector.CallContext) (map[string]string, error) {
	return nil, nil
}

func (n *Nuvei) Headers(_ connector.Flow, call *connector.CallContext) (map[string]string, error) {
	auth, err := n.AuthHeaders(call)
	if err != nil {
		return nil, err
	}
	return connector.MergeHeaders(map[string]string{"Content-Type": n.ContentType()}, auth), nil
}

func (n *Nuvei) URL(flow connector.Flow, call *connector.CallContext) (string, error) {
	var endpoint string
	switch flow {
	case connector.FlowSessionToken:
		endpoint = "getSessionToken.do"
	case connector.FlowAuthorize, connector.FlowCompleteAuthorize:
		endpoint = "payment.do"
	case connector.FlowInitPayment:
		endpoint = "initPayment.do"
	case connector.FlowCapture:
		endpoint = "settleTransaction.do"
	case connector.FlowVoid:
		endpoint = "voidTransaction.do"
	case connector.FlowSync:
		endpoint = "getPaymentStatus.do"
	default:
		return "", connector.NewNotImplemented(flow, connectorName)
	}
	return fmt.Sprintf("%sppp/api/v1/%s", call.BaseURL, endpoint), nil
}

func (n *Nuvei) RequestBody(flow connector.Flow, call *connector.CallContext) ([]byte, error) {
	var req interface{}
	var err error
	switch flow {
	case connector.FlowSessionToken:
		req, err = buildSessionRequest(call)
	case connector.FlowAuthorize, connector.FlowInitPayment, connector.FlowCompleteAuthorize:
		req, err = buildPaymentsRequest(call)
	case connector.FlowCapture:
		amount := call.Request.AmountToCapture
		if amount == 0 {
			amount = call.Request.Amount
		}
		req, err = buildFlowRequest(call, amount)
	case connector.FlowVoid:
		req, err = buildFlowRequest(call, call.Request.Amount)
	case connector.FlowSync:
		req = &syncRequest{SessionToken: call.SessionToken}
	default:
		return nil, connector.NewNotImplemented(flow, connectorName)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(req)
}

func (n *Nuvei) BuildRequest(flow connector.Flow, call *connector.CallContext) (*connector.Request, error) {
	return connector.BuildJSONRequest(n, flow, call)
}

func (n *Nuvei) Pretasks(flow connector.Flow) []connector.Pretask {
	switch flow {
	case connector.FlowAuthorize:
		return []connector.Pretask{n.fetchSessionToken, n.check3DSEnrollment}
	case connector.FlowCompleteAuthorize, connector.FlowSync:
		return []connector.Pretask{n.fetchSessionToken}
	default:
		return nil
	}
}

// fetchSessionToken runs the session sub-call and writes the token back
// into the outer context; every payment flow rides on that token.
func (n *Nuvei) fetchSessionToken(ctx context.Context, exec *connector.Executor, call *connector.CallContext) error {
	sub := *call
	sub.Flow = connector.FlowSessionToken
	sub.Outcome = connector.Outcome{}
	if err := exec.Execute(ctx, n, &sub, connector.TriggerAction()); err != nil {
		return err
	}
	if !sub.Outcome.Succeeded() {
		return fmt.Errorf("nuvei: session token refused: %s", sub.Outcome.Error.Message)
	}
	call.SessionToken = sub.Outcome.Response.SessionToken
	return nil
}

// check3DSEnrollment runs the initPayment sub-call for three-ds card
// payments and writes the enrollment verdict and the transaction to chain
// onto back into the outer context. Non-three-ds and non-card attempts
// skip it.
func (n *Nuvei) check3DSEnrollment(ctx context.Context, exec *connector.Executor, call *connector.CallContext) error {
	if call.Attempt.AuthenticationType != "three_ds" || call.Request.Card == nil {
		return nil
	}
	sub := *call
	sub.Flow = connector.FlowInitPayment
	sub.Outcome = connector.Outcome{}
	if err := exec.Execute(ctx, n, &sub, connector.TriggerAction()); err != nil {
		return err
	}
	if !sub.Outcome.Succeeded() {
		return fmt.Errorf("nuvei: 3ds enrollment check refused: %s", sub.Outcome.Error.Message)
	}
	call.Request.EnrolledFor3DS = sub.Outcome.Response.Enrolled3DS
	call.Request.RelatedTransactionID = sub.Outcome.Response.RelatedTxnID
	return nil
}

func (n *Nuvei) HandleResponse(flow connector.Flow, call *connector.CallContext, res *connector.HTTPResponse) (*connector.Outcome, error) {
	if flow == connector.FlowSessionToken {
		var body sessionResponse
		if err := json.Unmarshal(res.Body, &body); err != nil {
			return nil, fmt.Errorf("%w: %v", connector.ErrResponseHandlingFailed, err)
		}
		if body.Status == statusError || body.SessionToken == "" {
			return &connector.Outcome{Error: &connector.ErrorResponse{
				StatusCode: res.StatusCode,
				Code:       fmt.Sprintf("%d", body.ErrCode),
				Message:    body.Reason,
			}}, nil
		}
		return &connector.Outcome{Response: &connector.TransactionResponse{
			SessionToken: body.SessionToken,
			Status:       call.Attempt.Status,
		}}, nil
	}

	var body paymentsResponse
	if err := json.Unmarshal(res.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", connector.ErrResponseHandlingFailed, err)
	}
	// Top-level ERROR means the request never reached the gateway logic;
	// a declined transactionStatus is still a parsed transaction.
	if body.Status == statusError {
		return &connector.Outcome{Error: body.errorResponse(res.StatusCode)}, nil
	}
	return &connector.Outcome{Response: body.transactionResponse(flow)}, nil
}

func (n *Nuvei) ErrorBody(res *connector.HTTPResponse) connector.ErrorResponse {
	var body paymentsResponse
	if err := json.Unmarshal(res.Body, &body); err != nil {
		return connector.ErrorResponse{
			StatusCode: res.StatusCode,
			Message:    string(res.Body),
		}
	}
	return *body.errorResponse(res.StatusCode)
}
