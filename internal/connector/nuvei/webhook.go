// File: internal/connector/nuvei/webhook.go
package nuvei

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain/model"
)

// DMN query parameter names.
const (
	paramTotalAmount       = "totalAmount"
	paramCurrency          = "currency"
	paramResponseTimeStamp = "responseTimeStamp"
	paramPPPTransactionID  = "ppp_TransactionID"
	paramStatus            = "Status"
	paramProductID         = "productId"
	paramTransactionID     = "TransactionId"
	paramErrCode           = "ErrCode"
	paramReason            = "Reason"

	checksumHeader = "advanceResponseChecksum"
)

// WebhookHandler implements DMN (direct merchant notification) handling.
// Nuvei encodes the event fields as query parameters and signs them with a
// plain SHA-256 over the secret-prefixed field concatenation.
type WebhookHandler struct{}

var _ connector.WebhookHandler = (*WebhookHandler)(nil)

func (*WebhookHandler) VerificationAlgorithm(_ *connector.WebhookEnvelope) (connector.SignatureAlgorithm, error) {
	return connector.Sha256Signature{}, nil
}

func (*WebhookHandler) Signature(env *connector.WebhookEnvelope, _ string) ([]byte, error) {
	raw := env.Headers.Get(checksumHeader)
	if raw == "" {
		return nil, fmt.Errorf("%w: missing %s header", connector.ErrWebhookSourceVerification, checksumHeader)
	}
	sig, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", connector.ErrWebhookResponseEncodingFailed, err)
	}
	return sig, nil
}

// SignedMessage rebuilds the exact byte sequence Nuvei signed: the secret
// followed by amount, currency, timestamp, transaction id, uppercased
// status and product id, in that order, no separators.
func (*WebhookHandler) SignedMessage(env *connector.WebhookEnvelope, secret string) ([]byte, error) {
	q := env.Query
	if !q.Has(paramPPPTransactionID) {
		return nil, fmt.Errorf("%w: missing %s", connector.ErrWebhookBodyDecodingFailed, paramPPPTransactionID)
	}
	msg := secret +
		q.Get(paramTotalAmount) +
		q.Get(paramCurrency) +
		q.Get(paramResponseTimeStamp) +
		q.Get(paramPPPTransactionID) +
		strings.ToUpper(q.Get(paramStatus)) +
		q.Get(paramProductID)
	return []byte(msg), nil
}

func (*WebhookHandler) ObjectReference(env *connector.WebhookEnvelope) (connector.ObjectReference, error) {
	id := env.Query.Get(paramPPPTransactionID)
	if id == "" {
		return connector.ObjectReference{}, fmt.Errorf("%w: missing %s", connector.ErrWebhookBodyDecodingFailed, paramPPPTransactionID)
	}
	return connector.ObjectReference{ConnectorTransactionID: id}, nil
}

func (*WebhookHandler) EventKind(env *connector.WebhookEnvelope) (connector.WebhookEventKind, error) {
	switch strings.ToUpper(env.Query.Get(paramStatus)) {
	case statusApproved:
		return connector.WebhookEventSuccess, nil
	case statusDeclined:
		return connector.WebhookEventFailure, nil
	default:
		return connector.WebhookEventNotSupported, nil
	}
}

func (*WebhookHandler) ResourceObject(env *connector.WebhookEnvelope) (*connector.TransactionResponse, error) {
	q := env.Query
	id := q.Get(paramPPPTransactionID)
	if id == "" {
		return nil, fmt.Errorf("%w: missing %s", connector.ErrWebhookBodyDecodingFailed, paramPPPTransactionID)
	}
	status := model.AttemptStatusPending
	switch strings.ToUpper(q.Get(paramStatus)) {
	case statusApproved:
		status = model.AttemptStatusCharged
	case statusDeclined:
		status = model.AttemptStatusFailure
	}
	return &connector.TransactionResponse{
		ResourceID: id,
		Status:     status,
	}, nil
}

// redirectionResponse is the form the ACS posts back to the return URL.
type redirectionResponse struct {
	CRes string `json:"cres"`
}

// acsResponse is the challenge outcome embedded in the base64 cres blob.
// A nil transStatus means the challenge never completed.
type acsResponse struct {
	TransStatus *string `json:"transStatus"`
}

const liabilityShiftFailed = "N"

// ResolveRedirect inspects the post-redirect payload: a failed or absent
// challenge result is terminal without another gateway round-trip, anything
// else goes back to the gateway for the real status.
func (n *Nuvei) ResolveRedirect(action connector.PaymentAction, _ url.Values, payload json.RawMessage) (connector.CallAction, error) {
	if action != connector.ActionCompleteAuthorize || len(payload) == 0 {
		return connector.TriggerAction(), nil
	}
	var redirect redirectionResponse
	if err := json.Unmarshal(payload, &redirect); err != nil {
		return connector.CallAction{}, fmt.Errorf("nuvei: decoding redirect payload: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(redirect.CRes)
	if err != nil {
		return connector.CallAction{}, fmt.Errorf("nuvei: decoding cres: %w", err)
	}
	var acs acsResponse
	if err := json.Unmarshal(raw, &acs); err != nil {
		return connector.CallAction{}, fmt.Errorf("nuvei: decoding acs response: %w", err)
	}
	if acs.TransStatus == nil || *acs.TransStatus == liabilityShiftFailed {
		return connector.StatusUpdateAction(model.AttemptStatusAuthenticationFailed, "", ""), nil
	}
	return connector.TriggerAction(), nil
}

var _ connector.RedirectHandler = (*Nuvei)(nil)
