// File: internal/pipeline/redirect.go
package pipeline

import (
	"context"
	"encoding/json"
	"net/url"

	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
)

// CompleteRedirect resumes a payment after the customer returns from the
// bank. The adapter decides from the posted payload whether the challenge
// already failed; a proven failure short-circuits the connector call to a
// status update.
func (e *Executor) CompleteRedirect(ctx context.Context, merchantID, paymentID, connectorName string, query url.Values, payload json.RawMessage) (*RunResult, error) {
	adapter, err := e.deps.Adapters.Get(connectorName)
	if err != nil {
		return nil, domain.NewNotSupported("connector " + connectorName + " is not available")
	}

	action := connector.TriggerAction()
	if adapter.Redirect != nil {
		action, err = adapter.Redirect.ResolveRedirect(connector.ActionCompleteAuthorize, query, payload)
		if err != nil {
			return nil, domain.NewInvalidDataFormat("redirect_response", "decodable challenge response payload")
		}
	}

	req := &Request{
		MerchantID:      merchantID,
		PaymentID:       paymentID,
		Resume:          true,
		RedirectPayload: payload,
	}
	return e.Run(ctx, VerbConfirm, req, action)
}
