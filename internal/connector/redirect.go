// File: internal/connector/redirect.go
package connector

import (
	"encoding/json"
	"net/url"

	"payment-orchestration-core/internal/domain/model"
)

// PaymentAction names the pipeline verb resuming after a redirect.
type PaymentAction string

const (
	ActionSync              PaymentAction = "sync"
	ActionCompleteAuthorize PaymentAction = "complete_authorize"
)

// CallAction decides how the pipeline proceeds after a redirect: re-query
// the connector (Trigger) or short-circuit to a terminal status without a
// network round-trip (StatusUpdate).
type CallAction struct {
	Trigger      bool
	Status       model.AttemptStatus
	ErrorCode    string
	ErrorMessage string
}

// TriggerAction re-queries the connector for the real status.
func TriggerAction() CallAction { return CallAction{Trigger: true} }

// StatusUpdateAction short-circuits to the given status.
func StatusUpdateAction(status model.AttemptStatus, code, message string) CallAction {
	return CallAction{Status: status, ErrorCode: code, ErrorMessage: message}
}

// RedirectHandler is the redirect-resolution sub-contract: given the
// post-redirect payload, decide whether the embedded challenge response
// already proves a terminal failure.
type RedirectHandler interface {
	ResolveRedirect(action PaymentAction, query url.Values, payload json.RawMessage) (CallAction, error)
}
