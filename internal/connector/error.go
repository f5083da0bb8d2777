package connector

import (
	"errors"
	"fmt"
)

// Adapter-facing error taxonomy. These never leak to callers of the
// pipeline; the executor translates them at the boundary.
var (
	ErrResponseHandlingFailed        = errors.New("connector response handling failed")
	ErrWebhookBodyDecodingFailed     = errors.New("webhook body decoding failed")
	ErrWebhookResponseEncodingFailed = errors.New("webhook response encoding failed")
	ErrWebhookSourceVerification     = errors.New("webhook source verification failed")
)

// NotImplementedError marks a flow the adapter knows about but does not
// support for this connector.
type NotImplementedError struct {
	Flow      Flow
	Connector string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s flow is not implemented for %s", e.Flow, e.Connector)
}

func NewNotImplemented(flow Flow, connector string) *NotImplementedError {
	return &NotImplementedError{Flow: flow, Connector: connector}
}

// IsNotImplemented reports whether err is a flow capability gap.
func IsNotImplemented(err error) bool {
	var nie *NotImplementedError
	return errors.As(err, &nie)
}
