// File: internal/connector/integration.go
package connector

import "context"

// Pretask is one step of the ordered pre-call sequence some flows need
// (e.g. obtain a session token, then run a 3DS enrollment check). Pretasks
// run strictly sequentially; the first failure aborts the outer flow. Each
// step writes its result back into the outer call context. The executor is
// passed in so a pretask can run its own sub-call through the same
// transport.
type Pretask func(ctx context.Context, exec *Executor, call *CallContext) error

// Integration is the uniform capability contract every external-processor
// adapter implements. The pipeline only ever talks through this contract,
// never against a connector's wire format.
type Integration interface {
	// Name is the connector identifier used in routing and registry lookup.
	Name() string

	ContentType() string

	// SupportsFlow classifies the flow for this connector.
	SupportsFlow(flow Flow) FlowSupport

	// AuthHeaders builds the authentication headers from the credential
	// snapshot in the call context.
	AuthHeaders(call *CallContext) (map[string]string, error)

	// Headers assembles common plus per-flow headers.
	Headers(flow Flow, call *CallContext) (map[string]string, error)

	// URL builds the full request URL for the flow.
	URL(flow Flow, call *CallContext) (string, error)

	// RequestBody is the pure transform from internal context to the
	// connector's wire payload.
	RequestBody(flow Flow, call *CallContext) ([]byte, error)

	// BuildRequest assembles the complete wire request.
	BuildRequest(flow Flow, call *CallContext) (*Request, error)

	// Pretasks returns the ordered pre-call steps for the flow, usually nil.
	Pretasks(flow Flow) []Pretask

	// HandleResponse parses a 2xx wire payload into the normalized
	// success/error union.
	HandleResponse(flow Flow, call *CallContext, res *HTTPResponse) (*Outcome, error)

	// ErrorBody extracts a structured error from a non-2xx body.
	ErrorBody(res *HTTPResponse) ErrorResponse
}

// BuildJSONRequest is the default request assembly shared by adapters:
// POST, content-type plus auth plus per-flow headers, URL and body from the
// respective capabilities.
func BuildJSONRequest(integ Integration, flow Flow, call *CallContext) (*Request, error) {
	u, err := integ.URL(flow, call)
	if err != nil {
		return nil, err
	}
	body, err := integ.RequestBody(flow, call)
	if err != nil {
		return nil, err
	}
	headers, err := integ.Headers(flow, call)
	if err != nil {
		return nil, err
	}
	return &Request{
		Method:  "POST",
		URL:     u,
		Headers: headers,
		Body:    body,
	}, nil
}

// MergeHeaders folds auth headers over common headers; later maps win.
func MergeHeaders(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
