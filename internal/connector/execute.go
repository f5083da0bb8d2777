// File: internal/connector/execute.go
package connector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"payment-orchestration-core/internal/infra/metrics"
)

// Executor drives one adapter call: pretasks, request assembly, transport,
// and response handling. The raw response always reaches the observability
// hook, whether or not it parses.
type Executor struct {
	client *http.Client
	log    *zerolog.Logger
}

func NewExecutor(logger *zerolog.Logger) *Executor {
	return &Executor{
		client: &http.Client{Timeout: 30 * time.Second},
		log:    logger,
	}
}

// NewExecutorWithClient is used by tests to stub transport.
func NewExecutorWithClient(client *http.Client, logger *zerolog.Logger) *Executor {
	return &Executor{client: client, log: logger}
}

// Execute runs the flow named in the call context through the adapter and
// fills the pending-outcome slot. action lets a redirect resolution
// short-circuit to a terminal status without a network round-trip.
// Cancellation of an in-flight call never retries already-sent side
// effects; retries are the caller's explicit, requeue-gated decision.
func (e *Executor) Execute(ctx context.Context, integ Integration, call *CallContext, action CallAction) error {
	flow := call.Flow

	if !action.Trigger && action.Status != "" {
		call.Outcome = Outcome{Response: &TransactionResponse{Status: action.Status}}
		if action.ErrorCode != "" {
			call.Outcome = Outcome{Error: &ErrorResponse{Code: action.ErrorCode, Message: action.ErrorMessage}}
		}
		metrics.IncConnectorCall(call.Connector, string(flow), "status_update")
		return nil
	}

	switch integ.SupportsFlow(flow) {
	case FlowNoOp:
		call.Outcome = Outcome{Response: &TransactionResponse{Status: call.Attempt.Status}}
		metrics.IncConnectorCall(call.Connector, string(flow), "noop")
		return nil
	case FlowNotImplemented:
		metrics.IncConnectorCall(call.Connector, string(flow), "not_implemented")
		return NewNotImplemented(flow, integ.Name())
	}

	// Pretasks run strictly sequentially, each writing back into the outer
	// context; the first failure aborts the flow. Forward-only, no
	// compensation.
	for _, task := range integ.Pretasks(flow) {
		if err := task(ctx, e, call); err != nil {
			metrics.IncConnectorCall(call.Connector, string(flow), "pretask_failed")
			return fmt.Errorf("pretask for %s/%s: %w", integ.Name(), flow, err)
		}
	}

	req, err := integ.BuildRequest(flow, call)
	if err != nil {
		return fmt.Errorf("build request for %s/%s: %w", integ.Name(), flow, err)
	}

	start := time.Now()
	res, err := e.roundTrip(ctx, req)
	metrics.ObserveConnectorLatency(call.Connector, string(flow), float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.IncConnectorCall(call.Connector, string(flow), "transport_error")
		return fmt.Errorf("call %s/%s: %w", integ.Name(), flow, err)
	}

	// Observability hook: the raw response is recorded regardless of
	// whether parsing succeeds.
	e.log.Debug().
		Str("connector", call.Connector).
		Str("flow", string(flow)).
		Int("http_status", res.StatusCode).
		Bytes("connector_response", res.Body).
		Msg("connector response")

	if !res.Ok() {
		errRes := integ.ErrorBody(res)
		errRes.StatusCode = res.StatusCode
		call.Outcome = Outcome{Error: &errRes}
		metrics.IncConnectorCall(call.Connector, string(flow), "declined")
		return nil
	}

	outcome, err := integ.HandleResponse(flow, call, res)
	if err != nil {
		metrics.IncConnectorCall(call.Connector, string(flow), "parse_error")
		return fmt.Errorf("%s/%s: %w", integ.Name(), flow, ErrResponseHandlingFailed)
	}
	call.Outcome = *outcome

	outcomeLabel := "ok"
	if outcome.Error != nil {
		outcomeLabel = "declined"
	}
	metrics.IncConnectorCall(call.Connector, string(flow), outcomeLabel)
	return nil
}

func (e *Executor) roundTrip(ctx context.Context, req *Request) (*HTTPResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	e.log.Trace().Str("url", req.URL).Msg("connector round trip")
	return &HTTPResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}
