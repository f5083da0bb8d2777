// File: internal/pipeline/executor.go
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"payment-orchestration-core/internal/config"
	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/ports/repository"
	"payment-orchestration-core/internal/infra/logging"
	"payment-orchestration-core/internal/infra/metrics"
	"payment-orchestration-core/internal/reconcile"
	"payment-orchestration-core/internal/routing"
)

// Blocklist is the fraud guard consulted before any authorization leaves
// the building. The default allows everything.
type Blocklist interface {
	Blocked(ctx context.Context, merchantID string, req *Request) (bool, error)
}

type allowAll struct{}

func (allowAll) Blocked(context.Context, string, *Request) (bool, error) { return false, nil }

// AllowAllBlocklist is the default guard.
var AllowAllBlocklist Blocklist = allowAll{}

// Deps is the collaborator snapshot handed to every stage. It is built
// once at startup; operations never reach for ambient state.
type Deps struct {
	Intents            repository.IntentRepository
	Attempts           repository.AttemptRepository
	Mandates           repository.MandateRepository
	Methods            repository.PaymentMethodRepository
	Customers          repository.CustomerRepository
	Addresses          repository.AddressRepository
	Merchants          repository.MerchantRepository
	MerchantConnectors repository.MerchantConnectorRepository

	Router    *routing.Engine
	Evaluator *routing.Evaluator

	Adapters *connector.Registry
	Calls    *connector.Executor

	Reconciler *reconcile.Reconciler
	Guard      Blocklist

	Cfg *config.Config
	Log *zerolog.Logger
}

// maxHandoffs bounds verb-to-verb advancement; the longest legal chain is
// create -> confirm.
const maxHandoffs = 3

type Executor struct {
	registry *Registry
	deps     *Deps
}

func NewExecutor(registry *Registry, deps *Deps) *Executor {
	if deps.Guard == nil {
		deps.Guard = AllowAllBlocklist
	}
	return &Executor{registry: registry, deps: deps}
}

// Run executes one lifecycle verb end to end, following explicit verb
// handoffs. The call action lets a redirect resolution short-circuit the
// adapter call to a status update.
func (e *Executor) Run(ctx context.Context, verb Verb, req *Request, action connector.CallAction) (*RunResult, error) {
	ctx = logging.WithMerchantID(ctx, req.MerchantID)

	for hop := 0; hop < maxHandoffs; hop++ {
		op, err := e.registry.Get(verb)
		if err != nil {
			return nil, err
		}
		log := logging.With(ctx, e.deps.Log).With().Str("verb", string(verb)).Logger()

		vr, err := op.ValidateRequest(ctx, req)
		if err != nil {
			metrics.IncOperation(string(verb), "validation_failed")
			return nil, err
		}
		ctx := logging.WithPaymentID(ctx, vr.PaymentID)

		trk, next, err := op.GetTrackers(ctx, e.deps, req, vr)
		if err != nil {
			metrics.IncOperation(string(verb), "tracker_failed")
			return nil, err
		}
		if next.Advances() {
			log.Debug().Str("next_verb", string(next.Next())).Msg("operation handoff")
			verb = next.Next()
			continue
		}

		flow, err := op.Domain(ctx, e.deps, req, trk)
		if err != nil {
			metrics.IncOperation(string(verb), "domain_failed")
			return nil, err
		}

		if flow != "" {
			if err := e.callConnector(ctx, &log, req, trk, flow, action); err != nil {
				metrics.IncOperation(string(verb), "connector_failed")
				return nil, err
			}
			e.reconcileInstrument(ctx, &log, req, trk)
		}

		next, err = op.UpdateTrackers(ctx, e.deps, req, trk)
		if err != nil {
			metrics.IncOperation(string(verb), "persist_failed")
			return nil, err
		}
		metrics.IncOperation(string(verb), "success")

		if next.Advances() {
			verb = next.Next()
			// A handoff after persistence starts a fresh adapter call.
			action = connector.TriggerAction()
			continue
		}
		return resultFrom(trk), nil
	}
	return nil, fmt.Errorf("%w: operation handoff limit reached", domain.ErrInternalServer)
}

// callConnector builds the per-call context, runs the adapter through the
// protocol and translates adapter failures into user-facing errors. Raw
// transport errors never leave this method.
func (e *Executor) callConnector(ctx context.Context, log *zerolog.Logger, req *Request, trk *Trackers, flow connector.Flow, action connector.CallAction) error {
	if trk.Attempt.Connector == "" {
		return fmt.Errorf("%w: attempt %s has no connector", domain.ErrMissingActiveFlow, trk.Attempt.AttemptID)
	}
	adapter, err := e.deps.Adapters.Get(trk.Attempt.Connector)
	if err != nil {
		return domain.NewNotSupported("connector " + trk.Attempt.Connector + " is not available")
	}

	call := buildCallContext(e.deps.Cfg, req, trk, flow)
	if err := e.deps.Calls.Execute(ctx, adapter.Integration, call, action); err != nil {
		if connector.IsNotImplemented(err) {
			return domain.NewNotSupported(fmt.Sprintf("%s is not supported by %s", flow, trk.Attempt.Connector))
		}
		log.Error().Err(err).Str("flow", string(flow)).Msg("connector call failed")
		return fmt.Errorf("%w: connector call did not complete", domain.ErrOperationFailed)
	}
	trk.Call = call
	return nil
}

// reconcileInstrument runs payment-method reconciliation after a
// consent-capturing success. Its failure flags the instrument save as
// failed and nothing else: the charge already happened.
func (e *Executor) reconcileInstrument(ctx context.Context, log *zerolog.Logger, req *Request, trk *Trackers) {
	if !trk.CaptureConsent || trk.Call == nil || !trk.Call.Outcome.Succeeded() {
		return
	}
	in := &reconcile.Input{
		MerchantID:             req.MerchantID,
		CustomerID:             trk.Intent.CustomerID,
		Connector:              trk.Attempt.Connector,
		MerchantConnectorID:    trk.Attempt.MerchantConnectorID,
		Attempt:                trk.Attempt,
		Response:               trk.Call.Outcome.Response,
		Card:                   req.Card,
		SetupFutureUsage:       trk.Intent.SetupFutureUsage,
		OffSession:             req.OffSession,
		HasSetupMandateDetails: trk.HasSetupMandateDetails,
		ConnectorAgnosticMIT:   trk.Merchant.ConnectorAgnosticMIT,
		Scheme:                 trk.Scheme,
	}
	res, err := e.deps.Reconciler.SavePaymentMethod(ctx, in)
	if err != nil {
		log.Error().Err(err).Msg("instrument save failed after successful charge")
		trk.InstrumentSaveFailed = true
		return
	}
	trk.PaymentMethodID = res.PaymentMethodID
	trk.SingleUseToken = res.SingleUseToken
}

// translateStoreErr keeps not-found semantics and hides everything else
// behind the internal sentinel.
func translateStoreErr(err error, subject string) error {
	if err == nil {
		return nil
	}
	if domain.IsNotFound(err) {
		return domain.NewNotFound(subject)
	}
	if errors.Is(err, domain.ErrAlreadyExists) {
		return err
	}
	return fmt.Errorf("%w: loading %s: %v", domain.ErrReadDatabaseRow, subject, err)
}
