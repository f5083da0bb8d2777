// File: internal/pipeline/webhook.go
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
	"payment-orchestration-core/internal/domain/ports/repository"
	"payment-orchestration-core/internal/infra/logging"
	"payment-orchestration-core/internal/infra/metrics"
)

// WebhookService turns inbound connector notifications into tracker
// updates. Verification always precedes any read of the event's content.
type WebhookService struct {
	adapters  *connector.Registry
	intents   repository.IntentRepository
	attempts  repository.AttemptRepository
	merchants repository.MerchantRepository
	mcas      repository.MerchantConnectorRepository
	log       *zerolog.Logger
}

func NewWebhookService(
	adapters *connector.Registry,
	intents repository.IntentRepository,
	attempts repository.AttemptRepository,
	merchants repository.MerchantRepository,
	mcas repository.MerchantConnectorRepository,
	logger *zerolog.Logger,
) *WebhookService {
	return &WebhookService{
		adapters:  adapters,
		intents:   intents,
		attempts:  attempts,
		merchants: merchants,
		mcas:      mcas,
		log:       logger,
	}
}

// Process verifies, classifies and applies one incoming webhook.
// Not-supported events are acknowledged and skipped; a verification
// mismatch is a hard rejection.
func (s *WebhookService) Process(ctx context.Context, merchantID, connectorName string, env *connector.WebhookEnvelope) error {
	ctx = logging.WithMerchantID(ctx, merchantID)
	log := logging.With(ctx, s.log).With().Str("connector", connectorName).Logger()

	adapter, err := s.adapters.Get(connectorName)
	if err != nil {
		return domain.NewNotSupported("connector " + connectorName + " is not available")
	}
	if adapter.Webhook == nil {
		return domain.NewNotSupported("connector " + connectorName + " does not deliver webhooks")
	}

	merchant, err := s.merchants.FindByMerchantID(ctx, merchantID)
	if err != nil {
		return translateStoreErr(err, "merchant account")
	}
	mca, err := s.mcas.FindByMerchantIDConnectorName(ctx, merchantID, merchant.DefaultProfileID, connectorName)
	if err != nil {
		return translateStoreErr(err, "merchant connector account")
	}

	if err := connector.VerifyWebhookSource(adapter.Webhook, env, mca.WebhookSecret); err != nil {
		metrics.IncWebhookVerification(connectorName, false)
		log.Warn().Err(err).Msg("webhook source verification failed")
		return err
	}
	metrics.IncWebhookVerification(connectorName, true)

	kind, err := adapter.Webhook.EventKind(env)
	if err != nil {
		return err
	}
	if kind == connector.WebhookEventNotSupported {
		log.Debug().Msg("webhook event not supported, acknowledged")
		return nil
	}

	ref, err := adapter.Webhook.ObjectReference(env)
	if err != nil {
		return err
	}
	resource, err := adapter.Webhook.ResourceObject(env)
	if err != nil {
		return err
	}

	attempt, err := s.findAttempt(ctx, merchantID, ref, merchant.StorageScheme)
	if err != nil {
		return err
	}
	ctx = logging.WithPaymentID(ctx, attempt.PaymentID)

	status := resource.Status
	if kind == connector.WebhookEventFailure {
		status = model.AttemptStatusFailure
	}
	update := repository.AttemptUpdate{Status: &status}
	if resource.ResourceID != "" && attempt.ConnectorTransaction == "" {
		update.ConnectorTransaction = &resource.ResourceID
	}
	updated, err := s.attempts.Update(ctx, attempt.PaymentID, merchantID, attempt.AttemptID, update, merchant.StorageScheme)
	if err != nil {
		return translateStoreErr(err, "payment attempt")
	}

	intentStatus := updated.Status.IntentStatusFor()
	if _, err := s.intents.Update(ctx, attempt.PaymentID, merchantID, repository.IntentUpdate{
		Status: &intentStatus,
	}, merchant.StorageScheme); err != nil {
		return translateStoreErr(err, "payment intent")
	}
	metrics.IncIntentStatus(string(intentStatus))

	log.Info().
		Str("payment_id", attempt.PaymentID).
		Str("attempt_status", string(status)).
		Msg("webhook applied")
	return nil
}

func (s *WebhookService) findAttempt(ctx context.Context, merchantID string, ref connector.ObjectReference, scheme model.StorageScheme) (*model.Attempt, error) {
	if ref.ConnectorTransactionID != "" {
		attempt, err := s.attempts.FindByConnectorTransactionID(ctx, merchantID, ref.ConnectorTransactionID, scheme)
		if err != nil {
			return nil, translateStoreErr(err, "payment attempt")
		}
		return attempt, nil
	}
	if ref.PaymentID != "" {
		intent, err := s.intents.FindByPaymentIDMerchantID(ctx, ref.PaymentID, merchantID, scheme)
		if err != nil {
			return nil, translateStoreErr(err, "payment intent")
		}
		attempt, err := s.attempts.FindByPaymentIDMerchantIDAttemptID(ctx, intent.ID, merchantID, intent.ActiveAttemptID, scheme)
		if err != nil {
			return nil, translateStoreErr(err, "payment attempt")
		}
		return attempt, nil
	}
	return nil, fmt.Errorf("%w: webhook carries no usable object reference", connector.ErrWebhookBodyDecodingFailed)
}
