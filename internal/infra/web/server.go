// File: internal/infra/web/server.go
// Package web is the inbound HTTP surface: connector webhook ingress,
// redirect returns, health and metrics. The merchant-facing payment API is
// out of scope; payments enter the pipeline through the application layer.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/pipeline"
)

type Server struct {
	webhooks *pipeline.WebhookService
	payments *pipeline.Executor
	port     int
	log      *zerolog.Logger

	srv *http.Server
}

func NewServer(webhooks *pipeline.WebhookService, payments *pipeline.Executor, port int, logger *zerolog.Logger) *Server {
	return &Server{webhooks: webhooks, payments: payments, port: port, log: logger}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/webhooks/{merchant_id}/{connector}", s.handleWebhook)
	r.Post("/payments/{merchant_id}/{payment_id}/redirect/complete/{connector}", s.handleRedirectComplete)
	return r
}

// handleWebhook builds the transport envelope and hands it to the webhook
// service. Verification failures answer 401; unsupported events are
// acknowledged so the connector stops retrying.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	merchantID := chi.URLParam(r, "merchant_id")
	connectorName := chi.URLParam(r, "connector")

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}
	env := &connector.WebhookEnvelope{
		Headers: r.Header,
		Body:    body,
		Query:   r.URL.Query(),
	}

	err = s.webhooks.Process(r.Context(), merchantID, connectorName, env)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, connector.ErrWebhookSourceVerification):
		http.Error(w, "signature mismatch", http.StatusUnauthorized)
	case errors.Is(err, connector.ErrWebhookBodyDecodingFailed):
		http.Error(w, "undecodable webhook", http.StatusBadRequest)
	case domain.IsNotFound(err):
		http.Error(w, "unknown payment", http.StatusNotFound)
	default:
		s.log.Error().Err(err).Str("connector", connectorName).Msg("webhook processing failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// handleRedirectComplete resumes a payment when the customer returns from
// the bank's challenge page.
func (s *Server) handleRedirectComplete(w http.ResponseWriter, r *http.Request) {
	merchantID := chi.URLParam(r, "merchant_id")
	paymentID := chi.URLParam(r, "payment_id")
	connectorName := chi.URLParam(r, "connector")

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	res, err := s.payments.CompleteRedirect(r.Context(), merchantID, paymentID, connectorName, r.URL.Query(), payload)
	if err != nil {
		if domain.IsNotFound(err) {
			http.Error(w, "unknown payment", http.StatusNotFound)
			return
		}
		if errors.Is(err, domain.ErrInvalidArgument) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.Error().Err(err).Str("payment_id", paymentID).Msg("redirect completion failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"payment_id": res.Intent.ID,
		"status":     res.Intent.Status,
	})
}

// Start runs the server until the context is cancelled, then drains.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
