// File: cmd/app/main.go
package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payment-orchestration-core/internal/config"
	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/connector/nuvei"
	pg "payment-orchestration-core/internal/infra/db/postgres"
	"payment-orchestration-core/internal/infra/locker"
	"payment-orchestration-core/internal/infra/logging"
	"payment-orchestration-core/internal/infra/metrics"
	red "payment-orchestration-core/internal/infra/redis"
	"payment-orchestration-core/internal/infra/web"
	"payment-orchestration-core/internal/pipeline"
	"payment-orchestration-core/internal/reconcile"
	"payment-orchestration-core/internal/routing"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	routingCache := red.NewRoutingCache(redisClient, cfg.Routing.CacheTTL, logger)

	// ---- Repositories ----
	intents := pg.NewIntentRepo(pool)
	attempts := pg.NewAttemptRepo(pool)
	mandates := pg.NewMandateRepo(pool)
	methods := pg.NewPaymentMethodRepo(pool)
	configs := pg.NewConfigRepo(pool)
	customers := pg.NewCustomerRepo(pool)
	addresses := pg.NewAddressRepo(pool)
	merchants := pg.NewMerchantRepo(pool)
	mcas := pg.NewMerchantConnectorRepo(pool)

	// ---- Connector adapters ----
	adapters := connector.NewRegistry()
	adapters.Register(nuvei.NewAdapter())
	logger.Info().Strs("connectors", adapters.Names()).Msg("adapters registered")

	calls := connector.NewExecutor(logger)

	// ---- Routing ----
	router := routing.NewEngine(configs, mcas, routingCache, logger)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	evaluator := routing.NewEvaluator(rng, logger)

	// ---- Reconciliation ----
	vault := locker.NewClient(cfg.Locker, logger)
	reconciler := reconcile.NewReconciler(methods, vault, cfg, logger)

	// ---- Pipeline ----
	deps := &pipeline.Deps{
		Intents:            intents,
		Attempts:           attempts,
		Mandates:           mandates,
		Methods:            methods,
		Customers:          customers,
		Addresses:          addresses,
		Merchants:          merchants,
		MerchantConnectors: mcas,
		Router:             router,
		Evaluator:          evaluator,
		Adapters:           adapters,
		Calls:              calls,
		Reconciler:         reconciler,
		Cfg:                cfg,
		Log:                logger,
	}
	payments := pipeline.NewExecutor(pipeline.DefaultRegistry(), deps)
	webhooks := pipeline.NewWebhookService(adapters, intents, attempts, merchants, mcas, logger)

	// ---- HTTP ----
	server := web.NewServer(webhooks, payments, cfg.Web.Port, logger)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info().Msg("shutdown signal received")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("shutdown complete")
}
