package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticketchain/config"
	httpHandler "ticketchain/internal/adapter/http/handler"
	pgStorage "ticketchain/internal/adapter/storage/postgres"
	redisStorage "ticketchain/internal/adapter/storage/redis"
	"ticketchain/internal/core/ports"
	"ticketchain/internal/service"
	"ticketchain/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting ticketchain")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories and stores
	walletRepo := pgStorage.NewWalletRepo(pool)
	organizerRepo := pgStorage.NewOrganizerRepo(pool)
	blockStore := pgStorage.NewBlockStore(pool)
	nonceStore := redisStorage.NewNonceStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Ledger: reload the persisted chain and verify every hash before
	// accepting writes. A tampered store must fail the boot, not limp on.
	ledger, err := service.NewLedgerService(ctx, blockStore, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger")
	}
	length, tipHash := ledger.Tip()
	log.Info().Uint64("length", length).Str("tip_hash", tipHash).Msg("Ledger verified")

	// Catalog: replay the chain into the read model
	catalog := service.NewCatalogService()
	if err := catalog.Rebuild(ledger.Snapshot()); err != nil {
		log.Fatal().Err(err).Msg("Failed to rebuild catalog from chain")
	}

	// Core services
	registry := service.NewWalletRegistry(walletRepo, log)
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Fraud pipeline: deterministic rules plus the logistic risk model,
	// merged by severity.
	scorer := service.NewCompositeScorer(
		service.NewRuleStrategy(cfg.Fraud),
		service.NewModelStrategy(service.NewLogisticRiskModel(), cfg.Fraud),
	)

	// Business services
	authSvc := service.NewAuthService(organizerRepo, registry, hashSvc, tokenSvc)
	webhookSvc := service.NewWebhookService(organizerRepo, catalog, &http.Client{Timeout: 10 * time.Second}, log)
	coordinator := service.NewCoordinator(ledger, catalog, registry, scorer, nonceStore, webhookSvc, log)
	reportingSvc := service.NewReportingService(catalog, ledger)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		CommandSvc:     coordinator,
		QuerySvc:       reportingSvc,
		RegistrySvc:    registry,
		OrganizerRepo:  organizerRepo,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
