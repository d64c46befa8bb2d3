package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rabot-service/rabot_service/internal/adapters/alchemy"
	"github.com/rabot-service/rabot_service/internal/adapters/biconomy"
	"github.com/rabot-service/rabot_service/internal/adapters/turnkey"
	"github.com/rabot-service/rabot_service/internal/api/handlers"
	"github.com/rabot-service/rabot_service/internal/api/routes"
	"github.com/rabot-service/rabot_service/internal/domain/services/bots"
	"github.com/rabot-service/rabot_service/internal/domain/services/ledger"
	"github.com/rabot-service/rabot_service/internal/domain/services/strategy"
	"github.com/rabot-service/rabot_service/internal/domain/services/webhook"
	"github.com/rabot-service/rabot_service/internal/infrastructure/cache"
	"github.com/rabot-service/rabot_service/internal/infrastructure/chain"
	"github.com/rabot-service/rabot_service/internal/infrastructure/config"
	"github.com/rabot-service/rabot_service/internal/infrastructure/database"
	"github.com/rabot-service/rabot_service/internal/infrastructure/repositories"
	"github.com/rabot-service/rabot_service/internal/workers/ledger_sweeper"
	"github.com/rabot-service/rabot_service/pkg/logger"
	"github.com/rabot-service/rabot_service/pkg/metrics"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	// Database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database connection", "error", err)
		}
	}()

	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	// Redis is optional; without it webhook dedup falls back to the ledger
	var redisClient cache.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(&cfg.Redis, log.Zap())
		if err != nil {
			log.Fatal("Failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
	}

	// Chain RPC providers
	providers, err := chain.NewProviders(cfg.Chains)
	if err != nil {
		log.Fatal("Failed to connect to chain RPCs", "error", err)
	}
	defer providers.Close()

	// External service clients
	turnkeyClient, err := turnkey.NewClient(turnkey.Config{
		BaseURL:        cfg.Turnkey.APIURL,
		APIPublicKey:   cfg.Turnkey.APIPublicKey,
		APIPrivateKey:  cfg.Turnkey.APIPrivateKey,
		OrganizationID: cfg.Turnkey.OrganizationID,
	}, log)
	if err != nil {
		log.Fatal("Failed to create signing client", "error", err)
	}

	bundler := biconomy.NewClient(biconomy.Config{
		BundlerURL:      cfg.Biconomy.BundlerURL,
		PaymasterURL:    cfg.Biconomy.PaymasterURL,
		PaymasterAPIKey: cfg.Biconomy.PaymasterAPIKey,
	}, log)

	alchemyClient := alchemy.NewClient(alchemy.Config{
		BaseURL:   cfg.Alchemy.BaseURL,
		AuthToken: cfg.Alchemy.AuthToken,
		WebhookID: cfg.Alchemy.WebhookID,
	}, log)

	// Strategy registry is immutable after startup
	orchestrator := strategy.NewOrchestrator(log,
		strategy.NewAerodromeStrategy(providers.Base(), bundler, cfg.Chains.Base.ChainID, log),
		strategy.NewQuickswapStrategy(providers.Polygon(), bundler, cfg.Chains.Polygon.ChainID, log),
	)

	// Repositories and services
	bindingRepo := repositories.NewBindingRepository(db)
	txRepo := repositories.NewTxRepository(db)

	ledgerService := ledger.NewService(txRepo, log)
	accountResolver := bots.NewChainAccountResolver(providers)
	botService := bots.NewService(bindingRepo, ledgerService, orchestrator, turnkeyClient, accountResolver, alchemyClient, log)
	webhookService := webhook.NewService(bindingRepo, ledgerService, botService, redisClient, log)

	// Sweeper settles transfers whose deposit trigger never ran to completion
	var sweeper *ledger_sweeper.Worker
	if cfg.Sweeper.Enabled {
		sweeper = ledger_sweeper.NewWorker(txRepo, ledgerService, botService, providers, &ledger_sweeper.Config{
			Schedule: cfg.Sweeper.Schedule,
			MinAge:   time.Duration(cfg.Sweeper.MinAge) * time.Second,
		}, log)
		if err := sweeper.Start(); err != nil {
			log.Fatal("Failed to start ledger sweeper", "error", err)
		}
	}

	router := routes.SetupRoutes(cfg, &routes.Handlers{
		Bots:     handlers.NewBotHandlers(botService, ledgerService, log),
		Webhooks: handlers.NewWebhookHandlers(webhookService, cfg.Webhook.SigningSecret, log),
		Health:   handlers.NewHealthHandlers(db, redisClient, version),
	}, log)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info("Starting server",
			"port", cfg.Server.Port,
			"environment", cfg.Environment,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Database connection pool metrics
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			stats := db.Stats()
			metrics.DatabaseConnectionsGauge.WithLabelValues("open").Set(float64(stats.OpenConnections))
			metrics.DatabaseConnectionsGauge.WithLabelValues("idle").Set(float64(stats.Idle))
			metrics.DatabaseConnectionsGauge.WithLabelValues("in_use").Set(float64(stats.InUse))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	if sweeper != nil {
		sweeper.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
}
