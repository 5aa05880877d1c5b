package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/config"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/db"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/events"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/handlers"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/host"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/repository"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load() //nolint:errcheck // missing .env is fine

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting payflexi reconciliation engine",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"mode", string(cfg.Payflexi.Mode),
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()

	deps := handlers.Dependencies{
		Submissions: host.NewClient(cfg.Host),
		Config:      cfg,
		Logger:      logger,
	}

	switch cfg.Store.Driver {
	case "bolt":
		store, err := repository.OpenBolt(cfg.Store.BoltPath)
		if err != nil {
			logger.Error("failed to open bolt store", "error", err)
			os.Exit(1)
		}
		defer store.Close()

		deps.Correlations = store
		deps.Idempotency = store
		deps.Pinger = store
	default:
		database, err := db.Connect(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()

		deps.Correlations = repository.NewCorrelationRepository(database)
		deps.Idempotency = repository.NewIdempotencyRepository(database)
		deps.Pinger = database
	}

	if cfg.Kafka.Enabled {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Error("failed to connect kafka publisher", "error", err)
			os.Exit(1)
		}
		defer func() {
			_ = publisher.Close() //nolint:errcheck // shutdown path
		}()
		deps.Publisher = publisher
	} else {
		deps.Publisher = events.NewNoOpPublisher(logger)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handlers.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}
