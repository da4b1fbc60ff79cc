package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cartera/internal/amqp"
	"cartera/internal/config"
	applog "cartera/internal/log"
	"cartera/internal/storage"
	"cartera/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting cartera-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the refresh worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	refreshWorker := worker.NewRefreshWorker(repo, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumeDone := make(chan struct{})
	go func() {
		defer close(consumeDone)
		err := amqp.ConsumeWithReconnect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			func(msg *amqp.RefreshMessage) error {
				return refreshWorker.HandleRefreshMessage(ctx, msg)
			})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	select {
	case <-consumeDone:
		logger.Info("Worker shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
