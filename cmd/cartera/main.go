package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cartera/internal/amqp"
	"cartera/internal/cache"
	"cartera/internal/config"
	"cartera/internal/export"
	apphttp "cartera/internal/http"
	applog "cartera/internal/log"
	"cartera/internal/services"
	"cartera/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without it, cache invalidation happens synchronously.
	var publisher services.RefreshPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, refresh messages disabled", "error", err)
		} else {
			publisher = amqpClient
			defer amqpClient.Close()
		}
	}

	memory := cache.NewSummaryCache(cfg.ReportCacheSize, cfg.ReportCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(memory)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	reportService := services.NewReportService(repo, repo, repo, memory, publisher, cfg.RefreshConcurrency, nil)
	ledgerService := services.NewLedgerService(repo, memory, publisher)

	// Sheets export is optional as well.
	var exporter export.ReportWriter
	if cfg.GoogleSpreadsheetID != "" {
		exporter, err = export.NewGoogleClient(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, reportService, ledgerService, repo, exporter, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting cartera server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
