package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finman/internal/amqp"
	"finman/internal/config"
	"finman/internal/export"
	"finman/internal/export/gsheet"
	"finman/internal/log"
	"finman/internal/market"
	"finman/internal/services"
	"finman/internal/storage"
	"finman/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Level: log.DefaultConfig().Level, Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting finman-worker")

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var exporter export.SnapshotAppender
	if cfg.ReportSpreadsheetID != "" {
		client, err := gsheet.New(ctx, cfg.ReportSpreadsheetID, cfg.ReportSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.ReportSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no REPORT_SPREADSHEET_ID provided")
	}

	mkt := market.NewClient(cfg.MarketTimeout, logger, market.WithSuffix(cfg.MarketSuffix))
	snapshots := services.NewSnapshotService(repo, logger)
	prices := services.NewPriceService(repo, mkt, logger)
	swps := services.NewSWPLoanService(repo, logger)
	anomalies := services.NewAnomalyService(repo, logger)

	jobs := worker.NewJobWorker(repo, snapshots, prices, cfg.PriceBatch, logger)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			handler := func(job *amqp.Job) error {
				return jobs.HandleJob(ctx, job)
			}
			if err := amqpClient.Consume(ctx, handler); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Job consumption failed", "error", err)
				}
				cancel()
			}
		}()
		logger.Info("Consuming jobs", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - running scheduled passes only")
	}

	sched := worker.NewScheduler(repo, snapshots, prices, swps, anomalies, exporter,
		cfg.SnapshotHour, cfg.RefreshInterval, cfg.PriceBatch, logger)
	go func() {
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Scheduler stopped", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give in-flight handlers a moment to finish before the process exits.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
