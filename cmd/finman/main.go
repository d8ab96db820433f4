package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finman/internal/advisor"
	"finman/internal/amqp"
	"finman/internal/cache"
	"finman/internal/config"
	apphttp "finman/internal/http"
	"finman/internal/log"
	"finman/internal/market"
	"finman/internal/report"
	"finman/internal/services"
	"finman/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting finman API server")

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

	mkt := market.NewClient(cfg.MarketTimeout, logger, market.WithSuffix(cfg.MarketSuffix))
	snapshots := services.NewSnapshotService(repo, logger)

	var advClient *advisor.Client
	if cfg.AdvisorAPIKey != "" {
		advClient = advisor.NewClient(cfg.AdvisorAPIKey, cfg.AdvisorBaseURL, cfg.AdvisorModel)
		logger.Info("Advisor model client initialized", "model", cfg.AdvisorModel)
	} else {
		logger.Info("Advisor running rule-based only - no ADVISOR_API_KEY provided")
	}

	var jobs *amqp.Client
	if cfg.AMQPURL != "" {
		jobs, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer jobs.Close()
		logger.Info("AMQP job publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - snapshots recompute synchronously via the API")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Storage:   repo,
		Snapshots: snapshots,
		Anomalies: services.NewAnomalyService(repo, logger),
		SWPLoans:  services.NewSWPLoanService(repo, logger),
		Prices:    services.NewPriceService(repo, mkt, logger),
		Market:    mkt,
		Advisor:   advisor.New(advClient, logger),
		Reports:   report.NewBuilder(repo, snapshots, logger),
		Jobs:      jobs,
		Logger:    logger,
	})

	caches := cache.NewManager()
	caches.Register(srv.HistoryCache())
	caches.Register(mkt.Cache())
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

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

	logger.Info("Listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
