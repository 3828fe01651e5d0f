package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MichalGrecer/Customer-Finder/internal/api"
	"github.com/MichalGrecer/Customer-Finder/internal/config"
	"github.com/MichalGrecer/Customer-Finder/internal/fetch"
	"github.com/MichalGrecer/Customer-Finder/internal/monitoring"
	"github.com/MichalGrecer/Customer-Finder/internal/pacing"
	"github.com/MichalGrecer/Customer-Finder/internal/pipeline"
	"github.com/MichalGrecer/Customer-Finder/internal/quota"
	"github.com/MichalGrecer/Customer-Finder/internal/search"
	"github.com/MichalGrecer/Customer-Finder/internal/store"
	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		logger.Fatal("could not create output directory", zap.Error(err))
	}

	// Credentials and quota state
	creds, err := config.LoadCredentials(cfg.CredentialsFile)
	if err != nil {
		logger.Fatal("could not load credentials", zap.Error(err))
	}
	tracker := quota.NewTracker(cfg.QuotaFile, cfg.QuotaResetHour, cfg.DailyQuota, logger)

	// Monitoring
	metrics := monitoring.NewMetrics()

	// Storage layer
	prospects := store.NewProspectStore(cfg.ProspectsFile, logger)
	history := store.NewHistoryLog(cfg.HistoryFile)

	// Core pipeline
	pacer := pacing.Pacer{
		Min: time.Duration(cfg.PacingMinMillis) * time.Millisecond,
		Max: time.Duration(cfg.PacingMaxMillis) * time.Millisecond,
	}
	httpTimeout := time.Duration(cfg.HTTPTimeout) * time.Second
	searchClient := search.NewClient(cfg.SearchEndpoint, httpTimeout, creds, tracker,
		cfg.LowQuotaThreshold, pacer, metrics, logger)
	fetcher := fetch.NewFetcher(httpTimeout, metrics, logger)
	pipe := pipeline.New(searchClient, fetcher, prospects, history, pacer, metrics, logger)
	runner := pipeline.NewRunner(pipe)

	// Initialize API Server
	server := api.NewServer(cfg, runner, searchClient, creds, history, logger)

	// Graceful Shutdown
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
