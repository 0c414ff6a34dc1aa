package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/utcc/social-mentions/internal/backend"
	"github.com/utcc/social-mentions/internal/config"
	"github.com/utcc/social-mentions/internal/monitoring"
	"github.com/utcc/social-mentions/internal/notifications"
	"github.com/utcc/social-mentions/internal/overrides"
	"github.com/utcc/social-mentions/internal/scheduler"
	"github.com/utcc/social-mentions/internal/server"
	"github.com/utcc/social-mentions/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Social Mentions Dashboard")

	ctx := context.Background()

	client := backend.NewClient(backend.Config{
		BaseURL:   cfg.APIBase,
		Prefix:    cfg.APIPrefix,
		Timeout:   cfg.APITimeout,
		RateLimit: cfg.APIRateLimit,
	})

	// Exports and digests go to blob storage when an account is configured, else to a local directory
	var archive storage.StorageInterface
	if cfg.StorageAccount != "" {
		archive, err = storage.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
	} else {
		archive, err = storage.NewLocalStorage(cfg.ExportDir)
	}
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}

	overrideStore, closeJournal := buildOverrideStore(cfg, client)
	defer closeJournal()

	notificationService := notifications.NewService(cfg)

	monitoringService := monitoring.NewService(cfg, client, client, archive, notificationService, overrideStore)
	defer monitoringService.Close()

	// Initial load; failures are reported through /api/status and retried by the scheduler
	go func() {
		if err := monitoringService.Reload(ctx); err != nil {
			logrus.Errorf("Initial reload failed: %v", err)
		}
	}()

	schedulerService := scheduler.NewService(cfg, monitoringService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	srv := server.NewServer(cfg, monitoringService, client)

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// buildOverrideStore creates the sentiment override store for the configured
// mode and replays the edit journal when one is configured
func buildOverrideStore(cfg *config.Config, client *backend.Client) (*overrides.Store, func()) {
	var opts []overrides.Option
	if cfg.OverrideMode == string(overrides.ModeRemote) {
		opts = append(opts, overrides.WithPersister(client))
	}

	if cfg.OverrideJournal == "" {
		return overrides.NewStore(opts...), func() {}
	}

	journal, err := storage.OpenJournal(cfg.OverrideJournal)
	if err != nil {
		logrus.Fatalf("Failed to open override journal: %v", err)
	}
	store := overrides.NewStore(append(opts, overrides.WithJournal(journal))...)

	edits, err := journal.Load()
	if err != nil {
		logrus.Fatalf("Failed to load override journal: %v", err)
	}
	store.Replay(edits)
	logrus.Infof("Replayed %d override edits from %s", len(edits), cfg.OverrideJournal)

	return store, func() {
		if err := journal.Close(); err != nil {
			logrus.Errorf("Failed to close override journal: %v", err)
		}
	}
}
