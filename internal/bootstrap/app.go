// Package bootstrap handles application initialization and lifecycle management
// for the list-pages service.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
	"github.com/jonesrussell/north-cloud/list-pages/internal/metrics"
)

// Start initializes and runs the list-pages service until it is signalled to stop.
func Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Phase 1: config and logger
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := CreateLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	logger.SetDefault(log)

	log.Info("Starting list-pages service",
		logger.String("version", cfg.Service.Version),
		logger.Int("port", cfg.Service.Port),
		logger.Bool("debug", cfg.Service.Debug),
	)

	m := metrics.New()

	// Phase 2: search backend and sources
	search, err := SetupSearch(ctx, cfg, m, log)
	if err != nil {
		return fmt.Errorf("failed to set up search: %w", err)
	}

	// Phase 3: configuration storage
	storage, err := SetupStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to set up storage: %w", err)
	}
	defer storage.Close(log)

	// Phase 4: service and HTTP server
	svc, err := SetupService(cfg, search, storage, m, log)
	if err != nil {
		return fmt.Errorf("failed to set up service: %w", err)
	}
	srv := SetupHTTPServer(cfg, svc, search, storage, m, log)

	if runErr := srv.RunWithGracefulShutdown(ctx); runErr != nil {
		log.Error("Server error", logger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	log.Info("List-pages service exited cleanly")
	return nil
}
