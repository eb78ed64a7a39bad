package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/themisguard/datashield/internal/app"
	"github.com/themisguard/datashield/internal/config"
)

// RunWorker starts the retention sweep and deletion executor workers, serves
// the metrics endpoint, and blocks until the process receives an interrupt or
// termination signal.
func RunWorker(ctx context.Context) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	sweepWorker, err := container.SweepWorker()
	if err != nil {
		return fmt.Errorf("failed to initialize sweep worker: %w", err)
	}

	queueWorker, err := container.QueueWorker()
	if err != nil {
		return fmt.Errorf("failed to initialize queue worker: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting lifecycle workers",
		slog.Duration("sweep_interval", cfg.SweepInterval),
		slog.Duration("deletion_interval", cfg.DeletionInterval),
	)

	serverErr := make(chan error, 1)
	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				serverErr <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	sweepWorker.Start(ctx)
	queueWorker.Start(ctx)

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down lifecycle workers")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
	}
	return nil
}
