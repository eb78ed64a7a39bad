package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/themisguard/datashield/internal/app"
	"github.com/themisguard/datashield/internal/config"
)

// RunProcessDeletions runs one deletion executor pass over the queue.
func RunProcessDeletions(ctx context.Context) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	executor, err := container.Executor()
	if err != nil {
		return fmt.Errorf("failed to initialize executor: %w", err)
	}

	result, err := executor.ProcessQueue(ctx)
	if err != nil {
		return fmt.Errorf("deletion pass failed: %w", err)
	}

	fmt.Printf("Processed %d queue items: %d completed, %d retried, %d failed\n",
		result.Processed, result.Completed, result.Retried, result.Failed)

	logger.Info("deletion pass completed",
		slog.Int("processed", result.Processed),
		slog.Int("completed", result.Completed),
		slog.Int("retried", result.Retried),
		slog.Int("failed", result.Failed),
	)
	return nil
}
