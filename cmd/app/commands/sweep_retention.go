package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/themisguard/datashield/internal/app"
	"github.com/themisguard/datashield/internal/config"
)

// RunSweepRetention runs one retention sweep pass, moving expired ledger
// entries into the deletion queue.
func RunSweepRetention(ctx context.Context) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	scheduler, err := container.Scheduler()
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	result, err := scheduler.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("retention sweep failed: %w", err)
	}

	fmt.Printf("Scanned %d expired entries, queued %d for deletion\n", result.Scanned, result.Queued)

	logger.Info("retention sweep completed",
		slog.Int("scanned", result.Scanned),
		slog.Int("queued", result.Queued),
	)
	return nil
}
