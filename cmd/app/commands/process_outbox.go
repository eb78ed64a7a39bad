package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/themisguard/datashield/internal/app"
	"github.com/themisguard/datashield/internal/config"
)

// RunProcessOutbox relays one batch of buffered audit events to the audit
// backend.
func RunProcessOutbox(ctx context.Context) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	relay, err := container.AuditRelay()
	if err != nil {
		return fmt.Errorf("failed to initialize audit relay: %w", err)
	}

	handled, err := relay.ProcessEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to process outbox events: %w", err)
	}

	fmt.Printf("Relayed %d audit events\n", handled)

	logger.Info("outbox processing completed",
		slog.Int("handled", handled),
	)
	return nil
}
