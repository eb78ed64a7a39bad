package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/themisguard/datashield/internal/app"
	"github.com/themisguard/datashield/internal/config"
)

// RunDestroyTenantKey schedules destruction of all usable tenant keys. Once
// the grace window passes the tenant's encrypted data is unrecoverable.
func RunDestroyTenantKey(ctx context.Context, actor, tenantID string, graceDays int) error {
	if graceDays < 0 {
		return fmt.Errorf("grace days must be a positive number, got: %d", graceDays)
	}

	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	registry, err := container.KeyRegistry()
	if err != nil {
		return fmt.Errorf("failed to initialize key registry: %w", err)
	}

	if err := registry.DestroyKey(ctx, actor, tenantID, graceDays); err != nil {
		return fmt.Errorf("failed to destroy tenant keys: %w", err)
	}

	fmt.Printf("Scheduled key destruction for tenant %s\n", tenantID)

	logger.Info("tenant key destruction scheduled",
		slog.String("tenant_id", tenantID),
		slog.Int("grace_days", graceDays),
		slog.String("actor", actor),
	)
	return nil
}
