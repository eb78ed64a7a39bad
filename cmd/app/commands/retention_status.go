package commands

import (
	"context"
	"fmt"

	"github.com/themisguard/datashield/internal/app"
	"github.com/themisguard/datashield/internal/config"
)

// RunRetentionStatus prints per-category retention counts for a tenant.
func RunRetentionStatus(ctx context.Context, tenantID string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	scheduler, err := container.Scheduler()
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	report, err := scheduler.Status(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to get retention status: %w", err)
	}

	fmt.Println(report.String())
	return nil
}
