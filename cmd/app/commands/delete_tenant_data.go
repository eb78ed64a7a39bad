package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/themisguard/datashield/internal/app"
	"github.com/themisguard/datashield/internal/config"
)

// RunDeleteTenantData erases all of a tenant's data on request: key
// destruction, document and object removal. The reason is recorded in the
// audit trail, which is kept for its own retention window.
func RunDeleteTenantData(ctx context.Context, actor, tenantID, reason string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	executor, err := container.Executor()
	if err != nil {
		return fmt.Errorf("failed to initialize executor: %w", err)
	}

	result, err := executor.DeleteTenantData(ctx, actor, tenantID, reason)
	if err != nil {
		return fmt.Errorf("failed to delete tenant data: %w", err)
	}

	fmt.Printf("Erased tenant %s: %d documents, %d objects, %d retention entries closed\n",
		tenantID, result.DocumentsRemoved, result.ObjectsRemoved, result.EntriesClosed)

	logger.Info("tenant data deleted",
		slog.String("tenant_id", tenantID),
		slog.String("reason", reason),
		slog.Int("documents_removed", result.DocumentsRemoved),
		slog.Int("objects_removed", result.ObjectsRemoved),
		slog.Int("entries_closed", result.EntriesClosed),
		slog.String("actor", actor),
	)
	return nil
}
