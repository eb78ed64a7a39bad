package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/themisguard/datashield/internal/app"
	"github.com/themisguard/datashield/internal/config"
)

// RunApproveDeletion approves a deletion queue item awaiting operator
// sign-off, making it eligible for the next executor pass.
func RunApproveDeletion(ctx context.Context, actor, queueItemID string) error {
	id, err := uuid.Parse(queueItemID)
	if err != nil {
		return fmt.Errorf("invalid queue item id %q: %w", queueItemID, err)
	}

	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	executor, err := container.Executor()
	if err != nil {
		return fmt.Errorf("failed to initialize executor: %w", err)
	}

	item, err := executor.Approve(ctx, actor, id)
	if err != nil {
		return fmt.Errorf("failed to approve deletion: %w", err)
	}

	fmt.Printf("Approved deletion of %s/%s for tenant %s (method %s)\n",
		item.ResourceType, item.ResourceID, item.TenantID, item.Method)

	logger.Info("deletion approved",
		slog.String("queue_item_id", id.String()),
		slog.String("tenant_id", item.TenantID),
		slog.String("actor", actor),
	)
	return nil
}
