package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/themisguard/datashield/internal/app"
	"github.com/themisguard/datashield/internal/config"
)

// RunRotateTenantKey rotates a tenant's encryption key. The old key keeps
// serving decryption until its destruction grace window passes.
func RunRotateTenantKey(ctx context.Context, actor, tenantID string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	registry, err := container.KeyRegistry()
	if err != nil {
		return fmt.Errorf("failed to initialize key registry: %w", err)
	}

	key, err := registry.RotateKey(ctx, actor, tenantID)
	if err != nil {
		return fmt.Errorf("failed to rotate tenant key: %w", err)
	}

	fmt.Printf("Rotated key for tenant %s, new key %s (alias %s)\n", tenantID, key.KeyID, key.Alias)

	logger.Info("tenant key rotated",
		slog.String("tenant_id", tenantID),
		slog.String("key_id", key.KeyID),
		slog.String("actor", actor),
	)
	return nil
}
