// Package usecase implements the customer key registry business logic.
package usecase

import (
	"context"
	"time"

	"github.com/themisguard/datashield/internal/keyring/domain"
)

// CustomerKeyRepository defines customer key persistence operations.
type CustomerKeyRepository interface {
	Create(ctx context.Context, key *domain.CustomerKey) (bool, error)
	GetActive(ctx context.Context, tenantID string) (*domain.CustomerKey, error)
	GetByState(ctx context.Context, tenantID string, state domain.KeyState) ([]*domain.CustomerKey, error)
	Update(ctx context.Context, key *domain.CustomerKey) error
}

// KeyRegistry manages the lifecycle of per-tenant encryption keys.
type KeyRegistry interface {
	// GetOrCreateKey returns the tenant's active key, provisioning one in the
	// key service on first use. Safe to call concurrently; all callers
	// converge on the same key.
	GetOrCreateKey(ctx context.Context, tenantID string) (*domain.CustomerKey, error)

	// RotateKey provisions a replacement key, repoints the tenant alias, and
	// schedules the predecessor for destruction after the rotation grace
	// window. At most one rotation per tenant may be in flight.
	RotateKey(ctx context.Context, actor, tenantID string) (*domain.CustomerKey, error)

	// DestroyKey schedules destruction of all usable tenant keys after the
	// grace window, removing the tenant alias. Once destruction completes all
	// data encrypted under the keys is permanently unrecoverable.
	DestroyKey(ctx context.Context, actor, tenantID string, graceDays int) error

	// MarkDestroyed flips pending-deletion keys whose grace window has passed
	// to the destroyed state. Returns the number of keys marked.
	MarkDestroyed(ctx context.Context, tenantID string, now time.Time) (int, error)
}
