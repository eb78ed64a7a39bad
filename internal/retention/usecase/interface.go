// Package usecase implements retention classification, the retention ledger,
// and the sweep that feeds the deletion queue.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/themisguard/datashield/internal/retention/domain"
)

// EntryRepository defines retention ledger persistence operations.
type EntryRepository interface {
	Create(ctx context.Context, entry *domain.Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Entry, error)
	ListExpired(ctx context.Context, before time.Time, limit int) ([]*domain.Entry, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Entry, error)
	Update(ctx context.Context, entry *domain.Entry) error
}

// QueueRepository defines deletion queue persistence operations.
type QueueRepository interface {
	Create(ctx context.Context, item *domain.QueueItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.QueueItem, error)
	ListByStatus(ctx context.Context, status domain.QueueItemStatus, limit int) ([]*domain.QueueItem, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.QueueItem, error)
	Update(ctx context.Context, item *domain.QueueItem) error
}

// CategoryCount summarizes one category's entries for a tenant.
type CategoryCount struct {
	Active       int
	ExpiringSoon int
	Expired      int
	Queued       int
	Deleted      int
}

// StatusReport is the per-tenant retention overview.
type StatusReport struct {
	TenantID   string
	Categories map[domain.DataCategory]*CategoryCount
}

// SweepResult summarizes one sweep run.
type SweepResult struct {
	Scanned int
	Queued  int
}

// Scheduler classifies stored data, manages the retention ledger, and sweeps
// expired entries into the deletion queue.
type Scheduler interface {
	// Schedule records newly stored data in the ledger, computing its expiry
	// from the category policy. Unknown categories are rejected.
	Schedule(ctx context.Context, tenantID, resourceType, resourceID string, category domain.DataCategory, storedAt time.Time) (*domain.Entry, error)

	// Extend pushes an entry's expiry out by extendDays and appends to the
	// entry's extension history. The reason is mandatory.
	Extend(ctx context.Context, actor string, entryID uuid.UUID, extendDays int, reason string) (*domain.Entry, error)

	// Status reports per-category counts for a tenant, including entries
	// expiring within the next 30 days.
	Status(ctx context.Context, tenantID string) (*StatusReport, error)

	// Sweep moves expired entries into the deletion queue in rate-limited
	// batches. Cancelling the context stops the sweep between entries.
	Sweep(ctx context.Context) (*SweepResult, error)
}
