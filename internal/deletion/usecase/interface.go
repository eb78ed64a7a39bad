// Package usecase implements the deletion executor: it drains the deletion
// queue produced by the retention sweep, applies each item's deletion method,
// and handles approvals and tenant-wide erasure requests.
package usecase

import (
	"context"

	"github.com/google/uuid"

	retentionDomain "github.com/themisguard/datashield/internal/retention/domain"
)

// KeyDestroyer schedules destruction of a tenant's encryption keys. The
// customer key registry satisfies it.
type KeyDestroyer interface {
	DestroyKey(ctx context.Context, actor, tenantID string, graceDays int) error
}

// ObjectRemover removes every object under a prefix and returns the count.
type ObjectRemover interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// ProcessResult summarizes one executor pass over the deletion queue.
type ProcessResult struct {
	Processed int
	Completed int
	Retried   int
	Failed    int
}

// PurgeResult summarizes a tenant-wide erasure.
type PurgeResult struct {
	DocumentsRemoved int
	ObjectsRemoved   int
	EntriesClosed    int
}

// Executor applies queued deletions and tenant erasure requests.
type Executor interface {
	// ProcessQueue executes ready and retry-eligible queue items. Failures are
	// retried with backoff; items that exhaust their retries are marked failed
	// for operator attention.
	ProcessQueue(ctx context.Context) (*ProcessResult, error)

	// Approve marks a pending queue item ready for execution.
	Approve(ctx context.Context, actor string, queueItemID uuid.UUID) (*retentionDomain.QueueItem, error)

	// DeleteTenantData erases a tenant on request: key destruction, document
	// and object removal, and closing the tenant's retention entries. The
	// reason is recorded in the audit trail. Audit log entries are kept for
	// their own retention window.
	DeleteTenantData(ctx context.Context, actor, tenantID, reason string) (*PurgeResult, error)
}
