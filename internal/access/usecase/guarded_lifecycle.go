package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/themisguard/datashield/internal/access/domain"
	deletionUseCase "github.com/themisguard/datashield/internal/deletion/usecase"
	retentionDomain "github.com/themisguard/datashield/internal/retention/domain"
	retentionUseCase "github.com/themisguard/datashield/internal/retention/usecase"
)

// guardedScheduler puts the access gate in front of the retention scheduler's
// tenant-facing operations. Sweep is a platform maintenance job driven by the
// worker, which runs without a tenant principal, so it delegates directly.
type guardedScheduler struct {
	gate    Gate
	entries retentionUseCase.EntryRepository
	inner   retentionUseCase.Scheduler
}

// NewGuardedScheduler wraps a retention scheduler with gate enforcement on
// Schedule, Extend, and Status. The entry repository resolves which tenant
// owns an entry addressed by ID, so the gate checks the target's tenant
// rather than the caller's.
func NewGuardedScheduler(gate Gate, entries retentionUseCase.EntryRepository, inner retentionUseCase.Scheduler) retentionUseCase.Scheduler {
	return &guardedScheduler{
		gate:    gate,
		entries: entries,
		inner:   inner,
	}
}

func (g *guardedScheduler) Schedule(ctx context.Context, tenantID, resourceType, resourceID string, category retentionDomain.DataCategory, storedAt time.Time) (*retentionDomain.Entry, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrNoPrincipal
	}
	if err := g.gate.Authorize(ctx, principal, tenantID, domain.PermissionWriteOwnData, "schedule_retention"); err != nil {
		return nil, err
	}
	return g.inner.Schedule(ctx, tenantID, resourceType, resourceID, category, storedAt)
}

func (g *guardedScheduler) Extend(ctx context.Context, actor string, entryID uuid.UUID, extendDays int, reason string) (*retentionDomain.Entry, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrNoPrincipal
	}
	entry, err := g.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := g.gate.Authorize(ctx, principal, entry.TenantID, domain.PermissionWriteCustomerData, "extend_retention"); err != nil {
		return nil, err
	}
	return g.inner.Extend(ctx, actor, entryID, extendDays, reason)
}

func (g *guardedScheduler) Status(ctx context.Context, tenantID string) (*retentionUseCase.StatusReport, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrNoPrincipal
	}
	if err := g.gate.Authorize(ctx, principal, tenantID, domain.PermissionReadCustomerData, "retention_status"); err != nil {
		return nil, err
	}
	return g.inner.Status(ctx, tenantID)
}

func (g *guardedScheduler) Sweep(ctx context.Context) (*retentionUseCase.SweepResult, error) {
	return g.inner.Sweep(ctx)
}

// guardedExecutor puts the access gate in front of the deletion executor's
// tenant-facing operations. ProcessQueue is driven by the worker without a
// tenant principal and delegates directly.
type guardedExecutor struct {
	gate  Gate
	queue retentionUseCase.QueueRepository
	inner deletionUseCase.Executor
}

// NewGuardedExecutor wraps a deletion executor with gate enforcement on
// Approve and DeleteTenantData. The queue repository resolves which tenant
// owns a queue item addressed by ID, so the gate checks the target's tenant
// rather than the caller's.
func NewGuardedExecutor(gate Gate, queue retentionUseCase.QueueRepository, inner deletionUseCase.Executor) deletionUseCase.Executor {
	return &guardedExecutor{
		gate:  gate,
		queue: queue,
		inner: inner,
	}
}

func (g *guardedExecutor) ProcessQueue(ctx context.Context) (*deletionUseCase.ProcessResult, error) {
	return g.inner.ProcessQueue(ctx)
}

func (g *guardedExecutor) Approve(ctx context.Context, actor string, queueItemID uuid.UUID) (*retentionDomain.QueueItem, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrNoPrincipal
	}
	item, err := g.queue.GetByID(ctx, queueItemID)
	if err != nil {
		return nil, err
	}
	if err := g.gate.Authorize(ctx, principal, item.TenantID, domain.PermissionDeleteCustomerData, "approve_deletion"); err != nil {
		return nil, err
	}
	return g.inner.Approve(ctx, actor, queueItemID)
}

func (g *guardedExecutor) DeleteTenantData(ctx context.Context, actor, tenantID, reason string) (*deletionUseCase.PurgeResult, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrNoPrincipal
	}
	if err := g.gate.Authorize(ctx, principal, tenantID, domain.PermissionDeleteCustomerData, "delete_tenant_data"); err != nil {
		return nil, err
	}
	return g.inner.DeleteTenantData(ctx, actor, tenantID, reason)
}
