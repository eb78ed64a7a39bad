package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themisguard/datashield/internal/access/domain"
	deletionUseCase "github.com/themisguard/datashield/internal/deletion/usecase"
	retentionDomain "github.com/themisguard/datashield/internal/retention/domain"
	retentionUseCase "github.com/themisguard/datashield/internal/retention/usecase"
)

// countingScheduler records how many times each inner operation was reached.
type countingScheduler struct {
	schedules atomic.Int64
	extends   atomic.Int64
	statuses  atomic.Int64
	sweeps    atomic.Int64
}

func (c *countingScheduler) Schedule(ctx context.Context, tenantID, resourceType, resourceID string, category retentionDomain.DataCategory, storedAt time.Time) (*retentionDomain.Entry, error) {
	c.schedules.Add(1)
	return &retentionDomain.Entry{TenantID: tenantID}, nil
}

func (c *countingScheduler) Extend(ctx context.Context, actor string, entryID uuid.UUID, extendDays int, reason string) (*retentionDomain.Entry, error) {
	c.extends.Add(1)
	return &retentionDomain.Entry{}, nil
}

func (c *countingScheduler) Status(ctx context.Context, tenantID string) (*retentionUseCase.StatusReport, error) {
	c.statuses.Add(1)
	return &retentionUseCase.StatusReport{TenantID: tenantID}, nil
}

func (c *countingScheduler) Sweep(ctx context.Context) (*retentionUseCase.SweepResult, error) {
	c.sweeps.Add(1)
	return &retentionUseCase.SweepResult{}, nil
}

type countingExecutor struct {
	processes atomic.Int64
	approves  atomic.Int64
	purges    atomic.Int64
}

func (c *countingExecutor) ProcessQueue(ctx context.Context) (*deletionUseCase.ProcessResult, error) {
	c.processes.Add(1)
	return &deletionUseCase.ProcessResult{}, nil
}

func (c *countingExecutor) Approve(ctx context.Context, actor string, queueItemID uuid.UUID) (*retentionDomain.QueueItem, error) {
	c.approves.Add(1)
	return &retentionDomain.QueueItem{ID: queueItemID}, nil
}

func (c *countingExecutor) DeleteTenantData(ctx context.Context, actor, tenantID, reason string) (*deletionUseCase.PurgeResult, error) {
	c.purges.Add(1)
	return &deletionUseCase.PurgeResult{}, nil
}

// stubEntryRepo serves a fixed set of ledger entries by ID.
type stubEntryRepo struct {
	entries map[uuid.UUID]*retentionDomain.Entry
}

func (r *stubEntryRepo) Create(ctx context.Context, entry *retentionDomain.Entry) error { return nil }

func (r *stubEntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*retentionDomain.Entry, error) {
	entry, ok := r.entries[id]
	if !ok {
		return nil, retentionDomain.ErrEntryNotFound
	}
	return entry, nil
}

func (r *stubEntryRepo) ListExpired(ctx context.Context, before time.Time, limit int) ([]*retentionDomain.Entry, error) {
	return nil, nil
}

func (r *stubEntryRepo) ListByTenant(ctx context.Context, tenantID string) ([]*retentionDomain.Entry, error) {
	return nil, nil
}

func (r *stubEntryRepo) Update(ctx context.Context, entry *retentionDomain.Entry) error { return nil }

// stubQueueRepo serves a fixed set of deletion queue items by ID.
type stubQueueRepo struct {
	items map[uuid.UUID]*retentionDomain.QueueItem
}

func (r *stubQueueRepo) Create(ctx context.Context, item *retentionDomain.QueueItem) error {
	return nil
}

func (r *stubQueueRepo) GetByID(ctx context.Context, id uuid.UUID) (*retentionDomain.QueueItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, retentionDomain.ErrQueueItemNotFound
	}
	return item, nil
}

func (r *stubQueueRepo) ListByStatus(ctx context.Context, status retentionDomain.QueueItemStatus, limit int) ([]*retentionDomain.QueueItem, error) {
	return nil, nil
}

func (r *stubQueueRepo) ListByTenant(ctx context.Context, tenantID string) ([]*retentionDomain.QueueItem, error) {
	return nil, nil
}

func (r *stubQueueRepo) Update(ctx context.Context, item *retentionDomain.QueueItem) error {
	return nil
}

func seedEntry(tenantID string) (*stubEntryRepo, uuid.UUID) {
	id := uuid.Must(uuid.NewV7())
	return &stubEntryRepo{entries: map[uuid.UUID]*retentionDomain.Entry{
		id: {ID: id, TenantID: tenantID, ResourceType: "scan-results", ResourceID: "scan-1"},
	}}, id
}

func seedPendingItem(tenantID string) (*stubQueueRepo, uuid.UUID) {
	id := uuid.Must(uuid.NewV7())
	return &stubQueueRepo{items: map[uuid.UUID]*retentionDomain.QueueItem{
		id: {
			ID:           id,
			TenantID:     tenantID,
			ResourceType: "scan-data",
			ResourceID:   "scan-1",
			Category:     retentionDomain.CategoryProtectedHealthData,
			Method:       retentionDomain.MethodCryptoErasure,
			Status:       retentionDomain.QueueItemStatusPendingApproval,
		},
	}}, id
}

func TestGuardedScheduler(t *testing.T) {
	t.Run("ScheduleDenialShortCircuits", func(t *testing.T) {
		gate, sink := newGate(t)
		inner := &countingScheduler{}
		scheduler := NewGuardedScheduler(gate, &stubEntryRepo{}, inner)

		ctx := domain.WithPrincipal(context.Background(), principal(domain.RoleSystemAdmin))

		_, err := scheduler.Schedule(ctx, "acme", "scan-results", "scan-1", retentionDomain.CategoryProtectedHealthData, time.Now())
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
		assert.Zero(t, inner.schedules.Load())
		require.Len(t, sink.Events(), 1)
	})

	t.Run("ScheduleAllowedDelegates", func(t *testing.T) {
		gate, _ := newGate(t)
		inner := &countingScheduler{}
		scheduler := NewGuardedScheduler(gate, &stubEntryRepo{}, inner)

		ctx := domain.WithPrincipal(context.Background(), principal(domain.RoleCustomerUser))

		entry, err := scheduler.Schedule(ctx, "acme", "scan-results", "scan-1", retentionDomain.CategoryProtectedHealthData, time.Now())
		require.NoError(t, err)
		assert.Equal(t, "acme", entry.TenantID)
		assert.Equal(t, int64(1), inner.schedules.Load())
	})

	t.Run("ExtendRequiresAdmin", func(t *testing.T) {
		gate, _ := newGate(t)
		inner := &countingScheduler{}
		entries, entryID := seedEntry("acme")
		scheduler := NewGuardedScheduler(gate, entries, inner)

		ctx := domain.WithPrincipal(context.Background(), principal(domain.RoleCustomerUser))

		_, err := scheduler.Extend(ctx, "user-1", entryID, 90, "hold")
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
		assert.Zero(t, inner.extends.Load())

		ctx = domain.WithPrincipal(context.Background(), principal(domain.RoleCustomerAdmin))
		_, err = scheduler.Extend(ctx, "user-1", entryID, 90, "hold")
		require.NoError(t, err)
		assert.Equal(t, int64(1), inner.extends.Load())
	})

	t.Run("ExtendCrossTenantDenied", func(t *testing.T) {
		gate, sink := newGate(t)
		inner := &countingScheduler{}
		entries, entryID := seedEntry("globex")
		scheduler := NewGuardedScheduler(gate, entries, inner)

		ctx := domain.WithPrincipal(context.Background(), principal(domain.RoleCustomerAdmin))

		// The entry belongs to globex; an acme admin supplying its ID must
		// be refused against the entry's tenant, not their own.
		_, err := scheduler.Extend(ctx, "user-1", entryID, 90, "hold")
		assert.ErrorIs(t, err, domain.ErrTenantMismatch)
		assert.Zero(t, inner.extends.Load())
		require.Len(t, sink.Events(), 1)
		assert.Equal(t, "globex", sink.Events()[0].TenantID)
	})

	t.Run("ExtendMissingEntry", func(t *testing.T) {
		gate, _ := newGate(t)
		inner := &countingScheduler{}
		scheduler := NewGuardedScheduler(gate, &stubEntryRepo{}, inner)

		ctx := domain.WithPrincipal(context.Background(), principal(domain.RoleCustomerAdmin))

		_, err := scheduler.Extend(ctx, "user-1", uuid.Must(uuid.NewV7()), 90, "hold")
		assert.ErrorIs(t, err, retentionDomain.ErrEntryNotFound)
		assert.Zero(t, inner.extends.Load())
	})

	t.Run("StatusCrossTenantDenied", func(t *testing.T) {
		gate, _ := newGate(t)
		inner := &countingScheduler{}
		scheduler := NewGuardedScheduler(gate, &stubEntryRepo{}, inner)

		ctx := domain.WithPrincipal(context.Background(), principal(domain.RoleCustomerAdmin))

		_, err := scheduler.Status(ctx, "globex")
		assert.ErrorIs(t, err, domain.ErrTenantMismatch)
		assert.Zero(t, inner.statuses.Load())
	})

	t.Run("SweepRunsWithoutPrincipal", func(t *testing.T) {
		gate, sink := newGate(t)
		inner := &countingScheduler{}
		scheduler := NewGuardedScheduler(gate, &stubEntryRepo{}, inner)

		_, err := scheduler.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), inner.sweeps.Load())
		assert.Empty(t, sink.Events())
	})

	t.Run("MissingPrincipalRejected", func(t *testing.T) {
		gate, _ := newGate(t)
		inner := &countingScheduler{}
		scheduler := NewGuardedScheduler(gate, &stubEntryRepo{}, inner)

		_, err := scheduler.Status(context.Background(), "acme")
		assert.ErrorIs(t, err, domain.ErrNoPrincipal)
		assert.Zero(t, inner.statuses.Load())
	})
}

func TestGuardedExecutor(t *testing.T) {
	t.Run("ApproveRequiresDeletePermission", func(t *testing.T) {
		gate, _ := newGate(t)
		inner := &countingExecutor{}
		queue, itemID := seedPendingItem("acme")
		executor := NewGuardedExecutor(gate, queue, inner)

		ctx := domain.WithPrincipal(context.Background(), principal(domain.RoleCustomerUser))
		_, err := executor.Approve(ctx, "user-1", itemID)
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
		assert.Zero(t, inner.approves.Load())

		ctx = domain.WithPrincipal(context.Background(), principal(domain.RoleCustomerAdmin))
		_, err = executor.Approve(ctx, "user-1", itemID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), inner.approves.Load())
	})

	t.Run("ApproveCrossTenantDenied", func(t *testing.T) {
		gate, sink := newGate(t)
		inner := &countingExecutor{}
		queue, itemID := seedPendingItem("globex")
		executor := NewGuardedExecutor(gate, queue, inner)

		ctx := domain.WithPrincipal(context.Background(), principal(domain.RoleCustomerAdmin))

		// The pending item belongs to globex; an acme admin supplying its
		// ID must be refused against the item's tenant, not their own.
		_, err := executor.Approve(ctx, "user-1", itemID)
		assert.ErrorIs(t, err, domain.ErrTenantMismatch)
		assert.Zero(t, inner.approves.Load())
		require.Len(t, sink.Events(), 1)
		assert.Equal(t, "globex", sink.Events()[0].TenantID)
	})

	t.Run("ApproveMissingItem", func(t *testing.T) {
		gate, _ := newGate(t)
		inner := &countingExecutor{}
		executor := NewGuardedExecutor(gate, &stubQueueRepo{}, inner)

		ctx := domain.WithPrincipal(context.Background(), principal(domain.RoleCustomerAdmin))

		_, err := executor.Approve(ctx, "user-1", uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, retentionDomain.ErrQueueItemNotFound)
		assert.Zero(t, inner.approves.Load())
	})

	t.Run("DeleteTenantDataCrossTenantDenied", func(t *testing.T) {
		gate, _ := newGate(t)
		inner := &countingExecutor{}
		executor := NewGuardedExecutor(gate, &stubQueueRepo{}, inner)

		ctx := domain.WithPrincipal(context.Background(), principal(domain.RoleCustomerAdmin))
		_, err := executor.DeleteTenantData(ctx, "user-1", "globex", "account closure")
		assert.ErrorIs(t, err, domain.ErrTenantMismatch)
		assert.Zero(t, inner.purges.Load())
	})

	t.Run("ProcessQueueRunsWithoutPrincipal", func(t *testing.T) {
		gate, sink := newGate(t)
		inner := &countingExecutor{}
		executor := NewGuardedExecutor(gate, &stubQueueRepo{}, inner)

		_, err := executor.ProcessQueue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), inner.processes.Load())
		assert.Empty(t, sink.Events())
	})
}

var (
	_ retentionUseCase.Scheduler       = (*countingScheduler)(nil)
	_ deletionUseCase.Executor         = (*countingExecutor)(nil)
	_ retentionUseCase.EntryRepository = (*stubEntryRepo)(nil)
	_ retentionUseCase.QueueRepository = (*stubQueueRepo)(nil)
)
