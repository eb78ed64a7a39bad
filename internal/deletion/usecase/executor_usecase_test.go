package usecase

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"

	auditDomain "github.com/themisguard/datashield/internal/audit/domain"
	audittest "github.com/themisguard/datashield/internal/audit/testing"
	"github.com/themisguard/datashield/internal/deletion/domain"
	apperrors "github.com/themisguard/datashield/internal/errors"
	retentionDomain "github.com/themisguard/datashield/internal/retention/domain"
	"github.com/themisguard/datashield/internal/storage"
	"github.com/themisguard/datashield/internal/tenant"
)

// fakeEntryRepo is an in-memory EntryRepository.
type fakeEntryRepo struct {
	mu      sync.Mutex
	entries []retentionDomain.Entry
}

func (r *fakeEntryRepo) Create(ctx context.Context, entry *retentionDomain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeEntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*retentionDomain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.ID == id {
			found := entry
			return &found, nil
		}
	}
	return nil, retentionDomain.ErrEntryNotFound
}

func (r *fakeEntryRepo) ListExpired(ctx context.Context, before time.Time, limit int) ([]*retentionDomain.Entry, error) {
	return nil, nil
}

func (r *fakeEntryRepo) ListByTenant(ctx context.Context, tenantID string) ([]*retentionDomain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*retentionDomain.Entry
	for _, entry := range r.entries {
		if entry.TenantID == tenantID {
			copied := entry
			found = append(found, &copied)
		}
	}
	return found, nil
}

func (r *fakeEntryRepo) Update(ctx context.Context, entry *retentionDomain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == entry.ID {
			r.entries[i] = *entry
			return nil
		}
	}
	return retentionDomain.ErrEntryNotFound
}

// fakeQueueRepo is an in-memory QueueRepository.
type fakeQueueRepo struct {
	mu    sync.Mutex
	items []retentionDomain.QueueItem
}

func (r *fakeQueueRepo) Create(ctx context.Context, item *retentionDomain.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *item)
	return nil
}

func (r *fakeQueueRepo) GetByID(ctx context.Context, id uuid.UUID) (*retentionDomain.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, retentionDomain.ErrQueueItemNotFound
}

func (r *fakeQueueRepo) ListByStatus(ctx context.Context, status retentionDomain.QueueItemStatus, limit int) ([]*retentionDomain.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*retentionDomain.QueueItem
	for _, item := range r.items {
		if item.Status == status {
			copied := item
			found = append(found, &copied)
			if len(found) == limit {
				break
			}
		}
	}
	return found, nil
}

func (r *fakeQueueRepo) ListByTenant(ctx context.Context, tenantID string) ([]*retentionDomain.QueueItem, error) {
	return nil, nil
}

func (r *fakeQueueRepo) Update(ctx context.Context, item *retentionDomain.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == item.ID {
			r.items[i] = *item
			return nil
		}
	}
	return retentionDomain.ErrQueueItemNotFound
}

// passthroughTxManager runs the function without a real transaction.
type passthroughTxManager struct{}

func (passthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type destroyCall struct {
	actor     string
	tenantID  string
	graceDays int
}

// fakeKeyDestroyer records key destruction requests.
type fakeKeyDestroyer struct {
	mu    sync.Mutex
	calls []destroyCall
	err   error
}

func (d *fakeKeyDestroyer) DestroyKey(ctx context.Context, actor, tenantID string, graceDays int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.calls = append(d.calls, destroyCall{actor: actor, tenantID: tenantID, graceDays: graceDays})
	return nil
}

func (d *fakeKeyDestroyer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// flakyDocumentStore injects failures into an underlying DocumentStore.
type flakyDocumentStore struct {
	storage.DocumentStore
	deleteErr    error
	existsAlways bool
}

func (s *flakyDocumentStore) Delete(ctx context.Context, scope tenant.Scope, resourceType, resourceID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.DocumentStore.Delete(ctx, scope, resourceType, resourceID)
}

func (s *flakyDocumentStore) Exists(ctx context.Context, scope tenant.Scope, resourceType, resourceID string) (bool, error) {
	if s.existsAlways {
		return true, nil
	}
	return s.DocumentStore.Exists(ctx, scope, resourceType, resourceID)
}

type executorDeps struct {
	entryRepo *fakeEntryRepo
	queueRepo *fakeQueueRepo
	keys      *fakeKeyDestroyer
	documents storage.DocumentStore
	objects   *storage.ObjectStore
	sink      *audittest.RecordingSink
}

func newExecutor(t *testing.T, documents storage.DocumentStore) (Executor, *executorDeps) {
	t.Helper()

	bucket, err := blob.OpenBucket(context.Background(), "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bucket.Close() })

	deps := &executorDeps{
		entryRepo: &fakeEntryRepo{},
		queueRepo: &fakeQueueRepo{},
		keys:      &fakeKeyDestroyer{},
		documents: documents,
		objects:   storage.NewObjectStore(bucket),
		sink:      audittest.NewRecordingSink(),
	}

	executor := NewExecutorUseCase(
		ExecutorConfig{
			MaxRetries:              3,
			RetryBackoff:            time.Millisecond,
			BatchSize:               100,
			KeyDestructionGraceDays: 7,
		},
		passthroughTxManager{},
		deps.entryRepo,
		deps.queueRepo,
		deps.keys,
		deps.documents,
		deps.objects,
		deps.sink,
		slog.New(slog.DiscardHandler),
	)
	return executor, deps
}

// seedQueueItem creates a queued entry and its deletion queue item in the
// given status.
func seedQueueItem(t *testing.T, deps *executorDeps, tenantID, resourceType, resourceID string, category retentionDomain.DataCategory, status retentionDomain.QueueItemStatus) (*retentionDomain.Entry, *retentionDomain.QueueItem) {
	t.Helper()
	ctx := context.Background()

	entry, err := retentionDomain.NewEntry(tenantID, resourceType, resourceID, category, time.Now().UTC().AddDate(-20, 0, 0))
	require.NoError(t, err)
	entry.Status = retentionDomain.EntryStatusQueued
	require.NoError(t, deps.entryRepo.Create(ctx, entry))

	policy, err := retentionDomain.PolicyFor(category)
	require.NoError(t, err)

	item := retentionDomain.NewQueueItem(entry, policy, "system", "retention window expired")
	item.Status = status
	require.NoError(t, deps.queueRepo.Create(ctx, item))
	return entry, item
}

func TestExecutorUseCase_ProcessQueue(t *testing.T) {
	ctx := context.Background()
	scope := tenant.MustScope("acme")

	t.Run("HardDeleteRemovesDocumentAndObjects", func(t *testing.T) {
		executor, deps := newExecutor(t, storage.NewMemoryDocumentStore())

		entry, item := seedQueueItem(t, deps, "acme", "logs", "log-1", retentionDomain.CategorySystemLogs, retentionDomain.QueueItemStatusReady)
		require.NoError(t, deps.documents.Put(ctx, scope, "logs", "log-1", map[string]any{"line": "boot"}))
		prefix, err := scope.ObjectPrefix("logs", "log-1")
		require.NoError(t, err)
		require.NoError(t, deps.objects.Put(ctx, prefix+"raw.log", []byte("boot")))

		result, err := executor.ProcessQueue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 1, result.Completed)

		exists, err := deps.documents.Exists(ctx, scope, "logs", "log-1")
		require.NoError(t, err)
		assert.False(t, exists)

		count, err := deps.objects.CountPrefix(ctx, prefix)
		require.NoError(t, err)
		assert.Zero(t, count)

		stored, err := deps.queueRepo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, retentionDomain.QueueItemStatusCompleted, stored.Status)
		require.NotNil(t, stored.CompletedAt)

		closed, err := deps.entryRepo.GetByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, retentionDomain.EntryStatusDeleted, closed.Status)

		events := deps.sink.ByAction("execute_deletion")
		require.Len(t, events, 1)
		assert.Equal(t, auditDomain.ResultSuccess, events[0].Result)
		assert.Equal(t, "retention window expired", events[0].Metadata["reason"])
		assert.Equal(t, "system", events[0].Metadata["requested_by"])
	})

	t.Run("SoftDeleteKeepsDocumentRecoverable", func(t *testing.T) {
		executor, deps := newExecutor(t, storage.NewMemoryDocumentStore())

		seedQueueItem(t, deps, "acme", "billing", "inv-1", retentionDomain.CategoryBillingData, retentionDomain.QueueItemStatusReady)
		require.NoError(t, deps.documents.Put(ctx, scope, "billing", "inv-1", map[string]any{"amount": 100}))

		result, err := executor.ProcessQueue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Completed)

		_, err = deps.documents.Get(ctx, scope, "billing", "inv-1")
		assert.ErrorIs(t, err, storage.ErrDocumentNotFound)

		exists, err := deps.documents.Exists(ctx, scope, "billing", "inv-1")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("CryptoErasureDestroysTenantKeys", func(t *testing.T) {
		executor, deps := newExecutor(t, storage.NewMemoryDocumentStore())

		seedQueueItem(t, deps, "acme", "scan-data", "scan-1", retentionDomain.CategoryProtectedHealthData, retentionDomain.QueueItemStatusReady)

		result, err := executor.ProcessQueue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Completed)

		require.Equal(t, 1, deps.keys.callCount())
		assert.Equal(t, destroyCall{actor: "system", tenantID: "acme", graceDays: 7}, deps.keys.calls[0])
	})

	t.Run("PendingApprovalUntouched", func(t *testing.T) {
		executor, deps := newExecutor(t, storage.NewMemoryDocumentStore())

		_, item := seedQueueItem(t, deps, "acme", "scan-data", "scan-1", retentionDomain.CategoryProtectedHealthData, retentionDomain.QueueItemStatusPendingApproval)

		result, err := executor.ProcessQueue(ctx)
		require.NoError(t, err)
		assert.Zero(t, result.Processed)

		stored, err := deps.queueRepo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, retentionDomain.QueueItemStatusPendingApproval, stored.Status)
		assert.Zero(t, deps.keys.callCount())
	})

	t.Run("ExhaustedRetriesEscalateToOperator", func(t *testing.T) {
		documents := &flakyDocumentStore{
			DocumentStore: storage.NewMemoryDocumentStore(),
			deleteErr:     apperrors.New("backend down"),
		}
		executor, deps := newExecutor(t, documents)

		_, item := seedQueueItem(t, deps, "acme", "logs", "log-1", retentionDomain.CategorySystemLogs, retentionDomain.QueueItemStatusReady)

		result, err := executor.ProcessQueue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Failed)

		stored, err := deps.queueRepo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, retentionDomain.QueueItemStatusFailed, stored.Status)
		assert.Equal(t, 3, stored.Attempts)
		require.NotNil(t, stored.LastError)

		events := deps.sink.ByAction("execute_deletion")
		require.Len(t, events, 1)
		assert.Equal(t, auditDomain.ResultError, events[0].Result)
		assert.Equal(t, true, events[0].Metadata["needs_operator"])
	})

	t.Run("VerificationFailureBlocksCompletion", func(t *testing.T) {
		documents := &flakyDocumentStore{
			DocumentStore: storage.NewMemoryDocumentStore(),
			existsAlways:  true,
		}
		executor, deps := newExecutor(t, documents)

		_, item := seedQueueItem(t, deps, "acme", "logs", "log-1", retentionDomain.CategorySystemLogs, retentionDomain.QueueItemStatusReady)

		result, err := executor.ProcessQueue(ctx)
		require.NoError(t, err)
		assert.Zero(t, result.Completed)

		stored, err := deps.queueRepo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, retentionDomain.QueueItemStatusFailed, stored.Status)
		require.NotNil(t, stored.LastError)
		assert.Contains(t, *stored.LastError, domain.ErrVerificationFailed.Error())
	})

	t.Run("CompletedItemsNotReprocessed", func(t *testing.T) {
		executor, deps := newExecutor(t, storage.NewMemoryDocumentStore())

		seedQueueItem(t, deps, "acme", "scan-data", "scan-1", retentionDomain.CategoryProtectedHealthData, retentionDomain.QueueItemStatusReady)

		_, err := executor.ProcessQueue(ctx)
		require.NoError(t, err)

		again, err := executor.ProcessQueue(ctx)
		require.NoError(t, err)
		assert.Zero(t, again.Processed)
		assert.Equal(t, 1, deps.keys.callCount())
	})
}

func TestExecutorUseCase_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("MarksPendingItemReady", func(t *testing.T) {
		executor, deps := newExecutor(t, storage.NewMemoryDocumentStore())

		_, item := seedQueueItem(t, deps, "acme", "scan-data", "scan-1", retentionDomain.CategoryProtectedHealthData, retentionDomain.QueueItemStatusPendingApproval)

		approved, err := executor.Approve(ctx, "compliance@example.com", item.ID)
		require.NoError(t, err)
		assert.Equal(t, retentionDomain.QueueItemStatusReady, approved.Status)
		require.NotNil(t, approved.ApprovedBy)
		assert.Equal(t, "compliance@example.com", *approved.ApprovedBy)

		require.Len(t, deps.sink.ByAction("approve_deletion"), 1)
	})

	t.Run("OnlyPendingItemsApprovable", func(t *testing.T) {
		executor, deps := newExecutor(t, storage.NewMemoryDocumentStore())

		_, item := seedQueueItem(t, deps, "acme", "logs", "log-1", retentionDomain.CategorySystemLogs, retentionDomain.QueueItemStatusReady)

		_, err := executor.Approve(ctx, "compliance@example.com", item.ID)
		assert.ErrorIs(t, err, retentionDomain.ErrNotPendingApproval)
	})

	t.Run("MissingItem", func(t *testing.T) {
		executor, _ := newExecutor(t, storage.NewMemoryDocumentStore())

		_, err := executor.Approve(ctx, "compliance@example.com", uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, retentionDomain.ErrQueueItemNotFound)
	})
}

func TestExecutorUseCase_DeleteTenantData(t *testing.T) {
	ctx := context.Background()
	scope := tenant.MustScope("acme")

	t.Run("ErasesTenantKeepingAuditTrail", func(t *testing.T) {
		executor, deps := newExecutor(t, storage.NewMemoryDocumentStore())

		require.NoError(t, deps.documents.Put(ctx, scope, "scan-data", "scan-1", map[string]any{"v": 1}))
		require.NoError(t, deps.documents.Put(ctx, scope, "billing", "inv-1", map[string]any{"v": 2}))
		require.NoError(t, deps.objects.Put(ctx, scope.ObjectRoot()+"scans/scan-1/report.pdf", []byte("report")))

		dataEntry, err := retentionDomain.NewEntry("acme", "scan-data", "scan-1", retentionDomain.CategoryProtectedHealthData, time.Now().UTC())
		require.NoError(t, err)
		require.NoError(t, deps.entryRepo.Create(ctx, dataEntry))
		auditEntry, err := retentionDomain.NewEntry("acme", "audit", "trail-1", retentionDomain.CategoryAuditLogs, time.Now().UTC())
		require.NoError(t, err)
		require.NoError(t, deps.entryRepo.Create(ctx, auditEntry))

		result, err := executor.DeleteTenantData(ctx, "dpo@example.com", "acme", "customer erasure request")
		require.NoError(t, err)
		assert.Equal(t, 2, result.DocumentsRemoved)
		assert.Equal(t, 1, result.ObjectsRemoved)
		assert.Equal(t, 1, result.EntriesClosed)

		require.Equal(t, 1, deps.keys.callCount())
		assert.Equal(t, "dpo@example.com", deps.keys.calls[0].actor)

		closed, err := deps.entryRepo.GetByID(ctx, dataEntry.ID)
		require.NoError(t, err)
		assert.Equal(t, retentionDomain.EntryStatusDeleted, closed.Status)

		kept, err := deps.entryRepo.GetByID(ctx, auditEntry.ID)
		require.NoError(t, err)
		assert.Equal(t, retentionDomain.EntryStatusActive, kept.Status)

		events := deps.sink.ByAction("delete_tenant_data")
		require.Len(t, events, 1)
		assert.Equal(t, auditDomain.ResultSuccess, events[0].Result)
		assert.Equal(t, "customer erasure request", events[0].Metadata["reason"])
	})

	t.Run("OtherTenantsUntouched", func(t *testing.T) {
		executor, deps := newExecutor(t, storage.NewMemoryDocumentStore())
		other := tenant.MustScope("globex")

		require.NoError(t, deps.documents.Put(ctx, scope, "scan-data", "scan-1", map[string]any{"v": 1}))
		require.NoError(t, deps.documents.Put(ctx, other, "scan-data", "scan-9", map[string]any{"v": 9}))
		require.NoError(t, deps.objects.Put(ctx, other.ObjectRoot()+"scans/scan-9/report.pdf", []byte("report")))

		_, err := executor.DeleteTenantData(ctx, "dpo@example.com", "acme", "customer erasure request")
		require.NoError(t, err)

		_, err = deps.documents.Get(ctx, other, "scan-data", "scan-9")
		assert.NoError(t, err)

		count, err := deps.objects.CountPrefix(ctx, other.ObjectRoot())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("InvalidTenantRejected", func(t *testing.T) {
		executor, _ := newExecutor(t, storage.NewMemoryDocumentStore())

		_, err := executor.DeleteTenantData(ctx, "dpo@example.com", "Not A Tenant", "customer erasure request")
		assert.Error(t, err)
	})

	t.Run("MissingReasonRejected", func(t *testing.T) {
		executor, deps := newExecutor(t, storage.NewMemoryDocumentStore())

		_, err := executor.DeleteTenantData(ctx, "dpo@example.com", "acme", "")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Zero(t, deps.keys.callCount())
	})
}

func TestQueueWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	executor, _ := newExecutor(t, storage.NewMemoryDocumentStore())
	worker := NewQueueWorker(executor, 5*time.Millisecond, slog.New(slog.DiscardHandler))

	worker.Start(context.Background())
	time.Sleep(25 * time.Millisecond)
	worker.Stop()
}
