package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	auditDomain "github.com/themisguard/datashield/internal/audit/domain"
	auditUseCase "github.com/themisguard/datashield/internal/audit/usecase"
	"github.com/themisguard/datashield/internal/database"
	"github.com/themisguard/datashield/internal/deletion/domain"
	apperrors "github.com/themisguard/datashield/internal/errors"
	keyringDomain "github.com/themisguard/datashield/internal/keyring/domain"
	retentionDomain "github.com/themisguard/datashield/internal/retention/domain"
	retentionUseCase "github.com/themisguard/datashield/internal/retention/usecase"
	"github.com/themisguard/datashield/internal/storage"
	"github.com/themisguard/datashield/internal/tenant"
)

// ExecutorConfig holds deletion executor configuration.
type ExecutorConfig struct {
	// MaxRetries caps execution attempts per queue item before it is marked
	// failed for operator attention.
	MaxRetries int

	// RetryBackoff is the initial backoff between execution retries.
	RetryBackoff time.Duration

	// BatchSize bounds the queue items fetched per status per pass.
	BatchSize int

	// KeyDestructionGraceDays is the grace window applied to crypto erasure.
	KeyDestructionGraceDays int
}

// executorUseCase implements Executor.
type executorUseCase struct {
	config      ExecutorConfig
	txManager   database.TxManager
	entryRepo   retentionUseCase.EntryRepository
	queueRepo   retentionUseCase.QueueRepository
	keyRegistry KeyDestroyer
	documents   storage.DocumentStore
	objects     ObjectRemover
	auditSink   auditUseCase.Sink
	logger      *slog.Logger
	now         func() time.Time
}

// NewExecutorUseCase creates a new Executor.
func NewExecutorUseCase(
	config ExecutorConfig,
	txManager database.TxManager,
	entryRepo retentionUseCase.EntryRepository,
	queueRepo retentionUseCase.QueueRepository,
	keyRegistry KeyDestroyer,
	documents storage.DocumentStore,
	objects ObjectRemover,
	auditSink auditUseCase.Sink,
	logger *slog.Logger,
) Executor {
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	if config.BatchSize < 1 {
		config.BatchSize = 100
	}
	return &executorUseCase{
		config:      config,
		txManager:   txManager,
		entryRepo:   entryRepo,
		queueRepo:   queueRepo,
		keyRegistry: keyRegistry,
		documents:   documents,
		objects:     objects,
		auditSink:   auditSink,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ProcessQueue executes ready and retry-eligible queue items. Each item's
// outcome is persisted individually, so one failing item never blocks the
// rest of the pass.
func (uc *executorUseCase) ProcessQueue(ctx context.Context) (*ProcessResult, error) {
	result := &ProcessResult{}

	// Both lists are fetched before execution so an item failing out of
	// ready into retry_needed is not retried twice in the same pass.
	var items []*retentionDomain.QueueItem
	statuses := []retentionDomain.QueueItemStatus{
		retentionDomain.QueueItemStatusReady,
		retentionDomain.QueueItemStatusRetryNeeded,
	}
	for _, status := range statuses {
		batch, err := uc.queueRepo.ListByStatus(ctx, status, uc.config.BatchSize)
		if err != nil {
			return result, err
		}
		items = append(items, batch...)
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		uc.processItem(ctx, item, result)
	}
	return result, nil
}

func (uc *executorUseCase) processItem(ctx context.Context, item *retentionDomain.QueueItem, result *ProcessResult) {
	result.Processed++

	remaining := uc.config.MaxRetries - item.Attempts
	if remaining < 1 {
		remaining = 1
	}
	backoff := retry.WithMaxRetries(uint64(remaining-1), retry.NewExponential(uc.config.RetryBackoff))

	execErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		item.Attempts++
		if err := uc.execute(ctx, item); err != nil {
			uc.logger.Warn("deletion attempt failed",
				slog.String("tenant_id", item.TenantID),
				slog.String("resource_id", item.ResourceID),
				slog.String("method", string(item.Method)),
				slog.Int("attempts", item.Attempts),
				slog.Any("error", err),
			)
			return retry.RetryableError(err)
		}
		return nil
	})

	if execErr == nil {
		uc.completeItem(ctx, item, result)
		return
	}
	uc.recordFailure(ctx, item, execErr, result)
}

func (uc *executorUseCase) completeItem(ctx context.Context, item *retentionDomain.QueueItem, result *ProcessResult) {
	completedAt := uc.now()
	item.Status = retentionDomain.QueueItemStatusCompleted
	item.CompletedAt = &completedAt
	item.LastError = nil

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.queueRepo.Update(ctx, item); err != nil {
			return err
		}
		return uc.closeEntry(ctx, item.EntryID)
	})
	if err != nil {
		uc.logger.Error("failed to record completed deletion",
			slog.String("resource_id", item.ResourceID),
			slog.Any("error", err),
		)
		result.Retried++
		return
	}

	result.Completed++
	uc.emit(ctx, auditDomain.NewEvent("system", item.TenantID, "execute_deletion", item.ResourceType, item.ResourceID, auditDomain.ResultSuccess).
		WithMetadata(map[string]any{
			"method":       string(item.Method),
			"category":     string(item.Category),
			"attempts":     item.Attempts,
			"reason":       item.Reason,
			"requested_by": item.RequestedBy,
		}))
}

func (uc *executorUseCase) recordFailure(ctx context.Context, item *retentionDomain.QueueItem, execErr error, result *ProcessResult) {
	message := execErr.Error()
	item.LastError = &message

	metadata := map[string]any{
		"method":       string(item.Method),
		"category":     string(item.Category),
		"attempts":     item.Attempts,
		"reason":       item.Reason,
		"requested_by": item.RequestedBy,
	}
	if item.Attempts >= uc.config.MaxRetries {
		item.Status = retentionDomain.QueueItemStatusFailed
		metadata["needs_operator"] = true
		result.Failed++
		uc.logger.Error("deletion exhausted retries, operator attention required",
			slog.String("tenant_id", item.TenantID),
			slog.String("resource_id", item.ResourceID),
			slog.String("method", string(item.Method)),
			slog.Any("error", execErr),
		)
	} else {
		item.Status = retentionDomain.QueueItemStatusRetryNeeded
		result.Retried++
	}

	if err := uc.queueRepo.Update(ctx, item); err != nil {
		uc.logger.Error("failed to record deletion failure",
			slog.String("resource_id", item.ResourceID),
			slog.Any("error", err),
		)
	}
	uc.emit(ctx, auditDomain.NewEvent("system", item.TenantID, "execute_deletion", item.ResourceType, item.ResourceID, auditDomain.ResultSuccess).
		WithMetadata(metadata).
		WithError(execErr))
}

// execute applies the item's deletion method. Every method is idempotent so a
// retried item that partially completed converges.
func (uc *executorUseCase) execute(ctx context.Context, item *retentionDomain.QueueItem) error {
	scope, err := tenant.NewScope(item.TenantID)
	if err != nil {
		return err
	}

	switch item.Method {
	case retentionDomain.MethodCryptoErasure:
		err := uc.keyRegistry.DestroyKey(ctx, "system", item.TenantID, uc.config.KeyDestructionGraceDays)
		if err != nil && !apperrors.Is(err, keyringDomain.ErrKeyNotFound) {
			return err
		}
		return nil
	case retentionDomain.MethodHardDelete:
		return uc.hardDelete(ctx, scope, item)
	case retentionDomain.MethodSoftDelete:
		return uc.documents.SoftDelete(ctx, scope, item.ResourceType, item.ResourceID)
	default:
		return apperrors.Wrap(domain.ErrUnknownMethod, fmt.Sprintf("method %q", item.Method))
	}
}

// hardDelete removes the document and its blobs, then verifies the document
// is physically gone before reporting success.
func (uc *executorUseCase) hardDelete(ctx context.Context, scope tenant.Scope, item *retentionDomain.QueueItem) error {
	if err := uc.documents.Delete(ctx, scope, item.ResourceType, item.ResourceID); err != nil {
		return err
	}

	exists, err := uc.documents.Exists(ctx, scope, item.ResourceType, item.ResourceID)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrVerificationFailed
	}

	prefix, err := scope.ObjectPrefix(item.ResourceType, item.ResourceID)
	if err != nil {
		return err
	}
	_, err = uc.objects.DeletePrefix(ctx, prefix)
	return err
}

func (uc *executorUseCase) closeEntry(ctx context.Context, entryID uuid.UUID) error {
	entry, err := uc.entryRepo.GetByID(ctx, entryID)
	if err != nil {
		if apperrors.Is(err, retentionDomain.ErrEntryNotFound) {
			return nil
		}
		return err
	}
	entry.Status = retentionDomain.EntryStatusDeleted
	return uc.entryRepo.Update(ctx, entry)
}

// Approve marks a pending queue item ready for execution.
func (uc *executorUseCase) Approve(ctx context.Context, actor string, queueItemID uuid.UUID) (*retentionDomain.QueueItem, error) {
	var item *retentionDomain.QueueItem
	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		item, err = uc.queueRepo.GetByID(ctx, queueItemID)
		if err != nil {
			return err
		}
		if err := item.Approve(actor, uc.now()); err != nil {
			return err
		}
		return uc.queueRepo.Update(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	uc.emit(ctx, auditDomain.NewEvent(actor, item.TenantID, "approve_deletion", item.ResourceType, item.ResourceID, auditDomain.ResultSuccess).
		WithMetadata(map[string]any{
			"method":   string(item.Method),
			"category": string(item.Category),
		}))
	return item, nil
}

// DeleteTenantData erases a tenant on request. Key destruction makes all
// encrypted data unrecoverable after the grace window; documents and objects
// are removed immediately. Retention entries for audit logs are left open so
// the audit trail outlives the tenant.
func (uc *executorUseCase) DeleteTenantData(ctx context.Context, actor, tenantID, reason string) (*PurgeResult, error) {
	if reason == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "erasure reason is required")
	}

	scope, err := tenant.NewScope(tenantID)
	if err != nil {
		return nil, err
	}

	result := &PurgeResult{}

	err = uc.keyRegistry.DestroyKey(ctx, actor, tenantID, uc.config.KeyDestructionGraceDays)
	if err != nil && !apperrors.Is(err, keyringDomain.ErrKeyNotFound) {
		uc.emitPurgeEvent(ctx, actor, tenantID, reason, result, err)
		return nil, err
	}

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		removed, err := uc.documents.DropTenant(ctx, scope)
		if err != nil {
			return err
		}
		result.DocumentsRemoved = removed

		entries, err := uc.entryRepo.ListByTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.Category == retentionDomain.CategoryAuditLogs || entry.Status == retentionDomain.EntryStatusDeleted {
				continue
			}
			entry.Status = retentionDomain.EntryStatusDeleted
			if err := uc.entryRepo.Update(ctx, entry); err != nil {
				return err
			}
			result.EntriesClosed++
		}
		return nil
	})
	if err != nil {
		uc.emitPurgeEvent(ctx, actor, tenantID, reason, result, err)
		return nil, err
	}

	removedObjects, err := uc.objects.DeletePrefix(ctx, scope.ObjectRoot())
	if err != nil {
		uc.emitPurgeEvent(ctx, actor, tenantID, reason, result, err)
		return nil, err
	}
	result.ObjectsRemoved = removedObjects

	uc.emitPurgeEvent(ctx, actor, tenantID, reason, result, nil)
	return result, nil
}

func (uc *executorUseCase) emitPurgeEvent(ctx context.Context, actor, tenantID, reason string, result *PurgeResult, purgeErr error) {
	uc.emit(ctx, auditDomain.NewEvent(actor, tenantID, "delete_tenant_data", "tenant", tenantID, auditDomain.ResultSuccess).
		WithMetadata(map[string]any{
			"reason":            reason,
			"documents_removed": result.DocumentsRemoved,
			"objects_removed":   result.ObjectsRemoved,
			"entries_closed":    result.EntriesClosed,
		}).
		WithError(purgeErr))
}

func (uc *executorUseCase) emit(ctx context.Context, event *auditDomain.Event) {
	if err := uc.auditSink.Emit(ctx, event); err != nil {
		uc.logger.Warn("failed to emit audit event",
			slog.String("action", event.Action),
			slog.Any("error", err),
		)
	}
}
