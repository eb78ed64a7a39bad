package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	auditDomain "github.com/themisguard/datashield/internal/audit/domain"
	auditUseCase "github.com/themisguard/datashield/internal/audit/usecase"
	"github.com/themisguard/datashield/internal/database"
	apperrors "github.com/themisguard/datashield/internal/errors"
	"github.com/themisguard/datashield/internal/retention/domain"
	"github.com/themisguard/datashield/internal/tenant"
)

// expiringSoonWindow is the lookahead used by Status reports.
const expiringSoonWindow = 30 * 24 * time.Hour

// SchedulerConfig holds retention scheduler configuration.
type SchedulerConfig struct {
	SweepBatchSize  int
	SweepRatePerSec float64
}

// schedulerUseCase implements Scheduler.
type schedulerUseCase struct {
	config    SchedulerConfig
	txManager database.TxManager
	entryRepo EntryRepository
	queueRepo QueueRepository
	auditSink auditUseCase.Sink
	logger    *slog.Logger
	now       func() time.Time
}

// NewSchedulerUseCase creates a new Scheduler.
func NewSchedulerUseCase(
	config SchedulerConfig,
	txManager database.TxManager,
	entryRepo EntryRepository,
	queueRepo QueueRepository,
	auditSink auditUseCase.Sink,
	logger *slog.Logger,
) Scheduler {
	return &schedulerUseCase{
		config:    config,
		txManager: txManager,
		entryRepo: entryRepo,
		queueRepo: queueRepo,
		auditSink: auditSink,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Schedule records stored data in the retention ledger.
func (uc *schedulerUseCase) Schedule(ctx context.Context, tenantID, resourceType, resourceID string, category domain.DataCategory, storedAt time.Time) (*domain.Entry, error) {
	if _, err := tenant.NewScope(tenantID); err != nil {
		return nil, err
	}

	entry, err := domain.NewEntry(tenantID, resourceType, resourceID, category, storedAt)
	if err != nil {
		uc.emitScheduleEvent(ctx, tenantID, resourceType, resourceID, nil, category, err)
		return nil, err
	}

	if err := uc.entryRepo.Create(ctx, entry); err != nil {
		uc.emitScheduleEvent(ctx, tenantID, resourceType, resourceID, entry, category, err)
		return nil, err
	}

	uc.emitScheduleEvent(ctx, tenantID, resourceType, resourceID, entry, category, nil)
	return entry, nil
}

func (uc *schedulerUseCase) emitScheduleEvent(ctx context.Context, tenantID, resourceType, resourceID string, entry *domain.Entry, category domain.DataCategory, schedErr error) {
	metadata := map[string]any{
		"category": string(category),
	}
	if entry != nil {
		metadata["audit_level"] = string(entry.AuditLevel)
		if entry.ExpiresAt != nil {
			metadata["expires_at"] = entry.ExpiresAt.Format(time.RFC3339)
		} else {
			metadata["expires_at"] = "indefinite"
		}
	}

	uc.emit(ctx, auditDomain.NewEvent("system", tenantID, "schedule_retention", resourceType, resourceID, auditDomain.ResultSuccess).
		WithMetadata(metadata).
		WithError(schedErr))
}

// Extend pushes an entry's expiry out, recording who extended it and why.
func (uc *schedulerUseCase) Extend(ctx context.Context, actor string, entryID uuid.UUID, extendDays int, reason string) (*domain.Entry, error) {
	if extendDays <= 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "extension days must be positive")
	}
	if reason == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "extension reason is required")
	}

	var entry *domain.Entry
	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		entry, err = uc.entryRepo.GetByID(ctx, entryID)
		if err != nil {
			return err
		}

		if entry.ExpiresAt == nil {
			return domain.ErrIndefiniteRetention
		}

		now := uc.now()
		newExpiresAt := entry.ExpiresAt.AddDate(0, 0, extendDays)
		if err := entry.Extend(actor, reason, newExpiresAt, now); err != nil {
			return err
		}
		return uc.entryRepo.Update(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	uc.emit(ctx, auditDomain.NewEvent(actor, entry.TenantID, "extend_retention", entry.ResourceType, entry.ResourceID, auditDomain.ResultSuccess).
		WithMetadata(map[string]any{
			"reason":      reason,
			"extend_days": extendDays,
			"expires_at":  entry.ExpiresAt.Format(time.RFC3339),
		}))

	return entry, nil
}

// Status reports per-category retention counts for a tenant.
func (uc *schedulerUseCase) Status(ctx context.Context, tenantID string) (*StatusReport, error) {
	if _, err := tenant.NewScope(tenantID); err != nil {
		return nil, err
	}

	entries, err := uc.entryRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		TenantID:   tenantID,
		Categories: make(map[domain.DataCategory]*CategoryCount),
	}
	for _, category := range domain.Categories() {
		report.Categories[category] = &CategoryCount{}
	}

	now := uc.now()
	for _, entry := range entries {
		count, ok := report.Categories[entry.Category]
		if !ok {
			count = &CategoryCount{}
			report.Categories[entry.Category] = count
		}

		switch entry.Status {
		case domain.EntryStatusQueued:
			count.Queued++
		case domain.EntryStatusDeleted:
			count.Deleted++
		default:
			count.Active++
			if entry.Expired(now) {
				count.Expired++
			} else if entry.ExpiringSoon(now, expiringSoonWindow) {
				count.ExpiringSoon++
			}
		}
	}
	return report, nil
}

// Sweep moves expired entries into the deletion queue. Each batch runs in its
// own transaction; the rate limiter spaces out entry processing, and context
// cancellation stops the sweep without losing completed batches.
func (uc *schedulerUseCase) Sweep(ctx context.Context) (*SweepResult, error) {
	result := &SweepResult{}
	limiter := rate.NewLimiter(rate.Limit(uc.config.SweepRatePerSec), 1)

	for {
		var batchSize int
		err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
			entries, err := uc.entryRepo.ListExpired(ctx, uc.now(), uc.config.SweepBatchSize)
			if err != nil {
				return err
			}
			batchSize = len(entries)

			for _, entry := range entries {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}

				if err := uc.queueExpiredEntry(ctx, entry); err != nil {
					return err
				}
				result.Queued++
			}
			result.Scanned += batchSize
			return nil
		})
		if err != nil {
			uc.emitSweepEvent(ctx, result, err)
			return result, err
		}

		if batchSize < uc.config.SweepBatchSize {
			break
		}
	}

	uc.emitSweepEvent(ctx, result, nil)
	return result, nil
}

func (uc *schedulerUseCase) queueExpiredEntry(ctx context.Context, entry *domain.Entry) error {
	policy, err := domain.PolicyFor(entry.Category)
	if err != nil {
		return err
	}

	item := domain.NewQueueItem(entry, policy, "system", "retention window expired")
	if err := uc.queueRepo.Create(ctx, item); err != nil {
		return err
	}

	entry.Status = domain.EntryStatusQueued
	if err := uc.entryRepo.Update(ctx, entry); err != nil {
		return err
	}

	uc.logger.Info("queued expired entry for deletion",
		slog.String("tenant_id", entry.TenantID),
		slog.String("resource_id", entry.ResourceID),
		slog.String("category", string(entry.Category)),
		slog.String("method", string(item.Method)),
		slog.String("status", string(item.Status)),
	)
	return nil
}

func (uc *schedulerUseCase) emitSweepEvent(ctx context.Context, result *SweepResult, sweepErr error) {
	event := auditDomain.NewEvent("system", "", "retention_sweep", "retention-ledger", "", auditDomain.ResultSuccess).
		WithMetadata(map[string]any{
			"scanned": result.Scanned,
			"queued":  result.Queued,
		}).
		WithError(sweepErr)
	uc.emit(ctx, event)
}

func (uc *schedulerUseCase) emit(ctx context.Context, event *auditDomain.Event) {
	if err := uc.auditSink.Emit(ctx, event); err != nil {
		uc.logger.Warn("failed to emit audit event",
			slog.String("action", event.Action),
			slog.Any("error", err),
		)
	}
}

// String renders the report for CLI output.
func (r *StatusReport) String() string {
	out := fmt.Sprintf("tenant %s:", r.TenantID)
	for _, category := range domain.Categories() {
		count, ok := r.Categories[category]
		if !ok {
			continue
		}
		out += fmt.Sprintf("\n  %-24s active=%d expiring_soon=%d expired=%d queued=%d deleted=%d",
			category, count.Active, count.ExpiringSoon, count.Expired, count.Queued, count.Deleted)
	}
	return out
}
