package usecase

import (
	"context"
	"log/slog"
	"time"

	auditDomain "github.com/themisguard/datashield/internal/audit/domain"
	"github.com/themisguard/datashield/internal/database"
)

// RelayConfig holds audit relay configuration.
type RelayConfig struct {
	BatchSize  int
	MaxRetries int
}

// relayUseCase drains pending outbox events to the external audit backend.
type relayUseCase struct {
	config     RelayConfig
	txManager  database.TxManager
	outboxRepo OutboxEventRepository
	publisher  EventPublisher
	logger     *slog.Logger
}

// NewRelayUseCase creates a new RelayUseCase.
func NewRelayUseCase(
	config RelayConfig,
	txManager database.TxManager,
	outboxRepo OutboxEventRepository,
	publisher EventPublisher,
	logger *slog.Logger,
) RelayUseCase {
	return &relayUseCase{
		config:     config,
		txManager:  txManager,
		outboxRepo: outboxRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// ProcessEvents relays one batch of pending events inside a transaction and
// returns the number of events handled. Failed deliveries are retried on later
// batches until MaxRetries, then marked failed for operator attention.
func (uc *relayUseCase) ProcessEvents(ctx context.Context) (int, error) {
	var handled int

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		events, err := uc.outboxRepo.GetPendingEvents(ctx, uc.config.BatchSize)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			return nil
		}

		for _, event := range events {
			if err := uc.publisher.Publish(ctx, event); err != nil {
				uc.logger.Error("failed to relay audit event",
					slog.String("event_id", event.ID.String()),
					slog.Any("error", err),
				)

				event.Retries++
				errorMsg := err.Error()
				event.LastError = &errorMsg

				if event.Retries >= uc.config.MaxRetries {
					event.Status = auditDomain.OutboxEventStatusFailed
				}

				if err := uc.outboxRepo.Update(ctx, event); err != nil {
					return err
				}
				continue
			}

			now := time.Now().UTC()
			event.Status = auditDomain.OutboxEventStatusProcessed
			event.ProcessedAt = &now

			if err := uc.outboxRepo.Update(ctx, event); err != nil {
				return err
			}
			handled++
		}

		return nil
	})

	return handled, err
}
