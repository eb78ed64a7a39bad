package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/themisguard/datashield/internal/audit/domain"
)

// outboxEventType is the single event type used for relayed audit records.
const outboxEventType = "audit.event"

// OutboxSink persists audit events to the outbox table. When called inside a
// transaction context the write joins that transaction, so an action and its
// audit record commit or roll back together.
type OutboxSink struct {
	outboxRepo OutboxEventRepository
}

// NewOutboxSink creates a Sink backed by the audit outbox table.
func NewOutboxSink(outboxRepo OutboxEventRepository) *OutboxSink {
	return &OutboxSink{outboxRepo: outboxRepo}
}

// Emit serializes the event and buffers it for relay.
func (s *OutboxSink) Emit(ctx context.Context, event *auditDomain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize audit event: %w", err)
	}

	outboxEvent := &auditDomain.OutboxEvent{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: outboxEventType,
		Payload:   string(payload),
		Status:    auditDomain.OutboxEventStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	return s.outboxRepo.Create(ctx, outboxEvent)
}
