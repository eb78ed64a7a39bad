// Package usecase implements audit event emission and asynchronous relay to the
// external audit backend.
//
// The core never talks to the audit backend directly. Components emit events
// through a Sink; the outbox-backed sink persists them in the same transaction
// as the action they describe, and the relay drains pending events to the
// backend with bounded retries.
package usecase

import (
	"context"

	auditDomain "github.com/themisguard/datashield/internal/audit/domain"
)

// Sink receives one audit event per authorization decision and per
// deletion/rotation/creation action. Implementations must not block the
// caller on the external audit backend.
type Sink interface {
	Emit(ctx context.Context, event *auditDomain.Event) error
}

// OutboxEventRepository defines audit outbox persistence operations.
type OutboxEventRepository interface {
	Create(ctx context.Context, event *auditDomain.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*auditDomain.OutboxEvent, error)
	Update(ctx context.Context, event *auditDomain.OutboxEvent) error
}

// EventPublisher delivers a relayed audit event to the external audit backend.
type EventPublisher interface {
	Publish(ctx context.Context, event *auditDomain.OutboxEvent) error
}

// RelayUseCase drains buffered audit events to the external backend.
type RelayUseCase interface {
	ProcessEvents(ctx context.Context) (int, error)
}
