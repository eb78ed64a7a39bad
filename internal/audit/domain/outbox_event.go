package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEventStatus represents the delivery status of a buffered audit event.
type OutboxEventStatus string

const (
	OutboxEventStatusPending   OutboxEventStatus = "pending"
	OutboxEventStatusProcessed OutboxEventStatus = "processed"
	OutboxEventStatusFailed    OutboxEventStatus = "failed"
)

// OutboxEvent buffers an audit event for delivery to the external audit sink.
// Events are persisted transactionally with the action they describe and
// relayed asynchronously, so audit emission never blocks the hot path on the
// external backend.
type OutboxEvent struct {
	ID          uuid.UUID
	EventType   string
	Payload     string
	Status      OutboxEventStatus
	Retries     int
	LastError   *string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
