package usecase

import (
	"context"
	"log/slog"

	auditDomain "github.com/themisguard/datashield/internal/audit/domain"
)

// LogPublisher delivers relayed audit events to the structured logger. It is
// the default backend until an external audit system is wired in.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the serialized audit event.
func (p *LogPublisher) Publish(ctx context.Context, event *auditDomain.OutboxEvent) error {
	p.logger.InfoContext(ctx, "relayed audit event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
		slog.String("payload", event.Payload),
	)
	return nil
}
