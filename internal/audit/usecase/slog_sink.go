package usecase

import (
	"context"
	"log/slog"

	auditDomain "github.com/themisguard/datashield/internal/audit/domain"
)

// SlogSink writes audit events to the structured logger. Intended for local
// development and as a last-resort sink when no database is configured.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a Sink that logs events via slog.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

// Emit logs the audit event.
func (s *SlogSink) Emit(ctx context.Context, event *auditDomain.Event) error {
	s.logger.InfoContext(ctx, "audit event",
		slog.String("actor", event.Actor),
		slog.String("tenant_id", event.TenantID),
		slog.String("action", event.Action),
		slog.String("resource_type", event.ResourceType),
		slog.String("resource_id", event.ResourceID),
		slog.String("result", string(event.Result)),
		slog.String("error", event.Error),
	)
	return nil
}
