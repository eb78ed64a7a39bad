package usecase

import (
	"context"
	"log/slog"

	"github.com/themisguard/datashield/internal/access/domain"
	auditDomain "github.com/themisguard/datashield/internal/audit/domain"
	auditUseCase "github.com/themisguard/datashield/internal/audit/usecase"
)

// gateUseCase implements Gate.
type gateUseCase struct {
	checker   PermissionChecker
	auditSink auditUseCase.Sink
	logger    *slog.Logger
}

// NewGateUseCase creates a new Gate.
func NewGateUseCase(checker PermissionChecker, auditSink auditUseCase.Sink, logger *slog.Logger) Gate {
	return &gateUseCase{
		checker:   checker,
		auditSink: auditSink,
		logger:    logger,
	}
}

// Authorize checks tenant ownership first, then the role's permissions.
// Exactly one audit event is emitted per attempt.
func (uc *gateUseCase) Authorize(ctx context.Context, principal domain.Principal, tenantID string, permission domain.Permission, action string) error {
	event := auditDomain.NewEvent(principal.Actor, tenantID, action, "customer-data", "", auditDomain.ResultSuccess).
		WithMetadata(map[string]any{
			"role":       string(principal.Role),
			"permission": string(permission),
		})

	if principal.TenantID != tenantID {
		event.Result = auditDomain.ResultDenied
		event.Error = domain.ErrTenantMismatch.Error()
		uc.emit(ctx, event)
		return domain.ErrTenantMismatch
	}

	allowed, err := uc.checker.HasPermission(principal.Role, permission)
	if err != nil {
		uc.emit(ctx, event.WithError(err))
		return err
	}
	if !allowed {
		event.Result = auditDomain.ResultDenied
		event.Error = domain.ErrPermissionDenied.Error()
		uc.emit(ctx, event)
		return domain.ErrPermissionDenied
	}

	uc.emit(ctx, event)
	return nil
}

func (uc *gateUseCase) emit(ctx context.Context, event *auditDomain.Event) {
	if err := uc.auditSink.Emit(ctx, event); err != nil {
		uc.logger.Warn("failed to emit audit event",
			slog.String("action", event.Action),
			slog.String("tenant_id", event.TenantID),
			slog.Any("error", err),
		)
	}
}
