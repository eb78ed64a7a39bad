package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	auditDomain "github.com/themisguard/datashield/internal/audit/domain"
	auditUseCase "github.com/themisguard/datashield/internal/audit/usecase"
	"github.com/themisguard/datashield/internal/database"
	apperrors "github.com/themisguard/datashield/internal/errors"
	"github.com/themisguard/datashield/internal/keyring/domain"
	"github.com/themisguard/datashield/internal/keyring/service"
	"github.com/themisguard/datashield/internal/tenant"
)

const (
	// minRotationGraceDays is the floor for the rotated-key safety window.
	minRotationGraceDays = 30

	// minDestructionGraceDays is the floor for the destruction grace window.
	minDestructionGraceDays = 7

	// actorSystem attributes automatic key provisioning in the audit trail.
	actorSystem = "system"
)

// RegistryConfig holds key registry configuration.
type RegistryConfig struct {
	RotationGraceDays    int
	DestructionGraceDays int
}

// registryUseCase implements KeyRegistry.
type registryUseCase struct {
	config     RegistryConfig
	txManager  database.TxManager
	keyRepo    CustomerKeyRepository
	keyService service.KeyService
	auditSink  auditUseCase.Sink
	logger     *slog.Logger
	group      singleflight.Group
}

// NewRegistryUseCase creates a new KeyRegistry.
func NewRegistryUseCase(
	config RegistryConfig,
	txManager database.TxManager,
	keyRepo CustomerKeyRepository,
	keyService service.KeyService,
	auditSink auditUseCase.Sink,
	logger *slog.Logger,
) KeyRegistry {
	if config.RotationGraceDays < minRotationGraceDays {
		config.RotationGraceDays = minRotationGraceDays
	}
	if config.DestructionGraceDays < minDestructionGraceDays {
		config.DestructionGraceDays = minDestructionGraceDays
	}
	return &registryUseCase{
		config:     config,
		txManager:  txManager,
		keyRepo:    keyRepo,
		keyService: keyService,
		auditSink:  auditSink,
		logger:     logger,
	}
}

// GetOrCreateKey returns the tenant's active key, provisioning one on first
// use. Concurrent callers for the same tenant are collapsed into a single
// provisioning flight; stragglers that lose the registry insert race converge
// on the surviving row.
func (uc *registryUseCase) GetOrCreateKey(ctx context.Context, tenantID string) (*domain.CustomerKey, error) {
	scope, err := tenant.NewScope(tenantID)
	if err != nil {
		return nil, err
	}

	value, err, _ := uc.group.Do(tenantID, func() (any, error) {
		return uc.getOrCreate(ctx, scope)
	})
	if err != nil {
		return nil, err
	}
	return value.(*domain.CustomerKey), nil
}

func (uc *registryUseCase) getOrCreate(ctx context.Context, scope tenant.Scope) (*domain.CustomerKey, error) {
	tenantID := scope.TenantID()

	key, err := uc.keyRepo.GetActive(ctx, tenantID)
	if err == nil {
		return key, nil
	}
	if !apperrors.Is(err, domain.ErrKeyNotFound) {
		return nil, err
	}

	alias := scope.KeyAlias()

	// The key may already exist in the key service when only the registry row
	// was lost, or when another instance provisioned it concurrently.
	keyID, err := uc.keyService.ResolveAlias(ctx, alias)
	if apperrors.Is(err, domain.ErrKeyNotFound) {
		keyID, err = uc.provisionKey(ctx, scope, alias)
	}
	if err != nil {
		return nil, err
	}

	key = &domain.CustomerKey{
		ID:        uuid.Must(uuid.NewV7()),
		TenantID:  tenantID,
		KeyID:     keyID,
		Alias:     alias,
		State:     domain.KeyStateActive,
		CreatedAt: time.Now().UTC(),
	}

	inserted, err := uc.keyRepo.Create(ctx, key)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return uc.keyRepo.GetActive(ctx, tenantID)
	}

	uc.emit(ctx, auditDomain.NewEvent(actorSystem, tenantID, "create_customer_key", "customer-key", key.KeyID, auditDomain.ResultSuccess).
		WithMetadata(map[string]any{"alias": alias}))

	return key, nil
}

// provisionKey creates the key in the key service and binds the tenant alias.
// An alias conflict means another instance won the race; its key is used.
func (uc *registryUseCase) provisionKey(ctx context.Context, scope tenant.Scope, alias string) (string, error) {
	tenantID := scope.TenantID()

	keyID, err := uc.keyService.CreateKey(ctx,
		fmt.Sprintf("Tenant encryption key for customer %s", tenantID),
		tenantKeyPolicy(tenantID),
		map[string]string{
			"customer_id": tenantID,
			"managed_by":  "datashield",
		})
	if err != nil {
		return "", err
	}

	err = uc.keyService.CreateAlias(ctx, alias, keyID)
	if apperrors.Is(err, apperrors.ErrConflict) {
		return uc.keyService.ResolveAlias(ctx, alias)
	}
	if err != nil {
		return "", err
	}
	return keyID, nil
}

// RotateKey provisions a replacement key, repoints the alias, and schedules
// the predecessor for destruction after the rotation grace window. The
// predecessor stays decryptable throughout; wrapped data keys reference it
// directly, not through the alias.
func (uc *registryUseCase) RotateKey(ctx context.Context, actor, tenantID string) (*domain.CustomerKey, error) {
	scope, err := tenant.NewScope(tenantID)
	if err != nil {
		return nil, err
	}

	var newKey *domain.CustomerKey
	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		active, err := uc.keyRepo.GetActive(ctx, tenantID)
		if err != nil {
			return err
		}

		rotating, err := uc.keyRepo.GetByState(ctx, tenantID, domain.KeyStateRotating)
		if err != nil {
			return err
		}
		if len(rotating) > 0 {
			return domain.ErrRotationInProgress
		}

		newKeyID, err := uc.keyService.CreateKey(ctx,
			fmt.Sprintf("Tenant encryption key for customer %s (rotation)", tenantID),
			tenantKeyPolicy(tenantID),
			map[string]string{
				"customer_id": tenantID,
				"managed_by":  "datashield",
			})
		if err != nil {
			return err
		}

		if err := uc.keyService.UpdateAlias(ctx, scope.KeyAlias(), newKeyID); err != nil {
			return err
		}

		now := time.Now().UTC()
		destroyAt := now.AddDate(0, 0, uc.config.RotationGraceDays)

		active.State = domain.KeyStateRotating
		active.RotatedAt = &now
		active.DestroyAt = &destroyAt
		if err := uc.keyRepo.Update(ctx, active); err != nil {
			return err
		}

		newKey = &domain.CustomerKey{
			ID:        uuid.Must(uuid.NewV7()),
			TenantID:  tenantID,
			KeyID:     newKeyID,
			Alias:     scope.KeyAlias(),
			State:     domain.KeyStateActive,
			CreatedAt: now,
		}
		inserted, err := uc.keyRepo.Create(ctx, newKey)
		if err != nil {
			return err
		}
		if !inserted {
			return domain.ErrRotationInProgress
		}

		return uc.keyService.ScheduleKeyDeletion(ctx, active.KeyID, uc.config.RotationGraceDays)
	})

	event := auditDomain.NewEvent(actor, tenantID, "rotate_customer_key", "customer-key", tenantID, auditDomain.ResultSuccess)
	if err != nil {
		uc.emit(ctx, event.WithError(err))
		return nil, err
	}
	uc.emit(ctx, event.WithMetadata(map[string]any{
		"new_key_id": newKey.KeyID,
		"grace_days": uc.config.RotationGraceDays,
	}))

	return newKey, nil
}

// DestroyKey schedules destruction of every usable tenant key and removes the
// tenant alias. Key service failures surface to the caller; destruction is
// never silently skipped.
func (uc *registryUseCase) DestroyKey(ctx context.Context, actor, tenantID string, graceDays int) error {
	scope, err := tenant.NewScope(tenantID)
	if err != nil {
		return err
	}
	if graceDays < uc.config.DestructionGraceDays {
		graceDays = uc.config.DestructionGraceDays
	}

	var scheduled []string
	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		var keys []*domain.CustomerKey
		for _, state := range []domain.KeyState{domain.KeyStateActive, domain.KeyStateRotating} {
			found, err := uc.keyRepo.GetByState(ctx, tenantID, state)
			if err != nil {
				return err
			}
			keys = append(keys, found...)
		}
		if len(keys) == 0 {
			return domain.ErrKeyNotFound
		}

		err := uc.keyService.DeleteAlias(ctx, scope.KeyAlias())
		if err != nil && !apperrors.Is(err, domain.ErrKeyNotFound) {
			return err
		}

		now := time.Now().UTC()
		destroyAt := now.AddDate(0, 0, graceDays)

		for _, key := range keys {
			if err := uc.keyService.ScheduleKeyDeletion(ctx, key.KeyID, graceDays); err != nil {
				return err
			}

			key.State = domain.KeyStatePendingDeletion
			key.DestroyAt = &destroyAt
			if err := uc.keyRepo.Update(ctx, key); err != nil {
				return err
			}
			scheduled = append(scheduled, key.KeyID)
		}

		return nil
	})

	event := auditDomain.NewEvent(actor, tenantID, "destroy_customer_key", "customer-key", tenantID, auditDomain.ResultSuccess)
	if err != nil {
		uc.emit(ctx, event.WithError(err))
		return err
	}
	uc.emit(ctx, event.WithMetadata(map[string]any{
		"key_ids":    scheduled,
		"grace_days": graceDays,
	}))

	return nil
}

// MarkDestroyed flips pending-deletion keys whose grace window has elapsed to
// the destroyed state.
func (uc *registryUseCase) MarkDestroyed(ctx context.Context, tenantID string, now time.Time) (int, error) {
	var marked int
	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		keys, err := uc.keyRepo.GetByState(ctx, tenantID, domain.KeyStatePendingDeletion)
		if err != nil {
			return err
		}

		for _, key := range keys {
			if key.DestroyAt == nil || key.DestroyAt.After(now) {
				continue
			}
			key.State = domain.KeyStateDestroyed
			if err := uc.keyRepo.Update(ctx, key); err != nil {
				return err
			}
			marked++
		}
		return nil
	})
	return marked, err
}

func (uc *registryUseCase) emit(ctx context.Context, event *auditDomain.Event) {
	if err := uc.auditSink.Emit(ctx, event); err != nil {
		uc.logger.Warn("failed to emit audit event",
			slog.String("action", event.Action),
			slog.String("tenant_id", event.TenantID),
			slog.Any("error", err),
		)
	}
}

// tenantKeyPolicy renders a key policy that restricts data key operations to
// encryption contexts carrying the owning tenant's customer_id.
func tenantKeyPolicy(tenantID string) string {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Sid":       "AllowTenantScopedUse",
				"Effect":    "Allow",
				"Principal": map[string]any{"AWS": "*"},
				"Action": []string{
					"kms:GenerateDataKey",
					"kms:Decrypt",
				},
				"Resource": "*",
				"Condition": map[string]any{
					"StringEquals": map[string]any{
						"kms:EncryptionContext:customer_id": tenantID,
					},
				},
			},
			{
				"Sid":       "AllowKeyAdministration",
				"Effect":    "Allow",
				"Principal": map[string]any{"AWS": "*"},
				"Action": []string{
					"kms:Create*",
					"kms:Describe*",
					"kms:Update*",
					"kms:Delete*",
					"kms:ScheduleKeyDeletion",
					"kms:CancelKeyDeletion",
					"kms:TagResource",
				},
				"Resource": "*",
			},
		},
	}

	rendered, err := json.Marshal(policy)
	if err != nil {
		// The policy document is static except for the tenant id; marshaling
		// cannot fail for valid input.
		panic(err)
	}
	return string(rendered)
}
