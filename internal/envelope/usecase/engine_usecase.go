package usecase

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/themisguard/datashield/internal/envelope/domain"
	"github.com/themisguard/datashield/internal/envelope/service"
	apperrors "github.com/themisguard/datashield/internal/errors"
	keyringDomain "github.com/themisguard/datashield/internal/keyring/domain"
)

// engineUseCase implements Engine.
type engineUseCase struct {
	registry    KeyRegistry
	keyService  DataKeyService
	aeadManager *service.AEADManager
	logger      *slog.Logger
}

// NewEngineUseCase creates a new envelope encryption Engine.
func NewEngineUseCase(
	registry KeyRegistry,
	keyService DataKeyService,
	aeadManager *service.AEADManager,
	logger *slog.Logger,
) Engine {
	return &engineUseCase{
		registry:    registry,
		keyService:  keyService,
		aeadManager: aeadManager,
		logger:      logger,
	}
}

// Encrypt seals plaintext under a fresh data key wrapped by the tenant's
// active key. The plaintext data key is zeroed before returning.
func (uc *engineUseCase) Encrypt(ctx context.Context, encCtx domain.EncryptionContext, plaintext []byte) (*domain.EncryptedRecord, error) {
	if err := encCtx.Validate(); err != nil {
		return nil, err
	}

	key, err := uc.registry.GetOrCreateKey(ctx, encCtx.CustomerID)
	if err != nil {
		return nil, err
	}

	dataKey, err := uc.keyService.GenerateDataKey(ctx, key.KeyID, encCtx.ToMap())
	if err != nil {
		return nil, err
	}
	defer domain.Zero(dataKey.Plaintext)

	aead := uc.aeadManager.Default()
	ciphertext, err := aead.Seal(dataKey.Plaintext, plaintext, encCtx.CanonicalBytes())
	if err != nil {
		return nil, err
	}

	contentHash := sha256.Sum256(plaintext)

	return &domain.EncryptedRecord{
		Ciphertext:  ciphertext,
		WrappedKey:  dataKey.Wrapped,
		Algorithm:   aead.Algorithm(),
		Context:     encCtx,
		ContentHash: contentHash[:],
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Decrypt opens a record for callerTenantID. The tenant ownership check runs
// first; a mismatch never reaches the key service.
func (uc *engineUseCase) Decrypt(ctx context.Context, callerTenantID string, record *domain.EncryptedRecord) ([]byte, error) {
	if callerTenantID == "" || callerTenantID != record.Context.CustomerID {
		return nil, domain.ErrTenantMismatch
	}

	dataKey, err := uc.keyService.Decrypt(ctx, record.WrappedKey, record.Context.ToMap())
	if err != nil {
		if apperrors.Is(err, keyringDomain.ErrUnwrapRejected) {
			return nil, domain.ErrDecryptionFailed
		}
		return nil, err
	}
	defer domain.Zero(dataKey)

	aead, err := uc.aeadManager.ForAlgorithm(record.Algorithm)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(dataKey, record.Ciphertext, record.Context.CanonicalBytes())
	if err != nil {
		if apperrors.Is(err, domain.ErrDecryptionFailed) {
			// An authenticated open failing on a stored record means the
			// ciphertext or its context was altered after sealing.
			return nil, domain.ErrIntegrityViolation
		}
		return nil, err
	}

	contentHash := sha256.Sum256(plaintext)
	if subtle.ConstantTimeCompare(contentHash[:], record.ContentHash) != 1 {
		return nil, domain.ErrIntegrityViolation
	}

	return plaintext, nil
}

// Reencrypt re-seals a record under the tenant's current active key.
func (uc *engineUseCase) Reencrypt(ctx context.Context, callerTenantID string, record *domain.EncryptedRecord) (*domain.EncryptedRecord, error) {
	plaintext, err := uc.Decrypt(ctx, callerTenantID, record)
	if err != nil {
		return nil, err
	}
	defer domain.Zero(plaintext)

	encCtx := domain.NewEncryptionContext(
		record.Context.CustomerID,
		record.Context.Purpose,
		record.Context.CallerID,
	)
	return uc.Encrypt(ctx, encCtx, plaintext)
}
