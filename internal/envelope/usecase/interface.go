// Package usecase implements envelope encryption and the field-level
// encryption layer on top of it.
package usecase

import (
	"context"

	"github.com/themisguard/datashield/internal/envelope/domain"
	keyringDomain "github.com/themisguard/datashield/internal/keyring/domain"
	keyringService "github.com/themisguard/datashield/internal/keyring/service"
)

// KeyRegistry resolves the tenant's active key, provisioning one on first use.
type KeyRegistry interface {
	GetOrCreateKey(ctx context.Context, tenantID string) (*keyringDomain.CustomerKey, error)
}

// DataKeyService generates and unwraps data keys in the external key service.
type DataKeyService interface {
	GenerateDataKey(ctx context.Context, keyID string, encryptionContext map[string]string) (*keyringService.DataKey, error)
	Decrypt(ctx context.Context, wrapped []byte, encryptionContext map[string]string) ([]byte, error)
}

// Engine performs envelope encryption: every payload is sealed under a fresh
// data key wrapped by the owning tenant's key.
type Engine interface {
	// Encrypt seals plaintext for the tenant named in the encryption context.
	Encrypt(ctx context.Context, encCtx domain.EncryptionContext, plaintext []byte) (*domain.EncryptedRecord, error)

	// Decrypt opens a record on behalf of callerTenantID. The tenant check
	// runs before any key service call.
	Decrypt(ctx context.Context, callerTenantID string, record *domain.EncryptedRecord) ([]byte, error)

	// Reencrypt re-seals a record under the tenant's current active key,
	// typically after a rotation. The context identity fields carry over;
	// the timestamp is refreshed.
	Reencrypt(ctx context.Context, callerTenantID string, record *domain.EncryptedRecord) (*domain.EncryptedRecord, error)
}

// FieldCodec encrypts selected fields of a document in place of their
// plaintext, leaving the rest of the document untouched.
type FieldCodec interface {
	// EncryptFields replaces each sensitive field with <name>_encrypted and
	// <name>_hash entries. Fields that fail to encrypt are dropped from the
	// result and reported; the remaining fields still go through.
	EncryptFields(ctx context.Context, tenantID, callerID string, doc map[string]any, sensitive []string) (map[string]any, error)

	// DecryptFields restores encrypted fields to plaintext. Fields that fail
	// to decrypt keep their encrypted form and are reported; the remaining
	// fields still decrypt.
	DecryptFields(ctx context.Context, tenantID string, doc map[string]any) (map[string]any, error)
}
