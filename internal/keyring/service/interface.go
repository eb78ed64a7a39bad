// Package service provides key service clients used by the key registry and
// the envelope encryption engine.
package service

import (
	"context"
)

// DataKey holds one freshly generated data encryption key in both forms.
// Plaintext must be zeroed by the caller as soon as the bulk operation
// completes; only the wrapped form may be persisted.
type DataKey struct {
	Plaintext []byte
	Wrapped   []byte
}

// KeyService abstracts the external key management service. Implementations
// enforce the binding between wrapped data keys and their encryption context:
// Decrypt with a context that differs from the one used at GenerateDataKey
// time must fail.
type KeyService interface {
	// CreateKey provisions a new symmetric key and returns its opaque key id.
	CreateKey(ctx context.Context, description string, policy string, tags map[string]string) (string, error)

	// CreateAlias binds an alias to a key. Fails if the alias already exists.
	CreateAlias(ctx context.Context, alias, keyID string) error

	// UpdateAlias repoints an existing alias at a different key.
	UpdateAlias(ctx context.Context, alias, keyID string) error

	// DeleteAlias removes an alias. The underlying key is not affected.
	DeleteAlias(ctx context.Context, alias string) error

	// ResolveAlias returns the key id an alias points at, or ErrKeyNotFound.
	ResolveAlias(ctx context.Context, alias string) (string, error)

	// GenerateDataKey returns a fresh 256-bit data key wrapped under the given
	// key, cryptographically bound to the encryption context.
	GenerateDataKey(ctx context.Context, keyID string, encryptionContext map[string]string) (*DataKey, error)

	// Decrypt unwraps a data key. The encryption context must match the one
	// supplied at GenerateDataKey time byte for byte.
	Decrypt(ctx context.Context, wrapped []byte, encryptionContext map[string]string) ([]byte, error)

	// ScheduleKeyDeletion schedules irreversible key destruction after the
	// pending window elapses. The key stays usable for decryption until then.
	ScheduleKeyDeletion(ctx context.Context, keyID string, pendingWindowDays int) error
}
