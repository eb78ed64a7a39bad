package service

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/themisguard/datashield/internal/errors"
	"github.com/themisguard/datashield/internal/keyring/domain"
)

// localKeyState mirrors the lifecycle states the real key service exposes.
type localKeyState int

const (
	localKeyEnabled localKeyState = iota
	localKeyPendingDeletion
	localKeyDestroyed
)

type localKey struct {
	material []byte
	state    localKeyState
}

// wrappedDataKey is the serialized form of a locally wrapped data key. The key
// id travels inside the blob, matching how the real service resolves the
// wrapping key from the ciphertext alone.
type wrappedDataKey struct {
	KeyID      string `json:"key_id"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// LocalKeyService is an in-memory KeyService used in tests and local
// development. Data keys are wrapped with AES-GCM under a per-key 256-bit
// root key, with the canonical encryption context as additional
// authenticated data, so context binding behaves like the real service.
type LocalKeyService struct {
	mu      sync.Mutex
	keys    map[string]*localKey
	aliases map[string]string
}

// NewLocalKeyService creates an empty LocalKeyService.
func NewLocalKeyService() *LocalKeyService {
	return &LocalKeyService{
		keys:    make(map[string]*localKey),
		aliases: make(map[string]string),
	}
}

// CreateKey provisions a new key with random 256-bit material. Description,
// policy, and tags are accepted for interface parity and discarded.
func (s *LocalKeyService) CreateKey(ctx context.Context, description string, policy string, tags map[string]string) (string, error) {
	material := make([]byte, 32)
	if _, err := rand.Read(material); err != nil {
		return "", apperrors.Wrap(err, "generate key material")
	}

	keyID := uuid.Must(uuid.NewV7()).String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[keyID] = &localKey{material: material, state: localKeyEnabled}
	return keyID, nil
}

// CreateAlias binds an alias to a key.
func (s *LocalKeyService) CreateAlias(ctx context.Context, alias, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.aliases[alias]; ok {
		return apperrors.Wrap(apperrors.ErrConflict, "alias already exists")
	}
	if _, ok := s.keys[keyID]; !ok {
		return domain.ErrKeyNotFound
	}
	s.aliases[alias] = keyID
	return nil
}

// UpdateAlias repoints an existing alias.
func (s *LocalKeyService) UpdateAlias(ctx context.Context, alias, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.aliases[alias]; !ok {
		return domain.ErrKeyNotFound
	}
	if _, ok := s.keys[keyID]; !ok {
		return domain.ErrKeyNotFound
	}
	s.aliases[alias] = keyID
	return nil
}

// DeleteAlias removes an alias.
func (s *LocalKeyService) DeleteAlias(ctx context.Context, alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.aliases[alias]; !ok {
		return domain.ErrKeyNotFound
	}
	delete(s.aliases, alias)
	return nil
}

// ResolveAlias returns the key id an alias points at.
func (s *LocalKeyService) ResolveAlias(ctx context.Context, alias string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keyID, ok := s.aliases[alias]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return keyID, nil
}

// GenerateDataKey returns a fresh 256-bit data key wrapped under the given
// key and bound to the encryption context.
func (s *LocalKeyService) GenerateDataKey(ctx context.Context, keyID string, encryptionContext map[string]string) (*DataKey, error) {
	aead, err := s.aeadFor(keyID)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, 32)
	if _, err := rand.Read(plaintext); err != nil {
		return nil, apperrors.Wrap(err, "generate data key")
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, apperrors.Wrap(err, "generate nonce")
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, contextAAD(encryptionContext))
	wrapped, err := json.Marshal(wrappedDataKey{
		KeyID:      keyID,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "serialize wrapped data key")
	}

	return &DataKey{Plaintext: plaintext, Wrapped: wrapped}, nil
}

// Decrypt unwraps a data key. A mismatched encryption context or corrupted
// blob fails authentication and is rejected.
func (s *LocalKeyService) Decrypt(ctx context.Context, wrapped []byte, encryptionContext map[string]string) ([]byte, error) {
	var blob wrappedDataKey
	if err := json.Unmarshal(wrapped, &blob); err != nil {
		return nil, apperrors.Wrap(domain.ErrUnwrapRejected, "malformed wrapped data key")
	}

	aead, err := s.aeadFor(blob.KeyID)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, blob.Nonce, blob.Ciphertext, contextAAD(encryptionContext))
	if err != nil {
		return nil, domain.ErrUnwrapRejected
	}
	return plaintext, nil
}

// ScheduleKeyDeletion marks the key pending deletion. The key stays usable
// until ForceDestroy completes the destruction.
func (s *LocalKeyService) ScheduleKeyDeletion(ctx context.Context, keyID string, pendingWindowDays int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[keyID]
	if !ok {
		return domain.ErrKeyNotFound
	}
	if key.state == localKeyDestroyed {
		return domain.ErrKeyDestroyed
	}
	key.state = localKeyPendingDeletion
	return nil
}

// ForceDestroy completes a scheduled destruction immediately, zeroing the key
// material. Intended for tests that exercise post-destruction behavior.
func (s *LocalKeyService) ForceDestroy(keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[keyID]
	if !ok {
		return domain.ErrKeyNotFound
	}
	for i := range key.material {
		key.material[i] = 0
	}
	key.material = nil
	key.state = localKeyDestroyed
	return nil
}

func (s *LocalKeyService) aeadFor(keyID string) (cipher.AEAD, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[keyID]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	if key.state == localKeyDestroyed {
		return nil, domain.ErrKeyDestroyed
	}

	block, err := aes.NewCipher(key.material)
	if err != nil {
		return nil, apperrors.Wrap(err, "create cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.Wrap(err, "create aead")
	}
	return aead, nil
}

// contextAAD serializes the encryption context deterministically so the same
// context always produces the same additional authenticated data.
func contextAAD(encryptionContext map[string]string) []byte {
	if len(encryptionContext) == 0 {
		return nil
	}
	keys := make([]string, 0, len(encryptionContext))
	for key := range encryptionContext {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, key := range keys {
		if i > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(encryptionContext[key])
	}
	return []byte(builder.String())
}
