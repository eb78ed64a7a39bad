package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themisguard/datashield/internal/envelope/domain"
	"github.com/themisguard/datashield/internal/envelope/service"
	apperrors "github.com/themisguard/datashield/internal/errors"
	keyringDomain "github.com/themisguard/datashield/internal/keyring/domain"
	keyringService "github.com/themisguard/datashield/internal/keyring/service"
	"github.com/themisguard/datashield/internal/tenant"
)

// stubRegistry provisions one key per tenant directly in the local key
// service, standing in for the full registry.
type stubRegistry struct {
	mu         sync.Mutex
	keyService *keyringService.LocalKeyService
	keys       map[string]*keyringDomain.CustomerKey
}

func newStubRegistry(keyService *keyringService.LocalKeyService) *stubRegistry {
	return &stubRegistry{
		keyService: keyService,
		keys:       make(map[string]*keyringDomain.CustomerKey),
	}
}

func (r *stubRegistry) GetOrCreateKey(ctx context.Context, tenantID string) (*keyringDomain.CustomerKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key, ok := r.keys[tenantID]; ok {
		return key, nil
	}

	scope, err := tenant.NewScope(tenantID)
	if err != nil {
		return nil, err
	}
	keyID, err := r.keyService.CreateKey(ctx, "tenant key", "", nil)
	if err != nil {
		return nil, err
	}

	key := &keyringDomain.CustomerKey{
		ID:       uuid.Must(uuid.NewV7()),
		TenantID: tenantID,
		KeyID:    keyID,
		Alias:    scope.KeyAlias(),
		State:    keyringDomain.KeyStateActive,
	}
	r.keys[tenantID] = key
	return key, nil
}

// replaceKey simulates a rotation by provisioning a fresh key for the tenant.
func (r *stubRegistry) replaceKey(ctx context.Context, tenantID string) error {
	r.mu.Lock()
	delete(r.keys, tenantID)
	r.mu.Unlock()
	_, err := r.GetOrCreateKey(ctx, tenantID)
	return err
}

// countingKeyService wraps a DataKeyService and counts calls, so tests can
// assert that rejected operations never reach the key service.
type countingKeyService struct {
	inner        DataKeyService
	generateKeys atomic.Int64
	decrypts     atomic.Int64
}

func (c *countingKeyService) GenerateDataKey(ctx context.Context, keyID string, encryptionContext map[string]string) (*keyringService.DataKey, error) {
	c.generateKeys.Add(1)
	return c.inner.GenerateDataKey(ctx, keyID, encryptionContext)
}

func (c *countingKeyService) Decrypt(ctx context.Context, wrapped []byte, encryptionContext map[string]string) ([]byte, error) {
	c.decrypts.Add(1)
	return c.inner.Decrypt(ctx, wrapped, encryptionContext)
}

func newEngine(t *testing.T) (Engine, *stubRegistry, *keyringService.LocalKeyService, *countingKeyService) {
	t.Helper()

	keyService := keyringService.NewLocalKeyService()
	registry := newStubRegistry(keyService)
	counting := &countingKeyService{inner: keyService}

	manager, err := service.NewAEADManager(domain.AlgorithmAESGCM)
	require.NoError(t, err)

	engine := NewEngineUseCase(registry, counting, manager, slog.New(slog.DiscardHandler))
	return engine, registry, keyService, counting
}

func TestEngineUseCase_RoundTrip(t *testing.T) {
	ctx := context.Background()
	engine, _, _, _ := newEngine(t)

	plaintext := []byte(`{"scan_id":"scan-1","findings":[{"severity":"high"}]}`)
	encCtx := domain.NewEncryptionContext("acme", "scan-results", "svc-scanner")

	record, err := engine.Encrypt(ctx, encCtx, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, record.Ciphertext)
	assert.NotEmpty(t, record.WrappedKey)
	assert.Equal(t, domain.AlgorithmAESGCM, record.Algorithm)
	assert.Equal(t, "acme", record.Context.CustomerID)
	assert.Len(t, record.ContentHash, 32)

	decrypted, err := engine.Decrypt(ctx, "acme", record)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEngineUseCase_FreshDataKeyPerOperation(t *testing.T) {
	ctx := context.Background()
	engine, _, _, _ := newEngine(t)

	encCtx := domain.NewEncryptionContext("acme", "scan-results", "svc-scanner")

	first, err := engine.Encrypt(ctx, encCtx, []byte("payload"))
	require.NoError(t, err)
	second, err := engine.Encrypt(ctx, encCtx, []byte("payload"))
	require.NoError(t, err)

	assert.NotEqual(t, first.WrappedKey, second.WrappedKey)
	assert.NotEqual(t, first.Ciphertext, second.Ciphertext)
}

func TestEngineUseCase_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	engine, _, _, counting := newEngine(t)

	record, err := engine.Encrypt(ctx, domain.NewEncryptionContext("acme", "scan-results", "svc-scanner"), []byte("secret"))
	require.NoError(t, err)

	decryptsBefore := counting.decrypts.Load()

	_, err = engine.Decrypt(ctx, "globex", record)
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = engine.Decrypt(ctx, "", record)
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)

	// The ownership check rejected both attempts before any key service call.
	assert.Equal(t, decryptsBefore, counting.decrypts.Load())
}

func TestEngineUseCase_TamperDetection(t *testing.T) {
	ctx := context.Background()
	engine, _, _, _ := newEngine(t)

	record, err := engine.Encrypt(ctx, domain.NewEncryptionContext("acme", "scan-results", "svc-scanner"), []byte("secret"))
	require.NoError(t, err)

	t.Run("TamperedCiphertext", func(t *testing.T) {
		tampered := *record
		tampered.Ciphertext = append([]byte(nil), record.Ciphertext...)
		tampered.Ciphertext[len(tampered.Ciphertext)-1] ^= 0x01

		// A ciphertext altered after sealing is an integrity violation, not
		// a plain decryption failure.
		_, err := engine.Decrypt(ctx, "acme", &tampered)
		assert.ErrorIs(t, err, domain.ErrIntegrityViolation)
	})

	t.Run("TamperedWrappedKey", func(t *testing.T) {
		tampered := *record
		tampered.WrappedKey = append([]byte(nil), record.WrappedKey...)
		tampered.WrappedKey[len(tampered.WrappedKey)-5] ^= 0x01

		_, err := engine.Decrypt(ctx, "acme", &tampered)
		assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
	})

	t.Run("MutatedContext", func(t *testing.T) {
		// Rewriting the stored context breaks the binding to the wrapped key.
		tampered := *record
		tampered.Context.Purpose = "exfiltration"

		_, err := engine.Decrypt(ctx, "acme", &tampered)
		assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
	})

	t.Run("TamperedContentHash", func(t *testing.T) {
		tampered := *record
		tampered.ContentHash = append([]byte(nil), record.ContentHash...)
		tampered.ContentHash[0] ^= 0x01

		_, err := engine.Decrypt(ctx, "acme", &tampered)
		assert.ErrorIs(t, err, domain.ErrIntegrityViolation)
	})
}

func TestEngineUseCase_DecryptAfterKeyDestruction(t *testing.T) {
	ctx := context.Background()
	engine, registry, keyService, _ := newEngine(t)

	record, err := engine.Encrypt(ctx, domain.NewEncryptionContext("acme", "scan-results", "svc-scanner"), []byte("secret"))
	require.NoError(t, err)

	key, err := registry.GetOrCreateKey(ctx, "acme")
	require.NoError(t, err)
	require.NoError(t, keyService.ForceDestroy(key.KeyID))

	_, err = engine.Decrypt(ctx, "acme", record)
	assert.ErrorIs(t, err, keyringDomain.ErrKeyDestroyed)
}

func TestEngineUseCase_Reencrypt(t *testing.T) {
	ctx := context.Background()
	engine, registry, _, _ := newEngine(t)

	plaintext := []byte("long-lived record")
	record, err := engine.Encrypt(ctx, domain.NewEncryptionContext("acme", "scan-results", "svc-scanner"), plaintext)
	require.NoError(t, err)

	// Rotation: new active key, old key still usable.
	require.NoError(t, registry.replaceKey(ctx, "acme"))

	reencrypted, err := engine.Reencrypt(ctx, "acme", record)
	require.NoError(t, err)
	assert.NotEqual(t, record.WrappedKey, reencrypted.WrappedKey)
	assert.Equal(t, record.Context.Purpose, reencrypted.Context.Purpose)
	assert.Equal(t, record.Context.CallerID, reencrypted.Context.CallerID)

	decrypted, err := engine.Decrypt(ctx, "acme", reencrypted)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)

	t.Run("CrossTenantRejected", func(t *testing.T) {
		_, err := engine.Reencrypt(ctx, "globex", record)
		assert.ErrorIs(t, err, domain.ErrTenantMismatch)
	})
}

func newFieldCodec(t *testing.T) (FieldCodec, Engine) {
	t.Helper()
	engine, _, _, _ := newEngine(t)
	hasher := service.NewFieldHasher([]byte("field-hash-key"), 8)
	return NewFieldUseCase(engine, hasher, slog.New(slog.DiscardHandler)), engine
}

func TestFieldUseCase_EncryptDecryptFields(t *testing.T) {
	ctx := context.Background()
	codec, _ := newFieldCodec(t)

	doc := map[string]any{
		"patient_name": "Jane Roe",
		"ssn":          "078-05-1120",
		"scan_type":    "hipaa-audit",
	}

	encrypted, err := codec.EncryptFields(ctx, "acme", "svc-ingest", doc, []string{"patient_name", "ssn"})
	require.NoError(t, err)

	assert.NotContains(t, encrypted, "patient_name")
	assert.NotContains(t, encrypted, "ssn")
	assert.Contains(t, encrypted, "patient_name_encrypted")
	assert.Contains(t, encrypted, "patient_name_hash")
	assert.Contains(t, encrypted, "ssn_encrypted")
	assert.Contains(t, encrypted, "ssn_hash")
	assert.Equal(t, "hipaa-audit", encrypted["scan_type"])

	decrypted, err := codec.DecryptFields(ctx, "acme", encrypted)
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", decrypted["patient_name"])
	assert.Equal(t, "078-05-1120", decrypted["ssn"])
	assert.Equal(t, "hipaa-audit", decrypted["scan_type"])
	assert.NotContains(t, decrypted, "patient_name_encrypted")
	assert.NotContains(t, decrypted, "patient_name_hash")
}

func TestFieldUseCase_HashSupportsEqualityLookup(t *testing.T) {
	ctx := context.Background()
	codec, _ := newFieldCodec(t)

	first, err := codec.EncryptFields(ctx, "acme", "svc-ingest",
		map[string]any{"ssn": "078-05-1120"}, []string{"ssn"})
	require.NoError(t, err)

	second, err := codec.EncryptFields(ctx, "acme", "svc-ingest",
		map[string]any{"ssn": "078-05-1120"}, []string{"ssn"})
	require.NoError(t, err)

	other, err := codec.EncryptFields(ctx, "acme", "svc-ingest",
		map[string]any{"ssn": "111-22-3333"}, []string{"ssn"})
	require.NoError(t, err)

	// Same value, same hash; ciphertexts still differ per operation.
	assert.Equal(t, first["ssn_hash"], second["ssn_hash"])
	assert.NotEqual(t, first["ssn_hash"], other["ssn_hash"])
	assert.NotEqual(t, first["ssn_encrypted"], second["ssn_encrypted"])
}

func TestFieldUseCase_SelectiveFailureTolerance(t *testing.T) {
	ctx := context.Background()
	codec, _ := newFieldCodec(t)

	encrypted, err := codec.EncryptFields(ctx, "acme", "svc-ingest",
		map[string]any{"patient_name": "Jane Roe", "ssn": "078-05-1120"},
		[]string{"patient_name", "ssn"})
	require.NoError(t, err)

	// Corrupt one field's ciphertext; the other must still decrypt.
	record := encrypted["ssn_encrypted"].(*domain.EncryptedRecord)
	corrupted := *record
	corrupted.Ciphertext = append([]byte(nil), record.Ciphertext...)
	corrupted.Ciphertext[len(corrupted.Ciphertext)-1] ^= 0x01
	encrypted["ssn_encrypted"] = &corrupted

	decrypted, err := codec.DecryptFields(ctx, "acme", encrypted)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIntegrityViolation)

	assert.Equal(t, "Jane Roe", decrypted["patient_name"])
	assert.NotContains(t, decrypted, "ssn")
	assert.Contains(t, decrypted, "ssn_encrypted")
	assert.Contains(t, decrypted, "ssn_hash")
}

func TestFieldUseCase_DecryptsAfterJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	codec, _ := newFieldCodec(t)

	encrypted, err := codec.EncryptFields(ctx, "acme", "svc-ingest",
		map[string]any{"ssn": "078-05-1120", "scan_type": "hipaa-audit"}, []string{"ssn"})
	require.NoError(t, err)

	// Documents come back from the store as generic JSON maps.
	serialized, err := json.Marshal(encrypted)
	require.NoError(t, err)
	var stored map[string]any
	require.NoError(t, json.Unmarshal(serialized, &stored))

	decrypted, err := codec.DecryptFields(ctx, "acme", stored)
	require.NoError(t, err)
	assert.Equal(t, "078-05-1120", decrypted["ssn"])
}

func TestFieldUseCase_MissingSensitiveFieldSkipped(t *testing.T) {
	ctx := context.Background()
	codec, _ := newFieldCodec(t)

	encrypted, err := codec.EncryptFields(ctx, "acme", "svc-ingest",
		map[string]any{"scan_type": "hipaa-audit"}, []string{"ssn"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"scan_type": "hipaa-audit"}, encrypted)
}
