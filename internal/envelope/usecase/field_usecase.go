package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/themisguard/datashield/internal/envelope/domain"
	"github.com/themisguard/datashield/internal/envelope/service"
	apperrors "github.com/themisguard/datashield/internal/errors"
)

const (
	encryptedFieldSuffix = "_encrypted"
	hashFieldSuffix      = "_hash"
	fieldPurposePrefix   = "field:"
)

// fieldUseCase implements FieldCodec on top of the envelope engine. Each
// sensitive field is encrypted independently, so one unreadable field never
// takes down the rest of the document.
type fieldUseCase struct {
	engine Engine
	hasher *service.FieldHasher
	logger *slog.Logger
}

// NewFieldUseCase creates a new FieldCodec.
func NewFieldUseCase(engine Engine, hasher *service.FieldHasher, logger *slog.Logger) FieldCodec {
	return &fieldUseCase{
		engine: engine,
		hasher: hasher,
		logger: logger,
	}
}

// EncryptFields replaces each sensitive field with its encrypted record and
// lookup hash. A field that fails to encrypt is dropped from the result so
// plaintext never leaks through the failure path; the error reports every
// failed field.
func (uc *fieldUseCase) EncryptFields(ctx context.Context, tenantID, callerID string, doc map[string]any, sensitive []string) (map[string]any, error) {
	result := make(map[string]any, len(doc))
	for name, value := range doc {
		result[name] = value
	}

	var errs []error
	for _, name := range sensitive {
		value, ok := result[name]
		if !ok {
			continue
		}

		serialized, err := json.Marshal(value)
		if err != nil {
			delete(result, name)
			errs = append(errs, apperrors.Wrap(err, fmt.Sprintf("serialize field %q", name)))
			continue
		}

		encCtx := domain.NewEncryptionContext(tenantID, fieldPurposePrefix+name, callerID)
		record, err := uc.engine.Encrypt(ctx, encCtx, serialized)
		if err != nil {
			delete(result, name)
			errs = append(errs, apperrors.Wrap(err, fmt.Sprintf("encrypt field %q", name)))

			uc.logger.Error("failed to encrypt field",
				slog.String("tenant_id", tenantID),
				slog.String("field", name),
				slog.Any("error", err),
			)
			continue
		}

		delete(result, name)
		result[name+encryptedFieldSuffix] = record
		result[name+hashFieldSuffix] = uc.hasher.Hash(string(serialized))
	}

	return result, apperrors.Join(errs...)
}

// DecryptFields restores every encrypted field in the document. A field that
// fails to decrypt keeps its encrypted form in the result; the error reports
// every failed field.
func (uc *fieldUseCase) DecryptFields(ctx context.Context, tenantID string, doc map[string]any) (map[string]any, error) {
	result := make(map[string]any, len(doc))
	for name, value := range doc {
		result[name] = value
	}

	var errs []error
	for name, value := range doc {
		if !strings.HasSuffix(name, encryptedFieldSuffix) {
			continue
		}
		fieldName := strings.TrimSuffix(name, encryptedFieldSuffix)

		record, err := asRecord(value)
		if err != nil {
			errs = append(errs, apperrors.Wrap(err, fmt.Sprintf("decode field %q", fieldName)))
			continue
		}

		serialized, err := uc.engine.Decrypt(ctx, tenantID, record)
		if err != nil {
			errs = append(errs, apperrors.Wrap(err, fmt.Sprintf("decrypt field %q", fieldName)))

			uc.logger.Error("failed to decrypt field",
				slog.String("tenant_id", tenantID),
				slog.String("field", fieldName),
				slog.Any("error", err),
			)
			continue
		}

		var plaintext any
		if err := json.Unmarshal(serialized, &plaintext); err != nil {
			errs = append(errs, apperrors.Wrap(err, fmt.Sprintf("deserialize field %q", fieldName)))
			continue
		}

		delete(result, name)
		delete(result, fieldName+hashFieldSuffix)
		result[fieldName] = plaintext
	}

	return result, apperrors.Join(errs...)
}

// asRecord accepts both typed records and the generic map form produced by
// JSON round trips through the document store.
func asRecord(value any) (*domain.EncryptedRecord, error) {
	switch typed := value.(type) {
	case *domain.EncryptedRecord:
		return typed, nil
	case domain.EncryptedRecord:
		return &typed, nil
	default:
		serialized, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		var record domain.EncryptedRecord
		if err := json.Unmarshal(serialized, &record); err != nil {
			return nil, err
		}
		return &record, nil
	}
}
