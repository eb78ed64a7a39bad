package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/sethvargo/go-retry"

	apperrors "github.com/themisguard/datashield/internal/errors"
	"github.com/themisguard/datashield/internal/keyring/domain"
)

// kmsAPI is the subset of the AWS KMS client used by AWSKeyService.
// *kms.Client satisfies it.
type kmsAPI interface {
	CreateKey(ctx context.Context, params *kms.CreateKeyInput, optFns ...func(*kms.Options)) (*kms.CreateKeyOutput, error)
	CreateAlias(ctx context.Context, params *kms.CreateAliasInput, optFns ...func(*kms.Options)) (*kms.CreateAliasOutput, error)
	UpdateAlias(ctx context.Context, params *kms.UpdateAliasInput, optFns ...func(*kms.Options)) (*kms.UpdateAliasOutput, error)
	DeleteAlias(ctx context.Context, params *kms.DeleteAliasInput, optFns ...func(*kms.Options)) (*kms.DeleteAliasOutput, error)
	DescribeKey(ctx context.Context, params *kms.DescribeKeyInput, optFns ...func(*kms.Options)) (*kms.DescribeKeyOutput, error)
	GenerateDataKey(ctx context.Context, params *kms.GenerateDataKeyInput, optFns ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
	ScheduleKeyDeletion(ctx context.Context, params *kms.ScheduleKeyDeletionInput, optFns ...func(*kms.Options)) (*kms.ScheduleKeyDeletionOutput, error)
}

// AWSKeyServiceConfig holds AWS KMS client configuration.
type AWSKeyServiceConfig struct {
	CallTimeout time.Duration
	MaxRetries  int
	Backoff     time.Duration
}

// AWSKeyService implements KeyService on AWS KMS. Transient service errors are
// retried with exponential backoff up to MaxRetries before being surfaced as
// ErrKeyUnavailable.
type AWSKeyService struct {
	client kmsAPI
	config AWSKeyServiceConfig
	logger *slog.Logger
}

// NewAWSKeyService creates a new AWSKeyService.
func NewAWSKeyService(client kmsAPI, config AWSKeyServiceConfig, logger *slog.Logger) *AWSKeyService {
	return &AWSKeyService{
		client: client,
		config: config,
		logger: logger,
	}
}

// CreateKey provisions a symmetric encryption key with the tenant-scoped
// policy and tags applied at creation time.
func (s *AWSKeyService) CreateKey(ctx context.Context, description string, policy string, tags map[string]string) (string, error) {
	input := &kms.CreateKeyInput{
		Description: aws.String(description),
		KeySpec:     types.KeySpecSymmetricDefault,
		KeyUsage:    types.KeyUsageTypeEncryptDecrypt,
	}
	if policy != "" {
		input.Policy = aws.String(policy)
	}
	for key, value := range tags {
		input.Tags = append(input.Tags, types.Tag{
			TagKey:   aws.String(key),
			TagValue: aws.String(value),
		})
	}

	var keyID string
	err := s.withRetry(ctx, "CreateKey", func(ctx context.Context) error {
		output, err := s.client.CreateKey(ctx, input)
		if err != nil {
			return err
		}
		keyID = aws.ToString(output.KeyMetadata.KeyId)
		return nil
	})
	if err != nil {
		return "", err
	}
	return keyID, nil
}

// CreateAlias binds the alias to the key.
func (s *AWSKeyService) CreateAlias(ctx context.Context, alias, keyID string) error {
	return s.withRetry(ctx, "CreateAlias", func(ctx context.Context) error {
		_, err := s.client.CreateAlias(ctx, &kms.CreateAliasInput{
			AliasName:   aws.String(alias),
			TargetKeyId: aws.String(keyID),
		})
		return err
	})
}

// UpdateAlias repoints the alias at a different key.
func (s *AWSKeyService) UpdateAlias(ctx context.Context, alias, keyID string) error {
	return s.withRetry(ctx, "UpdateAlias", func(ctx context.Context) error {
		_, err := s.client.UpdateAlias(ctx, &kms.UpdateAliasInput{
			AliasName:   aws.String(alias),
			TargetKeyId: aws.String(keyID),
		})
		return err
	})
}

// DeleteAlias removes the alias.
func (s *AWSKeyService) DeleteAlias(ctx context.Context, alias string) error {
	return s.withRetry(ctx, "DeleteAlias", func(ctx context.Context) error {
		_, err := s.client.DeleteAlias(ctx, &kms.DeleteAliasInput{
			AliasName: aws.String(alias),
		})
		return err
	})
}

// ResolveAlias returns the key id behind an alias via DescribeKey.
func (s *AWSKeyService) ResolveAlias(ctx context.Context, alias string) (string, error) {
	var keyID string
	err := s.withRetry(ctx, "DescribeKey", func(ctx context.Context) error {
		output, err := s.client.DescribeKey(ctx, &kms.DescribeKeyInput{
			KeyId: aws.String(alias),
		})
		if err != nil {
			return err
		}
		keyID = aws.ToString(output.KeyMetadata.KeyId)
		return nil
	})
	if err != nil {
		return "", err
	}
	return keyID, nil
}

// GenerateDataKey returns a fresh AES-256 data key bound to the encryption
// context.
func (s *AWSKeyService) GenerateDataKey(ctx context.Context, keyID string, encryptionContext map[string]string) (*DataKey, error) {
	var dataKey *DataKey
	err := s.withRetry(ctx, "GenerateDataKey", func(ctx context.Context) error {
		output, err := s.client.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
			KeyId:             aws.String(keyID),
			KeySpec:           types.DataKeySpecAes256,
			EncryptionContext: encryptionContext,
		})
		if err != nil {
			return err
		}
		dataKey = &DataKey{
			Plaintext: output.Plaintext,
			Wrapped:   output.CiphertextBlob,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dataKey, nil
}

// Decrypt unwraps a data key under the supplied encryption context.
func (s *AWSKeyService) Decrypt(ctx context.Context, wrapped []byte, encryptionContext map[string]string) ([]byte, error) {
	var plaintext []byte
	err := s.withRetry(ctx, "Decrypt", func(ctx context.Context) error {
		output, err := s.client.Decrypt(ctx, &kms.DecryptInput{
			CiphertextBlob:    wrapped,
			EncryptionContext: encryptionContext,
		})
		if err != nil {
			return err
		}
		plaintext = output.Plaintext
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}

// ScheduleKeyDeletion schedules irreversible key destruction.
func (s *AWSKeyService) ScheduleKeyDeletion(ctx context.Context, keyID string, pendingWindowDays int) error {
	return s.withRetry(ctx, "ScheduleKeyDeletion", func(ctx context.Context) error {
		_, err := s.client.ScheduleKeyDeletion(ctx, &kms.ScheduleKeyDeletionInput{
			KeyId:               aws.String(keyID),
			PendingWindowInDays: aws.Int32(int32(pendingWindowDays)),
		})
		return err
	})
}

// withRetry applies the per-call timeout and retries transient errors with
// exponential backoff. Terminal errors are mapped to the registry taxonomy.
func (s *AWSKeyService) withRetry(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(s.config.MaxRetries), retry.NewExponential(s.config.Backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
		defer cancel()

		err := fn(callCtx)
		if err == nil {
			return nil
		}
		if mapped, terminal := mapTerminalError(err); terminal {
			return mapped
		}

		s.logger.Warn("transient key service error",
			slog.String("operation", operation),
			slog.Any("error", err),
		)
		return retry.RetryableError(err)
	})
	if err == nil {
		return nil
	}
	if _, terminal := mapTerminalError(err); terminal {
		return err
	}
	return apperrors.Wrap(domain.ErrKeyUnavailable, operation)
}

// mapTerminalError translates AWS KMS error types that must not be retried.
func mapTerminalError(err error) (error, bool) {
	var notFound *types.NotFoundException
	if apperrors.As(err, &notFound) {
		return domain.ErrKeyNotFound, true
	}

	var invalidCiphertext *types.InvalidCiphertextException
	if apperrors.As(err, &invalidCiphertext) {
		return domain.ErrUnwrapRejected, true
	}

	var alreadyExists *types.AlreadyExistsException
	if apperrors.As(err, &alreadyExists) {
		return apperrors.Wrap(apperrors.ErrConflict, "alias already exists"), true
	}

	var disabled *types.DisabledException
	if apperrors.As(err, &disabled) {
		return domain.ErrKeyUnavailable, true
	}

	var invalidState *types.KMSInvalidStateException
	if apperrors.As(err, &invalidState) {
		return domain.ErrKeyUnavailable, true
	}

	if apperrors.Is(err, domain.ErrKeyNotFound) ||
		apperrors.Is(err, domain.ErrUnwrapRejected) ||
		apperrors.Is(err, domain.ErrKeyUnavailable) ||
		apperrors.Is(err, apperrors.ErrConflict) {
		return err, true
	}

	return err, false
}
