package domain

import (
	"github.com/themisguard/datashield/internal/errors"
)

// Envelope encryption error definitions.
var (
	// ErrTenantMismatch indicates a caller tried to decrypt a record that
	// belongs to a different tenant. The check runs before any key service
	// call, so no cross-tenant key operation is ever attempted.
	ErrTenantMismatch = errors.Wrap(errors.ErrForbidden, "record belongs to a different tenant")

	// ErrDecryptionFailed indicates the ciphertext or wrapped key could not
	// be decrypted, typically after tampering or context mutation.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrIntegrityViolation indicates the decrypted payload does not match
	// the content hash recorded at encryption time.
	ErrIntegrityViolation = errors.Wrap(errors.ErrInvalidInput, "content integrity violation")
)
