// Package domain defines deletion executor errors.
package domain

import (
	apperrors "github.com/themisguard/datashield/internal/errors"
)

var (
	// ErrVerificationFailed indicates a hard-deleted document was still
	// present on read-back.
	ErrVerificationFailed = apperrors.Wrap(apperrors.ErrUnavailable, "deletion verification failed")

	// ErrUnknownMethod indicates a queue item carries a deletion method the
	// executor does not implement.
	ErrUnknownMethod = apperrors.Wrap(apperrors.ErrInvalidInput, "unknown deletion method")
)
