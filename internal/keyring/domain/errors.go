package domain

import (
	"github.com/themisguard/datashield/internal/errors"
)

// Key registry error definitions.
var (
	// ErrKeyNotFound indicates no key exists for the tenant.
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "customer key not found")

	// ErrKeyUnavailable indicates the key service could not be reached or the
	// key is in a non-usable lifecycle state. Callers retry a bounded number
	// of times before surfacing this error; it is never silently ignored.
	ErrKeyUnavailable = errors.Wrap(errors.ErrUnavailable, "customer key unavailable")

	// ErrKeyDestroyed indicates the tenant key has been destroyed and all
	// ciphertext wrapped under it is permanently unrecoverable.
	ErrKeyDestroyed = errors.Wrap(errors.ErrUnavailable, "customer key destroyed")

	// ErrRotationInProgress indicates another rotation holds the single
	// "rotating" slot for this tenant. Rotations are serialized per tenant.
	ErrRotationInProgress = errors.Wrap(errors.ErrConflict, "key rotation already in progress")

	// ErrUnwrapRejected indicates the key service refused to unwrap a data
	// key, either because the ciphertext was corrupted or because the supplied
	// encryption context does not match the one used at wrap time.
	ErrUnwrapRejected = errors.Wrap(errors.ErrInvalidInput, "data key unwrap rejected")
)
