package domain

import (
	"github.com/themisguard/datashield/internal/errors"
)

// Retention error definitions.
var (
	// ErrUnknownCategory indicates data was classified under a category that
	// has no policy row. Unclassifiable data is rejected, not defaulted.
	ErrUnknownCategory = errors.Wrap(errors.ErrInvalidInput, "unknown data category")

	// ErrEntryNotFound indicates the retention ledger has no such entry.
	ErrEntryNotFound = errors.Wrap(errors.ErrNotFound, "retention entry not found")

	// ErrQueueItemNotFound indicates the deletion queue has no such item.
	ErrQueueItemNotFound = errors.Wrap(errors.ErrNotFound, "deletion queue item not found")

	// ErrIndefiniteRetention indicates an extension was attempted on data
	// retained indefinitely.
	ErrIndefiniteRetention = errors.Wrap(errors.ErrInvalidInput, "entry has indefinite retention")

	// ErrInvalidExtension indicates the new expiry does not move the window
	// forward.
	ErrInvalidExtension = errors.Wrap(errors.ErrInvalidInput, "extension must move expiry forward")

	// ErrNotPendingApproval indicates an approval was attempted on an item
	// that is not waiting for one.
	ErrNotPendingApproval = errors.Wrap(errors.ErrConflict, "queue item is not pending approval")
)
