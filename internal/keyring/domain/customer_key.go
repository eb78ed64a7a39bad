// Package domain defines the customer key registry domain models.
//
// Every tenant owns exactly one active encryption key in the external key
// service, addressed through a tenant-scoped alias. The registry tracks the
// key's lifecycle locally; key material never leaves the key service.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// KeyState represents the lifecycle state of a customer key.
type KeyState string

const (
	// KeyStateActive marks the key currently pointed at by the tenant alias.
	KeyStateActive KeyState = "active"

	// KeyStateRotating marks a rotated-out predecessor that must remain
	// decryptable until its scheduled destruction completes.
	KeyStateRotating KeyState = "rotating"

	// KeyStatePendingDeletion marks a key scheduled for irreversible
	// destruction in the key service.
	KeyStatePendingDeletion KeyState = "pending-deletion"

	// KeyStateDestroyed marks a key whose destruction has completed.
	// All ciphertext wrapped under it is permanently unrecoverable.
	KeyStateDestroyed KeyState = "destroyed"
)

// CustomerKey is the registry's record of one tenant key in the key service.
// The KeyID is an opaque handle issued by the key service; the registry never
// holds key material.
type CustomerKey struct {
	ID        uuid.UUID // Unique identifier (UUIDv7)
	TenantID  string
	KeyID     string // Opaque key handle from the key service
	Alias     string // Tenant-scoped alias (alias/customer-<tenant>-key)
	State     KeyState
	CreatedAt time.Time
	RotatedAt *time.Time // When this key was rotated out (nil while active)
	DestroyAt *time.Time // Scheduled destruction time (nil unless scheduled)
}

// Usable reports whether the key can still serve decrypt operations.
// Keys remain usable through rotation and the pending-deletion grace window;
// only completed destruction makes wrapped data unrecoverable.
func (k *CustomerKey) Usable() bool {
	return k.State != KeyStateDestroyed
}
