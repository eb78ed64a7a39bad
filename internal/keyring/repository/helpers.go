package repository

import (
	"github.com/google/uuid"

	"github.com/themisguard/datashield/internal/keyring/domain"
)

// activeSlot maps a key state to the (tenant_id, active_slot) unique index
// value. Only active keys occupy the slot; all other states store NULL so any
// number of rotated or retired keys can coexist per tenant.
func activeSlot(state domain.KeyState) *int16 {
	if state != domain.KeyStateActive {
		return nil
	}
	slot := int16(1)
	return &slot
}

// bytesToUUID converts a BINARY(16) column value back into a uuid.UUID.
func bytesToUUID(b []byte) (uuid.UUID, error) {
	return uuid.FromBytes(b)
}
