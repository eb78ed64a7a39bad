package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryStatus tracks a retention ledger entry through its lifecycle.
type EntryStatus string

const (
	// EntryStatusActive means the data is inside its retention window.
	EntryStatusActive EntryStatus = "active"

	// EntryStatusQueued means the entry expired and a deletion queue item
	// exists for it.
	EntryStatusQueued EntryStatus = "queued"

	// EntryStatusDeleted means the deletion executor finished with the data.
	EntryStatusDeleted EntryStatus = "deleted"
)

// Extension records one retention extension. The history is append-only;
// extensions are never rewritten or removed.
type Extension struct {
	Actor        string    `json:"actor"`
	Reason       string    `json:"reason"`
	OldExpiresAt time.Time `json:"old_expires_at"`
	NewExpiresAt time.Time `json:"new_expires_at"`
	ExtendedAt   time.Time `json:"extended_at"`
}

// Entry is one retention ledger row: a piece of stored data, its category,
// and when its retention window ends.
type Entry struct {
	ID           uuid.UUID
	TenantID     string
	ResourceType string
	ResourceID   string
	Category     DataCategory
	Status       EntryStatus
	AuditLevel   AuditLevel
	StoredAt     time.Time
	ExpiresAt    *time.Time // nil for indefinite retention
	Extensions   []Extension
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewEntry classifies stored data under the category's policy, computing the
// expiry from the storage time.
func NewEntry(tenantID, resourceType, resourceID string, category DataCategory, storedAt time.Time) (*Entry, error) {
	policy, err := PolicyFor(category)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:           uuid.Must(uuid.NewV7()),
		TenantID:     tenantID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Category:     category,
		Status:       EntryStatusActive,
		AuditLevel:   policy.AuditLevel,
		StoredAt:     storedAt.UTC(),
		CreatedAt:    time.Now().UTC(),
	}
	if !policy.Indefinite {
		expiresAt := storedAt.UTC().AddDate(0, 0, policy.RetentionDays)
		entry.ExpiresAt = &expiresAt
	}
	return entry, nil
}

// Expired reports whether the retention window has passed at the given time.
// Indefinite entries never expire.
func (e *Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}

// ExpiringSoon reports whether the entry expires within the given window.
func (e *Entry) ExpiringSoon(now time.Time, window time.Duration) bool {
	if e.ExpiresAt == nil || e.Expired(now) {
		return false
	}
	return e.ExpiresAt.Sub(now) <= window
}

// Extend pushes the expiry out and appends to the extension history.
// Indefinite entries cannot be extended.
func (e *Entry) Extend(actor, reason string, newExpiresAt time.Time, now time.Time) error {
	if e.ExpiresAt == nil {
		return ErrIndefiniteRetention
	}
	if !newExpiresAt.After(*e.ExpiresAt) {
		return ErrInvalidExtension
	}

	e.Extensions = append(e.Extensions, Extension{
		Actor:        actor,
		Reason:       reason,
		OldExpiresAt: *e.ExpiresAt,
		NewExpiresAt: newExpiresAt.UTC(),
		ExtendedAt:   now.UTC(),
	})
	extended := newExpiresAt.UTC()
	e.ExpiresAt = &extended
	return nil
}
