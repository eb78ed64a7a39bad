package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueueItemStatus tracks a deletion queue item.
type QueueItemStatus string

const (
	// QueueItemStatusPendingApproval waits for an operator sign-off before
	// the executor may touch the data.
	QueueItemStatusPendingApproval QueueItemStatus = "pending_approval"

	// QueueItemStatusReady is eligible for execution.
	QueueItemStatusReady QueueItemStatus = "ready"

	// QueueItemStatusRetryNeeded failed execution and waits for the next
	// executor pass.
	QueueItemStatusRetryNeeded QueueItemStatus = "retry_needed"

	// QueueItemStatusCompleted finished successfully.
	QueueItemStatusCompleted QueueItemStatus = "completed"

	// QueueItemStatusFailed exhausted its retries and needs an operator.
	QueueItemStatusFailed QueueItemStatus = "failed"
)

// QueueItem is one unit of deletion work produced by the retention sweep.
type QueueItem struct {
	ID           uuid.UUID
	EntryID      uuid.UUID
	TenantID     string
	ResourceType string
	ResourceID   string
	Category     DataCategory
	Method       DeletionMethod
	Status       QueueItemStatus
	RequestedBy  string
	Reason       string
	Attempts     int
	LastError    *string
	ApprovedBy   *string
	ApprovedAt   *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewQueueItem creates a deletion queue item for an expired entry, honoring
// the category's approval requirement. The requester and reason record who
// asked for the deletion and why, and survive into the completion audit.
func NewQueueItem(entry *Entry, policy Policy, requestedBy, reason string) *QueueItem {
	status := QueueItemStatusReady
	if policy.RequiresApproval {
		status = QueueItemStatusPendingApproval
	}
	return &QueueItem{
		ID:           uuid.Must(uuid.NewV7()),
		EntryID:      entry.ID,
		TenantID:     entry.TenantID,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Category:     entry.Category,
		Method:       policy.Method,
		Status:       status,
		RequestedBy:  requestedBy,
		Reason:       reason,
		CreatedAt:    time.Now().UTC(),
	}
}

// Approve marks a pending item ready for execution.
func (i *QueueItem) Approve(actor string, now time.Time) error {
	if i.Status != QueueItemStatusPendingApproval {
		return ErrNotPendingApproval
	}
	approvedAt := now.UTC()
	i.Status = QueueItemStatusReady
	i.ApprovedBy = &actor
	i.ApprovedAt = &approvedAt
	return nil
}
