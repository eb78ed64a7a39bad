// Package domain defines the audit event model emitted by every component of
// the encryption and data-lifecycle core. Events never carry plaintext; they
// hold just enough context to investigate an access or deletion after the fact.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Result classifies the outcome of an audited action.
type Result string

const (
	// ResultSuccess indicates the action completed.
	ResultSuccess Result = "success"

	// ResultDenied indicates the access gate refused the action before it ran.
	ResultDenied Result = "denied"

	// ResultError indicates the action was attempted and failed.
	ResultError Result = "error"

	// ResultPartial indicates a multi-item action completed with some failures.
	ResultPartial Result = "partial"
)

// Event records one authorization decision or data-lifecycle action.
// Exactly one event is emitted per attempt, regardless of outcome.
type Event struct {
	ID           uuid.UUID
	Actor        string
	TenantID     string
	Action       string
	ResourceType string
	ResourceID   string
	Result       Result
	Error        string
	Metadata     map[string]any
	CreatedAt    time.Time
}

// NewEvent creates an audit event with a UUIDv7 identifier and UTC timestamp.
func NewEvent(actor, tenantID, action, resourceType, resourceID string, result Result) *Event {
	return &Event{
		ID:           uuid.Must(uuid.NewV7()),
		Actor:        actor,
		TenantID:     tenantID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Result:       result,
		CreatedAt:    time.Now().UTC(),
	}
}

// WithError attaches a failure message and marks the event as an error
// when no terminal result has been set yet.
func (e *Event) WithError(err error) *Event {
	if err != nil {
		e.Error = err.Error()
		if e.Result == ResultSuccess {
			e.Result = ResultError
		}
	}
	return e
}

// WithMetadata attaches investigation context to the event.
// Callers must never place plaintext or key material here.
func (e *Event) WithMetadata(metadata map[string]any) *Event {
	e.Metadata = metadata
	return e
}
