// Package testing provides audit test doubles shared across module tests.
package testing

import (
	"context"
	"sync"

	auditDomain "github.com/themisguard/datashield/internal/audit/domain"
)

// RecordingSink captures emitted audit events for assertions.
type RecordingSink struct {
	mu     sync.Mutex
	events []*auditDomain.Event
}

// NewRecordingSink creates an empty RecordingSink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// Emit records the event.
func (s *RecordingSink) Emit(ctx context.Context, event *auditDomain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of all recorded events.
func (s *RecordingSink) Events() []*auditDomain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*auditDomain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByAction returns recorded events with the given action.
func (s *RecordingSink) ByAction(action string) []*auditDomain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*auditDomain.Event
	for _, event := range s.events {
		if event.Action == action {
			out = append(out, event)
		}
	}
	return out
}

// Reset clears all recorded events.
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
