// Package lockout tracks consecutive credential failures per principal.
package lockout

import (
	"context"
	"sync"
	"time"

	"aurum/pkg/requestcontext"
)

// Record is the failure streak for one principal.
type Record struct {
	Identifier    string    `json:"identifier"`
	FailureCount  int       `json:"failure_count"`
	LastFailureAt time.Time `json:"last_failure_at"`
}

// InMemoryStore keeps one Record per normalized username.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	window  time.Duration
}

// New returns a store whose streaks reset after window without failures. A
// zero window never resets.
func New(window time.Duration) *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*Record),
		window:  window,
	}
}

// RecordFailure extends the streak and returns a copy of the updated record.
func (s *InMemoryStore) RecordFailure(ctx context.Context, identifier string) (*Record, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[identifier]
	if !ok || (s.window > 0 && now.Sub(r.LastFailureAt) > s.window) {
		r = &Record{Identifier: identifier}
		s.records[identifier] = r
	}
	r.FailureCount++
	r.LastFailureAt = now
	c := *r
	return &c, nil
}

// Get returns nil, nil for unknown identifiers.
func (s *InMemoryStore) Get(_ context.Context, identifier string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[identifier]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

// Clear ends the streak. Clearing an unknown identifier is a no-op.
func (s *InMemoryStore) Clear(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, identifier)
	return nil
}
