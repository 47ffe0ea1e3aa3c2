package reconcile

import (
	"sync"

	"github.com/google/uuid"
)

// Session holds the dedup state for one invoice-import interaction: which
// article numbers already had their price applied and which were already
// turned into new catalog entries. It is owned by the caller, passed
// explicitly through every reconciliation call, and discarded when the
// interaction ends. Nothing in it is persisted.
type Session struct {
	ID string

	mu      sync.Mutex
	updated map[string]struct{}
	added   map[string]struct{}
}

func NewSession() *Session {
	return &Session{
		ID:      uuid.NewString(),
		updated: map[string]struct{}{},
		added:   map[string]struct{}{},
	}
}

func (s *Session) MarkUpdated(articleNumber string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated[articleNumber] = struct{}{}
}

func (s *Session) MarkAdded(articleNumber string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.added[articleNumber] = struct{}{}
}

func (s *Session) IsUpdated(articleNumber string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.updated[articleNumber]
	return ok
}

func (s *Session) IsAdded(articleNumber string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.added[articleNumber]
	return ok
}

// Reset clears both sets, as when the user discards the parsed batch.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = map[string]struct{}{}
	s.added = map[string]struct{}{}
}
