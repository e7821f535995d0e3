// Package store holds the working copy of the ticket collection for one
// operator session.
package store

import (
	"sync"

	"github.com/deskops/ticket-desk/internal/domain"
)

// Store owns the tickets loaded from the backend. Load is the only operation
// that changes membership; ApplyPatch only mutates fields of existing entries.
type Store struct {
	mu      sync.RWMutex
	tickets []domain.Ticket
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Load replaces the whole collection. A nil slice loads an empty collection.
func (s *Store) Load(tickets []domain.Ticket) {
	next := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		next = append(next, t.Clone())
	}
	s.mu.Lock()
	s.tickets = next
	s.mu.Unlock()
}

// Len returns the number of tickets held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickets)
}

// FindIndexByID returns the position of id, or -1.
func (s *Store) FindIndexByID(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id)
}

func (s *Store) indexOf(id string) int {
	for i := range s.tickets {
		if s.tickets[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns a copy of the ticket with id.
func (s *Store) Get(id string) (domain.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return domain.Ticket{}, false
	}
	return s.tickets[idx].Clone(), true
}

// ApplyPatch shallow-merges fields into the stored ticket. It reports false
// and changes nothing when id is not held.
func (s *Store) ApplyPatch(id string, fields domain.FieldMap) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	target := &s.tickets[idx]
	if target.Fields == nil {
		target.Fields = make(domain.FieldMap, len(fields))
	}
	for k, v := range fields.Clone() {
		target.Fields[k] = v
	}
	return true
}

// Snapshot returns a deep copy of the collection in store order.
func (s *Store) Snapshot() []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Ticket, len(s.tickets))
	for i, t := range s.tickets {
		out[i] = t.Clone()
	}
	return out
}
