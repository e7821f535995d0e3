package session

import (
	"context"
	"sync"

	"github.com/deskops/ticket-desk/internal/domain"
)

// Backend is the slice of the record gateway an edit session needs.
type Backend interface {
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, id string, patch domain.FieldMap) (*domain.Ticket, error)
}

// State is a point-in-time copy of the open session.
type State struct {
	TicketID   string        `json:"ticket_id"`
	Ticket     domain.Ticket `json:"ticket"`
	Original   Snapshot      `json:"original"`
	Draft      Snapshot      `json:"draft"`
	Dirty      bool          `json:"dirty"`
	Committing bool          `json:"committing"`
}

// Manager owns at most one EditSession and enforces the ordering rules
// around it: one session at a time, late fetches of a superseded open are
// discarded, and a commit in flight blocks further commits and edits. The
// lock is released around every backend call.
type Manager struct {
	backend Backend
	cols    domain.Columns

	mu      sync.Mutex
	current *EditSession
	pending string
	gen     uint64
}

// NewManager returns a manager with no open session.
func NewManager(backend Backend, cols domain.Columns) *Manager {
	return &Manager{backend: backend, cols: cols.WithDefaults()}
}

// Open fetches ticketID and makes it the open session. It fails with
// ErrSessionOpen while another session is open and with ErrSuperseded if
// another Open or a Close happened before the fetch returned.
func (m *Manager) Open(ctx context.Context, ticketID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return State{}, domain.ErrSessionOpen
	}
	m.gen++
	gen := m.gen
	m.pending = ticketID

	s, err := Open(ctx, ticketID, func(ctx context.Context, id string) (*domain.Ticket, error) {
		m.mu.Unlock()
		t, err := m.backend.GetTicket(ctx, id)
		m.mu.Lock()
		if m.gen != gen || m.pending != ticketID {
			return nil, domain.ErrSuperseded
		}
		m.pending = ""
		return t, err
	}, m.cols)
	if err != nil {
		return State{}, err
	}
	m.current = s
	return stateOf(s), nil
}

// Pending returns the ticket id of an open still waiting on its fetch.
func (m *Manager) Pending() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Current returns the open session state.
func (m *Manager) Current() (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return State{}, false
	}
	return stateOf(m.current), true
}

// UpdateDraft stages one field on the open session.
func (m *Manager) UpdateDraft(field Field, value string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return State{}, domain.ErrNoSession
	}
	if err := m.current.UpdateDraft(field, value); err != nil {
		return stateOf(m.current), err
	}
	return stateOf(m.current), nil
}

// Reset restores the draft of the open session.
func (m *Manager) Reset() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return State{}, domain.ErrNoSession
	}
	if err := m.current.Reset(); err != nil {
		return stateOf(m.current), err
	}
	return stateOf(m.current), nil
}

// Commit saves the open session. The clean transition is applied only after
// the backend answers; if the session was closed meanwhile the response is
// still returned so the caller can reconcile it.
func (m *Manager) Commit(ctx context.Context) (CommitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.current
	if s == nil {
		return CommitResult{}, domain.ErrNoSession
	}
	return s.Commit(ctx, func(ctx context.Context, id string, patch domain.FieldMap) (*domain.Ticket, error) {
		m.mu.Unlock()
		defer m.mu.Lock()
		return m.backend.UpdateTicket(ctx, id, patch)
	})
}

// Close discards the open session, dirty or not, and abandons any open
// still waiting on its fetch.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	m.pending = ""
	m.gen++
}

func stateOf(s *EditSession) State {
	return State{
		TicketID:   s.TicketID(),
		Ticket:     s.Ticket(),
		Original:   s.original,
		Draft:      s.draft,
		Dirty:      s.Dirty(),
		Committing: s.committing,
	}
}
