// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/deskops/ticket-desk/internal/domain"
)

// MockGateway is a test double for the record gateway and user directory.
// Records keep insertion order. Hooks run before a call returns so tests can
// hold a request in flight.
type MockGateway struct {
	mu sync.Mutex

	Tickets map[string]domain.Ticket
	Order   []string
	Users   map[string]domain.User

	ListErr   error
	GetErr    error
	CreateErr error
	UpdateErr error
	FindErr   error

	// UpdateFunc replaces the default merge when set.
	UpdateFunc func(id string, patch domain.FieldMap) (*domain.Ticket, error)

	// GetHook and UpdateHook are called without the lock held.
	GetHook    func(id string)
	UpdateHook func(id string)

	ListCalls   int
	GetCalls    int
	CreateCalls int
	UpdateCalls int
	LastPatch   domain.FieldMap
	nextID      int
}

// NewMockGateway creates a MockGateway seeded with tickets.
func NewMockGateway(tickets ...domain.Ticket) *MockGateway {
	m := &MockGateway{
		Tickets: make(map[string]domain.Ticket),
		Users:   make(map[string]domain.User),
	}
	for _, t := range tickets {
		m.Put(t)
	}
	return m
}

// Put inserts or replaces a ticket.
func (m *MockGateway) Put(t domain.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Tickets[t.ID]; !ok {
		m.Order = append(m.Order, t.ID)
	}
	m.Tickets[t.ID] = t.Clone()
}

// AddUser registers a user for FindUserByEmail.
func (m *MockGateway) AddUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Users[u.Email] = u
}

// Calls returns the list, get and update counters.
func (m *MockGateway) Calls() (list, get, update int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ListCalls, m.GetCalls, m.UpdateCalls
}

// ListTickets returns all tickets in insertion order.
func (m *MockGateway) ListTickets(_ context.Context) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]domain.Ticket, 0, len(m.Order))
	for _, id := range m.Order {
		out = append(out, m.Tickets[id].Clone())
	}
	return out, nil
}

// GetTicket returns one ticket or ErrNotFound.
func (m *MockGateway) GetTicket(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	m.GetCalls++
	hook := m.GetHook
	m.mu.Unlock()
	if hook != nil {
		hook(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	t, ok := m.Tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", id, domain.ErrNotFound)
	}
	c := t.Clone()
	return &c, nil
}

// CreateTicket stores a new ticket with a generated id.
func (m *MockGateway) CreateTicket(_ context.Context, fields domain.FieldMap) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.nextID++
	t := domain.Ticket{ID: fmt.Sprintf("rec%05d", m.nextID), Fields: fields.Clone()}
	m.Order = append(m.Order, t.ID)
	m.Tickets[t.ID] = t
	c := t.Clone()
	return &c, nil
}

// UpdateTicket merges patch into the stored ticket and returns it. A nil
// value removes the field, as a real backend omits empty fields.
func (m *MockGateway) UpdateTicket(_ context.Context, id string, patch domain.FieldMap) (*domain.Ticket, error) {
	m.mu.Lock()
	m.UpdateCalls++
	m.LastPatch = patch.Clone()
	hook := m.UpdateHook
	m.mu.Unlock()
	if hook != nil {
		hook(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	if m.UpdateFunc != nil {
		return m.UpdateFunc(id, patch)
	}
	t, ok := m.Tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", id, domain.ErrNotFound)
	}
	t = t.Clone()
	if t.Fields == nil {
		t.Fields = domain.FieldMap{}
	}
	for k, v := range patch {
		if v == nil {
			delete(t.Fields, k)
			continue
		}
		t.Fields[k] = v
	}
	m.Tickets[id] = t
	c := t.Clone()
	return &c, nil
}

// FindUserByEmail returns the registered user or ErrNotFound.
func (m *MockGateway) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	u, ok := m.Users[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	return &u, nil
}
