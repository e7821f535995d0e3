package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deskops/ticket-desk/internal/domain"
)

// Memory is an in-process backend. Like the hosted backends it drops fields
// written as null or empty from the stored record.
type Memory struct {
	cols domain.Columns

	mu      sync.RWMutex
	tickets []domain.Ticket
	users   map[string]domain.User
	now     func() time.Time
}

// NewMemory returns an empty in-memory backend.
func NewMemory(cols domain.Columns) *Memory {
	return &Memory{
		cols:  cols.WithDefaults(),
		users: make(map[string]domain.User),
		now:   time.Now,
	}
}

// Seed appends tickets as stored records.
func (m *Memory) Seed(tickets ...domain.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tickets {
		c := t.Clone()
		if c.ID == "" {
			c.ID = newRecordID()
		}
		if c.Fields == nil {
			c.Fields = domain.FieldMap{}
		}
		m.tickets = append(m.tickets, c)
	}
}

// PutUser registers or replaces an account, keyed by case-folded email.
func (m *Memory) PutUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = newRecordID()
	}
	m.users[strings.ToLower(u.Email)] = u
}

// SaveUser implements UserWriter.
func (m *Memory) SaveUser(_ context.Context, u *domain.User) error {
	m.PutUser(*u)
	return nil
}

func newRecordID() string {
	return "rec" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}

func (m *Memory) indexOf(id string) int {
	for i := range m.tickets {
		if m.tickets[i].ID == id {
			return i
		}
	}
	return -1
}

// ListTickets returns every record in insertion order.
func (m *Memory) ListTickets(_ context.Context) ([]domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Ticket, len(m.tickets))
	for i, t := range m.tickets {
		out[i] = t.Clone()
	}
	return out, nil
}

// GetTicket returns one record.
func (m *Memory) GetTicket(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx := m.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("ticket %s: %w", id, domain.ErrNotFound)
	}
	t := m.tickets[idx].Clone()
	return &t, nil
}

// CreateTicket stores a new record.
func (m *Memory) CreateTicket(_ context.Context, fields domain.FieldMap) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := domain.Ticket{
		ID:        newRecordID(),
		Fields:    compact(normalizeAttachment(fields, m.cols).Clone()),
		CreatedAt: m.now().UTC().Format(time.RFC3339),
	}
	if t.Fields == nil {
		t.Fields = domain.FieldMap{}
	}
	m.tickets = append(m.tickets, t)
	c := t.Clone()
	return &c, nil
}

// UpdateTicket merges patch into the record.
func (m *Memory) UpdateTicket(_ context.Context, id string, patch domain.FieldMap) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("ticket %s: %w", id, domain.ErrNotFound)
	}
	target := &m.tickets[idx]
	for k, v := range normalizeAttachment(patch, m.cols).Clone() {
		target.Fields[k] = v
	}
	target.Fields = compact(target.Fields)
	t := target.Clone()
	return &t, nil
}

// FindUserByEmail matches the email case-insensitively.
func (m *Memory) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	return &u, nil
}

func compact(fields domain.FieldMap) domain.FieldMap {
	for k, v := range fields {
		if v == nil {
			delete(fields, k)
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			delete(fields, k)
		}
	}
	return fields
}
