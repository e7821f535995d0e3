package service

import (
	"context"
	"sync"

	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/events"
)

var cols = domain.DefaultColumns()

var operator = domain.Principal{UserID: "usr1", Email: "admin@example.com", Role: domain.RoleAdmin, WorkspaceID: "ws-1"}

// recorder captures every published event.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Subscribe(events.EventType, events.EventHandler) {}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fakePublisher struct {
	enabled  bool
	err      error
	channels []string
	messages []any
}

func (f *fakePublisher) Enabled() bool { return f.enabled }

func (f *fakePublisher) PublishJSON(_ context.Context, channel string, v any) error {
	f.channels = append(f.channels, channel)
	f.messages = append(f.messages, v)
	return f.err
}
