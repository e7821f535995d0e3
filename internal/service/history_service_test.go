package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/events"
)

type memoryHistory struct{ entries []domain.TicketHistory }

func (m *memoryHistory) Create(_ context.Context, h *domain.TicketHistory) error {
	h.ID = h.EventID
	m.entries = append(m.entries, *h)
	return nil
}

func (m *memoryHistory) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	out := []domain.TicketHistory{}
	for _, e := range m.entries {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestHistoryService_RecordsEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	repo := &memoryHistory{}
	svc := NewHistoryService(dispatcher, repo, nil)
	svc.RegisterHandlers()
	ctx := context.Background()

	actor := events.ActorFrom(operator)
	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventTicketAssigned, "rec1", actor, events.TicketAssignedPayload{Assignee: "ivy"})))
	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventTicketAssigned, "rec2", actor, events.TicketAssignedPayload{})))

	got, err := svc.List(ctx, "rec1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, string(events.EventTicketAssigned), got[0].ChangeType)
	assert.Equal(t, "admin@example.com", got[0].ActorEmail)

	var payload events.TicketAssignedPayload
	require.NoError(t, json.Unmarshal(got[0].Payload, &payload))
	assert.Equal(t, "ivy", payload.Assignee)
}

func TestHistoryService_Disabled(t *testing.T) {
	svc := NewHistoryService(events.NewInMemoryDispatcher(nil), nil, nil)
	svc.RegisterHandlers()
	assert.False(t, svc.Enabled())
	got, err := svc.List(context.Background(), "rec1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
