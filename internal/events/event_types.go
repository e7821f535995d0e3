package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/deskops/ticket-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketSubmitted     EventType = "ticket_submitted"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Email  string      `json:"email,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// ActorFrom builds the actor for a principal.
func ActorFrom(p domain.Principal) Actor {
	return Actor{UserID: p.UserID, Email: p.Email, Role: p.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, ticketID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	Title          string               `json:"title"`
	Urgency        domain.TicketUrgency `json:"urgency"`
	RequesterEmail string               `json:"requester_email"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus      domain.TicketStatus `json:"old_status"`
	NewStatus      domain.TicketStatus `json:"new_status"`
	RequesterEmail string              `json:"requester_email,omitempty"`
}

// TicketAssignedPayload payload. An empty Assignee means the ticket was unassigned.
type TicketAssignedPayload struct {
	OldAssignee string `json:"old_assignee,omitempty"`
	Assignee    string `json:"assignee"`
}
