package domain

import (
	"encoding/json"
	"time"
)

// TicketHistory is one recorded change to a ticket.
type TicketHistory struct {
	ID         string          `json:"id"`
	TicketID   string          `json:"ticket_id"`
	EventID    string          `json:"event_id"`
	ChangeType string          `json:"change_type"`
	ActorEmail string          `json:"actor_email,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}
