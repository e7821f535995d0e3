package domain

import "strings"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew          TicketStatus = "New"
	TicketStatusAcknowledged TicketStatus = "Acknowledged"
	TicketStatusInProgress   TicketStatus = "In Progress"
	TicketStatusPending      TicketStatus = "Pending"
	TicketStatusResolved     TicketStatus = "Resolved"
	TicketStatusClosed       TicketStatus = "Closed"
)

// TicketUrgency enumerates urgency levels.
type TicketUrgency string

const (
	TicketUrgencyNormal TicketUrgency = "Normal"
	TicketUrgencyUrgent TicketUrgency = "Urgent"
)

// All is the filter sentinel that disables a criterion.
const All = "All"

// Statuses lists every known status in display order.
var Statuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusAcknowledged,
	TicketStatusInProgress,
	TicketStatusPending,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Urgencies lists every known urgency level.
var Urgencies = []TicketUrgency{TicketUrgencyNormal, TicketUrgencyUrgent}

// ParseStatus resolves s case-insensitively to a known status.
func ParseStatus(s string) (TicketStatus, bool) {
	s = strings.TrimSpace(s)
	for _, st := range Statuses {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

// ParseUrgency resolves s case-insensitively to a known urgency.
func ParseUrgency(s string) (TicketUrgency, bool) {
	s = strings.TrimSpace(s)
	for _, u := range Urgencies {
		if strings.EqualFold(string(u), s) {
			return u, true
		}
	}
	return "", false
}

// Ticket is one support request record as held by the backend.
type Ticket struct {
	ID        string   `json:"id"`
	Fields    FieldMap `json:"fields"`
	CreatedAt string   `json:"created_at"`
}

// Clone returns a deep copy of the ticket.
func (t Ticket) Clone() Ticket {
	return Ticket{ID: t.ID, Fields: t.Fields.Clone(), CreatedAt: t.CreatedAt}
}

// Status returns the ticket status, New when unset.
func (t Ticket) Status(cols Columns) string {
	if s := t.Fields.Text(cols.Status); s != "" {
		return s
	}
	return string(TicketStatusNew)
}

// Urgency returns the ticket urgency, Normal when unset.
func (t Ticket) Urgency(cols Columns) string {
	if u := t.Fields.Text(cols.Urgency); u != "" {
		return u
	}
	return string(TicketUrgencyNormal)
}

// DisplayID returns the ticket id field, falling back to the record id.
func (t Ticket) DisplayID(cols Columns) string {
	if id := t.Fields.Text(cols.TicketID); id != "" {
		return id
	}
	return t.ID
}

// ShortID returns the last five characters of DisplayID.
func (t Ticket) ShortID(cols Columns) string {
	id := []rune(t.DisplayID(cols))
	if len(id) <= 5 {
		return string(id)
	}
	return string(id[len(id)-5:])
}

// SubmittedAt returns the date-submitted field, falling back to CreatedAt.
func (t Ticket) SubmittedAt(cols Columns) string {
	if d := t.Fields.Text(cols.DateSubmitted); d != "" {
		return d
	}
	return t.CreatedAt
}
