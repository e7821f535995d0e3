package dto

import (
	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/reconcile"
	"github.com/deskops/ticket-desk/internal/service"
	"github.com/deskops/ticket-desk/internal/session"
	"github.com/deskops/ticket-desk/internal/view"
	"github.com/deskops/ticket-desk/internal/workspace"
)

// SubmitTicketRequest payload.
type SubmitTicketRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Urgency        string `json:"urgency"`
	RequesterEmail string `json:"requester_email"`
	Attachment     string `json:"attachment"`
}

// Input converts the request for the ticket service.
func (r SubmitTicketRequest) Input() service.TicketSubmitInput {
	return service.TicketSubmitInput{
		Title:          r.Title,
		Description:    r.Description,
		Urgency:        r.Urgency,
		RequesterEmail: r.RequesterEmail,
		Attachment:     r.Attachment,
	}
}

// TicketRow is one dashboard row.
type TicketRow struct {
	ID             string `json:"id"`
	TicketID       string `json:"ticket_id"`
	ShortID        string `json:"short_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Status         string `json:"status"`
	Urgency        string `json:"urgency"`
	Assignee       string `json:"assignee"`
	RequesterEmail string `json:"requester_email"`
	SubmittedAt    string `json:"submitted_at"`
	Attachment     string `json:"attachment,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// NewTicketRow renders t through the column mapping.
func NewTicketRow(t domain.Ticket, cols domain.Columns) TicketRow {
	return TicketRow{
		ID:             t.ID,
		TicketID:       t.DisplayID(cols),
		ShortID:        t.ShortID(cols),
		Title:          t.Fields.Text(cols.Title),
		Description:    t.Fields.Text(cols.Description),
		Status:         t.Status(cols),
		Urgency:        t.Urgency(cols),
		Assignee:       t.Fields.Text(cols.Assignee),
		RequesterEmail: t.Fields.Text(cols.RequesterEmail),
		SubmittedAt:    t.SubmittedAt(cols),
		Attachment:     t.Fields.Text(cols.Attachment),
		CreatedAt:      t.CreatedAt,
	}
}

// SubmitTicketResponse is returned after a ticket is created.
type SubmitTicketResponse struct {
	Ticket  TicketRow `json:"ticket"`
	Message string    `json:"message"`
}

// ProjectionResponse is one rendering of the dashboard.
type ProjectionResponse struct {
	Tickets    []TicketRow         `json:"tickets"`
	StoreSize  int                 `json:"store_size"`
	Matched    int                 `json:"matched"`
	StoreEmpty bool                `json:"store_empty"`
	LoadError  string              `json:"load_error,omitempty"`
	Criteria   view.FilterCriteria `json:"criteria"`
	Sort       view.SortState      `json:"sort"`
}

// NewProjectionResponse renders p.
func NewProjectionResponse(p workspace.Projection, cols domain.Columns) ProjectionResponse {
	rows := make([]TicketRow, 0, len(p.Tickets))
	for _, t := range p.Tickets {
		rows = append(rows, NewTicketRow(t, cols))
	}
	return ProjectionResponse{
		Tickets:    rows,
		StoreSize:  p.StoreSize,
		Matched:    p.Matched,
		StoreEmpty: p.StoreEmpty,
		LoadError:  p.LoadError,
		Criteria:   p.Criteria,
		Sort:       p.Sort,
	}
}

// ViewRequest replaces the filter criteria.
type ViewRequest struct {
	Status  string `json:"status"`
	Urgency string `json:"urgency"`
	Search  string `json:"search"`
}

// SortRequest selects a sort column. Without Ascending the column toggles
// like a header click.
type SortRequest struct {
	Column    string `json:"column"`
	Ascending *bool  `json:"ascending,omitempty"`
}

// OpenSessionRequest opens an edit session.
type OpenSessionRequest struct {
	TicketID string `json:"ticket_id"`
}

// DraftRequest stages field values. Only present keys are applied.
type DraftRequest struct {
	Status      *string `json:"status,omitempty"`
	Assignee    *string `json:"assignee,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Changes lists the present fields in a stable order.
func (r DraftRequest) Changes() []DraftChange {
	var out []DraftChange
	if r.Status != nil {
		out = append(out, DraftChange{session.FieldStatus, *r.Status})
	}
	if r.Assignee != nil {
		out = append(out, DraftChange{session.FieldAssignee, *r.Assignee})
	}
	if r.Description != nil {
		out = append(out, DraftChange{session.FieldDescription, *r.Description})
	}
	return out
}

// DraftChange is one staged field.
type DraftChange struct {
	Field session.Field
	Value string
}

// SessionResponse describes the open edit session.
type SessionResponse struct {
	TicketID   string                `json:"ticket_id"`
	Ticket     TicketRow             `json:"ticket"`
	Original   session.Snapshot      `json:"original"`
	Draft      session.Snapshot      `json:"draft"`
	Dirty      bool                  `json:"dirty"`
	Committing bool                  `json:"committing"`
	Statuses   []domain.TicketStatus `json:"statuses"`
}

// NewSessionResponse renders s.
func NewSessionResponse(s session.State, cols domain.Columns) SessionResponse {
	return SessionResponse{
		TicketID:   s.TicketID,
		Ticket:     NewTicketRow(s.Ticket, cols),
		Original:   s.Original,
		Draft:      s.Draft,
		Dirty:      s.Dirty,
		Committing: s.Committing,
		Statuses:   domain.Statuses,
	}
}

// CommitResponse reports a save.
type CommitResponse struct {
	Saved     bool             `json:"saved"`
	TicketID  string           `json:"ticket_id,omitempty"`
	Changed   []string         `json:"changed"`
	Message   string           `json:"message"`
	Reminders []string         `json:"reminders"`
	Reloaded  bool             `json:"reloaded"`
	Draft     session.Snapshot `json:"draft"`
}

// NewCommitResponse renders r.
func NewCommitResponse(r *service.CommitReport) CommitResponse {
	resp := CommitResponse{
		Saved:     r.Saved,
		TicketID:  r.TicketID,
		Changed:   r.ChangedKeys(),
		Message:   r.Message,
		Reminders: r.Reminders,
		Reloaded:  r.Reconciled == reconcile.OutcomeReloaded,
		Draft:     r.After,
	}
	if resp.Reminders == nil {
		resp.Reminders = []string{}
	}
	return resp
}
