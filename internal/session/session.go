// Package session stages edits to one ticket until they are committed.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/deskops/ticket-desk/internal/domain"
)

// Field names an editable ticket attribute.
type Field string

const (
	FieldStatus      Field = "status"
	FieldAssignee    Field = "assignee"
	FieldDescription Field = "description"
)

// ParseField validates an editable field name.
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldStatus, FieldAssignee, FieldDescription:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown field %q", domain.ErrInvalidDraft, s)
}

// Snapshot holds the editable fields of a ticket.
type Snapshot struct {
	Status      string `json:"status"`
	Assignee    string `json:"assignee"`
	Description string `json:"description"`
}

// SnapshotOf reads the editable fields through the normalization accessor.
func SnapshotOf(fields domain.FieldMap, cols domain.Columns) Snapshot {
	return Snapshot{
		Status:      fields.Text(cols.Status),
		Assignee:    fields.Text(cols.Assignee),
		Description: fields.Text(cols.Description),
	}
}

func (s Snapshot) get(f Field) string {
	switch f {
	case FieldStatus:
		return s.Status
	case FieldAssignee:
		return s.Assignee
	default:
		return s.Description
	}
}

func (s *Snapshot) set(f Field, v string) {
	switch f {
	case FieldStatus:
		s.Status = v
	case FieldAssignee:
		s.Assignee = v
	default:
		s.Description = v
	}
}

var trackedFields = []Field{FieldStatus, FieldAssignee, FieldDescription}

// FetchFunc loads the authoritative ticket for id.
type FetchFunc func(ctx context.Context, id string) (*domain.Ticket, error)

// UpdateFunc writes patch to the ticket with id and returns the updated record.
type UpdateFunc func(ctx context.Context, id string, patch domain.FieldMap) (*domain.Ticket, error)

// CommitResult describes the outcome of a Commit.
type CommitResult struct {
	Saved    bool
	TicketID string
	Patch    domain.FieldMap
	Before   Snapshot
	Ticket   *domain.Ticket
}

// EditSession is the staging area for one ticket. It is not safe for
// concurrent use; Manager serializes access.
type EditSession struct {
	cols       domain.Columns
	ticket     domain.Ticket
	original   Snapshot
	draft      Snapshot
	committing bool
}

// Open fetches the ticket and captures its editable fields. A missing
// record, or one without fields, is ErrNotFound.
func Open(ctx context.Context, ticketID string, fetch FetchFunc, cols domain.Columns) (*EditSession, error) {
	t, err := fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return newSession(ticketID, t, cols.WithDefaults())
}

func newSession(ticketID string, t *domain.Ticket, cols domain.Columns) (*EditSession, error) {
	if t == nil || t.Fields == nil {
		return nil, fmt.Errorf("ticket %s: %w", ticketID, domain.ErrNotFound)
	}
	ticket := t.Clone()
	if ticket.ID == "" {
		ticket.ID = ticketID
	}
	snap := SnapshotOf(t.Fields, cols)
	return &EditSession{
		cols:     cols,
		ticket:   ticket,
		original: snap,
		draft:    snap,
	}, nil
}

// TicketID returns the id of the ticket under edit.
func (s *EditSession) TicketID() string { return s.ticket.ID }

// Ticket returns a copy of the record as last confirmed by the backend.
func (s *EditSession) Ticket() domain.Ticket { return s.ticket.Clone() }

// Original returns the snapshot drafts are compared against.
func (s *EditSession) Original() Snapshot { return s.original }

// Draft returns the staged values.
func (s *EditSession) Draft() Snapshot { return s.draft }

// Committing reports whether a commit is in flight.
func (s *EditSession) Committing() bool { return s.committing }

// Dirty reports whether any tracked field differs from the original.
func (s *EditSession) Dirty() bool {
	return len(s.changed()) > 0
}

func (s *EditSession) changed() []Field {
	var out []Field
	for _, f := range trackedFields {
		if s.draft.get(f) != s.original.get(f) {
			out = append(out, f)
		}
	}
	return out
}

// UpdateDraft stages value for field. Status must be a known status or the
// original value; assignee and description are trimmed.
func (s *EditSession) UpdateDraft(field Field, value string) error {
	if s.committing {
		return domain.ErrCommitInFlight
	}
	switch field {
	case FieldStatus:
		if value != s.original.Status {
			st, ok := domain.ParseStatus(value)
			if !ok {
				return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidDraft, value)
			}
			value = string(st)
		}
	case FieldAssignee, FieldDescription:
		value = strings.TrimSpace(value)
	default:
		return fmt.Errorf("%w: unknown field %q", domain.ErrInvalidDraft, field)
	}
	s.draft.set(field, value)
	return nil
}

// Reset discards staged values.
func (s *EditSession) Reset() error {
	if s.committing {
		return domain.ErrCommitInFlight
	}
	s.draft = s.original
	return nil
}

// Patch builds the minimal write: only fields whose draft differs from the
// original. A cleared assignee is written as null.
func (s *EditSession) Patch() domain.FieldMap {
	patch := domain.FieldMap{}
	for _, f := range s.changed() {
		v := s.draft.get(f)
		switch f {
		case FieldStatus:
			patch[s.cols.Status] = v
		case FieldAssignee:
			if v == "" {
				patch[s.cols.Assignee] = nil
			} else {
				patch[s.cols.Assignee] = v
			}
		case FieldDescription:
			patch[s.cols.Description] = v
		}
	}
	return patch
}

// Commit writes the minimal patch through update. A clean session returns
// an unsaved result without calling update.
func (s *EditSession) Commit(ctx context.Context, update UpdateFunc) (CommitResult, error) {
	patch, err := s.beginCommit()
	if err != nil || patch == nil {
		return CommitResult{}, err
	}
	id, before := s.ticket.ID, s.original
	t, err := update(ctx, id, patch)
	if err := s.finishCommit(t, err); err != nil {
		return CommitResult{TicketID: id, Patch: patch, Before: before}, err
	}
	return CommitResult{Saved: true, TicketID: id, Patch: patch, Before: before, Ticket: t}, nil
}

// beginCommit marks the session committing and returns the patch to send.
// A nil patch means there is nothing to save.
func (s *EditSession) beginCommit() (domain.FieldMap, error) {
	if s.committing {
		return nil, domain.ErrCommitInFlight
	}
	if !s.Dirty() {
		return nil, nil
	}
	s.committing = true
	return s.Patch(), nil
}

// finishCommit clears the in-flight mark. On success the server response
// becomes both original and draft; on failure the draft is kept for retry.
func (s *EditSession) finishCommit(t *domain.Ticket, err error) error {
	s.committing = false
	if err != nil {
		return fmt.Errorf("ticket %s: %w: %w", s.ticket.ID, domain.ErrUpdateFailed, err)
	}
	if t == nil || t.Fields == nil {
		return fmt.Errorf("ticket %s: %w: response has no fields", s.ticket.ID, domain.ErrUpdateFailed)
	}
	id := s.ticket.ID
	s.ticket = t.Clone()
	if s.ticket.ID == "" {
		s.ticket.ID = id
	}
	snap := SnapshotOf(t.Fields, s.cols)
	s.original = snap
	s.draft = snap
	return nil
}
