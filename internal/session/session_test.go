package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/testutil"
)

var cols = domain.DefaultColumns()

func openOn(t *testing.T, gw *testutil.MockGateway, id string) *EditSession {
	t.Helper()
	s, err := Open(context.Background(), id, gw.GetTicket, cols)
	require.NoError(t, err)
	return s
}

func ticket(id, status, assignee, description string) domain.Ticket {
	f := domain.FieldMap{cols.Status: status, cols.Description: description}
	if assignee != "" {
		f[cols.Assignee] = assignee
	}
	return domain.Ticket{ID: id, Fields: f}
}

func TestOpen_CapturesSnapshot(t *testing.T) {
	gw := testutil.NewMockGateway(domain.Ticket{ID: "r1", Fields: domain.FieldMap{
		cols.Status:      map[string]any{"value": "Pending"},
		cols.Assignee:    "alice",
		cols.Description: "Toner",
	}})
	s := openOn(t, gw, "r1")

	assert.Equal(t, "r1", s.TicketID())
	assert.Equal(t, Snapshot{Status: "Pending", Assignee: "alice", Description: "Toner"}, s.Original())
	assert.Equal(t, s.Original(), s.Draft())
	assert.False(t, s.Dirty())
}

func TestOpen_NotFound(t *testing.T) {
	gw := testutil.NewMockGateway()
	_, err := Open(context.Background(), "missing", gw.GetTicket, cols)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpen_RecordWithoutFieldsIsNotFound(t *testing.T) {
	fetch := func(context.Context, string) (*domain.Ticket, error) {
		return &domain.Ticket{ID: "r1"}, nil
	}
	_, err := Open(context.Background(), "r1", fetch, cols)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpen_DefaultsMissingID(t *testing.T) {
	fetch := func(context.Context, string) (*domain.Ticket, error) {
		return &domain.Ticket{Fields: domain.FieldMap{cols.Status: "New"}}, nil
	}
	s, err := Open(context.Background(), "r9", fetch, cols)
	require.NoError(t, err)
	assert.Equal(t, "r9", s.TicketID())
}

func TestDirty_RevertingToOriginalIsClean(t *testing.T) {
	gw := testutil.NewMockGateway(ticket("r1", "New", "", ""))
	s := openOn(t, gw, "r1")

	require.NoError(t, s.UpdateDraft(FieldStatus, "Resolved"))
	assert.True(t, s.Dirty())

	require.NoError(t, s.UpdateDraft(FieldStatus, "New"))
	assert.False(t, s.Dirty())
}

func TestDirty_TracksEveryField(t *testing.T) {
	for _, f := range trackedFields {
		t.Run(string(f), func(t *testing.T) {
			gw := testutil.NewMockGateway(ticket("r1", "New", "bob", "old"))
			s := openOn(t, gw, "r1")
			value := "x"
			if f == FieldStatus {
				value = "Closed"
			}
			require.NoError(t, s.UpdateDraft(f, value))
			assert.True(t, s.Dirty())
			require.NoError(t, s.Reset())
			assert.False(t, s.Dirty())
		})
	}
}

func TestUpdateDraft_Validation(t *testing.T) {
	gw := testutil.NewMockGateway(ticket("r1", "Legacy", "", "text"))
	s := openOn(t, gw, "r1")

	err := s.UpdateDraft(FieldStatus, "Bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidDraft)

	require.NoError(t, s.UpdateDraft(FieldStatus, "in progress"))
	assert.Equal(t, "In Progress", s.Draft().Status)

	require.NoError(t, s.UpdateDraft(FieldStatus, "Legacy"), "the original value is always allowed")
	assert.False(t, s.Dirty())

	require.NoError(t, s.UpdateDraft(FieldAssignee, "  carol "))
	assert.Equal(t, "carol", s.Draft().Assignee)

	assert.ErrorIs(t, s.UpdateDraft(Field("title"), "x"), domain.ErrInvalidDraft)
}

func TestPatch_OnlyAssigneeChanged(t *testing.T) {
	gw := testutil.NewMockGateway(ticket("r1", "New", "", "printer jam"))
	s := openOn(t, gw, "r1")
	require.NoError(t, s.UpdateDraft(FieldAssignee, "dave"))

	res, err := s.Commit(context.Background(), gw.UpdateTicket)
	require.NoError(t, err)
	assert.True(t, res.Saved)
	assert.Equal(t, domain.FieldMap{cols.Assignee: "dave"}, gw.LastPatch)
	assert.NotContains(t, gw.LastPatch, cols.Status)
	assert.NotContains(t, gw.LastPatch, cols.Description)
}

func TestPatch_ClearedAssigneeIsNull(t *testing.T) {
	gw := testutil.NewMockGateway(ticket("r1", "New", "erin", ""))
	s := openOn(t, gw, "r1")
	require.NoError(t, s.UpdateDraft(FieldAssignee, ""))

	patch := s.Patch()
	require.Contains(t, patch, cols.Assignee)
	assert.Nil(t, patch[cols.Assignee])
}

func TestCommit_CleanSessionSkipsUpdate(t *testing.T) {
	gw := testutil.NewMockGateway(ticket("r1", "New", "", ""))
	s := openOn(t, gw, "r1")

	res, err := s.Commit(context.Background(), gw.UpdateTicket)
	require.NoError(t, err)
	assert.False(t, res.Saved)
	_, _, updates := gw.Calls()
	assert.Zero(t, updates)
}

func TestCommit_FailurePreservesDraft(t *testing.T) {
	gw := testutil.NewMockGateway(ticket("r1", "New", "", ""))
	s := openOn(t, gw, "r1")
	require.NoError(t, s.UpdateDraft(FieldStatus, "Resolved"))
	gw.UpdateErr = errors.New("422 unprocessable")

	res, err := s.Commit(context.Background(), gw.UpdateTicket)
	assert.ErrorIs(t, err, domain.ErrUpdateFailed)
	assert.False(t, res.Saved)
	assert.Equal(t, "Resolved", s.Draft().Status)
	assert.True(t, s.Dirty())
	assert.False(t, s.Committing())

	gw.UpdateErr = nil
	res, err = s.Commit(context.Background(), gw.UpdateTicket)
	require.NoError(t, err)
	assert.True(t, res.Saved)
	assert.False(t, s.Dirty())
}

func TestCommit_ResponseWithoutFieldsFails(t *testing.T) {
	gw := testutil.NewMockGateway(ticket("r1", "New", "", ""))
	gw.UpdateFunc = func(id string, _ domain.FieldMap) (*domain.Ticket, error) {
		return &domain.Ticket{ID: id}, nil
	}
	s := openOn(t, gw, "r1")
	require.NoError(t, s.UpdateDraft(FieldStatus, "Closed"))

	_, err := s.Commit(context.Background(), gw.UpdateTicket)
	assert.ErrorIs(t, err, domain.ErrUpdateFailed)
	assert.True(t, s.Dirty())
}

func TestCommit_TrustsServerResponse(t *testing.T) {
	gw := testutil.NewMockGateway(ticket("r1", "New", "", "old"))
	gw.UpdateFunc = func(id string, _ domain.FieldMap) (*domain.Ticket, error) {
		return &domain.Ticket{ID: id, Fields: domain.FieldMap{
			cols.Status:      map[string]any{"value": "Acknowledged"},
			cols.Description: "normalized by server",
		}}, nil
	}
	s := openOn(t, gw, "r1")
	require.NoError(t, s.UpdateDraft(FieldDescription, "new text"))

	res, err := s.Commit(context.Background(), gw.UpdateTicket)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{Description: "old", Status: "New"}, res.Before)

	want := Snapshot{Status: "Acknowledged", Description: "normalized by server"}
	assert.Equal(t, want, s.Original())
	assert.Equal(t, want, s.Draft())
	assert.False(t, s.Dirty())
}

func TestParseField(t *testing.T) {
	f, err := ParseField(" Status ")
	require.NoError(t, err)
	assert.Equal(t, FieldStatus, f)

	_, err = ParseField("urgency")
	assert.ErrorIs(t, err, domain.ErrInvalidDraft)
}
