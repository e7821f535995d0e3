package workspace

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/observability"
	"github.com/deskops/ticket-desk/internal/reconcile"
	"github.com/deskops/ticket-desk/internal/session"
	"github.com/deskops/ticket-desk/internal/testutil"
	"github.com/deskops/ticket-desk/internal/view"
)

var cols = domain.DefaultColumns()

func seeded() *testutil.MockGateway {
	return testutil.NewMockGateway(
		domain.Ticket{ID: "r1", Fields: domain.FieldMap{cols.Status: "New", cols.Title: "Printer", cols.DateSubmitted: "2023-01-20"}},
		domain.Ticket{ID: "r2", Fields: domain.FieldMap{cols.Status: "Closed", cols.Title: "VPN", cols.DateSubmitted: "2023-01-10", cols.Assignee: "hugo"}},
		domain.Ticket{ID: "r3", Fields: domain.FieldMap{cols.Status: "New", cols.Title: "Laptop", cols.DateSubmitted: "2023-01-15", cols.Urgency: "Urgent"}},
	)
}

func ids(tickets []domain.Ticket) []string {
	out := make([]string, len(tickets))
	for i, t := range tickets {
		out[i] = t.ID
	}
	return out
}

func loaded(t *testing.T, gw *testutil.MockGateway) *Workspace {
	t.Helper()
	w := New(gw, Options{Metrics: observability.NewMetrics()})
	_, err := w.Reload(context.Background())
	require.NoError(t, err)
	return w
}

func TestReload_FetchFailedLeavesEmptyStore(t *testing.T) {
	gw := seeded()
	w := loaded(t, gw)
	require.Equal(t, 3, w.Projection().StoreSize)

	gw.ListErr = fmt.Errorf("%w: payload is not an array", domain.ErrFetchFailed)
	p, err := w.Reload(context.Background())
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.True(t, p.StoreEmpty)
	assert.Empty(t, p.Tickets)
	assert.NotEmpty(t, p.LoadError)

	gw.ListErr = nil
	p, err = w.Reload(context.Background())
	require.NoError(t, err)
	assert.Empty(t, p.LoadError)
	assert.Equal(t, 3, p.Matched)
}

func TestProjection_FilterAndSort(t *testing.T) {
	w := loaded(t, seeded())

	p := w.SetCriteria(view.FilterCriteria{Status: "New", Urgency: domain.All})
	assert.Empty(t, cmp.Diff([]string{"r1", "r3"}, ids(p.Tickets)))
	assert.Equal(t, 3, p.StoreSize)
	assert.False(t, p.StoreEmpty)

	p = w.ToggleSort(view.ColumnCreatedAt)
	assert.Empty(t, cmp.Diff([]string{"r3", "r1"}, ids(p.Tickets)))

	p = w.ToggleSort(view.ColumnCreatedAt)
	assert.Empty(t, cmp.Diff([]string{"r1", "r3"}, ids(p.Tickets)))
	assert.False(t, p.Sort.Ascending)

	p = w.SetCriteria(view.FilterCriteria{Status: "Pending", Urgency: domain.All})
	assert.Zero(t, p.Matched)
	assert.False(t, p.StoreEmpty, "no match is not an empty store")
}

func TestCommit_ReconcilesWithoutRefetch(t *testing.T) {
	gw := seeded()
	w := loaded(t, gw)

	_, err := w.OpenTicket(context.Background(), "r1")
	require.NoError(t, err)
	_, err = w.UpdateDraft(session.FieldStatus, "Resolved")
	require.NoError(t, err)

	out, err := w.Commit(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Saved)
	assert.Equal(t, reconcile.OutcomePatched, out.Reconciled)
	assert.Equal(t, "New", out.Before.Status)
	assert.Equal(t, "Resolved", out.After.Status)
	assert.Equal(t, []string{cols.Status}, out.ChangedKeys())

	list, _, _ := gw.Calls()
	assert.Equal(t, 1, list, "only the initial load lists tickets")

	p := w.SetCriteria(view.FilterCriteria{Status: "Resolved", Urgency: domain.All})
	assert.Equal(t, []string{"r1"}, ids(p.Tickets))
}

func TestCommit_ClearedAssigneeDoesNotLinger(t *testing.T) {
	gw := seeded()
	w := loaded(t, gw)

	_, err := w.OpenTicket(context.Background(), "r2")
	require.NoError(t, err)
	_, err = w.UpdateDraft(session.FieldAssignee, "")
	require.NoError(t, err)

	out, err := w.Commit(context.Background())
	require.NoError(t, err)
	require.Contains(t, gw.LastPatch, cols.Assignee)
	assert.Nil(t, gw.LastPatch[cols.Assignee])
	assert.False(t, out.Ticket.Fields.Has(cols.Assignee), "backend omits the cleared field")

	p := w.Projection()
	for _, tk := range p.Tickets {
		if tk.ID == "r2" {
			assert.Empty(t, tk.Fields.Text(cols.Assignee))
		}
	}
}

func TestCommit_DivergenceReloads(t *testing.T) {
	gw := seeded()
	w := loaded(t, gw)

	_, err := w.OpenTicket(context.Background(), "r3")
	require.NoError(t, err)
	_, err = w.UpdateDraft(session.FieldDescription, "battery swollen")
	require.NoError(t, err)

	// the store lost r3 behind the session's back
	w.store.Load(w.store.Snapshot()[:2])

	out, err := w.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeReloaded, out.Reconciled)
	assert.Equal(t, 3, w.Projection().StoreSize)
	list, _, _ := gw.Calls()
	assert.Equal(t, 2, list)
}

func TestCommit_FailureKeepsStoreAndDraft(t *testing.T) {
	gw := seeded()
	w := loaded(t, gw)
	_, err := w.OpenTicket(context.Background(), "r1")
	require.NoError(t, err)
	_, err = w.UpdateDraft(session.FieldStatus, "Closed")
	require.NoError(t, err)

	gw.UpdateErr = fmt.Errorf("status 422")
	_, err = w.Commit(context.Background())
	assert.ErrorIs(t, err, domain.ErrUpdateFailed)

	st, ok := w.Session()
	require.True(t, ok)
	assert.True(t, st.Dirty)
	assert.Equal(t, "Closed", st.Draft.Status)

	p := w.SetCriteria(view.FilterCriteria{Status: "New", Urgency: domain.All})
	assert.Contains(t, ids(p.Tickets), "r1")
}

func TestCommit_ResponseWithoutFieldsKeepsStoreAndDraft(t *testing.T) {
	gw := seeded()
	w := loaded(t, gw)
	_, err := w.OpenTicket(context.Background(), "r1")
	require.NoError(t, err)
	_, err = w.UpdateDraft(session.FieldStatus, "Closed")
	require.NoError(t, err)

	gw.UpdateFunc = func(id string, _ domain.FieldMap) (*domain.Ticket, error) {
		return &domain.Ticket{ID: id}, nil
	}
	_, err = w.Commit(context.Background())
	assert.ErrorIs(t, err, domain.ErrUpdateFailed)

	st, ok := w.Session()
	require.True(t, ok)
	assert.Equal(t, "Closed", st.Draft.Status)

	p := w.SetCriteria(view.FilterCriteria{Status: "New", Urgency: domain.All})
	assert.Contains(t, ids(p.Tickets), "r1")
}

func TestCommit_NothingToSave(t *testing.T) {
	gw := seeded()
	w := loaded(t, gw)
	_, err := w.OpenTicket(context.Background(), "r1")
	require.NoError(t, err)

	out, err := w.Commit(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Saved)
	assert.Zero(t, gw.UpdateCalls)
}

func TestSubscribe_ImmediateAndCancel(t *testing.T) {
	w := loaded(t, seeded())

	var got []int
	cancel := w.Subscribe(func(p Projection) { got = append(got, p.Matched) })
	w.SetCriteria(view.FilterCriteria{Status: "Closed", Urgency: domain.All})
	w.ToggleSort(view.ColumnTitle)
	cancel()
	w.ToggleSort(view.ColumnTitle)

	assert.Equal(t, []int{1, 1}, got)
}

func TestSubscribe_SearchIsDebounced(t *testing.T) {
	gw := seeded()
	w := New(gw, Options{SearchDebounce: 20 * time.Millisecond})
	_, err := w.Reload(context.Background())
	require.NoError(t, err)

	var (
		mu  sync.Mutex
		got []string
	)
	w.Subscribe(func(p Projection) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, p.Criteria.SearchTerm)
	})

	for _, term := range []string{"l", "la", "lap"} {
		p := w.SetCriteria(view.FilterCriteria{Status: domain.All, Urgency: domain.All, SearchTerm: term})
		assert.Equal(t, term, p.Criteria.SearchTerm, "the caller always gets the fresh projection")
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"lap"}, got)
	mu.Unlock()
}

func TestClose_DropsSessionAndListeners(t *testing.T) {
	w := loaded(t, seeded())
	_, err := w.OpenTicket(context.Background(), "r1")
	require.NoError(t, err)

	called := false
	w.Subscribe(func(Projection) { called = true })
	w.Close()
	w.ToggleSort(view.ColumnStatus)

	_, ok := w.Session()
	assert.False(t, ok)
	assert.False(t, called)
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(time.Hour)
	d.Trigger(func() { t.Fatal("must not run") })
	assert.True(t, d.Stop())
	assert.False(t, d.Stop())

	ran := false
	NewDebouncer(0).Trigger(func() { ran = true })
	assert.True(t, ran)
}
