// Package workspace composes one operator's working copy of the ticket list:
// the store, the projection state, the edit session and reconciliation.
package workspace

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/observability"
	"github.com/deskops/ticket-desk/internal/reconcile"
	"github.com/deskops/ticket-desk/internal/session"
	"github.com/deskops/ticket-desk/internal/store"
	"github.com/deskops/ticket-desk/internal/view"
)

// Backend is the record gateway surface a workspace reads and writes through.
type Backend interface {
	ListTickets(ctx context.Context) ([]domain.Ticket, error)
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, id string, patch domain.FieldMap) (*domain.Ticket, error)
}

// Options tune a workspace. Zero values are usable.
type Options struct {
	Columns        domain.Columns
	SearchDebounce time.Duration
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// Projection is what a renderer shows: the filtered and sorted tickets plus
// enough context to tell "no tickets" from "nothing matches" from "could not
// load".
type Projection struct {
	Tickets    []domain.Ticket     `json:"tickets"`
	StoreSize  int                 `json:"store_size"`
	Matched    int                 `json:"matched"`
	StoreEmpty bool                `json:"store_empty"`
	LoadError  string              `json:"load_error,omitempty"`
	Criteria   view.FilterCriteria `json:"criteria"`
	Sort       view.SortState      `json:"sort"`
}

// CommitOutcome is the result of Workspace.Commit.
type CommitOutcome struct {
	Saved      bool
	TicketID   string
	Patch      domain.FieldMap
	Before     session.Snapshot
	After      session.Snapshot
	Ticket     *domain.Ticket
	Reconciled reconcile.Outcome
}

// ChangedKeys lists the patched column names in a stable order.
func (o CommitOutcome) ChangedKeys() []string {
	keys := make([]string, 0, len(o.Patch))
	for k := range o.Patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Listener receives a projection after each change.
type Listener func(Projection)

// Workspace is safe for concurrent use. Gateway calls never run under its
// lock.
type Workspace struct {
	backend    Backend
	store      *store.Store
	engine     view.Engine
	sessions   *session.Manager
	reconciler *reconcile.Reconciler
	debounce   *Debouncer
	logger     *zap.Logger
	metrics    *observability.Metrics

	mu           sync.Mutex
	criteria     view.FilterCriteria
	sort         view.SortState
	loadErr      error
	listeners    map[int]Listener
	nextListener int
}

// New returns an empty workspace. Call Reload to fill it.
func New(backend Backend, opts Options) *Workspace {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cols := opts.Columns.WithDefaults()
	s := store.New()
	return &Workspace{
		backend:    backend,
		store:      s,
		engine:     view.NewEngine(cols),
		sessions:   session.NewManager(backend, cols),
		reconciler: reconcile.New(s, backend, logger, opts.Metrics),
		debounce:   NewDebouncer(opts.SearchDebounce),
		logger:     logger,
		metrics:    opts.Metrics,
		criteria:   view.DefaultCriteria(),
		sort:       view.DefaultSort(),
		listeners:  make(map[int]Listener),
	}
}

// Columns returns the column mapping used for reads and writes.
func (w *Workspace) Columns() domain.Columns {
	return w.engine.Columns()
}

// Reload replaces the store with the backend's list. On failure the store is
// emptied and the projection carries the load error.
func (w *Workspace) Reload(ctx context.Context) (Projection, error) {
	tickets, err := w.backend.ListTickets(ctx)
	if err != nil {
		w.store.Load(nil)
		w.metrics.Inc(observability.EventReloadFailed)
		w.logger.Warn("could not load tickets", zap.Error(err))
	} else {
		w.store.Load(tickets)
	}

	w.mu.Lock()
	w.loadErr = err
	w.mu.Unlock()

	p := w.Projection()
	w.notify(p)
	return p, domain.FetchFailed(err)
}

// Projection computes the current view.
func (w *Workspace) Projection() Projection {
	w.mu.Lock()
	criteria, state, loadErr := w.criteria, w.sort, w.loadErr
	w.mu.Unlock()

	all := w.store.Snapshot()
	tickets := w.engine.Project(all, criteria, state)
	p := Projection{
		Tickets:    tickets,
		StoreSize:  len(all),
		Matched:    len(tickets),
		StoreEmpty: len(all) == 0,
		Criteria:   criteria,
		Sort:       state,
	}
	if loadErr != nil {
		p.LoadError = loadErr.Error()
	}
	return p
}

// SetCriteria replaces the filter. Listeners are notified immediately unless
// only the search term changed, in which case the notification is debounced.
func (w *Workspace) SetCriteria(c view.FilterCriteria) Projection {
	w.mu.Lock()
	prev := w.criteria
	w.criteria = c
	w.mu.Unlock()

	p := w.Projection()
	if prev.Status == c.Status && prev.Urgency == c.Urgency && prev.SearchTerm != c.SearchTerm {
		w.debounce.Trigger(func() { w.notify(w.Projection()) })
		return p
	}
	w.notify(p)
	return p
}

// ToggleSort selects column, flipping direction when it is already selected.
func (w *Workspace) ToggleSort(column view.Column) Projection {
	w.mu.Lock()
	w.sort = w.sort.Toggle(column)
	w.mu.Unlock()
	return w.changed()
}

// SetSort replaces the sort state.
func (w *Workspace) SetSort(state view.SortState) Projection {
	w.mu.Lock()
	w.sort = state
	w.mu.Unlock()
	return w.changed()
}

func (w *Workspace) changed() Projection {
	p := w.Projection()
	w.notify(p)
	return p
}

// OpenTicket starts an edit session on id.
func (w *Workspace) OpenTicket(ctx context.Context, id string) (session.State, error) {
	return w.sessions.Open(ctx, id)
}

// Session returns the open session, if any.
func (w *Workspace) Session() (session.State, bool) {
	return w.sessions.Current()
}

// UpdateDraft stages one field on the open session.
func (w *Workspace) UpdateDraft(field session.Field, value string) (session.State, error) {
	return w.sessions.UpdateDraft(field, value)
}

// ResetDraft restores the open session's draft.
func (w *Workspace) ResetDraft() (session.State, error) {
	return w.sessions.Reset()
}

// CloseTicket discards the open session.
func (w *Workspace) CloseTicket() {
	w.sessions.Close()
}

// Commit saves the open session and merges the confirmed record into the
// store. Patched keys the response omits are merged as nil so cleared values
// do not linger. Listeners see the new projection right away.
func (w *Workspace) Commit(ctx context.Context) (CommitOutcome, error) {
	res, err := w.sessions.Commit(ctx)
	if err != nil {
		if res.Patch != nil {
			w.metrics.Inc(observability.EventCommitFailed)
			w.logger.Warn("commit failed", zap.String("ticket_id", res.TicketID), zap.Error(err))
		}
		return CommitOutcome{TicketID: res.TicketID, Patch: res.Patch, Before: res.Before}, err
	}
	if !res.Saved {
		return CommitOutcome{}, nil
	}
	w.metrics.Inc(observability.EventCommitSaved)

	fields := res.Ticket.Fields.Clone()
	for k := range res.Patch {
		if !fields.Has(k) {
			fields[k] = nil
		}
	}
	outcome, rerr := w.reconciler.Reconcile(ctx, res.TicketID, fields)
	if rerr != nil {
		w.mu.Lock()
		w.loadErr = rerr
		w.mu.Unlock()
	} else if outcome == reconcile.OutcomeReloaded {
		w.mu.Lock()
		w.loadErr = nil
		w.mu.Unlock()
	}
	w.changed()

	return CommitOutcome{
		Saved:      true,
		TicketID:   res.TicketID,
		Patch:      res.Patch,
		Before:     res.Before,
		After:      session.SnapshotOf(fields, w.Columns()),
		Ticket:     res.Ticket,
		Reconciled: outcome,
	}, nil
}

// Subscribe registers fn for projection changes and returns its cancel func.
func (w *Workspace) Subscribe(fn Listener) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextListener
	w.nextListener++
	w.listeners[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.listeners, id)
	}
}

func (w *Workspace) notify(p Projection) {
	w.mu.Lock()
	ids := make([]int, 0, len(w.listeners))
	for id := range w.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, w.listeners[id])
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}

// Close abandons the session, cancels pending notifications and drops
// every listener.
func (w *Workspace) Close() {
	w.sessions.Close()
	w.debounce.Stop()
	w.mu.Lock()
	w.listeners = make(map[int]Listener)
	w.mu.Unlock()
}
