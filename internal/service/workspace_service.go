package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/events"
	"github.com/deskops/ticket-desk/internal/observability"
	"github.com/deskops/ticket-desk/internal/workspace"
)

// CommitReport is what an operator sees after saving an edit session.
type CommitReport struct {
	workspace.CommitOutcome
	Message   string
	Reminders []string
}

type workspaceEntry struct {
	ws       *workspace.Workspace
	owner    string
	ready    chan struct{}
	lastSeen time.Time
}

// WorkspaceService keeps one workspace per login, keyed by the token's
// workspace id.
type WorkspaceService struct {
	backend    workspace.Backend
	opts       workspace.Options
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*workspaceEntry
}

// NewWorkspaceService constructs the registry.
func NewWorkspaceService(backend workspace.Backend, opts workspace.Options, dispatcher events.Dispatcher) *WorkspaceService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
		opts.Logger = logger
	}
	return &WorkspaceService{
		backend:    backend,
		opts:       opts,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    opts.Metrics,
		now:        time.Now,
		entries:    make(map[string]*workspaceEntry),
	}
}

// Get returns the caller's workspace, creating and loading it on first use.
// A failed initial load still yields the workspace; its projection carries
// the load error.
func (s *WorkspaceService) Get(ctx context.Context, p domain.Principal) (*workspace.Workspace, error) {
	if p.WorkspaceID == "" {
		return nil, fmt.Errorf("%w: token has no workspace", domain.ErrForbiddenRole)
	}

	s.mu.Lock()
	entry, ok := s.entries[p.WorkspaceID]
	if ok {
		if entry.owner != p.UserID {
			s.mu.Unlock()
			return nil, domain.ErrForbiddenRole
		}
		entry.lastSeen = s.now()
		s.mu.Unlock()
		select {
		case <-entry.ready:
			return entry.ws, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	entry = &workspaceEntry{
		ws:       workspace.New(s.backend, s.opts),
		owner:    p.UserID,
		ready:    make(chan struct{}),
		lastSeen: s.now(),
	}
	s.entries[p.WorkspaceID] = entry
	s.mu.Unlock()

	s.logger.Info("workspace opened", zap.String("workspace_id", p.WorkspaceID), zap.String("email", p.Email))
	_, _ = entry.ws.Reload(ctx)
	close(entry.ready)
	return entry.ws, nil
}

// Commit saves the open edit session of the caller's workspace, publishes
// the resulting events and collects the operator reminders they produce.
func (s *WorkspaceService) Commit(ctx context.Context, p domain.Principal) (*CommitReport, error) {
	ws, err := s.Get(ctx, p)
	if err != nil {
		return nil, err
	}
	outcome, err := ws.Commit(ctx)
	if err != nil {
		return nil, err
	}
	report := &CommitReport{CommitOutcome: outcome}
	if !outcome.Saved {
		report.Message = "No valid changes to save."
		return report, nil
	}

	report.Message = "Successfully updated: " + strings.Join(outcome.ChangedKeys(), ", ")
	for _, ev := range s.commitEvents(p, ws.Columns(), outcome) {
		if s.dispatcher != nil {
			if err := s.dispatcher.Publish(ctx, ev); err != nil {
				s.logger.Warn("publish commit event", zap.String("ticket_id", ev.TicketID),
					zap.String("event_type", string(ev.Type)), zap.Error(err))
			}
		}
		if msg, ok := Reminder(ev); ok {
			report.Reminders = append(report.Reminders, msg)
		}
	}
	return report, nil
}

func (s *WorkspaceService) commitEvents(p domain.Principal, cols domain.Columns, o workspace.CommitOutcome) []events.Event {
	actor := events.ActorFrom(p)
	var out []events.Event
	if o.Patch.Has(cols.Status) {
		requester := ""
		if o.Ticket != nil {
			requester = o.Ticket.Fields.Text(cols.RequesterEmail)
		}
		out = append(out, events.New(events.EventTicketStatusChanged, o.TicketID, actor, events.TicketStatusChangedPayload{
			OldStatus:      domain.TicketStatus(o.Before.Status),
			NewStatus:      domain.TicketStatus(o.After.Status),
			RequesterEmail: requester,
		}))
	}
	if _, ok := o.Patch[cols.Assignee]; ok {
		out = append(out, events.New(events.EventTicketAssigned, o.TicketID, actor, events.TicketAssignedPayload{
			OldAssignee: o.Before.Assignee,
			Assignee:    o.After.Assignee,
		}))
	}
	return out
}

// Drop closes and forgets one workspace.
func (s *WorkspaceService) Drop(workspaceID string) bool {
	s.mu.Lock()
	entry, ok := s.entries[workspaceID]
	delete(s.entries, workspaceID)
	s.mu.Unlock()
	if ok {
		entry.ws.Close()
	}
	return ok
}

// Sweep evicts workspaces idle for longer than idle and returns how many were
// removed.
func (s *WorkspaceService) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	var stale []*workspaceEntry
	s.mu.Lock()
	for id, entry := range s.entries {
		if entry.lastSeen.Before(cutoff) {
			stale = append(stale, entry)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	for _, entry := range stale {
		entry.ws.Close()
		s.metrics.Inc(observability.EventWorkspaceEvicted)
	}
	if len(stale) > 0 {
		s.logger.Info("evicted idle workspaces", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Len reports the number of live workspaces.
func (s *WorkspaceService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// CloseAll closes every workspace.
func (s *WorkspaceService) CloseAll() {
	s.mu.Lock()
	entries := s.entries
	s.entries = make(map[string]*workspaceEntry)
	s.mu.Unlock()
	for _, entry := range entries {
		entry.ws.Close()
	}
}
