// Package reconcile merges server-confirmed updates back into the store.
package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/observability"
	"github.com/deskops/ticket-desk/internal/store"
)

// Outcome reports which path a reconciliation took.
type Outcome string

const (
	OutcomePatched  Outcome = "patched"
	OutcomeReloaded Outcome = "reloaded"
)

// Lister is the part of the gateway used for the divergence reload.
type Lister interface {
	ListTickets(ctx context.Context) ([]domain.Ticket, error)
}

// Reconciler applies confirmed updates to one store.
type Reconciler struct {
	store   *store.Store
	lister  Lister
	logger  *zap.Logger
	metrics *observability.Metrics
}

// New returns a reconciler over s. logger and metrics may be nil.
func New(s *store.Store, lister Lister, logger *zap.Logger, metrics *observability.Metrics) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: s, lister: lister, logger: logger, metrics: metrics}
}

// Reconcile merges serverFields into the stored ticket. When the store no
// longer holds ticketID it reloads the full list, the only path that does.
// A failed reload leaves the store empty and returns ErrFetchFailed.
func (r *Reconciler) Reconcile(ctx context.Context, ticketID string, serverFields domain.FieldMap) (Outcome, error) {
	if r.store.ApplyPatch(ticketID, serverFields) {
		r.metrics.Inc(observability.EventReconcilePatched)
		return OutcomePatched, nil
	}

	r.logger.Warn("store diverged from backend, reloading", zap.String("ticket_id", ticketID))
	r.metrics.Inc(observability.EventReconcileReloaded)

	tickets, err := r.lister.ListTickets(ctx)
	if err != nil {
		r.store.Load(nil)
		r.metrics.Inc(observability.EventReloadFailed)
		return OutcomeReloaded, fmt.Errorf("reload after divergence: %w", domain.FetchFailed(err))
	}
	r.store.Load(tickets)
	return OutcomeReloaded, nil
}
