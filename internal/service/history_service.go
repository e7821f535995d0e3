package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/events"
	"github.com/deskops/ticket-desk/internal/repository"
)

// HistoryService records ticket events as an audit trail. Without a
// repository it records nothing and lists empty histories.
type HistoryService struct {
	dispatcher events.Dispatcher
	repo       repository.TicketHistoryRepository
	logger     *zap.Logger
}

// NewHistoryService creates the service. repo may be nil.
func NewHistoryService(dispatcher events.Dispatcher, repo repository.TicketHistoryRepository, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{dispatcher: dispatcher, repo: repo, logger: logger}
}

// Enabled reports whether history is persisted.
func (h *HistoryService) Enabled() bool {
	return h != nil && h.repo != nil
}

// RegisterHandlers subscribes to events.
func (h *HistoryService) RegisterHandlers() {
	if h.dispatcher == nil || !h.Enabled() {
		return
	}
	for _, t := range []events.EventType{
		events.EventTicketSubmitted,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
	} {
		h.dispatcher.Subscribe(t, h.record)
	}
}

func (h *HistoryService) record(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event.Type, err)
	}
	entry := &domain.TicketHistory{
		TicketID:   event.TicketID,
		EventID:    event.ID,
		ChangeType: string(event.Type),
		ActorEmail: event.Actor.Email,
		Payload:    payload,
	}
	if err := h.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("record history for %s: %w", event.TicketID, err)
	}
	return nil
}

// List returns the recorded history of ticketID, oldest first.
func (h *HistoryService) List(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	if !h.Enabled() {
		return []domain.TicketHistory{}, nil
	}
	return h.repo.ListByTicket(ctx, ticketID)
}
