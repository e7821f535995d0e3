package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/events"
	"github.com/deskops/ticket-desk/internal/gateway"
	apperrors "github.com/deskops/ticket-desk/pkg/util/errorutil"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// TicketSubmitInput is the support request form.
type TicketSubmitInput struct {
	Title          string
	Description    string
	Urgency        string
	RequesterEmail string
	Attachment     string
}

// TicketService handles ticket submission.
type TicketService struct {
	tickets    gateway.Gateway
	cols       domain.Columns
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(tickets gateway.Gateway, cols domain.Columns, dispatcher events.Dispatcher, logger *zap.Logger) *TicketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    tickets,
		cols:       cols.WithDefaults(),
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Validate checks the form and returns a field-keyed validation error.
func (in TicketSubmitInput) Validate() error {
	details := map[string]any{}
	if strings.TrimSpace(in.Title) == "" {
		details["title"] = "Request Title is required."
	}
	if strings.TrimSpace(in.Description) == "" {
		details["description"] = "Detailed Description is required."
	}
	if strings.TrimSpace(in.Urgency) == "" {
		details["urgency"] = "Urgency Level is required."
	} else if _, ok := domain.ParseUrgency(in.Urgency); !ok {
		details["urgency"] = "Unknown urgency level."
	}
	switch email := strings.TrimSpace(in.RequesterEmail); {
	case email == "":
		details["requester_email"] = "Email is required."
	case !emailPattern.MatchString(email):
		details["requester_email"] = "Please enter a valid email address."
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket", details)
	}
	return nil
}

// Submit validates the form and creates a ticket with status New.
func (s *TicketService) Submit(ctx context.Context, actor domain.Principal, in TicketSubmitInput) (*domain.Ticket, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	urgency, _ := domain.ParseUrgency(in.Urgency)

	fields := domain.FieldMap{
		s.cols.Title:          strings.TrimSpace(in.Title),
		s.cols.Description:    strings.TrimSpace(in.Description),
		s.cols.Urgency:        string(urgency),
		s.cols.RequesterEmail: strings.TrimSpace(in.RequesterEmail),
		s.cols.Status:         string(domain.TicketStatusNew),
		s.cols.DateSubmitted:  s.now().UTC().Format(time.RFC3339),
	}
	if ref := strings.TrimSpace(in.Attachment); ref != "" {
		fields[s.cols.Attachment] = ref
	}

	ticket, err := s.tickets.CreateTicket(ctx, fields)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ticket submitted", zap.String("ticket_id", ticket.ID), zap.String("urgency", string(urgency)))

	if s.dispatcher != nil {
		err := s.dispatcher.Publish(ctx, events.New(events.EventTicketSubmitted, ticket.ID, events.ActorFrom(actor), events.TicketSubmittedPayload{
			Title:          fields.Text(s.cols.Title),
			Urgency:        urgency,
			RequesterEmail: fields.Text(s.cols.RequesterEmail),
		}))
		if err != nil {
			s.logger.Warn("publish ticket submitted", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return ticket, nil
}
