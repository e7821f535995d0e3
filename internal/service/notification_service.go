package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deskops/ticket-desk/internal/config"
	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/events"
	"github.com/deskops/ticket-desk/internal/observability"
)

// Publisher fans notifications out to other processes.
type Publisher interface {
	Enabled() bool
	PublishJSON(ctx context.Context, channel string, v any) error
}

// Notification is the message emitted for an event.
type Notification struct {
	EventID   string           `json:"event_id"`
	Type      events.EventType `json:"type"`
	TicketID  string           `json:"ticket_id"`
	Audience  string           `json:"audience"`
	Recipient string           `json:"recipient,omitempty"`
	Message   string           `json:"message"`
	Reminder  bool             `json:"reminder"`
	Actor     events.Actor     `json:"actor"`
	Timestamp time.Time        `json:"timestamp"`
}

const (
	AudienceOperators    = "operators"
	AudienceRequester    = "requester"
	AudienceCollaborator = "collaborator"
)

// requesterNotifyStatuses are the statuses an operator must tell the requester about.
var requesterNotifyStatuses = map[domain.TicketStatus]bool{
	domain.TicketStatusAcknowledged: true,
	domain.TicketStatusInProgress:   true,
	domain.TicketStatusResolved:     true,
}

// Reminder returns the manual follow-up an operator owes for ev, if any.
func Reminder(ev events.Event) (string, bool) {
	switch p := ev.Payload.(type) {
	case events.TicketStatusChangedPayload:
		if requesterNotifyStatuses[p.NewStatus] {
			return fmt.Sprintf("Status updated to %s. REMINDER: Manually notify the user.", p.NewStatus), true
		}
	case events.TicketAssignedPayload:
		if p.Assignee != "" {
			return fmt.Sprintf("Ticket assigned to %s. REMINDER: Manually notify the collaborator.", p.Assignee), true
		}
	}
	return "", false
}

// BuildNotification renders ev as a notification.
func BuildNotification(ev events.Event) Notification {
	n := Notification{
		EventID:   ev.ID,
		Type:      ev.Type,
		TicketID:  ev.TicketID,
		Actor:     ev.Actor,
		Timestamp: ev.Timestamp,
	}
	if msg, ok := Reminder(ev); ok {
		n.Message, n.Reminder = msg, true
	}
	switch p := ev.Payload.(type) {
	case events.TicketSubmittedPayload:
		n.Audience = AudienceOperators
		n.Message = fmt.Sprintf("New %s ticket: %s", strings.ToLower(string(p.Urgency)), p.Title)
		n.Recipient = p.RequesterEmail
	case events.TicketStatusChangedPayload:
		n.Audience = AudienceRequester
		n.Recipient = p.RequesterEmail
		if !n.Reminder {
			n.Message = fmt.Sprintf("Status changed from %s to %s.", p.OldStatus, p.NewStatus)
		}
	case events.TicketAssignedPayload:
		n.Audience = AudienceCollaborator
		n.Recipient = p.Assignee
		if !n.Reminder {
			n.Message = "Ticket unassigned."
		}
	}
	return n
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  Publisher
	http       *http.Client
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.NotificationConfig

	inflight sync.WaitGroup
}

// NewNotificationService creates the service. publisher may be nil.
func NewNotificationService(dispatcher events.Dispatcher, publisher Publisher, logger *zap.Logger, metrics *observability.Metrics, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		http:       &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketSubmitted, n.handleTicketSubmitted)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
}

func (n *NotificationService) handleTicketSubmitted(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketSubmitted", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.logEmail(event)
	return n.deliver(ctx, BuildNotification(event))
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return n.deliver(ctx, BuildNotification(event))
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketAssigned", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return n.deliver(ctx, BuildNotification(event))
}

// deliver logs reminders inline and sends the outbound copies in the
// background. Failures are logged and counted, never returned.
func (n *NotificationService) deliver(ctx context.Context, note Notification) error {
	if note.Reminder {
		n.logger.Info("operator reminder", zap.String("ticket_id", note.TicketID), zap.String("message", note.Message))
	}
	if !n.hasOutbound() {
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		if err := n.send(ctx, note); err != nil {
			n.metrics.Inc(observability.EventNotificationFailed)
			n.logger.Warn("notification delivery failed",
				zap.String("ticket_id", note.TicketID),
				zap.String("event_type", string(note.Type)),
				zap.Error(err))
			return
		}
		n.metrics.Inc(observability.EventNotificationSent)
	}()
	return nil
}

// Wait blocks until background deliveries have finished.
func (n *NotificationService) Wait() {
	n.inflight.Wait()
}

func (n *NotificationService) hasOutbound() bool {
	return (n.publisher != nil && n.publisher.Enabled()) || strings.TrimSpace(n.cfg.WebhookURL) != ""
}

func (n *NotificationService) send(ctx context.Context, note Notification) error {
	var errs []error
	if n.publisher != nil && n.publisher.Enabled() {
		if err := n.publisher.PublishJSON(ctx, n.cfg.RedisChannel, note); err != nil {
			errs = append(errs, fmt.Errorf("publish notification: %w", err))
		}
	}
	if err := n.postWebhook(ctx, note); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// logEmail records the mail that would go out. The desk never sends mail
// itself; operators follow up manually.
func (n *NotificationService) logEmail(event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("email notification",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) postWebhook(ctx context.Context, note Notification) error {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return nil
	}
	body, err := json.Marshal(note)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("post webhook: status %d", resp.StatusCode)
	}
	return nil
}
