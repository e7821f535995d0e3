package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/deskops/ticket-desk/internal/config"
	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/events"
	"github.com/deskops/ticket-desk/internal/observability"
)

func statusEvent(to domain.TicketStatus) events.Event {
	return events.New(events.EventTicketStatusChanged, "rec1", events.Actor{}, events.TicketStatusChangedPayload{
		OldStatus: domain.TicketStatusNew, NewStatus: to, RequesterEmail: "user@example.com",
	})
}

func TestReminder(t *testing.T) {
	tests := []struct {
		name string
		ev   events.Event
		want string
	}{
		{"acknowledged", statusEvent(domain.TicketStatusAcknowledged), "Status updated to Acknowledged. REMINDER: Manually notify the user."},
		{"in progress", statusEvent(domain.TicketStatusInProgress), "Status updated to In Progress. REMINDER: Manually notify the user."},
		{"resolved", statusEvent(domain.TicketStatusResolved), "Status updated to Resolved. REMINDER: Manually notify the user."},
		{"pending", statusEvent(domain.TicketStatusPending), ""},
		{"closed", statusEvent(domain.TicketStatusClosed), ""},
		{"assigned", events.New(events.EventTicketAssigned, "rec1", events.Actor{}, events.TicketAssignedPayload{Assignee: "ivy"}), "Ticket assigned to ivy. REMINDER: Manually notify the collaborator."},
		{"unassigned", events.New(events.EventTicketAssigned, "rec1", events.Actor{}, events.TicketAssignedPayload{OldAssignee: "ivy"}), ""},
		{"submitted", events.New(events.EventTicketSubmitted, "rec1", events.Actor{}, events.TicketSubmittedPayload{}), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Reminder(tt.ev)
			assert.Equal(t, tt.want != "", ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotificationService_PublishesToRedis(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	pub := &fakePublisher{enabled: true}
	metrics := observability.NewMetrics()
	svc := NewNotificationService(dispatcher, pub, nil, metrics, config.NotificationConfig{RedisChannel: "desk"})
	svc.RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), statusEvent(domain.TicketStatusResolved)))
	svc.Wait()
	require.Len(t, pub.messages, 1)
	assert.Equal(t, []string{"desk"}, pub.channels)
	note := pub.messages[0].(Notification)
	assert.True(t, note.Reminder)
	assert.Equal(t, AudienceRequester, note.Audience)
	assert.Equal(t, "user@example.com", note.Recipient)
	assert.EqualValues(t, 1, metrics.Count(observability.EventNotificationSent))
	assert.Zero(t, metrics.Count(observability.EventNotificationFailed))
}

func TestNotificationService_DisabledPublisher(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	pub := &fakePublisher{}
	metrics := observability.NewMetrics()
	svc := NewNotificationService(dispatcher, pub, nil, metrics, config.NotificationConfig{})
	svc.RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), statusEvent(domain.TicketStatusClosed)))
	svc.Wait()
	assert.Empty(t, pub.messages)
	assert.Zero(t, metrics.Count(observability.EventNotificationSent))
}

func TestNotificationService_DeliveryFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher(nil)
	metrics := observability.NewMetrics()
	boom := errors.New("redis down")
	svc := NewNotificationService(dispatcher, &fakePublisher{enabled: true, err: boom}, zap.New(core), metrics, config.NotificationConfig{})
	svc.RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), statusEvent(domain.TicketStatusResolved)))
	svc.Wait()

	assert.EqualValues(t, 1, metrics.Count(observability.EventNotificationFailed))
	assert.Zero(t, metrics.Count(observability.EventNotificationSent))
	entries := logs.FilterMessage("notification delivery failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "rec1", entries[0].ContextMap()["ticket_id"])
}

func TestNotificationService_SlowWebhookDoesNotBlockPublish(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	dispatcher := events.NewInMemoryDispatcher(nil)
	metrics := observability.NewMetrics()
	svc := NewNotificationService(dispatcher, nil, nil, metrics, config.NotificationConfig{WebhookURL: srv.URL})
	svc.RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), statusEvent(domain.TicketStatusResolved)))
	assert.Zero(t, metrics.Count(observability.EventNotificationSent))

	close(release)
	svc.Wait()
	assert.EqualValues(t, 1, metrics.Count(observability.EventNotificationSent))
}

func TestNotificationService_Webhook(t *testing.T) {
	var got Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	dispatcher := events.NewInMemoryDispatcher(nil)
	svc := NewNotificationService(dispatcher, nil, nil, nil, config.NotificationConfig{WebhookURL: srv.URL})
	svc.RegisterHandlers()

	ev := events.New(events.EventTicketAssigned, "rec9", events.Actor{}, events.TicketAssignedPayload{Assignee: "ivy"})
	require.NoError(t, dispatcher.Publish(context.Background(), ev))
	svc.Wait()
	assert.Equal(t, "rec9", got.TicketID)
	assert.Equal(t, AudienceCollaborator, got.Audience)
	assert.Equal(t, "ivy", got.Recipient)
}

func TestBuildNotification_Submitted(t *testing.T) {
	ev := events.New(events.EventTicketSubmitted, "rec1", events.Actor{}, events.TicketSubmittedPayload{
		Title: "Printer jam", Urgency: domain.TicketUrgencyUrgent, RequesterEmail: "user@example.com",
	})
	note := BuildNotification(ev)
	assert.Equal(t, AudienceOperators, note.Audience)
	assert.Equal(t, "New urgent ticket: Printer jam", note.Message)
	assert.False(t, note.Reminder)
}
