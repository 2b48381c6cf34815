package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/outletops/maintenance-tickets/internal/config"
	"github.com/outletops/maintenance-tickets/internal/events"
	"github.com/outletops/maintenance-tickets/internal/observability"
)

type webhookCall struct {
	auth  string
	event events.Event
}

func newWebhookReceiver(t *testing.T, status int) (*httptest.Server, func() []webhookCall) {
	t.Helper()
	var mu sync.Mutex
	var calls []webhookCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event events.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			t.Errorf("decode webhook body: %v", err)
		}
		mu.Lock()
		calls = append(calls, webhookCall{auth: r.Header.Get("Authorization"), event: event})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []webhookCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]webhookCall(nil), calls...)
	}
}

func TestWebhookReceivesEveryLifecycleEvent(t *testing.T) {
	srv, calls := newWebhookReceiver(t, http.StatusNoContent)
	dispatcher := events.NewInMemoryDispatcher()
	notifications := NewNotificationService(dispatcher, nil, observability.NewMetrics(), config.NotificationConfig{
		WebhookURL:   srv.URL,
		WebhookToken: "hook-secret",
	})
	notifications.RegisterHandlers()

	for _, eventType := range events.AllTicketEvents {
		if err := dispatcher.Publish(context.Background(), events.Event{Type: eventType, TicketID: "t-1", Outlet: "Riyadh"}); err != nil {
			t.Fatalf("publish %s: %v", eventType, err)
		}
	}
	notifications.Wait()

	got := calls()
	if len(got) != len(events.AllTicketEvents) {
		t.Fatalf("webhook calls %d want %d", len(got), len(events.AllTicketEvents))
	}
	seen := map[events.EventType]bool{}
	for _, call := range got {
		if call.auth != "Bearer hook-secret" {
			t.Fatalf("authorization %q", call.auth)
		}
		if call.event.TicketID != "t-1" || call.event.Outlet != "Riyadh" {
			t.Fatalf("event body %+v", call.event)
		}
		seen[call.event.Type] = true
	}
	for _, eventType := range events.AllTicketEvents {
		if !seen[eventType] {
			t.Fatalf("%s not delivered", eventType)
		}
	}
}

func TestWebhookFailureDoesNotFailPublish(t *testing.T) {
	srv, calls := newWebhookReceiver(t, http.StatusInternalServerError)
	dispatcher := events.NewInMemoryDispatcher()
	notifications := NewNotificationService(dispatcher, nil, nil, config.NotificationConfig{
		WebhookURL:     srv.URL,
		WebhookTimeout: time.Second,
	})
	notifications.RegisterHandlers()

	if err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated, TicketID: "t-2"}); err != nil {
		t.Fatalf("publish returned webhook error: %v", err)
	}
	notifications.Wait()
	if len(calls()) != 1 {
		t.Fatalf("webhook not attempted")
	}
}

func TestWebhookDisabledWithoutURL(t *testing.T) {
	_, calls := newWebhookReceiver(t, http.StatusOK)
	dispatcher := events.NewInMemoryDispatcher()
	notifications := NewNotificationService(dispatcher, nil, nil, config.NotificationConfig{})
	notifications.RegisterHandlers()

	if err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketDeleted, TicketID: "t-3"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	notifications.Wait()
	if len(calls()) != 0 {
		t.Fatalf("webhook called without a configured url")
	}
}
