package worker

import (
	"context"
	"testing"

	"github.com/outletops/maintenance-tickets/internal/config"
	"github.com/outletops/maintenance-tickets/internal/events"
	"github.com/outletops/maintenance-tickets/internal/observability"
	"github.com/outletops/maintenance-tickets/internal/service"
)

func TestWorkersReceiveEveryLifecycleEvent(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	StartNotificationWorker(service.NewNotificationService(dispatcher, nil, metrics, config.NotificationConfig{}))

	forwarded := 0
	StartChangeFeed(dispatcher, func(context.Context, events.Event) error {
		forwarded++
		return nil
	})

	for _, eventType := range events.AllTicketEvents {
		if err := dispatcher.Publish(context.Background(), events.Event{Type: eventType, TicketID: "t-1"}); err != nil {
			t.Fatalf("publish %s: %v", eventType, err)
		}
	}

	if forwarded != len(events.AllTicketEvents) {
		t.Fatalf("forwarded %d events", forwarded)
	}
	counts := metrics.Snapshot().TicketEvents
	for _, eventType := range events.AllTicketEvents {
		if counts[string(eventType)] != 1 {
			t.Fatalf("event %s counted %d times", eventType, counts[string(eventType)])
		}
	}
}
