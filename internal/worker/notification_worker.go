package worker

import (
	"github.com/outletops/maintenance-tickets/internal/events"
	"github.com/outletops/maintenance-tickets/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartChangeFeed forwards every ticket event to the live feed.
func StartChangeFeed(dispatcher events.Dispatcher, handler events.EventHandler) {
	if dispatcher == nil || handler == nil {
		return
	}
	events.SubscribeAll(dispatcher, handler)
}
