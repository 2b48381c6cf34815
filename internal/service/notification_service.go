package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/outletops/maintenance-tickets/internal/config"
	"github.com/outletops/maintenance-tickets/internal/events"
	"github.com/outletops/maintenance-tickets/internal/observability"
)

const defaultWebhookTimeout = 5 * time.Second

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.NotificationConfig
	client     *http.Client
	inflight   sync.WaitGroup
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WebhookTimeout <= 0 {
		cfg.WebhookTimeout = defaultWebhookTimeout
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.WebhookTimeout},
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketOutletConfirmed, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.handleTicketDeleted)
}

// Wait blocks until queued webhook deliveries have finished.
func (n *NotificationService) Wait() {
	n.inflight.Wait()
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.metrics.RecordTicketEvent(string(event.Type))
	n.logger.Info("TicketCreated",
		zap.String("ticket_id", event.TicketID),
		zap.String("outlet", event.Outlet),
		zap.Any("payload", event.Payload))
	n.notifyWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.metrics.RecordTicketEvent(string(event.Type))
	n.logger.Info("TicketStatusChanged",
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)),
		zap.String("actor_role", string(event.Actor.Role)),
		zap.Any("payload", event.Payload))
	n.notifyWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketDeleted(ctx context.Context, event events.Event) error {
	n.metrics.RecordTicketEvent(string(event.Type))
	n.logger.Info("TicketDeleted", zap.String("ticket_id", event.TicketID), zap.String("outlet", event.Outlet))
	n.notifyWebhook(ctx, event)
	return nil
}

// notifyWebhook posts the event in the background so a slow receiver never
// holds up the write that produced it.
func (n *NotificationService) notifyWebhook(ctx context.Context, event events.Event) {
	if n.cfg.WebhookURL == "" {
		return
	}
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.cfg.WebhookTimeout)
		defer cancel()
		if err := n.postWebhook(sendCtx, event); err != nil {
			n.logger.Warn("webhook delivery failed",
				zap.String("url", n.cfg.WebhookURL),
				zap.String("ticket_id", event.TicketID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
	}()
}

func (n *NotificationService) postWebhook(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.WebhookToken != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.WebhookToken)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
