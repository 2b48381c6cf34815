package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/outletops/maintenance-tickets/internal/events"
)

// ChangeNotice is published on the change channel after every ticket write.
type ChangeNotice struct {
	EventID  string           `json:"event_id"`
	Type     events.EventType `json:"type"`
	TicketID string           `json:"ticket_id"`
	Outlet   string           `json:"outlet"`
	At       time.Time        `json:"at"`
}

// RedisFeed fans ticket changes out to every instance through Redis pub/sub
// and refreshes the local hub when a notice arrives.
type RedisFeed struct {
	client         *redis.Client
	channel        string
	hub            *Hub
	refreshTimeout time.Duration
	logger         *zap.Logger
}

// NewRedisFeed builds a feed. A nil client makes the feed local only.
func NewRedisFeed(client *redis.Client, channel string, hub *Hub, refreshTimeout time.Duration, logger *zap.Logger) *RedisFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	if refreshTimeout <= 0 {
		refreshTimeout = 5 * time.Second
	}
	return &RedisFeed{client: client, channel: channel, hub: hub, refreshTimeout: refreshTimeout, logger: logger}
}

// HandleEvent is an events.EventHandler that announces the change.
func (f *RedisFeed) HandleEvent(ctx context.Context, event events.Event) error {
	notice := ChangeNotice{
		EventID:  event.ID,
		Type:     event.Type,
		TicketID: event.TicketID,
		Outlet:   event.Outlet,
		At:       event.Timestamp,
	}
	if f.client == nil {
		f.refresh(ctx)
		return nil
	}
	payload, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		f.logger.Warn("change publish failed, refreshing locally", zap.String("channel", f.channel), zap.Error(err))
		f.refresh(ctx)
	}
	return nil
}

// Run listens on the change channel until ctx is done.
func (f *RedisFeed) Run(ctx context.Context) {
	if f.client == nil {
		return
	}
	pubsub := f.client.Subscribe(ctx, f.channel)
	defer pubsub.Close()

	messages := pubsub.Channel()
	f.logger.Info("listening for ticket changes", zap.String("channel", f.channel))
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var notice ChangeNotice
			if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
				f.logger.Warn("malformed change notice", zap.String("payload", msg.Payload), zap.Error(err))
			}
			f.refresh(ctx)
		}
	}
}

func (f *RedisFeed) refresh(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), f.refreshTimeout)
	defer cancel()
	if err := f.hub.Refresh(ctx); err != nil {
		f.logger.Warn("hub refresh failed", zap.Error(err))
	}
}
