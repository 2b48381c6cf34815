package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/outletops/maintenance-tickets/internal/domain"
	"github.com/outletops/maintenance-tickets/internal/repository"
)

// Source runs the queries that subscriptions observe.
type Source interface {
	List(ctx context.Context, query repository.TicketQuery) ([]domain.Ticket, error)
}

// Snapshot is the full result of a query at a point in time.
type Snapshot struct {
	Query   repository.TicketQuery
	Tickets []domain.Ticket
	At      time.Time
}

// Subscription receives snapshots for one query until cancelled.
type Subscription struct {
	ID      string
	hub     *Hub
	query   repository.TicketQuery
	updates chan Snapshot
	once    sync.Once
}

// Updates delivers snapshots. The channel is closed on Cancel.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.updates
}

// Query returns the query currently observed.
func (s *Subscription) Query() repository.TicketQuery {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	return s.query
}

// Cancel stops delivery. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.ID)
		close(s.updates)
		s.hub.mu.Unlock()
	})
}

// offer keeps only the newest pending snapshot. Callers hold the hub read lock.
func (s *Subscription) offer(snap Snapshot) {
	select {
	case s.updates <- snap:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- snap:
	default:
	}
}

// Hub tracks live subscriptions and pushes fresh snapshots on Refresh.
type Hub struct {
	mu        sync.RWMutex
	refreshMu sync.Mutex
	source    Source
	subs      map[string]*Subscription
	logger    *zap.Logger
	now       func() time.Time
}

// NewHub creates a hub reading from source.
func NewHub(source Source, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		source: source,
		subs:   make(map[string]*Subscription),
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers a subscription and delivers its initial snapshot. It is
// serialized with Refresh so a write committed during the initial load is
// still pushed to the new subscriber.
func (h *Hub) Subscribe(ctx context.Context, query repository.TicketQuery) (*Subscription, error) {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	snap, err := h.load(ctx, query)
	if err != nil {
		return nil, err
	}
	sub := &Subscription{
		ID:      uuid.NewString(),
		hub:     h,
		query:   query,
		updates: make(chan Snapshot, 1),
	}
	h.mu.Lock()
	h.subs[sub.ID] = sub
	sub.offer(snap)
	h.mu.Unlock()
	return sub, nil
}

// Retarget switches a live subscription to another query and pushes its snapshot.
func (h *Hub) Retarget(ctx context.Context, sub *Subscription, query repository.TicketQuery) error {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	snap, err := h.load(ctx, query)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sub.ID] != sub {
		return nil
	}
	sub.query = query
	sub.offer(snap)
	return nil
}

// Refresh re-runs every distinct query once and pushes the result to its
// subscribers. A failing query is logged and its subscribers keep their last
// snapshot.
func (h *Hub) Refresh(ctx context.Context) error {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	h.mu.RLock()
	queries := make(map[string]repository.TicketQuery)
	for _, sub := range h.subs {
		queries[sub.query.Key()] = sub.query
	}
	h.mu.RUnlock()

	snapshots := make(map[string]Snapshot, len(queries))
	var firstErr error
	for key, query := range queries {
		snap, err := h.load(ctx, query)
		if err != nil {
			h.logger.Warn("snapshot query failed", zap.String("query", key), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		snapshots[key] = snap
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if snap, ok := snapshots[sub.query.Key()]; ok {
			sub.offer(snap)
		}
	}
	return firstErr
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) load(ctx context.Context, query repository.TicketQuery) (Snapshot, error) {
	tickets, err := h.source.List(ctx, query)
	if err != nil {
		return Snapshot{}, err
	}
	scoped := make([]domain.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if query.Matches(ticket) {
			scoped = append(scoped, ticket)
		}
	}
	return Snapshot{Query: query, Tickets: scoped, At: h.now()}, nil
}
