package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/outletops/maintenance-tickets/internal/auth"
	"github.com/outletops/maintenance-tickets/internal/domain"
	"github.com/outletops/maintenance-tickets/internal/events"
	"github.com/outletops/maintenance-tickets/internal/repository"
	apperrors "github.com/outletops/maintenance-tickets/pkg/util/errorutil"
)

// HistoryService records every lifecycle event as an audit entry.
type HistoryService struct {
	history repository.TicketHistoryRepository
	logger  *zap.Logger
}

// NewHistoryService creates the service.
func NewHistoryService(history repository.TicketHistoryRepository, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{history: history, logger: logger}
}

// RegisterHandlers subscribes the recorder to every lifecycle event.
func (s *HistoryService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	events.SubscribeAll(dispatcher, s.record)
}

// TicketHistory returns the audit trail of a ticket, oldest first. Admin only.
func (s *HistoryService) TicketHistory(ctx context.Context, session *auth.Session, ticketID string) ([]domain.TicketHistory, error) {
	if !session.IsAdmin() {
		return nil, apperrors.NewForbidden("only the admin can read ticket history")
	}
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	return s.history.ListByTicket(ctx, ticketID)
}

func (s *HistoryService) record(ctx context.Context, event events.Event) error {
	entry := &domain.TicketHistory{
		TicketID:       event.TicketID,
		EventType:      string(event.Type),
		ActorRole:      event.Actor.Role,
		ActorAccountID: event.Actor.AccountID,
	}
	switch payload := event.Payload.(type) {
	case events.TicketStatusChangedPayload:
		oldStatus, newStatus := payload.OldStatus, payload.NewStatus
		entry.OldStatus = &oldStatus
		entry.NewStatus = &newStatus
	case events.TicketCreatedPayload:
		created := domain.TicketStatusNew
		entry.NewStatus = &created
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("history entry not recorded",
			zap.String("ticket_id", event.TicketID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	return nil
}
