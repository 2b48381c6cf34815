package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/outletops/maintenance-tickets/internal/auth"
	"github.com/outletops/maintenance-tickets/internal/domain"
	"github.com/outletops/maintenance-tickets/internal/events"
	"github.com/outletops/maintenance-tickets/internal/repository"
	apperrors "github.com/outletops/maintenance-tickets/pkg/util/errorutil"
)

// TicketService runs the ticket lifecycle: outlets create and confirm, the
// admin moves status and deletes. Every mutation is one store write followed
// by an event.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	tracer     trace.Tracer
	strict     bool
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo        repository.TicketRepository
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
	StrictTransitions bool
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	IssueType   string
	Description string
}

// TicketSummary aggregates the dashboard counters.
type TicketSummary struct {
	Total    int
	ByStatus map[domain.TicketStatus]int
	Outlets  []string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		tracer:     otel.Tracer("github.com/outletops/maintenance-tickets/internal/service"),
		strict:     deps.StrictTransitions,
	}
}

// CreateTicket records a new NEW ticket for the session's outlet.
func (s *TicketService) CreateTicket(ctx context.Context, session *auth.Session, input TicketCreateInput) (*domain.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "TicketService.CreateTicket")
	defer span.End()

	if !session.IsOutlet() {
		if session != nil && session.Role == domain.RoleOutlet {
			return nil, fail(span, apperrors.NewOutletNotBound())
		}
		return nil, fail(span, apperrors.NewForbidden("only outlets can submit tickets"))
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, fail(span, apperrors.NewValidationError("description required", map[string]any{"field": "description"}))
	}

	ticket := &domain.Ticket{
		Outlet:      session.Outlet,
		IssueType:   domain.NormalizeIssueType(input.IssueType),
		Description: description,
		Status:      domain.TicketStatusNew,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("ticket.id", ticket.ID), attribute.String("ticket.outlet", ticket.Outlet))

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Outlet:   ticket.Outlet,
		Actor:    actorOf(session),
		Payload:  events.TicketCreatedPayload{IssueType: ticket.IssueType},
	})
	return ticket, nil
}

// Transition sets a ticket's status on behalf of the admin. Entering
// IN_PROGRESS stamps started_at and entering DONE stamps admin_confirmed_at.
// Order is only enforced when strict transitions are enabled.
func (s *TicketService) Transition(ctx context.Context, session *auth.Session, ticketID string, target domain.TicketStatus) (*domain.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "TicketService.Transition",
		trace.WithAttributes(attribute.String("ticket.id", ticketID), attribute.String("ticket.target_status", string(target))))
	defer span.End()

	if !session.IsAdmin() {
		return nil, fail(span, apperrors.NewForbidden("only the admin can change ticket status"))
	}
	if !target.Valid() {
		return nil, fail(span, apperrors.NewValidationError("invalid status", map[string]any{
			"status":  target,
			"allowed": domain.TicketStatuses,
		}))
	}

	current, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, fail(span, err)
	}
	if s.strict && !isValidTransition(current.Status, target) {
		return nil, fail(span, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": current.Status,
			"to":   target,
		}))
	}

	updated, err := s.tickets.SetStatus(ctx, current.ID, target)
	if err != nil {
		return nil, fail(span, notFoundOr(err))
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		Outlet:   updated.Outlet,
		Actor:    actorOf(session),
		Payload:  events.TicketStatusChangedPayload{OldStatus: current.Status, NewStatus: updated.Status},
	})
	return updated, nil
}

// ConfirmByOutlet lets the owning outlet mark an IN_PROGRESS ticket as DONE.
func (s *TicketService) ConfirmByOutlet(ctx context.Context, session *auth.Session, ticketID string) (*domain.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "TicketService.ConfirmByOutlet", trace.WithAttributes(attribute.String("ticket.id", ticketID)))
	defer span.End()

	if !session.IsOutlet() {
		return nil, fail(span, apperrors.NewForbidden("only outlets can confirm tickets"))
	}

	current, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, fail(span, err)
	}
	if current.Outlet != session.Outlet {
		return nil, fail(span, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID}))
	}
	if !current.OutletCanConfirm() {
		return nil, fail(span, apperrors.NewConflict("ticket is not in progress", map[string]any{"status": current.Status}))
	}

	updated, err := s.tickets.ConfirmByOutlet(ctx, current.ID, session.Outlet)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fail(span, apperrors.NewConflict("ticket changed before confirmation", nil))
		}
		return nil, fail(span, err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketOutletConfirmed,
		TicketID: updated.ID,
		Outlet:   updated.Outlet,
		Actor:    actorOf(session),
		Payload:  events.TicketStatusChangedPayload{OldStatus: current.Status, NewStatus: updated.Status},
	})
	return updated, nil
}

// DeleteTicket removes a ticket permanently. Without confirmed the call is
// rejected before anything is written.
func (s *TicketService) DeleteTicket(ctx context.Context, session *auth.Session, ticketID string, confirmed bool) error {
	ctx, span := s.tracer.Start(ctx, "TicketService.DeleteTicket", trace.WithAttributes(attribute.String("ticket.id", ticketID)))
	defer span.End()

	if !session.IsAdmin() {
		return fail(span, apperrors.NewForbidden("only the admin can delete tickets"))
	}
	if !confirmed {
		return fail(span, apperrors.NewConfirmationRequired("ticket deletion"))
	}

	current, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return fail(span, err)
	}
	if err := s.tickets.Delete(ctx, current.ID); err != nil {
		return fail(span, notFoundOr(err))
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: current.ID,
		Outlet:   current.Outlet,
		Actor:    actorOf(session),
	})
	return nil
}

// ListTickets returns the tickets visible to the session with the view applied.
// Outlet sessions are always pinned to their own outlet.
func (s *TicketService) ListTickets(ctx context.Context, session *auth.Session, opts ViewOptions) ([]domain.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "TicketService.ListTickets")
	defer span.End()

	query, err := ScopeQuery(session)
	if err != nil {
		return nil, fail(span, err)
	}
	if query.Outlet != nil {
		opts.Outlet = *query.Outlet
	}

	tickets, err := s.tickets.List(ctx, query)
	if err != nil {
		return nil, fail(span, err)
	}
	return ApplyView(tickets, opts), nil
}

// Summary counts the session's visible tickets per status.
func (s *TicketService) Summary(ctx context.Context, session *auth.Session) (*TicketSummary, error) {
	tickets, err := s.ListTickets(ctx, session, ViewOptions{})
	if err != nil {
		return nil, err
	}
	summary := &TicketSummary{
		Total:    len(tickets),
		ByStatus: make(map[domain.TicketStatus]int, len(domain.TicketStatuses)),
		Outlets:  DistinctOutlets(tickets),
	}
	for _, status := range domain.TicketStatuses {
		summary.ByStatus[status] = CountByStatus(tickets, status)
	}
	return summary, nil
}

// ScopeQuery maps a session onto the store query it may observe.
func ScopeQuery(session *auth.Session) (repository.TicketQuery, error) {
	switch {
	case session.IsAdmin():
		return repository.TicketQuery{}, nil
	case session.IsOutlet():
		outlet := session.Outlet
		return repository.TicketQuery{Outlet: &outlet}, nil
	case session != nil && session.Role == domain.RoleOutlet:
		return repository.TicketQuery{}, apperrors.NewOutletNotBound()
	default:
		return repository.TicketQuery{}, apperrors.NewUnauthorized("authentication required")
	}
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func actorOf(session *auth.Session) events.Actor {
	return events.Actor{Role: session.Role, AccountID: session.AccountID}
}

func notFoundOr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", nil)
	}
	return err
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:        {domain.TicketStatusNew, domain.TicketStatusInProgress},
	domain.TicketStatusInProgress: {domain.TicketStatusInProgress, domain.TicketStatusDone},
	domain.TicketStatusDone:       {domain.TicketStatusDone},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
