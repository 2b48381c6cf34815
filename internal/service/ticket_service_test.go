package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/outletops/maintenance-tickets/internal/auth"
	"github.com/outletops/maintenance-tickets/internal/domain"
	"github.com/outletops/maintenance-tickets/internal/events"
	"github.com/outletops/maintenance-tickets/internal/repository"
	apperrors "github.com/outletops/maintenance-tickets/pkg/util/errorutil"
)

// memoryTicketRepo mirrors the SQL stamping rules with a stepping clock.
type memoryTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	order   []string
	clock   time.Time
	failSet error
}

func newMemoryTicketRepo() *memoryTicketRepo {
	return &memoryTicketRepo{
		tickets: map[string]*domain.Ticket{},
		clock:   time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (r *memoryTicketRepo) tick() *time.Time {
	r.clock = r.clock.Add(time.Minute)
	ts := r.clock
	return &ts
}

func (r *memoryTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = uuid.NewString()
	ticket.Status = domain.TicketStatusNew
	ticket.CreatedAt = r.tick()
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	r.order = append(r.order, ticket.ID)
	return nil
}

func (r *memoryTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (r *memoryTicketRepo) List(_ context.Context, q repository.TicketQuery) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Ticket{}
	for i := len(r.order) - 1; i >= 0; i-- {
		t := r.tickets[r.order[i]]
		if t != nil && q.Matches(*t) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memoryTicketRepo) SetStatus(_ context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSet != nil {
		return nil, r.failSet
	}
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	t.Status = status
	if status == domain.TicketStatusInProgress && t.StartedAt == nil {
		t.StartedAt = r.tick()
	}
	if status == domain.TicketStatusDone && t.AdminConfirmedAt == nil {
		t.AdminConfirmedAt = r.tick()
	}
	copied := *t
	return &copied, nil
}

func (r *memoryTicketRepo) ConfirmByOutlet(_ context.Context, id, outlet string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok || t.Outlet != outlet || t.Status != domain.TicketStatusInProgress {
		return nil, pgx.ErrNoRows
	}
	t.Status = domain.TicketStatusDone
	if t.OutletConfirmedAt == nil {
		t.OutletConfirmedAt = r.tick()
	}
	copied := *t
	return &copied, nil
}

func (r *memoryTicketRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

var (
	adminSession   = &auth.Session{ID: "s-admin", AccountID: "acc-admin", Role: domain.RoleAdmin}
	outletA        = &auth.Session{ID: "s-a", AccountID: "acc-a", Role: domain.RoleOutlet, Outlet: "Outlet A"}
	outletB        = &auth.Session{ID: "s-b", AccountID: "acc-b", Role: domain.RoleOutlet, Outlet: "Outlet B"}
	unboundSession = &auth.Session{ID: "s-u", AccountID: "acc-u", Role: domain.RoleOutlet}
)

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestTicketService(strict bool) (*TicketService, *memoryTicketRepo, *recordedEvents) {
	repo := newMemoryTicketRepo()
	dispatcher := events.NewInMemoryDispatcher()
	rec := &recordedEvents{}
	events.SubscribeAll(dispatcher, func(_ context.Context, e events.Event) error {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.events = append(rec.events, e)
		return nil
	})
	svc := NewTicketService(TicketDependencies{TicketRepo: repo, Dispatcher: dispatcher, StrictTransitions: strict})
	return svc, repo, rec
}

func mustCreate(t *testing.T, svc *TicketService, session *auth.Session, description string) *domain.Ticket {
	t.Helper()
	ticket, err := svc.CreateTicket(context.Background(), session, TicketCreateInput{IssueType: "lighting", Description: description})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return ticket
}

func TestCreateTicketStartsNew(t *testing.T) {
	svc, _, rec := newTestTicketService(false)
	ticket := mustCreate(t, svc, outletA, "  flickering lights  ")

	if ticket.Status != domain.TicketStatusNew {
		t.Fatalf("status %s", ticket.Status)
	}
	if ticket.Outlet != "Outlet A" || ticket.Description != "flickering lights" {
		t.Fatalf("unexpected ticket %+v", ticket)
	}
	if ticket.IssueType != domain.IssueTypeLighting {
		t.Fatalf("issue type %s", ticket.IssueType)
	}
	if ticket.CreatedAt == nil || ticket.StartedAt != nil || ticket.AdminConfirmedAt != nil || ticket.OutletConfirmedAt != nil {
		t.Fatalf("unexpected stamps %+v", ticket)
	}
	if got := rec.types(); len(got) != 1 || got[0] != events.EventTicketCreated {
		t.Fatalf("events %v", got)
	}
}

func TestCreateTicketRejects(t *testing.T) {
	svc, _, _ := newTestTicketService(false)
	ctx := context.Background()

	if _, err := svc.CreateTicket(ctx, outletA, TicketCreateInput{Description: "   "}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.CreateTicket(ctx, unboundSession, TicketCreateInput{Description: "x"}); !apperrors.HasCode(err, apperrors.CodeOutletNotBound) {
		t.Fatalf("expected outlet not bound, got %v", err)
	}
	if _, err := svc.CreateTicket(ctx, adminSession, TicketCreateInput{Description: "x"}); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateTicketDefaultsIssueType(t *testing.T) {
	svc, _, _ := newTestTicketService(false)
	ticket, err := svc.CreateTicket(context.Background(), outletA, TicketCreateInput{Description: "door"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.IssueType != domain.IssueTypeOther {
		t.Fatalf("issue type %s", ticket.IssueType)
	}
}

func TestTransitionStampsInOrder(t *testing.T) {
	svc, _, rec := newTestTicketService(false)
	ctx := context.Background()
	ticket := mustCreate(t, svc, outletA, "ac broken")

	started, err := svc.Transition(ctx, adminSession, ticket.ID, domain.TicketStatusInProgress)
	if err != nil {
		t.Fatalf("in progress: %v", err)
	}
	if started.StartedAt == nil || started.StartedAt.Before(*started.CreatedAt) {
		t.Fatalf("started_at not stamped after created_at: %+v", started)
	}

	done, err := svc.Transition(ctx, adminSession, ticket.ID, domain.TicketStatusDone)
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	if done.AdminConfirmedAt == nil || done.AdminConfirmedAt.Before(*done.StartedAt) {
		t.Fatalf("admin_confirmed_at not stamped after started_at: %+v", done)
	}
	if !done.StartedAt.Equal(*started.StartedAt) {
		t.Fatalf("started_at changed")
	}

	want := []events.EventType{events.EventTicketCreated, events.EventTicketStatusChanged, events.EventTicketStatusChanged}
	got := rec.types()
	if len(got) != len(want) {
		t.Fatalf("events %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %s want %s (all %v)", i, got[i], want[i], got)
		}
	}
}

func TestTransitionValidation(t *testing.T) {
	svc, _, _ := newTestTicketService(false)
	ctx := context.Background()
	ticket := mustCreate(t, svc, outletA, "paint")

	cases := []struct {
		name    string
		session *auth.Session
		id      string
		target  domain.TicketStatus
		code    string
	}{
		{"outlet cannot set status", outletA, ticket.ID, domain.TicketStatusDone, apperrors.CodeForbidden},
		{"invalid status", adminSession, ticket.ID, "CLOSED", apperrors.CodeValidation},
		{"malformed id", adminSession, "not-a-uuid", domain.TicketStatusDone, apperrors.CodeNotFound},
		{"unknown id", adminSession, uuid.NewString(), domain.TicketStatusDone, apperrors.CodeNotFound},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Transition(ctx, tt.session, tt.id, tt.target); !apperrors.HasCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestTransitionUnorderedUnlessStrict(t *testing.T) {
	ctx := context.Background()

	loose, _, _ := newTestTicketService(false)
	ticket := mustCreate(t, loose, outletA, "skip ahead")
	if _, err := loose.Transition(ctx, adminSession, ticket.ID, domain.TicketStatusDone); err != nil {
		t.Fatalf("loose NEW->DONE: %v", err)
	}
	if _, err := loose.Transition(ctx, adminSession, ticket.ID, domain.TicketStatusNew); err != nil {
		t.Fatalf("loose DONE->NEW: %v", err)
	}

	strict, _, _ := newTestTicketService(true)
	ticket = mustCreate(t, strict, outletA, "in order")
	if _, err := strict.Transition(ctx, adminSession, ticket.ID, domain.TicketStatusDone); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("strict NEW->DONE should conflict, got %v", err)
	}
	if _, err := strict.Transition(ctx, adminSession, ticket.ID, domain.TicketStatusInProgress); err != nil {
		t.Fatalf("strict NEW->IN_PROGRESS: %v", err)
	}
}

func TestTransitionStoreFailureIsReturned(t *testing.T) {
	svc, repo, rec := newTestTicketService(false)
	ticket := mustCreate(t, svc, outletA, "x")
	repo.failSet = errors.New("connection reset")

	if _, err := svc.Transition(context.Background(), adminSession, ticket.ID, domain.TicketStatusDone); err == nil {
		t.Fatalf("expected store error")
	}
	if got := rec.types(); len(got) != 1 {
		t.Fatalf("no event expected after failed write, got %v", got)
	}
}

func TestConfirmByOutlet(t *testing.T) {
	svc, _, _ := newTestTicketService(false)
	ctx := context.Background()
	ticket := mustCreate(t, svc, outletA, "leak")

	if _, err := svc.ConfirmByOutlet(ctx, outletA, ticket.ID); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("confirm while NEW should conflict, got %v", err)
	}
	if _, err := svc.Transition(ctx, adminSession, ticket.ID, domain.TicketStatusInProgress); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if _, err := svc.ConfirmByOutlet(ctx, outletB, ticket.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("other outlet should not see ticket, got %v", err)
	}
	if _, err := svc.ConfirmByOutlet(ctx, adminSession, ticket.ID); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("admin confirm should be forbidden, got %v", err)
	}

	confirmed, err := svc.ConfirmByOutlet(ctx, outletA, ticket.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != domain.TicketStatusDone || confirmed.OutletConfirmedAt == nil {
		t.Fatalf("unexpected confirmed ticket %+v", confirmed)
	}
	if confirmed.AdminConfirmedAt != nil {
		t.Fatalf("outlet confirmation must not stamp admin_confirmed_at")
	}
	if _, err := svc.ConfirmByOutlet(ctx, outletA, ticket.ID); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("second confirm should conflict, got %v", err)
	}
}

func TestDeleteTicketRequiresConfirmation(t *testing.T) {
	svc, repo, rec := newTestTicketService(false)
	ctx := context.Background()
	ticket := mustCreate(t, svc, outletA, "remove me")

	if err := svc.DeleteTicket(ctx, adminSession, ticket.ID, false); !apperrors.HasCode(err, apperrors.CodeConfirmationRequired) {
		t.Fatalf("expected confirmation required, got %v", err)
	}
	if _, err := repo.GetByID(ctx, ticket.ID); err != nil {
		t.Fatalf("ticket deleted without confirmation")
	}
	if err := svc.DeleteTicket(ctx, outletA, ticket.ID, true); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("outlet delete should be forbidden, got %v", err)
	}
	if err := svc.DeleteTicket(ctx, adminSession, ticket.ID, true); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, ticket.ID); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("ticket still present")
	}
	if err := svc.DeleteTicket(ctx, adminSession, ticket.ID, true); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
	got := rec.types()
	if got[len(got)-1] != events.EventTicketDeleted {
		t.Fatalf("events %v", got)
	}
}

func TestListTicketsScopesOutlets(t *testing.T) {
	svc, _, _ := newTestTicketService(false)
	ctx := context.Background()
	mustCreate(t, svc, outletA, "a1")
	mustCreate(t, svc, outletB, "b1")
	mustCreate(t, svc, outletA, "a2")

	own, err := svc.ListTickets(ctx, outletA, ViewOptions{Outlet: "Outlet B"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(own) != 2 {
		t.Fatalf("outlet A sees %d tickets", len(own))
	}
	for _, ticket := range own {
		if ticket.Outlet != "Outlet A" {
			t.Fatalf("outlet A saw %s ticket", ticket.Outlet)
		}
	}

	all, err := svc.ListTickets(ctx, adminSession, ViewOptions{Direction: SortAscending})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 3 || all[0].Description != "a1" {
		t.Fatalf("admin list %+v", all)
	}

	if _, err := svc.ListTickets(ctx, unboundSession, ViewOptions{}); !apperrors.HasCode(err, apperrors.CodeOutletNotBound) {
		t.Fatalf("expected outlet not bound, got %v", err)
	}
	if _, err := svc.ListTickets(ctx, nil, ViewOptions{}); !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	svc, _, _ := newTestTicketService(false)
	ctx := context.Background()
	first := mustCreate(t, svc, outletA, "a1")
	mustCreate(t, svc, outletB, "b1")
	if _, err := svc.Transition(ctx, adminSession, first.ID, domain.TicketStatusInProgress); err != nil {
		t.Fatalf("transition: %v", err)
	}

	summary, err := svc.Summary(ctx, adminSession)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Total != 2 || summary.ByStatus[domain.TicketStatusNew] != 1 || summary.ByStatus[domain.TicketStatusInProgress] != 1 {
		t.Fatalf("summary %+v", summary)
	}
	if len(summary.Outlets) != 2 {
		t.Fatalf("outlets %v", summary.Outlets)
	}
}
