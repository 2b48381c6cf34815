package service

import (
	"context"
	"errors"
	"testing"

	"github.com/outletops/maintenance-tickets/internal/domain"
	"github.com/outletops/maintenance-tickets/internal/events"
	apperrors "github.com/outletops/maintenance-tickets/pkg/util/errorutil"
)

type fakeHistoryRepo struct {
	createFn func(*domain.TicketHistory) error
	entries  []domain.TicketHistory
}

func (f *fakeHistoryRepo) Create(_ context.Context, h *domain.TicketHistory) error {
	if f.createFn != nil {
		if err := f.createFn(h); err != nil {
			return err
		}
	}
	f.entries = append(f.entries, *h)
	return nil
}

func (f *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	out := []domain.TicketHistory{}
	for _, h := range f.entries {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

func TestHistoryRecordsLifecycle(t *testing.T) {
	svc, _, _ := newTestTicketService(false)
	repo := &fakeHistoryRepo{}
	history := NewHistoryService(repo, nil)
	history.RegisterHandlers(svc.dispatcher)
	ctx := context.Background()

	ticket := mustCreate(t, svc, outletA, "leak")
	if _, err := svc.Transition(ctx, adminSession, ticket.ID, domain.TicketStatusInProgress); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if _, err := svc.ConfirmByOutlet(ctx, outletA, ticket.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := svc.DeleteTicket(ctx, adminSession, ticket.ID, true); err != nil {
		t.Fatalf("delete: %v", err)
	}

	entries, err := history.TicketHistory(ctx, adminSession, ticket.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketOutletConfirmed,
		events.EventTicketDeleted,
	}
	if len(entries) != len(want) {
		t.Fatalf("entries %+v", entries)
	}
	for i, eventType := range want {
		if entries[i].EventType != string(eventType) {
			t.Fatalf("entry %d is %s want %s", i, entries[i].EventType, eventType)
		}
	}
	if *entries[0].NewStatus != domain.TicketStatusNew || entries[0].ActorRole != domain.RoleOutlet {
		t.Fatalf("created entry %+v", entries[0])
	}
	if *entries[1].OldStatus != domain.TicketStatusNew || *entries[1].NewStatus != domain.TicketStatusInProgress {
		t.Fatalf("status entry %+v", entries[1])
	}
	if entries[3].OldStatus != nil || entries[3].ActorRole != domain.RoleAdmin {
		t.Fatalf("delete entry %+v", entries[3])
	}
}

func TestHistoryFailureDoesNotFailWrite(t *testing.T) {
	svc, _, _ := newTestTicketService(false)
	repo := &fakeHistoryRepo{createFn: func(*domain.TicketHistory) error { return errors.New("insert failed") }}
	NewHistoryService(repo, nil).RegisterHandlers(svc.dispatcher)

	if _, err := svc.CreateTicket(context.Background(), outletA, TicketCreateInput{Description: "still created"}); err != nil {
		t.Fatalf("create should succeed despite history failure: %v", err)
	}
}

func TestHistoryIsAdminOnly(t *testing.T) {
	history := NewHistoryService(&fakeHistoryRepo{}, nil)
	ctx := context.Background()
	if _, err := history.TicketHistory(ctx, outletA, "00000000-0000-0000-0000-000000000001"); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := history.TicketHistory(ctx, adminSession, "nope"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
