package dto

import (
	"time"

	"github.com/outletops/maintenance-tickets/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	IssueType   string `json:"issue_type"`
	Description string `json:"description"`
}

// UpdateStatusRequest payload for admin status changes.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID                string                `json:"id"`
	Outlet            string                `json:"outlet"`
	IssueType         domain.IssueType      `json:"issue_type"`
	Description       string                `json:"description"`
	Status            domain.TicketStatus   `json:"status"`
	CreatedAt         *time.Time            `json:"created_at"`
	StartedAt         *time.Time            `json:"started_at"`
	AdminConfirmedAt  *time.Time            `json:"admin_confirmed_at"`
	OutletConfirmedAt *time.Time            `json:"outlet_confirmed_at"`
	AvailableActions  []domain.TicketAction `json:"available_actions"`
}

// TicketSummaryResponse carries dashboard counters.
type TicketSummaryResponse struct {
	Total    int                         `json:"total"`
	ByStatus map[domain.TicketStatus]int `json:"by_status"`
	Outlets  []string                    `json:"outlets"`
}

// NewTicketResponse maps a ticket with the actions allowed for the viewer.
func NewTicketResponse(ticket domain.Ticket, actions []domain.TicketAction) TicketResponse {
	if actions == nil {
		actions = []domain.TicketAction{}
	}
	return TicketResponse{
		ID:                ticket.ID,
		Outlet:            ticket.Outlet,
		IssueType:         ticket.IssueType,
		Description:       ticket.Description,
		Status:            ticket.Status,
		CreatedAt:         ticket.CreatedAt,
		StartedAt:         ticket.StartedAt,
		AdminConfirmedAt:  ticket.AdminConfirmedAt,
		OutletConfirmedAt: ticket.OutletConfirmedAt,
		AvailableActions:  actions,
	}
}

// TicketHistoryResponse is one audit trail entry.
type TicketHistoryResponse struct {
	ID             string               `json:"id"`
	EventType      string               `json:"event_type"`
	ActorRole      domain.Role          `json:"actor_role"`
	ActorAccountID string               `json:"actor_account_id"`
	OldStatus      *domain.TicketStatus `json:"old_status"`
	NewStatus      *domain.TicketStatus `json:"new_status"`
	CreatedAt      time.Time            `json:"created_at"`
}
