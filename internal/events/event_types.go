package events

import (
	"time"

	"github.com/outletops/maintenance-tickets/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketOutletConfirmed EventType = "ticket_outlet_confirmed"
	EventTicketDeleted         EventType = "ticket_deleted"
)

// AllTicketEvents lists every lifecycle event type.
var AllTicketEvents = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketOutletConfirmed,
	EventTicketDeleted,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role      domain.Role `json:"role"`
	AccountID string      `json:"account_id"`
}

// Event represents a domain event emitted by services. Outlet is copied out of
// the payload so subscribers can route without decoding it.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Outlet    string      `json:"outlet"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	IssueType domain.IssueType `json:"issue_type"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}
