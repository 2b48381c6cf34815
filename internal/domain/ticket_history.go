package domain

import "time"

// TicketHistory is an immutable audit trail entry. Entries outlive the ticket
// they describe so deletions stay visible.
type TicketHistory struct {
	ID             string
	TicketID       string
	EventType      string
	ActorRole      Role
	ActorAccountID string
	OldStatus      *TicketStatus
	NewStatus      *TicketStatus
	CreatedAt      time.Time
}
