package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "NEW"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusDone       TicketStatus = "DONE"
)

// TicketStatuses lists every status in lifecycle order.
var TicketStatuses = []TicketStatus{TicketStatusNew, TicketStatusInProgress, TicketStatusDone}

// Valid reports whether s is one of the lifecycle states.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusInProgress, TicketStatusDone:
		return true
	}
	return false
}

// ParseTicketStatus normalizes user input such as "in_progress" into a TicketStatus.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	status := TicketStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return status, status.Valid()
}

// IssueType categorizes a maintenance request. Values outside the catalogue are
// accepted as free text.
type IssueType string

const (
	IssueTypeAirConditioning IssueType = "AIR_CONDITIONING"
	IssueTypeLighting        IssueType = "LIGHTING"
	IssueTypePainting        IssueType = "PAINTING"
	IssueTypeCarpentry       IssueType = "CARPENTRY"
	IssueTypeOther           IssueType = "OTHER"
)

// IssueTypes is the catalogue offered to outlets.
var IssueTypes = []IssueType{
	IssueTypeAirConditioning,
	IssueTypeLighting,
	IssueTypePainting,
	IssueTypeCarpentry,
	IssueTypeOther,
}

// NormalizeIssueType trims input, maps catalogue entries case-insensitively and
// falls back to OTHER when empty.
func NormalizeIssueType(raw string) IssueType {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return IssueTypeOther
	}
	for _, known := range IssueTypes {
		if strings.EqualFold(trimmed, string(known)) {
			return known
		}
	}
	return IssueType(trimmed)
}

// TicketAction names an operation a principal may perform on a ticket.
type TicketAction string

const (
	ActionConfirm   TicketAction = "confirm"
	ActionUpload    TicketAction = "upload_images"
	ActionSetStatus TicketAction = "set_status"
	ActionDelete    TicketAction = "delete"
)

// Ticket is a maintenance request raised by an outlet.
type Ticket struct {
	ID                string
	Outlet            string
	IssueType         IssueType
	Description       string
	Status            TicketStatus
	CreatedAt         *time.Time
	StartedAt         *time.Time
	AdminConfirmedAt  *time.Time
	OutletConfirmedAt *time.Time
}

// CreatedAtOrZero returns the creation time, or the Unix epoch when unset.
func (t Ticket) CreatedAtOrZero() time.Time {
	if t.CreatedAt == nil {
		return time.Unix(0, 0).UTC()
	}
	return *t.CreatedAt
}

// OutletCanConfirm reports whether the owning outlet may confirm completion.
func (t Ticket) OutletCanConfirm() bool {
	return t.Status == TicketStatusInProgress
}
