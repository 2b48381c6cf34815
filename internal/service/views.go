package service

import (
	"sort"
	"strings"

	"github.com/outletops/maintenance-tickets/internal/domain"
)

// FilterAll is the wildcard accepted by status and outlet filters.
const FilterAll = "ALL"

// SortDirection orders tickets by creation time.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// ParseSortDirection accepts "asc"/"desc" in any case; anything else is descending.
func ParseSortDirection(raw string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(raw), string(SortAscending)) {
		return SortAscending
	}
	return SortDescending
}

// ViewOptions selects and orders a ticket listing. Empty filters mean ALL.
type ViewOptions struct {
	Status    string
	Outlet    string
	Direction SortDirection
}

// ApplyView filters then sorts tickets. The input slice is not modified.
func ApplyView(tickets []domain.Ticket, opts ViewOptions) []domain.Ticket {
	return SortTickets(FilterTickets(tickets, opts.Status, opts.Outlet), opts.Direction)
}

// FilterTickets keeps tickets whose status and outlet match; ALL or empty matches anything.
func FilterTickets(tickets []domain.Ticket, status, outlet string) []domain.Ticket {
	matchAllStatus := isWildcard(status)
	matchAllOutlet := isWildcard(outlet)
	result := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if !matchAllStatus && string(t.Status) != status {
			continue
		}
		if !matchAllOutlet && t.Outlet != outlet {
			continue
		}
		result = append(result, t)
	}
	return result
}

// SortTickets orders by created_at; a missing created_at counts as the epoch.
// Ties keep their input order.
func SortTickets(tickets []domain.Ticket, direction SortDirection) []domain.Ticket {
	sorted := append([]domain.Ticket(nil), tickets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].CreatedAtOrZero(), sorted[j].CreatedAtOrZero()
		if direction == SortAscending {
			return a.Before(b)
		}
		return b.Before(a)
	})
	return sorted
}

// CountByStatus counts tickets in the given status.
func CountByStatus(tickets []domain.Ticket, status domain.TicketStatus) int {
	n := 0
	for _, t := range tickets {
		if t.Status == status {
			n++
		}
	}
	return n
}

// DistinctOutlets lists outlet names in first-seen order.
func DistinctOutlets(tickets []domain.Ticket) []string {
	seen := make(map[string]struct{}, len(tickets))
	outlets := []string{}
	for _, t := range tickets {
		if _, ok := seen[t.Outlet]; ok {
			continue
		}
		seen[t.Outlet] = struct{}{}
		outlets = append(outlets, t.Outlet)
	}
	return outlets
}

// AvailableActions lists what the session may do with the ticket right now.
func AvailableActions(isAdmin bool, ticket domain.Ticket) []domain.TicketAction {
	if isAdmin {
		return []domain.TicketAction{domain.ActionSetStatus, domain.ActionDelete}
	}
	switch {
	case ticket.OutletCanConfirm():
		return []domain.TicketAction{domain.ActionConfirm}
	case ticket.Status == domain.TicketStatusDone:
		return []domain.TicketAction{domain.ActionUpload}
	}
	return []domain.TicketAction{}
}

func isWildcard(filter string) bool {
	trimmed := strings.TrimSpace(filter)
	return trimmed == "" || strings.EqualFold(trimmed, FilterAll)
}
