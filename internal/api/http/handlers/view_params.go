package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/outletops/maintenance-tickets/internal/api/dto"
	"github.com/outletops/maintenance-tickets/internal/domain"
	"github.com/outletops/maintenance-tickets/internal/service"
	apperrors "github.com/outletops/maintenance-tickets/pkg/util/errorutil"
)

// parseViewOptions reads ?status=&outlet=&sort= into view options.
func parseViewOptions(c *fiber.Ctx) (service.ViewOptions, error) {
	opts := service.ViewOptions{
		Outlet:    strings.TrimSpace(c.Query("outlet")),
		Direction: service.ParseSortDirection(c.Query("sort")),
	}
	raw := strings.TrimSpace(c.Query("status"))
	if raw == "" || strings.EqualFold(raw, service.FilterAll) {
		return opts, nil
	}
	status, ok := domain.ParseTicketStatus(raw)
	if !ok {
		return opts, apperrors.NewValidationError("invalid status filter", map[string]any{
			"status":  raw,
			"allowed": domain.TicketStatuses,
		})
	}
	opts.Status = string(status)
	return opts, nil
}

func outletTicket(ticket domain.Ticket) dto.TicketResponse {
	return dto.NewTicketResponse(ticket, service.AvailableActions(false, ticket))
}

func adminTicket(ticket domain.Ticket) dto.TicketResponse {
	return dto.NewTicketResponse(ticket, service.AvailableActions(true, ticket))
}

func summaryResponse(summary *service.TicketSummary) dto.TicketSummaryResponse {
	return dto.TicketSummaryResponse{
		Total:    summary.Total,
		ByStatus: summary.ByStatus,
		Outlets:  summary.Outlets,
	}
}
