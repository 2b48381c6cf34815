package handlers

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/outletops/maintenance-tickets/internal/api/dto"
	"github.com/outletops/maintenance-tickets/internal/auth"
	"github.com/outletops/maintenance-tickets/internal/domain"
	"github.com/outletops/maintenance-tickets/internal/service"
	"github.com/outletops/maintenance-tickets/internal/spreadsheet"
	apperrors "github.com/outletops/maintenance-tickets/pkg/util/errorutil"
)

// AdminTicketsHandler manages the admin dashboard endpoints.
type AdminTicketsHandler struct {
	service        *service.TicketService
	history        *service.HistoryService
	exportLocation *time.Location
}

// NewAdminTicketsHandler constructs handler. exportLocation is used when the
// request does not name a time zone.
func NewAdminTicketsHandler(ticketService *service.TicketService, historyService *service.HistoryService, exportLocation *time.Location) *AdminTicketsHandler {
	if exportLocation == nil {
		exportLocation = time.Local
	}
	return &AdminTicketsHandler{service: ticketService, history: historyService, exportLocation: exportLocation}
}

// ListTickets GET /admin/tickets.
func (h *AdminTicketsHandler) ListTickets(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	opts, err := parseViewOptions(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), session, opts)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for _, ticket := range tickets {
		items = append(items, adminTicket(ticket))
	}
	return c.JSON(fiber.Map{"data": items, "meta": fiber.Map{"total": len(items)}})
}

// Summary GET /admin/tickets/summary.
func (h *AdminTicketsHandler) Summary(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	summary, err := h.service.Summary(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaryResponse(summary)})
}

// Export GET /admin/tickets/export.
func (h *AdminTicketsHandler) Export(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	opts, err := parseViewOptions(c)
	if err != nil {
		return err
	}
	loc := h.exportLocation
	if tz := strings.TrimSpace(c.Query("tz")); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return apperrors.NewValidationError("unknown time zone", map[string]any{"tz": tz})
		}
	}

	tickets, err := h.service.ListTickets(c.UserContext(), session, opts)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := spreadsheet.WriteTickets(&buf, tickets, loc); err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Set(fiber.HeaderContentType, spreadsheet.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, spreadsheet.ExportFileName))
	return c.Send(buf.Bytes())
}

// UpdateStatus PATCH /admin/tickets/:id/status.
func (h *AdminTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status, _ := domain.ParseTicketStatus(req.Status)
	ticket, err := h.service.Transition(c.UserContext(), session, c.Params("id"), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": adminTicket(*ticket)})
}

// DeleteTicket DELETE /admin/tickets/:id?confirm=true.
func (h *AdminTicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteTicket(c.UserContext(), session, c.Params("id"), c.QueryBool("confirm")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// History GET /admin/tickets/:id/history.
func (h *AdminTicketsHandler) History(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	entries, err := h.history.TicketHistory(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.TicketHistoryResponse{
			ID:             entry.ID,
			EventType:      entry.EventType,
			ActorRole:      entry.ActorRole,
			ActorAccountID: entry.ActorAccountID,
			OldStatus:      entry.OldStatus,
			NewStatus:      entry.NewStatus,
			CreatedAt:      entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
