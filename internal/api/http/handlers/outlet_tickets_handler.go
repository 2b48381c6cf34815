package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/outletops/maintenance-tickets/internal/api/dto"
	"github.com/outletops/maintenance-tickets/internal/auth"
	"github.com/outletops/maintenance-tickets/internal/service"
	apperrors "github.com/outletops/maintenance-tickets/pkg/util/errorutil"
)

// OutletTicketsHandler manages outlet ticket endpoints.
type OutletTicketsHandler struct {
	service *service.TicketService
}

// NewOutletTicketsHandler constructs handler.
func NewOutletTicketsHandler(ticketService *service.TicketService) *OutletTicketsHandler {
	return &OutletTicketsHandler{service: ticketService}
}

// CreateTicket POST /outlet/tickets.
func (h *OutletTicketsHandler) CreateTicket(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), session, service.TicketCreateInput{
		IssueType:   req.IssueType,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": outletTicket(*ticket)})
}

// ListTickets GET /outlet/tickets.
func (h *OutletTicketsHandler) ListTickets(c *fiber.Ctx) error {
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
		items = append(items, outletTicket(ticket))
	}
	return c.JSON(fiber.Map{"data": items, "meta": fiber.Map{"total": len(items)}})
}

// Summary GET /outlet/tickets/summary. Counters cover the outlet's own tickets.
func (h *OutletTicketsHandler) Summary(c *fiber.Ctx) error {
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

// ConfirmTicket POST /outlet/tickets/:id/confirm.
func (h *OutletTicketsHandler) ConfirmTicket(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.ConfirmByOutlet(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": outletTicket(*ticket)})
}

// UploadImage POST /outlet/tickets/:id/images.
func (h *OutletTicketsHandler) UploadImage(c *fiber.Ctx) error {
	return apperrors.NewNotImplemented("image upload is not available yet")
}
