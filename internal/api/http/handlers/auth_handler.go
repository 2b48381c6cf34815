package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/outletops/maintenance-tickets/internal/api/dto"
	"github.com/outletops/maintenance-tickets/internal/auth"
	"github.com/outletops/maintenance-tickets/internal/service"
	apperrors "github.com/outletops/maintenance-tickets/pkg/util/errorutil"
)

// AuthHandler exposes sign-in and sign-out.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	session, token, err := h.service.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Session:   sessionResponse(session),
	}})
}

// Session GET /auth/session.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": sessionResponse(session)})
}

// Logout POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.SignOut(c.UserContext(), session); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func sessionResponse(session *auth.Session) dto.SessionResponse {
	return dto.SessionResponse{
		Email:     session.Email,
		Role:      session.Role,
		Outlet:    session.Outlet,
		ExpiresAt: session.ExpiresAt,
	}
}
