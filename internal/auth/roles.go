package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/outletops/maintenance-tickets/pkg/util/errorutil"
)

// RequireAdmin ensures the administrator is authenticated.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !session.IsAdmin() {
			return apperrors.NewForbidden("admin role required")
		}
		return c.Next()
	}
}

// RequireOutlet ensures an outlet principal with a bound outlet is authenticated.
func RequireOutlet() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if session.IsAdmin() {
			return apperrors.NewForbidden("outlet role required")
		}
		if !session.IsOutlet() {
			return apperrors.NewOutletNotBound()
		}
		return c.Next()
	}
}

// RequireAnyRole ensures caller is authenticated.
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := SessionFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
