package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/outletops/maintenance-tickets/pkg/util/errorutil"
)

const sessionKey = "auth_session"

// AuthMiddleware validates bearer tokens and loads sessions.
type AuthMiddleware struct {
	tokens  *TokenManager
	revoked RevocationStore
	logger  *zap.Logger
}

// NewAuthMiddleware constructs middleware. revoked may be nil when sign-out
// tracking is disabled.
func NewAuthMiddleware(tokens *TokenManager, revoked RevocationStore, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, revoked: revoked, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	session, err := m.Authenticate(c.UserContext(), parts[1])
	if err != nil {
		return err
	}

	c.Locals(sessionKey, session)
	return c.Next()
}

// Authenticate turns a raw token into a live session.
func (m *AuthMiddleware) Authenticate(ctx context.Context, token string) (*Session, error) {
	session, err := m.tokens.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	if m.revoked != nil {
		revoked, err := m.revoked.IsRevoked(ctx, session.ID)
		if err != nil {
			// Revocation lookups are best effort; the token itself is still valid.
			m.logger.Warn("revocation lookup failed", zap.String("session_id", session.ID), zap.Error(err))
		} else if revoked {
			return nil, apperrors.NewUnauthorized("session ended")
		}
	}
	return session, nil
}

// SessionFromContext retrieves the authenticated session.
func SessionFromContext(c *fiber.Ctx) (*Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	session, ok := val.(*Session)
	return session, ok
}
