package auth

import (
	"strings"
	"time"

	"github.com/outletops/maintenance-tickets/internal/config"
	"github.com/outletops/maintenance-tickets/internal/domain"
)

// Session is the authenticated caller. It is created at sign-in, carried in the
// access token and ends at sign-out or expiry.
type Session struct {
	ID        string
	AccountID string
	Email     string
	Role      domain.Role
	Outlet    string
	ExpiresAt time.Time
}

// IsAdmin reports whether the session belongs to the administrator.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == domain.RoleAdmin
}

// IsOutlet reports whether the session belongs to an outlet with a bound outlet name.
func (s *Session) IsOutlet() bool {
	return s != nil && s.Role == domain.RoleOutlet && s.Outlet != ""
}

// RoleResolver derives a role from the sign-in email. The rule is a plain
// string check on the email and is not a server-issued claim.
type RoleResolver struct {
	mode       string
	adminEmail string
}

// NewRoleResolver builds a resolver from auth configuration.
func NewRoleResolver(cfg config.AuthConfig) RoleResolver {
	mode := cfg.AdminMatch
	if mode == "" {
		mode = config.AdminMatchExact
	}
	return RoleResolver{mode: mode, adminEmail: strings.ToLower(strings.TrimSpace(cfg.AdminEmail))}
}

// Resolve returns RoleAdmin or RoleOutlet for email.
func (r RoleResolver) Resolve(email string) domain.Role {
	normalized := strings.ToLower(strings.TrimSpace(email))
	switch r.mode {
	case config.AdminMatchSubstring:
		if strings.Contains(normalized, "admin") {
			return domain.RoleAdmin
		}
	default:
		if r.adminEmail != "" && normalized == r.adminEmail {
			return domain.RoleAdmin
		}
	}
	return domain.RoleOutlet
}
