package dto

import (
	"time"

	"github.com/outletops/maintenance-tickets/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the signed-in principal.
type SessionResponse struct {
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Outlet    string      `json:"outlet,omitempty"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Session   SessionResponse `json:"session"`
}
