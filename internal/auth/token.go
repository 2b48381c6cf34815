package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/outletops/maintenance-tickets/internal/domain"
)

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute, now: time.Now}
}

// Claims describes JWT payload.
type Claims struct {
	AccountID string      `json:"account_id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Outlet    string      `json:"outlet,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a token for the session and fills its ID and expiry.
func (tm *TokenManager) Issue(session *Session) (string, error) {
	now := tm.now()
	session.ID = uuid.NewString()
	session.ExpiresAt = now.Add(tm.ttl)
	claims := &Claims{
		AccountID: session.AccountID,
		Email:     session.Email,
		Role:      session.Role,
		Outlet:    session.Outlet,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   session.AccountID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Parse validates a token and rebuilds the session it carries.
func (tm *TokenManager) Parse(tokenStr string) (*Session, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Role != domain.RoleAdmin && claims.Role != domain.RoleOutlet {
		return nil, errors.New("unknown role")
	}

	session := &Session{
		ID:        claims.ID,
		AccountID: claims.AccountID,
		Email:     claims.Email,
		Role:      claims.Role,
		Outlet:    claims.Outlet,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}
