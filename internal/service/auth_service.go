package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/outletops/maintenance-tickets/internal/auth"
	"github.com/outletops/maintenance-tickets/internal/config"
	"github.com/outletops/maintenance-tickets/internal/domain"
	"github.com/outletops/maintenance-tickets/internal/repository"
	apperrors "github.com/outletops/maintenance-tickets/pkg/util/errorutil"
)

const minPasswordLength = 6

// AuthService coordinates sign-in, sign-out and account provisioning.
type AuthService struct {
	accounts   repository.AccountRepository
	revoked    auth.RevocationStore
	tokenMgr   *auth.TokenManager
	roles      auth.RoleResolver
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	Revocations auth.RevocationStore
	Logger      *zap.Logger
}

// AccountInput describes an account to provision.
type AccountInput struct {
	Email    string
	Password string
	Outlet   string
}

// ImportFailure records a rejected import row.
type ImportFailure struct {
	Row    int
	Email  string
	Reason string
}

// ImportResult summarizes a bulk account import.
type ImportResult struct {
	Imported int
	Failed   []ImportFailure
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		accounts:   deps.AccountRepo,
		revoked:    deps.Revocations,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		roles:      auth.NewRoleResolver(cfg.Auth),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
	}
}

// SignIn verifies credentials and opens a session. Unknown emails and wrong
// passwords fail the same way.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*auth.Session, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", apperrors.NewValidationError("email and password required", nil)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", err
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, "", apperrors.NewUnauthorized("invalid credentials")
	}

	session := &auth.Session{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      s.roles.Resolve(account.Email),
	}
	if session.Role == domain.RoleOutlet {
		session.Outlet = strings.TrimSpace(account.OutletName())
		if session.Outlet == "" {
			s.logger.Warn("outlet account without outlet binding", zap.String("account_id", account.ID))
			return nil, "", apperrors.NewOutletNotBound()
		}
	}

	token, err := s.tokenMgr.Issue(session)
	if err != nil {
		return nil, "", err
	}
	return session, token, nil
}

// SignOut revokes the session's token until it would have expired anyway.
func (s *AuthService) SignOut(ctx context.Context, session *auth.Session) error {
	if session == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if s.revoked == nil {
		return nil
	}
	return s.revoked.Revoke(ctx, session.ID, session.ExpiresAt)
}

// CreateAccount provisions a single account. Duplicate emails are a conflict.
func (s *AuthService) CreateAccount(ctx context.Context, input AccountInput) (*domain.Account, error) {
	account, err := s.buildAccount(input)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": account.Email})
		}
		return nil, err
	}
	return account, nil
}

// ImportAccounts upserts outlet accounts row by row. A bad row is recorded and
// the import continues.
func (s *AuthService) ImportAccounts(ctx context.Context, inputs []AccountInput) (*ImportResult, error) {
	result := &ImportResult{}
	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		account, err := s.buildAccount(input)
		if err == nil {
			err = s.accounts.Upsert(ctx, account)
		}
		if err != nil {
			result.Failed = append(result.Failed, ImportFailure{Row: i + 1, Email: input.Email, Reason: reason(err)})
			continue
		}
		result.Imported++
	}
	s.logger.Info("accounts imported", zap.Int("imported", result.Imported), zap.Int("failed", len(result.Failed)))
	return result, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) buildAccount(input AccountInput) (*domain.Account, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("valid email required", map[string]any{"field": "email"})
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("password must be at least %d characters", minPasswordLength),
			map[string]any{"field": "password"})
	}
	outlet := strings.TrimSpace(input.Outlet)
	if strings.EqualFold(outlet, FilterAll) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("outlet name %q is reserved for the all-outlets filter", FilterAll),
			map[string]any{"field": "outlet"})
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	account := &domain.Account{Email: email, PasswordHash: hash}
	if outlet != "" {
		account.Outlet = &outlet
	}
	return account, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func reason(err error) string {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
