package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/outletops/maintenance-tickets/internal/domain"
)

// AccountRepository handles sign-in identities.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Upsert(ctx context.Context, account *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository instantiates repository.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (email, password_hash, outlet)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		strings.ToLower(strings.TrimSpace(account.Email)),
		account.PasswordHash,
		account.Outlet,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

// Upsert creates the account or replaces password and outlet for an existing email.
func (r *accountRepository) Upsert(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (email, password_hash, outlet)
        VALUES ($1,$2,$3)
        ON CONFLICT ((LOWER(email))) DO UPDATE
            SET password_hash = EXCLUDED.password_hash, outlet = EXCLUDED.outlet, updated_at = NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		strings.ToLower(strings.TrimSpace(account.Email)),
		account.PasswordHash,
		account.Outlet,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const query = `
        SELECT id, email, password_hash, outlet, created_at, updated_at
        FROM accounts WHERE LOWER(email)=LOWER($1)`
	return r.fetchSingle(ctx, query, strings.TrimSpace(email))
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `
        SELECT id, email, password_hash, outlet, created_at, updated_at
        FROM accounts WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *accountRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var account domain.Account
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Outlet,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}
