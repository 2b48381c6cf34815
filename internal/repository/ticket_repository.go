package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/outletops/maintenance-tickets/internal/domain"
)

// TicketQuery narrows a ticket listing. A nil Outlet selects every outlet.
type TicketQuery struct {
	Outlet *string
}

// Key identifies the query for snapshot grouping.
func (q TicketQuery) Key() string {
	if q.Outlet == nil {
		return "*"
	}
	return "outlet:" + *q.Outlet
}

// Matches reports whether the ticket falls inside the query.
func (q TicketQuery) Matches(ticket domain.Ticket) bool {
	return q.Outlet == nil || ticket.Outlet == *q.Outlet
}

// TicketRepository encapsulates ticket persistence. Every mutation is a single
// statement; timestamps are assigned by the database clock.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, query TicketQuery) ([]domain.Ticket, error)
	SetStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error)
	ConfirmByOutlet(ctx context.Context, id, outlet string) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, outlet, issue_type, description, status, created_at, started_at, admin_confirmed_at, outlet_confirmed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (outlet, issue_type, description, status)
        VALUES ($1,$2,$3,$4)
        RETURNING ` + ticketColumns
	row := r.pool.QueryRow(ctx, query,
		ticket.Outlet,
		ticket.IssueType,
		ticket.Description,
		domain.TicketStatusNew,
	)
	created, err := scanTicket(row)
	if err != nil {
		return err
	}
	*ticket = *created
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) List(ctx context.Context, q TicketQuery) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if q.Outlet != nil {
		args = append(args, *q.Outlet)
		clauses = append(clauses, fmt.Sprintf("outlet=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// SetStatus writes the status and stamps the matching audit column the first
// time the ticket enters IN_PROGRESS or DONE.
func (r *ticketRepository) SetStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET
            status = $2::text,
            started_at = CASE WHEN $2::text = 'IN_PROGRESS' THEN COALESCE(started_at, NOW()) ELSE started_at END,
            admin_confirmed_at = CASE WHEN $2::text = 'DONE' THEN COALESCE(admin_confirmed_at, NOW()) ELSE admin_confirmed_at END
        WHERE id=$1
        RETURNING ` + ticketColumns
	return scanTicket(r.pool.QueryRow(ctx, query, id, string(status)))
}

// ConfirmByOutlet marks an IN_PROGRESS ticket owned by outlet as DONE. It
// returns pgx.ErrNoRows when the ticket is missing, owned by another outlet or
// not IN_PROGRESS.
func (r *ticketRepository) ConfirmByOutlet(ctx context.Context, id, outlet string) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET
            status = 'DONE',
            outlet_confirmed_at = COALESCE(outlet_confirmed_at, NOW())
        WHERE id=$1 AND outlet=$2 AND status='IN_PROGRESS'
        RETURNING ` + ticketColumns
	return scanTicket(r.pool.QueryRow(ctx, query, id, outlet))
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Outlet,
		&ticket.IssueType,
		&ticket.Description,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.StartedAt,
		&ticket.AdminConfirmedAt,
		&ticket.OutletConfirmedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
