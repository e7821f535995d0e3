package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/repository"
)

// Postgres keeps ticket records as jsonb rows.
type Postgres struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	cols    domain.Columns
	logger  *zap.Logger
}

// NewPostgres returns a gateway over pool.
func NewPostgres(pool *pgxpool.Pool, cols domain.Columns, logger *zap.Logger) *Postgres {
	return newPostgres(repository.NewTicketRepository(pool), repository.NewUserRepository(pool), cols, logger)
}

func newPostgres(tickets repository.TicketRepository, users repository.UserRepository, cols domain.Columns, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{tickets: tickets, users: users, cols: cols.WithDefaults(), logger: logger}
}

// ListTickets returns every record oldest first.
func (p *Postgres) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := p.tickets.List(ctx)
	if err != nil {
		return nil, domain.FetchFailed(err)
	}
	return tickets, nil
}

// GetTicket returns one record.
func (p *Postgres) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	t, err := p.tickets.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ticket %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ticket %s: %w", id, err)
	}
	return t, nil
}

// CreateTicket inserts a record.
func (p *Postgres) CreateTicket(ctx context.Context, fields domain.FieldMap) (*domain.Ticket, error) {
	t, err := p.tickets.Create(ctx, normalizeAttachment(fields, p.cols))
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w: %w", domain.ErrUpdateFailed, err)
	}
	return t, nil
}

// UpdateTicket merges patch into the stored fields.
func (p *Postgres) UpdateTicket(ctx context.Context, id string, patch domain.FieldMap) (*domain.Ticket, error) {
	t, err := p.tickets.MergeFields(ctx, id, normalizeAttachment(patch, p.cols))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ticket %s: %w: %w", id, domain.ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("ticket %s: %w: %w", id, domain.ErrUpdateFailed, err)
	}
	return t, nil
}

// FindUserByEmail reads the desk_users table.
func (p *Postgres) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := p.users.GetByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// SaveUser creates or replaces an account. Used to bootstrap the first
// administrator.
func (p *Postgres) SaveUser(ctx context.Context, u *domain.User) error {
	if err := p.users.Upsert(ctx, u); err != nil {
		return fmt.Errorf("save user %s: %w", u.Email, err)
	}
	p.logger.Info("desk user saved", zap.String("email", u.Email), zap.String("role", string(u.Role)))
	return nil
}
