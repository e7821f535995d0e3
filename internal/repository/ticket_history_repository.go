package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskops/ticket-desk/internal/domain"
)

// TicketHistoryRepository stores audit entries.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

// Create is idempotent per event id.
func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, event_id, change_type, actor_email, payload)
        VALUES ($1,$2,$3,$4,$5::jsonb)
        ON CONFLICT (event_id) DO UPDATE SET event_id=EXCLUDED.event_id
        RETURNING id::text, created_at`
	return r.pool.QueryRow(ctx, query,
		history.TicketID,
		history.EventID,
		history.ChangeType,
		history.ActorEmail,
		[]byte(history.Payload),
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id::text, ticket_id, event_id, change_type, actor_email, payload, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketHistory{}
	for rows.Next() {
		var (
			history domain.TicketHistory
			payload []byte
		)
		if err := rows.Scan(
			&history.ID,
			&history.TicketID,
			&history.EventID,
			&history.ChangeType,
			&history.ActorEmail,
			&payload,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		history.Payload = payload
		result = append(result, history)
	}
	return result, rows.Err()
}
