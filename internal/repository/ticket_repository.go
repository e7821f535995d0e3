package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskops/ticket-desk/internal/domain"
)

// TicketRepository persists schema-less ticket records as jsonb.
type TicketRepository interface {
	List(ctx context.Context) ([]domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Create(ctx context.Context, fields domain.FieldMap) (*domain.Ticket, error)
	MergeFields(ctx context.Context, id string, patch domain.FieldMap) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT id::text, fields, created_at
        FROM ticket_records
        ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id::text, fields, created_at
        FROM ticket_records WHERE id::text=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) Create(ctx context.Context, fields domain.FieldMap) (*domain.Ticket, error) {
	raw, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}
	const query = `
        INSERT INTO ticket_records (fields)
        VALUES (jsonb_strip_nulls($1::jsonb))
        RETURNING id::text, fields, created_at`
	return scanTicket(r.pool.QueryRow(ctx, query, raw))
}

// MergeFields shallow-merges patch into the stored fields. Null values
// remove the key, the way hosted backends drop empty fields.
func (r *ticketRepository) MergeFields(ctx context.Context, id string, patch domain.FieldMap) (*domain.Ticket, error) {
	raw, err := encodeFields(patch)
	if err != nil {
		return nil, err
	}
	const query = `
        UPDATE ticket_records
        SET fields = jsonb_strip_nulls(fields || $1::jsonb), updated_at = NOW()
        WHERE id::text=$2
        RETURNING id::text, fields, created_at`
	return scanTicket(r.pool.QueryRow(ctx, query, raw, id))
}

func encodeFields(fields domain.FieldMap) ([]byte, error) {
	if fields == nil {
		fields = domain.FieldMap{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return raw, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t       domain.Ticket
		raw     []byte
		created time.Time
	)
	if err := row.Scan(&t.ID, &raw, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &t.Fields); err != nil {
		return nil, fmt.Errorf("decode fields of %s: %w", t.ID, err)
	}
	if t.Fields == nil {
		t.Fields = domain.FieldMap{}
	}
	t.CreatedAt = created.UTC().Format(time.RFC3339)
	return &t, nil
}
