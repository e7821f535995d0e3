package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/deskops/ticket-desk/internal/config"
	"github.com/deskops/ticket-desk/internal/domain"
)

const baserowPageSize = 200

// Baserow stores tickets and users as rows of two Baserow tables.
type Baserow struct {
	rest *restClient
	cfg  config.BaserowConfig
	cols domain.Columns
}

type baserowPage struct {
	Count   int             `json:"count"`
	Next    *string         `json:"next"`
	Results json.RawMessage `json:"results"`
}

// NewBaserow returns a Baserow gateway.
func NewBaserow(cfg config.BaserowConfig, cols domain.Columns, client *http.Client, logger *zap.Logger) *Baserow {
	rest := newRESTClient(cfg.APIURL, "Token "+cfg.Token, client, logger, baserowErrorMessage)
	return &Baserow{rest: rest, cfg: cfg, cols: cols.WithDefaults()}
}

func baserowErrorMessage(body []byte) string {
	var payload struct {
		Error  string `json:"error"`
		Detail any    `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if s := domain.Text(payload.Detail); s != "" {
		return s
	}
	if payload.Detail != nil {
		raw, _ := json.Marshal(payload.Detail)
		return string(raw)
	}
	return payload.Error
}

func (b *Baserow) rowsPath(table string) string {
	return "/table/" + url.PathEscape(table) + "/"
}

func (b *Baserow) rowPath(table, id string) string {
	return b.rowsPath(table) + url.PathEscape(id) + "/"
}

func baserowQuery() url.Values {
	q := url.Values{}
	q.Set("user_field_names", "true")
	return q
}

// rowTicket maps a flat Baserow row to a ticket. The row itself is the
// field map, minus the bookkeeping keys.
func rowTicket(row domain.FieldMap) domain.Ticket {
	id := row.Text("id")
	created := row.Text("created_on")
	fields := row.Clone()
	delete(fields, "id")
	delete(fields, "order")
	return domain.Ticket{ID: id, Fields: fields, CreatedAt: created}
}

// ListTickets pages through every row.
func (b *Baserow) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	out := []domain.Ticket{}
	for page := 1; ; page++ {
		q := baserowQuery()
		q.Set("page", strconv.Itoa(page))
		q.Set("size", strconv.Itoa(baserowPageSize))
		body, err := b.rest.do(ctx, http.MethodGet, b.rowsPath(b.cfg.TicketsTableID), q, nil)
		if err != nil {
			return nil, domain.FetchFailed(err)
		}
		var p baserowPage
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("%w: decode rows: %w", domain.ErrFetchFailed, err)
		}
		if !isArray(p.Results) {
			return nil, fmt.Errorf("%w: results is not an array", domain.ErrFetchFailed)
		}
		var rows []domain.FieldMap
		if err := json.Unmarshal(p.Results, &rows); err != nil {
			return nil, fmt.Errorf("%w: decode rows: %w", domain.ErrFetchFailed, err)
		}
		for _, row := range rows {
			out = append(out, rowTicket(row))
		}
		if p.Next == nil || *p.Next == "" || len(rows) == 0 {
			break
		}
	}
	return out, nil
}

// GetTicket fetches one row.
func (b *Baserow) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("empty ticket id: %w", domain.ErrNotFound)
	}
	body, err := b.rest.do(ctx, http.MethodGet, b.rowPath(b.cfg.TicketsTableID, id), baserowQuery(), nil)
	if err != nil {
		return nil, classifyRead(id, err)
	}
	var row domain.FieldMap
	if err := json.Unmarshal(body, &row); err != nil || row.Text("id") == "" {
		return nil, fmt.Errorf("ticket %s: %w: unexpected response", id, domain.ErrNotFound)
	}
	t := rowTicket(row)
	return &t, nil
}

// CreateTicket inserts a row.
func (b *Baserow) CreateTicket(ctx context.Context, fields domain.FieldMap) (*domain.Ticket, error) {
	body, err := b.rest.do(ctx, http.MethodPost, b.rowsPath(b.cfg.TicketsTableID), baserowQuery(), baserowFields(fields, b.cols))
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w: %w", domain.ErrUpdateFailed, err)
	}
	return decodeBaserowWrite("new", body)
}

// UpdateTicket patches a row. Baserow answers with the full row.
func (b *Baserow) UpdateTicket(ctx context.Context, id string, patch domain.FieldMap) (*domain.Ticket, error) {
	body, err := b.rest.do(ctx, http.MethodPatch, b.rowPath(b.cfg.TicketsTableID, id), baserowQuery(), baserowFields(patch, b.cols))
	if err != nil {
		return nil, classifyWrite(id, err)
	}
	return decodeBaserowWrite(id, body)
}

// baserowFields drops attachment strings: file fields only accept uploaded
// file names.
func baserowFields(fields domain.FieldMap, cols domain.Columns) domain.FieldMap {
	if _, ok := fields[cols.Attachment].(string); !ok {
		return fields
	}
	out := fields.Clone()
	delete(out, cols.Attachment)
	return out
}

func decodeBaserowWrite(id string, body []byte) (*domain.Ticket, error) {
	var row domain.FieldMap
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, fmt.Errorf("ticket %s: %w: %w", id, domain.ErrUpdateFailed, err)
	}
	if row.Text("id") == "" {
		return nil, fmt.Errorf("ticket %s: %w: response has no id", id, domain.ErrUpdateFailed)
	}
	t := rowTicket(row)
	return &t, nil
}

// FindUserByEmail filters the users table on the email column.
func (b *Baserow) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := baserowQuery()
	q.Set("filter__"+b.cols.UserEmail+"__equal", email)
	q.Set("size", "1")
	body, err := b.rest.do(ctx, http.MethodGet, b.rowsPath(b.cfg.UsersTableID), q, nil)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	var p struct {
		Results []domain.FieldMap `json:"results"`
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	if len(p.Results) == 0 {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	row := p.Results[0]
	return userFromFields(row.Text("id"), row, b.cols), nil
}
