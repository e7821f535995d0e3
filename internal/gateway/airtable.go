package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/deskops/ticket-desk/internal/config"
	"github.com/deskops/ticket-desk/internal/domain"
)

// Airtable stores tickets and users in two tables of one Airtable base.
type Airtable struct {
	rest *restClient
	cfg  config.AirtableConfig
	cols domain.Columns
}

type airtableRecord struct {
	ID          string          `json:"id"`
	Fields      domain.FieldMap `json:"fields"`
	CreatedTime string          `json:"createdTime"`
}

type airtableList struct {
	Records json.RawMessage `json:"records"`
	Offset  string          `json:"offset"`
}

type airtableWrite struct {
	Fields   domain.FieldMap `json:"fields"`
	Typecast bool            `json:"typecast"`
}

// NewAirtable returns an Airtable gateway.
func NewAirtable(cfg config.AirtableConfig, cols domain.Columns, client *http.Client, logger *zap.Logger) *Airtable {
	rest := newRESTClient(cfg.APIURL+"/"+url.PathEscape(cfg.BaseID), "Bearer "+cfg.Token, client, logger, airtableErrorMessage)
	return &Airtable{rest: rest, cfg: cfg, cols: cols.WithDefaults()}
}

func airtableErrorMessage(body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Error) == 0 {
		return ""
	}
	var detailed struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &detailed); err == nil {
		if detailed.Message != "" {
			return detailed.Message
		}
		return detailed.Type
	}
	var code string
	_ = json.Unmarshal(payload.Error, &code)
	return code
}

func (a *Airtable) tablePath(table string) string {
	return "/" + url.PathEscape(table)
}

func (r airtableRecord) ticket() domain.Ticket {
	return domain.Ticket{ID: r.ID, Fields: r.Fields, CreatedAt: r.CreatedTime}
}

// ListTickets pages through the configured view.
func (a *Airtable) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	var out []domain.Ticket
	offset := ""
	for {
		q := url.Values{}
		if a.cfg.View != "" {
			q.Set("view", a.cfg.View)
		}
		if offset != "" {
			q.Set("offset", offset)
		}
		body, err := a.rest.do(ctx, http.MethodGet, a.tablePath(a.cfg.TicketsTable), q, nil)
		if err != nil {
			return nil, domain.FetchFailed(err)
		}
		var page airtableList
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("%w: decode list: %w", domain.ErrFetchFailed, err)
		}
		if !isArray(page.Records) {
			return nil, fmt.Errorf("%w: records is not an array", domain.ErrFetchFailed)
		}
		var records []airtableRecord
		if err := json.Unmarshal(page.Records, &records); err != nil {
			return nil, fmt.Errorf("%w: decode records: %w", domain.ErrFetchFailed, err)
		}
		for _, r := range records {
			out = append(out, r.ticket())
		}
		if page.Offset == "" {
			break
		}
		offset = page.Offset
	}
	if out == nil {
		out = []domain.Ticket{}
	}
	return out, nil
}

// GetTicket fetches one record.
func (a *Airtable) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("empty ticket id: %w", domain.ErrNotFound)
	}
	body, err := a.rest.do(ctx, http.MethodGet, a.tablePath(a.cfg.TicketsTable)+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, classifyRead(id, err)
	}
	var rec airtableRecord
	if err := json.Unmarshal(body, &rec); err != nil || rec.ID == "" {
		return nil, fmt.Errorf("ticket %s: %w: unexpected response", id, domain.ErrNotFound)
	}
	t := rec.ticket()
	return &t, nil
}

// CreateTicket inserts a record with typecast enabled.
func (a *Airtable) CreateTicket(ctx context.Context, fields domain.FieldMap) (*domain.Ticket, error) {
	req := airtableWrite{Fields: normalizeAttachment(fields, a.cols), Typecast: true}
	body, err := a.rest.do(ctx, http.MethodPost, a.tablePath(a.cfg.TicketsTable), nil, req)
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w: %w", domain.ErrUpdateFailed, err)
	}
	return decodeAirtableWrite("new", body)
}

// UpdateTicket patches a record and returns it as stored. Airtable omits
// empty fields from the response.
func (a *Airtable) UpdateTicket(ctx context.Context, id string, patch domain.FieldMap) (*domain.Ticket, error) {
	req := airtableWrite{Fields: normalizeAttachment(patch, a.cols), Typecast: true}
	body, err := a.rest.do(ctx, http.MethodPatch, a.tablePath(a.cfg.TicketsTable)+"/"+url.PathEscape(id), nil, req)
	if err != nil {
		return nil, classifyWrite(id, err)
	}
	return decodeAirtableWrite(id, body)
}

func decodeAirtableWrite(id string, body []byte) (*domain.Ticket, error) {
	var rec airtableRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("ticket %s: %w: %w", id, domain.ErrUpdateFailed, err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("ticket %s: %w: response has no id", id, domain.ErrUpdateFailed)
	}
	if rec.Fields == nil {
		return nil, fmt.Errorf("ticket %s: %w: response has no fields", id, domain.ErrUpdateFailed)
	}
	t := rec.ticket()
	return &t, nil
}

// FindUserByEmail looks the account up with a filter formula.
func (a *Airtable) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := url.Values{}
	q.Set("filterByFormula", fmt.Sprintf("{%s}='%s'", a.cols.UserEmail, strings.ReplaceAll(email, "'", `\'`)))
	q.Set("maxRecords", "1")
	body, err := a.rest.do(ctx, http.MethodGet, a.tablePath(a.cfg.UsersTable), q, nil)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	var page struct {
		Records []airtableRecord `json:"records"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	if len(page.Records) == 0 {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	rec := page.Records[0]
	return userFromFields(rec.ID, rec.Fields, a.cols), nil
}

func classifyRead(id string, err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return fmt.Errorf("ticket %s: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("ticket %s: %w", id, err)
}

func classifyWrite(id string, err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return fmt.Errorf("ticket %s: %w: %w", id, domain.ErrNotFound, err)
	}
	return fmt.Errorf("ticket %s: %w: %w", id, domain.ErrUpdateFailed, err)
}
