// Package gateway implements the record gateway over the supported ticket
// backends.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/deskops/ticket-desk/internal/config"
	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/persistence"
)

// Gateway is CRUD access to ticket records. Implementations classify
// failures with domain.ErrFetchFailed, domain.ErrNotFound and
// domain.ErrUpdateFailed.
type Gateway interface {
	ListTickets(ctx context.Context) ([]domain.Ticket, error)
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)
	CreateTicket(ctx context.Context, fields domain.FieldMap) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, id string, patch domain.FieldMap) (*domain.Ticket, error)
}

// Directory looks up desk accounts.
type Directory interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// UserWriter is implemented by backends that own their accounts table.
type UserWriter interface {
	SaveUser(ctx context.Context, u *domain.User) error
}

// Backend is a gateway that also serves the user directory.
type Backend interface {
	Gateway
	Directory
}

// New builds the backend selected by cfg.Gateway.Backend. pg is only used by
// the postgres backend.
func New(cfg *config.Config, cols domain.Columns, pg *persistence.Postgres, logger *zap.Logger) (Backend, error) {
	client := &http.Client{Timeout: cfg.Gateway.Timeout()}
	switch cfg.Gateway.Backend {
	case config.BackendAirtable:
		return NewAirtable(cfg.Airtable, cols, client, logger), nil
	case config.BackendBaserow:
		return NewBaserow(cfg.Baserow, cols, client, logger), nil
	case config.BackendPostgres:
		if pg == nil || pg.PoolHandle() == nil {
			return nil, fmt.Errorf("postgres backend selected without a database pool")
		}
		return NewPostgres(pg.PoolHandle(), cols, logger), nil
	case config.BackendMemory, "":
		return NewMemory(cols), nil
	default:
		return nil, fmt.Errorf("unknown gateway backend %q", cfg.Gateway.Backend)
	}
}

// AttachmentValue formats a submitted attachment reference as an attachment
// list. Bare file names get a file:// placeholder URL.
func AttachmentValue(ref string) []any {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		ref = "file://" + ref
	}
	return []any{map[string]any{"url": ref}}
}

// normalizeAttachment rewrites a string attachment in fields. An empty
// string clears the field.
func normalizeAttachment(fields domain.FieldMap, cols domain.Columns) domain.FieldMap {
	raw, ok := fields[cols.Attachment]
	if !ok {
		return fields
	}
	s, isString := raw.(string)
	if !isString {
		return fields
	}
	out := fields.Clone()
	if strings.TrimSpace(s) == "" {
		out[cols.Attachment] = nil
	} else {
		out[cols.Attachment] = AttachmentValue(s)
	}
	return out
}

func userFromFields(id string, fields domain.FieldMap, cols domain.Columns) *domain.User {
	role := domain.Role(fields.Text(cols.UserRole))
	if r, ok := domain.ParseRole(string(role)); ok {
		role = r
	}
	return &domain.User{
		ID:           id,
		Email:        fields.Text(cols.UserEmail),
		PasswordHash: fields.Text(cols.UserPassword),
		Role:         role,
	}
}
