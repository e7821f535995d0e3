package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskops/ticket-desk/internal/config"
	"github.com/deskops/ticket-desk/internal/domain"
)

func newBaserowServer(t *testing.T, handler http.HandlerFunc) *Baserow {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.BaserowConfig{
		APIURL:         srv.URL + "/api/database/rows",
		Token:          "brw",
		TicketsTableID: "101",
		UsersTableID:   "102",
	}
	return NewBaserow(cfg, cols, srv.Client(), zap.NewNop())
}

func TestBaserow_ListTicketsFollowsNext(t *testing.T) {
	b := newBaserowServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token brw", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/database/rows/table/101/", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("user_field_names"))
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = fmt.Fprintf(w, `{"count":2,"next":"http://%s/next","results":[{"id":1,"order":"1.0","Status":{"id":3,"value":"New"},"created_on":"2023-01-10T10:00:00Z"}]}`, r.Host)
		default:
			_, _ = io.WriteString(w, `{"count":2,"next":null,"results":[{"id":2,"Status":{"id":4,"value":"Closed"}}]}`)
		}
	})

	tickets, err := b.ListTickets(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "1", tickets[0].ID)
	assert.Equal(t, "New", tickets[0].Status(cols))
	assert.Equal(t, "2023-01-10T10:00:00Z", tickets[0].CreatedAt)
	assert.False(t, tickets[0].Fields.Has("order"))
	assert.Equal(t, "Closed", tickets[1].Status(cols))
}

func TestBaserow_ListTicketsNotAnArray(t *testing.T) {
	b := newBaserowServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"results":{"id":1}}`)
	})
	_, err := b.ListTickets(context.Background())
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
}

func TestBaserow_ErrorDetail(t *testing.T) {
	b := newBaserowServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"ERROR_REQUEST_BODY_VALIDATION","detail":"Invalid select option"}`)
	})
	_, err := b.UpdateTicket(context.Background(), "7", domain.FieldMap{cols.Status: "Nope"})
	assert.ErrorIs(t, err, domain.ErrUpdateFailed)
	assert.Contains(t, err.Error(), "Invalid select option")
}

func TestBaserow_GetAndUpdate(t *testing.T) {
	b := newBaserowServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/database/rows/table/101/7/", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"id":7,"Status":"Pending","Detailed Description":"Wifi drops"}`)
		case http.MethodPatch:
			var patch map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			assert.Equal(t, map[string]any{"Status": "Resolved"}, patch)
			_, _ = io.WriteString(w, `{"id":7,"Status":"Resolved","Detailed Description":"Wifi drops"}`)
		}
	})

	got, err := b.GetTicket(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Pending", got.Status(cols))

	got, err = b.UpdateTicket(context.Background(), "7", domain.FieldMap{cols.Status: "Resolved"})
	require.NoError(t, err)
	assert.Equal(t, "7", got.ID)
	assert.Equal(t, "Resolved", got.Status(cols))
}

func TestBaserow_GetTicketNotFound(t *testing.T) {
	b := newBaserowServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"ERROR_ROW_DOES_NOT_EXIST","detail":"The row 9 does not exist."}`)
	})
	_, err := b.GetTicket(context.Background(), "9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBaserow_FindUserByEmail(t *testing.T) {
	b := newBaserowServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/database/rows/table/102/", r.URL.Path)
		assert.Equal(t, "ops@example.com", r.URL.Query().Get("filter__User mail__equal"))
		_, _ = io.WriteString(w, `{"results":[{"id":5,"User mail":"ops@example.com","Password":"h","Role":{"value":"Utilisateur"}}]}`)
	})
	u, err := b.FindUserByEmail(context.Background(), "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, "5", u.ID)
	assert.Equal(t, domain.RoleUser, u.Role)
}
