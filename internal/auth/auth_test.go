package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskops/ticket-desk/internal/domain"
	apperrors "github.com/deskops/ticket-desk/pkg/util/errorutil"
)

var admin = domain.User{ID: "usr1", Email: "admin@example.com", Role: domain.RoleAdmin}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	tok, principal, err := tm.GenerateToken(admin)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Value)
	assert.NotEmpty(t, principal.WorkspaceID)

	claims, err := tm.ParseToken(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, principal, claims.Principal())
	assert.Equal(t, "usr1", claims.Subject)
}

func TestTokenManager_FreshWorkspacePerToken(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	_, a, err := tm.GenerateToken(admin)
	require.NoError(t, err)
	_, b, err := tm.GenerateToken(admin)
	require.NoError(t, err)
	assert.NotEqual(t, a.WorkspaceID, b.WorkspaceID)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tok, _, err := tm.GenerateToken(admin)
	require.NoError(t, err)

	_, err = NewTokenManager("other", 1).ParseToken(tok.Value)
	assert.Error(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.ParseToken(tok.Value)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret"))
	assert.ErrorIs(t, ComparePassword(hash, "nope"), domain.ErrInvalidCredentials)
	assert.ErrorIs(t, ComparePassword("plaintext", "plaintext"), domain.ErrInvalidCredentials)
}

func newApp(tm *TokenManager, guards ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		if fe, ok := err.(*fiber.Error); ok {
			return c.SendStatus(fe.Code)
		}
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	handlers := append([]fiber.Handler{NewAuthMiddleware(tm).Handle}, guards...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		if !ok {
			return c.SendStatus(http.StatusInternalServerError)
		}
		return c.SendString(p.Email)
	})
	app.Get("/", handlers...)
	return app
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	adminTok, _, err := tm.GenerateToken(admin)
	require.NoError(t, err)
	userTok, _, err := tm.GenerateToken(domain.User{ID: "usr2", Email: "u@example.com", Role: domain.RoleUser})
	require.NoError(t, err)

	app := newApp(tm, RequireRole(domain.RoleAdmin))
	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"missing header", "/", "", http.StatusUnauthorized},
		{"wrong scheme", "/", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "/", "Bearer abc", http.StatusUnauthorized},
		{"admin", "/", "Bearer " + adminTok.Value, http.StatusOK},
		{"query token", "/?access_token=" + adminTok.Value, "", http.StatusOK},
		{"user forbidden", "/", "Bearer " + userTok.Value, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRequireAuthenticated_AnyRole(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	userTok, _, err := tm.GenerateToken(domain.User{ID: "usr2", Email: "u@example.com", Role: domain.RoleUser})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+userTok.Value)
	resp, err := newApp(tm, RequireAuthenticated()).Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
