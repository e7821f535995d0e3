package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/ticket-desk/internal/api/dto"
	"github.com/deskops/ticket-desk/internal/auth"
	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/service"
	apperrors "github.com/deskops/ticket-desk/pkg/util/errorutil"
)

// Landing pages per role.
const (
	RedirectDashboard = "/admin"
	RedirectSubmit    = "/submit"
)

// WorkspaceDropper forgets a login's workspace.
type WorkspaceDropper interface {
	Drop(workspaceID string) bool
}

// AuthHandler exposes login and logout.
type AuthHandler struct {
	auth       *service.AuthService
	workspaces WorkspaceDropper
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, workspaces WorkspaceDropper) *AuthHandler {
	return &AuthHandler{auth: authService, workspaces: workspaces}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	redirect := RedirectSubmit
	if res.Principal.Role == domain.RoleAdmin {
		redirect = RedirectDashboard
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:       res.Token.Value,
		ExpiresAt:   res.Token.ExpiresAt,
		Email:       res.User.Email,
		Role:        res.Principal.Role,
		WorkspaceID: res.Principal.WorkspaceID,
		Redirect:    redirect,
	}})
}

// Logout handles POST /auth/logout. Tokens stay valid until they expire; the
// login's workspace is discarded.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if h.workspaces != nil {
		h.workspaces.Drop(principal.WorkspaceID)
	}
	return c.SendStatus(http.StatusNoContent)
}
