package dto

import (
	"time"

	"github.com/deskops/ticket-desk/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints. Redirect names the page
// the role lands on.
type AuthResponse struct {
	Token       string      `json:"token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	Email       string      `json:"email"`
	Role        domain.Role `json:"role"`
	WorkspaceID string      `json:"workspace_id"`
	Redirect    string      `json:"redirect"`
}
