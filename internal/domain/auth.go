package domain

import "time"

// Principal is the authenticated caller of the desk.
type Principal struct {
	UserID      string
	Email       string
	Role        Role
	WorkspaceID string
}

// IsAdmin reports whether the principal may use the dashboard.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Token represents issued authentication token metadata.
type Token struct {
	Value     string
	ExpiresAt time.Time
}
