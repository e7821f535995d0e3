package domain

import "strings"

// Role grants access to parts of the desk.
type Role string

const (
	RoleAdmin Role = "Administrateur"
	RoleUser  Role = "Utilisateur"
)

// ParseRole resolves s to a known role.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.EqualFold(s, string(RoleAdmin)):
		return RoleAdmin, true
	case strings.EqualFold(s, string(RoleUser)):
		return RoleUser, true
	}
	return "", false
}

// User is an account from the backend users table.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
}
