package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/deskops/ticket-desk/internal/domain"
)

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute, now: time.Now}
}

// Claims describes JWT payload. The registered subject is the user id.
type Claims struct {
	Email       string      `json:"email"`
	Role        domain.Role `json:"role"`
	WorkspaceID string      `json:"wsid"`
	jwt.RegisteredClaims
}

// Principal returns the caller the claims describe.
func (c *Claims) Principal() domain.Principal {
	return domain.Principal{UserID: c.Subject, Email: c.Email, Role: c.Role, WorkspaceID: c.WorkspaceID}
}

// GenerateToken signs a token for user. Each token names a fresh workspace.
func (tm *TokenManager) GenerateToken(user domain.User) (domain.Token, domain.Principal, error) {
	now := tm.now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		Email:       user.Email,
		Role:        user.Role,
		WorkspaceID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return domain.Token{}, domain.Principal{}, err
	}
	return domain.Token{Value: tokenString, ExpiresAt: expiresAt}, claims.Principal(), nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.WorkspaceID == "" {
		return nil, errors.New("token has no workspace")
	}
	return claims, nil
}
