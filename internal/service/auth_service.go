package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/deskops/ticket-desk/internal/auth"
	"github.com/deskops/ticket-desk/internal/config"
	"github.com/deskops/ticket-desk/internal/domain"
	"github.com/deskops/ticket-desk/internal/gateway"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	User      domain.User
	Token     domain.Token
	Principal domain.Principal
}

// AuthService checks credentials against the backend's users table.
type AuthService struct {
	users      gateway.Directory
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users gateway.Directory, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// Login authenticates a desk account. Unknown emails and wrong passwords are
// both reported as domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Info("login rejected", zap.String("email", email))
		return nil, err
	}
	if _, ok := domain.ParseRole(string(user.Role)); !ok {
		return nil, domain.ErrForbiddenRole
	}

	token, principal, err := s.tokenMgr.GenerateToken(*user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: *user, Token: token, Principal: principal}, nil
}

// BootstrapAdmin creates the configured administrator when the backend owns
// its accounts table and the account does not exist yet.
func (s *AuthService) BootstrapAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	writer, ok := s.users.(gateway.UserWriter)
	if !ok {
		s.logger.Info("backend does not manage accounts; skipping admin bootstrap")
		return nil
	}

	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	user := &domain.User{Email: email, PasswordHash: hash, Role: domain.RoleAdmin}
	if err := writer.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("save admin: %w", err)
	}
	s.logger.Info("bootstrap administrator created", zap.String("email", email))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
