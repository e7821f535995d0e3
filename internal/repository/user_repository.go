package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskops/ticket-desk/internal/domain"
)

// UserRepository defines persistence access for desk accounts.
type UserRepository interface {
	Upsert(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO desk_users (email, password_hash, role)
        VALUES (lower($1), $2, $3)
        ON CONFLICT (email) DO UPDATE SET password_hash=EXCLUDED.password_hash, role=EXCLUDED.role, updated_at=NOW()
        RETURNING id::text`

	return r.pool.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		string(user.Role),
	).Scan(&user.ID)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id::text, email, password_hash, role
        FROM desk_users WHERE email=lower($1)`

	var (
		user domain.User
		role string
	)
	if err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&role,
	); err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	return &user, nil
}
