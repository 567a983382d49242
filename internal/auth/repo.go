package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anotherstories/storehq/internal/platform/httpx"
)

// Repository loads accounts and keeps the login audit trail.
type Repository interface {
	UserByEmail(ctx context.Context, email string) (*User, error)
	SaveLogin(ctx context.Context, login Login) error
	DeleteLogin(ctx context.Context, sessionID string) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// UserByEmail matches email case-insensitively.
func (r *PGRepository) UserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT id, email, first_name, last_name, role, branch_id,
			password_hash, is_active, created_at, updated_at
		FROM users WHERE lower(email) = lower($1)`, email).
		Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.BranchID,
			&u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth: user by email: %w", err)
	}
	return &u, nil
}

// SaveLogin records a sign-in.
func (r *PGRepository) SaveLogin(ctx context.Context, l Login) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO auth_sessions (id, user_id, created_at, expires_at, ip, user_agent)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))`,
		l.SessionID, l.UserID, l.At.UTC(), l.ExpiresAt.UTC(), l.IP, l.UserAgent)
	if err != nil {
		return fmt.Errorf("auth: save login: %w", err)
	}
	return nil
}

// DeleteLogin drops the audit row of a session that signed out.
func (r *PGRepository) DeleteLogin(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("auth: delete login: %w", err)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
