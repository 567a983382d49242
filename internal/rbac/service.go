package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anotherstories/storehq/internal/platform/httpx"
)

// Errors returned by the access layer.
var (
	ErrForbidden       = fmt.Errorf("rbac: %w", httpx.ErrForbidden)
	ErrUnauthenticated = fmt.Errorf("rbac: %w", httpx.ErrUnauthorized)
)

// Resolver loads the principal of a signed-in user.
type Resolver interface {
	Principal(ctx context.Context, userID string) (Principal, error)
}

// Service resolves principals from the users table.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Principal loads an active user and derives its access level.
func (s *Service) Principal(ctx context.Context, userID string) (Principal, error) {
	const query = `SELECT id, email, first_name || ' ' || last_name, role, branch_id
		FROM users WHERE id = $1 AND is_active`
	var (
		p    Principal
		role string
	)
	err := s.pool.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.Email, &p.Name, &role, &p.BranchID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Principal{}, ErrUnauthenticated
	}
	if err != nil {
		return Principal{}, err
	}
	p.Role = Role(role)
	p.Access = AccessFor(p.Role)
	return p, nil
}

var _ Resolver = (*Service)(nil)
