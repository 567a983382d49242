package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/anotherstories/storehq/internal/shared"
)

// Service checks credentials and keeps the login audit trail.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

var (
	decoyOnce sync.Once
	decoyHash []byte
)

// decoy is compared against when no usable account matches, so unknown
// emails cost the same bcrypt work as wrong passwords.
func decoy() []byte {
	decoyOnce.Do(func() {
		decoyHash, _ = bcrypt.GenerateFromPassword([]byte("storehq-decoy-password"), bcrypt.DefaultCost)
	})
	return decoyHash
}

// Authenticate returns the active account matching email and password, or
// shared.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.UserByEmail(ctx, email)
	if err != nil || !user.IsActive || user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(decoy(), []byte(password))
		return nil, shared.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RecordLogin stores the audit row of a new session valid for ttl.
func (s *Service) RecordLogin(ctx context.Context, sessionID, userID string, ttl time.Duration, ip, userAgent string) error {
	now := s.now()
	return s.repo.SaveLogin(ctx, Login{
		SessionID: sessionID,
		UserID:    userID,
		At:        now,
		ExpiresAt: now.Add(ttl),
		IP:        ip,
		UserAgent: userAgent,
	})
}

// RecordLogout removes the audit row of a session.
func (s *Service) RecordLogout(ctx context.Context, sessionID string) error {
	return s.repo.DeleteLogin(ctx, sessionID)
}

// HashPassword returns the bcrypt hash stored for new accounts.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
