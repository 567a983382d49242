package branches

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/sales"
)

// Service implements branch management.
type Service struct {
	repo      Repository
	logger    *slog.Logger
	validator *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, validator: httpx.NewValidator()}
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]Branch, int, error) {
	if filters.Status != "" && filters.Status != StatusActive && filters.Status != StatusClosed {
		return nil, 0, &httpx.FieldErrors{Fields: map[string]string{"status": "must be one of: Active Closed"}}
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id string) (Branch, error) {
	if strings.TrimSpace(id) == "" {
		return Branch{}, fmt.Errorf("%w: branch id is required", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create stores a new branch. Without an explicit id one is derived from the name.
func (s *Service) Create(ctx context.Context, b Branch, actor string) (Branch, error) {
	b = normalize(b)
	if err := s.validate(b); err != nil {
		return Branch{}, err
	}
	if b.ID == "" {
		b.ID = Slug(b.Name)
	}
	if b.ID == "" {
		return Branch{}, &httpx.FieldErrors{Fields: map[string]string{"id": "cannot be derived from name"}}
	}
	if sales.IsAllBranches(b.ID) {
		return Branch{}, &httpx.FieldErrors{Fields: map[string]string{"id": sales.ReservedBranchMessage}}
	}
	b.UpdatedBy = actor
	created, err := s.repo.Create(ctx, b)
	if err != nil {
		return Branch{}, err
	}
	s.logger.Info("branch created", slog.String("branch_id", created.ID), slog.String("actor", actor))
	return created, nil
}

// Update replaces the editable fields of a branch and records who changed it.
func (s *Service) Update(ctx context.Context, id string, b Branch, actor string) (Branch, error) {
	b.ID = strings.TrimSpace(id)
	b = normalize(b)
	if b.ID == "" {
		return Branch{}, fmt.Errorf("%w: branch id is required", httpx.ErrValidation)
	}
	if err := s.validate(b); err != nil {
		return Branch{}, err
	}
	b.UpdatedBy = actor
	return s.repo.Update(ctx, b)
}

// ToggleStatus flips a branch between Active and Closed.
func (s *Service) ToggleStatus(ctx context.Context, id, actor string) (Branch, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Branch{}, err
	}
	next := current.Status.Toggle()
	updated, err := s.repo.SetStatus(ctx, id, next, actor)
	if err != nil {
		return Branch{}, err
	}
	s.logger.Info("branch status changed", slog.String("branch_id", id), slog.String("status", string(next)), slog.String("actor", actor))
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: branch id is required", httpx.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

// KnownIDs lists every branch id, used to find sales of deleted branches.
func (s *Service) KnownIDs(ctx context.Context) ([]string, error) {
	return s.repo.IDs(ctx)
}

func normalize(b Branch) Branch {
	b.ID = strings.TrimSpace(b.ID)
	b.Name = strings.TrimSpace(b.Name)
	b.Email = strings.TrimSpace(b.Email)
	if b.Status == "" {
		b.Status = StatusActive
	}
	return b
}
