package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/anotherstories/storehq/internal/platform/httpx"
)

// CacheInvalidator drops cached reports after sales data changes.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service wraps ingest and maintenance of sale records.
type Service struct {
	repo     Repository
	cache    CacheInvalidator
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs a Service. cache may be nil.
func NewService(repo Repository, cache CacheInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		logger:   logger,
		validate: httpx.NewValidator(),
		now:      time.Now,
	}
}

// ListQuery filters stored records.
type ListQuery struct {
	Range  PartialRange
	Branch string
}

// CreateResult reports what was stored plus advisory reconciliation warnings.
type CreateResult struct {
	Records  []SaleRecord `json:"records"`
	Warnings []Mismatch   `json:"warnings"`
}

type recordInput struct {
	BranchID     string      `json:"branchId" validate:"required,max=64"`
	BranchName   string      `json:"branchName" validate:"max=128"`
	Date         string      `json:"date" validate:"required,datetime=2006-01-02"`
	GrossSales   float64     `json:"grossSales" validate:"gte=0"`
	CashSales    float64     `json:"cashSales" validate:"gte=0"`
	CardSales    float64     `json:"cardSales" validate:"gte=0"`
	Transactions int64       `json:"transactions" validate:"gte=0"`
	Items        []itemInput `json:"items" validate:"dive"`
}

type itemInput struct {
	Name  string  `json:"name" validate:"required"`
	Qty   float64 `json:"qty" validate:"gte=0"`
	Price float64 `json:"price" validate:"gte=0"`
}

// Range resolves the query window against the service clock.
func (s *Service) Range(p PartialRange) DateRange {
	return ClampRange(p, s.now())
}

// List returns stored records inside the clamped window.
func (s *Service) List(ctx context.Context, q ListQuery) ([]SaleRecord, error) {
	rng := s.Range(q.Range)
	if err := rng.CheckSpan(); err != nil {
		return nil, err
	}
	return s.repo.ListRange(ctx, rng, q.Branch)
}

// All returns every stored record.
func (s *Service) All(ctx context.Context) ([]SaleRecord, error) {
	return s.repo.ListAll(ctx)
}

// Branches lists the branches that have sales.
func (s *Service) Branches(ctx context.Context) ([]BranchRef, error) {
	return s.repo.DistinctBranches(ctx)
}

// Create validates and stores one record.
func (s *Service) Create(ctx context.Context, rec SaleRecord) (CreateResult, error) {
	if err := s.check(rec); err != nil {
		return CreateResult{}, err
	}
	stored, err := s.repo.Insert(ctx, rec)
	if err != nil {
		return CreateResult{}, err
	}
	s.invalidate(ctx)
	return CreateResult{Records: []SaleRecord{stored}, Warnings: s.reconcile([]SaleRecord{stored})}, nil
}

// CreateBatch validates every record before storing them together.
func (s *Service) CreateBatch(ctx context.Context, recs []SaleRecord) (CreateResult, error) {
	if len(recs) == 0 {
		return CreateResult{}, fmt.Errorf("%w: no records", httpx.ErrValidation)
	}
	for i, rec := range recs {
		if err := s.check(rec); err != nil {
			return CreateResult{}, fmt.Errorf("record %d: %w", i, err)
		}
	}
	if _, err := s.repo.InsertBatch(ctx, recs); err != nil {
		return CreateResult{}, err
	}
	s.invalidate(ctx)
	return CreateResult{Records: recs, Warnings: s.reconcile(recs)}, nil
}

// DeleteBranch removes all records of a branch.
func (s *Service) DeleteBranch(ctx context.Context, branchID string) (int64, error) {
	branchID = strings.TrimSpace(branchID)
	if branchID == "" || IsAllBranches(branchID) {
		return 0, fmt.Errorf("%w: branch is required", httpx.ErrValidation)
	}
	n, err := s.repo.DeleteByBranch(ctx, branchID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidate(ctx)
	}
	s.logger.Info("deleted branch sales", slog.String("branch_id", branchID), slog.Int64("count", n))
	return n, nil
}

// DeleteOrphans removes records of branches outside knownBranchIDs.
func (s *Service) DeleteOrphans(ctx context.Context, knownBranchIDs []string) (int64, error) {
	n, err := s.repo.DeleteOrphans(ctx, knownBranchIDs)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidate(ctx)
	}
	return n, nil
}

func (s *Service) check(rec SaleRecord) error {
	if id := strings.TrimSpace(rec.BranchID); id != "" && IsAllBranches(id) {
		return &httpx.FieldErrors{Fields: map[string]string{"branchId": ReservedBranchMessage}}
	}
	in := recordInput{
		BranchID:     rec.BranchID,
		BranchName:   rec.BranchName,
		Date:         rec.Date,
		GrossSales:   rec.GrossSales,
		CashSales:    rec.CashSales,
		CardSales:    rec.CardSales,
		Transactions: rec.Transactions,
	}
	for _, item := range rec.Items {
		in.Items = append(in.Items, itemInput{Name: item.Name, Qty: item.Qty, Price: item.Price})
	}
	return httpx.Validate(s.validate, in)
}

func (s *Service) reconcile(recs []SaleRecord) []Mismatch {
	warnings := make([]Mismatch, 0)
	for _, rec := range recs {
		if m := Reconcile(rec); m != nil {
			s.logger.Warn("sales tender mismatch",
				slog.String("branch_id", m.BranchID),
				slog.String("date", m.Date),
				slog.String("gross", m.GrossSales),
				slog.String("tendered", m.Tendered))
			warnings = append(warnings, *m)
		}
	}
	return warnings
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump report cache", slog.Any("error", err))
	}
}

// WithNow overrides the service clock for tests.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}
