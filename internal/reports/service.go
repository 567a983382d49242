package reports

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/anotherstories/storehq/internal/sales"
)

// Interval selects the trend bucket size.
type Interval string

// Supported trend intervals.
const (
	Daily   Interval = "Daily"
	Monthly Interval = "Monthly"
)

// ParseInterval accepts the interval names case-insensitively; empty means Daily.
func ParseInterval(v string) (Interval, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "daily":
		return Daily, true
	case "monthly":
		return Monthly, true
	default:
		return "", false
	}
}

// Repository loads sale records for a window.
type Repository interface {
	ListRange(ctx context.Context, r sales.DateRange, branch string) ([]sales.SaleRecord, error)
}

// Filter scopes a report request. Branch must already be resolved against
// the caller's access.
type Filter struct {
	Range    sales.PartialRange
	Branch   string
	Interval Interval
	Category string
}

// Summary is the full reports page payload.
type Summary struct {
	Range    sales.DateRange     `json:"range"`
	Branch   string              `json:"branch"`
	Interval Interval            `json:"interval"`
	KPIs     sales.KPIs          `json:"kpis"`
	YoY      sales.YoY           `json:"yoy"`
	Daily    []sales.DayBucket   `json:"daily,omitempty"`
	Monthly  []sales.MonthBucket `json:"monthly,omitempty"`
	Branches []sales.BranchTotal `json:"branches"`
	TopItems []sales.CategoryTop `json:"topItems"`
}

// Dashboard is the HQ overview with per-branch tender totals.
type Dashboard struct {
	Range      sales.DateRange      `json:"range"`
	KPIs       sales.KPIs           `json:"kpis"`
	Tender     []sales.BranchTender `json:"tender"`
	Mismatches int                  `json:"mismatches"`
}

const loadTimeout = 10 * time.Second

// Service coordinates report computation with the cache layer.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewService wires a Repository with a Cache helper. cache may be nil.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// WithNow overrides the service clock for tests.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Cache exposes the cache so writers can bump it.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Resolve completes the filter window against the service clock.
func (s *Service) Resolve(f Filter) sales.DateRange {
	return sales.ClampRange(f.Range, s.now())
}

// Summary computes KPIs, YoY, trend, branch comparison and top items.
func (s *Service) Summary(ctx context.Context, f Filter) (Summary, error) {
	rng := s.Resolve(f)
	interval := f.Interval
	if interval == "" {
		interval = Daily
	}
	branch := normalizeBranch(f.Branch)
	key := cacheKey("summary", branch, rng.Key(), string(interval), f.Category)

	var out Summary
	err := s.cached(ctx, key, &out, func(ctx context.Context) (any, error) {
		current, prior, err := s.loadWithPrior(ctx, rng, branch)
		if err != nil {
			return nil, err
		}
		sum := Summary{
			Range:    rng,
			Branch:   branch,
			Interval: interval,
			KPIs:     sales.ComputeKPIs(current, rng, branch),
			YoY:      sales.ComputeYoYSplit(current, prior, rng),
			Branches: sales.CompareBranches(current, rng, branch),
			TopItems: filterCategory(sales.TopItemsByCategory(current, rng, branch), f.Category),
		}
		if interval == Monthly {
			sum.Monthly = sales.AggregateMonthly(current, rng)
		} else {
			sum.Daily = sales.AggregateDaily(current, rng)
		}
		return sum, nil
	})
	return out, err
}

// ItemTrend returns the monthly revenue of one item.
func (s *Service) ItemTrend(ctx context.Context, f Filter, item string) ([]sales.MonthRevenue, error) {
	rng := s.Resolve(f)
	branch := normalizeBranch(f.Branch)
	var out []sales.MonthRevenue
	err := s.cached(ctx, cacheKey("item", branch, rng.Key(), item), &out, func(ctx context.Context) (any, error) {
		records, err := s.load(ctx, rng, branch)
		if err != nil {
			return nil, err
		}
		return sales.ItemMonthlyTrend(records, rng, branch, item), nil
	})
	return out, err
}

// Dashboard returns the HQ overview of the window across all branches.
func (s *Service) Dashboard(ctx context.Context, f Filter) (Dashboard, error) {
	rng := s.Resolve(f)
	branch := normalizeBranch(f.Branch)
	var out Dashboard
	err := s.cached(ctx, cacheKey("dashboard", branch, rng.Key()), &out, func(ctx context.Context) (any, error) {
		records, err := s.load(ctx, rng, branch)
		if err != nil {
			return nil, err
		}
		return Dashboard{
			Range:      rng,
			KPIs:       sales.ComputeKPIs(records, rng, branch),
			Tender:     sales.TenderBreakdown(records, rng),
			Mismatches: len(sales.ReconcileAll(records, rng)),
		}, nil
	})
	return out, err
}

// BranchOptions lists the branches that sold inside the window, for pickers.
func (s *Service) BranchOptions(ctx context.Context, f Filter) ([]sales.BranchRef, error) {
	rng := s.Resolve(f)
	branch := normalizeBranch(f.Branch)
	var out []sales.BranchRef
	err := s.cached(ctx, cacheKey("branch-options", branch, rng.Key()), &out, func(ctx context.Context) (any, error) {
		records, err := s.load(ctx, rng, branch)
		if err != nil {
			return nil, err
		}
		return sales.BranchesFromRecords(records), nil
	})
	return out, err
}

// Reconciliation lists records whose tenders exceed gross sales. It is not
// cached so fixes show up immediately.
func (s *Service) Reconciliation(ctx context.Context, f Filter) ([]sales.Mismatch, error) {
	rng := s.Resolve(f)
	branch := normalizeBranch(f.Branch)
	records, err := s.load(ctx, rng, branch)
	if err != nil {
		return nil, err
	}
	return sales.ReconcileAll(records, rng), nil
}

// Warm computes the default summary for every branch in branches plus All.
func (s *Service) Warm(ctx context.Context, branches []string) (int, error) {
	targets := append([]string{sales.AllBranches}, branches...)
	warmed := 0
	for _, branch := range targets {
		if _, err := s.Summary(ctx, Filter{Branch: branch}); err != nil {
			return warmed, fmt.Errorf("reports: warm %s: %w", branch, err)
		}
		warmed++
	}
	return warmed, nil
}

func (s *Service) cached(ctx context.Context, base string, dest any, loader func(context.Context) (any, error)) error {
	if s.cache == nil {
		return loadInto(ctx, dest, loader, nil)
	}
	key, err := s.cache.BuildKey(ctx, base)
	if err != nil {
		s.logger.Warn("reports cache unavailable", slog.Any("error", err))
		return loadInto(ctx, dest, loader, nil)
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

// loadWithPrior fetches the window and its prior-year counterpart together.
func (s *Service) loadWithPrior(ctx context.Context, rng sales.DateRange, branch string) ([]sales.SaleRecord, []sales.SaleRecord, error) {
	var current, prior []sales.SaleRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.load(gctx, rng, branch)
		return err
	})
	g.Go(func() error {
		var err error
		prior, err = s.load(gctx, rng.PriorYear(), branch)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return current, prior, nil
}

// load deduplicates identical concurrent range queries. The shared query is
// detached from the caller that started it and bounded by loadTimeout; each
// caller still stops waiting when its own context ends.
func (s *Service) load(ctx context.Context, rng sales.DateRange, branch string) ([]sales.SaleRecord, error) {
	ch := s.group.DoChan(rng.Key()+"|"+branch, func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		records, err := s.repo.ListRange(qctx, rng, branch)
		if err != nil {
			return nil, err
		}
		return sales.FilterBranch(records, branch), nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]sales.SaleRecord), nil
	}
}

func normalizeBranch(branch string) string {
	if sales.IsAllBranches(branch) {
		return sales.AllBranches
	}
	return strings.TrimSpace(branch)
}

func filterCategory(tops []sales.CategoryTop, category string) []sales.CategoryTop {
	category = strings.TrimSpace(category)
	if category == "" {
		return tops
	}
	out := make([]sales.CategoryTop, 0, 1)
	for _, top := range tops {
		if strings.EqualFold(top.Category, category) {
			out = append(out, top)
		}
	}
	return out
}
