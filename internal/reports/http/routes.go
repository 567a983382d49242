package reportshttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/rbac"
)

// MountRoutes registers the reports endpoints. The router is expected to have
// authenticated the principal already.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export limit reached, retry in a minute")
		}),
	)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAccess(rbac.AccessHQ, rbac.AccessStore))
		r.Get("/summary", h.handleSummary)
		r.Get("/trend", h.handleTrend)
		r.Get("/yoy", h.handleYoY)
		r.Get("/branches", h.handleBranches)
		r.Get("/top-items", h.handleTopItems)
		r.Get("/items/{name}/trend", h.handleItemTrend)
		r.Get("/branch-options", h.handleBranchOptions)
		r.Get("/reconciliation", h.handleReconciliation)
		r.Get("/charts/trend.svg", h.handleTrendChart)
		r.Group(func(r chi.Router) {
			r.Use(limiter)
			r.Get("/export.csv", h.handleCSV)
			r.Get("/export.xlsx", h.handleXLSX)
			r.Get("/export.pdf", h.handlePDF)
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAccess(rbac.AccessHQ))
		r.Get("/dashboard", h.handleDashboard)
		r.Get("/charts/branches.svg", h.handleBranchChart)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if p, ok := rbac.PrincipalFromContext(r.Context()); ok && p.UserID != "" {
		return "user:" + p.UserID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
