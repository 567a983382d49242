package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/anotherstories/storehq/internal/auth"
	"github.com/anotherstories/storehq/internal/blog"
	"github.com/anotherstories/storehq/internal/branches"
	"github.com/anotherstories/storehq/internal/employees"
	"github.com/anotherstories/storehq/internal/observability"
	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/rbac"
	reportshttp "github.com/anotherstories/storehq/internal/reports/http"
	"github.com/anotherstories/storehq/internal/sales"
	"github.com/anotherstories/storehq/internal/shared"
	"github.com/anotherstories/storehq/jobs"
)

// Pinger is a dependency probed by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics
	Readiness      map[string]Pinger

	AuthHandler     *auth.Handler
	SalesHandler    *sales.Handler
	ReportsHandler  *reportshttp.Handler
	BranchesHandler *branches.Handler
	EmployeeHandler *employees.Handler
	BlogHandler     *blog.Handler
	JobHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with storehq defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r.Use(middlewares(params, logger)...)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readinessHandler(params.Readiness, logger))

	if params.AuthHandler != nil {
		r.Route("/auth", func(r chi.Router) {
			r.Use(httprate.LimitByIP(20, time.Minute))
			params.AuthHandler.MountRoutes(r)
			r.With(params.RBACMiddleware.Authenticate).Get("/me", params.AuthHandler.Me)
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(params.RBACMiddleware.Authenticate)
		if params.SalesHandler != nil {
			r.Route("/sales", params.SalesHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.MountRoutes)
		}
		if params.BranchesHandler != nil {
			r.Route("/branches", params.BranchesHandler.MountRoutes)
		}
		if params.EmployeeHandler != nil {
			r.Route("/employees", params.EmployeeHandler.MountRoutes)
		}
		if params.BlogHandler != nil {
			r.Route("/posts", params.BlogHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	return r
}

func readinessHandler(checks map[string]Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		body := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Ping(ctx); err != nil {
				if logger != nil {
					logger.Warn("readiness check failed", slog.String("dependency", name), slog.Any("error", err))
				}
				body[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			body[name] = "ok"
		}
		httpx.JSON(w, status, body)
	}
}
