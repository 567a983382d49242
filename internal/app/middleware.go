package app

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/shared"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultRateLimit      = 120
)

// commitWriter saves the session once, just before the status line goes
// out, so a new or cleared cookie still reaches the client.
type commitWriter struct {
	http.ResponseWriter
	once   sync.Once
	commit func(http.ResponseWriter)
}

func (w *commitWriter) WriteHeader(code int) {
	w.once.Do(func() { w.commit(w.ResponseWriter) })
	w.ResponseWriter.WriteHeader(code)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	w.once.Do(func() { w.commit(w.ResponseWriter) })
	return w.ResponseWriter.Write(b)
}

func (w *commitWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func sessions(manager *shared.SessionManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := manager.Load(r.Context(), r)
			if err != nil {
				logger.Error("load session", slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "session store unavailable")
				return
			}
			r = r.WithContext(shared.ContextWithSession(r.Context(), sess))
			cw := &commitWriter{ResponseWriter: w, commit: func(out http.ResponseWriter) {
				if err := manager.Commit(r.Context(), out, r, sess); err != nil {
					logger.Warn("commit session", slog.Any("error", err))
				}
			}}
			next.ServeHTTP(cw, r)
			// handlers that never write still get their session saved
			cw.once.Do(func() { cw.commit(w) })
		})
	}
}

func csrf(manager *shared.CSRFManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			err := manager.VerifyToken(r.Context(), shared.SessionFromContext(r.Context()), r.Header.Get(shared.CSRFHeader))
			if err != nil {
				logger.Warn("csrf rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "invalid csrf token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

func securityHeaders(production bool) func(http.Handler) http.Handler {
	return secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'; img-src 'self' data:; frame-ancestors 'none'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !production,
	}).Handler
}

// middlewares returns the chain shared by every route, outermost first.
func middlewares(p RouterParams, logger *slog.Logger) chi.Middlewares {
	timeout, limit := defaultRequestTimeout, defaultRateLimit
	if p.Config != nil && p.Config.AppRequestTimeout > 0 {
		timeout = p.Config.AppRequestTimeout
	}
	if p.Config != nil && p.Config.AppRateLimit > 0 {
		limit = p.Config.AppRateLimit
	}

	chain := chi.Middlewares{middleware.RealIP, middleware.RequestID, requestLog(logger)}
	if p.Metrics != nil {
		chain = append(chain, p.Metrics.Middleware)
	}
	return append(chain,
		sessions(p.SessionManager, logger),
		middleware.Recoverer,
		middleware.Timeout(timeout),
		securityHeaders(p.Config.IsProduction()),
		middleware.Compress(5, "application/json", "text/csv", "image/svg+xml"),
		httprate.Limit(limit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		csrf(p.CSRFManager, logger),
	)
}
