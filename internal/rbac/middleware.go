package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/shared"
)

// Middleware wires authentication and access guards for HTTP handlers.
type Middleware struct {
	Resolver Resolver
	Logger   *slog.Logger
}

// Authenticate resolves the session user into a Principal and stores it in
// the request context. Requests without a signed-in user get 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(r)
		if !ok {
			httpx.RespondError(w, ErrUnauthenticated)
			return
		}
		p, err := m.Resolver.Principal(r.Context(), userID)
		if err != nil {
			if !errors.Is(err, ErrUnauthenticated) && m.Logger != nil {
				m.Logger.Error("rbac resolve principal", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}

// RequireAccess lets the request through when the principal holds one of levels.
func (m Middleware) RequireAccess(levels ...Access) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, ErrUnauthenticated)
				return
			}
			if !hasAccess(p, levels) {
				if m.Logger != nil {
					m.Logger.Warn("rbac access denied",
						slog.String("user_id", p.UserID),
						slog.String("access", string(p.Access)),
						slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentUserID(r *http.Request) (string, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return "", false
	}
	id := strings.TrimSpace(sess.User())
	return id, id != ""
}

func hasAccess(p Principal, levels []Access) bool {
	if len(levels) == 0 {
		return true
	}
	for _, level := range levels {
		if p.Access == level {
			return true
		}
	}
	return false
}
