package branches

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/rbac"
	"github.com/anotherstories/storehq/internal/shared"
)

// Handler exposes branches over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers branch routes. Anyone signed in may read; HQ writes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Show)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAccess(rbac.AccessHQ))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}/status", h.ToggleStatus)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	base := shared.ParseListFilters(q)
	filters := ListFilters{
		Page:    base.Page,
		PerPage: base.PerPage,
		Search:  base.Search,
		SortBy:  base.SortBy,
		SortDir: base.SortDir,
		Status:  Status(strings.TrimSpace(q.Get("status"))),
	}
	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, "list branches", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"branches":   items,
		"pagination": shared.NewPagination(filters.Page, filters.PerPage, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get branch", err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var b Branch
	if err := httpx.DecodeJSON(r, &b); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), b, actor(r))
	if err != nil {
		h.respondError(w, "create branch", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var b Branch
	if err := httpx.DecodeJSON(r, &b); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), b, actor(r))
	if err != nil {
		h.respondError(w, "update branch", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	updated, err := h.service.ToggleStatus(r.Context(), chi.URLParam(r, "id"), actor(r))
	if err != nil {
		h.respondError(w, "toggle branch status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete branch", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func actor(r *http.Request) string {
	p, _ := rbac.PrincipalFromContext(r.Context())
	if p.Email != "" {
		return p.Email
	}
	return p.UserID
}
