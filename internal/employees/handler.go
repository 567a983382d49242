package employees

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/rbac"
	"github.com/anotherstories/storehq/internal/shared"
)

// Handler exposes employees over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

// MountRoutes registers employee routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/birthdays", h.Birthdays)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/avatar", h.Avatar)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAccess(rbac.AccessHQ, rbac.AccessStore))
		r.Get("/", h.List)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAccess(rbac.AccessHQ))
		r.Post("/", h.Create)
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
		Branch:  strings.TrimSpace(q.Get("branch")),
	}
	items, total, err := h.service.List(r.Context(), principal(r), filters)
	if err != nil {
		h.respondError(w, "list employees", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"employees":  items,
		"pagination": shared.NewPagination(filters.Page, filters.PerPage, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get employee", err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.respondError(w, "create employee", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var changes Employee
	if err := httpx.DecodeJSON(r, &changes); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), principal(r), chi.URLParam(r, "id"), changes)
	if err != nil {
		h.respondError(w, "update employee", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete employee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Birthdays(w http.ResponseWriter, r *http.Request) {
	date := h.now().UTC()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.RespondError(w, &httpx.FieldErrors{Fields: map[string]string{"date": "must match 2006-01-02"}})
			return
		}
		date = parsed
	}
	items, err := h.service.Birthdays(r.Context(), date)
	if err != nil {
		h.respondError(w, "list birthdays", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"date": date.Format("2006-01-02"), "employees": items})
}

type avatarRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

func (h *Handler) Avatar(w http.ResponseWriter, r *http.Request) {
	var req avatarRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	upload, err := h.service.AvatarUpload(r.Context(), principal(r), chi.URLParam(r, "id"), req.FileName, req.ContentType)
	if err != nil {
		h.respondError(w, "presign avatar", err)
		return
	}
	httpx.JSON(w, http.StatusOK, upload)
}

// WithNow overrides the handler clock for tests.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func principal(r *http.Request) rbac.Principal {
	p, _ := rbac.PrincipalFromContext(r.Context())
	return p
}
