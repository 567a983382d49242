package blog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/rbac"
	"github.com/anotherstories/storehq/internal/shared"
)

// Handler exposes posts over JSON.
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

// MountRoutes registers post routes. Everyone reads; HQ writes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Show)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAccess(rbac.AccessHQ))
		r.Post("/", h.Create)
		r.Post("/cover", h.Cover)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r.URL.Query())
	posts, total, err := h.service.List(r.Context(), r.URL.Query().Get("category"), filters.Page, filters.PerPage)
	if err != nil {
		h.respondError(w, "list posts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"posts":      posts,
		"pagination": shared.NewPagination(filters.Page, filters.PerPage, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get post", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var p Post
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.RespondError(w, err)
		return
	}
	author := ""
	if principal, ok := rbac.PrincipalFromContext(r.Context()); ok {
		author = principal.Name
	}
	created, err := h.service.Create(r.Context(), p, author)
	if err != nil {
		h.respondError(w, "create post", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var p Post
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		h.respondError(w, "update post", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete post", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type coverRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

func (h *Handler) Cover(w http.ResponseWriter, r *http.Request) {
	var req coverRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	upload, err := h.service.CoverUpload(r.Context(), req.FileName, req.ContentType)
	if err != nil {
		h.respondError(w, "presign cover", err)
		return
	}
	httpx.JSON(w, http.StatusOK, upload)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
