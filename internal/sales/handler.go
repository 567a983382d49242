package sales

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/rbac"
)

// Handler exposes sale records over JSON.
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

// MountRoutes registers sales routes. The router is expected to have
// authenticated the principal already.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAccess(rbac.AccessHQ, rbac.AccessStore))
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Post("/batch", h.createBatch)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAccess(rbac.AccessHQ))
		r.Delete("/", h.deleteBranch)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	branch, err := p.ScopeBranch(q.Get("branch"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	partial, err := ParsePartialRange(q.Get("from"), q.Get("to"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	records, err := h.service.List(r.Context(), ListQuery{Range: partial, Branch: branch})
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var rec SaleRecord
	if err := httpx.DecodeJSON(r, &rec); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.authorize(r, rec); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Create(r.Context(), rec)
	if err != nil {
		h.respondWriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) createBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Records []SaleRecord `json:"records"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, err)
		return
	}
	for _, rec := range body.Records {
		if err := h.authorize(r, rec); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	res, err := h.service.CreateBatch(r.Context(), body.Records)
	if err != nil {
		h.respondWriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) deleteBranch(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.DeleteBranch(r.Context(), r.URL.Query().Get("branch"))
	if err != nil {
		h.respondWriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *Handler) authorize(r *http.Request, rec SaleRecord) error {
	p, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		return rbac.ErrUnauthenticated
	}
	if !p.CanManageBranch(rec.BranchID) {
		return fmt.Errorf("%w: branch %s", rbac.ErrForbidden, rec.BranchID)
	}
	return nil
}

func (h *Handler) respondWriteError(w http.ResponseWriter, err error) {
	var syntaxErr *json.SyntaxError
	if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrDuplicate) && !errors.As(err, &syntaxErr) {
		h.logger.Error("write sales", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
