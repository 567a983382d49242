package reportshttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/rbac"
	"github.com/anotherstories/storehq/internal/reports"
	"github.com/anotherstories/storehq/internal/reports/chart"
	"github.com/anotherstories/storehq/internal/reports/export"
	"github.com/anotherstories/storehq/internal/sales"
)

const requestTimeout = 2 * time.Second

// ReportService defines the report data contract used by the handler.
type ReportService interface {
	Summary(ctx context.Context, f reports.Filter) (reports.Summary, error)
	ItemTrend(ctx context.Context, f reports.Filter, item string) ([]sales.MonthRevenue, error)
	Dashboard(ctx context.Context, f reports.Filter) (reports.Dashboard, error)
	BranchOptions(ctx context.Context, f reports.Filter) ([]sales.BranchRef, error)
	Reconciliation(ctx context.Context, f reports.Filter) ([]sales.Mismatch, error)
}

// PDFService renders report content to PDF bytes.
type PDFService interface {
	RenderReport(ctx context.Context, payload export.ReportPayload) ([]byte, error)
}

// Handler serves the reports API, charts and exports.
type Handler struct {
	logger  *slog.Logger
	service ReportService
	pdf     PDFService
	rbac    rbac.Middleware
	bufPool sync.Pool
	now     func() time.Time
}

// NewHandler constructs the reports HTTP handler. pdf may be nil, in which
// case the PDF export answers 503.
func NewHandler(logger *slog.Logger, service ReportService, pdf PDFService, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:  logger,
		service: service,
		pdf:     pdf,
		rbac:    rbac,
		now:     time.Now,
	}
	h.bufPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	h.withSummary(w, r, func(sum reports.Summary) {
		httpx.JSON(w, http.StatusOK, sum)
	})
}

func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	h.withSummary(w, r, func(sum reports.Summary) {
		payload := map[string]any{"range": sum.Range, "branch": sum.Branch, "interval": sum.Interval}
		if sum.Interval == reports.Monthly {
			payload["buckets"] = sum.Monthly
		} else {
			payload["buckets"] = sum.Daily
		}
		httpx.JSON(w, http.StatusOK, payload)
	})
}

func (h *Handler) handleYoY(w http.ResponseWriter, r *http.Request) {
	h.withSummary(w, r, func(sum reports.Summary) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"range":      sum.Range,
			"priorRange": sum.Range.PriorYear(),
			"branch":     sum.Branch,
			"yoy":        sum.YoY,
		})
	})
}

func (h *Handler) handleBranches(w http.ResponseWriter, r *http.Request) {
	h.withSummary(w, r, func(sum reports.Summary) {
		httpx.JSON(w, http.StatusOK, map[string]any{"range": sum.Range, "branches": sum.Branches})
	})
}

func (h *Handler) handleTopItems(w http.ResponseWriter, r *http.Request) {
	h.withSummary(w, r, func(sum reports.Summary) {
		httpx.JSON(w, http.StatusOK, map[string]any{"range": sum.Range, "categories": sum.TopItems})
	})
}

func (h *Handler) handleItemTrend(w http.ResponseWriter, r *http.Request) {
	item := strings.TrimSpace(chi.URLParam(r, "name"))
	if item == "" {
		httpx.RespondError(w, &httpx.FieldErrors{Fields: map[string]string{"item": "is required"}})
		return
	}
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	points, err := h.service.ItemTrend(ctx, filter, item)
	if err != nil {
		h.handleServerError(w, "load item trend", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item": item, "months": points})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	dash, err := h.service.Dashboard(ctx, filter)
	if err != nil {
		h.handleServerError(w, "load dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}

func (h *Handler) handleBranchOptions(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	options, err := h.service.BranchOptions(ctx, filter)
	if err != nil {
		h.handleServerError(w, "load branch options", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"branches": options})
}

func (h *Handler) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	mismatches, err := h.service.Reconciliation(ctx, filter)
	if err != nil {
		h.handleServerError(w, "load reconciliation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"mismatches": mismatches})
}

func (h *Handler) handleTrendChart(w http.ResponseWriter, r *http.Request) {
	h.withSummary(w, r, func(sum reports.Summary) {
		var labels []string
		var gross, tx []float64
		if sum.Interval == reports.Monthly {
			for _, b := range sum.Monthly {
				labels = append(labels, b.Month)
				gross = append(gross, b.GrossSales)
				tx = append(tx, float64(b.Transactions))
			}
		} else {
			for _, b := range sum.Daily {
				labels = append(labels, b.Date[5:])
				gross = append(gross, b.GrossSales)
				tx = append(tx, float64(b.Transactions))
			}
		}
		h.writeSVG(w, func(buf *bytes.Buffer) error {
			return chart.Line(buf, chart.DefaultWidth, chart.DefaultHeight, gross, tx, labels, chart.LineOpts{
				Title:       "Gross sales trend",
				Description: fmt.Sprintf("Gross sales and transactions for %s, %s", sum.Branch, sum.Range.Key()),
				ShowDots:    true,
			})
		})
	})
}

func (h *Handler) handleBranchChart(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	dash, err := h.service.Dashboard(ctx, filter)
	if err != nil {
		h.handleServerError(w, "load tender breakdown", err)
		return
	}
	labels := make([]string, 0, len(dash.Tender))
	cash := make([]float64, 0, len(dash.Tender))
	card := make([]float64, 0, len(dash.Tender))
	for _, t := range dash.Tender {
		labels = append(labels, t.BranchName)
		cash = append(cash, t.CashSales)
		card = append(card, t.CardSales)
	}
	if len(labels) == 0 {
		labels, cash, card = []string{"No sales"}, []float64{0}, []float64{0}
	}
	h.writeSVG(w, func(buf *bytes.Buffer) error {
		return chart.Bars(buf, chart.DefaultWidth, chart.DefaultHeight, cash, card, labels, chart.BarOpts{
			Title:        "Tender by branch",
			Description:  "Cash and card sales per branch for " + dash.Range.Key(),
			SeriesALabel: "Cash",
			SeriesBLabel: "Card",
		})
	})
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	h.withSummary(w, r, func(sum reports.Summary) {
		buf := h.getBuffer()
		defer h.putBuffer(buf)
		if err := export.WriteSummaryCSV(buf, sum); err != nil {
			h.handleServerError(w, "write csv", err)
			return
		}
		h.attachment(w, "text/csv; charset=utf-8", exportName(sum, "csv"), buf.Bytes())
	})
}

func (h *Handler) handleXLSX(w http.ResponseWriter, r *http.Request) {
	h.withSummary(w, r, func(sum reports.Summary) {
		buf := h.getBuffer()
		defer h.putBuffer(buf)
		if err := export.WriteSummaryXLSX(buf, sum); err != nil {
			h.handleServerError(w, "write xlsx", err)
			return
		}
		h.attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", exportName(sum, "xlsx"), buf.Bytes())
	})
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "pdf exporter not configured")
		return
	}
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	// Gotenberg needs more than the default request budget.
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	sum, err := h.service.Summary(ctx, filter)
	if err != nil {
		h.handleServerError(w, "load summary", err)
		return
	}
	pdfBytes, err := h.pdf.RenderReport(ctx, export.ReportPayload{
		Title:       "Sales Report",
		GeneratedAt: h.now().UTC(),
		Summary:     sum,
	})
	if err != nil {
		h.handleServerError(w, "render pdf", err)
		return
	}
	h.attachment(w, "application/pdf", exportName(sum, "pdf"), pdfBytes)
}

// withSummary parses the filter, loads the summary under the request timeout
// and hands it to fn.
func (h *Handler) withSummary(w http.ResponseWriter, r *http.Request, fn func(reports.Summary)) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sum, err := h.service.Summary(ctx, filter)
	if err != nil {
		h.handleServerError(w, "load summary", err)
		return
	}
	fn(sum)
}

// parseFilter reads from, to, branch, interval and category. The branch is
// scoped by the principal: a Store manager only ever sees their own branch.
func (h *Handler) parseFilter(w http.ResponseWriter, r *http.Request) (reports.Filter, bool) {
	p, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, rbac.ErrUnauthenticated)
		return reports.Filter{}, false
	}
	q := r.URL.Query()
	branch, err := p.ScopeBranch(q.Get("branch"))
	if err != nil {
		httpx.RespondError(w, err)
		return reports.Filter{}, false
	}
	partial, err := sales.ParsePartialRange(q.Get("from"), q.Get("to"))
	if err == nil {
		err = sales.ClampRange(partial, h.now()).CheckSpan()
	}
	if err != nil {
		httpx.RespondError(w, err)
		return reports.Filter{}, false
	}
	interval, ok := reports.ParseInterval(q.Get("interval"))
	if !ok {
		httpx.RespondError(w, &httpx.FieldErrors{Fields: map[string]string{"interval": "must be one of: Daily Monthly"}})
		return reports.Filter{}, false
	}
	return reports.Filter{
		Range:    partial,
		Branch:   branch,
		Interval: interval,
		Category: strings.TrimSpace(q.Get("category")),
	}, true
}

func (h *Handler) writeSVG(w http.ResponseWriter, draw func(*bytes.Buffer) error) {
	buf := h.getBuffer()
	defer h.putBuffer(buf)
	if err := draw(buf); err != nil {
		h.handleServerError(w, "render chart", err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "private, max-age=60")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream svg", err)
	}
}

func (h *Handler) attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(body); err != nil {
		h.logError("stream export", err)
	}
}

func (h *Handler) getBuffer() *bytes.Buffer {
	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func (h *Handler) putBuffer(buf *bytes.Buffer) {
	buf.Reset()
	h.bufPool.Put(buf)
}

func (h *Handler) handleServerError(w http.ResponseWriter, op string, err error) {
	h.logError(op, err)
	if errors.Is(err, context.DeadlineExceeded) {
		httpx.Problem(w, http.StatusGatewayTimeout, "Timeout", "report took too long")
		return
	}
	httpx.RespondError(w, err)
}

func (h *Handler) logError(op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
}

func exportName(sum reports.Summary, ext string) string {
	branch := strings.ToLower(strings.ReplaceAll(sum.Branch, " ", "-"))
	return fmt.Sprintf("sales-%s-%s.%s", branch, sum.Range.Key(), ext)
}
