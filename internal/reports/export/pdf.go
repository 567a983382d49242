package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/anotherstories/storehq/internal/reports"
	"github.com/anotherstories/storehq/internal/sales"
)

// ReportPayload aggregates report data destined for PDF rendering.
type ReportPayload struct {
	Title       string
	GeneratedAt time.Time
	Summary     reports.Summary
}

// PDFExporter wraps Gotenberg interactions for report exports.
type PDFExporter struct {
	Endpoint string
	Client   *http.Client
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"money":   formatMoney,
	"count":   formatCount,
	"percent": formatPercent,
	"date":    sales.FormatDate,
}).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
body{font-family:sans-serif;margin:24px;color:#0f172a}
h1{font-size:20px}h2{font-size:15px;margin-top:24px}
table{width:100%;border-collapse:collapse}
th,td{border:1px solid #ddd;padding:6px;text-align:right}
th{background:#f5f5f5}td.label,th.label{text-align:left}
</style></head><body>
<h1>{{.Title}}</h1>
<p>{{date .Summary.Range.From}} to {{date .Summary.Range.To}}, branch {{.Summary.Branch}}. Generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}.</p>
<h2>KPI Summary</h2>
<table><tbody>
<tr><td class="label">Revenue</td><td>{{money .Summary.KPIs.Revenue}}</td></tr>
<tr><td class="label">Transactions</td><td>{{count .Summary.KPIs.Transactions}}</td></tr>
<tr><td class="label">Average Ticket</td><td>{{money .Summary.KPIs.AvgTicket}}</td></tr>
<tr><td class="label">Average Transactions Per Day</td><td>{{money .Summary.KPIs.AvgTxPerDay}}</td></tr>
<tr><td class="label">Prior Year Revenue</td><td>{{money .Summary.YoY.PriorSum}}</td></tr>
<tr><td class="label">YoY Growth</td><td>{{percent .Summary.YoY.GrowthPercent}}</td></tr>
</tbody></table>
{{with .Summary.Branches}}<h2>Branches</h2>
<table><thead><tr><th class="label">Branch</th><th>Gross Sales</th><th>Transactions</th></tr></thead><tbody>
{{range .}}<tr><td class="label">{{.BranchName}}</td><td>{{money .GrossSales}}</td><td>{{count .Transactions}}</td></tr>
{{end}}</tbody></table>{{end}}
{{if .Summary.Monthly}}<h2>Monthly Trend</h2>
<table><thead><tr><th class="label">Month</th><th>Gross Sales</th><th>Transactions</th></tr></thead><tbody>
{{range .Summary.Monthly}}<tr><td class="label">{{.Month}}</td><td>{{money .GrossSales}}</td><td>{{count .Transactions}}</td></tr>
{{end}}</tbody></table>{{else if .Summary.Daily}}<h2>Daily Trend</h2>
<table><thead><tr><th class="label">Date</th><th>Gross Sales</th><th>Transactions</th></tr></thead><tbody>
{{range .Summary.Daily}}<tr><td class="label">{{.Date}}</td><td>{{money .GrossSales}}</td><td>{{count .Transactions}}</td></tr>
{{end}}</tbody></table>{{end}}
{{with .Summary.TopItems}}<h2>Top Items</h2>
<table><thead><tr><th class="label">Category</th><th class="label">Item</th><th>Revenue</th></tr></thead><tbody>
{{range .}}{{$cat := .Category}}{{range .Items}}<tr><td class="label">{{$cat}}</td><td class="label">{{.Name}}</td><td>{{money .Revenue}}</td></tr>
{{end}}{{end}}</tbody></table>{{end}}
</body></html>`))

// RenderHTML renders the document sent to Gotenberg.
func RenderHTML(w io.Writer, payload ReportPayload) error {
	if payload.Title == "" {
		payload.Title = "Sales Report"
	}
	return reportTemplate.Execute(w, payload)
}

// RenderReport sends HTML content to Gotenberg and returns the PDF bytes.
func (p *PDFExporter) RenderReport(ctx context.Context, payload ReportPayload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("pdf exporter not initialised")
	}
	endpoint := strings.TrimRight(p.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("gotenberg endpoint required")
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if err := RenderHTML(part, payload); err != nil {
		return nil, err
	}
	if err := writer.WriteField("waitDelay", "500ms"); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("gotenberg response %d: %s", resp.StatusCode, string(data))
	}
	return io.ReadAll(resp.Body)
}
