package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/anotherstories/storehq/internal/sales"
)

// SalesStore is the part of the sales service used by the CLI.
type SalesStore interface {
	CreateBatch(ctx context.Context, recs []sales.SaleRecord) (sales.CreateResult, error)
	All(ctx context.Context) ([]sales.SaleRecord, error)
}

// SalesCLI imports and exports sale records.
type SalesCLI struct {
	store SalesStore
}

// NewSalesCLI constructs the helper.
func NewSalesCLI(store SalesStore) *SalesCLI {
	return &SalesCLI{store: store}
}

// ImportOptions configures "sales import".
type ImportOptions struct {
	File       string
	Source     io.Reader
	Format     string
	Apply      bool
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ImportSummary is printed after a dry run or an apply.
type ImportSummary struct {
	Mode       string   `json:"mode"`
	Records    int      `json:"records"`
	Branches   []string `json:"branches"`
	From       string   `json:"from,omitempty"`
	To         string   `json:"to,omitempty"`
	GrossSales string   `json:"grossSales"`
	Invalid    []string `json:"invalid,omitempty"`
	Mismatches int      `json:"mismatches"`
	Stored     int      `json:"stored,omitempty"`
}

// ImportCommand parses a CSV or JSON lines file. Without Apply it only prints
// a summary; with Apply every record is stored in one batch.
func (c *SalesCLI) ImportCommand(ctx context.Context, opts ImportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	source := opts.Source
	if source == nil {
		if strings.TrimSpace(opts.File) == "" {
			fmt.Fprintln(opts.Stderr, "sales import: --file is required")
			return 2
		}
		f, err := os.Open(opts.File)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "sales import: %v\n", err)
			return 1
		}
		defer f.Close()
		source = f
	}
	format := strings.ToLower(opts.Format)
	if format == "" {
		format = detectFormat(opts.File)
	}

	var (
		records []sales.SaleRecord
		err     error
	)
	switch format {
	case "csv":
		records, err = ParseCSV(source)
	case "jsonl", "ndjson", "json":
		records, err = ParseJSONLines(source)
	default:
		fmt.Fprintf(opts.Stderr, "sales import: unsupported format %q (expected csv or jsonl)\n", format)
		return 2
	}
	if err != nil {
		fmt.Fprintf(opts.Stderr, "sales import: %v\n", err)
		return 1
	}

	summary := summarize(records)
	summary.Mode = "dry"
	if opts.Apply {
		summary.Mode = "apply"
	}
	if len(summary.Invalid) > 0 {
		writeImportSummary(opts, summary)
		fmt.Fprintf(opts.Stderr, "sales import: %d invalid record(s)\n", len(summary.Invalid))
		return 1
	}
	if opts.Apply && len(records) > 0 {
		result, err := c.store.CreateBatch(ctx, records)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "sales import: apply failed: %v\n", err)
			return 1
		}
		summary.Stored = len(result.Records)
	}
	writeImportSummary(opts, summary)
	return 0
}

// ExportCommand writes every stored record as one JSON document per line.
func (c *SalesCLI) ExportCommand(ctx context.Context, out io.Writer) error {
	records, err := c.store.All(ctx)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ParseJSONLines decodes one record per non-empty line. Amounts are coerced
// the same way as API payloads.
func ParseJSONLines(r io.Reader) ([]sales.SaleRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	records := make([]sales.SaleRecord, 0)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}
		var rec sales.SaleRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// ParseCSV reads a header row followed by one record per row. Known columns
// are id, branchId, branchName, date, grossSales, cashSales, cardSales and
// transactions; snake_case variants are accepted. Line items are not
// supported in CSV.
func ParseCSV(r io.Reader) ([]sales.SaleRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []sales.SaleRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = canonicalColumn(col)
	}
	for _, required := range []string{"branchId", "date"} {
		found := false
		for _, col := range columns {
			if col == required {
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("missing required column %s", required)
		}
	}

	records := make([]sales.SaleRecord, 0)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		raw := make(map[string]any, len(columns))
		for i, col := range columns {
			if col == "" || i >= len(row) {
				continue
			}
			raw[col] = row[i]
		}
		records = append(records, sales.DecodeRecord(raw))
	}
	return records, nil
}

func canonicalColumn(name string) string {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.TrimSpace(name)))
	switch key {
	case "id":
		return "id"
	case "branchid", "branch":
		return "branchId"
	case "branchname":
		return "branchName"
	case "date", "saledate":
		return "date"
	case "grosssales", "gross":
		return "grossSales"
	case "cashsales", "cash":
		return "cashSales"
	case "cardsales", "card":
		return "cardSales"
	case "transactions":
		return "transactions"
	default:
		return ""
	}
}

func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv"
	default:
		return "jsonl"
	}
}

func summarize(records []sales.SaleRecord) ImportSummary {
	summary := ImportSummary{Records: len(records), Branches: []string{}}
	gross := decimal.Zero
	seen := make(map[string]struct{})
	for i, rec := range records {
		day, ok := sales.ParseDate(rec.Date)
		if strings.TrimSpace(rec.BranchID) == "" || !ok {
			summary.Invalid = append(summary.Invalid, fmt.Sprintf("record %d: branchId and a YYYY-MM-DD date are required", i+1))
			continue
		}
		date := sales.FormatDate(day)
		if summary.From == "" || date < summary.From {
			summary.From = date
		}
		if date > summary.To {
			summary.To = date
		}
		if _, ok := seen[rec.BranchID]; !ok {
			seen[rec.BranchID] = struct{}{}
			summary.Branches = append(summary.Branches, rec.BranchID)
		}
		gross = gross.Add(decimal.NewFromFloat(rec.GrossSales))
		if sales.Reconcile(rec) != nil {
			summary.Mismatches++
		}
	}
	sort.Strings(summary.Branches)
	summary.GrossSales = gross.StringFixed(2)
	return summary
}

func writeImportSummary(opts ImportOptions, summary ImportSummary) {
	if opts.JSONOutput {
		_ = json.NewEncoder(opts.Stdout).Encode(summary)
		return
	}
	fmt.Fprintf(opts.Stdout, "Sales import (%s): %d record(s)\n", summary.Mode, summary.Records)
	if summary.From != "" {
		fmt.Fprintf(opts.Stdout, "Dates: %s..%s\n", summary.From, summary.To)
	}
	fmt.Fprintf(opts.Stdout, "Branches: %s\n", strings.Join(summary.Branches, ", "))
	fmt.Fprintf(opts.Stdout, "Gross sales: %s\n", summary.GrossSales)
	if summary.Mismatches > 0 {
		fmt.Fprintf(opts.Stdout, "Tender mismatches: %d\n", summary.Mismatches)
	}
	for _, problem := range summary.Invalid {
		fmt.Fprintf(opts.Stdout, " - %s\n", problem)
	}
	if summary.Mode == "apply" {
		fmt.Fprintf(opts.Stdout, "Stored: %d\n", summary.Stored)
	} else {
		fmt.Fprintln(opts.Stdout, "Dry run, nothing stored. Re-run with --apply to insert.")
	}
}
