package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/anotherstories/storehq/internal/reports"
	"github.com/anotherstories/storehq/internal/sales"
)

// Sheet names of the workbook export.
const (
	SheetSummary  = "Summary"
	SheetTrend    = "Trend"
	SheetBranches = "Branches"
	SheetTopItems = "Top Items"
)

// WriteSummaryXLSX writes the summary as a workbook with one sheet per section.
func WriteSummaryXLSX(w io.Writer, sum reports.Summary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	for _, name := range []string{SheetTrend, SheetBranches, SheetTopItems} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	kpis := [][]any{
		{"From", sales.FormatDate(sum.Range.From)},
		{"To", sales.FormatDate(sum.Range.To)},
		{"Branch", sum.Branch},
		{"Revenue", sum.KPIs.Revenue},
		{"Transactions", sum.KPIs.Transactions},
		{"Average Ticket", sum.KPIs.AvgTicket},
		{"Average Transactions Per Day", sum.KPIs.AvgTxPerDay},
		{"Prior Year Revenue", sum.YoY.PriorSum},
		{"YoY Growth %", sum.YoY.GrowthPercent},
	}
	if err := writeSheet(f, SheetSummary, bold, []any{"Metric", "Value"}, kpis); err != nil {
		return err
	}

	trend := make([][]any, 0)
	header := []any{"Date", "Gross Sales", "Transactions"}
	if sum.Interval == reports.Monthly {
		header[0] = "Month"
		for _, b := range sum.Monthly {
			trend = append(trend, []any{b.Month, b.GrossSales, b.Transactions})
		}
	} else {
		for _, b := range sum.Daily {
			trend = append(trend, []any{b.Date, b.GrossSales, b.Transactions})
		}
	}
	if err := writeSheet(f, SheetTrend, bold, header, trend); err != nil {
		return err
	}

	branches := make([][]any, 0, len(sum.Branches))
	for _, t := range sum.Branches {
		branches = append(branches, []any{t.BranchID, t.BranchName, t.GrossSales, t.Transactions})
	}
	if err := writeSheet(f, SheetBranches, bold, []any{"Branch ID", "Branch", "Gross Sales", "Transactions"}, branches); err != nil {
		return err
	}

	items := make([][]any, 0)
	for _, top := range sum.TopItems {
		for rank, item := range top.Items {
			items = append(items, []any{top.Category, rank + 1, item.Name, item.Revenue})
		}
	}
	if err := writeSheet(f, SheetTopItems, bold, []any{"Category", "Rank", "Item", "Revenue"}, items); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	_, err = f.WriteTo(w)
	return err
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: %s row %d: %w", sheet, i+2, err)
		}
	}
	return f.SetColWidth(sheet, "A", "D", 18)
}
