package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/anotherstories/storehq/internal/reports"
	"github.com/anotherstories/storehq/internal/sales"
)

// WriteSummaryCSV writes the KPI, trend, branch and top item sections
// separated by blank lines.
func WriteSummaryCSV(w io.Writer, sum reports.Summary) error {
	sections := []func(io.Writer, reports.Summary) error{
		WriteKPICSV,
		WriteTrendCSV,
		func(w io.Writer, s reports.Summary) error { return WriteBranchesCSV(w, s.Branches) },
		func(w io.Writer, s reports.Summary) error { return WriteTopItemsCSV(w, s.TopItems) },
	}
	for i, section := range sections {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := section(w, sum); err != nil {
			return err
		}
	}
	return nil
}

// WriteKPICSV serialises the KPI block.
func WriteKPICSV(w io.Writer, sum reports.Summary) error {
	return writeRows(w, []string{"Metric", "Value"}, [][]string{
		{"From", sales.FormatDate(sum.Range.From)},
		{"To", sales.FormatDate(sum.Range.To)},
		{"Branch", sum.Branch},
		{"Revenue", formatFloat(sum.KPIs.Revenue)},
		{"Transactions", strconv.FormatInt(sum.KPIs.Transactions, 10)},
		{"Average Ticket", formatFloat(sum.KPIs.AvgTicket)},
		{"Average Transactions Per Day", formatFloat(sum.KPIs.AvgTxPerDay)},
		{"Prior Year Revenue", formatFloat(sum.YoY.PriorSum)},
		{"YoY Growth %", formatFloat(sum.YoY.GrowthPercent)},
	})
}

// WriteTrendCSV emits the daily or monthly buckets.
func WriteTrendCSV(w io.Writer, sum reports.Summary) error {
	if sum.Interval == reports.Monthly {
		rows := make([][]string, 0, len(sum.Monthly))
		for _, b := range sum.Monthly {
			rows = append(rows, []string{b.Month, formatFloat(b.GrossSales), strconv.FormatInt(b.Transactions, 10)})
		}
		return writeRows(w, []string{"Month", "Gross Sales", "Transactions"}, rows)
	}
	rows := make([][]string, 0, len(sum.Daily))
	for _, b := range sum.Daily {
		rows = append(rows, []string{b.Date, formatFloat(b.GrossSales), strconv.FormatInt(b.Transactions, 10)})
	}
	return writeRows(w, []string{"Date", "Gross Sales", "Transactions"}, rows)
}

// WriteBranchesCSV emits the branch comparison.
func WriteBranchesCSV(w io.Writer, totals []sales.BranchTotal) error {
	rows := make([][]string, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, []string{t.BranchID, t.BranchName, formatFloat(t.GrossSales), strconv.FormatInt(t.Transactions, 10)})
	}
	return writeRows(w, []string{"Branch ID", "Branch", "Gross Sales", "Transactions"}, rows)
}

// WriteTopItemsCSV emits the best sellers per category.
func WriteTopItemsCSV(w io.Writer, tops []sales.CategoryTop) error {
	rows := make([][]string, 0)
	for _, top := range tops {
		for rank, item := range top.Items {
			rows = append(rows, []string{top.Category, strconv.Itoa(rank + 1), item.Name, formatFloat(item.Revenue)})
		}
	}
	return writeRows(w, []string{"Category", "Rank", "Item", "Revenue"}, rows)
}

func writeRows(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}
