package export

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// formatFloat renders a plain two-decimal amount for machine readable files.
func formatFloat(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// formatMoney rounds to cents and groups thousands for documents.
func formatMoney(v float64) string {
	cents := decimal.NewFromFloat(v).Round(2)
	return printer.Sprintf("%.2f", cents.InexactFloat64())
}

func formatCount(v int64) string {
	return printer.Sprintf("%d", v)
}

func formatPercent(v float64) string {
	return printer.Sprintf("%.1f%%", decimal.NewFromFloat(v).Round(1).InexactFloat64())
}
