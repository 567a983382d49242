package sales

import (
	"fmt"
	"testing"
)

func benchRecords(branches, days int) []SaleRecord {
	start := day("2024-01-01")
	out := make([]SaleRecord, 0, branches*days)
	for d := 0; d < days; d++ {
		date := FormatDate(start.AddDate(0, 0, d))
		for b := 0; b < branches; b++ {
			out = append(out, SaleRecord{
				ID:           fmt.Sprintf("s-%d-%d", b, d),
				BranchID:     fmt.Sprintf("b%d", b),
				BranchName:   fmt.Sprintf("Branch %d", b),
				Date:         date,
				GrossSales:   float64(1000 + d + b),
				CashSales:    400,
				CardSales:    500,
				Transactions: int64(40 + b),
				Items: []SaleItem{
					{Name: "Espresso", Category: "Coffee", Qty: 20, Price: 2.5},
					{Name: "Latte", Category: "Coffee", Qty: 15, Price: 3.8},
					{Name: "Croissant", Category: "Bakery", Qty: float64(d % 12), Price: 2.2},
				},
			})
		}
	}
	return out
}

func BenchmarkAggregateDailyYear(b *testing.B) {
	records := benchRecords(5, 730)
	r := rng("2025-01-01", "2025-12-31")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if got := AggregateDaily(records, r); len(got) != 365 {
			b.Fatalf("buckets = %d", len(got))
		}
	}
}

func BenchmarkComputeYoY(b *testing.B) {
	records := benchRecords(5, 730)
	r := rng("2025-01-01", "2025-12-31")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if yoy := ComputeYoY(records, r); yoy.PriorSum == 0 {
			b.Fatal("prior window empty")
		}
	}
}

func BenchmarkTopItemsByCategory(b *testing.B) {
	records := benchRecords(5, 365)
	r := rng("2024-01-01", "2024-12-30")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if got := TopItemsByCategory(records, r, AllBranches); len(got) != 2 {
			b.Fatalf("categories = %d", len(got))
		}
	}
}
