package main

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/anotherstories/storehq/internal/sales"
)

func TestGenerateSalesShape(t *testing.T) {
	today := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	records := generateSales(rand.New(rand.NewPCG(1, 2)), seedBranches, today, seedDays)

	if len(records) != len(seedBranches)*seedDays {
		t.Fatalf("expected %d records, got %d", len(seedBranches)*seedDays, len(records))
	}
	if records[0].Date != "2024-03-03" || records[len(records)-1].Date != "2024-04-01" {
		t.Fatalf("unexpected date span %s..%s", records[0].Date, records[len(records)-1].Date)
	}
	for _, rec := range records {
		if rec.CashSales < 500 || rec.CashSales > 1499 {
			t.Fatalf("cash out of range: %v", rec.CashSales)
		}
		if rec.CardSales < 700 || rec.CardSales > 2199 {
			t.Fatalf("card out of range: %v", rec.CardSales)
		}
		if rec.GrossSales != rec.CashSales+rec.CardSales {
			t.Fatalf("gross %v != cash+card", rec.GrossSales)
		}
		if rec.Transactions < 20 || rec.Transactions > 79 {
			t.Fatalf("transactions out of range: %d", rec.Transactions)
		}
		if len(rec.Items) < 1 || len(rec.Items) > 4 {
			t.Fatalf("unexpected item count %d", len(rec.Items))
		}
		if sales.Reconcile(rec) != nil {
			t.Fatalf("seeded record must reconcile: %+v", rec)
		}
	}
}
