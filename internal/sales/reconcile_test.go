package sales

import "testing"

func TestReconcile(t *testing.T) {
	cases := []struct {
		name    string
		rec     SaleRecord
		flagged bool
	}{
		{"equal", SaleRecord{GrossSales: 100, CashSales: 40, CardSales: 60}, false},
		{"other tender", SaleRecord{GrossSales: 120, CashSales: 40, CardSales: 60}, false},
		{"rounding", SaleRecord{GrossSales: 100, CashSales: 40.005, CardSales: 60}, false},
		{"shortfall", SaleRecord{GrossSales: 90, CashSales: 40, CardSales: 60}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := Reconcile(tc.rec)
			if (m != nil) != tc.flagged {
				t.Fatalf("expected flagged=%v, got %+v", tc.flagged, m)
			}
		})
	}
	m := Reconcile(SaleRecord{BranchID: "rome", GrossSales: 90, CashSales: 40, CardSales: 60})
	if m.Tendered != "100.00" || m.GrossSales != "90.00" || m.Difference != 10 {
		t.Fatalf("unexpected mismatch %+v", m)
	}
}

func TestReconcileAllRespectsRange(t *testing.T) {
	records := []SaleRecord{
		{Date: "2024-01-01", GrossSales: 1, CashSales: 5},
		{Date: "2024-02-01", GrossSales: 1, CashSales: 5},
	}
	got := ReconcileAll(records, rng("2024-01-01", "2024-01-31"))
	if len(got) != 1 || got[0].Date != "2024-01-01" {
		t.Fatalf("unexpected %+v", got)
	}
}
