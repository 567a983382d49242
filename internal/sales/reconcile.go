package sales

import "github.com/shopspring/decimal"

// reconcileTolerance absorbs rounding of client-side totals.
var reconcileTolerance = decimal.New(1, -2)

// Mismatch describes a record whose cash and card exceed its gross sales.
type Mismatch struct {
	RecordID   string  `json:"recordId,omitempty"`
	BranchID   string  `json:"branchId"`
	Date       string  `json:"date"`
	GrossSales string  `json:"grossSales"`
	Tendered   string  `json:"tendered"`
	Difference float64 `json:"difference"`
}

// Reconcile checks that gross >= cash + card. Gross may be larger because of
// other tender types, so only a shortfall is reported. The check is advisory.
func Reconcile(rec SaleRecord) *Mismatch {
	gross := decimal.NewFromFloat(rec.GrossSales)
	tendered := decimal.NewFromFloat(rec.CashSales).Add(decimal.NewFromFloat(rec.CardSales))
	diff := tendered.Sub(gross)
	if !diff.GreaterThan(reconcileTolerance) {
		return nil
	}
	return &Mismatch{
		RecordID:   rec.ID,
		BranchID:   rec.BranchID,
		Date:       rec.Date,
		GrossSales: gross.StringFixed(2),
		Tendered:   tendered.StringFixed(2),
		Difference: diff.Round(2).InexactFloat64(),
	}
}

// ReconcileAll returns the mismatches among records inside r.
func ReconcileAll(records []SaleRecord, r DateRange) []Mismatch {
	out := make([]Mismatch, 0)
	for _, rec := range records {
		if !r.includes(rec) {
			continue
		}
		if m := Reconcile(rec); m != nil {
			out = append(out, *m)
		}
	}
	return out
}
