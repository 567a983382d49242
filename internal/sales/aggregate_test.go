package sales

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, ok := ParseDate(s)
	if !ok {
		panic("bad date " + s)
	}
	return t
}

func rng(from, to string) DateRange {
	return DateRange{From: day(from), To: day(to)}
}

func rec(branch, date string, gross float64, tx int64) SaleRecord {
	return SaleRecord{BranchID: branch, BranchName: branch, Date: date, GrossSales: gross, Transactions: tx}
}

func TestAggregateDailyZeroFills(t *testing.T) {
	records := []SaleRecord{
		rec("paris", "2024-01-01", 100, 2),
		rec("paris", "2024-01-02", 200, 3),
		rec("paris", "2024-01-05", 50, 1),
		rec("paris", "2024-01-06", 999, 9),
	}
	got := AggregateDaily(records, rng("2024-01-01", "2024-01-05"))
	want := []float64{100, 200, 0, 0, 50}
	if len(got) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(got))
	}
	for i, b := range got {
		if b.GrossSales != want[i] {
			t.Fatalf("bucket %d (%s): expected %v, got %v", i, b.Date, want[i], b.GrossSales)
		}
	}
	if got[0].Date != "2024-01-01" || got[4].Date != "2024-01-05" {
		t.Fatalf("unexpected keys %s..%s", got[0].Date, got[4].Date)
	}
}

func TestAggregateDailyConservesTotals(t *testing.T) {
	records := []SaleRecord{
		rec("paris", "2024-02-28", 10, 1),
		rec("rome", "2024-02-29", 20, 2),
		rec("rome", "2024-03-01", 30, 3),
		{BranchID: "bad", Date: "not-a-date", GrossSales: 1000},
	}
	r := rng("2024-02-28", "2024-03-01")
	var gross float64
	var tx int64
	for _, b := range AggregateDaily(records, r) {
		gross += b.GrossSales
		tx += b.Transactions
	}
	if gross != 60 || tx != 6 {
		t.Fatalf("expected 60/6, got %v/%d", gross, tx)
	}
}

func TestAggregateMonthlyPartialEdges(t *testing.T) {
	records := []SaleRecord{
		rec("paris", "2024-01-10", 1, 1),
		rec("paris", "2024-01-20", 2, 1),
		rec("paris", "2024-03-05", 4, 1),
		rec("paris", "2024-03-25", 8, 1),
	}
	got := AggregateMonthly(records, rng("2024-01-15", "2024-03-10"))
	want := []MonthBucket{
		{Month: "2024-01", GrossSales: 2, Transactions: 1},
		{Month: "2024-02"},
		{Month: "2024-03", GrossSales: 4, Transactions: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected buckets %+v", got)
	}
}

func TestComputeYoY(t *testing.T) {
	records := []SaleRecord{
		rec("paris", "2024-03-01", 300, 1),
		rec("paris", "2023-03-01", 200, 1),
	}
	got := ComputeYoY(records, rng("2024-03-01", "2024-03-31"))
	if got.CurrentSum != 300 || got.PriorSum != 200 || got.GrowthPercent != 50 {
		t.Fatalf("unexpected yoy %+v", got)
	}

	empty := ComputeYoY(records[:1], rng("2024-03-01", "2024-03-31"))
	if empty.GrowthPercent != 0 {
		t.Fatalf("growth without prior must be 0, got %v", empty.GrowthPercent)
	}
}

func TestComputeYoYLeapDay(t *testing.T) {
	r := rng("2024-02-29", "2024-02-29")
	prior := r.PriorYear()
	if FormatDate(prior.From) != "2023-03-01" {
		t.Fatalf("leap day shifts like AddDate, got %s", FormatDate(prior.From))
	}
}

func TestCompareBranchesOrdering(t *testing.T) {
	records := []SaleRecord{
		rec("rome", "2024-01-01", 100, 1),
		rec("paris", "2024-01-01", 300, 2),
		rec("vienna", "2024-01-01", 100, 1),
		rec("rome", "2024-01-02", 50, 1),
		{BranchID: "paris", BranchName: "Paris renamed", Date: "2024-01-02", GrossSales: 1},
	}
	got := CompareBranches(records, rng("2024-01-01", "2024-01-02"), AllBranches)
	if len(got) != 3 {
		t.Fatalf("expected 3 branches, got %d", len(got))
	}
	if got[0].BranchID != "paris" || got[0].GrossSales != 301 || got[0].BranchName != "paris" {
		t.Fatalf("unexpected first %+v", got[0])
	}
	if got[1].BranchID != "rome" || got[2].BranchID != "vienna" {
		t.Fatalf("unexpected order %+v", got)
	}

	only := CompareBranches(records, rng("2024-01-01", "2024-01-02"), "vienna")
	if len(only) != 1 || only[0].BranchID != "vienna" {
		t.Fatalf("branch filter failed: %+v", only)
	}
}

func TestTopItemsByCategory(t *testing.T) {
	items := func(entries ...SaleItem) SaleRecord {
		r := rec("paris", "2024-01-01", 0, 0)
		r.Items = entries
		return r
	}
	records := []SaleRecord{
		items(
			SaleItem{Name: "Scarf", Category: "Accessories", Qty: 1, Price: 50},
			SaleItem{Name: "Coat", Category: "Outerwear", Qty: 1, Price: 300, ImageURL: "a.png"},
			SaleItem{Name: "Belt", Category: "Accessories", Qty: 2, Price: 25},
		),
		items(
			SaleItem{Name: "Hat", Category: "Accessories", Qty: 1, Price: 80},
			SaleItem{Name: "Gloves", Category: "Accessories", Qty: 1, Price: 10},
			SaleItem{Name: "Coat", Category: "Outerwear", Qty: 1, Price: 300, ImageURL: "b.png"},
		),
	}
	got := TopItemsByCategory(records, rng("2024-01-01", "2024-01-01"), AllBranches)
	if len(got) != 2 || got[0].Category != "Accessories" || got[1].Category != "Outerwear" {
		t.Fatalf("unexpected categories %+v", got)
	}
	acc := got[0].Items
	if len(acc) != 3 {
		t.Fatalf("expected top 3, got %d", len(acc))
	}
	// Scarf and Belt tie at 50; Scarf was observed first.
	names := []string{acc[0].Name, acc[1].Name, acc[2].Name}
	if !reflect.DeepEqual(names, []string{"Hat", "Scarf", "Belt"}) {
		t.Fatalf("unexpected ranking %v", names)
	}
	coat := got[1].Items[0]
	if coat.Revenue != 600 || coat.ImageURL != "b.png" {
		t.Fatalf("unexpected coat %+v", coat)
	}
}

func TestItemMonthlyTrend(t *testing.T) {
	records := []SaleRecord{
		{BranchID: "paris", Date: "2024-03-02", Items: []SaleItem{{Name: "Coat", Qty: 1, Price: 100}}},
		{BranchID: "paris", Date: "2024-01-02", Items: []SaleItem{{Name: "Coat", Qty: 2, Price: 100}}},
		{BranchID: "rome", Date: "2024-02-02", Items: []SaleItem{{Name: "Coat", Qty: 1, Price: 100}}},
		{BranchID: "paris", Date: "2024-02-02", Items: []SaleItem{{Name: "Hat", Qty: 1, Price: 10}}},
	}
	got := ItemMonthlyTrend(records, rng("2024-01-01", "2024-03-31"), "paris", "Coat")
	want := []MonthRevenue{{Month: "2024-01", Revenue: 200}, {Month: "2024-03", Revenue: 100}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected trend %+v", got)
	}
}

func TestComputeKPIs(t *testing.T) {
	records := []SaleRecord{
		rec("paris", "2024-01-01", 100, 4),
		rec("paris", "2024-01-03", 50, 1),
	}
	got := ComputeKPIs(records, rng("2024-01-01", "2024-01-05"), AllBranches)
	if got.Revenue != 150 || got.Transactions != 5 || got.AvgTicket != 30 || got.AvgTxPerDay != 1 || got.Days != 5 {
		t.Fatalf("unexpected kpis %+v", got)
	}
	zero := ComputeKPIs(nil, rng("2024-01-01", "2024-01-01"), AllBranches)
	if zero.AvgTicket != 0 || zero.AvgTxPerDay != 0 || zero.Days != 1 {
		t.Fatalf("unexpected empty kpis %+v", zero)
	}
}

func TestClampRange(t *testing.T) {
	today := time.Date(2024, 5, 31, 18, 30, 0, 0, time.UTC)
	from := day("2024-05-01")
	to := day("2024-04-01")

	def := ClampRange(PartialRange{}, today)
	if FormatDate(def.From) != "2024-05-02" || FormatDate(def.To) != "2024-05-31" || def.Days() != 30 {
		t.Fatalf("unexpected default %s", def.Key())
	}
	onlyFrom := ClampRange(PartialRange{From: &from}, today)
	if FormatDate(onlyFrom.To) != "2024-05-31" {
		t.Fatalf("unexpected only-from %s", onlyFrom.Key())
	}
	onlyTo := ClampRange(PartialRange{To: &to}, today)
	if onlyTo != def {
		t.Fatalf("only-to should give the default window, got %s", onlyTo.Key())
	}
	swapped := ClampRange(PartialRange{From: &from, To: &to}, today)
	if FormatDate(swapped.From) != "2024-04-01" || FormatDate(swapped.To) != "2024-05-01" {
		t.Fatalf("reversed range not swapped: %s", swapped.Key())
	}
}

func TestAggregationIsPure(t *testing.T) {
	records := []SaleRecord{
		{BranchID: "paris", BranchName: "Paris", Date: "2024-01-01", GrossSales: 10, Transactions: 1,
			Items: []SaleItem{{Name: "Hat", Category: "Acc", Qty: 1, Price: 10}}},
	}
	snapshot := append([]SaleRecord(nil), records...)
	r := rng("2024-01-01", "2024-01-02")
	first := TopItemsByCategory(records, r, AllBranches)
	second := TopItemsByCategory(records, r, AllBranches)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ between runs")
	}
	first[0].Items[0].Revenue = -1
	if TopItemsByCategory(records, r, AllBranches)[0].Items[0].Revenue != 10 {
		t.Fatalf("outputs must not share state")
	}
	if !reflect.DeepEqual(records, snapshot) {
		t.Fatalf("input mutated")
	}
	if !reflect.DeepEqual(AggregateDaily(records, r), AggregateDaily(records, r)) {
		t.Fatalf("daily aggregation not deterministic")
	}
}

func TestBranchesFromRecordsAndTender(t *testing.T) {
	records := []SaleRecord{
		{BranchID: "vienna", BranchName: "Vienna", Date: "2024-01-01", GrossSales: 30, CashSales: 10, CardSales: 20, Transactions: 3},
		{BranchID: "amsterdam", BranchName: "", Date: "2024-01-01", GrossSales: 5, CashSales: 5},
		{BranchID: "amsterdam", BranchName: "Amsterdam", Date: "2024-01-02", GrossSales: 5, CardSales: 5},
	}
	refs := BranchesFromRecords(records)
	want := []BranchRef{{ID: "vienna", Name: "Vienna"}, {ID: "amsterdam", Name: "Amsterdam"}}
	if !reflect.DeepEqual(refs, want) {
		t.Fatalf("unexpected refs %+v", refs)
	}
	tender := TenderBreakdown(records, rng("2024-01-01", "2024-01-02"))
	if len(tender) != 2 || tender[0].BranchID != "amsterdam" {
		t.Fatalf("unexpected order %+v", tender)
	}
	if tender[0].CashSales != 5 || tender[0].CardSales != 5 || tender[1].GrossSales != 30 {
		t.Fatalf("unexpected totals %+v", tender)
	}
	if math.Abs(tender[1].CashSales+tender[1].CardSales-tender[1].GrossSales) > 0 {
		t.Fatalf("vienna tender should match gross")
	}
}

func TestDaysCountsLongSpansExactly(t *testing.T) {
	r := rng("1700-01-01", "2025-01-01")
	if got, want := r.Days(), len(AggregateDaily(nil, r)); got != want {
		t.Fatalf("days %d, daily buckets %d", got, want)
	}
	if got := rng("2024-02-28", "2024-03-01").Days(); got != 3 {
		t.Fatalf("leap span: got %d days", got)
	}
	if err := r.CheckSpan(); err == nil {
		t.Fatalf("expected %s to exceed the span limit", r.Key())
	}
	if err := rng("2015-01-01", "2024-12-31").CheckSpan(); err != nil {
		t.Fatalf("ten year window rejected: %v", err)
	}
}

func TestComputeYoYSplitOverlappingWindows(t *testing.T) {
	a := SaleRecord{BranchID: "paris", Date: "2023-06-01", GrossSales: 100}
	b := SaleRecord{BranchID: "paris", Date: "2024-06-01", GrossSales: 100}
	r := rng("2023-01-01", "2024-12-31")

	// The prior window 2022-01-01..2023-12-31 overlaps r; a sits in both loads.
	got := ComputeYoYSplit([]SaleRecord{a, b}, []SaleRecord{a}, r)
	want := YoY{CurrentSum: 200, PriorSum: 100, GrowthPercent: 100}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if single := ComputeYoY([]SaleRecord{a, b}, r); single != want {
		t.Fatalf("ComputeYoY disagrees: %+v", single)
	}
}
