package sales

import (
	"sort"
	"strings"
)

// ReservedBranchMessage is the field error for ids that collide with AllBranches.
const ReservedBranchMessage = "is reserved for the all-branches filter"

// IsAllBranches reports whether branch selects every branch. Empty and any
// casing of AllBranches qualify, so no stored branch may use such an id.
func IsAllBranches(branch string) bool {
	branch = strings.TrimSpace(branch)
	return branch == "" || strings.EqualFold(branch, AllBranches)
}

func matchBranch(rec SaleRecord, branch string) bool {
	return IsAllBranches(branch) || rec.BranchID == branch
}

func (r DateRange) includes(rec SaleRecord) bool {
	day, ok := rec.day()
	return ok && r.Contains(day)
}

// FilterBranch returns the records belonging to branch. The result is a new
// slice even when no filtering applies.
func FilterBranch(records []SaleRecord, branch string) []SaleRecord {
	out := make([]SaleRecord, 0, len(records))
	for _, rec := range records {
		if matchBranch(rec, branch) {
			out = append(out, rec)
		}
	}
	return out
}

// AggregateDaily returns one zero-filled bucket per day of r in ascending
// order with the gross sales and transactions of the records on that day.
func AggregateDaily(records []SaleRecord, r DateRange) []DayBucket {
	buckets := make([]DayBucket, 0, r.Days())
	index := make(map[string]int, r.Days())
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		key := FormatDate(d)
		index[key] = len(buckets)
		buckets = append(buckets, DayBucket{Date: key})
	}
	for _, rec := range records {
		day, ok := rec.day()
		if !ok || !r.Contains(day) {
			continue
		}
		b := &buckets[index[FormatDate(day)]]
		b.GrossSales += rec.GrossSales
		b.Transactions += rec.Transactions
	}
	return buckets
}

// AggregateMonthly returns one zero-filled bucket per month touched by r.
// Only records inside r contribute, so edge months may be partial.
func AggregateMonthly(records []SaleRecord, r DateRange) []MonthBucket {
	buckets := make([]MonthBucket, 0, 12)
	index := make(map[string]int)
	last := monthStart(r.To)
	for m := monthStart(r.From); !m.After(last); m = m.AddDate(0, 1, 0) {
		key := m.Format(MonthLayout)
		index[key] = len(buckets)
		buckets = append(buckets, MonthBucket{Month: key})
	}
	for _, rec := range records {
		day, ok := rec.day()
		if !ok || !r.Contains(day) {
			continue
		}
		b := &buckets[index[day.Format(MonthLayout)]]
		b.GrossSales += rec.GrossSales
		b.Transactions += rec.Transactions
	}
	return buckets
}

func sumGross(records []SaleRecord, r DateRange) float64 {
	total := 0.0
	for _, rec := range records {
		if r.includes(rec) {
			total += rec.GrossSales
		}
	}
	return total
}

// ComputeYoY compares gross sales in r with the same window one year back.
func ComputeYoY(records []SaleRecord, r DateRange) YoY {
	return ComputeYoYSplit(records, records, r)
}

// ComputeYoYSplit is ComputeYoY for callers that loaded the two windows
// separately. current is summed over r and prior over r.PriorYear(), so a
// record present in both slices is never counted twice in one sum.
func ComputeYoYSplit(current, prior []SaleRecord, r DateRange) YoY {
	return yoy(sumGross(current, r), sumGross(prior, r.PriorYear()))
}

func yoy(current, prior float64) YoY {
	growth := 0.0
	if prior != 0 {
		growth = (current - prior) / prior * 100
	}
	return YoY{CurrentSum: current, PriorSum: prior, GrowthPercent: growth}
}

// CompareBranches totals gross sales and transactions per branch, highest
// gross first. Ties keep the order in which branches first appear.
func CompareBranches(records []SaleRecord, r DateRange, branch string) []BranchTotal {
	totals := make([]BranchTotal, 0)
	index := make(map[string]int)
	for _, rec := range records {
		if !matchBranch(rec, branch) || !r.includes(rec) {
			continue
		}
		i, ok := index[rec.BranchID]
		if !ok {
			i = len(totals)
			index[rec.BranchID] = i
			totals = append(totals, BranchTotal{BranchID: rec.BranchID, BranchName: rec.BranchName})
		}
		totals[i].GrossSales += rec.GrossSales
		totals[i].Transactions += rec.Transactions
	}
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].GrossSales > totals[j].GrossSales
	})
	return totals
}

const topItemsPerCategory = 3

// TopItemsByCategory ranks item revenue inside each category and keeps the
// best three. Categories appear in first-observed order.
func TopItemsByCategory(records []SaleRecord, r DateRange, branch string) []CategoryTop {
	type categoryItems struct {
		name  string
		items []ItemRevenue
		index map[string]int
	}
	categories := make([]*categoryItems, 0)
	byName := make(map[string]*categoryItems)
	for _, rec := range records {
		if !matchBranch(rec, branch) || !r.includes(rec) {
			continue
		}
		for _, item := range rec.Items {
			cat, ok := byName[item.Category]
			if !ok {
				cat = &categoryItems{name: item.Category, index: make(map[string]int)}
				byName[item.Category] = cat
				categories = append(categories, cat)
			}
			i, ok := cat.index[item.Name]
			if !ok {
				i = len(cat.items)
				cat.index[item.Name] = i
				cat.items = append(cat.items, ItemRevenue{Name: item.Name, Category: item.Category})
			}
			cat.items[i].Revenue += item.Revenue()
			if item.ImageURL != "" {
				cat.items[i].ImageURL = item.ImageURL
			}
		}
	}

	out := make([]CategoryTop, 0, len(categories))
	for _, cat := range categories {
		ranked := append([]ItemRevenue(nil), cat.items...)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Revenue > ranked[j].Revenue
		})
		if len(ranked) > topItemsPerCategory {
			ranked = ranked[:topItemsPerCategory]
		}
		out = append(out, CategoryTop{Category: cat.name, Items: ranked})
	}
	return out
}

// ItemMonthlyTrend returns the monthly revenue of one item. Months without a
// sale of the item are omitted.
func ItemMonthlyTrend(records []SaleRecord, r DateRange, branch, itemName string) []MonthRevenue {
	byMonth := make(map[string]float64)
	for _, rec := range records {
		if !matchBranch(rec, branch) {
			continue
		}
		day, ok := rec.day()
		if !ok || !r.Contains(day) {
			continue
		}
		for _, item := range rec.Items {
			if item.Name != itemName {
				continue
			}
			byMonth[day.Format(MonthLayout)] += item.Revenue()
		}
	}
	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)
	out := make([]MonthRevenue, 0, len(months))
	for _, month := range months {
		out = append(out, MonthRevenue{Month: month, Revenue: byMonth[month]})
	}
	return out
}

// ComputeKPIs summarises revenue and traffic of the filtered window.
func ComputeKPIs(records []SaleRecord, r DateRange, branch string) KPIs {
	k := KPIs{Days: r.Days()}
	for _, rec := range records {
		if !matchBranch(rec, branch) || !r.includes(rec) {
			continue
		}
		k.Revenue += rec.GrossSales
		k.Transactions += rec.Transactions
	}
	if k.Transactions > 0 {
		k.AvgTicket = k.Revenue / float64(k.Transactions)
	}
	k.AvgTxPerDay = float64(k.Transactions) / float64(k.Days)
	return k
}

// BranchesFromRecords lists the distinct branches present in records in
// first-seen order. The last non-empty name seen for a branch wins.
func BranchesFromRecords(records []SaleRecord) []BranchRef {
	refs := make([]BranchRef, 0)
	index := make(map[string]int)
	for _, rec := range records {
		if rec.BranchID == "" {
			continue
		}
		i, ok := index[rec.BranchID]
		if !ok {
			index[rec.BranchID] = len(refs)
			refs = append(refs, BranchRef{ID: rec.BranchID, Name: rec.BranchName})
			continue
		}
		if rec.BranchName != "" {
			refs[i].Name = rec.BranchName
		}
	}
	return refs
}

// TenderBreakdown totals gross, cash, card and transactions per branch,
// ordered by branch name.
func TenderBreakdown(records []SaleRecord, r DateRange) []BranchTender {
	out := make([]BranchTender, 0)
	index := make(map[string]int)
	for _, rec := range records {
		if !r.includes(rec) {
			continue
		}
		i, ok := index[rec.BranchID]
		if !ok {
			i = len(out)
			index[rec.BranchID] = i
			out = append(out, BranchTender{BranchID: rec.BranchID, BranchName: rec.BranchName})
		}
		out[i].GrossSales += rec.GrossSales
		out[i].CashSales += rec.CashSales
		out[i].CardSales += rec.CardSales
		out[i].Transactions += rec.Transactions
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BranchName == out[j].BranchName {
			return out[i].BranchID < out[j].BranchID
		}
		return out[i].BranchName < out[j].BranchName
	})
	return out
}
