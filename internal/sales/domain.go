package sales

import "time"

// AllBranches is the branch filter value that disables branch filtering.
const AllBranches = "All"

// SaleRecord is one branch's sales for one calendar day.
type SaleRecord struct {
	ID           string     `json:"id,omitempty"`
	BranchID     string     `json:"branchId"`
	BranchName   string     `json:"branchName"`
	Date         string     `json:"date"`
	GrossSales   float64    `json:"grossSales"`
	CashSales    float64    `json:"cashSales"`
	CardSales    float64    `json:"cardSales"`
	Transactions int64      `json:"transactions"`
	Items        []SaleItem `json:"items,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

// SaleItem is a product line inside a SaleRecord.
type SaleItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Qty       float64 `json:"qty"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"imageUrl,omitempty"`
}

// Revenue returns qty * price.
func (i SaleItem) Revenue() float64 {
	return i.Qty * i.Price
}

// DayBucket holds the totals of one calendar day.
type DayBucket struct {
	Date         string  `json:"date"`
	GrossSales   float64 `json:"grossSales"`
	Transactions int64   `json:"transactions"`
}

// MonthBucket holds the totals of one calendar month (YYYY-MM).
type MonthBucket struct {
	Month        string  `json:"month"`
	GrossSales   float64 `json:"grossSales"`
	Transactions int64   `json:"transactions"`
}

// YoY compares a window against the same window one year earlier.
type YoY struct {
	CurrentSum    float64 `json:"currentSum"`
	PriorSum      float64 `json:"priorSum"`
	GrowthPercent float64 `json:"growthPercent"`
}

// BranchTotal is one row of the branch comparison.
type BranchTotal struct {
	BranchID     string  `json:"branchId"`
	BranchName   string  `json:"branchName"`
	GrossSales   float64 `json:"grossSales"`
	Transactions int64   `json:"transactions"`
}

// ItemRevenue is the revenue of a single item inside a category.
type ItemRevenue struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

// CategoryTop lists the best selling items of one category.
type CategoryTop struct {
	Category string        `json:"category"`
	Items    []ItemRevenue `json:"items"`
}

// MonthRevenue is the revenue of an item within one month.
type MonthRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// KPIs summarises a filtered window.
type KPIs struct {
	Revenue      float64 `json:"revenue"`
	Transactions int64   `json:"transactions"`
	AvgTicket    float64 `json:"avgTicket"`
	AvgTxPerDay  float64 `json:"avgTxPerDay"`
	Days         int     `json:"days"`
}

// BranchRef identifies a branch seen in sales data.
type BranchRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BranchTender splits a branch's gross sales by tender type.
type BranchTender struct {
	BranchID     string  `json:"branchId"`
	BranchName   string  `json:"branchName"`
	GrossSales   float64 `json:"grossSales"`
	CashSales    float64 `json:"cashSales"`
	CardSales    float64 `json:"cardSales"`
	Transactions int64   `json:"transactions"`
}
