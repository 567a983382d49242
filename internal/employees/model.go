package employees

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/anotherstories/storehq/internal/rbac"
)

// Salary types.
const (
	SalaryMonthly = "monthly"
	SalaryHourly  = "hourly"
)

// Employee is a staff member. Employees double as user accounts.
type Employee struct {
	ID           string          `json:"id"`
	FirstName    string          `json:"firstName"`
	LastName     string          `json:"lastName"`
	Email        string          `json:"email"`
	BranchID     string          `json:"branchId"`
	Role         rbac.Role       `json:"role"`
	Joined       string          `json:"joined,omitempty"`
	Birthday     string          `json:"birthday,omitempty"`
	Phone        string          `json:"phone"`
	Address      string          `json:"address"`
	SalaryType   string          `json:"salaryType"`
	SalaryAmount decimal.Decimal `json:"salaryAmount"`
	BankNumber   string          `json:"bankNumber,omitempty"`
	Avatar       string          `json:"avatar,omitempty"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// FullName joins first and last name.
func (e Employee) FullName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// CreateInput carries a new employee and an optional initial password.
type CreateInput struct {
	Employee
	Password string `json:"password"`
}

// ListFilters narrows the employee listing.
type ListFilters struct {
	Page    int
	PerPage int
	Search  string
	Branch  string
	SortBy  string
	SortDir string
}
