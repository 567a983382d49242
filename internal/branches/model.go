package branches

import "time"

// Status of a branch.
type Status string

// Branch states.
const (
	StatusActive Status = "Active"
	StatusClosed Status = "Closed"
)

// Branch is a store location.
type Branch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Manager   string    `json:"manager"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	Founded   string    `json:"founded,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
}

// ListFilters narrows the branch listing.
type ListFilters struct {
	Page    int
	PerPage int
	Search  string
	Status  Status
	SortBy  string
	SortDir string
}

// Toggle returns the opposite status.
func (s Status) Toggle() Status {
	if s == StatusClosed {
		return StatusActive
	}
	return StatusClosed
}
