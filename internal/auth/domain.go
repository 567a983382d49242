package auth

import "time"

// User is an account able to sign in.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	Role         string
	BranchID     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public view of a signed-in user.
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	BranchID  string `json:"branchId"`
}

// Profile strips credentials from the user.
func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		BranchID:  u.BranchID,
	}
}

// Login is the audit row written for every successful sign-in.
type Login struct {
	SessionID string
	UserID    string
	At        time.Time
	ExpiresAt time.Time
	IP        string
	UserAgent string
}
