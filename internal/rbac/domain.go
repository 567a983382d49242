package rbac

import "strings"

// allBranches matches the report filter value that selects every branch.
const allBranches = "All"

// Role is an employee position.
type Role string

// Employee positions.
const (
	RoleHQStaff       Role = "HQ Staff"
	RoleBranchManager Role = "Branch Manager"
	RoleFullTime      Role = "Full-time"
	RolePartTime      Role = "Part-time"
	RoleMiniJob       Role = "Mini-job"
)

// Roles lists every valid position.
var Roles = []Role{RoleHQStaff, RoleBranchManager, RoleFullTime, RolePartTime, RoleMiniJob}

// Valid reports whether r is a known position.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Access is the view level a role grants.
type Access string

// Access levels.
const (
	AccessHQ    Access = "HQ"
	AccessStore Access = "Store"
	AccessStaff Access = "Staff"
)

// AccessFor maps a position to its access level.
func AccessFor(role Role) Access {
	switch role {
	case RoleHQStaff:
		return AccessHQ
	case RoleBranchManager:
		return AccessStore
	default:
		return AccessStaff
	}
}

// Principal describes the authenticated actor of a request.
type Principal struct {
	UserID   string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Access   Access `json:"access"`
	BranchID string `json:"branchId"`
}

// IsHQ reports headquarters access.
func (p Principal) IsHQ() bool { return p.Access == AccessHQ }

// ScopeBranch resolves the branch filter a principal may read. HQ reads any
// branch; Store principals are pinned to their own branch and selecting all
// branches narrows to it; staff cannot read branch reports.
func (p Principal) ScopeBranch(requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	switch p.Access {
	case AccessHQ:
		if requested == "" {
			return allBranches, nil
		}
		return requested, nil
	case AccessStore:
		if requested == "" || strings.EqualFold(requested, allBranches) || requested == p.BranchID {
			return p.BranchID, nil
		}
		return "", ErrForbidden
	default:
		return "", ErrForbidden
	}
}

// CanManageBranch reports whether the principal may write data of branchID.
func (p Principal) CanManageBranch(branchID string) bool {
	return p.IsHQ() || (p.Access == AccessStore && p.BranchID != "" && p.BranchID == branchID)
}
