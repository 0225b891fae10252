package core

import (
	"context"
	"time"
)

// Role is a user's authorization level.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleManager  Role = "manager"
	RoleSalesman Role = "salesman"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleSalesman:
		return true
	}
	return false
}

// Principal is the authenticated caller, passed explicitly into every write.
// BranchID is nil for owners, who may act on every branch.
type Principal struct {
	UserID   int
	Role     Role
	BranchID *int
}

// IsOwner reports whether p has unrestricted branch access.
func (p Principal) IsOwner() bool { return p.Role == RoleOwner }

// CanAccessBranch reports whether p may read or write data of branchID.
func (p Principal) CanAccessBranch(branchID int) bool {
	if p.IsOwner() {
		return true
	}
	return p.BranchID != nil && *p.BranchID == branchID
}

// HasRole reports whether p holds any of roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// User is a staff account. Owners have no branch.
type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	BranchID     *int      `json:"branch_id"`
	BranchName   *string   `json:"branch_name,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal returns the authorization view of u.
func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, Role: u.Role, BranchID: u.BranchID}
}

// UserInput is used for create and update. PasswordHash is empty on updates that keep the password.
type UserInput struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	BranchID     *int
	IsActive     bool
}

// UserService provides user lookup and management.
type UserService interface {
	// GetByEmail finds an active user by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, userID int) (*User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, in UserInput) (*User, error)
	Update(ctx context.Context, userID int, in UserInput) (*User, error)
	// Deactivate clears is_active; users are never physically removed because sales reference them.
	Deactivate(ctx context.Context, userID int) error
}
