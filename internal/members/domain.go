package members

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/krishilink/krishilink/internal/shared"
)

// Role enumerates the fixed reseller hierarchy tiers, top down.
type Role string

const (
	RoleAdmin          Role = "Admin"
	RoleFranchise      Role = "Franchise"
	RoleDistributor    Role = "Distributor"
	RoleSubDistributor Role = "SubDistributor"
	RoleDealer         Role = "Dealer"
	RoleFarmer         Role = "Farmer"
)

// Roles lists every defined role in hierarchy order.
var Roles = []Role{RoleAdmin, RoleFranchise, RoleDistributor, RoleSubDistributor, RoleDealer, RoleFarmer}

// maxChainDepth caps upline traversal. A well-formed chain never exceeds the
// role count; anything past twice that is corruption, not depth.
const maxChainDepth = 2 * 6

// minPasswordLength is the shortest password accepted on rotation.
const minPasswordLength = 6

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: unknown role %q", shared.ErrValidation, s)
}

// MemberNoPrefix returns the member-number prefix assigned at creation.
func (r Role) MemberNoPrefix() string {
	switch r {
	case RoleFranchise:
		return "FRN"
	case RoleDistributor:
		return "DIS"
	case RoleSubDistributor:
		return "SUB"
	case RoleDealer:
		return "DLR"
	case RoleFarmer:
		return "FRM"
	default:
		return "USR"
	}
}

// HoldsStock reports whether a member of this role keeps inventory. Farmers
// are terminal consumers; stock sold to them is retired.
func (r Role) HoldsStock() bool {
	return r != RoleFarmer
}

// Member is a node in the reseller tree.
type Member struct {
	ID           uuid.UUID
	MemberNo     string
	Name         string
	PasswordHash string
	Role         Role
	UplineID     *uuid.UUID
	IsMember     bool
	Mobile       string
	Email        string
	Address      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the member is the hierarchy root.
func (m Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// ChainLink is one upline member in a resolved chain.
type ChainLink struct {
	ID   uuid.UUID
	Role Role
}

// TreeNode is a member with its recursive downline, for hierarchy display.
type TreeNode struct {
	Member   Member
	Children []*TreeNode
}

// CreateInput describes a new member.
type CreateInput struct {
	Name     string
	Role     string
	UplineID *uuid.UUID
	Mobile   string
	Email    string
	Address  string
}

// UpdateInput carries profile fields an upline may edit.
type UpdateInput struct {
	Name    string
	Mobile  string
	Email   string
	Address string
}

var (
	// ErrMemberNotFound indicates an unknown member id.
	ErrMemberNotFound = fmt.Errorf("%w: member", shared.ErrNotFound)
	// ErrNoUpline indicates the member has no upline to buy from or report to.
	ErrNoUpline = fmt.Errorf("%w: member has no assigned upline", shared.ErrValidation)
	// ErrHierarchyCorrupt indicates a cycle or over-deep upline chain.
	ErrHierarchyCorrupt = fmt.Errorf("%w: upline chain is cyclic or over-deep", shared.ErrIntegrity)
	// ErrAdminMissing indicates the unique root account does not exist.
	ErrAdminMissing = fmt.Errorf("%w: admin account not found", shared.ErrIntegrity)
	// ErrAdminProtected indicates an attempt to delete or demote the root.
	ErrAdminProtected = fmt.Errorf("%w: the admin account cannot be modified this way", shared.ErrForbidden)
)
