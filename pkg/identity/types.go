// Package identity defines the core account, role, and status types shared
// by the lifecycle and access resolvers. These types are owned by the
// identity provider; the resolvers only ever read them.
package identity

import "time"

// AccountType distinguishes personal accounts from organization accounts
type AccountType string

const (
	AccountTypePersonal AccountType = "PERSONAL"
	AccountTypeOrg      AccountType = "ORG"
)

// Valid reports whether the account type is one of the known values.
// An empty account type means the user has not completed onboarding.
func (t AccountType) Valid() bool {
	return t == AccountTypePersonal || t == AccountTypeOrg
}

// OrgRole represents organization-level roles
type OrgRole string

const (
	RoleOwner     OrgRole = "OWNER"     // Super-role, bypasses all permission checks
	RoleAdmin     OrgRole = "ADMIN"     // Broad default permission set
	RoleModerator OrgRole = "MODERATOR" // Narrower default set
	RoleMember    OrgRole = "MEMBER"    // No default permissions
)

// OrgRoles lists every organization role. Role dispatch must range over
// this slice (or switch exhaustively) rather than compare ad hoc strings.
func OrgRoles() []OrgRole {
	return []OrgRole{RoleOwner, RoleAdmin, RoleModerator, RoleMember}
}

// Valid reports whether the role is a known organization role
func (r OrgRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleModerator, RoleMember:
		return true
	}
	return false
}

// rank orders roles by authority, owner highest
func (r OrgRole) rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleModerator:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

// AtLeast reports whether the role carries at least the authority of other
func (r OrgRole) AtLeast(other OrgRole) bool {
	return r.rank() >= other.rank()
}

// MemberStatus represents an organization member's status
type MemberStatus string

const (
	MemberStatusActive  MemberStatus = "ACTIVE"
	MemberStatusPending MemberStatus = "PENDING"
)

// WorkspaceRole represents workspace-level roles
type WorkspaceRole string

const (
	WorkspaceRoleOwner  WorkspaceRole = "OWNER"
	WorkspaceRoleAdmin  WorkspaceRole = "ADMIN"
	WorkspaceRoleMember WorkspaceRole = "MEMBER"
)

// IsAdmin reports whether the workspace role carries administrative
// authority. This is what the project access resolver's workspace
// override keys on.
func (r WorkspaceRole) IsAdmin() bool {
	return r == WorkspaceRoleOwner || r == WorkspaceRoleAdmin
}

// WorkspaceMemberStatus represents a workspace membership's ledger state.
// Memberships are soft-deleted, never removed, so the same row can be
// reactivated without identity loss.
type WorkspaceMemberStatus string

const (
	WorkspaceMemberActive  WorkspaceMemberStatus = "ACTIVE"
	WorkspaceMemberDeleted WorkspaceMemberStatus = "DELETED"
)

// BillingStatus represents an organization's billing standing. It is a
// read-only input to the lifecycle resolver, computed by pkg/billing.
type BillingStatus string

const (
	BillingStatusNone     BillingStatus = "NONE"
	BillingStatusTrialing BillingStatus = "TRIALING"
	BillingStatusActive   BillingStatus = "ACTIVE"
	BillingStatusPastDue  BillingStatus = "PAST_DUE"
)

// Preferences is the user preference bag maintained during onboarding
type Preferences struct {
	AccountType       AccountType `json:"account_type,omitempty"`
	PrimaryOrgID      *int64      `json:"primary_org_id,omitempty"`
	MustResetPassword bool        `json:"must_reset_password"`
	LegalAccepted     bool        `json:"legal_accepted"`
}

// User represents an authenticated user record
type User struct {
	ID              int64       `json:"id"`
	Email           string      `json:"email"`
	IsEmailVerified bool        `json:"is_email_verified"`
	Preferences     Preferences `json:"preferences"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
