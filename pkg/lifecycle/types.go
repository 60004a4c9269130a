// Package lifecycle resolves an account's position in the
// auth -> organization -> workspace onboarding funnel. The resolver is a
// pure function of a point-in-time read: it holds no state and fails
// closed to the unauthenticated resolution on any read error.
package lifecycle

import (
	"github.com/taskhive/taskhive/pkg/identity"
)

// State is one discrete account lifecycle state
type State string

const (
	StateUnauthenticated State = "UNAUTHENTICATED"
	StateNoAccountType   State = "NO_ACCOUNT_TYPE"

	StatePersonalNoWorkspace State = "PERSONAL_NO_WORKSPACE"
	StatePersonalActive      State = "PERSONAL_ACTIVE"

	StateOrgMemberPending State = "ORG_MEMBER_PENDING"

	StateOrgOwnerNoWorkspace  State = "ORG_OWNER_NO_WORKSPACE"
	StateOrgOwnerActive       State = "ORG_OWNER_ACTIVE"
	StateOrgAdminNoWorkspace  State = "ORG_ADMIN_NO_WORKSPACE"
	StateOrgAdminActive       State = "ORG_ADMIN_ACTIVE"
	StateOrgMemberNoWorkspace State = "ORG_MEMBER_NO_WORKSPACE"
	StateOrgMemberActive      State = "ORG_MEMBER_ACTIVE"
)

// LegacyState is the coarse representation the original client consumed.
// Both representations are computed from one underlying resolution so the
// lifecycle endpoint never issues duplicate reads.
type LegacyState string

const (
	LegacyUnauthenticated LegacyState = "UNAUTHENTICATED"
	LegacyOnboarding      LegacyState = "ONBOARDING"
	LegacyPending         LegacyState = "PENDING"
	LegacySetup           LegacyState = "SETUP"
	LegacyReady           LegacyState = "READY"
)

// Legacy maps a state to its coarse legacy representation
func (s State) Legacy() LegacyState {
	switch s {
	case StateUnauthenticated:
		return LegacyUnauthenticated
	case StateNoAccountType:
		return LegacyOnboarding
	case StateOrgMemberPending:
		return LegacyPending
	case StatePersonalNoWorkspace, StateOrgOwnerNoWorkspace,
		StateOrgAdminNoWorkspace, StateOrgMemberNoWorkspace:
		return LegacySetup
	case StatePersonalActive, StateOrgOwnerActive,
		StateOrgAdminActive, StateOrgMemberActive:
		return LegacyReady
	}
	return LegacyUnauthenticated
}

// ResolvedLifecycle is the computed, ephemeral resolution of one account.
// It is never persisted; consumers may cache it with a short TTL.
type ResolvedLifecycle struct {
	State       State                `json:"state"`
	AccountType identity.AccountType `json:"account_type,omitempty"`

	OrgID   *int64           `json:"org_id,omitempty"`
	OrgRole identity.OrgRole `json:"org_role,omitempty"`

	WorkspaceID  *int64 `json:"workspace_id,omitempty"`
	HasWorkspace bool   `json:"has_workspace"`

	MustResetPassword bool                   `json:"must_reset_password"`
	IsEmailVerified   bool                   `json:"is_email_verified"`
	BillingStatus     identity.BillingStatus `json:"billing_status"`

	// Routing hints, derived at resolution time and never stored
	RedirectTo   string   `json:"redirect_to,omitempty"`
	AllowedPaths []string `json:"allowed_paths"`
	BlockedPaths []string `json:"blocked_paths"`
}
