package store

import (
	"time"

	"github.com/taskhive/taskhive/pkg/catalog"
	"github.com/taskhive/taskhive/pkg/identity"
)

// Organization represents a tenant organization
type Organization struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	BillingStartedAt time.Time `json:"billing_started_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// OrgMember represents a user's membership in an organization. The
// (organization_id, user_id) pair is unique.
type OrgMember struct {
	ID             int64                 `json:"id"`
	OrganizationID int64                 `json:"organization_id"`
	UserID         int64                 `json:"user_id"`
	Role           identity.OrgRole      `json:"role"`
	Status         identity.MemberStatus `json:"status"`
	InvitedBy      *int64                `json:"invited_by,omitempty"`
	JoinedAt       time.Time             `json:"joined_at"`
	CreatedAt      time.Time             `json:"created_at"`
}

// Department groups members inside an organization and carries a
// permission set granted additively to every assigned member.
type Department struct {
	ID             int64                   `json:"id"`
	OrganizationID int64                   `json:"organization_id"`
	Name           string                  `json:"name"`
	Permissions    []catalog.OrgPermission `json:"permissions"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// Workspace represents a workspace. OrganizationID is nil for personal
// workspaces.
type Workspace struct {
	ID             int64     `json:"id"`
	OrganizationID *int64    `json:"organization_id,omitempty"`
	Name           string    `json:"name"`
	IsDefault      bool      `json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WorkspaceMember is a soft-delete ledger row: removal flips the status to
// DELETED and re-adding reactivates the same row.
type WorkspaceMember struct {
	ID          int64                          `json:"id"`
	WorkspaceID int64                          `json:"workspace_id"`
	UserID      int64                          `json:"user_id"`
	Role        identity.WorkspaceRole         `json:"role"`
	Status      identity.WorkspaceMemberStatus `json:"status"`
	CreatedAt   time.Time                      `json:"created_at"`
	UpdatedAt   time.Time                      `json:"updated_at"`
}

// Project represents a project inside a workspace
type Project struct {
	ID          int64     `json:"id"`
	WorkspaceID int64     `json:"workspace_id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Team represents a team inside a project
type Team struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectRole is a project-scoped role with an explicit permission list
type ProjectRole struct {
	ID          int64                       `json:"id"`
	ProjectID   int64                       `json:"project_id"`
	Name        string                      `json:"name"`
	Permissions []catalog.ProjectPermission `json:"permissions"`
	CreatedAt   time.Time                   `json:"created_at"`
}

// ProjectMember links a user to a team and role within a project. A user
// may hold multiple team memberships in the same project.
type ProjectMember struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	TeamID    int64     `json:"team_id"`
	UserID    int64     `json:"user_id"`
	RoleID    int64     `json:"role_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectMembershipDetail is the resolved view of one project membership:
// the team and role it derives from plus that role's permission list.
type ProjectMembershipDetail struct {
	MemberID    int64                       `json:"member_id"`
	TeamID      int64                       `json:"team_id"`
	TeamName    string                      `json:"team_name"`
	RoleID      int64                       `json:"role_id"`
	RoleName    string                      `json:"role_name"`
	Permissions []catalog.ProjectPermission `json:"permissions"`
}

// OrgInvitation represents a pending invitation to join an organization
type OrgInvitation struct {
	ID             int64            `json:"id"`
	OrganizationID int64            `json:"organization_id"`
	Email          string           `json:"email"`
	Role           identity.OrgRole `json:"role"`
	Token          string           `json:"token,omitempty"`
	InvitedBy      int64            `json:"invited_by"`
	InvitedAt      time.Time        `json:"invited_at"`
	ExpiresAt      time.Time        `json:"expires_at"`
	AcceptedAt     *time.Time       `json:"accepted_at,omitempty"`
	AcceptedBy     *int64           `json:"accepted_by,omitempty"`
}

// Session represents an authenticated session token
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// WorkspaceCreationCheck is the result of the personal-workspace guard
type WorkspaceCreationCheck struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}
