package access

import (
	"time"

	"github.com/taskhive/taskhive/pkg/catalog"
	"github.com/taskhive/taskhive/pkg/identity"
	"github.com/taskhive/taskhive/pkg/store"
)

// UserAccess is the resolved organization-level access for one user in
// one organization: effective permissions plus the routes and paths they
// unlock.
type UserAccess struct {
	UserID        int64                   `json:"user_id"`
	OrgID         int64                   `json:"org_id"`
	Role          identity.OrgRole        `json:"role"`
	IsOwner       bool                    `json:"is_owner"`
	Permissions   []catalog.OrgPermission `json:"permissions"`
	AllowedRoutes []catalog.RouteKey      `json:"allowed_routes"`
	AllowedPaths  []string                `json:"allowed_paths"`
	ResolvedAt    time.Time               `json:"resolved_at"`
}

// IsMember reports whether the access is backed by an active org
// membership. Base access, resolved for non-members and pending
// members, carries no role.
func (a *UserAccess) IsMember() bool {
	return a.Role != ""
}

// HasPermission reports whether the access includes the permission.
// Owners hold every permission implicitly.
func (a *UserAccess) HasPermission(perm catalog.OrgPermission) bool {
	if a.IsOwner {
		return true
	}
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// CanAccessRoute reports whether the route is in the allowed set
func (a *UserAccess) CanAccessRoute(route catalog.RouteKey) bool {
	for _, r := range a.AllowedRoutes {
		if r == route {
			return true
		}
	}
	return false
}

// ProjectAccess is the resolved project-level access for one user in one
// project. Permissions are the union across all of the user's team
// memberships in the project. Memberships stays empty when access comes
// only from the workspace-admin override.
type ProjectAccess struct {
	UserID            int64                            `json:"user_id"`
	ProjectID         int64                            `json:"project_id"`
	WorkspaceID       int64                            `json:"workspace_id"`
	HasAccess         bool                             `json:"has_access"`
	ViaWorkspaceAdmin bool                             `json:"via_workspace_admin"`
	Permissions       []catalog.ProjectPermission      `json:"permissions"`
	Memberships       []*store.ProjectMembershipDetail `json:"memberships"`
	ResolvedAt        time.Time                        `json:"resolved_at"`
}

// HasProjectPermission reports whether the access includes the project
// permission. Workspace admins hold every project permission implicitly.
func (a *ProjectAccess) HasProjectPermission(perm catalog.ProjectPermission) bool {
	if !a.HasAccess {
		return false
	}
	if a.ViaWorkspaceAdmin {
		return true
	}
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
