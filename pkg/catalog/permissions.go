// Package catalog holds the static permission and route tables: organization
// permission keys, project permission keys, route keys, per-role default
// permission sets, and the permission-to-route mapping. Pure data, no I/O.
package catalog

import "github.com/taskhive/taskhive/pkg/identity"

// OrgPermission is an atomic organization-scoped capability key
type OrgPermission string

const (
	PermOrgManage          OrgPermission = "org:manage"
	PermOrgBillingView     OrgPermission = "org:billing:view"
	PermOrgBillingManage   OrgPermission = "org:billing:manage"
	PermMembersView        OrgPermission = "members:view"
	PermMembersInvite      OrgPermission = "members:invite"
	PermMembersRemove      OrgPermission = "members:remove"
	PermMembersManageRoles OrgPermission = "members:manage_roles"
	PermPermissionsManage  OrgPermission = "permissions:manage"
	PermDepartmentsView    OrgPermission = "departments:view"
	PermDepartmentsManage  OrgPermission = "departments:manage"
	PermWorkspacesCreate   OrgPermission = "workspaces:create"
	PermWorkspacesManage   OrgPermission = "workspaces:manage"
	PermProjectsCreate     OrgPermission = "projects:create"
	PermProjectsManage     OrgPermission = "projects:manage"
	PermReportsView        OrgPermission = "reports:view"
	PermAuditLogView       OrgPermission = "audit:view"
)

// ProjectPermission is an atomic project-scoped capability key
type ProjectPermission string

const (
	ProjectPermView          ProjectPermission = "project:view"
	ProjectPermEdit          ProjectPermission = "project:edit"
	ProjectPermDelete        ProjectPermission = "project:delete"
	ProjectPermTasksCreate   ProjectPermission = "tasks:create"
	ProjectPermTasksEdit     ProjectPermission = "tasks:edit"
	ProjectPermTasksDelete   ProjectPermission = "tasks:delete"
	ProjectPermTasksAssign   ProjectPermission = "tasks:assign"
	ProjectPermMembersManage ProjectPermission = "project:members:manage"
	ProjectPermRolesManage   ProjectPermission = "project:roles:manage"
)

// AllOrgPermissions returns the complete organization permission universe.
// This is what the OWNER super-role receives unconditionally.
func AllOrgPermissions() []OrgPermission {
	return []OrgPermission{
		PermOrgManage,
		PermOrgBillingView,
		PermOrgBillingManage,
		PermMembersView,
		PermMembersInvite,
		PermMembersRemove,
		PermMembersManageRoles,
		PermPermissionsManage,
		PermDepartmentsView,
		PermDepartmentsManage,
		PermWorkspacesCreate,
		PermWorkspacesManage,
		PermProjectsCreate,
		PermProjectsManage,
		PermReportsView,
		PermAuditLogView,
	}
}

// roleDefaults is the total role-to-default-permission table. OWNER is
// deliberately absent: the super-role bypasses permission accumulation
// entirely and must never be resolved through this table.
var roleDefaults = map[identity.OrgRole][]OrgPermission{
	identity.RoleAdmin: {
		PermOrgManage,
		PermOrgBillingView,
		PermMembersView,
		PermMembersInvite,
		PermMembersRemove,
		PermMembersManageRoles,
		PermDepartmentsView,
		PermDepartmentsManage,
		PermWorkspacesCreate,
		PermWorkspacesManage,
		PermProjectsCreate,
		PermProjectsManage,
		PermReportsView,
	},
	identity.RoleModerator: {
		PermMembersView,
		PermMembersInvite,
		PermDepartmentsView,
		PermProjectsCreate,
		PermReportsView,
	},
	identity.RoleMember: {},
}

// DefaultPermissions returns the static default permission set for a role.
// Unknown roles get nothing.
func DefaultPermissions(role identity.OrgRole) []OrgPermission {
	defaults, ok := roleDefaults[role]
	if !ok {
		return nil
	}
	out := make([]OrgPermission, len(defaults))
	copy(out, defaults)
	return out
}
