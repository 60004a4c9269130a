package catalog

import "strings"

// RouteKey identifies one logical application screen, distinct from its
// concrete URL
type RouteKey string

const (
	RouteProfile      RouteKey = "profile"
	RouteWelcome      RouteKey = "welcome"
	RouteWorkspaces   RouteKey = "workspaces"
	RouteWorkspace    RouteKey = "workspace"
	RouteOrganization RouteKey = "organization"
	RouteMembers      RouteKey = "members"
	RoutePermissions  RouteKey = "permissions"
	RouteDepartments  RouteKey = "departments"
	RouteBilling      RouteKey = "billing"
	RouteReports      RouteKey = "reports"
	RouteAuditLog     RouteKey = "audit_log"
	RouteProjects     RouteKey = "projects"
)

// WorkspaceIDPlaceholder is substituted with the active workspace ID when
// route keys are resolved to concrete paths
const WorkspaceIDPlaceholder = ":workspaceId"

// permissionRoutes is the canonical permission-to-routes table. Permissions
// are the source of truth; the route-to-required-permissions direction is
// derived from this table at package init so the two can never drift.
var permissionRoutes = map[OrgPermission][]RouteKey{
	PermOrgManage:          {RouteOrganization},
	PermOrgBillingView:     {RouteBilling},
	PermOrgBillingManage:   {RouteBilling},
	PermMembersView:        {RouteMembers},
	PermMembersInvite:      {RouteMembers},
	PermMembersRemove:      {RouteMembers},
	PermMembersManageRoles: {RouteMembers, RoutePermissions},
	PermPermissionsManage:  {RoutePermissions},
	PermDepartmentsView:    {RouteDepartments},
	PermDepartmentsManage:  {RouteDepartments},
	PermWorkspacesManage:   {RouteWorkspace},
	PermProjectsCreate:     {RouteProjects},
	PermProjectsManage:     {RouteProjects},
	PermReportsView:        {RouteReports},
	PermAuditLogView:       {RouteAuditLog},
}

// routeRequiredPermissions is the derived inverse of permissionRoutes: a
// route key maps to the permissions any one of which unlocks it.
var routeRequiredPermissions map[RouteKey][]OrgPermission

func init() {
	routeRequiredPermissions = make(map[RouteKey][]OrgPermission)
	for perm, routes := range permissionRoutes {
		for _, route := range routes {
			routeRequiredPermissions[route] = append(routeRequiredPermissions[route], perm)
		}
	}
}

// RequiredPermissions returns the permissions that can unlock a route key.
// Holding any one of them is sufficient. Routes absent from the table are
// either always-allowed or unknown; callers distinguish via KnownRoute.
func RequiredPermissions(route RouteKey) []OrgPermission {
	perms := routeRequiredPermissions[route]
	out := make([]OrgPermission, len(perms))
	copy(out, perms)
	return out
}

// RoutesForPermissions maps a permission set to the route keys it unlocks.
// A route is included if the set contains at least one of that route's
// required permissions. This is the single place in the system permitted
// to perform this mapping.
func RoutesForPermissions(perms []OrgPermission) []RouteKey {
	held := make(map[OrgPermission]bool, len(perms))
	for _, p := range perms {
		held[p] = true
	}

	var routes []RouteKey
	seen := make(map[RouteKey]bool)
	for _, route := range AllRouteKeys() {
		for _, required := range routeRequiredPermissions[route] {
			if held[required] && !seen[route] {
				routes = append(routes, route)
				seen[route] = true
				break
			}
		}
	}
	return routes
}

// AlwaysAllowedRoutes are unconditionally available to any authenticated
// organization member, independent of permissions.
func AlwaysAllowedRoutes() []RouteKey {
	return []RouteKey{RouteProfile, RouteWelcome, RouteWorkspaces}
}

// WorkspaceScopedRoutes are unlocked when a workspace context is supplied
func WorkspaceScopedRoutes() []RouteKey {
	return []RouteKey{RouteWorkspace}
}

// AllRouteKeys returns the complete route-key universe in a stable order.
// OWNER access is granted this entire set.
func AllRouteKeys() []RouteKey {
	return []RouteKey{
		RouteProfile,
		RouteWelcome,
		RouteWorkspaces,
		RouteWorkspace,
		RouteOrganization,
		RouteMembers,
		RoutePermissions,
		RouteDepartments,
		RouteBilling,
		RouteReports,
		RouteAuditLog,
		RouteProjects,
	}
}

// KnownRoute reports whether the route key is part of the catalog
func KnownRoute(route RouteKey) bool {
	for _, r := range AllRouteKeys() {
		if r == route {
			return true
		}
	}
	return false
}

// routePaths maps route keys to concrete path templates. Workspace-scoped
// paths carry the :workspaceId placeholder.
var routePaths = map[RouteKey]string{
	RouteProfile:      "/profile",
	RouteWelcome:      "/welcome",
	RouteWorkspaces:   "/workspaces",
	RouteWorkspace:    "/workspaces/" + WorkspaceIDPlaceholder,
	RouteOrganization: "/organization",
	RouteMembers:      "/organization/members",
	RoutePermissions:  "/organization/permissions",
	RouteDepartments:  "/organization/departments",
	RouteBilling:      "/organization/billing",
	RouteReports:      "/reports",
	RouteAuditLog:     "/organization/audit",
	RouteProjects:     "/workspaces/" + WorkspaceIDPlaceholder + "/projects",
}

// PathForRoute resolves a route key to a concrete path, substituting the
// workspace placeholder when a workspace ID is supplied. Returns "" for
// unknown routes, and for workspace-templated routes when no workspace ID
// is available to substitute.
func PathForRoute(route RouteKey, workspaceID string) string {
	template, ok := routePaths[route]
	if !ok {
		return ""
	}
	if strings.Contains(template, WorkspaceIDPlaceholder) {
		if workspaceID == "" {
			return ""
		}
		return strings.ReplaceAll(template, WorkspaceIDPlaceholder, workspaceID)
	}
	return template
}

// Public auth routes reachable without any identity
const (
	PathSignIn        = "/sign-in"
	PathSignUp        = "/sign-up"
	PathVerifyEmail   = "/verify-email"
	PathResetPassword = "/reset-password"
	PathLegal         = "/legal/accept"
	PathOnboarding    = "/onboarding"
	PathInvite        = "/invite"
	PathJoin          = "/join"
	PathForbidden     = "/403"
)

// PublicAuthPaths are the only paths allowed without authentication
func PublicAuthPaths() []string {
	return []string{PathSignIn, PathSignUp, PathVerifyEmail, PathResetPassword}
}
