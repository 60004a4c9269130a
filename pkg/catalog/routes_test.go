package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/pkg/identity"
)

func TestDerivedTableMatchesCanonical(t *testing.T) {
	// Every canonical permission->route entry must be reflected in the
	// derived route->permissions table, and vice versa.
	for perm, routes := range permissionRoutes {
		for _, route := range routes {
			assert.Contains(t, RequiredPermissions(route), perm,
				"route %s missing permission %s in derived table", route, perm)
		}
	}

	for route, perms := range routeRequiredPermissions {
		for _, perm := range perms {
			assert.Contains(t, permissionRoutes[perm], route,
				"permission %s missing route %s in canonical table", perm, route)
		}
	}
}

func TestRoutesForPermissions_AnyOfRule(t *testing.T) {
	// members:view alone must unlock the members route even though other
	// permissions also map to it.
	routes := RoutesForPermissions([]OrgPermission{PermMembersView})
	assert.Contains(t, routes, RouteMembers)
	assert.NotContains(t, routes, RoutePermissions)

	// members:manage_roles unlocks both members and permissions screens
	routes = RoutesForPermissions([]OrgPermission{PermMembersManageRoles})
	assert.Contains(t, routes, RouteMembers)
	assert.Contains(t, routes, RoutePermissions)
}

func TestRoutesForPermissions_Monotonic(t *testing.T) {
	p1 := []OrgPermission{PermMembersView}
	p2 := []OrgPermission{PermMembersView, PermOrgBillingView, PermReportsView}

	r1 := RoutesForPermissions(p1)
	r2 := RoutesForPermissions(p2)

	for _, route := range r1 {
		assert.Contains(t, r2, route, "superset permissions lost route %s", route)
	}
	assert.Greater(t, len(r2), len(r1))
}

func TestRoutesForPermissions_Empty(t *testing.T) {
	assert.Empty(t, RoutesForPermissions(nil))
	assert.Empty(t, RoutesForPermissions([]OrgPermission{}))
}

func TestDefaultPermissions(t *testing.T) {
	t.Run("total over non-owner roles", func(t *testing.T) {
		for _, role := range []identity.OrgRole{identity.RoleAdmin, identity.RoleModerator, identity.RoleMember} {
			_, ok := roleDefaults[role]
			assert.True(t, ok, "role %s missing from defaults table", role)
		}
	})

	t.Run("admin is a superset of moderator", func(t *testing.T) {
		admin := DefaultPermissions(identity.RoleAdmin)
		for _, p := range DefaultPermissions(identity.RoleModerator) {
			assert.Contains(t, admin, p)
		}
		assert.Greater(t, len(admin), len(DefaultPermissions(identity.RoleModerator)))
	})

	t.Run("member defaults to empty", func(t *testing.T) {
		assert.Empty(t, DefaultPermissions(identity.RoleMember))
	})

	t.Run("owner resolves through bypass, not this table", func(t *testing.T) {
		assert.Nil(t, DefaultPermissions(identity.RoleOwner))
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		perms := DefaultPermissions(identity.RoleModerator)
		require.NotEmpty(t, perms)
		perms[0] = "mutated"
		assert.NotContains(t, DefaultPermissions(identity.RoleModerator), OrgPermission("mutated"))
	})
}

func TestPathForRoute(t *testing.T) {
	assert.Equal(t, "/organization/members", PathForRoute(RouteMembers, ""))
	assert.Equal(t, "/workspaces/ws_42", PathForRoute(RouteWorkspace, "ws_42"))
	assert.Equal(t, "/workspaces/ws_42/projects", PathForRoute(RouteProjects, "ws_42"))

	// Templated route without a workspace cannot be resolved
	assert.Equal(t, "", PathForRoute(RouteWorkspace, ""))
	assert.Equal(t, "", PathForRoute(RouteKey("bogus"), "ws_42"))
}

func TestOwnerUniverse(t *testing.T) {
	// Every route reachable through a permission must be part of the
	// route-key universe the owner receives.
	all := AllRouteKeys()
	for route := range routeRequiredPermissions {
		assert.Contains(t, all, route)
	}
	for _, route := range AlwaysAllowedRoutes() {
		assert.Contains(t, all, route)
	}
	assert.True(t, KnownRoute(RouteBilling))
	assert.False(t, KnownRoute(RouteKey("nope")))
}
