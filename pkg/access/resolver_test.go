package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/pkg/catalog"
	"github.com/taskhive/taskhive/pkg/identity"
	"github.com/taskhive/taskhive/pkg/store"
)

type fakeReader struct {
	member      *store.OrgMember
	memberErr   error
	grants      []catalog.OrgPermission
	deptGrants  []catalog.OrgPermission
	project     *store.Project
	wsMember    *store.WorkspaceMember
	memberships []*store.ProjectMembershipDetail

	orgMemberCalls int
}

func (f *fakeReader) GetOrgMember(ctx context.Context, orgID, userID int64) (*store.OrgMember, error) {
	f.orgMemberCalls++
	if f.memberErr != nil {
		return nil, f.memberErr
	}
	if f.member == nil {
		return nil, store.ErrNotFound
	}
	return f.member, nil
}

func (f *fakeReader) ListMemberGrants(ctx context.Context, orgMemberID int64) ([]catalog.OrgPermission, error) {
	return f.grants, nil
}

func (f *fakeReader) ListDepartmentGrants(ctx context.Context, orgMemberID int64) ([]catalog.OrgPermission, error) {
	return f.deptGrants, nil
}

func (f *fakeReader) GetProject(ctx context.Context, id int64) (*store.Project, error) {
	if f.project == nil {
		return nil, store.ErrNotFound
	}
	return f.project, nil
}

func (f *fakeReader) GetWorkspaceMember(ctx context.Context, workspaceID, userID int64) (*store.WorkspaceMember, error) {
	if f.wsMember == nil {
		return nil, store.ErrNotFound
	}
	return f.wsMember, nil
}

func (f *fakeReader) ListProjectMemberships(ctx context.Context, projectID, userID int64) ([]*store.ProjectMembershipDetail, error) {
	return f.memberships, nil
}

func activeMember(role identity.OrgRole) *store.OrgMember {
	return &store.OrgMember{
		ID:             1,
		OrganizationID: 10,
		UserID:         7,
		Role:           role,
		Status:         identity.MemberStatusActive,
	}
}

func TestResolveOrgAccessOwner(t *testing.T) {
	reader := &fakeReader{member: activeMember(identity.RoleOwner)}
	r := NewResolver(reader, 0, nil, nil)

	access, err := r.ResolveOrgAccess(context.Background(), 7, 10, 0)
	require.NoError(t, err)

	assert.True(t, access.IsOwner)
	assert.ElementsMatch(t, catalog.AllOrgPermissions(), access.Permissions)
	assert.ElementsMatch(t, catalog.AllRouteKeys(), access.AllowedRoutes)

	// Owners pass every check, even for permissions outside their list
	for _, perm := range catalog.AllOrgPermissions() {
		assert.True(t, access.HasPermission(perm))
	}
}

func TestResolveOrgAccessMemberUnion(t *testing.T) {
	reader := &fakeReader{
		member:     activeMember(identity.RoleMember),
		grants:     []catalog.OrgPermission{catalog.PermReportsView},
		deptGrants: []catalog.OrgPermission{catalog.PermMembersView, catalog.PermReportsView},
	}
	r := NewResolver(reader, 0, nil, nil)

	access, err := r.ResolveOrgAccess(context.Background(), 7, 10, 0)
	require.NoError(t, err)

	assert.False(t, access.IsOwner)
	// MEMBER has no role defaults, so the union is exactly the grants
	assert.ElementsMatch(t,
		[]catalog.OrgPermission{catalog.PermReportsView, catalog.PermMembersView},
		access.Permissions)
	assert.True(t, access.HasPermission(catalog.PermReportsView))
	assert.False(t, access.HasPermission(catalog.PermOrgManage))
	assert.True(t, access.CanAccessRoute(catalog.RouteReports))
	assert.True(t, access.CanAccessRoute(catalog.RouteProfile))
	assert.False(t, access.CanAccessRoute(catalog.RouteBilling))
}

func TestResolveOrgAccessMonotonic(t *testing.T) {
	base := &fakeReader{member: activeMember(identity.RoleMember)}
	r := NewResolver(base, 0, nil, nil)
	baseline, err := r.ResolveOrgAccess(context.Background(), 7, 10, 0)
	require.NoError(t, err)

	granted := &fakeReader{
		member: activeMember(identity.RoleMember),
		grants: []catalog.OrgPermission{catalog.PermMembersView},
	}
	r2 := NewResolver(granted, 0, nil, nil)
	wider, err := r2.ResolveOrgAccess(context.Background(), 7, 10, 0)
	require.NoError(t, err)

	// Adding a grant never removes a route
	for _, route := range baseline.AllowedRoutes {
		assert.Contains(t, wider.AllowedRoutes, route)
	}
	assert.Contains(t, wider.AllowedRoutes, catalog.RouteMembers)
}

func TestResolveOrgAccessAdminDefaults(t *testing.T) {
	reader := &fakeReader{member: activeMember(identity.RoleAdmin)}
	r := NewResolver(reader, 0, nil, nil)

	access, err := r.ResolveOrgAccess(context.Background(), 7, 10, 0)
	require.NoError(t, err)

	assert.ElementsMatch(t, catalog.DefaultPermissions(identity.RoleAdmin), access.Permissions)
	assert.False(t, access.IsOwner)
}

func TestResolveOrgAccessNonMember(t *testing.T) {
	r := NewResolver(&fakeReader{}, 0, nil, nil)

	access, err := r.ResolveOrgAccess(context.Background(), 7, 10, 0)
	require.NoError(t, err)

	// A non-member still gets base access: always-allowed routes, no
	// org permissions.
	assert.False(t, access.IsMember())
	assert.False(t, access.IsOwner)
	assert.Empty(t, access.Permissions)
	assert.ElementsMatch(t, catalog.AlwaysAllowedRoutes(), access.AllowedRoutes)
	assert.Contains(t, access.AllowedPaths, "/profile")
	assert.False(t, access.HasPermission(catalog.PermMembersView))
	assert.False(t, access.CanAccessRoute(catalog.RouteMembers))
	assert.True(t, access.CanAccessRoute(catalog.RouteProfile))
}

func TestResolveOrgAccessPendingMember(t *testing.T) {
	member := activeMember(identity.RoleMember)
	member.Status = identity.MemberStatusPending
	r := NewResolver(&fakeReader{member: member}, 0, nil, nil)

	access, err := r.ResolveOrgAccess(context.Background(), 7, 10, 0)
	require.NoError(t, err)

	assert.False(t, access.IsMember())
	assert.Empty(t, access.Permissions)
	assert.ElementsMatch(t, catalog.AlwaysAllowedRoutes(), access.AllowedRoutes)
}

func TestResolveOrgAccessNoOrg(t *testing.T) {
	reader := &fakeReader{member: activeMember(identity.RoleOwner)}
	r := NewResolver(reader, 0, nil, nil)

	access, err := r.ResolveOrgAccess(context.Background(), 7, 0, 0)
	require.NoError(t, err)

	// No org scope never touches the store
	assert.Equal(t, 0, reader.orgMemberCalls)
	assert.False(t, access.IsMember())
	assert.ElementsMatch(t, catalog.AlwaysAllowedRoutes(), access.AllowedRoutes)
}

func TestResolveOrgAccessWorkspacePaths(t *testing.T) {
	reader := &fakeReader{member: activeMember(identity.RoleMember)}
	r := NewResolver(reader, 0, nil, nil)

	without, err := r.ResolveOrgAccess(context.Background(), 7, 10, 0)
	require.NoError(t, err)
	assert.Contains(t, without.AllowedRoutes, catalog.RouteWorkspace)
	assert.NotContains(t, without.AllowedPaths, "/workspaces/3")

	with, err := r.ResolveOrgAccess(context.Background(), 7, 10, 3)
	require.NoError(t, err)
	assert.Contains(t, with.AllowedPaths, "/workspaces/3")
	assert.NotContains(t, with.AllowedPaths, "/workspaces/"+catalog.WorkspaceIDPlaceholder)
}

func TestResolveOrgAccessCaching(t *testing.T) {
	reader := &fakeReader{member: activeMember(identity.RoleAdmin)}
	r := NewResolver(reader, time.Minute, nil, nil)

	first, err := r.ResolveOrgAccess(context.Background(), 7, 10, 0)
	require.NoError(t, err)
	second, err := r.ResolveOrgAccess(context.Background(), 7, 10, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, reader.orgMemberCalls)
	assert.Equal(t, first, second)

	r.Invalidate(7, 10)
	_, err = r.ResolveOrgAccess(context.Background(), 7, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, reader.orgMemberCalls)
}

func TestInvalidateClearsWorkspaceVariants(t *testing.T) {
	reader := &fakeReader{member: activeMember(identity.RoleAdmin)}
	r := NewResolver(reader, time.Minute, nil, nil)

	_, err := r.ResolveOrgAccess(context.Background(), 7, 10, 0)
	require.NoError(t, err)
	_, err = r.ResolveOrgAccess(context.Background(), 7, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, reader.orgMemberCalls)

	r.Invalidate(7, 10)

	_, err = r.ResolveOrgAccess(context.Background(), 7, 10, 0)
	require.NoError(t, err)
	_, err = r.ResolveOrgAccess(context.Background(), 7, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, reader.orgMemberCalls)
}

func TestInvalidateOrgClearsAllUsers(t *testing.T) {
	reader := &fakeReader{member: activeMember(identity.RoleAdmin)}
	r := NewResolver(reader, time.Minute, nil, nil)

	_, err := r.ResolveOrgAccess(context.Background(), 7, 10, 0)
	require.NoError(t, err)

	r.InvalidateOrg(10)

	_, err = r.ResolveOrgAccess(context.Background(), 7, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, reader.orgMemberCalls)
}

func TestResolveProjectAccessUnion(t *testing.T) {
	reader := &fakeReader{
		project: &store.Project{ID: 5, WorkspaceID: 3},
		memberships: []*store.ProjectMembershipDetail{
			{
				TeamID: 1, TeamName: "backend", RoleID: 1, RoleName: "editor",
				Permissions: []catalog.ProjectPermission{catalog.ProjectPermView, catalog.ProjectPermTasksEdit},
			},
			{
				TeamID: 2, TeamName: "infra", RoleID: 2, RoleName: "lead",
				Permissions: []catalog.ProjectPermission{catalog.ProjectPermView, catalog.ProjectPermTasksAssign},
			},
		},
	}
	r := NewResolver(reader, 0, nil, nil)

	access, err := r.ResolveProjectAccess(context.Background(), 7, 5)
	require.NoError(t, err)

	assert.True(t, access.HasAccess)
	assert.False(t, access.ViaWorkspaceAdmin)
	assert.Len(t, access.Memberships, 2)
	assert.ElementsMatch(t,
		[]catalog.ProjectPermission{catalog.ProjectPermView, catalog.ProjectPermTasksEdit, catalog.ProjectPermTasksAssign},
		access.Permissions)
	assert.True(t, access.HasProjectPermission(catalog.ProjectPermTasksAssign))
	assert.False(t, access.HasProjectPermission(catalog.ProjectPermDelete))
}

func TestResolveProjectAccessWorkspaceAdminOverride(t *testing.T) {
	reader := &fakeReader{
		project: &store.Project{ID: 5, WorkspaceID: 3},
		wsMember: &store.WorkspaceMember{
			WorkspaceID: 3, UserID: 7,
			Role:   identity.WorkspaceRoleAdmin,
			Status: identity.WorkspaceMemberActive,
		},
	}
	r := NewResolver(reader, 0, nil, nil)

	access, err := r.ResolveProjectAccess(context.Background(), 7, 5)
	require.NoError(t, err)

	assert.True(t, access.HasAccess)
	assert.True(t, access.ViaWorkspaceAdmin)
	// Override access carries no membership rows
	assert.Empty(t, access.Memberships)
	// But passes every project permission check
	assert.True(t, access.HasProjectPermission(catalog.ProjectPermDelete))
}

func TestResolveProjectAccessNone(t *testing.T) {
	reader := &fakeReader{project: &store.Project{ID: 5, WorkspaceID: 3}}
	r := NewResolver(reader, 0, nil, nil)

	access, err := r.ResolveProjectAccess(context.Background(), 7, 5)
	require.NoError(t, err)

	assert.False(t, access.HasAccess)
	assert.False(t, access.HasProjectPermission(catalog.ProjectPermView))
}

func TestResolveProjectAccessDeletedWorkspaceMember(t *testing.T) {
	reader := &fakeReader{
		project: &store.Project{ID: 5, WorkspaceID: 3},
		wsMember: &store.WorkspaceMember{
			WorkspaceID: 3, UserID: 7,
			Role:   identity.WorkspaceRoleAdmin,
			Status: identity.WorkspaceMemberDeleted,
		},
	}
	r := NewResolver(reader, 0, nil, nil)

	access, err := r.ResolveProjectAccess(context.Background(), 7, 5)
	require.NoError(t, err)

	assert.False(t, access.HasAccess)
}
