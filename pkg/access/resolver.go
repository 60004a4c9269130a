package access

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/taskhive/taskhive/pkg/catalog"
	"github.com/taskhive/taskhive/pkg/identity"
	"github.com/taskhive/taskhive/pkg/observability"
	"github.com/taskhive/taskhive/pkg/store"
)

// Reader is the persistence surface the resolver needs
type Reader interface {
	GetOrgMember(ctx context.Context, orgID, userID int64) (*store.OrgMember, error)
	ListMemberGrants(ctx context.Context, orgMemberID int64) ([]catalog.OrgPermission, error)
	ListDepartmentGrants(ctx context.Context, orgMemberID int64) ([]catalog.OrgPermission, error)
	GetProject(ctx context.Context, id int64) (*store.Project, error)
	GetWorkspaceMember(ctx context.Context, workspaceID, userID int64) (*store.WorkspaceMember, error)
	ListProjectMemberships(ctx context.Context, projectID, userID int64) ([]*store.ProjectMembershipDetail, error)
}

// Resolver computes org-level and project-level access. Resolutions are
// cached in an in-memory TTL cache keyed by user and scope; mutations to
// roles or grants must call Invalidate to keep the cache honest.
type Resolver struct {
	reader  Reader
	orgTTL  time.Duration
	cache   *lru.LRU[string, *UserAccess]
	metrics *observability.Metrics
	logger  *observability.Logger
}

const defaultCacheEntries = 4096

// NewResolver creates an access resolver. A zero cacheTTL disables the
// in-memory cache.
func NewResolver(reader Reader, cacheTTL time.Duration, metrics *observability.Metrics, logger *observability.Logger) *Resolver {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	r := &Resolver{
		reader:  reader,
		orgTTL:  cacheTTL,
		metrics: metrics,
		logger:  logger,
	}
	if cacheTTL > 0 {
		r.cache = lru.NewLRU[string, *UserAccess](defaultCacheEntries, nil, cacheTTL)
	}
	return r
}

func orgCacheKey(userID, orgID, workspaceID int64) string {
	return fmt.Sprintf("%d:%d:%d", userID, orgID, workspaceID)
}

// ResolveOrgAccess computes the effective org-level access for a user.
// workspaceID is optional (zero when no workspace is in scope) and only
// affects how route keys resolve to concrete paths. Owners bypass
// permission accumulation entirely. For everyone else the effective set
// is the union of role defaults, explicit member grants, and department
// grants. A zero orgID, a missing membership, or a non-active membership
// resolves to base access rather than an error: always-allowed routes
// and no org permissions.
func (r *Resolver) ResolveOrgAccess(ctx context.Context, userID, orgID, workspaceID int64) (*UserAccess, error) {
	key := orgCacheKey(userID, orgID, workspaceID)
	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			r.recordCache("org", true)
			return cached, nil
		}
		r.recordCache("org", false)
	}

	if orgID == 0 {
		return r.cacheOrg(key, baseAccess(userID, orgID, workspaceID)), nil
	}

	member, err := r.reader.GetOrgMember(ctx, orgID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return r.cacheOrg(key, baseAccess(userID, orgID, workspaceID)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get org member: %w", err)
	}
	if member.Status != identity.MemberStatusActive {
		return r.cacheOrg(key, baseAccess(userID, orgID, workspaceID)), nil
	}

	access := &UserAccess{
		UserID:     userID,
		OrgID:      orgID,
		Role:       member.Role,
		IsOwner:    member.Role == identity.RoleOwner,
		ResolvedAt: time.Now(),
	}

	if access.IsOwner {
		access.Permissions = catalog.AllOrgPermissions()
		access.AllowedRoutes = catalog.AllRouteKeys()
	} else {
		perms, err := r.effectivePermissions(ctx, member)
		if err != nil {
			return nil, err
		}
		access.Permissions = perms

		routes := catalog.RoutesForPermissions(perms)
		routes = append(routes, catalog.AlwaysAllowedRoutes()...)
		routes = append(routes, catalog.WorkspaceScopedRoutes()...)
		access.AllowedRoutes = dedupRoutes(routes)
	}

	access.AllowedPaths = pathsForRoutes(access.AllowedRoutes, workspaceID)

	return r.cacheOrg(key, access), nil
}

// baseAccess is what a caller with no active membership in the org gets:
// the always-allowed routes and nothing else. Role stays empty so
// IsMember reports false.
func baseAccess(userID, orgID, workspaceID int64) *UserAccess {
	routes := catalog.AlwaysAllowedRoutes()
	return &UserAccess{
		UserID:        userID,
		OrgID:         orgID,
		AllowedRoutes: routes,
		AllowedPaths:  pathsForRoutes(routes, workspaceID),
		ResolvedAt:    time.Now(),
	}
}

// pathsForRoutes resolves route keys to concrete paths. Workspace-scoped
// templates drop out when no workspace ID is supplied.
func pathsForRoutes(routes []catalog.RouteKey, workspaceID int64) []string {
	ws := ""
	if workspaceID > 0 {
		ws = strconv.FormatInt(workspaceID, 10)
	}
	var paths []string
	for _, route := range routes {
		if path := catalog.PathForRoute(route, ws); path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

func (r *Resolver) cacheOrg(key string, access *UserAccess) *UserAccess {
	if r.cache != nil {
		r.cache.Add(key, access)
	}
	return access
}

// effectivePermissions unions role defaults with explicit member grants
// and department grants, deduplicated and sorted for stable output.
func (r *Resolver) effectivePermissions(ctx context.Context, member *store.OrgMember) ([]catalog.OrgPermission, error) {
	permSet := make(map[catalog.OrgPermission]struct{})
	for _, p := range catalog.DefaultPermissions(member.Role) {
		permSet[p] = struct{}{}
	}

	grants, err := r.reader.ListMemberGrants(ctx, member.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list member grants: %w", err)
	}
	for _, p := range grants {
		permSet[p] = struct{}{}
	}

	deptGrants, err := r.reader.ListDepartmentGrants(ctx, member.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list department grants: %w", err)
	}
	for _, p := range deptGrants {
		permSet[p] = struct{}{}
	}

	perms := make([]catalog.OrgPermission, 0, len(permSet))
	for p := range permSet {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms, nil
}

// ResolveProjectAccess computes project-level access: the union of
// permissions across every team membership the user holds in the
// project, with a workspace-admin override that grants full access
// without any membership rows.
func (r *Resolver) ResolveProjectAccess(ctx context.Context, userID, projectID int64) (*ProjectAccess, error) {
	project, err := r.reader.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	access := &ProjectAccess{
		UserID:      userID,
		ProjectID:   projectID,
		WorkspaceID: project.WorkspaceID,
		ResolvedAt:  time.Now(),
	}

	wsMember, err := r.reader.GetWorkspaceMember(ctx, project.WorkspaceID, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to get workspace member: %w", err)
	}
	if wsMember != nil && wsMember.Status == identity.WorkspaceMemberActive && wsMember.Role.IsAdmin() {
		access.HasAccess = true
		access.ViaWorkspaceAdmin = true
	}

	memberships, err := r.reader.ListProjectMemberships(ctx, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project memberships: %w", err)
	}
	if len(memberships) > 0 {
		access.HasAccess = true
		access.Memberships = memberships

		permSet := make(map[catalog.ProjectPermission]struct{})
		for _, m := range memberships {
			for _, p := range m.Permissions {
				permSet[p] = struct{}{}
			}
		}
		access.Permissions = make([]catalog.ProjectPermission, 0, len(permSet))
		for p := range permSet {
			access.Permissions = append(access.Permissions, p)
		}
		sort.Slice(access.Permissions, func(i, j int) bool {
			return access.Permissions[i] < access.Permissions[j]
		})
	}

	return access, nil
}

// Invalidate drops the cached org access for one user in one org,
// across every workspace variant. Call after any role change, grant
// change, or department change affecting the user.
func (r *Resolver) Invalidate(userID, orgID int64) {
	if r.cache == nil {
		return
	}
	prefix := fmt.Sprintf("%d:%d:", userID, orgID)
	for _, key := range r.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			r.cache.Remove(key)
		}
	}
}

// InvalidateOrg drops all cached access entries for an organization
func (r *Resolver) InvalidateOrg(orgID int64) {
	if r.cache == nil {
		return
	}
	// Keys are user:org:workspace, so the org ID is the only segment
	// with colons on both sides.
	marker := fmt.Sprintf(":%d:", orgID)
	for _, key := range r.cache.Keys() {
		if strings.Contains(key, marker) {
			r.cache.Remove(key)
		}
	}
}

func (r *Resolver) recordCache(scope string, hit bool) {
	if r.metrics == nil {
		return
	}
	if hit {
		r.metrics.CacheHitsTotal.WithLabelValues(scope, "memory").Inc()
	} else {
		r.metrics.CacheMissesTotal.WithLabelValues(scope, "memory").Inc()
	}
}

func dedupRoutes(routes []catalog.RouteKey) []catalog.RouteKey {
	seen := make(map[catalog.RouteKey]struct{}, len(routes))
	out := make([]catalog.RouteKey, 0, len(routes))
	for _, route := range routes {
		if _, ok := seen[route]; ok {
			continue
		}
		seen[route] = struct{}{}
		out = append(out, route)
	}
	return out
}
