// Package api exposes the HTTP surface of the authorization engine: the
// lifecycle endpoint, org and project access queries, navigation checks,
// and the membership/grant mutation handlers. Every mutation resolves the
// caller's access first, enforces store invariants, emits an audit event,
// and invalidates the access cache for the affected users.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/taskhive/taskhive/pkg/access"
	"github.com/taskhive/taskhive/pkg/audit"
	"github.com/taskhive/taskhive/pkg/catalog"
	"github.com/taskhive/taskhive/pkg/guard"
	"github.com/taskhive/taskhive/pkg/httputil"
	"github.com/taskhive/taskhive/pkg/lifecycle"
	"github.com/taskhive/taskhive/pkg/middleware"
	"github.com/taskhive/taskhive/pkg/observability"
	"github.com/taskhive/taskhive/pkg/store"
)

// AccessService is the resolver surface the handlers need: resolution for
// the query endpoints and guard middleware, invalidation for mutations.
type AccessService interface {
	ResolveOrgAccess(ctx context.Context, userID, orgID, workspaceID int64) (*access.UserAccess, error)
	ResolveProjectAccess(ctx context.Context, userID, projectID int64) (*access.ProjectAccess, error)
	Invalidate(userID, orgID int64)
	InvalidateOrg(orgID int64)
}

// AuditSearcher is the query side of the audit trail, implemented by
// audit.DBLogger. Nil when no database sink is wired; the audit-log
// endpoint then reports the trail as unavailable.
type AuditSearcher interface {
	Search(ctx context.Context, filter audit.SearchFilter) ([]*audit.Event, error)
}

// Server is the API server
type Server struct {
	store       store.Store
	lifecycle   *lifecycle.Resolver
	access      AccessService
	audit       audit.Logger
	auditSearch AuditSearcher
	logger      *observability.Logger
	router      *mux.Router
	sessionTTL  time.Duration

	signInLimiter func(http.Handler) http.Handler
}

// Option configures optional server collaborators
type Option func(*Server)

// WithAuditLogger sets the audit sink. Defaults to a no-op logger.
func WithAuditLogger(logger audit.Logger) Option {
	return func(s *Server) { s.audit = logger }
}

// WithAuditSearch enables the audit-log query endpoint
func WithAuditSearch(searcher AuditSearcher) Option {
	return func(s *Server) { s.auditSearch = searcher }
}

// WithSessionTTL sets the lifetime of issued sessions
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) { s.sessionTTL = ttl }
}

// WithSignInRateLimit wraps the sign-in and sign-up endpoints with the
// given limiter, typically the Redis-backed distributed one.
func WithSignInRateLimit(limiter func(http.Handler) http.Handler) Option {
	return func(s *Server) { s.signInLimiter = limiter }
}

// NewServer creates the API server and wires its routes
func NewServer(st store.Store, lifecycleResolver *lifecycle.Resolver, accessService AccessService, logger *observability.Logger, opts ...Option) *Server {
	s := &Server{
		store:      st,
		lifecycle:  lifecycleResolver,
		access:     accessService,
		audit:      audit.NopLogger{},
		logger:     logger,
		router:     mux.NewRouter(),
		sessionTTL: 7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s.setupRoutes()
	return s
}

// Router returns the configured handler for mounting
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(httputil.RecoveryMiddleware(s.logger))
	s.router.Use(httputil.LoggingMiddleware(s.logger))

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Auth routes carry no session requirement. Sign-in and sign-up get
	// the distributed rate limiter when one is configured.
	auth := api.PathPrefix("/auth").Subrouter()
	if s.signInLimiter != nil {
		auth.Use(s.signInLimiter)
	}
	auth.HandleFunc("/sign-up", s.signUp).Methods("POST")
	auth.HandleFunc("/sign-in", s.signIn).Methods("POST")

	// Everything below requires a resolved session.
	sessions := middleware.NewSessionMiddleware(s.store, false)
	authed := api.NewRoute().Subrouter()
	authed.Use(sessions.Handler)

	authed.HandleFunc("/auth/sign-out", s.signOut).Methods("POST")

	authed.HandleFunc("/me", s.getMe).Methods("GET")
	authed.HandleFunc("/me/preferences", s.updatePreferences).Methods("PUT")
	authed.HandleFunc("/me/legal-accept", s.acceptLegal).Methods("POST")

	authed.HandleFunc("/lifecycle", s.getLifecycle).Methods("GET")
	authed.HandleFunc("/navigation/evaluate", s.evaluateNavigation).Methods("POST")

	authed.HandleFunc("/orgs", s.createOrganization).Methods("POST")
	authed.HandleFunc("/projects/{projectId}/access", s.getProjectAccess).Methods("GET")
	authed.HandleFunc("/invitations/{token}/accept", s.acceptInvitation).Methods("POST")

	authed.HandleFunc("/workspaces", s.createWorkspace).Methods("POST")
	authed.HandleFunc("/workspaces/{workspaceId}", s.getWorkspace).Methods("GET")
	authed.HandleFunc("/workspaces/{workspaceId}/members", s.addWorkspaceMember).Methods("POST")
	authed.HandleFunc("/workspaces/{workspaceId}/members/{userId}", s.removeWorkspaceMember).Methods("DELETE")
	authed.HandleFunc("/workspaces/{workspaceId}/projects", s.createProject).Methods("POST")

	s.setupProjectRoutes(authed)
	s.setupOrgRoutes(authed)
}

// setupProjectRoutes wires the project-scoped routes. Mutations under a
// project require the matching project permission via the guard.
func (s *Server) setupProjectRoutes(parent *mux.Router) {
	perms := guard.NewPermissionMiddleware(s.access, s.audit)

	parent.Handle("/projects/{projectId}/teams",
		perms.RequireProjectPermission(catalog.ProjectPermRolesManage)(http.HandlerFunc(s.createTeam)),
	).Methods("POST")
	parent.Handle("/projects/{projectId}/roles",
		perms.RequireProjectPermission(catalog.ProjectPermRolesManage)(http.HandlerFunc(s.createProjectRole)),
	).Methods("POST")
	parent.Handle("/projects/{projectId}/members",
		perms.RequireProjectPermission(catalog.ProjectPermMembersManage)(http.HandlerFunc(s.addProjectMember)),
	).Methods("POST")
	parent.Handle("/projects/{projectId}/members/{userId}",
		perms.RequireProjectPermission(catalog.ProjectPermMembersManage)(http.HandlerFunc(s.removeProjectMember)),
	).Methods("DELETE")
}

// setupOrgRoutes wires the org-scoped routes behind the org-context
// middleware and per-route permission guards.
func (s *Server) setupOrgRoutes(parent *mux.Router) {
	orgCtx := middleware.NewOrgMiddleware(s.store)
	perms := guard.NewPermissionMiddleware(s.access, s.audit)

	orgs := parent.PathPrefix("/orgs/{orgId}").Subrouter()
	orgs.Use(orgCtx.Handler)

	orgs.HandleFunc("", s.getOrganization).Methods("GET")
	orgs.HandleFunc("/access", s.getOrgAccess).Methods("GET")

	orgs.Handle("/members",
		perms.RequireOrgPermission(catalog.PermMembersView)(http.HandlerFunc(s.listOrgMembers)),
	).Methods("GET")
	orgs.Handle("/members/{userId}/role",
		perms.RequireOrgPermission(catalog.PermMembersManageRoles)(http.HandlerFunc(s.updateMemberRole)),
	).Methods("PUT")
	orgs.Handle("/members/{userId}",
		perms.RequireOrgPermission(catalog.PermMembersRemove)(http.HandlerFunc(s.removeOrgMember)),
	).Methods("DELETE")
	orgs.Handle("/members/{userId}/activate",
		perms.RequireOrgPermission(catalog.PermMembersManageRoles)(http.HandlerFunc(s.activateOrgMember)),
	).Methods("POST")

	orgs.Handle("/members/{userId}/grants",
		perms.RequireOrgPermission(catalog.PermPermissionsManage)(http.HandlerFunc(s.grantMemberPermission)),
	).Methods("POST")
	orgs.Handle("/members/{userId}/grants/{permission}",
		perms.RequireOrgPermission(catalog.PermPermissionsManage)(http.HandlerFunc(s.revokeMemberPermission)),
	).Methods("DELETE")

	orgs.Handle("/invitations",
		perms.RequireOrgPermission(catalog.PermMembersInvite)(http.HandlerFunc(s.createInvitation)),
	).Methods("POST")

	orgs.Handle("/departments",
		perms.RequireOrgPermission(catalog.PermDepartmentsManage)(http.HandlerFunc(s.createDepartment)),
	).Methods("POST")
	orgs.Handle("/departments/{deptId}/permissions",
		perms.RequireOrgPermission(catalog.PermDepartmentsManage)(http.HandlerFunc(s.setDepartmentPermissions)),
	).Methods("PUT")
	orgs.Handle("/departments/{deptId}/members",
		perms.RequireOrgPermission(catalog.PermDepartmentsManage)(http.HandlerFunc(s.addDepartmentMember)),
	).Methods("POST")
	orgs.Handle("/departments/{deptId}/members/{memberId}",
		perms.RequireOrgPermission(catalog.PermDepartmentsManage)(http.HandlerFunc(s.removeDepartmentMember)),
	).Methods("DELETE")

	orgs.Handle("/audit",
		perms.RequireOrgPermission(catalog.PermAuditLogView)(http.HandlerFunc(s.searchAuditLog)),
	).Methods("GET")
}

// writeStoreError maps store errors to HTTP responses: invariant
// violations are conflicts, missing records are not found.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case store.IsInvariantViolation(err):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, store.ErrNotFound):
		httputil.WriteNotFoundError(w, "not found")
	default:
		httputil.WriteInternalError(w, err)
	}
}
