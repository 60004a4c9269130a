package guard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/taskhive/taskhive/pkg/audit"
	"github.com/taskhive/taskhive/pkg/catalog"
	"github.com/taskhive/taskhive/pkg/httputil"
	"github.com/taskhive/taskhive/pkg/middleware"
	"github.com/taskhive/taskhive/pkg/store"
)

// PermissionMiddleware enforces org and project permissions on API
// routes. Denials are written to the audit trail.
type PermissionMiddleware struct {
	resolver AccessResolver
	audit    audit.Logger
}

// NewPermissionMiddleware creates a permission-enforcing middleware
func NewPermissionMiddleware(resolver AccessResolver, auditLogger audit.Logger) *PermissionMiddleware {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &PermissionMiddleware{
		resolver: resolver,
		audit:    auditLogger,
	}
}

// RequireOrgPermission requires the caller to hold an org permission in
// the organization from the request context. Owners always pass.
func (pm *PermissionMiddleware) RequireOrgPermission(perm catalog.OrgPermission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := middleware.GetUser(r)
			if user == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}
			org := middleware.GetOrg(r)
			if org == nil {
				httputil.WriteBadRequest(w, "organization context required")
				return
			}

			acc, err := pm.resolver.ResolveOrgAccess(r.Context(), user.ID, org.ID, 0)
			if err != nil {
				httputil.WriteInternalError(w, err)
				return
			}
			if !acc.IsMember() {
				pm.logDenied(r, user.ID, org.ID, string(perm), "not a member")
				httputil.WriteForbidden(w, "insufficient permissions")
				return
			}

			if !acc.HasPermission(perm) {
				pm.logDenied(r, user.ID, org.ID, string(perm), "missing permission")
				httputil.WriteForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireProjectPermission requires the caller to hold a project
// permission in the project named by the {projectId} path variable.
// Workspace admins pass without project membership.
func (pm *PermissionMiddleware) RequireProjectPermission(perm catalog.ProjectPermission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := middleware.GetUser(r)
			if user == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			projectIDStr, ok := mux.Vars(r)["projectId"]
			if !ok {
				httputil.WriteBadRequest(w, "project ID required")
				return
			}
			projectID, err := strconv.ParseInt(projectIDStr, 10, 64)
			if err != nil {
				httputil.WriteBadRequest(w, "invalid project ID")
				return
			}

			acc, err := pm.resolver.ResolveProjectAccess(r.Context(), user.ID, projectID)
			if errors.Is(err, store.ErrNotFound) {
				httputil.WriteNotFoundError(w, "project not found")
				return
			}
			if err != nil {
				httputil.WriteInternalError(w, err)
				return
			}

			if !acc.HasProjectPermission(perm) {
				event := audit.NewEvent(audit.EventTypeAuthzAccessDenied, audit.EventStatusDenied, r)
				event.UserID = &user.ID
				event.ResourceType = audit.ResourceTypeProject
				event.ResourceID = projectIDStr
				event.Message = "missing project permission " + string(perm)
				_ = pm.audit.Log(r.Context(), event)

				httputil.WriteForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (pm *PermissionMiddleware) logDenied(r *http.Request, userID, orgID int64, perm, reason string) {
	event := audit.NewEvent(audit.EventTypeAuthzAccessDenied, audit.EventStatusDenied, r)
	event.UserID = &userID
	event.OrganizationID = &orgID
	event.ResourceType = audit.ResourceTypePermission
	event.ResourceID = perm
	event.Message = reason
	_ = pm.audit.Log(r.Context(), event)
}
