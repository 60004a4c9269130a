// Package guard enforces route and permission access on top of the
// lifecycle and access resolvers.
package guard

import (
	"context"
	"net/http"

	"github.com/taskhive/taskhive/pkg/access"
	"github.com/taskhive/taskhive/pkg/catalog"
	"github.com/taskhive/taskhive/pkg/lifecycle"
)

// Decision is the outcome of an access check
type Decision struct {
	Allowed    bool   `json:"allowed"`
	StatusCode int    `json:"status_code,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

func deny(status int, reason string) Decision {
	return Decision{Allowed: false, StatusCode: status, Reason: reason}
}

func allow() Decision {
	return Decision{Allowed: true, StatusCode: http.StatusOK}
}

// CheckAccess decides whether the resolved identity may access a route.
// Unauthenticated callers get 401, unknown routes 404, and known routes
// without the required permission 403. Denials never reveal whether the
// route exists for someone else.
func CheckAccess(resolved *lifecycle.ResolvedLifecycle, acc *access.UserAccess, route catalog.RouteKey) Decision {
	if resolved == nil || resolved.State == lifecycle.StateUnauthenticated {
		return deny(http.StatusUnauthorized, "authentication required")
	}
	if !catalog.KnownRoute(route) {
		return deny(http.StatusNotFound, "unknown route")
	}

	for _, r := range catalog.AlwaysAllowedRoutes() {
		if r == route {
			return allow()
		}
	}

	// Workspace-scoped routes need only an active workspace membership
	for _, r := range catalog.WorkspaceScopedRoutes() {
		if r == route {
			if resolved.HasWorkspace {
				return allow()
			}
			return deny(http.StatusForbidden, "no workspace membership")
		}
	}

	if acc == nil {
		return deny(http.StatusForbidden, "no organization access")
	}
	if acc.CanAccessRoute(route) {
		return allow()
	}
	return deny(http.StatusForbidden, "insufficient permissions")
}

// GuardRouteAccess is the navigation-side counterpart of CheckAccess: a
// denial carries the redirect target from the lifecycle resolution
// instead of a bare status code.
func GuardRouteAccess(resolved *lifecycle.ResolvedLifecycle, acc *access.UserAccess, route catalog.RouteKey) Decision {
	decision := CheckAccess(resolved, acc, route)
	if decision.Allowed {
		return decision
	}
	if resolved != nil && resolved.RedirectTo != "" {
		decision.RedirectTo = resolved.RedirectTo
	} else {
		decision.RedirectTo = catalog.PathSignIn
	}
	return decision
}

// AccessResolver resolves scoped access for the middleware
type AccessResolver interface {
	ResolveOrgAccess(ctx context.Context, userID, orgID, workspaceID int64) (*access.UserAccess, error)
	ResolveProjectAccess(ctx context.Context, userID, projectID int64) (*access.ProjectAccess, error)
}
