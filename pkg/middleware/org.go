package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/taskhive/taskhive/pkg/contextkeys"
	"github.com/taskhive/taskhive/pkg/store"
)

// OrgReader loads organizations
type OrgReader interface {
	GetOrganization(ctx context.Context, id int64) (*store.Organization, error)
}

// OrgMiddleware resolves the {orgId} path variable into the organization
// and places it in the request context.
type OrgMiddleware struct {
	orgs OrgReader
}

// NewOrgMiddleware creates an organization context middleware
func NewOrgMiddleware(orgs OrgReader) *OrgMiddleware {
	return &OrgMiddleware{orgs: orgs}
}

// Handler wraps an HTTP handler with organization resolution
func (m *OrgMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgIDStr, ok := mux.Vars(r)["orgId"]
		if !ok {
			http.Error(w, "organization ID required", http.StatusBadRequest)
			return
		}
		orgID, err := strconv.ParseInt(orgIDStr, 10, 64)
		if err != nil {
			http.Error(w, "invalid organization ID", http.StatusBadRequest)
			return
		}

		org, err := m.orgs.GetOrganization(r.Context(), orgID)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "organization not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "failed to load organization", http.StatusInternalServerError)
			return
		}

		ctx := contextkeys.WithOrg(r.Context(), org)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOrg extracts the organization from the request, or nil
func GetOrg(r *http.Request) *store.Organization {
	org, ok := r.Context().Value(contextkeys.OrgKey).(*store.Organization)
	if !ok {
		return nil
	}
	return org
}
