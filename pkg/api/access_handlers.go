package api

import (
	"errors"
	"net/http"

	"github.com/taskhive/taskhive/pkg/httputil"
	"github.com/taskhive/taskhive/pkg/middleware"
	"github.com/taskhive/taskhive/pkg/store"
)

// getOrgAccess returns the caller's resolved access within the org. The
// optional workspace_id query parameter fills workspace-templated paths.
// A non-member gets 403, never an error payload that leaks membership
// data.
func (s *Server) getOrgAccess(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	org := middleware.GetOrg(r)
	if org == nil {
		httputil.WriteBadRequest(w, "organization context missing")
		return
	}
	workspaceID := httputil.ParseQueryInt64(r, "workspace_id", 0)

	acc, err := s.access.ResolveOrgAccess(r.Context(), user.ID, org.ID, workspaceID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if !acc.IsMember() {
		httputil.WriteForbidden(w, "not an active member of this organization")
		return
	}

	httputil.WriteSuccess(w, acc)
}

// getProjectAccess returns the caller's resolved project access. Unlike
// org access this never 403s: HasAccess=false is a valid answer.
func (s *Server) getProjectAccess(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	projectID, ok := httputil.ParsePathInt64OrError(w, r, "projectId")
	if !ok {
		return
	}

	acc, err := s.access.ResolveProjectAccess(r.Context(), user.ID, projectID)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFoundError(w, "project not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, acc)
}
