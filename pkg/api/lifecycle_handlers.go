package api

import (
	"net/http"

	"github.com/taskhive/taskhive/pkg/guard"
	"github.com/taskhive/taskhive/pkg/httputil"
	"github.com/taskhive/taskhive/pkg/lifecycle"
	"github.com/taskhive/taskhive/pkg/middleware"
)

type lifecycleResponse struct {
	LegacyState lifecycle.LegacyState        `json:"legacy_state"`
	Lifecycle   *lifecycle.ResolvedLifecycle `json:"lifecycle"`
}

// getLifecycle resolves the caller's lifecycle once and serves both the
// coarse legacy state and the full resolution from that single read.
func (s *Server) getLifecycle(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	resolved := s.lifecycle.Resolve(r.Context(), user)
	httputil.WriteSuccess(w, lifecycleResponse{
		LegacyState: resolved.State.Legacy(),
		Lifecycle:   resolved,
	})
}

type navigationRequest struct {
	Path string `json:"path"`
}

type navigationResponse struct {
	Allowed    bool   `json:"allowed"`
	RedirectTo string `json:"redirect_to,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// evaluateNavigation answers whether the caller may navigate to a path,
// using the routing hints of a fresh lifecycle resolution.
func (s *Server) evaluateNavigation(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req navigationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Path == "" {
		httputil.WriteBadRequest(w, "path is required")
		return
	}

	resolved := s.lifecycle.Resolve(r.Context(), user)
	decision := guard.EvaluateNavigation(resolved, req.Path)

	httputil.WriteSuccess(w, navigationResponse{
		Allowed:    decision.Allowed,
		RedirectTo: decision.RedirectTo,
		Reason:     decision.Reason,
	})
}
