package guard

import (
	"strings"

	"github.com/taskhive/taskhive/pkg/catalog"
	"github.com/taskhive/taskhive/pkg/lifecycle"
)

// IsPathAllowed evaluates a concrete navigation path against the
// lifecycle resolution's allowed and blocked sets. An explicit allow
// wins over a blocked wildcard; query parameters (tab selection and the
// like) never affect the outcome.
func IsPathAllowed(resolved *lifecycle.ResolvedLifecycle, path string) bool {
	if resolved == nil {
		return false
	}
	path = normalizePath(path)

	for _, pattern := range resolved.AllowedPaths {
		if matchPath(pattern, path) {
			return true
		}
	}
	for _, pattern := range resolved.BlockedPaths {
		if matchPath(pattern, path) {
			return false
		}
	}
	return true
}

// EvaluateNavigation decides whether a navigation may proceed and where
// to send the user when it may not.
func EvaluateNavigation(resolved *lifecycle.ResolvedLifecycle, path string) Decision {
	if IsPathAllowed(resolved, path) {
		return allow()
	}
	redirect := catalog.PathSignIn
	if resolved != nil && resolved.RedirectTo != "" {
		redirect = resolved.RedirectTo
	}
	return Decision{Allowed: false, Reason: "path not allowed", RedirectTo: redirect}
}

// normalizePath strips query and fragment and trailing slash
func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// matchPath matches a concrete path against a pattern. Supported
// patterns: "*" (everything), a "/prefix/*" wildcard, templates with
// the :workspaceId placeholder, and exact paths.
func matchPath(pattern, path string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	if strings.Contains(pattern, catalog.WorkspaceIDPlaceholder) {
		return matchTemplate(pattern, path)
	}
	return pattern == path
}

func matchTemplate(pattern, path string) bool {
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")
	if len(patternParts) != len(pathParts) {
		return false
	}
	for i, part := range patternParts {
		if strings.HasPrefix(part, ":") {
			if pathParts[i] == "" {
				return false
			}
			continue
		}
		if part != pathParts[i] {
			return false
		}
	}
	return true
}
