package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/taskhive/taskhive/pkg/contextkeys"
	"github.com/taskhive/taskhive/pkg/identity"
)

// SessionReader resolves a session token to its user
type SessionReader interface {
	GetSessionUser(ctx context.Context, token string) (*identity.User, error)
}

// SessionCookieName is the cookie carrying the session token
const SessionCookieName = "taskhive_session"

// SessionMiddleware authenticates requests by session token, from the
// session cookie or a Bearer header. In optional mode unauthenticated
// requests pass through with no user in context.
type SessionMiddleware struct {
	sessions SessionReader
	optional bool
}

// NewSessionMiddleware creates a session authentication middleware
func NewSessionMiddleware(sessions SessionReader, optional bool) *SessionMiddleware {
	return &SessionMiddleware{
		sessions: sessions,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with session authentication
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			unauthorizedResponse(w, "authentication required")
			return
		}

		user, err := m.sessions.GetSessionUser(r.Context(), token)
		if err != nil {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			unauthorizedResponse(w, "invalid or expired session")
			return
		}

		ctx := contextkeys.WithSession(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUser extracts the authenticated user from the request, or nil
func GetUser(r *http.Request) *identity.User {
	user, ok := r.Context().Value(contextkeys.SessionKey).(*identity.User)
	if !ok {
		return nil
	}
	return user
}

// RequireUser rejects requests without an authenticated user
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r) == nil {
			unauthorizedResponse(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

func forbiddenResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
