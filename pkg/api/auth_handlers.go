package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/taskhive/taskhive/pkg/audit"
	"github.com/taskhive/taskhive/pkg/httputil"
	"github.com/taskhive/taskhive/pkg/identity"
	"github.com/taskhive/taskhive/pkg/middleware"
	"github.com/taskhive/taskhive/pkg/store"
)

// Credential verification (passwords, email verification, 2FA) happens at
// the identity gateway upstream of this service. These handlers only
// manage account records and session tokens for identities the gateway
// has already asserted.

type signUpRequest struct {
	Email string `json:"email"`
}

type sessionResponse struct {
	Token string         `json:"token"`
	User  *identity.User `json:"user"`
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		httputil.WriteBadRequest(w, "valid email is required")
		return
	}

	if _, err := s.store.GetUserByEmail(r.Context(), email); err == nil {
		httputil.WriteConflict(w, "account already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		httputil.WriteInternalError(w, err)
		return
	}

	user := &identity.User{Email: email}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	session, err := s.store.CreateSession(r.Context(), user.ID, s.sessionTTL)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	s.logAuth(r, audit.EventTypeAuthLogin, audit.EventStatusSuccess, user.ID)
	setSessionCookie(w, session.Token, s.sessionTTL)
	httputil.WriteCreated(w, sessionResponse{Token: session.Token, User: user})
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.store.GetUserByEmail(r.Context(), email)
	if errors.Is(err, store.ErrNotFound) {
		event := audit.NewEvent(audit.EventTypeAuthLoginFailed, audit.EventStatusFailure, r)
		event.Message = "unknown account"
		s.audit.Log(r.Context(), event)
		httputil.WriteUnauthorized(w, "unknown account")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	session, err := s.store.CreateSession(r.Context(), user.ID, s.sessionTTL)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	s.logAuth(r, audit.EventTypeAuthLogin, audit.EventStatusSuccess, user.ID)
	setSessionCookie(w, session.Token, s.sessionTTL)
	httputil.WriteSuccess(w, sessionResponse{Token: session.Token, User: user})
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	token := ""
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		token = cookie.Value
	} else if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	if token != "" {
		if err := s.store.DeleteSession(r.Context(), token); err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
	}

	s.logAuth(r, audit.EventTypeAuthLogout, audit.EventStatusSuccess, user.ID)
	clearSessionCookie(w)
	httputil.WriteNoContent(w)
}

func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, middleware.GetUser(r))
}

type preferencesRequest struct {
	AccountType  identity.AccountType `json:"account_type"`
	PrimaryOrgID *int64               `json:"primary_org_id,omitempty"`
}

// updatePreferences records the onboarding choices: account type and, for
// ORG accounts, the preferred organization.
func (s *Server) updatePreferences(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req preferencesRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !req.AccountType.Valid() {
		httputil.WriteBadRequest(w, "account_type must be PERSONAL or ORG")
		return
	}

	prefs := user.Preferences
	prefs.AccountType = req.AccountType
	prefs.PrimaryOrgID = req.PrimaryOrgID

	if err := s.store.UpdateUserPreferences(r.Context(), user.ID, prefs); err != nil {
		writeStoreError(w, err)
		return
	}

	user.Preferences = prefs
	httputil.WriteSuccess(w, user)
}

func (s *Server) acceptLegal(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	prefs := user.Preferences
	prefs.LegalAccepted = true

	if err := s.store.UpdateUserPreferences(r.Context(), user.ID, prefs); err != nil {
		writeStoreError(w, err)
		return
	}

	user.Preferences = prefs
	httputil.WriteSuccess(w, user)
}

func (s *Server) logAuth(r *http.Request, eventType audit.EventType, status audit.EventStatus, userID int64) {
	event := audit.NewEvent(eventType, status, r)
	event.UserID = &userID
	event.ResourceType = audit.ResourceTypeUser
	s.audit.Log(r.Context(), event)
}

func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
