package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/taskhive/taskhive/pkg/access"
	"github.com/taskhive/taskhive/pkg/audit"
	"github.com/taskhive/taskhive/pkg/catalog"
	"github.com/taskhive/taskhive/pkg/httputil"
	"github.com/taskhive/taskhive/pkg/identity"
	"github.com/taskhive/taskhive/pkg/middleware"
	"github.com/taskhive/taskhive/pkg/store"
)

type createOrgRequest struct {
	Name string `json:"name"`
}

// createOrganization creates an org and makes the caller its ACTIVE
// owner. The caller's primary-org preference is set when still unset.
func (s *Server) createOrganization(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req createOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	org := &store.Organization{Name: req.Name}
	if err := s.store.CreateOrganization(r.Context(), org); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	member := &store.OrgMember{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Role:           identity.RoleOwner,
		Status:         identity.MemberStatusActive,
	}
	if err := s.store.AddOrgMember(r.Context(), member); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	if user.Preferences.PrimaryOrgID == nil {
		prefs := user.Preferences
		prefs.PrimaryOrgID = &org.ID
		if err := s.store.UpdateUserPreferences(r.Context(), user.ID, prefs); err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
	}

	s.logOrgEvent(r, audit.EventTypeOrgCreate, audit.EventStatusSuccess, user.ID, org.ID,
		audit.ResourceTypeOrganization, strconv.FormatInt(org.ID, 10), "")
	httputil.WriteCreated(w, org)
}

func (s *Server) getOrganization(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r)
	if org == nil {
		httputil.WriteBadRequest(w, "organization context missing")
		return
	}
	httputil.WriteSuccess(w, org)
}

func (s *Server) listOrgMembers(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r)

	members, err := s.store.ListOrgMembers(r.Context(), org.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, members)
}

type updateRoleRequest struct {
	Role identity.OrgRole `json:"role"`
}

// updateMemberRole changes a member's role. Promoting to OWNER requires
// the caller to be an owner; demoting the last active owner is rejected
// by the store.
func (s *Server) updateMemberRole(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	org := middleware.GetOrg(r)
	targetID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}

	var req updateRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !req.Role.Valid() {
		httputil.WriteBadRequest(w, "invalid role")
		return
	}

	if req.Role == identity.RoleOwner {
		if _, ok := s.requireOwner(w, r, user.ID, org.ID); !ok {
			return
		}
	}

	if err := s.store.UpdateOrgMemberRole(r.Context(), org.ID, targetID, req.Role); err != nil {
		writeStoreError(w, err)
		return
	}

	s.access.Invalidate(targetID, org.ID)
	s.logOrgEvent(r, audit.EventTypeAuthzRoleChange, audit.EventStatusSuccess, user.ID, org.ID,
		audit.ResourceTypeUser, strconv.FormatInt(targetID, 10), string(req.Role))
	httputil.WriteNoContent(w)
}

// removeOrgMember removes a member. The store rejects removing the last
// active owner.
func (s *Server) removeOrgMember(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	org := middleware.GetOrg(r)
	targetID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}

	if err := s.store.RemoveOrgMember(r.Context(), org.ID, targetID); err != nil {
		writeStoreError(w, err)
		return
	}

	s.access.Invalidate(targetID, org.ID)
	s.logOrgEvent(r, audit.EventTypeMemberRemove, audit.EventStatusSuccess, user.ID, org.ID,
		audit.ResourceTypeUser, strconv.FormatInt(targetID, 10), "")
	httputil.WriteNoContent(w)
}

// activateOrgMember flips a PENDING membership to ACTIVE
func (s *Server) activateOrgMember(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	org := middleware.GetOrg(r)
	targetID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}

	if err := s.store.ActivateOrgMember(r.Context(), org.ID, targetID); err != nil {
		writeStoreError(w, err)
		return
	}

	s.access.Invalidate(targetID, org.ID)
	s.logOrgEvent(r, audit.EventTypeMemberJoin, audit.EventStatusSuccess, user.ID, org.ID,
		audit.ResourceTypeUser, strconv.FormatInt(targetID, 10), "")
	httputil.WriteNoContent(w)
}

type grantRequest struct {
	Permission catalog.OrgPermission `json:"permission"`
}

// grantMemberPermission adds an explicit permission grant. Granting the
// permission-management capability itself is reserved for owners.
func (s *Server) grantMemberPermission(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	org := middleware.GetOrg(r)
	targetID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}

	var req grantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !validOrgPermission(req.Permission) {
		httputil.WriteBadRequest(w, "unknown permission")
		return
	}
	if req.Permission == catalog.PermPermissionsManage {
		if _, ok := s.requireOwner(w, r, user.ID, org.ID); !ok {
			return
		}
	}

	member, err := s.store.GetOrgMember(r.Context(), org.ID, targetID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if err := s.store.GrantMemberPermission(r.Context(), member.ID, req.Permission, user.ID); err != nil {
		writeStoreError(w, err)
		return
	}

	s.access.Invalidate(targetID, org.ID)
	s.logOrgEvent(r, audit.EventTypeAuthzPermissionGrant, audit.EventStatusSuccess, user.ID, org.ID,
		audit.ResourceTypePermission, string(req.Permission), strconv.FormatInt(targetID, 10))
	httputil.WriteNoContent(w)
}

func (s *Server) revokeMemberPermission(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	org := middleware.GetOrg(r)
	targetID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}
	perm, err := httputil.ParsePathString(r, "permission")
	if err != nil {
		httputil.WriteBadRequest(w, "permission is required")
		return
	}

	member, err := s.store.GetOrgMember(r.Context(), org.ID, targetID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if err := s.store.RevokeMemberPermission(r.Context(), member.ID, catalog.OrgPermission(perm)); err != nil {
		writeStoreError(w, err)
		return
	}

	s.access.Invalidate(targetID, org.ID)
	s.logOrgEvent(r, audit.EventTypeAuthzPermissionRevoke, audit.EventStatusSuccess, user.ID, org.ID,
		audit.ResourceTypePermission, perm, strconv.FormatInt(targetID, 10))
	httputil.WriteNoContent(w)
}

type inviteRequest struct {
	Email string           `json:"email"`
	Role  identity.OrgRole `json:"role"`
}

// createInvitation issues an invitation token. Inviting at OWNER level
// requires the caller to be an owner.
func (s *Server) createInvitation(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	org := middleware.GetOrg(r)

	var req inviteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" {
		httputil.WriteBadRequest(w, "email is required")
		return
	}
	if !req.Role.Valid() {
		httputil.WriteBadRequest(w, "invalid role")
		return
	}
	if req.Role == identity.RoleOwner {
		if _, ok := s.requireOwner(w, r, user.ID, org.ID); !ok {
			return
		}
	}

	invitation := &store.OrgInvitation{
		OrganizationID: org.ID,
		Email:          req.Email,
		Role:           req.Role,
		InvitedBy:      user.ID,
	}
	if err := s.store.CreateInvitation(r.Context(), invitation); err != nil {
		writeStoreError(w, err)
		return
	}

	s.logOrgEvent(r, audit.EventTypeMemberInvite, audit.EventStatusSuccess, user.ID, org.ID,
		audit.ResourceTypeInvitation, invitation.Email, string(req.Role))
	httputil.WriteCreated(w, invitation)
}

// acceptInvitation consumes an invitation token and creates the PENDING
// membership for the caller.
func (s *Server) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	token, err := httputil.ParsePathString(r, "token")
	if err != nil {
		httputil.WriteBadRequest(w, "token is required")
		return
	}

	invitation, err := s.store.GetInvitation(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFoundError(w, "invitation not found or expired")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	if err := s.store.AcceptInvitation(r.Context(), token, user.ID); err != nil {
		writeStoreError(w, err)
		return
	}

	s.logOrgEvent(r, audit.EventTypeMemberJoin, audit.EventStatusSuccess, user.ID, invitation.OrganizationID,
		audit.ResourceTypeInvitation, token, "pending activation")
	httputil.WriteNoContent(w)
}

type departmentRequest struct {
	Name        string                  `json:"name"`
	Permissions []catalog.OrgPermission `json:"permissions"`
}

func (s *Server) createDepartment(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	org := middleware.GetOrg(r)

	var req departmentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}
	for _, p := range req.Permissions {
		if !validOrgPermission(p) {
			httputil.WriteBadRequest(w, "unknown permission "+string(p))
			return
		}
	}

	dept := &store.Department{
		OrganizationID: org.ID,
		Name:           req.Name,
		Permissions:    req.Permissions,
	}
	if err := s.store.CreateDepartment(r.Context(), dept); err != nil {
		writeStoreError(w, err)
		return
	}

	s.logOrgEvent(r, audit.EventTypeDepartmentChange, audit.EventStatusSuccess, user.ID, org.ID,
		audit.ResourceTypeDepartment, strconv.FormatInt(dept.ID, 10), "created")
	httputil.WriteCreated(w, dept)
}

type departmentPermissionsRequest struct {
	Permissions []catalog.OrgPermission `json:"permissions"`
}

// setDepartmentPermissions replaces a department's permission set. Every
// cached access in the org may be affected, so the whole org is
// invalidated.
func (s *Server) setDepartmentPermissions(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	org := middleware.GetOrg(r)
	deptID, ok := httputil.ParsePathInt64OrError(w, r, "deptId")
	if !ok {
		return
	}

	var req departmentPermissionsRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	for _, p := range req.Permissions {
		if !validOrgPermission(p) {
			httputil.WriteBadRequest(w, "unknown permission "+string(p))
			return
		}
	}

	if err := s.store.SetDepartmentPermissions(r.Context(), deptID, req.Permissions); err != nil {
		writeStoreError(w, err)
		return
	}

	s.access.InvalidateOrg(org.ID)
	s.logOrgEvent(r, audit.EventTypeDepartmentChange, audit.EventStatusSuccess, user.ID, org.ID,
		audit.ResourceTypeDepartment, strconv.FormatInt(deptID, 10), "permissions updated")
	httputil.WriteNoContent(w)
}

type departmentMemberRequest struct {
	OrgMemberID int64 `json:"org_member_id"`
}

func (s *Server) addDepartmentMember(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	org := middleware.GetOrg(r)
	deptID, ok := httputil.ParsePathInt64OrError(w, r, "deptId")
	if !ok {
		return
	}

	var req departmentMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := s.store.AddDepartmentMember(r.Context(), deptID, req.OrgMemberID); err != nil {
		writeStoreError(w, err)
		return
	}

	s.access.InvalidateOrg(org.ID)
	s.logOrgEvent(r, audit.EventTypeDepartmentChange, audit.EventStatusSuccess, user.ID, org.ID,
		audit.ResourceTypeDepartment, strconv.FormatInt(deptID, 10), "member added")
	httputil.WriteNoContent(w)
}

func (s *Server) removeDepartmentMember(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	org := middleware.GetOrg(r)
	deptID, ok := httputil.ParsePathInt64OrError(w, r, "deptId")
	if !ok {
		return
	}
	memberID, ok := httputil.ParsePathInt64OrError(w, r, "memberId")
	if !ok {
		return
	}

	if err := s.store.RemoveDepartmentMember(r.Context(), deptID, memberID); err != nil {
		writeStoreError(w, err)
		return
	}

	s.access.InvalidateOrg(org.ID)
	s.logOrgEvent(r, audit.EventTypeDepartmentChange, audit.EventStatusSuccess, user.ID, org.ID,
		audit.ResourceTypeDepartment, strconv.FormatInt(deptID, 10), "member removed")
	httputil.WriteNoContent(w)
}

// searchAuditLog queries the org's audit trail
func (s *Server) searchAuditLog(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r)

	if s.auditSearch == nil {
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "audit trail not available")
		return
	}

	filter := audit.SearchFilter{
		OrganizationID: &org.ID,
		Limit:          httputil.ParseQueryInt(r, "limit", 100),
		Offset:         httputil.ParseQueryInt(r, "offset", 0),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := audit.EventStatus(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.UserID = &id
		}
	}
	if v := r.URL.Query().Get("since"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			filter.StartTime = &ts
		}
	}

	events, err := s.auditSearch.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, events)
}

// requireOwner resolves the caller's access and writes a 403 unless the
// caller is an org owner.
func (s *Server) requireOwner(w http.ResponseWriter, r *http.Request, userID, orgID int64) (*access.UserAccess, bool) {
	acc, err := s.access.ResolveOrgAccess(r.Context(), userID, orgID, 0)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return nil, false
	}
	if !acc.IsMember() {
		httputil.WriteForbidden(w, "not an active member of this organization")
		return nil, false
	}
	if !acc.IsOwner {
		httputil.WriteForbidden(w, "owner role required")
		return nil, false
	}
	return acc, true
}

func validOrgPermission(perm catalog.OrgPermission) bool {
	for _, p := range catalog.AllOrgPermissions() {
		if p == perm {
			return true
		}
	}
	return false
}

func (s *Server) logOrgEvent(r *http.Request, eventType audit.EventType, status audit.EventStatus, userID, orgID int64, resourceType audit.ResourceType, resourceID, message string) {
	event := audit.NewEvent(eventType, status, r)
	event.UserID = &userID
	event.OrganizationID = &orgID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = message
	s.audit.Log(r.Context(), event)
}
