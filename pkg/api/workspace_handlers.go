package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/taskhive/taskhive/pkg/audit"
	"github.com/taskhive/taskhive/pkg/catalog"
	"github.com/taskhive/taskhive/pkg/httputil"
	"github.com/taskhive/taskhive/pkg/identity"
	"github.com/taskhive/taskhive/pkg/middleware"
	"github.com/taskhive/taskhive/pkg/store"
)

type createWorkspaceRequest struct {
	Name           string `json:"name"`
	OrganizationID *int64 `json:"organization_id,omitempty"`
	IsDefault      bool   `json:"is_default"`
}

// createWorkspace creates a workspace owned by the caller. The store
// rejects a second workspace for PERSONAL accounts.
func (s *Server) createWorkspace(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req createWorkspaceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}
	if !user.Preferences.AccountType.Valid() {
		httputil.WriteBadRequest(w, "select an account type before creating a workspace")
		return
	}

	ws := &store.Workspace{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		IsDefault:      req.IsDefault,
	}
	if err := s.store.CreateWorkspace(r.Context(), ws, user.ID, user.Preferences.AccountType); err != nil {
		writeStoreError(w, err)
		return
	}

	event := audit.NewEvent(audit.EventTypeWorkspaceCreate, audit.EventStatusSuccess, r)
	event.UserID = &user.ID
	event.OrganizationID = req.OrganizationID
	event.ResourceType = audit.ResourceTypeWorkspace
	event.ResourceID = strconv.FormatInt(ws.ID, 10)
	s.audit.Log(r.Context(), event)

	httputil.WriteCreated(w, ws)
}

// getWorkspace returns a workspace the caller is an active member of
func (s *Server) getWorkspace(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	workspaceID, ok := httputil.ParsePathInt64OrError(w, r, "workspaceId")
	if !ok {
		return
	}

	if _, ok := s.requireActiveWorkspaceMember(w, r, workspaceID, user.ID, false); !ok {
		return
	}

	ws, err := s.store.GetWorkspace(r.Context(), workspaceID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, ws)
}

type workspaceMemberRequest struct {
	UserID int64                  `json:"user_id"`
	Role   identity.WorkspaceRole `json:"role"`
}

// addWorkspaceMember adds a member, or reactivates a soft-deleted one.
// Requires the caller to be a workspace admin.
func (s *Server) addWorkspaceMember(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	workspaceID, ok := httputil.ParsePathInt64OrError(w, r, "workspaceId")
	if !ok {
		return
	}
	if _, ok := s.requireActiveWorkspaceMember(w, r, workspaceID, user.ID, true); !ok {
		return
	}

	var req workspaceMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = identity.WorkspaceRoleMember
	}

	member := &store.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      req.UserID,
		Role:        req.Role,
		Status:      identity.WorkspaceMemberActive,
	}
	if err := s.store.AddWorkspaceMember(r.Context(), member); err != nil {
		writeStoreError(w, err)
		return
	}

	s.logWorkspaceEvent(r, audit.EventTypeMemberJoin, user.ID, workspaceID, req.UserID)
	httputil.WriteCreated(w, member)
}

// removeWorkspaceMember soft-deletes a membership. The row survives;
// re-adding the same user reactivates it.
func (s *Server) removeWorkspaceMember(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	workspaceID, ok := httputil.ParsePathInt64OrError(w, r, "workspaceId")
	if !ok {
		return
	}
	targetID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}
	if _, ok := s.requireActiveWorkspaceMember(w, r, workspaceID, user.ID, true); !ok {
		return
	}

	if err := s.store.RemoveWorkspaceMember(r.Context(), workspaceID, targetID); err != nil {
		writeStoreError(w, err)
		return
	}

	s.logWorkspaceEvent(r, audit.EventTypeMemberRemove, user.ID, workspaceID, targetID)
	httputil.WriteNoContent(w)
}

type createProjectRequest struct {
	Name string `json:"name"`
}

// createProject creates a project in a workspace. Requires workspace
// admin; org-level project permissions do not reach personal workspaces.
func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	workspaceID, ok := httputil.ParsePathInt64OrError(w, r, "workspaceId")
	if !ok {
		return
	}
	if _, ok := s.requireActiveWorkspaceMember(w, r, workspaceID, user.ID, true); !ok {
		return
	}

	var req createProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	project := &store.Project{WorkspaceID: workspaceID, Name: req.Name}
	if err := s.store.CreateProject(r.Context(), project); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteCreated(w, project)
}

type createTeamRequest struct {
	Name string `json:"name"`
}

func (s *Server) createTeam(w http.ResponseWriter, r *http.Request) {
	projectID, ok := httputil.ParsePathInt64OrError(w, r, "projectId")
	if !ok {
		return
	}

	var req createTeamRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	team := &store.Team{ProjectID: projectID, Name: req.Name}
	if err := s.store.CreateTeam(r.Context(), team); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteCreated(w, team)
}

type createProjectRoleRequest struct {
	Name        string                      `json:"name"`
	Permissions []catalog.ProjectPermission `json:"permissions"`
}

func (s *Server) createProjectRole(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	projectID, ok := httputil.ParsePathInt64OrError(w, r, "projectId")
	if !ok {
		return
	}

	var req createProjectRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}
	for _, p := range req.Permissions {
		if !validProjectPermission(p) {
			httputil.WriteBadRequest(w, "unknown permission "+string(p))
			return
		}
	}

	role := &store.ProjectRole{
		ProjectID:   projectID,
		Name:        req.Name,
		Permissions: req.Permissions,
	}
	if err := s.store.CreateProjectRole(r.Context(), role); err != nil {
		writeStoreError(w, err)
		return
	}

	event := audit.NewEvent(audit.EventTypeProjectRoleChange, audit.EventStatusSuccess, r)
	event.UserID = &user.ID
	event.ResourceType = audit.ResourceTypeProject
	event.ResourceID = strconv.FormatInt(projectID, 10)
	event.Message = "role " + req.Name + " created"
	s.audit.Log(r.Context(), event)

	httputil.WriteCreated(w, role)
}

type projectMemberRequest struct {
	UserID int64 `json:"user_id"`
	TeamID int64 `json:"team_id"`
	RoleID int64 `json:"role_id"`
}

func (s *Server) addProjectMember(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	projectID, ok := httputil.ParsePathInt64OrError(w, r, "projectId")
	if !ok {
		return
	}

	var req projectMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	member := &store.ProjectMember{
		ProjectID: projectID,
		TeamID:    req.TeamID,
		UserID:    req.UserID,
		RoleID:    req.RoleID,
	}
	if err := s.store.AddProjectMember(r.Context(), member); err != nil {
		writeStoreError(w, err)
		return
	}

	event := audit.NewEvent(audit.EventTypeProjectMemberAdd, audit.EventStatusSuccess, r)
	event.UserID = &user.ID
	event.ResourceType = audit.ResourceTypeProject
	event.ResourceID = strconv.FormatInt(projectID, 10)
	event.Message = "user " + strconv.FormatInt(req.UserID, 10) + " added"
	s.audit.Log(r.Context(), event)

	httputil.WriteCreated(w, member)
}

func (s *Server) removeProjectMember(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	projectID, ok := httputil.ParsePathInt64OrError(w, r, "projectId")
	if !ok {
		return
	}
	targetID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}
	teamID := int64(httputil.ParseQueryInt(r, "team_id", 0))
	if teamID == 0 {
		httputil.WriteBadRequest(w, "team_id query parameter is required")
		return
	}

	if err := s.store.RemoveProjectMember(r.Context(), projectID, teamID, targetID); err != nil {
		writeStoreError(w, err)
		return
	}

	event := audit.NewEvent(audit.EventTypeProjectMemberRemove, audit.EventStatusSuccess, r)
	event.UserID = &user.ID
	event.ResourceType = audit.ResourceTypeProject
	event.ResourceID = strconv.FormatInt(projectID, 10)
	event.Message = "user " + strconv.FormatInt(targetID, 10) + " removed"
	s.audit.Log(r.Context(), event)

	httputil.WriteNoContent(w)
}

// requireActiveWorkspaceMember checks the caller's workspace membership,
// optionally requiring an admin role.
func (s *Server) requireActiveWorkspaceMember(w http.ResponseWriter, r *http.Request, workspaceID, userID int64, admin bool) (*store.WorkspaceMember, bool) {
	member, err := s.store.GetWorkspaceMember(r.Context(), workspaceID, userID)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteForbidden(w, "not a member of this workspace")
		return nil, false
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return nil, false
	}
	if member.Status != identity.WorkspaceMemberActive {
		httputil.WriteForbidden(w, "not a member of this workspace")
		return nil, false
	}
	if admin && !member.Role.IsAdmin() {
		httputil.WriteForbidden(w, "workspace admin role required")
		return nil, false
	}
	return member, true
}

func (s *Server) logWorkspaceEvent(r *http.Request, eventType audit.EventType, actorID, workspaceID, targetID int64) {
	event := audit.NewEvent(eventType, audit.EventStatusSuccess, r)
	event.UserID = &actorID
	event.ResourceType = audit.ResourceTypeWorkspace
	event.ResourceID = strconv.FormatInt(workspaceID, 10)
	event.Message = "user " + strconv.FormatInt(targetID, 10)
	s.audit.Log(r.Context(), event)
}

func validProjectPermission(perm catalog.ProjectPermission) bool {
	switch perm {
	case catalog.ProjectPermView, catalog.ProjectPermEdit, catalog.ProjectPermDelete,
		catalog.ProjectPermTasksCreate, catalog.ProjectPermTasksEdit,
		catalog.ProjectPermTasksDelete, catalog.ProjectPermTasksAssign,
		catalog.ProjectPermMembersManage, catalog.ProjectPermRolesManage:
		return true
	}
	return false
}
