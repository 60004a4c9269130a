package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthLogin       EventType = "auth.login"
	EventTypeAuthLogout      EventType = "auth.logout"
	EventTypeAuthLoginFailed EventType = "auth.login_failed"

	// Authorization events
	EventTypeAuthzAccessDenied     EventType = "authz.access_denied"
	EventTypeAuthzPermissionGrant  EventType = "authz.permission_grant"
	EventTypeAuthzPermissionRevoke EventType = "authz.permission_revoke"
	EventTypeAuthzRoleChange       EventType = "authz.role_change"

	// Membership events
	EventTypeMemberInvite     EventType = "member.invite"
	EventTypeMemberJoin       EventType = "member.join"
	EventTypeMemberRemove     EventType = "member.remove"
	EventTypeMemberReactivate EventType = "member.reactivate"

	// Organization and workspace events
	EventTypeOrgCreate          EventType = "org.create"
	EventTypeWorkspaceCreate    EventType = "workspace.create"
	EventTypeDepartmentChange   EventType = "department.change"
	EventTypeProjectRoleChange  EventType = "project.role_change"
	EventTypeProjectMemberAdd   EventType = "project.member_add"
	EventTypeProjectMemberRemove EventType = "project.member_remove"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being acted on
type ResourceType string

const (
	ResourceTypeUser         ResourceType = "user"
	ResourceTypeOrganization ResourceType = "organization"
	ResourceTypeWorkspace    ResourceType = "workspace"
	ResourceTypeProject      ResourceType = "project"
	ResourceTypeDepartment   ResourceType = "department"
	ResourceTypePermission   ResourceType = "permission"
	ResourceTypeRoute        ResourceType = "route"
	ResourceTypeInvitation   ResourceType = "invitation"
)

// Event is a single audit log entry
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor
	UserID         *int64 `json:"user_id,omitempty"`
	OrganizationID *int64 `json:"organization_id,omitempty"`

	// Resource
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	// Request context
	IPAddress string `json:"ip_address,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`

	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON converts the event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	return &event, err
}

// SearchFilter filters audit log queries
type SearchFilter struct {
	StartTime      *time.Time
	EndTime        *time.Time
	UserID         *int64
	OrganizationID *int64
	EventTypes     []EventType
	Status         *EventStatus
	Limit          int
	Offset         int
}
