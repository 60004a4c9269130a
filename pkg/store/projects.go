package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskhive/taskhive/pkg/catalog"
)

// ProjectStore covers projects, teams, project roles, and project
// membership rows.
type ProjectStore interface {
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id int64) (*Project, error)

	CreateTeam(ctx context.Context, team *Team) error
	CreateProjectRole(ctx context.Context, role *ProjectRole) error
	GetProjectRole(ctx context.Context, id int64) (*ProjectRole, error)

	AddProjectMember(ctx context.Context, member *ProjectMember) error
	RemoveProjectMember(ctx context.Context, projectID, teamID, userID int64) error
	ListProjectMemberships(ctx context.Context, projectID, userID int64) ([]*ProjectMembershipDetail, error)
}

// CreateProject creates a project inside a workspace
func (s *PostgresStore) CreateProject(ctx context.Context, project *Project) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO projects (workspace_id, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		project.WorkspaceID, project.Name, now, now,
	).Scan(&project.ID)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	project.CreatedAt = now
	project.UpdatedAt = now
	return nil
}

// GetProject retrieves a project by ID
func (s *PostgresStore) GetProject(ctx context.Context, id int64) (*Project, error) {
	query := `
		SELECT id, workspace_id, name, created_at, updated_at
		FROM projects
		WHERE id = $1
	`
	project := &Project{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID, &project.WorkspaceID, &project.Name,
		&project.CreatedAt, &project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// CreateTeam creates a team inside a project
func (s *PostgresStore) CreateTeam(ctx context.Context, team *Team) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO teams (project_id, name, created_at)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		team.ProjectID, team.Name, now,
	).Scan(&team.ID)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	team.CreatedAt = now
	return nil
}

// CreateProjectRole creates a project-scoped role with an explicit
// permission list.
func (s *PostgresStore) CreateProjectRole(ctx context.Context, role *ProjectRole) error {
	perms := role.Permissions
	if perms == nil {
		perms = []catalog.ProjectPermission{}
	}
	permsJSON, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	now := time.Now()
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO project_roles (project_id, name, permissions, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		role.ProjectID, role.Name, string(permsJSON), now,
	).Scan(&role.ID)
	if err != nil {
		return fmt.Errorf("failed to create project role: %w", err)
	}
	role.CreatedAt = now
	return nil
}

// GetProjectRole retrieves a project role by ID
func (s *PostgresStore) GetProjectRole(ctx context.Context, id int64) (*ProjectRole, error) {
	query := `
		SELECT id, project_id, name, permissions, created_at
		FROM project_roles
		WHERE id = $1
	`
	role := &ProjectRole{}
	var permsJSON string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&role.ID, &role.ProjectID, &role.Name, &permsJSON, &role.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project role: %w", err)
	}

	if err := json.Unmarshal([]byte(permsJSON), &role.Permissions); err != nil {
		role.Permissions = []catalog.ProjectPermission{}
	}
	return role, nil
}

// AddProjectMember links a user to a team and role within a project
func (s *PostgresStore) AddProjectMember(ctx context.Context, member *ProjectMember) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO project_members (project_id, team_id, user_id, role_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		member.ProjectID, member.TeamID, member.UserID, member.RoleID, now,
	).Scan(&member.ID)
	if err != nil {
		return fmt.Errorf("failed to add project member: %w", err)
	}
	member.CreatedAt = now
	return nil
}

// RemoveProjectMember removes one team membership. Other memberships the
// user holds in the same project are untouched.
func (s *PostgresStore) RemoveProjectMember(ctx context.Context, projectID, teamID, userID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM project_members WHERE project_id = $1 AND team_id = $2 AND user_id = $3`,
		projectID, teamID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove project member: %w", err)
	}
	return requireRowAffected(result)
}

// ListProjectMemberships returns every team membership the user holds in
// the project, each with its team, role, and that role's permission list.
func (s *PostgresStore) ListProjectMemberships(ctx context.Context, projectID, userID int64) ([]*ProjectMembershipDetail, error) {
	query := `
		SELECT pm.id, pm.team_id, t.name, pr.id, pr.name, pr.permissions
		FROM project_members pm
		JOIN teams t ON pm.team_id = t.id
		JOIN project_roles pr ON pm.role_id = pr.id
		WHERE pm.project_id = $1 AND pm.user_id = $2
		ORDER BY pm.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project memberships: %w", err)
	}
	defer rows.Close()

	var details []*ProjectMembershipDetail
	for rows.Next() {
		detail := &ProjectMembershipDetail{}
		var permsJSON string
		if err := rows.Scan(
			&detail.MemberID, &detail.TeamID, &detail.TeamName,
			&detail.RoleID, &detail.RoleName, &permsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project membership: %w", err)
		}
		if err := json.Unmarshal([]byte(permsJSON), &detail.Permissions); err != nil {
			detail.Permissions = []catalog.ProjectPermission{}
		}
		details = append(details, detail)
	}
	return details, rows.Err()
}
