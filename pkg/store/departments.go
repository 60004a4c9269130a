package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskhive/taskhive/pkg/catalog"
)

// DepartmentStore covers department CRUD and the additive department
// grant path the organization access resolver unions in.
type DepartmentStore interface {
	CreateDepartment(ctx context.Context, dept *Department) error
	GetDepartment(ctx context.Context, id int64) (*Department, error)
	SetDepartmentPermissions(ctx context.Context, id int64, perms []catalog.OrgPermission) error
	AddDepartmentMember(ctx context.Context, departmentID, orgMemberID int64) error
	RemoveDepartmentMember(ctx context.Context, departmentID, orgMemberID int64) error
	ListDepartmentGrants(ctx context.Context, orgMemberID int64) ([]catalog.OrgPermission, error)
}

// CreateDepartment creates a department scoped to an organization
func (s *PostgresStore) CreateDepartment(ctx context.Context, dept *Department) error {
	permsJSON, err := json.Marshal(permsOrEmpty(dept.Permissions))
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO departments (organization_id, name, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, query,
		dept.OrganizationID, dept.Name, string(permsJSON), now, now,
	).Scan(&dept.ID)
	if err != nil {
		return fmt.Errorf("failed to create department: %w", err)
	}
	dept.CreatedAt = now
	dept.UpdatedAt = now
	return nil
}

// GetDepartment retrieves a department by ID
func (s *PostgresStore) GetDepartment(ctx context.Context, id int64) (*Department, error) {
	query := `
		SELECT id, organization_id, name, permissions, created_at, updated_at
		FROM departments
		WHERE id = $1
	`
	dept := &Department{}
	var permsJSON string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&dept.ID, &dept.OrganizationID, &dept.Name, &permsJSON,
		&dept.CreatedAt, &dept.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}

	if err := json.Unmarshal([]byte(permsJSON), &dept.Permissions); err != nil {
		dept.Permissions = []catalog.OrgPermission{}
	}
	return dept, nil
}

// SetDepartmentPermissions replaces a department's permission set
func (s *PostgresStore) SetDepartmentPermissions(ctx context.Context, id int64, perms []catalog.OrgPermission) error {
	permsJSON, err := json.Marshal(permsOrEmpty(perms))
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE departments SET permissions = $1, updated_at = $2 WHERE id = $3`,
		string(permsJSON), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update department permissions: %w", err)
	}
	return requireRowAffected(result)
}

// AddDepartmentMember assigns an organization member to a department
func (s *PostgresStore) AddDepartmentMember(ctx context.Context, departmentID, orgMemberID int64) error {
	query := `
		INSERT INTO department_members (department_id, org_member_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (department_id, org_member_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, departmentID, orgMemberID, time.Now()); err != nil {
		return fmt.Errorf("failed to add department member: %w", err)
	}
	return nil
}

// RemoveDepartmentMember removes an organization member from a department
func (s *PostgresStore) RemoveDepartmentMember(ctx context.Context, departmentID, orgMemberID int64) error {
	query := `DELETE FROM department_members WHERE department_id = $1 AND org_member_id = $2`
	if _, err := s.db.ExecContext(ctx, query, departmentID, orgMemberID); err != nil {
		return fmt.Errorf("failed to remove department member: %w", err)
	}
	return nil
}

// ListDepartmentGrants returns the union of permissions the member holds
// through department assignments.
func (s *PostgresStore) ListDepartmentGrants(ctx context.Context, orgMemberID int64) ([]catalog.OrgPermission, error) {
	query := `
		SELECT d.permissions
		FROM departments d
		JOIN department_members dm ON d.id = dm.department_id
		WHERE dm.org_member_id = $1
	`
	rows, err := s.db.QueryContext(ctx, query, orgMemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list department grants: %w", err)
	}
	defer rows.Close()

	seen := make(map[catalog.OrgPermission]bool)
	var grants []catalog.OrgPermission
	for rows.Next() {
		var permsJSON string
		if err := rows.Scan(&permsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan department permissions: %w", err)
		}
		var perms []catalog.OrgPermission
		if err := json.Unmarshal([]byte(permsJSON), &perms); err != nil {
			continue
		}
		for _, p := range perms {
			if !seen[p] {
				seen[p] = true
				grants = append(grants, p)
			}
		}
	}
	return grants, rows.Err()
}

func permsOrEmpty(perms []catalog.OrgPermission) []catalog.OrgPermission {
	if perms == nil {
		return []catalog.OrgPermission{}
	}
	return perms
}
