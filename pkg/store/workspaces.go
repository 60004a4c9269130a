package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskhive/taskhive/pkg/identity"
)

// WorkspaceStore covers workspaces and the workspace membership ledger
type WorkspaceStore interface {
	CanCreateWorkspace(ctx context.Context, userID int64, accountType identity.AccountType) (*WorkspaceCreationCheck, error)
	CreateWorkspace(ctx context.Context, ws *Workspace, ownerUserID int64, accountType identity.AccountType) error
	GetWorkspace(ctx context.Context, id int64) (*Workspace, error)

	AddWorkspaceMember(ctx context.Context, member *WorkspaceMember) error
	GetWorkspaceMember(ctx context.Context, workspaceID, userID int64) (*WorkspaceMember, error)
	ListUserWorkspaceMemberships(ctx context.Context, userID int64) ([]*WorkspaceMember, error)
	RemoveWorkspaceMember(ctx context.Context, workspaceID, userID int64) error
}

// memberTransitions is the workspace membership state machine. A
// transition absent from this table is rejected.
var memberTransitions = map[identity.WorkspaceMemberStatus][]identity.WorkspaceMemberStatus{
	identity.WorkspaceMemberActive:  {identity.WorkspaceMemberDeleted},
	identity.WorkspaceMemberDeleted: {identity.WorkspaceMemberActive},
}

// CanTransitionMember reports whether a workspace membership may move
// from one status to another.
func CanTransitionMember(from, to identity.WorkspaceMemberStatus) bool {
	for _, allowed := range memberTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanCreateWorkspace checks the single-personal-workspace invariant. ORG
// accounts may create any number of workspaces; a PERSONAL account owns
// exactly one.
func (s *PostgresStore) CanCreateWorkspace(ctx context.Context, userID int64, accountType identity.AccountType) (*WorkspaceCreationCheck, error) {
	if accountType != identity.AccountTypePersonal {
		return &WorkspaceCreationCheck{Allowed: true}, nil
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workspace_members
		 WHERE user_id = $1 AND role = $2 AND status = $3`,
		userID, identity.WorkspaceRoleOwner, identity.WorkspaceMemberActive,
	).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("failed to count workspaces: %w", err)
	}

	if count > 0 {
		return &WorkspaceCreationCheck{
			Allowed: false,
			Reason:  "personal accounts are limited to one workspace",
		}, nil
	}
	return &WorkspaceCreationCheck{Allowed: true}, nil
}

// CreateWorkspace creates a workspace and its owner membership in one
// transaction, enforcing the personal-workspace invariant.
func (s *PostgresStore) CreateWorkspace(ctx context.Context, ws *Workspace, ownerUserID int64, accountType identity.AccountType) error {
	check, err := s.CanCreateWorkspace(ctx, ownerUserID, accountType)
	if err != nil {
		return err
	}
	if !check.Allowed {
		return &InvariantError{Rule: RulePersonalWorkspace, Reason: check.Reason}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	err = tx.QueryRowContext(ctx,
		`INSERT INTO workspaces (organization_id, name, is_default, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		ws.OrganizationID, ws.Name, ws.IsDefault, now, now,
	).Scan(&ws.ID)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO workspace_members (workspace_id, user_id, role, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ws.ID, ownerUserID, identity.WorkspaceRoleOwner, identity.WorkspaceMemberActive, now, now,
	); err != nil {
		return fmt.Errorf("failed to create owner membership: %w", err)
	}

	ws.CreatedAt = now
	ws.UpdatedAt = now
	return tx.Commit()
}

// GetWorkspace retrieves a workspace by ID
func (s *PostgresStore) GetWorkspace(ctx context.Context, id int64) (*Workspace, error) {
	query := `
		SELECT id, organization_id, name, is_default, created_at, updated_at
		FROM workspaces
		WHERE id = $1
	`
	ws := &Workspace{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&ws.ID, &ws.OrganizationID, &ws.Name, &ws.IsDefault, &ws.CreatedAt, &ws.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return ws, nil
}

// AddWorkspaceMember adds a user to a workspace. If a DELETED ledger row
// already exists for the pair, that row is reactivated in place: the
// membership keeps its original ID.
func (s *PostgresStore) AddWorkspaceMember(ctx context.Context, member *WorkspaceMember) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	existing := &WorkspaceMember{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, workspace_id, user_id, role, status, created_at, updated_at
		 FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`,
		member.WorkspaceID, member.UserID,
	).Scan(
		&existing.ID, &existing.WorkspaceID, &existing.UserID, &existing.Role,
		&existing.Status, &existing.CreatedAt, &existing.UpdatedAt,
	)

	switch {
	case err == sql.ErrNoRows:
		if member.Role == "" {
			member.Role = identity.WorkspaceRoleMember
		}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO workspace_members (workspace_id, user_id, role, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			member.WorkspaceID, member.UserID, member.Role, identity.WorkspaceMemberActive, now, now,
		).Scan(&member.ID)
		if err != nil {
			return fmt.Errorf("failed to add workspace member: %w", err)
		}
		member.Status = identity.WorkspaceMemberActive
		member.CreatedAt = now

	case err != nil:
		return fmt.Errorf("failed to look up workspace member: %w", err)

	case existing.Status == identity.WorkspaceMemberActive:
		return &InvariantError{
			Rule:   RuleMemberTransition,
			Reason: "membership is already active",
		}

	default:
		if !CanTransitionMember(existing.Status, identity.WorkspaceMemberActive) {
			return &InvariantError{
				Rule:   RuleMemberTransition,
				Reason: fmt.Sprintf("cannot reactivate from status %s", existing.Status),
			}
		}
		role := member.Role
		if role == "" {
			role = existing.Role
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE workspace_members SET status = $1, role = $2, updated_at = $3 WHERE id = $4`,
			identity.WorkspaceMemberActive, role, now, existing.ID,
		); err != nil {
			return fmt.Errorf("failed to reactivate workspace member: %w", err)
		}
		member.ID = existing.ID
		member.Role = role
		member.Status = identity.WorkspaceMemberActive
		member.CreatedAt = existing.CreatedAt
	}

	member.UpdatedAt = now
	return tx.Commit()
}

// GetWorkspaceMember retrieves a membership ledger row regardless of status
func (s *PostgresStore) GetWorkspaceMember(ctx context.Context, workspaceID, userID int64) (*WorkspaceMember, error) {
	query := `
		SELECT id, workspace_id, user_id, role, status, created_at, updated_at
		FROM workspace_members
		WHERE workspace_id = $1 AND user_id = $2
	`
	member := &WorkspaceMember{}
	err := s.db.QueryRowContext(ctx, query, workspaceID, userID).Scan(
		&member.ID, &member.WorkspaceID, &member.UserID, &member.Role,
		&member.Status, &member.CreatedAt, &member.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace member: %w", err)
	}
	return member, nil
}

// ListUserWorkspaceMemberships retrieves a user's ACTIVE workspace
// memberships, oldest first.
func (s *PostgresStore) ListUserWorkspaceMemberships(ctx context.Context, userID int64) ([]*WorkspaceMember, error) {
	query := `
		SELECT id, workspace_id, user_id, role, status, created_at, updated_at
		FROM workspace_members
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, identity.WorkspaceMemberActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace memberships: %w", err)
	}
	defer rows.Close()

	var members []*WorkspaceMember
	for rows.Next() {
		member := &WorkspaceMember{}
		if err := rows.Scan(
			&member.ID, &member.WorkspaceID, &member.UserID, &member.Role,
			&member.Status, &member.CreatedAt, &member.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan workspace member: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// RemoveWorkspaceMember soft-deletes a membership: the ledger row stays
// with status DELETED so a later re-add reactivates it.
func (s *PostgresStore) RemoveWorkspaceMember(ctx context.Context, workspaceID, userID int64) error {
	member, err := s.GetWorkspaceMember(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if !CanTransitionMember(member.Status, identity.WorkspaceMemberDeleted) {
		return &InvariantError{
			Rule:   RuleMemberTransition,
			Reason: fmt.Sprintf("cannot delete from status %s", member.Status),
		}
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE workspace_members SET status = $1, updated_at = $2 WHERE id = $3`,
		identity.WorkspaceMemberDeleted, time.Now(), member.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove workspace member: %w", err)
	}
	return requireRowAffected(result)
}
