package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskhive/taskhive/pkg/catalog"
	"github.com/taskhive/taskhive/pkg/identity"
)

// OrgStore covers organizations, memberships, explicit permission grants,
// departments, and invitations.
type OrgStore interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id int64) (*Organization, error)

	AddOrgMember(ctx context.Context, member *OrgMember) error
	GetOrgMember(ctx context.Context, orgID, userID int64) (*OrgMember, error)
	ListOrgMembers(ctx context.Context, orgID int64) ([]*OrgMember, error)
	ListUserMemberships(ctx context.Context, userID int64) ([]*OrgMember, error)
	ActivateOrgMember(ctx context.Context, orgID, userID int64) error
	UpdateOrgMemberRole(ctx context.Context, orgID, userID int64, role identity.OrgRole) error
	RemoveOrgMember(ctx context.Context, orgID, userID int64) error

	ListMemberGrants(ctx context.Context, orgMemberID int64) ([]catalog.OrgPermission, error)
	GrantMemberPermission(ctx context.Context, orgMemberID int64, perm catalog.OrgPermission, grantedBy int64) error
	RevokeMemberPermission(ctx context.Context, orgMemberID int64, perm catalog.OrgPermission) error

	DepartmentStore
	InvitationStore
}

// CreateOrganization creates a new organization
func (s *PostgresStore) CreateOrganization(ctx context.Context, org *Organization) error {
	now := time.Now()
	if org.BillingStartedAt.IsZero() {
		org.BillingStartedAt = now
	}
	query := `
		INSERT INTO organizations (name, billing_started_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query, org.Name, org.BillingStartedAt, now, now).Scan(&org.ID)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	org.CreatedAt = now
	org.UpdatedAt = now
	return nil
}

// GetOrganization retrieves an organization by ID
func (s *PostgresStore) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	query := `
		SELECT id, name, billing_started_at, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	org := &Organization{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.BillingStartedAt, &org.CreatedAt, &org.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// GetOrganizationBillingStart returns the organization's billing-start
// timestamp. The second return is false when the organization does not
// exist. Satisfies billing.OrgReader.
func (s *PostgresStore) GetOrganizationBillingStart(ctx context.Context, orgID int64) (time.Time, bool, error) {
	var start time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT billing_started_at FROM organizations WHERE id = $1`, orgID,
	).Scan(&start)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get billing start: %w", err)
	}
	return start, true, nil
}

// AddOrgMember adds a user to an organization. The unique
// (organization_id, user_id) constraint rejects duplicates.
func (s *PostgresStore) AddOrgMember(ctx context.Context, member *OrgMember) error {
	if !member.Role.Valid() {
		return fmt.Errorf("invalid role %q", member.Role)
	}
	if member.Status == "" {
		member.Status = identity.MemberStatusPending
	}
	now := time.Now()
	query := `
		INSERT INTO organization_members (organization_id, user_id, role, status, invited_by, joined_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		member.OrganizationID, member.UserID, member.Role, member.Status,
		member.InvitedBy, now, now,
	).Scan(&member.ID)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	member.JoinedAt = now
	member.CreatedAt = now
	return nil
}

// GetOrgMember retrieves the membership for a (organization, user) pair
func (s *PostgresStore) GetOrgMember(ctx context.Context, orgID, userID int64) (*OrgMember, error) {
	query := `
		SELECT id, organization_id, user_id, role, status, invited_by, joined_at, created_at
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2
	`
	return s.scanOrgMember(s.db.QueryRowContext(ctx, query, orgID, userID))
}

// ListOrgMembers retrieves all members of an organization
func (s *PostgresStore) ListOrgMembers(ctx context.Context, orgID int64) ([]*OrgMember, error) {
	query := `
		SELECT id, organization_id, user_id, role, status, invited_by, joined_at, created_at
		FROM organization_members
		WHERE organization_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()
	return scanOrgMembers(rows)
}

// ListUserMemberships retrieves every organization membership a user holds,
// oldest first so "fall back to the first membership" is deterministic.
func (s *PostgresStore) ListUserMemberships(ctx context.Context, userID int64) ([]*OrgMember, error) {
	query := `
		SELECT id, organization_id, user_id, role, status, invited_by, joined_at, created_at
		FROM organization_members
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()
	return scanOrgMembers(rows)
}

// ActivateOrgMember flips a PENDING membership to ACTIVE
func (s *PostgresStore) ActivateOrgMember(ctx context.Context, orgID, userID int64) error {
	query := `
		UPDATE organization_members SET status = $1
		WHERE organization_id = $2 AND user_id = $3
	`
	result, err := s.db.ExecContext(ctx, query, identity.MemberStatusActive, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to activate member: %w", err)
	}
	return requireRowAffected(result)
}

// UpdateMemberRole changes a member's role. Demoting the sole ACTIVE OWNER
// is rejected: every organization keeps at least one active owner.
func (s *PostgresStore) UpdateOrgMemberRole(ctx context.Context, orgID, userID int64, role identity.OrgRole) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getOrgMemberTx(ctx, tx, orgID, userID)
	if err != nil {
		return err
	}

	// Pending owners never count toward the invariant, so demoting one
	// is always safe.
	if current.Role == identity.RoleOwner && current.Status == identity.MemberStatusActive && role != identity.RoleOwner {
		owners, err := countActiveOwnersTx(ctx, tx, orgID)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return &InvariantError{
				Rule:   RuleLastOwner,
				Reason: "cannot demote the only active owner",
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE organization_members SET role = $1 WHERE organization_id = $2 AND user_id = $3`,
		role, orgID, userID,
	); err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	return tx.Commit()
}

// RemoveOrgMember removes a user from an organization, subject to the same
// last-active-owner protection as role changes.
func (s *PostgresStore) RemoveOrgMember(ctx context.Context, orgID, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getOrgMemberTx(ctx, tx, orgID, userID)
	if err != nil {
		return err
	}

	if current.Role == identity.RoleOwner && current.Status == identity.MemberStatusActive {
		owners, err := countActiveOwnersTx(ctx, tx, orgID)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return &InvariantError{
				Rule:   RuleLastOwner,
				Reason: "cannot remove the only active owner",
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM organization_members WHERE organization_id = $1 AND user_id = $2`,
		orgID, userID,
	); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return tx.Commit()
}

// ListMemberGrants returns the explicit per-member permission grants
func (s *PostgresStore) ListMemberGrants(ctx context.Context, orgMemberID int64) ([]catalog.OrgPermission, error) {
	query := `SELECT permission FROM member_permissions WHERE org_member_id = $1 ORDER BY permission`
	rows, err := s.db.QueryContext(ctx, query, orgMemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []catalog.OrgPermission
	for rows.Next() {
		var perm catalog.OrgPermission
		if err := rows.Scan(&perm); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, perm)
	}
	return grants, rows.Err()
}

// GrantMemberPermission adds an explicit permission grant. Duplicate
// grants are a no-op.
func (s *PostgresStore) GrantMemberPermission(ctx context.Context, orgMemberID int64, perm catalog.OrgPermission, grantedBy int64) error {
	query := `
		INSERT INTO member_permissions (org_member_id, permission, granted_by, granted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (org_member_id, permission) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, orgMemberID, perm, grantedBy, time.Now()); err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	return nil
}

// RevokeMemberPermission removes an explicit permission grant
func (s *PostgresStore) RevokeMemberPermission(ctx context.Context, orgMemberID int64, perm catalog.OrgPermission) error {
	query := `DELETE FROM member_permissions WHERE org_member_id = $1 AND permission = $2`
	if _, err := s.db.ExecContext(ctx, query, orgMemberID, perm); err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}
	return nil
}

func (s *PostgresStore) scanOrgMember(row *sql.Row) (*OrgMember, error) {
	member := &OrgMember{}
	err := row.Scan(
		&member.ID, &member.OrganizationID, &member.UserID, &member.Role,
		&member.Status, &member.InvitedBy, &member.JoinedAt, &member.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan member: %w", err)
	}
	return member, nil
}

func scanOrgMembers(rows *sql.Rows) ([]*OrgMember, error) {
	var members []*OrgMember
	for rows.Next() {
		member := &OrgMember{}
		if err := rows.Scan(
			&member.ID, &member.OrganizationID, &member.UserID, &member.Role,
			&member.Status, &member.InvitedBy, &member.JoinedAt, &member.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func getOrgMemberTx(ctx context.Context, tx *sql.Tx, orgID, userID int64) (*OrgMember, error) {
	member := &OrgMember{}
	err := tx.QueryRowContext(ctx,
		`SELECT id, organization_id, user_id, role, status, invited_by, joined_at, created_at
		 FROM organization_members WHERE organization_id = $1 AND user_id = $2`,
		orgID, userID,
	).Scan(
		&member.ID, &member.OrganizationID, &member.UserID, &member.Role,
		&member.Status, &member.InvitedBy, &member.JoinedAt, &member.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

func countActiveOwnersTx(ctx context.Context, tx *sql.Tx, orgID int64) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM organization_members
		 WHERE organization_id = $1 AND role = $2 AND status = $3`,
		orgID, identity.RoleOwner, identity.MemberStatusActive,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count owners: %w", err)
	}
	return count, nil
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
