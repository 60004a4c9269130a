package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/pkg/identity"
)

// InvitationStore covers organization invitations
type InvitationStore interface {
	CreateInvitation(ctx context.Context, invitation *OrgInvitation) error
	GetInvitation(ctx context.Context, token string) (*OrgInvitation, error)
	AcceptInvitation(ctx context.Context, token string, userID int64) error
	CleanupExpiredInvitations(ctx context.Context) (int64, error)
}

// CreateInvitation creates an invitation with a fresh token
func (s *PostgresStore) CreateInvitation(ctx context.Context, invitation *OrgInvitation) error {
	if !invitation.Role.Valid() {
		return fmt.Errorf("invalid role %q", invitation.Role)
	}

	now := time.Now()
	invitation.Token = uuid.NewString()
	if invitation.ExpiresAt.IsZero() {
		invitation.ExpiresAt = now.Add(7 * 24 * time.Hour)
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO org_invitations (organization_id, email, role, token, invited_by, invited_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		invitation.OrganizationID, invitation.Email, invitation.Role,
		invitation.Token, invitation.InvitedBy, now, invitation.ExpiresAt,
	).Scan(&invitation.ID)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	invitation.InvitedAt = now
	return nil
}

// GetInvitation retrieves an unexpired, unaccepted invitation by token
func (s *PostgresStore) GetInvitation(ctx context.Context, token string) (*OrgInvitation, error) {
	query := `
		SELECT id, organization_id, email, role, token, invited_by, invited_at, expires_at, accepted_at, accepted_by
		FROM org_invitations
		WHERE token = $1 AND accepted_at IS NULL AND expires_at > $2
	`
	inv := &OrgInvitation{}
	err := s.db.QueryRowContext(ctx, query, token, time.Now()).Scan(
		&inv.ID, &inv.OrganizationID, &inv.Email, &inv.Role, &inv.Token,
		&inv.InvitedBy, &inv.InvitedAt, &inv.ExpiresAt, &inv.AcceptedAt, &inv.AcceptedBy,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// AcceptInvitation marks the invitation accepted and creates the PENDING
// membership for the accepting user.
func (s *PostgresStore) AcceptInvitation(ctx context.Context, token string, userID int64) error {
	inv, err := s.GetInvitation(ctx, token)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE org_invitations SET accepted_at = $1, accepted_by = $2 WHERE id = $3`,
		now, userID, inv.ID,
	); err != nil {
		return fmt.Errorf("failed to accept invitation: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO organization_members (organization_id, user_id, role, status, invited_by, joined_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (organization_id, user_id) DO NOTHING`,
		inv.OrganizationID, userID, inv.Role, identity.MemberStatusPending,
		inv.InvitedBy, now, now,
	); err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}

	return tx.Commit()
}

// CleanupExpiredInvitations deletes unaccepted invitations past their
// expiry. Run periodically by the cron job in cmd.
func (s *PostgresStore) CleanupExpiredInvitations(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM org_invitations WHERE accepted_at IS NULL AND expires_at < $1`,
		time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup invitations: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// NewInvitationToken returns a fresh invitation token. Exposed for the
// API layer's resend flow.
func NewInvitationToken() string {
	return uuid.NewString()
}
