package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/pkg/identity"
)

// SessionStore covers user records and session tokens. Identity issuance
// (login, verification, 2FA) is upstream; this layer only reads the
// resulting records and resolves session tokens to users.
type SessionStore interface {
	CreateUser(ctx context.Context, user *identity.User) error
	GetUser(ctx context.Context, id int64) (*identity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*identity.User, error)
	UpdateUserPreferences(ctx context.Context, userID int64, prefs identity.Preferences) error

	CreateSession(ctx context.Context, userID int64, ttl time.Duration) (*Session, error)
	GetSessionUser(ctx context.Context, token string) (*identity.User, error)
	DeleteSession(ctx context.Context, token string) error
}

// CreateUser inserts a user record
func (s *PostgresStore) CreateUser(ctx context.Context, user *identity.User) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (email, is_email_verified, account_type, primary_org_id, must_reset_password, legal_accepted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		user.Email, user.IsEmailVerified, string(user.Preferences.AccountType),
		user.Preferences.PrimaryOrgID, user.Preferences.MustResetPassword,
		user.Preferences.LegalAccepted, now, now,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUser retrieves a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*identity.User, error) {
	query := `
		SELECT id, email, is_email_verified, account_type, primary_org_id, must_reset_password, legal_accepted, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email address
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	query := `
		SELECT id, email, is_email_verified, account_type, primary_org_id, must_reset_password, legal_accepted, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// UpdateUserPreferences replaces the user preference bag
func (s *PostgresStore) UpdateUserPreferences(ctx context.Context, userID int64, prefs identity.Preferences) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET account_type = $1, primary_org_id = $2, must_reset_password = $3, legal_accepted = $4, updated_at = $5
		 WHERE id = $6`,
		string(prefs.AccountType), prefs.PrimaryOrgID, prefs.MustResetPassword,
		prefs.LegalAccepted, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	return requireRowAffected(result)
}

// CreateSession issues a new session token for a user
func (s *PostgresStore) CreateSession(ctx context.Context, userID int64, ttl time.Duration) (*Session, error) {
	now := time.Now()
	session := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		session.Token, session.UserID, session.CreatedAt, session.ExpiresAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetSessionUser resolves a session token to its user. Expired or unknown
// tokens return ErrNotFound.
func (s *PostgresStore) GetSessionUser(ctx context.Context, token string) (*identity.User, error) {
	query := `
		SELECT u.id, u.email, u.is_email_verified, u.account_type, u.primary_org_id, u.must_reset_password, u.legal_accepted, u.created_at, u.updated_at
		FROM users u
		JOIN sessions s ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > $2
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, token, time.Now()))
}

// DeleteSession revokes a session token. Deleting an unknown token is
// not an error.
func (s *PostgresStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *PostgresStore) scanUser(row *sql.Row) (*identity.User, error) {
	user := &identity.User{}
	var accountType string
	err := row.Scan(
		&user.ID, &user.Email, &user.IsEmailVerified, &accountType,
		&user.Preferences.PrimaryOrgID, &user.Preferences.MustResetPassword,
		&user.Preferences.LegalAccepted, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	user.Preferences.AccountType = identity.AccountType(accountType)
	return user, nil
}
