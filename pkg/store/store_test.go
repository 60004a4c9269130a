package store

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/pkg/identity"
)

// setupTestStore opens an in-memory SQLite database with a schema
// equivalent to the Postgres migrations. The store's queries use $N
// placeholders, which SQLite accepts as-is.
func setupTestStore(t *testing.T) (*PostgresStore, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			is_email_verified INTEGER NOT NULL DEFAULT 0,
			account_type TEXT NOT NULL DEFAULT '',
			primary_org_id INTEGER,
			must_reset_password INTEGER NOT NULL DEFAULT 0,
			legal_accepted INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP NOT NULL
		);

		CREATE TABLE organizations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			billing_started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE organization_members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			invited_by INTEGER,
			joined_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(organization_id, user_id)
		);

		CREATE TABLE member_permissions (
			org_member_id INTEGER NOT NULL,
			permission TEXT NOT NULL,
			granted_by INTEGER,
			granted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (org_member_id, permission)
		);

		CREATE TABLE departments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			permissions TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(organization_id, name)
		);

		CREATE TABLE department_members (
			department_id INTEGER NOT NULL,
			org_member_id INTEGER NOT NULL,
			added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (department_id, org_member_id)
		);

		CREATE TABLE workspaces (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER,
			name TEXT NOT NULL,
			is_default INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE workspace_members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			workspace_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(workspace_id, user_id)
		);

		CREATE TABLE projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			workspace_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE teams (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE project_roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			permissions TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(project_id, name)
		);

		CREATE TABLE project_members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			team_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			role_id INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(project_id, team_id, user_id)
		);

		CREATE TABLE org_invitations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			email TEXT NOT NULL,
			role TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			invited_by INTEGER NOT NULL,
			invited_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP NOT NULL,
			accepted_at TIMESTAMP,
			accepted_by INTEGER
		);
	`)
	require.NoError(t, err)

	return NewPostgresStore(db), db
}

// seedOrgWithOwner creates an organization with one ACTIVE OWNER and
// returns (orgID, ownerUserID).
func seedOrgWithOwner(t *testing.T, s *PostgresStore) (int64, int64) {
	t.Helper()
	ctx := context.Background()

	org := &Organization{Name: "acme"}
	require.NoError(t, s.CreateOrganization(ctx, org))

	owner := &identity.User{Email: "owner@acme.test"}
	require.NoError(t, s.CreateUser(ctx, owner))

	member := &OrgMember{
		OrganizationID: org.ID,
		UserID:         owner.ID,
		Role:           identity.RoleOwner,
		Status:         identity.MemberStatusActive,
	}
	require.NoError(t, s.AddOrgMember(ctx, member))

	return org.ID, owner.ID
}

func addMember(t *testing.T, s *PostgresStore, orgID int64, email string, role identity.OrgRole, status identity.MemberStatus) *OrgMember {
	t.Helper()
	ctx := context.Background()

	user := &identity.User{Email: email}
	require.NoError(t, s.CreateUser(ctx, user))

	member := &OrgMember{
		OrganizationID: orgID,
		UserID:         user.ID,
		Role:           role,
		Status:         status,
	}
	require.NoError(t, s.AddOrgMember(ctx, member))
	return member
}
