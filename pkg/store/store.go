// Package store handles persistence for the authorization engine: users,
// organizations, memberships, permission grants, departments, workspaces,
// and project roles. The resolvers only read from it; mutations happen
// through the handlers in pkg/api and enforce the invariants documented on
// each method.
package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced record does not exist
var ErrNotFound = errors.New("record not found")

// InvariantError is returned when a mutation would violate a structural
// invariant (last active owner, single personal workspace, invalid
// membership transition). Invariants are enforced at the mutation
// boundary, never inside the resolvers.
type InvariantError struct {
	Rule   string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %s violated: %s", e.Rule, e.Reason)
}

// IsInvariantViolation checks if an error is an invariant violation
func IsInvariantViolation(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// Invariant rule names
const (
	RuleLastOwner         = "org:last_active_owner"
	RulePersonalWorkspace = "workspace:single_personal"
	RuleMemberTransition  = "workspace_member:transition"
)

// Store is the full persistence surface. The resolver packages depend on
// narrow reader interfaces instead; this interface exists for the API
// layer and for wiring.
type Store interface {
	OrgStore
	WorkspaceStore
	ProjectStore
	SessionStore
}

// PostgresStore implements Store on database/sql. Queries use $N
// placeholders so the same implementation backs the in-memory SQLite
// databases the tests run against.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store backed by the given database handle
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// DB exposes the underlying handle for health checks
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}
