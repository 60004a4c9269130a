package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/pkg/identity"
)

func TestCanCreateWorkspace_PersonalLimit(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	user := &identity.User{Email: "solo@taskhive.test"}
	require.NoError(t, s.CreateUser(ctx, user))

	check, err := s.CanCreateWorkspace(ctx, user.ID, identity.AccountTypePersonal)
	require.NoError(t, err)
	assert.True(t, check.Allowed)

	ws := &Workspace{Name: "home", IsDefault: true}
	require.NoError(t, s.CreateWorkspace(ctx, ws, user.ID, identity.AccountTypePersonal))

	check, err = s.CanCreateWorkspace(ctx, user.ID, identity.AccountTypePersonal)
	require.NoError(t, err)
	assert.False(t, check.Allowed)
	assert.NotEmpty(t, check.Reason)

	// A second creation attempt is rejected as an invariant violation
	err = s.CreateWorkspace(ctx, &Workspace{Name: "second"}, user.ID, identity.AccountTypePersonal)
	require.Error(t, err)
	assert.True(t, IsInvariantViolation(err))
}

func TestCanCreateWorkspace_OrgUnlimited(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	user := &identity.User{Email: "org-user@taskhive.test"}
	require.NoError(t, s.CreateUser(ctx, user))

	for _, name := range []string{"first", "second", "third"} {
		ws := &Workspace{Name: name}
		require.NoError(t, s.CreateWorkspace(ctx, ws, user.ID, identity.AccountTypeOrg))
	}
}

func TestWorkspaceMember_SoftDeleteReactivate(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	owner := &identity.User{Email: "ws-owner@taskhive.test"}
	require.NoError(t, s.CreateUser(ctx, owner))
	ws := &Workspace{Name: "shared"}
	require.NoError(t, s.CreateWorkspace(ctx, ws, owner.ID, identity.AccountTypeOrg))

	joiner := &identity.User{Email: "joiner@taskhive.test"}
	require.NoError(t, s.CreateUser(ctx, joiner))

	member := &WorkspaceMember{WorkspaceID: ws.ID, UserID: joiner.ID, Role: identity.WorkspaceRoleMember}
	require.NoError(t, s.AddWorkspaceMember(ctx, member))
	originalID := member.ID

	require.NoError(t, s.RemoveWorkspaceMember(ctx, ws.ID, joiner.ID))

	ledger, err := s.GetWorkspaceMember(ctx, ws.ID, joiner.ID)
	require.NoError(t, err)
	assert.Equal(t, identity.WorkspaceMemberDeleted, ledger.Status)
	assert.Equal(t, originalID, ledger.ID, "soft delete must keep the ledger row")

	// Re-adding the same pair reactivates the original row
	readded := &WorkspaceMember{WorkspaceID: ws.ID, UserID: joiner.ID}
	require.NoError(t, s.AddWorkspaceMember(ctx, readded))
	assert.Equal(t, originalID, readded.ID, "reactivation must reuse the membership id")
	assert.Equal(t, identity.WorkspaceMemberActive, readded.Status)

	var count int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`,
		ws.ID, joiner.ID,
	).Scan(&count))
	assert.Equal(t, 1, count, "reactivation must not create a duplicate row")
}

func TestWorkspaceMember_InvalidTransitions(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	owner := &identity.User{Email: "ws-owner2@taskhive.test"}
	require.NoError(t, s.CreateUser(ctx, owner))
	ws := &Workspace{Name: "shared"}
	require.NoError(t, s.CreateWorkspace(ctx, ws, owner.ID, identity.AccountTypeOrg))

	member := &identity.User{Email: "member2@taskhive.test"}
	require.NoError(t, s.CreateUser(ctx, member))
	require.NoError(t, s.AddWorkspaceMember(ctx, &WorkspaceMember{WorkspaceID: ws.ID, UserID: member.ID}))

	// Adding an already-active member is rejected
	err := s.AddWorkspaceMember(ctx, &WorkspaceMember{WorkspaceID: ws.ID, UserID: member.ID})
	require.Error(t, err)
	assert.True(t, IsInvariantViolation(err))

	// Removing twice is rejected: DELETED -> DELETED is not a transition
	require.NoError(t, s.RemoveWorkspaceMember(ctx, ws.ID, member.ID))
	err = s.RemoveWorkspaceMember(ctx, ws.ID, member.ID)
	require.Error(t, err)
	assert.True(t, IsInvariantViolation(err))
}

func TestCanTransitionMember(t *testing.T) {
	assert.True(t, CanTransitionMember(identity.WorkspaceMemberActive, identity.WorkspaceMemberDeleted))
	assert.True(t, CanTransitionMember(identity.WorkspaceMemberDeleted, identity.WorkspaceMemberActive))
	assert.False(t, CanTransitionMember(identity.WorkspaceMemberActive, identity.WorkspaceMemberActive))
	assert.False(t, CanTransitionMember(identity.WorkspaceMemberDeleted, identity.WorkspaceMemberDeleted))
}
