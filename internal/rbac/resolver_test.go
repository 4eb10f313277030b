package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	assignments []AssignedRole
	permissions []string
	listErr     error
	permErr     error
	listCalls   int
	permCalls   int
}

func (s *stubStore) ListActiveRoleAssignments(ctx context.Context, actorID int64) ([]AssignedRole, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.assignments, nil
}

func (s *stubStore) EffectivePermissions(ctx context.Context, actorID int64) ([]string, error) {
	s.permCalls++
	if s.permErr != nil {
		return nil, s.permErr
	}
	return s.permissions, nil
}

func managerRole(level int) AssignedRole {
	return AssignedRole{AssignmentID: 1, RoleID: 10, RoleName: "manager", Level: level, RoleActive: true, IsActive: true}
}

func TestLoadForActorBuildsEffectiveSet(t *testing.T) {
	store := &stubStore{
		assignments: []AssignedRole{managerRole(50)},
		permissions: []string{"security.view", "users.view"},
	}
	resolver := NewResolver(store, nil)

	require.NoError(t, resolver.LoadForActor(context.Background(), 7))

	assert.Equal(t, StateReady, resolver.State())
	assert.True(t, resolver.HasPermission("security.view"))
	assert.False(t, resolver.HasPermission("Security.View"), "permission match is case-sensitive")
	assert.False(t, resolver.HasPermission("security.manage"))
	assert.True(t, resolver.HasRole("manager"))
	assert.Equal(t, 50, resolver.HighestLevel())
}

func TestLoadFailureFailsClosed(t *testing.T) {
	store := &stubStore{listErr: errors.New("connection refused")}
	resolver := NewResolver(store, nil)

	err := resolver.LoadForActor(context.Background(), 7)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrResolution)

	assert.Equal(t, StateError, resolver.State())
	assert.False(t, resolver.HasPermission("security.view"))
	assert.False(t, resolver.HasRole("manager"))
	assert.Equal(t, 0, resolver.HighestLevel())
}

func TestNoActiveAssignmentsMeansNoPermissions(t *testing.T) {
	// The store answered with permissions but every assignment is inactive:
	// the resolver must not trust the orphaned permission rows.
	inactive := managerRole(50)
	inactive.IsActive = false
	store := &stubStore{
		assignments: []AssignedRole{inactive},
		permissions: []string{"security.view"},
	}
	resolver := NewResolver(store, nil)
	require.NoError(t, resolver.LoadForActor(context.Background(), 7))

	assert.False(t, resolver.HasPermission("security.view"))
	assert.False(t, resolver.HasRole("manager"))
	assert.Equal(t, 0, resolver.HighestLevel())
}

func TestExpiredAssignmentsDoNotContribute(t *testing.T) {
	expired := AssignedRole{AssignmentID: 2, RoleID: 20, RoleName: "owner", Level: 90, RoleActive: true, IsActive: true}
	past := time.Now().Add(-time.Hour)
	expired.ExpiresAt = &past

	store := &stubStore{
		assignments: []AssignedRole{managerRole(50), expired},
		permissions: []string{"security.view"},
	}
	resolver := NewResolver(store, nil)
	require.NoError(t, resolver.LoadForActor(context.Background(), 7))

	assert.True(t, resolver.HasRole("manager"))
	assert.False(t, resolver.HasRole("owner"))
	assert.Equal(t, 50, resolver.HighestLevel())
}

func TestInactiveRoleDoesNotContribute(t *testing.T) {
	disabled := managerRole(50)
	disabled.RoleName = "auditor"
	disabled.RoleActive = false

	store := &stubStore{
		assignments: []AssignedRole{disabled},
		permissions: []string{"audit.view"},
	}
	resolver := NewResolver(store, nil)
	require.NoError(t, resolver.LoadForActor(context.Background(), 7))

	assert.False(t, resolver.HasRole("auditor"))
	assert.Equal(t, 0, resolver.HighestLevel())
}

func TestRefreshIsIdempotent(t *testing.T) {
	store := &stubStore{
		assignments: []AssignedRole{managerRole(50)},
		permissions: []string{"security.view", "users.view"},
	}
	resolver := NewResolver(store, nil)
	require.NoError(t, resolver.LoadForActor(context.Background(), 7))

	first := resolver.PermissionNames()
	require.NoError(t, resolver.Refresh(context.Background()))
	require.NoError(t, resolver.Refresh(context.Background()))
	second := resolver.PermissionNames()

	assert.ElementsMatch(t, first, second)
	assert.Equal(t, 3, store.listCalls)
}

func TestRefreshWithoutLoadFails(t *testing.T) {
	resolver := NewResolver(&stubStore{}, nil)
	err := resolver.Refresh(context.Background())
	require.ErrorIs(t, err, ErrResolution)
}

func TestRefreshAfterErrorRecovers(t *testing.T) {
	store := &stubStore{listErr: errors.New("timeout")}
	resolver := NewResolver(store, nil)
	require.Error(t, resolver.LoadForActor(context.Background(), 7))

	store.listErr = nil
	store.assignments = []AssignedRole{managerRole(50)}
	store.permissions = []string{"security.view"}

	require.NoError(t, resolver.Refresh(context.Background()))
	assert.Equal(t, StateReady, resolver.State())
	assert.True(t, resolver.HasPermission("security.view"))
}

func TestServiceRefreshActorSequencesVisibility(t *testing.T) {
	store := &stubStore{
		assignments: []AssignedRole{managerRole(50)},
		permissions: []string{"security.view"},
	}
	svc := NewService(store, nil)
	resolver := svc.ResolverFor(context.Background(), "sess-1", 7)
	require.False(t, resolver.HasPermission("security.manage"))

	store.permissions = []string{"security.view", "security.manage"}
	require.NoError(t, svc.RefreshActor(context.Background(), 7))

	assert.True(t, resolver.HasPermission("security.manage"), "granted permission visible on next check")
}

func TestServiceDropDiscardsResolver(t *testing.T) {
	store := &stubStore{assignments: []AssignedRole{managerRole(50)}, permissions: []string{"security.view"}}
	svc := NewService(store, nil)
	first := svc.ResolverFor(context.Background(), "sess-1", 7)
	svc.Drop("sess-1")
	second := svc.ResolverFor(context.Background(), "sess-1", 7)
	assert.NotSame(t, first, second)
}
