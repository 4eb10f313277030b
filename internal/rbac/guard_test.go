package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyResolver(t *testing.T, roles []AssignedRole, perms []string) *Resolver {
	t.Helper()
	store := &stubStore{assignments: roles, permissions: perms}
	resolver := NewResolver(store, nil)
	require.NoError(t, resolver.LoadForActor(context.Background(), 1))
	return resolver
}

func TestDecidePermission(t *testing.T) {
	resolver := readyResolver(t, []AssignedRole{managerRole(50)}, []string{"security.view"})

	assert.Equal(t, VerdictAllow, resolver.DecidePermission("security.view").Verdict)

	decision := resolver.DecidePermission("security.manage")
	assert.Equal(t, VerdictDeny, decision.Verdict)
	assert.Equal(t, "missing permission: security.manage", decision.Reason)
}

func TestDecidePermissionPendingWhileUninitialized(t *testing.T) {
	resolver := NewResolver(&stubStore{}, nil)
	decision := resolver.DecidePermission("security.view")
	assert.Equal(t, VerdictPending, decision.Verdict)
}

func TestDecidePermissionDeniesAfterLoadError(t *testing.T) {
	store := &stubStore{listErr: errors.New("boom")}
	resolver := NewResolver(store, nil)
	require.Error(t, resolver.LoadForActor(context.Background(), 1))

	decision := resolver.DecidePermission("security.view")
	assert.Equal(t, VerdictDeny, decision.Verdict)
	assert.Equal(t, "permission data unavailable", decision.Reason)
}

func TestDecideRolesAllRequiresEveryRole(t *testing.T) {
	resolver := readyResolver(t, []AssignedRole{managerRole(50)}, nil)

	decision := resolver.DecideRoles(ModeAll, "manager", "owner")
	assert.Equal(t, VerdictDeny, decision.Verdict)
	assert.Equal(t, "missing role: owner", decision.Reason)
}

func TestDecideRolesAnyAcceptsOneHeldRole(t *testing.T) {
	resolver := readyResolver(t, []AssignedRole{managerRole(50)}, nil)

	decision := resolver.DecideRoles(ModeAny, "manager", "owner")
	assert.Equal(t, VerdictAllow, decision.Verdict)
}

func TestDecideRolesEmptySets(t *testing.T) {
	resolver := readyResolver(t, []AssignedRole{managerRole(50)}, nil)

	assert.Equal(t, VerdictAllow, resolver.DecideRoles(ModeAll).Verdict, "empty conjunction is vacuously true")
	assert.Equal(t, VerdictDeny, resolver.DecideRoles(ModeAny).Verdict, "empty disjunction cannot be satisfied")
}

func TestCanManageComparesHighestLevels(t *testing.T) {
	owner := AssignedRole{AssignmentID: 3, RoleID: 30, RoleName: "owner", Level: 90, RoleActive: true, IsActive: true}
	senior := readyResolver(t, []AssignedRole{owner}, nil)
	junior := readyResolver(t, []AssignedRole{managerRole(50)}, nil)
	peer := readyResolver(t, []AssignedRole{managerRole(50)}, nil)

	assert.True(t, senior.CanManage(junior))
	assert.False(t, junior.CanManage(senior))
	assert.False(t, junior.CanManage(peer), "equal levels do not grant management")
	assert.False(t, junior.CanManage(nil))
}
