package services

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/sprintboard/internal/models"
	"github.com/charlesng35/sprintboard/pkg/metrics"
)

func TestCapabilityMatrix(t *testing.T) {
	cases := []struct {
		capability Capability
		owner      bool
		admin      bool
		member     bool
	}{
		{CapabilityView, true, true, true},
		{CapabilityEditTasks, true, true, true},
		{CapabilityDeleteTasks, true, true, false},
		{CapabilityManageSprints, true, true, false},
		{CapabilityManageMembers, true, true, false},
		{Capability("unknown"), false, false, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.capability), func(t *testing.T) {
			require.Equal(t, tc.owner, tc.capability.PermittedFor(models.TeamRoleOwner))
			require.Equal(t, tc.admin, tc.capability.PermittedFor(models.TeamRoleAdmin))
			require.Equal(t, tc.member, tc.capability.PermittedFor(models.TeamRoleMember))
			require.False(t, tc.capability.PermittedFor(models.TeamRole("")))
		})
	}
}

func TestRoleOfPersonalWorkspace(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	bob := f.user("bob")
	ctx := context.Background()

	role, err := f.authority.RoleOf(ctx, alice.ID, PersonalWorkspace(alice.ID))
	require.NoError(t, err)
	require.Equal(t, models.TeamRoleOwner, role)

	_, err = f.authority.RoleOf(ctx, bob.ID, PersonalWorkspace(alice.ID))
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestAuthorizeTeamRoles(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	bob := f.user("bob")
	carol := f.user("carol")
	team := f.team(alice, "Platform")
	f.member(team.ID, bob.ID, models.TeamRoleMember)
	ws := TeamWorkspace(team.ID)
	ctx := context.Background()

	decision, err := f.authority.Authorize(ctx, alice.ID, ws, CapabilityManageSprints)
	require.NoError(t, err)
	require.Equal(t, models.TeamRoleOwner, decision.Role)
	require.Equal(t, ws, decision.Workspace)

	_, err = f.authority.Authorize(ctx, bob.ID, ws, CapabilityManageSprints)
	require.ErrorIs(t, err, ErrAccessDenied)

	decision, err = f.authority.Authorize(ctx, bob.ID, ws, CapabilityEditTasks)
	require.NoError(t, err)
	require.Equal(t, models.TeamRoleMember, decision.Role)

	_, err = f.authority.Authorize(ctx, carol.ID, ws, CapabilityView)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestWorkspaceResolver(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	bob := f.user("bob")
	team := f.team(alice, "Platform")
	ctx := context.Background()

	ws, err := f.resolver.Resolve(ctx, alice.ID, "")
	require.NoError(t, err)
	require.False(t, ws.IsTeam())
	require.Equal(t, "user:"+alice.ID, ws.Key())

	ws, err = f.resolver.Resolve(ctx, alice.ID, team.ID)
	require.NoError(t, err)
	require.True(t, ws.IsTeam())
	require.Equal(t, "team:"+team.ID, ws.Key())

	_, err = f.resolver.Resolve(ctx, bob.ID, team.ID)
	require.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.resolver.Resolve(ctx, alice.ID, "no-such-team")
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestAuthorizeRecordsDecisionMetrics(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	mallory := f.user("mallory")
	ws := PersonalWorkspace(alice.ID)
	ctx := context.Background()

	granted := metrics.RoleDecisions.WithLabelValues(string(CapabilityDeleteTasks), "granted")
	denied := metrics.RoleDecisions.WithLabelValues(string(CapabilityDeleteTasks), "denied")
	grantedBefore := testutil.ToFloat64(granted)
	deniedBefore := testutil.ToFloat64(denied)

	_, err := f.authority.Authorize(ctx, alice.ID, ws, CapabilityDeleteTasks)
	require.NoError(t, err)
	_, err = f.authority.Authorize(ctx, mallory.ID, ws, CapabilityDeleteTasks)
	require.ErrorIs(t, err, ErrAccessDenied)

	require.Equal(t, grantedBefore+1, testutil.ToFloat64(granted))
	require.Equal(t, deniedBefore+1, testutil.ToFloat64(denied))
}
