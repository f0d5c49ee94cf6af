package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAssignmentFixture(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for _, a := range []Agent{
		{ID: "a1", UserID: 1, Name: "Front Desk", Status: AgentActive},
		{ID: "a2", UserID: 1, Name: "Night Line", Status: AgentActive},
		{ID: "b1", UserID: 2, Name: "Own Agent", Status: AgentActive},
	} {
		require.NoError(t, s.UpsertAgent(ctx, a))
	}
	day := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for _, c := range []Call{
		{ID: "c1", UserID: 1, AgentID: "a1", Status: CallCompleted, StartedAt: &day},
		{ID: "c2", UserID: 1, AgentID: "a2", Status: CallMissed, StartedAt: &day},
		{ID: "c3", UserID: 2, AgentID: "b1", Status: CallCompleted, StartedAt: &day},
	} {
		require.NoError(t, s.UpsertCall(ctx, c))
	}
}

func TestAssignAgent_GrantsReadAccess(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedAssignmentFixture(t, s)

	agents, err := s.GetAccessibleAgents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, agents, 1)

	a, err := s.AssignAgent(ctx, 2, "a1", 1)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.AssignedAt.IsZero())

	_, err = s.AssignAgent(ctx, 2, "a1", 1)
	assert.ErrorIs(t, err, ErrConflict)

	agents, err = s.GetAccessibleAgents(ctx, 2)
	require.NoError(t, err)
	ids := []string{}
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []string{"a1", "b1"}, ids)

	owned, err := s.GetAgentsByUserID(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, owned, 1, "ownership listing stays tenant-scoped")

	got, err := s.GetAccessibleAgent(ctx, 2, "a1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	got, err = s.GetAccessibleAgent(ctx, 2, "a2")
	require.NoError(t, err)
	assert.Nil(t, got)

	rows, total, err := s.GetCallsByUserID(ctx, 2, CallFilter{Shared: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 2)
	_, total, err = s.GetCallsByUserID(ctx, 2, CallFilter{Shared: true, Status: CallCompleted, AgentID: "a1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	_, total, err = s.GetCallsByUserID(ctx, 2, CallFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	c, err := s.GetAccessibleCall(ctx, 2, "c1")
	require.NoError(t, err)
	assert.NotNil(t, c)
	c, err = s.GetAccessibleCall(ctx, 2, "c2")
	require.NoError(t, err)
	assert.Nil(t, c)

	inRange, err := s.ListAccessibleCallsInRange(ctx, 2, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	ok, err := s.UnassignAgent(ctx, 2, "a1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.UnassignAgent(ctx, 2, "a1")
	require.NoError(t, err)
	assert.False(t, ok)
	c, err = s.GetAccessibleCall(ctx, 2, "c1")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestAssignAgents_SkipsExistingAndRejectsUnknown(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedAssignmentFixture(t, s)

	_, err := s.AssignAgent(ctx, 2, "a1", 1)
	require.NoError(t, err)

	_, err = s.AssignAgents(ctx, 2, []string{"a2", "zz"}, 1)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = s.AssignAgents(ctx, 2, []string{" "}, 1)
	assert.ErrorIs(t, err, ErrInvalid)

	created, err := s.AssignAgents(ctx, 2, []string{"a1", "a2", "a2"}, 1)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "a2", created[0].AgentID)

	list, err := s.ListAgentAssignments(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDeleteUser_RemovesAssignments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedAssignmentFixture(t, s)
	owner, err := s.CreateUser(ctx, NewUser{Email: "owner@example.com", Role: RoleUser, PasswordHash: "x"})
	require.NoError(t, err)

	require.NoError(t, s.UpsertAgent(ctx, Agent{ID: "o1", UserID: owner.ID, Name: "Owner Agent", Status: AgentActive}))
	_, err = s.AssignAgent(ctx, 2, "o1", 1)
	require.NoError(t, err)

	ok, err := s.DeleteUser(ctx, owner.ID)
	require.NoError(t, err)
	require.True(t, ok)

	list, err := s.ListAgentAssignments(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, list)
}
