package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents_UnnotifiedOutbox(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	e1 := &Event{UserID: 1, Type: EventCallMissed, Title: "Missed call", RelatedCallID: strPtr("c1")}
	e2 := &Event{UserID: 1, Type: EventAgentOffline, Title: "Agent offline"}
	e3 := &Event{UserID: 2, Type: EventSystemAlert, Title: "Other tenant"}
	for _, e := range []*Event{e1, e2, e3} {
		require.NoError(t, s.CreateEvent(ctx, e))
		require.NotZero(t, e.ID)
	}

	pending, err := s.GetUnnotifiedEvents(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	ok, err := s.MarkEventAsNotified(ctx, 1, e1.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	pending, err = s.GetUnnotifiedEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, e2.ID, pending[0].ID)

	ok, err = s.MarkEventAsNotified(ctx, 1, e3.ID)
	require.NoError(t, err)
	assert.False(t, ok, "cannot mark another tenant's event")

	n, err := s.MarkAllEventsNotified(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	pending, err = s.GetUnnotifiedEvents(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := s.ListEvents(ctx, 1, EventFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	missed, err := s.ListEvents(ctx, 1, EventFilter{Type: EventCallMissed})
	require.NoError(t, err)
	require.Len(t, missed, 1)
	assert.Equal(t, 1, missed[0].IsNotified)
}

func TestCreateEvent_RejectsUnknownType(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateEvent(context.Background(), &Event{UserID: 1, Type: "meteor", Title: "x"})
	assert.ErrorIs(t, err, ErrInvalid)
}
