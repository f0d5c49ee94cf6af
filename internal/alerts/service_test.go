package alerts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"callrounded-manager/internal/notify"
	"callrounded-manager/internal/store"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func setup(t *testing.T) (*Service, *store.Store, *clock) {
	t.Helper()
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
	db, err := store.Open(ctx, store.OpenConfig{URL: "sqlite::memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx, db))
	t.Cleanup(func() { _ = store.Close(db) })
	s := store.New(db, store.WithClock(clk.Now))
	return NewService(s, notify.NewService(s), clk.Now), s, clk
}

func seedCalls(t *testing.T, s *store.Store, userID uint, now time.Time, status store.CallStatus, n int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpsertAgent(ctx, store.Agent{ID: fmt.Sprintf("a%d", userID), UserID: userID, Name: "Desk"}))
	for i := 0; i < n; i++ {
		started := now.Add(-time.Duration(i+1) * 5 * time.Minute)
		require.NoError(t, s.UpsertCall(ctx, store.Call{
			ID: fmt.Sprintf("u%d-%s-%d", userID, status, i), UserID: userID, AgentID: fmt.Sprintf("a%d", userID),
			Status: status, StartedAt: &started, Cost: 1,
		}))
	}
}

func TestPresets(t *testing.T) {
	ps := Presets()
	require.Len(t, ps, 4)
	for _, p := range ps {
		_, err := decodeConditions(p.RuleType, p.Conditions)
		assert.NoError(t, err, p.Key)
	}
	p, ok := PresetByKey("high_daily_cost")
	require.True(t, ok)
	assert.Equal(t, 240, p.CooldownMinutes)
}

func TestCreateRule_Validation(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, 1, RuleInput{Name: "x", RuleType: "weird"})
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = svc.CreateRule(ctx, 1, RuleInput{Name: " ", RuleType: store.RuleMissedCalls})
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = svc.CreateRule(ctx, 1, RuleInput{Name: "x", RuleType: store.RuleMissedCalls, Conditions: datatypes.JSON(`{"threshold":0}`)})
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = svc.CreateFromPreset(ctx, 1, "nope")
	assert.ErrorIs(t, err, ErrUnknownPreset)

	r, err := svc.CreateRule(ctx, 1, RuleInput{Name: "Quiet", RuleType: store.RuleNoActivity})
	require.NoError(t, err)
	assert.True(t, r.IsActive)
	assert.Equal(t, 60, r.CooldownMinutes)
	assert.NotEmpty(t, r.ID)
}

func TestEvaluate_FiresOutsideCooldownOnly(t *testing.T) {
	svc, s, clk := setup(t)
	ctx := context.Background()

	rule, err := svc.CreateFromPreset(ctx, 1, "missed_calls_spike")
	require.NoError(t, err)
	seedCalls(t, s, 1, clk.Now(), store.CallMissed, 5)

	fired, err := svc.Evaluate(ctx, 1)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, rule.ID, fired[0].RuleID)
	assert.NotZero(t, fired[0].EventID)

	events, err := s.GetUnnotifiedEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, store.EventSystemAlert, events[0].Type)

	fired, err = svc.Evaluate(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, fired)

	clk.t = clk.t.Add(31 * time.Minute)
	fired, err = svc.Evaluate(ctx, 1)
	require.NoError(t, err)
	require.Len(t, fired, 1)

	got, err := s.GetAlertRuleForUser(ctx, 1, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TriggerCount)
	require.NotNil(t, got.LastTriggered)
	assert.True(t, got.LastTriggered.Equal(clk.Now()))

	// Other tenants see nothing.
	other, err := svc.Evaluate(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestEvaluate_ThresholdsAndInactiveRules(t *testing.T) {
	svc, s, clk := setup(t)
	ctx := context.Background()

	_, err := svc.CreateFromPreset(ctx, 1, "low_completion_rate")
	require.NoError(t, err)
	quiet, err := svc.CreateFromPreset(ctx, 1, "no_activity")
	require.NoError(t, err)
	seedCalls(t, s, 1, clk.Now(), store.CallFailed, 3)

	// Three calls is under min_calls and there was activity.
	fired, err := svc.Evaluate(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, fired)

	clk.t = clk.t.Add(10 * time.Hour)
	off := false
	_, err = svc.UpdateRule(ctx, 1, quiet.ID, RulePatch{IsActive: &off})
	require.NoError(t, err)
	fired, err = svc.Evaluate(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, fired)

	on := true
	_, err = svc.UpdateRule(ctx, 1, quiet.ID, RulePatch{IsActive: &on})
	require.NoError(t, err)
	fired, err = svc.Evaluate(ctx, 1)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, store.RuleNoActivity, fired[0].RuleType)
}

func TestEvaluate_HighCost(t *testing.T) {
	svc, s, clk := setup(t)
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, 1, RuleInput{
		Name: "Spend", RuleType: store.RuleHighCost,
		Conditions: datatypes.JSON(`{"threshold_amount":4,"period_hours":1}`),
	})
	require.NoError(t, err)
	seedCalls(t, s, 1, clk.Now(), store.CallCompleted, 4)

	fired, err := svc.Evaluate(ctx, 1)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Contains(t, fired[0].Message, "4.00")
}

func TestUpdateAndDeleteRule(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	r, err := svc.CreateFromPreset(ctx, 1, "missed_calls_spike")
	require.NoError(t, err)

	missing, err := svc.UpdateRule(ctx, 2, r.ID, RulePatch{})
	require.NoError(t, err)
	assert.Nil(t, missing)

	bad := datatypes.JSON(`{"period_minutes":-1}`)
	_, err = svc.UpdateRule(ctx, 1, r.ID, RulePatch{Conditions: bad})
	assert.ErrorIs(t, err, ErrInvalidRule)

	name, cooldown := "Renamed", 5
	got, err := svc.UpdateRule(ctx, 1, r.ID, RulePatch{Name: &name, CooldownMinutes: &cooldown})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 5, got.CooldownMinutes)

	ok, err := svc.DeleteRule(ctx, 2, r.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.DeleteRule(ctx, 1, r.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStats(t *testing.T) {
	svc, s, clk := setup(t)
	ctx := context.Background()

	_, err := svc.CreateFromPreset(ctx, 1, "missed_calls_spike")
	require.NoError(t, err)
	_, err = svc.CreateFromPreset(ctx, 1, "no_activity")
	require.NoError(t, err)
	seedCalls(t, s, 1, clk.Now(), store.CallMissed, 6)

	_, err = svc.Evaluate(ctx, 1)
	require.NoError(t, err)

	st, err := svc.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalRules)
	assert.Equal(t, 2, st.ActiveRules)
	assert.Equal(t, 1, st.Unnotified)
	assert.EqualValues(t, 1, st.Last24h)
	assert.Equal(t, 1, st.TriggerCount)
}
