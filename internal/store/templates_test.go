package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

func TestAgentTemplates_PresetsSharedTenantRowsPrivate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n, err := s.SeedPresetTemplates(ctx, []AgentTemplate{
		{Name: "Salon", Category: "beauty", Voice: "emma", Language: "fr-FR"},
		{Name: "Clinic", Category: "health", Voice: "emma", Language: "fr-FR"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.SeedPresetTemplates(ctx, []AgentTemplate{{Name: "Salon", Category: "beauty", Voice: "emma", Language: "fr-FR"}})
	require.NoError(t, err)
	assert.Zero(t, n)

	mine := &AgentTemplate{UserID: uintPtr(1), Name: "Mine", Category: "custom", Voice: "emma", Language: "fr-FR"}
	require.NoError(t, s.CreateAgentTemplate(ctx, mine))
	require.ErrorIs(t, s.CreateAgentTemplate(ctx, &AgentTemplate{UserID: uintPtr(1), Name: "Mine", Category: "custom", Voice: "emma", Language: "fr-FR"}), ErrConflict)
	require.NoError(t, s.CreateAgentTemplate(ctx, &AgentTemplate{UserID: uintPtr(2), Name: "Mine", Category: "custom", Voice: "emma", Language: "fr-FR"}))

	all, err := s.ListAgentTemplates(ctx, 1, TemplateFilter{IncludePresets: true})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].IsPreset)
	assert.Equal(t, "Mine", all[2].Name)

	own, err := s.ListAgentTemplates(ctx, 1, TemplateFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)

	beauty, err := s.ListAgentTemplates(ctx, 1, TemplateFilter{IncludePresets: true, Category: "beauty"})
	require.NoError(t, err)
	require.Len(t, beauty, 1)
	preset := beauty[0]

	got, err := s.GetOwnedAgentTemplate(ctx, 1, preset.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "presets are read-only")

	ok, err := s.DeleteAgentTemplate(ctx, 1, preset.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = s.GetAgentTemplate(ctx, 2, mine.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	used, err := s.IncrementTemplateUsage(ctx, 2, preset.ID)
	require.NoError(t, err)
	require.NotNil(t, used)
	assert.Equal(t, 1, used.UsageCount)

	used, err = s.IncrementTemplateUsage(ctx, 2, mine.ID)
	require.NoError(t, err)
	assert.Nil(t, used)

	ok, err = s.DeleteAgentTemplate(ctx, 1, mine.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWeeklyReports_UpsertPerWeek(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	week := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	r := &WeeklyReport{UserID: 1, WeekStart: week, WeekEnd: week.AddDate(0, 0, 7), TotalCalls: 3, GeneratedAt: week.AddDate(0, 0, 7)}
	require.NoError(t, s.SaveWeeklyReport(ctx, r))
	again := &WeeklyReport{UserID: 1, WeekStart: week, WeekEnd: week.AddDate(0, 0, 7), TotalCalls: 5, GeneratedAt: week.AddDate(0, 0, 8)}
	require.NoError(t, s.SaveWeeklyReport(ctx, again))
	require.NoError(t, s.SaveWeeklyReport(ctx, &WeeklyReport{UserID: 1, WeekStart: week.AddDate(0, 0, 7), WeekEnd: week.AddDate(0, 0, 14), GeneratedAt: week}))
	require.NoError(t, s.SaveWeeklyReport(ctx, &WeeklyReport{UserID: 2, WeekStart: week, WeekEnd: week.AddDate(0, 0, 7), GeneratedAt: week}))

	out, err := s.ListWeeklyReports(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].WeekStart.After(out[1].WeekStart))
	assert.Equal(t, 5, out[1].TotalCalls)

	out, err = s.ListWeeklyReports(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestWeeklyReportConfig_ValidatesRecipientsAndSchedule(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	got, err := s.GetWeeklyReportConfig(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	cfg := &WeeklyReportConfig{UserID: 1, Recipients: []string{"ops@example.com"}, ScheduleDay: "monday", ScheduleTime: "09:00"}
	require.NoError(t, s.SaveWeeklyReportConfig(ctx, cfg))

	cfg.Enabled = true
	require.NoError(t, s.SaveWeeklyReportConfig(ctx, cfg))
	got, err = s.GetWeeklyReportConfig(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Enabled)
	assert.Equal(t, []string{"ops@example.com"}, []string(got.Recipients))

	bad := *cfg
	bad.Recipients = []string{"not-an-email"}
	require.ErrorIs(t, s.SaveWeeklyReportConfig(ctx, &bad), ErrInvalid)
	bad = *cfg
	bad.ScheduleTime = "25:00"
	require.ErrorIs(t, s.SaveWeeklyReportConfig(ctx, &bad), ErrInvalid)
	bad = *cfg
	bad.ScheduleDay = "someday"
	require.ErrorIs(t, s.SaveWeeklyReportConfig(ctx, &bad), ErrInvalid)
}
