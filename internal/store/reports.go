package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

func (s *Store) GetWeeklyReportConfig(ctx context.Context, userID uint) (*WeeklyReportConfig, error) {
	if s.skipRead(ctx, "get_weekly_report_config") {
		return nil, nil
	}
	return first[WeeklyReportConfig](s.db.WithContext(ctx).Where("user_id = ?", userID))
}

// SaveWeeklyReportConfig inserts or replaces the tenant's report settings.
func (s *Store) SaveWeeklyReportConfig(ctx context.Context, c *WeeklyReportConfig) error {
	if s.skipWrite(ctx, "save_weekly_report_config") {
		return nil
	}
	if err := s.check(c); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(c).Error
}

// SaveWeeklyReport stores a generated report, replacing an earlier one for the same week.
func (s *Store) SaveWeeklyReport(ctx context.Context, r *WeeklyReport) error {
	if s.skipWrite(ctx, "save_weekly_report") {
		return nil
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.WeekStart = r.WeekStart.UTC()
	r.WeekEnd = r.WeekEnd.UTC()
	if err := s.check(r); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "week_start"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"week_end", "total_calls", "completed_calls", "missed_calls",
			"avg_duration", "total_cost", "calls_change_pct", "generated_at", "sent_at",
		}),
	}).Create(r).Error
}

// ListWeeklyReports returns the newest limit reports of the tenant.
func (s *Store) ListWeeklyReports(ctx context.Context, userID uint, limit int) ([]WeeklyReport, error) {
	out := []WeeklyReport{}
	if s.skipRead(ctx, "list_weekly_reports") {
		return out, nil
	}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("week_start DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (s *Store) GetTenantSettings(ctx context.Context, userID uint) (*TenantSettings, error) {
	if s.skipRead(ctx, "get_tenant_settings") {
		return nil, nil
	}
	return first[TenantSettings](s.db.WithContext(ctx).Where("user_id = ?", userID))
}

func (s *Store) SaveTenantSettings(ctx context.Context, t *TenantSettings) error {
	if s.skipWrite(ctx, "save_tenant_settings") {
		return nil
	}
	if err := s.check(t); err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.timestamp()
	}
	return s.db.WithContext(ctx).Save(t).Error
}
