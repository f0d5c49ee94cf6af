package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Store) ListAlertRules(ctx context.Context, userID uint, activeOnly bool) ([]AlertRule, error) {
	out := []AlertRule{}
	if s.skipRead(ctx, "list_alert_rules") {
		return out, nil
	}
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("created_at DESC, id ASC").Find(&out).Error
	return out, err
}

func (s *Store) GetAlertRuleForUser(ctx context.Context, userID uint, id string) (*AlertRule, error) {
	if s.skipRead(ctx, "get_alert_rule_for_user") {
		return nil, nil
	}
	return first[AlertRule](s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID))
}

// CreateAlertRule assigns an id and inserts r.
func (s *Store) CreateAlertRule(ctx context.Context, r *AlertRule) error {
	if s.skipWrite(ctx, "create_alert_rule") {
		return nil
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := s.check(r); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(r).Error
}

// SaveAlertRule writes every column of an existing rule.
func (s *Store) SaveAlertRule(ctx context.Context, r *AlertRule) error {
	if s.skipWrite(ctx, "save_alert_rule") {
		return nil
	}
	if err := s.check(r); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(r).Error
}

func (s *Store) DeleteAlertRule(ctx context.Context, userID uint, id string) (bool, error) {
	if s.skipWrite(ctx, "delete_alert_rule") {
		return false, nil
	}
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&AlertRule{})
	return res.RowsAffected > 0, res.Error
}

// MarkAlertRuleTriggered records a firing at t.
func (s *Store) MarkAlertRuleTriggered(ctx context.Context, id string, t time.Time) error {
	if s.skipWrite(ctx, "mark_alert_rule_triggered") {
		return nil
	}
	return s.db.WithContext(ctx).Model(&AlertRule{}).Where("id = ?", id).Updates(map[string]any{
		"last_triggered": t.UTC(),
		"trigger_count":  gorm.Expr("trigger_count + 1"),
	}).Error
}
