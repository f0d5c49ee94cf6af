package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

func (s *Store) GetCalendarIntegration(ctx context.Context, userID uint) (*CalendarIntegration, error) {
	if s.skipRead(ctx, "get_calendar_integration") {
		return nil, nil
	}
	return first[CalendarIntegration](s.db.WithContext(ctx).Where("user_id = ?", userID))
}

// SaveCalendarIntegration inserts or replaces the tenant's calendar connection.
func (s *Store) SaveCalendarIntegration(ctx context.Context, ci CalendarIntegration) error {
	if s.skipWrite(ctx, "save_calendar_integration") {
		return nil
	}
	if err := s.check(ci); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "calendar_id", "connected", "updated_at"}),
	}).Create(&ci).Error
}

// MarkCalendarSynced records a completed sync of the tenant's calendar.
func (s *Store) MarkCalendarSynced(ctx context.Context, userID uint, at time.Time, events int) error {
	if s.skipWrite(ctx, "mark_calendar_synced") {
		return nil
	}
	return s.db.WithContext(ctx).Model(&CalendarIntegration{}).Where("user_id = ?", userID).Updates(map[string]any{
		"last_sync":     at.UTC(),
		"events_synced": events,
	}).Error
}

// ListCalendarEvents returns the tenant's appointments overlapping [from, to), by start time.
func (s *Store) ListCalendarEvents(ctx context.Context, userID uint, from, to time.Time) ([]CalendarEvent, error) {
	out := []CalendarEvent{}
	if s.skipRead(ctx, "list_calendar_events") {
		return out, nil
	}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND start_at < ? AND end_at > ?", userID, to.UTC(), from.UTC()).
		Order("start_at ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) CreateCalendarEvent(ctx context.Context, e *CalendarEvent) error {
	if s.skipWrite(ctx, "create_calendar_event") {
		return nil
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.StartAt = e.StartAt.UTC()
	e.EndAt = e.EndAt.UTC()
	if err := s.check(e); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *Store) DeleteCalendarEvent(ctx context.Context, userID uint, id string) (bool, error) {
	if s.skipWrite(ctx, "delete_calendar_event") {
		return false, nil
	}
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&CalendarEvent{})
	return res.RowsAffected > 0, res.Error
}
