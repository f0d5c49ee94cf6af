package store

import (
	"context"
	"time"
)

// CreateEvent inserts a notification. The row's ID and CreatedAt are assigned on insert.
func (s *Store) CreateEvent(ctx context.Context, e *Event) error {
	if s.skipWrite(ctx, "create_event") {
		return nil
	}
	e.ID = 0
	if err := s.check(e); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(e).Error
}

// GetUnnotifiedEvents returns the tenant's events still flagged is_notified = 0, newest first.
func (s *Store) GetUnnotifiedEvents(ctx context.Context, userID uint) ([]Event, error) {
	out := []Event{}
	if s.skipRead(ctx, "get_unnotified_events") {
		return out, nil
	}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_notified = ?", userID, 0).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// EventFilter narrows ListEvents. Zero values mean no filter.
type EventFilter struct {
	Type       EventType
	Unnotified bool
	Limit      int
}

func (s *Store) ListEvents(ctx context.Context, userID uint, f EventFilter) ([]Event, error) {
	out := []Event{}
	if s.skipRead(ctx, "list_events") {
		return out, nil
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Unnotified {
		q = q.Where("is_notified = ?", 0)
	}
	err := q.Order("created_at DESC, id DESC").Limit(f.Limit).Find(&out).Error
	return out, err
}

// MarkEventAsNotified flips the flag on one of the tenant's events and reports whether it existed.
func (s *Store) MarkEventAsNotified(ctx context.Context, userID, id uint) (bool, error) {
	if s.skipWrite(ctx, "mark_event_as_notified") {
		return false, nil
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&Event{}).Where("id = ? AND user_id = ?", id, userID).Count(&n).Error; err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	err := s.db.WithContext(ctx).Model(&Event{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_notified", 1).Error
	return err == nil, err
}

// MarkAllEventsNotified flips every pending event of the tenant and returns how many changed.
func (s *Store) MarkAllEventsNotified(ctx context.Context, userID uint) (int64, error) {
	if s.skipWrite(ctx, "mark_all_events_notified") {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&Event{}).
		Where("user_id = ? AND is_notified = ?", userID, 0).
		Update("is_notified", 1)
	return res.RowsAffected, res.Error
}

// CountEventsSince counts a tenant's events of type t created at or after since.
func (s *Store) CountEventsSince(ctx context.Context, userID uint, t EventType, since time.Time) (int64, error) {
	if s.skipRead(ctx, "count_events_since") {
		return 0, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&Event{}).
		Where("user_id = ? AND type = ? AND created_at >= ?", userID, t, since.UTC()).
		Count(&n).Error
	return n, err
}
