package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var callUpsertColumns = []string{"status", "transcription", "recording_url", "duration", "ended_at", "cost", "updated_at"}

// CallFilter narrows a tenant's call listing. Zero values mean no filter.
type CallFilter struct {
	Limit   int
	Offset  int
	Status  CallStatus
	AgentID string
	From    *time.Time
	To      *time.Time
	// Caller matches a substring of the caller number.
	Caller string
	// Shared widens the tenant to calls of agents assigned to the user.
	Shared bool
}

func (f CallFilter) scope(userID uint) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.Shared {
			q = q.Where("(user_id = ? OR agent_id IN (?))", userID, assignedAgentIDs(q, userID))
		} else {
			q = q.Where("user_id = ?", userID)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.AgentID != "" {
			q = q.Where("agent_id = ?", f.AgentID)
		}
		if f.From != nil {
			q = q.Where("COALESCE(started_at, created_at) >= ?", f.From.UTC())
		}
		if f.To != nil {
			q = q.Where("COALESCE(started_at, created_at) < ?", f.To.UTC())
		}
		if f.Caller != "" {
			q = q.Where("caller_number LIKE ?", "%"+f.Caller+"%")
		}
		return q
	}
}

// GetCallsByUserID returns one page of a tenant's calls, newest first, plus the total matching f.
func (s *Store) GetCallsByUserID(ctx context.Context, userID uint, f CallFilter) ([]Call, int64, error) {
	out := []Call{}
	if s.skipRead(ctx, "get_calls_by_user_id") {
		return out, 0, nil
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown call status %q", ErrInvalid, f.Status)
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&Call{}).Scopes(f.scope(userID)).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := s.db.WithContext(ctx).Scopes(f.scope(userID)).
		Order("COALESCE(started_at, created_at) DESC, id DESC").
		Limit(f.Limit).Offset(f.Offset).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListCallsInRange returns every call of a tenant that started in [from, to), oldest first.
func (s *Store) ListCallsInRange(ctx context.Context, userID uint, from, to time.Time) ([]Call, error) {
	out := []Call{}
	if s.skipRead(ctx, "list_calls_in_range") {
		return out, nil
	}
	f := CallFilter{From: &from, To: &to}
	err := s.db.WithContext(ctx).Scopes(f.scope(userID)).
		Order("COALESCE(started_at, created_at) ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListAccessibleCallsInRange is ListCallsInRange including calls of assigned agents.
func (s *Store) ListAccessibleCallsInRange(ctx context.Context, userID uint, from, to time.Time) ([]Call, error) {
	out := []Call{}
	if s.skipRead(ctx, "list_accessible_calls_in_range") {
		return out, nil
	}
	f := CallFilter{From: &from, To: &to, Shared: true}
	err := s.db.WithContext(ctx).Scopes(f.scope(userID)).
		Order("COALESCE(started_at, created_at) ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) GetCallByID(ctx context.Context, id string) (*Call, error) {
	if s.skipRead(ctx, "get_call_by_id") {
		return nil, nil
	}
	return first[Call](s.db.WithContext(ctx).Where("id = ?", id))
}

// GetCallForUser is GetCallByID restricted to one tenant.
func (s *Store) GetCallForUser(ctx context.Context, userID uint, id string) (*Call, error) {
	if s.skipRead(ctx, "get_call_for_user") {
		return nil, nil
	}
	return first[Call](s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID))
}

// GetAccessibleCall is GetCallForUser widened to calls of assigned agents.
func (s *Store) GetAccessibleCall(ctx context.Context, userID uint, id string) (*Call, error) {
	if s.skipRead(ctx, "get_accessible_call") {
		return nil, nil
	}
	f := CallFilter{Shared: true}
	return first[Call](s.db.WithContext(ctx).Scopes(f.scope(userID)).Where("id = ?", id))
}

// UpsertCall inserts a call or refreshes its outcome fields: status, transcription,
// recording URL, duration, end time and cost.
func (s *Store) UpsertCall(ctx context.Context, c Call) error {
	if s.skipWrite(ctx, "upsert_call") {
		return nil
	}
	if c.Status == "" {
		c.Status = CallOngoing
	}
	if c.StartedAt != nil {
		t := c.StartedAt.UTC()
		c.StartedAt = &t
	}
	if c.EndedAt != nil {
		t := c.EndedAt.UTC()
		c.EndedAt = &t
	}
	if err := s.check(c); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(callUpsertColumns),
	}).Create(&c).Error
}
