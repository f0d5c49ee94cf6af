package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var agentUpsertColumns = []string{"name", "status", "description", "updated_at"}

func (s *Store) GetAgentsByUserID(ctx context.Context, userID uint) ([]Agent, error) {
	out := []Agent{}
	if s.skipRead(ctx, "get_agents_by_user_id") {
		return out, nil
	}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC, id ASC").Find(&out).Error
	return out, err
}

// ListAgents returns every agent across tenants, for admins.
func (s *Store) ListAgents(ctx context.Context) ([]Agent, error) {
	out := []Agent{}
	if s.skipRead(ctx, "list_agents") {
		return out, nil
	}
	err := s.db.WithContext(ctx).Order("user_id ASC, name ASC").Find(&out).Error
	return out, err
}

func (s *Store) GetAgentByID(ctx context.Context, id string) (*Agent, error) {
	if s.skipRead(ctx, "get_agent_by_id") {
		return nil, nil
	}
	return first[Agent](s.db.WithContext(ctx).Where("id = ?", id))
}

// GetAgentForUser is GetAgentByID restricted to one tenant.
func (s *Store) GetAgentForUser(ctx context.Context, userID uint, id string) (*Agent, error) {
	if s.skipRead(ctx, "get_agent_for_user") {
		return nil, nil
	}
	return first[Agent](s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID))
}

// UpsertAgent inserts a new agent or updates name, status and description of an existing one.
func (s *Store) UpsertAgent(ctx context.Context, a Agent) error {
	if s.skipWrite(ctx, "upsert_agent") {
		return nil
	}
	if a.Status == "" {
		a.Status = AgentInactive
	}
	if err := s.check(a); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(agentUpsertColumns),
	}).Create(&a).Error
}

// SetAgentStatus persists status for a tenant's agent. A missing agent yields (nil, nil).
func (s *Store) SetAgentStatus(ctx context.Context, userID uint, id string, status AgentStatus) (*Agent, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: agent status must be active, inactive or paused", ErrInvalid)
	}
	if s.skipWrite(ctx, "set_agent_status") {
		return nil, nil
	}
	return s.updateAgentStatus(ctx, userID, id, func(AgentStatus) AgentStatus { return status })
}

// ToggleAgentStatus flips active to inactive and anything else to active.
func (s *Store) ToggleAgentStatus(ctx context.Context, userID uint, id string) (*Agent, error) {
	if s.skipWrite(ctx, "toggle_agent_status") {
		return nil, nil
	}
	return s.updateAgentStatus(ctx, userID, id, AgentStatus.Toggled)
}

func (s *Store) updateAgentStatus(ctx context.Context, userID uint, id string, next func(AgentStatus) AgentStatus) (*Agent, error) {
	var out *Agent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := first[Agent](tx.Where("id = ? AND user_id = ?", id, userID))
		if err != nil || a == nil {
			return err
		}
		a.Status = next(a.Status)
		if err := tx.Model(a).Update("status", a.Status).Error; err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}
