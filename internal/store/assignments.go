package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignedAgentIDs is a subquery selecting the agents assigned to userID.
func assignedAgentIDs(db *gorm.DB, userID uint) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).Model(&UserAgentAssignment{}).Select("agent_id").Where("user_id = ?", userID)
}

func (s *Store) ListAgentAssignments(ctx context.Context, userID uint) ([]UserAgentAssignment, error) {
	out := []UserAgentAssignment{}
	if s.skipRead(ctx, "list_agent_assignments") {
		return out, nil
	}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("assigned_at DESC, agent_id ASC").Find(&out).Error
	return out, err
}

// AssignAgent grants userID access to agentID. An existing assignment is ErrConflict.
func (s *Store) AssignAgent(ctx context.Context, userID uint, agentID string, by uint) (*UserAgentAssignment, error) {
	if s.skipWrite(ctx, "assign_agent") {
		return nil, nil
	}
	a := UserAgentAssignment{ID: uuid.NewString(), UserID: userID, AgentID: agentID, AssignedBy: by}
	if err := s.check(a); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&UserAgentAssignment{}).Where("user_id = ? AND agent_id = ?", userID, agentID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: agent %s already assigned", ErrConflict, agentID)
		}
		return tx.Create(&a).Error
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AssignAgents assigns every listed agent that is not assigned yet and returns
// the new assignments. Unknown agent ids reject the whole batch with ErrInvalid.
func (s *Store) AssignAgents(ctx context.Context, userID uint, agentIDs []string, by uint) ([]UserAgentAssignment, error) {
	out := []UserAgentAssignment{}
	ids := uniqueIDs(agentIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: agent_external_ids must not be empty", ErrInvalid)
	}
	if s.skipWrite(ctx, "assign_agents") {
		return out, nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var known []string
		if err := tx.Model(&Agent{}).Where("id IN ?", ids).Pluck("id", &known).Error; err != nil {
			return err
		}
		if missing := difference(ids, known); len(missing) > 0 {
			return fmt.Errorf("%w: unknown agents %s", ErrInvalid, strings.Join(missing, ", "))
		}
		var existing []string
		if err := tx.Model(&UserAgentAssignment{}).Where("user_id = ? AND agent_id IN ?", userID, ids).Pluck("agent_id", &existing).Error; err != nil {
			return err
		}
		for _, id := range difference(ids, existing) {
			a := UserAgentAssignment{ID: uuid.NewString(), UserID: userID, AgentID: id, AssignedBy: by}
			if err := s.check(a); err != nil {
				return err
			}
			if err := tx.Create(&a).Error; err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UnassignAgent(ctx context.Context, userID uint, agentID string) (bool, error) {
	if s.skipWrite(ctx, "unassign_agent") {
		return false, nil
	}
	res := s.db.WithContext(ctx).Where("user_id = ? AND agent_id = ?", userID, agentID).Delete(&UserAgentAssignment{})
	return res.RowsAffected > 0, res.Error
}

// GetAccessibleAgents returns the agents userID owns plus those assigned to them.
func (s *Store) GetAccessibleAgents(ctx context.Context, userID uint) ([]Agent, error) {
	out := []Agent{}
	if s.skipRead(ctx, "get_accessible_agents") {
		return out, nil
	}
	db := s.db.WithContext(ctx)
	err := db.Where("(user_id = ? OR id IN (?))", userID, assignedAgentIDs(db, userID)).
		Order("name ASC, id ASC").Find(&out).Error
	return out, err
}

// GetAccessibleAgent is GetAgentForUser widened to assigned agents.
func (s *Store) GetAccessibleAgent(ctx context.Context, userID uint, id string) (*Agent, error) {
	if s.skipRead(ctx, "get_accessible_agent") {
		return nil, nil
	}
	db := s.db.WithContext(ctx)
	return first[Agent](db.Where("id = ?", id).Where("(user_id = ? OR id IN (?))", userID, assignedAgentIDs(db, userID)))
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// difference returns the ids not in have, sorted.
func difference(ids, have []string) []string {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	var out []string
	for _, id := range ids {
		if !set[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
