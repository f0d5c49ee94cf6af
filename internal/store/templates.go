package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TemplateFilter narrows ListAgentTemplates. An empty Category matches all.
type TemplateFilter struct {
	Category       string
	IncludePresets bool
}

// ListAgentTemplates returns the tenant's templates and, optionally, the
// global presets: presets first, then the most used.
func (s *Store) ListAgentTemplates(ctx context.Context, userID uint, f TemplateFilter) ([]AgentTemplate, error) {
	out := []AgentTemplate{}
	if s.skipRead(ctx, "list_agent_templates") {
		return out, nil
	}
	q := s.db.WithContext(ctx)
	if f.IncludePresets {
		q = q.Where("(user_id = ? OR is_preset = ?)", userID, true)
	} else {
		q = q.Where("user_id = ? AND is_preset = ?", userID, false)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	err := q.Order("is_preset DESC, usage_count DESC, name ASC").Find(&out).Error
	return out, err
}

func (s *Store) ListPresetTemplates(ctx context.Context) ([]AgentTemplate, error) {
	out := []AgentTemplate{}
	if s.skipRead(ctx, "list_preset_templates") {
		return out, nil
	}
	err := s.db.WithContext(ctx).Where("is_preset = ?", true).Order("category ASC, name ASC").Find(&out).Error
	return out, err
}

// GetAgentTemplate returns a template the tenant owns or a preset.
func (s *Store) GetAgentTemplate(ctx context.Context, userID uint, id string) (*AgentTemplate, error) {
	if s.skipRead(ctx, "get_agent_template") {
		return nil, nil
	}
	return first[AgentTemplate](s.db.WithContext(ctx).Where("id = ? AND (user_id = ? OR is_preset = ?)", id, userID, true))
}

// GetOwnedAgentTemplate returns a template only if the tenant owns it. Presets are never owned.
func (s *Store) GetOwnedAgentTemplate(ctx context.Context, userID uint, id string) (*AgentTemplate, error) {
	if s.skipRead(ctx, "get_owned_agent_template") {
		return nil, nil
	}
	return first[AgentTemplate](s.db.WithContext(ctx).Where("id = ? AND user_id = ? AND is_preset = ?", id, userID, false))
}

// CreateAgentTemplate assigns an id and inserts t. Names are unique per tenant.
func (s *Store) CreateAgentTemplate(ctx context.Context, t *AgentTemplate) error {
	if s.skipWrite(ctx, "create_agent_template") {
		return nil
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := s.check(t); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := templateNameFree(tx, t); err != nil {
			return err
		}
		return tx.Create(t).Error
	})
}

// SaveAgentTemplate writes every column of an existing tenant template.
func (s *Store) SaveAgentTemplate(ctx context.Context, t *AgentTemplate) error {
	if s.skipWrite(ctx, "save_agent_template") {
		return nil
	}
	if err := s.check(t); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := templateNameFree(tx, t); err != nil {
			return err
		}
		return tx.Save(t).Error
	})
}

func templateNameFree(tx *gorm.DB, t *AgentTemplate) error {
	q := tx.Model(&AgentTemplate{}).Where("name = ? AND id <> ?", t.Name, t.ID)
	if t.UserID == nil {
		q = q.Where("is_preset = ?", true)
	} else {
		q = q.Where("user_id = ?", *t.UserID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	return nil
}

func (s *Store) DeleteAgentTemplate(ctx context.Context, userID uint, id string) (bool, error) {
	if s.skipWrite(ctx, "delete_agent_template") {
		return false, nil
	}
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ? AND is_preset = ?", id, userID, false).Delete(&AgentTemplate{})
	return res.RowsAffected > 0, res.Error
}

// IncrementTemplateUsage bumps the usage counter of a template visible to the
// tenant and returns the updated row, or nil when none matched.
func (s *Store) IncrementTemplateUsage(ctx context.Context, userID uint, id string) (*AgentTemplate, error) {
	if s.skipWrite(ctx, "increment_template_usage") {
		return nil, nil
	}
	var out *AgentTemplate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&AgentTemplate{}).
			Where("id = ? AND (user_id = ? OR is_preset = ?)", id, userID, true).
			UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		var err error
		out, err = first[AgentTemplate](tx.Where("id = ?", id))
		return err
	})
	return out, err
}

// SeedPresetTemplates inserts the presets whose name is not taken yet and
// reports how many were created.
func (s *Store) SeedPresetTemplates(ctx context.Context, presets []AgentTemplate) (int, error) {
	if s.skipWrite(ctx, "seed_preset_templates") {
		return 0, nil
	}
	created := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range presets {
			p.ID = uuid.NewString()
			p.UserID = nil
			p.IsPreset = true
			p.UsageCount = 0
			if err := s.check(&p); err != nil {
				return err
			}
			err := templateNameFree(tx, &p)
			if errors.Is(err, ErrConflict) {
				continue
			}
			if err != nil {
				return err
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
