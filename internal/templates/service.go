// Package templates manages reusable agent configurations: tenant templates
// plus the global presets every tenant can start from.
package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"callrounded-manager/internal/store"
	"callrounded-manager/pkg/logger"
)

var ErrInvalidTemplate = errors.New("templates: invalid template")

const (
	DefaultIcon     = "🤖"
	DefaultVoice    = "emma"
	DefaultLanguage = "fr-FR"
)

type Repository interface {
	ListAgentTemplates(ctx context.Context, userID uint, f store.TemplateFilter) ([]store.AgentTemplate, error)
	ListPresetTemplates(ctx context.Context) ([]store.AgentTemplate, error)
	GetAgentTemplate(ctx context.Context, userID uint, id string) (*store.AgentTemplate, error)
	GetOwnedAgentTemplate(ctx context.Context, userID uint, id string) (*store.AgentTemplate, error)
	CreateAgentTemplate(ctx context.Context, t *store.AgentTemplate) error
	SaveAgentTemplate(ctx context.Context, t *store.AgentTemplate) error
	DeleteAgentTemplate(ctx context.Context, userID uint, id string) (bool, error)
	IncrementTemplateUsage(ctx context.Context, userID uint, id string) (*store.AgentTemplate, error)
	SeedPresetTemplates(ctx context.Context, presets []store.AgentTemplate) (int, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type Input struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Icon         string `json:"icon"`
	Greeting     string `json:"greeting"`
	SystemPrompt string `json:"system_prompt"`
	Voice        string `json:"voice"`
	Language     string `json:"language"`
}

// Patch carries optional updates; nil fields are left alone.
type Patch struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Category     *string `json:"category"`
	Icon         *string `json:"icon"`
	Greeting     *string `json:"greeting"`
	SystemPrompt *string `json:"system_prompt"`
	Voice        *string `json:"voice"`
	Language     *string `json:"language"`
}

// SeedResult reports a preset seeding run.
type SeedResult struct {
	Created      int `json:"created"`
	TotalPresets int `json:"total_presets"`
}

// List returns the tenant's templates and, when includePresets is set, the presets.
func (s *Service) List(ctx context.Context, userID uint, category string, includePresets bool) ([]store.AgentTemplate, error) {
	if category != "" && !knownCategory(category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidTemplate, category)
	}
	return s.repo.ListAgentTemplates(ctx, userID, store.TemplateFilter{Category: category, IncludePresets: includePresets})
}

func (s *Service) Presets(ctx context.Context) ([]store.AgentTemplate, error) {
	return s.repo.ListPresetTemplates(ctx)
}

// Get returns a template the tenant owns or a preset; nil when neither matches.
func (s *Service) Get(ctx context.Context, userID uint, id string) (*store.AgentTemplate, error) {
	return s.repo.GetAgentTemplate(ctx, userID, id)
}

func (s *Service) Create(ctx context.Context, userID, createdBy uint, in Input) (*store.AgentTemplate, error) {
	t := &store.AgentTemplate{
		UserID:       &userID,
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Category:     orDefault(in.Category, CategoryCustom),
		Icon:         orDefault(in.Icon, DefaultIcon),
		Greeting:     in.Greeting,
		SystemPrompt: in.SystemPrompt,
		Voice:        orDefault(in.Voice, DefaultVoice),
		Language:     orDefault(in.Language, DefaultLanguage),
		CreatedBy:    createdBy,
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	if err := s.repo.CreateAgentTemplate(ctx, t); err != nil {
		return nil, err
	}
	logger.From(ctx).Info("agent template created", "template_id", t.ID, "user_id", userID)
	return t, nil
}

// Update applies p to a tenant template. Presets and missing templates yield nil, nil.
func (s *Service) Update(ctx context.Context, userID uint, id string, p Patch) (*store.AgentTemplate, error) {
	t, err := s.repo.GetOwnedAgentTemplate(ctx, userID, id)
	if err != nil || t == nil {
		return nil, err
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&t.Name, p.Name)
	set(&t.Description, p.Description)
	set(&t.Category, p.Category)
	set(&t.Icon, p.Icon)
	set(&t.Greeting, p.Greeting)
	set(&t.SystemPrompt, p.SystemPrompt)
	set(&t.Voice, p.Voice)
	set(&t.Language, p.Language)
	t.Name = strings.TrimSpace(t.Name)
	if err := validate(t); err != nil {
		return nil, err
	}
	if err := s.repo.SaveAgentTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, userID uint, id string) (bool, error) {
	return s.repo.DeleteAgentTemplate(ctx, userID, id)
}

// Use records that the tenant started an agent from the template.
func (s *Service) Use(ctx context.Context, userID uint, id string) (*store.AgentTemplate, error) {
	return s.repo.IncrementTemplateUsage(ctx, userID, id)
}

func (s *Service) SeedPresets(ctx context.Context) (SeedResult, error) {
	all := Presets()
	n, err := s.repo.SeedPresetTemplates(ctx, all)
	if err != nil {
		return SeedResult{}, err
	}
	if n > 0 {
		logger.From(ctx).Info("preset templates seeded", "created", n)
	}
	return SeedResult{Created: n, TotalPresets: len(all)}, nil
}

func validate(t *store.AgentTemplate) error {
	if t.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidTemplate)
	}
	if !knownCategory(t.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidTemplate, t.Category)
	}
	if strings.TrimSpace(t.Greeting) == "" || strings.TrimSpace(t.SystemPrompt) == "" {
		return fmt.Errorf("%w: greeting and system_prompt required", ErrInvalidTemplate)
	}
	return nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
