package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"callrounded-manager/internal/store"
	"callrounded-manager/pkg/logger"
	"callrounded-manager/pkg/metrics"
)

var (
	ErrInvalidRule   = errors.New("alerts: invalid rule")
	ErrUnknownPreset = errors.New("alerts: unknown preset")
)

// Repository is the slice of the store alert evaluation needs.
type Repository interface {
	ListAlertRules(ctx context.Context, userID uint, activeOnly bool) ([]store.AlertRule, error)
	GetAlertRuleForUser(ctx context.Context, userID uint, id string) (*store.AlertRule, error)
	CreateAlertRule(ctx context.Context, r *store.AlertRule) error
	SaveAlertRule(ctx context.Context, r *store.AlertRule) error
	DeleteAlertRule(ctx context.Context, userID uint, id string) (bool, error)
	MarkAlertRuleTriggered(ctx context.Context, id string, t time.Time) error

	ListCallsInRange(ctx context.Context, userID uint, from, to time.Time) ([]store.Call, error)
	GetUnnotifiedEvents(ctx context.Context, userID uint) ([]store.Event, error)
	CountEventsSince(ctx context.Context, userID uint, t store.EventType, since time.Time) (int64, error)
}

// Notifier receives fired alerts.
type Notifier interface {
	SystemAlert(ctx context.Context, userID uint, title, message string) (store.Event, error)
}

type Service struct {
	repo   Repository
	notify Notifier
	now    func() time.Time
}

func NewService(repo Repository, notify Notifier, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, notify: notify, now: now}
}

type RuleInput struct {
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	RuleType        store.AlertRuleType `json:"rule_type"`
	Conditions      datatypes.JSON      `json:"conditions"`
	CooldownMinutes *int                `json:"cooldown_minutes"`
}

// RulePatch carries optional updates; nil fields are left alone.
type RulePatch struct {
	Name            *string        `json:"name"`
	Description     *string        `json:"description"`
	Conditions      datatypes.JSON `json:"conditions"`
	IsActive        *bool          `json:"is_active"`
	CooldownMinutes *int           `json:"cooldown_minutes"`
}

func (s *Service) ListRules(ctx context.Context, userID uint) ([]store.AlertRule, error) {
	return s.repo.ListAlertRules(ctx, userID, false)
}

func (s *Service) CreateRule(ctx context.Context, userID uint, in RuleInput) (*store.AlertRule, error) {
	name := strings.TrimSpace(in.Name)
	if userID == 0 || name == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidRule)
	}
	if !in.RuleType.Valid() {
		return nil, fmt.Errorf("%w: unknown rule type %q", ErrInvalidRule, in.RuleType)
	}
	if _, err := decodeConditions(in.RuleType, in.Conditions); err != nil {
		return nil, err
	}
	cooldown := 60
	if in.CooldownMinutes != nil {
		if *in.CooldownMinutes < 0 {
			return nil, fmt.Errorf("%w: cooldown_minutes must be >= 0", ErrInvalidRule)
		}
		cooldown = *in.CooldownMinutes
	}
	conds := in.Conditions
	if len(conds) == 0 {
		conds = datatypes.JSON(`{}`)
	}
	r := &store.AlertRule{
		UserID:          userID,
		Name:            name,
		Description:     in.Description,
		RuleType:        in.RuleType,
		Conditions:      conds,
		IsActive:        true,
		CooldownMinutes: cooldown,
	}
	if err := s.repo.CreateAlertRule(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) CreateFromPreset(ctx context.Context, userID uint, key string) (*store.AlertRule, error) {
	p, ok := PresetByKey(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, key)
	}
	cooldown := p.CooldownMinutes
	return s.CreateRule(ctx, userID, RuleInput{
		Name:            p.Name,
		Description:     p.Description,
		RuleType:        p.RuleType,
		Conditions:      datatypes.JSON(p.Conditions),
		CooldownMinutes: &cooldown,
	})
}

// UpdateRule applies p to the tenant's rule. A missing rule yields nil, nil.
func (s *Service) UpdateRule(ctx context.Context, userID uint, id string, p RulePatch) (*store.AlertRule, error) {
	r, err := s.repo.GetAlertRuleForUser(ctx, userID, id)
	if err != nil || r == nil {
		return nil, err
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name required", ErrInvalidRule)
		}
		r.Name = name
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if len(p.Conditions) > 0 {
		if _, err := decodeConditions(r.RuleType, p.Conditions); err != nil {
			return nil, err
		}
		r.Conditions = p.Conditions
	}
	if p.IsActive != nil {
		r.IsActive = *p.IsActive
	}
	if p.CooldownMinutes != nil {
		if *p.CooldownMinutes < 0 {
			return nil, fmt.Errorf("%w: cooldown_minutes must be >= 0", ErrInvalidRule)
		}
		r.CooldownMinutes = *p.CooldownMinutes
	}
	if err := s.repo.SaveAlertRule(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) DeleteRule(ctx context.Context, userID uint, id string) (bool, error) {
	return s.repo.DeleteAlertRule(ctx, userID, id)
}

// Firing is one rule that tripped during Evaluate.
type Firing struct {
	RuleID   string              `json:"rule_id"`
	RuleName string              `json:"rule_name"`
	RuleType store.AlertRuleType `json:"rule_type"`
	Message  string              `json:"message"`
	EventID  uint                `json:"event_id"`
}

// Evaluate checks the tenant's active rules against its calls. A rule still
// inside its cooldown is skipped. Rules with unreadable conditions are logged
// and skipped so one bad rule cannot block the rest.
func (s *Service) Evaluate(ctx context.Context, userID uint) ([]Firing, error) {
	rules, err := s.repo.ListAlertRules(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	log := logger.From(ctx)
	now := s.now().UTC()
	out := make([]Firing, 0)
	for _, r := range rules {
		if r.LastTriggered != nil && now.Before(r.LastTriggered.Add(time.Duration(r.CooldownMinutes)*time.Minute)) {
			continue
		}
		cond, err := decodeConditions(r.RuleType, r.Conditions)
		if err != nil {
			log.Warn("alert rule skipped", "rule_id", r.ID, "err", err)
			continue
		}
		calls, err := s.repo.ListCallsInRange(ctx, userID, now.Add(-window(cond)), now.Add(time.Nanosecond))
		if err != nil {
			return out, err
		}
		fired, msg := check(cond, calls)
		if !fired {
			continue
		}

		ev, err := s.notify.SystemAlert(ctx, userID, r.Name, msg)
		if err != nil {
			return out, err
		}
		if err := s.repo.MarkAlertRuleTriggered(ctx, r.ID, now); err != nil {
			return out, err
		}
		metrics.AlertsFiredTotal.WithLabelValues(string(r.RuleType)).Inc()
		log.Info("alert fired", "rule_id", r.ID, "rule_type", r.RuleType, "user_id", userID)
		out = append(out, Firing{RuleID: r.ID, RuleName: r.Name, RuleType: r.RuleType, Message: msg, EventID: ev.ID})
	}
	return out, nil
}

type Stats struct {
	Unnotified   int   `json:"unnotified"`
	Last24h      int64 `json:"last_24h"`
	ActiveRules  int   `json:"active_rules"`
	TotalRules   int   `json:"total_rules"`
	TriggerCount int   `json:"trigger_count"`
}

func (s *Service) Stats(ctx context.Context, userID uint) (Stats, error) {
	var out Stats
	pending, err := s.repo.GetUnnotifiedEvents(ctx, userID)
	if err != nil {
		return out, err
	}
	out.Unnotified = len(pending)
	out.Last24h, err = s.repo.CountEventsSince(ctx, userID, store.EventSystemAlert, s.now().Add(-24*time.Hour))
	if err != nil {
		return out, err
	}
	rules, err := s.repo.ListAlertRules(ctx, userID, false)
	if err != nil {
		return out, err
	}
	out.TotalRules = len(rules)
	for _, r := range rules {
		if r.IsActive {
			out.ActiveRules++
		}
		out.TriggerCount += r.TriggerCount
	}
	return out, nil
}
