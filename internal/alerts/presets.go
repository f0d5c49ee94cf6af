package alerts

import (
	"encoding/json"

	"callrounded-manager/internal/store"
)

// Preset is a ready-made rule a tenant can instantiate in one call.
type Preset struct {
	Key             string              `json:"key"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	RuleType        store.AlertRuleType `json:"rule_type"`
	Conditions      json.RawMessage     `json:"conditions"`
	CooldownMinutes int                 `json:"cooldown_minutes"`
}

var presets = []Preset{
	{
		Key:             "missed_calls_spike",
		Name:            "Missed calls spike",
		Description:     "Alert when too many calls are missed in a short time",
		RuleType:        store.RuleMissedCalls,
		Conditions:      json.RawMessage(`{"threshold":5,"period_minutes":60}`),
		CooldownMinutes: 30,
	},
	{
		Key:             "low_completion_rate",
		Name:            "Low completion rate",
		Description:     "Alert when the answer rate drops too low",
		RuleType:        store.RuleLowCompletion,
		Conditions:      json.RawMessage(`{"threshold_pct":50,"min_calls":10}`),
		CooldownMinutes: 120,
	},
	{
		Key:             "high_daily_cost",
		Name:            "High daily cost",
		Description:     "Alert when spend exceeds the threshold",
		RuleType:        store.RuleHighCost,
		Conditions:      json.RawMessage(`{"threshold_amount":50,"period_hours":24}`),
		CooldownMinutes: 240,
	},
	{
		Key:             "no_activity",
		Name:            "No activity",
		Description:     "Alert when no call has come in for too long",
		RuleType:        store.RuleNoActivity,
		Conditions:      json.RawMessage(`{"inactive_hours":4}`),
		CooldownMinutes: 60,
	},
}

// Presets returns a copy of the built-in presets in display order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

func PresetByKey(key string) (Preset, bool) {
	for _, p := range presets {
		if p.Key == key {
			return p, true
		}
	}
	return Preset{}, false
}
