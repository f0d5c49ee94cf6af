package alerts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"callrounded-manager/internal/store"
)

type MissedCallsCondition struct {
	Threshold     int `json:"threshold" validate:"gte=1"`
	PeriodMinutes int `json:"period_minutes" validate:"gte=1,lte=10080"`
}

type LowCompletionCondition struct {
	ThresholdPct float64 `json:"threshold_pct" validate:"gt=0,lte=100"`
	MinCalls     int     `json:"min_calls" validate:"gte=1"`
	PeriodHours  int     `json:"period_hours" validate:"gte=1,lte=720"`
}

type HighCostCondition struct {
	ThresholdAmount float64 `json:"threshold_amount" validate:"gt=0"`
	PeriodHours     int     `json:"period_hours" validate:"gte=1,lte=720"`
}

type NoActivityCondition struct {
	InactiveHours int `json:"inactive_hours" validate:"gte=1,lte=720"`
}

var validate = validator.New()

// decodeConditions parses raw over the rule type's defaults and validates the result.
func decodeConditions(t store.AlertRuleType, raw []byte) (any, error) {
	var cond any
	switch t {
	case store.RuleMissedCalls:
		cond = &MissedCallsCondition{Threshold: 5, PeriodMinutes: 60}
	case store.RuleLowCompletion:
		cond = &LowCompletionCondition{ThresholdPct: 50, MinCalls: 10, PeriodHours: 24}
	case store.RuleHighCost:
		cond = &HighCostCondition{ThresholdAmount: 100, PeriodHours: 24}
	case store.RuleNoActivity:
		cond = &NoActivityCondition{InactiveHours: 4}
	default:
		return nil, fmt.Errorf("%w: unknown rule type %q", ErrInvalidRule, t)
	}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, cond); err != nil {
			return nil, fmt.Errorf("%w: conditions: %s", ErrInvalidRule, err.Error())
		}
	}
	if err := validate.Struct(cond); err != nil {
		return nil, fmt.Errorf("%w: conditions: %s", ErrInvalidRule, err.Error())
	}
	return cond, nil
}

// window is how far back a condition looks from now.
func window(cond any) time.Duration {
	switch c := cond.(type) {
	case *MissedCallsCondition:
		return time.Duration(c.PeriodMinutes) * time.Minute
	case *LowCompletionCondition:
		return time.Duration(c.PeriodHours) * time.Hour
	case *HighCostCondition:
		return time.Duration(c.PeriodHours) * time.Hour
	case *NoActivityCondition:
		return time.Duration(c.InactiveHours) * time.Hour
	}
	return 0
}

// check reports whether calls trip cond and, if so, a human readable reason.
func check(cond any, calls []store.Call) (bool, string) {
	switch c := cond.(type) {
	case *MissedCallsCondition:
		missed := 0
		for _, call := range calls {
			if call.Status == store.CallMissed {
				missed++
			}
		}
		if missed >= c.Threshold {
			return true, fmt.Sprintf("%d missed calls in the last %d minutes (threshold %d).", missed, c.PeriodMinutes, c.Threshold)
		}
	case *LowCompletionCondition:
		if len(calls) < c.MinCalls {
			return false, ""
		}
		completed := 0
		for _, call := range calls {
			if call.Status == store.CallCompleted {
				completed++
			}
		}
		rate := float64(completed) / float64(len(calls)) * 100
		if rate < c.ThresholdPct {
			return true, fmt.Sprintf("Completion rate %.1f%% over %d calls is below %.1f%%.", rate, len(calls), c.ThresholdPct)
		}
	case *HighCostCondition:
		total := 0.0
		for _, call := range calls {
			total += call.Cost
		}
		if total >= c.ThresholdAmount {
			return true, fmt.Sprintf("Spend of %.2f in the last %d hours reached %.2f.", total, c.PeriodHours, c.ThresholdAmount)
		}
	case *NoActivityCondition:
		if len(calls) == 0 {
			return true, fmt.Sprintf("No calls received in the last %d hours.", c.InactiveHours)
		}
	}
	return false, ""
}
