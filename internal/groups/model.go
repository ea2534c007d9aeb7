package groups

import (
	"time"

	"github.com/ducminhle1904/market-sentinel-bot/internal/indicators"
	"github.com/ducminhle1904/market-sentinel-bot/pkg/types"
)

// AlertCondition names one diff rule the scheduler can arm for a monitor.
type AlertCondition string

const (
	CondSentimentFlip   AlertCondition = "sentiment_flip"
	CondConfidenceDrift AlertCondition = "confidence_drift"
	CondATRBandShift    AlertCondition = "atr_band_shift"
	CondValidityLoss    AlertCondition = "validity_loss"
	CondNewCrossover    AlertCondition = "new_crossover"
)

// AllConditions lists every supported alert condition.
func AllConditions() []AlertCondition {
	return []AlertCondition{
		CondSentimentFlip, CondConfidenceDrift, CondATRBandShift,
		CondValidityLoss, CondNewCrossover,
	}
}

// AlertPolicy controls when a monitor runs and which changes alert. Sparse:
// nil pointer fields inherit from the level below during resolution.
type AlertPolicy struct {
	Enabled            *bool            `json:"enabled,omitempty"`
	CadenceMinutes     *int             `json:"cadence_minutes,omitempty"`
	ActiveWeekdays     []int            `json:"active_weekdays,omitempty"`
	ActiveHours        []int            `json:"active_hours,omitempty"`
	Timezone           string           `json:"timezone,omitempty"`
	Conditions         []AlertCondition `json:"conditions,omitempty"`
	MinConfidenceDrift *float64         `json:"min_confidence_drift,omitempty"`
	MinBandShiftUnits  *float64         `json:"min_band_shift_units,omitempty"`
}

// SymbolConfig is one instrument inside a group. Override maps are sparse;
// only the keys present shadow the group defaults.
type SymbolConfig struct {
	Symbol             string           `json:"symbol"`
	AssetClass         types.AssetClass `json:"asset_class"`
	Interval           types.Interval   `json:"interval"`
	Period             types.Period     `json:"period"`
	Enabled            bool             `json:"enabled"`
	IndicatorOverrides map[string]any   `json:"indicator_overrides,omitempty"`
	StrategyOverrides  map[string]any   `json:"strategy_overrides,omitempty"`
	AlertPolicy        *AlertPolicy     `json:"alert_policy,omitempty"`
}

// GroupDefaults apply to every member unless overridden per symbol.
type GroupDefaults struct {
	Indicators     map[string]any                `json:"indicators,omitempty"`
	StrategyName   string                        `json:"strategy_name,omitempty"`
	StrategyParams map[string]any                `json:"strategy_params,omitempty"`
	AlertPolicy    *AlertPolicy                  `json:"alert_policy,omitempty"`
	Crossover      *indicators.CrossoverSettings `json:"crossover,omitempty"`
}

// Group is a named collection of symbol configs with shared defaults.
type Group struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Tags        []string                `json:"tags,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
	Enabled     bool                    `json:"enabled"`
	Members     map[string]SymbolConfig `json:"members"`
	Defaults    GroupDefaults           `json:"defaults"`
}

// ResolvedConfig is the fully merged configuration for one (group, symbol)
// pair, ready for the orchestrator. It has no sparse fields left.
type ResolvedConfig struct {
	GroupID        string                       `json:"group_id"`
	SymbolKey      string                       `json:"symbol_key"`
	Symbol         string                       `json:"symbol"`
	AssetClass     types.AssetClass             `json:"asset_class"`
	Interval       types.Interval               `json:"interval"`
	Period         types.Period                 `json:"period"`
	Enabled        bool                         `json:"enabled"`
	StrategyName   string                       `json:"strategy_name"`
	StrategyParams map[string]any               `json:"strategy_params"`
	Indicators     map[string]any               `json:"indicators"`
	Crossover      indicators.CrossoverSettings `json:"crossover"`
	Alert          ResolvedAlertPolicy          `json:"alert"`
}

// ResolvedAlertPolicy is an AlertPolicy with every field materialized.
type ResolvedAlertPolicy struct {
	Enabled            bool             `json:"enabled"`
	CadenceMinutes     int              `json:"cadence_minutes"`
	ActiveWeekdays     []int            `json:"active_weekdays"`
	ActiveHours        []int            `json:"active_hours"`
	Timezone           string           `json:"timezone"`
	Conditions         []AlertCondition `json:"conditions"`
	MinConfidenceDrift float64          `json:"min_confidence_drift"`
	MinBandShiftUnits  float64          `json:"min_band_shift_units"`
}

// Cadence returns the polling period as a duration.
func (p ResolvedAlertPolicy) Cadence() time.Duration {
	return time.Duration(p.CadenceMinutes) * time.Minute
}

// HasCondition reports whether the policy arms a given diff rule.
func (p ResolvedAlertPolicy) HasCondition(c AlertCondition) bool {
	for _, armed := range p.Conditions {
		if armed == c {
			return true
		}
	}
	return false
}

// ActiveAt reports whether t falls inside the policy's active weekdays and
// hours, evaluated in the policy's timezone.
func (p ResolvedAlertPolicy) ActiveAt(t time.Time) bool {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := t.In(loc)
	if len(p.ActiveWeekdays) > 0 {
		ok := false
		for _, wd := range p.ActiveWeekdays {
			if int(local.Weekday()) == wd {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(p.ActiveHours) > 0 {
		ok := false
		for _, h := range p.ActiveHours {
			if local.Hour() == h {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
