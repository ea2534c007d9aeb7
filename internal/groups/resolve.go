package groups

import (
	"github.com/ducminhle1904/market-sentinel-bot/internal/indicators"
	"github.com/ducminhle1904/market-sentinel-bot/internal/strategy"
)

// Built-in bottom-layer defaults. Group defaults overlay these, symbol
// overrides overlay the result.
const (
	DefaultCadenceMinutes     = 60
	DefaultMinConfidenceDrift = 0.15
	DefaultMinBandShiftUnits  = 0.0005
	DefaultTimezone           = "UTC"
)

func builtinAlertPolicy() ResolvedAlertPolicy {
	return ResolvedAlertPolicy{
		Enabled:            false,
		CadenceMinutes:     DefaultCadenceMinutes,
		ActiveWeekdays:     nil, // every day
		ActiveHours:        nil, // every hour
		Timezone:           DefaultTimezone,
		Conditions:         AllConditions(),
		MinConfidenceDrift: DefaultMinConfidenceDrift,
		MinBandShiftUnits:  DefaultMinBandShiftUnits,
	}
}

// Resolve merges built-in defaults, group defaults and per-symbol overrides
// into one complete config. The function is pure and idempotent: resolving
// the same inputs always yields the same output, and resolving a resolved
// config's inputs again changes nothing.
func Resolve(g *Group, symbolKey string) (ResolvedConfig, bool) {
	member, ok := g.Members[symbolKey]
	if !ok {
		return ResolvedConfig{}, false
	}

	cfg := ResolvedConfig{
		GroupID:        g.ID,
		SymbolKey:      symbolKey,
		Symbol:         member.Symbol,
		AssetClass:     member.AssetClass,
		Interval:       member.Interval,
		Period:         member.Period,
		Enabled:        g.Enabled && member.Enabled,
		StrategyName:   strategy.DefaultStrategyName,
		StrategyParams: map[string]any{},
		Indicators:     map[string]any{},
		Crossover:      indicators.DefaultCrossoverSettings(),
		Alert:          builtinAlertPolicy(),
	}

	if g.Defaults.StrategyName != "" {
		cfg.StrategyName = g.Defaults.StrategyName
	}
	mergeMap(cfg.StrategyParams, g.Defaults.StrategyParams)
	mergeMap(cfg.Indicators, g.Defaults.Indicators)
	if g.Defaults.Crossover != nil {
		cfg.Crossover = *g.Defaults.Crossover
	}
	applyPolicy(&cfg.Alert, g.Defaults.AlertPolicy)

	mergeMap(cfg.Indicators, member.IndicatorOverrides)
	mergeMap(cfg.StrategyParams, member.StrategyOverrides)
	applyPolicy(&cfg.Alert, member.AlertPolicy)

	return cfg, true
}

// ResolveAll resolves every member of a group, keyed by symbol key.
func ResolveAll(g *Group) map[string]ResolvedConfig {
	out := make(map[string]ResolvedConfig, len(g.Members))
	for key := range g.Members {
		if cfg, ok := Resolve(g, key); ok {
			out[key] = cfg
		}
	}
	return out
}

// mergeMap overlays src onto dst; only keys present in src are touched.
func mergeMap(dst map[string]any, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

// applyPolicy overlays a sparse policy onto a resolved one. Unset pointer
// fields and empty slices fall through.
func applyPolicy(dst *ResolvedAlertPolicy, src *AlertPolicy) {
	if src == nil {
		return
	}
	if src.Enabled != nil {
		dst.Enabled = *src.Enabled
	}
	if src.CadenceMinutes != nil {
		dst.CadenceMinutes = *src.CadenceMinutes
	}
	if len(src.ActiveWeekdays) > 0 {
		dst.ActiveWeekdays = append([]int(nil), src.ActiveWeekdays...)
	}
	if len(src.ActiveHours) > 0 {
		dst.ActiveHours = append([]int(nil), src.ActiveHours...)
	}
	if src.Timezone != "" {
		dst.Timezone = src.Timezone
	}
	if len(src.Conditions) > 0 {
		dst.Conditions = append([]AlertCondition(nil), src.Conditions...)
	}
	if src.MinConfidenceDrift != nil {
		dst.MinConfidenceDrift = *src.MinConfidenceDrift
	}
	if src.MinBandShiftUnits != nil {
		dst.MinBandShiftUnits = *src.MinBandShiftUnits
	}
}
