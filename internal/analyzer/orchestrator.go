package analyzer

import (
	"context"
	"fmt"
	"time"

	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
	"github.com/ducminhle1904/market-sentinel-bot/internal/frame"
	"github.com/ducminhle1904/market-sentinel-bot/internal/groups"
	"github.com/ducminhle1904/market-sentinel-bot/internal/indicators"
	"github.com/ducminhle1904/market-sentinel-bot/internal/logger"
	"github.com/ducminhle1904/market-sentinel-bot/internal/monitoring"
	"github.com/ducminhle1904/market-sentinel-bot/internal/strategy"
	"github.com/ducminhle1904/market-sentinel-bot/pkg/data"
)

// Analysis is a verdict plus run metadata.
type Analysis struct {
	Verdict      strategy.Verdict       `json:"verdict"`
	GroupID      string                 `json:"group_id,omitempty"`
	SymbolKey    string                 `json:"symbol_key"`
	StrategyName string                 `json:"strategy_name"`
	Params       map[string]any         `json:"params"`
	RanAt        time.Time              `json:"ran_at"`
	Completeness float64                `json:"completeness"`
	Bars         int                    `json:"bars"`
	Request      data.Request           `json:"request"`
}

// Orchestrator wires provider, kernel, detector and strategies into the
// single analyze operation. It is synchronous; concurrency lives in the
// scheduler above it.
type Orchestrator struct {
	provider data.Provider
	registry *strategy.Registry
	log      *logger.Logger
	timeout  time.Duration
	now      func() time.Time
}

// New builds an orchestrator with the default 30s per-call timeout.
func New(provider data.Provider, registry *strategy.Registry, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		registry: registry,
		log:      log,
		timeout:  30 * time.Second,
		now:      time.Now,
	}
}

// WithTimeout overrides the per-call fetch timeout.
func (o *Orchestrator) WithTimeout(d time.Duration) *Orchestrator {
	o.timeout = d
	return o
}

// recipeProvider is implemented by strategies that declare their indicator
// needs; others get the default recipe.
type recipeProvider interface {
	Recipe() indicators.Recipe
}

// Analyze runs the full pipeline for one resolved config: fetch, validate,
// compute indicators, build the detector, run the strategy, attach
// metadata. Parameter validation failures are fatal; data shortfalls come
// back inside the verdict; a panicking strategy degrades to a neutral
// verdict with reason internal_error.
func (o *Orchestrator) Analyze(ctx context.Context, cfg groups.ResolvedConfig) (*Analysis, error) {
	start := o.now()
	strat, err := o.registry.Get(cfg.StrategyName)
	if err != nil {
		return nil, err
	}
	params, err := strat.Validate(cfg.StrategyParams)
	if err != nil {
		return nil, err
	}

	req := data.Request{
		Symbol:     cfg.Symbol,
		AssetClass: cfg.AssetClass,
		Interval:   cfg.Interval,
		Period:     cfg.Period,
	}

	fetchCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	f, err := o.provider.Fetch(fetchCtx, req)
	if err != nil {
		monitoring.RecordAnalysisFailure(string(enginerr.KindOf(err)))
		return nil, err
	}

	recipe := defaultRecipe()
	if rp, ok := strat.(recipeProvider); ok {
		recipe = rp.Recipe()
	}
	recipe = applyIndicatorOverrides(recipe, cfg.Indicators)

	result, err := indicators.Compute(f, recipe)
	if err != nil {
		monitoring.RecordAnalysisFailure(string(enginerr.KindOf(err)))
		return nil, err
	}

	detector := indicators.NewDetector(cfg.Crossover, result.Series("adx.adx"), f.Timestamps())

	verdict, err := o.runStrategy(strat, f, params, result, detector)
	if err != nil {
		monitoring.RecordAnalysisFailure(string(enginerr.KindOf(err)))
		return nil, err
	}

	elapsed := o.now().Sub(start)
	monitoring.RecordAnalysis(cfg.SymbolKey, verdict.Sentiment == strategy.SentimentNeutral, elapsed)
	o.log.Debug("analysis complete",
		"symbol", cfg.SymbolKey,
		"strategy", strat.Name(),
		"sentiment", string(verdict.Sentiment),
		"confidence", verdict.Confidence,
		"elapsed", elapsed.String(),
	)

	return &Analysis{
		Verdict:      verdict,
		GroupID:      cfg.GroupID,
		SymbolKey:    cfg.SymbolKey,
		StrategyName: strat.Name(),
		Params:       params,
		RanAt:        start.UTC(),
		Completeness: f.Completeness(),
		Bars:         f.Len(),
		Request:      req,
	}, nil
}

// runStrategy isolates strategy panics; an unexpected panic becomes a
// neutral verdict rather than tearing down a scheduler worker.
func (o *Orchestrator) runStrategy(strat strategy.Strategy, f *frame.Frame, params map[string]any,
	result *indicators.Result, detector *indicators.Detector) (verdict strategy.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("strategy panicked", "strategy", strat.Name(), "panic", fmt.Sprint(r))
			verdict = strategy.NeutralVerdict(strat.Name(), "internal_error")
			err = nil
		}
	}()
	return strat.Analyze(f, params, result, detector)
}

// defaultRecipe is used for strategies that do not declare indicator needs.
func defaultRecipe() indicators.Recipe {
	return indicators.Recipe{
		{Family: indicators.FamilyRSI},
		{Family: indicators.FamilyMACD},
		{Family: indicators.FamilyADX},
		{Family: indicators.FamilyATR},
	}
}

// applyIndicatorOverrides maps resolved per-family parameter overrides onto
// the recipe. Override keys are family names; values are parameter maps.
func applyIndicatorOverrides(recipe indicators.Recipe, overrides map[string]any) indicators.Recipe {
	if len(overrides) == 0 {
		return recipe
	}
	out := make(indicators.Recipe, len(recipe))
	copy(out, recipe)
	for i, spec := range out {
		raw, ok := overrides[string(spec.Family)]
		if !ok {
			continue
		}
		params, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		merged := make(map[string]any, len(spec.Params)+len(params))
		for k, v := range spec.Params {
			merged[k] = v
		}
		for k, v := range params {
			merged[k] = v
		}
		out[i].Params = merged
	}
	return out
}
