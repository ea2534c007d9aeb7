package strategy

import (
	"time"

	"github.com/ducminhle1904/market-sentinel-bot/internal/frame"
	"github.com/ducminhle1904/market-sentinel-bot/internal/indicators"
)

// Sentiment is the directional read of a verdict.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// Strength grades the conviction behind a sentiment.
type Strength string

const (
	StrengthStrongBuy  Strength = "strong_buy"
	StrengthBuy        Strength = "buy"
	StrengthNeutral    Strength = "neutral"
	StrengthSell       Strength = "sell"
	StrengthStrongSell Strength = "strong_sell"
)

// RiskLevels are ATR-derived stop and target prices around the latest close.
type RiskLevels struct {
	StopLong    float64 `json:"stop_long"`
	TargetLong  float64 `json:"target_long"`
	StopShort   float64 `json:"stop_short"`
	TargetShort float64 `json:"target_short"`
}

// ATRBands are the volatility envelope around the latest close, used by the
// scheduler's band-shift diff rule.
type ATRBands struct {
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
	ATR   float64 `json:"atr"`
}

// Verdict is the structured output of one strategy invocation. It is a
// plain value: serializing and reloading it must round-trip exactly so the
// scheduler can diff across restarts.
type Verdict struct {
	StrategyName      string                      `json:"strategy_name"`
	Sentiment         Sentiment                   `json:"sentiment"`
	Strength          Strength                    `json:"strength"`
	Confidence        float64                     `json:"confidence"`
	ConfirmationsBuy  int                         `json:"confirmations_buy"`
	ConfirmationsSell int                         `json:"confirmations_sell"`
	Risk              RiskLevels                  `json:"risk_levels"`
	Bands             ATRBands                    `json:"atr_bands"`
	Snapshot          map[string]float64          `json:"indicator_snapshot"`
	Statuses          map[string]string           `json:"oscillator_statuses,omitempty"`
	Reasons           []string                    `json:"reasons,omitempty"`
	Crossovers        []indicators.CrossoverEvent `json:"crossovers,omitempty"`
	LatestClose       float64                     `json:"latest_close"`
	Timestamp         time.Time                   `json:"timestamp"`
}

// NeutralVerdict builds an inert verdict carrying only reasons, used for
// routine shortfalls like missing history.
func NeutralVerdict(name string, reasons ...string) Verdict {
	return Verdict{
		StrategyName: name,
		Sentiment:    SentimentNeutral,
		Strength:     StrengthNeutral,
		Snapshot:     map[string]float64{},
		Reasons:      reasons,
	}
}

// Strategy is one pluggable analysis algorithm.
type Strategy interface {
	// Name is the stable registry identifier.
	Name() string
	// ParameterTemplate declares the tunable parameters.
	ParameterTemplate() Template
	// Validate normalizes params against the template, collecting every
	// offending field into one error.
	Validate(params map[string]any) (map[string]any, error)
	// Analyze produces a Verdict from the frame and precomputed indicators.
	// Routine data shortfalls yield a neutral verdict, never an error.
	Analyze(f *frame.Frame, params map[string]any, result *indicators.Result, detector *indicators.Detector) (Verdict, error)
}
