package notifications

import (
	"time"

	"github.com/ducminhle1904/market-sentinel-bot/internal/groups"
	"github.com/ducminhle1904/market-sentinel-bot/internal/indicators"
	"github.com/ducminhle1904/market-sentinel-bot/internal/strategy"
)

// Severity grades an alert event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

// Event is one alert emitted by the scheduler: a shared envelope plus the
// payload of the diff rule that fired. Exactly one payload pointer is set,
// matching Condition.
type Event struct {
	Timestamp time.Time             `json:"timestamp"`
	GroupID   string                `json:"group_id"`
	SymbolKey string                `json:"symbol_key"`
	MonitorID string                `json:"monitor_id"`
	Condition groups.AlertCondition `json:"condition"`
	Severity  Severity              `json:"severity"`

	SentimentFlip   *SentimentFlipPayload   `json:"sentiment_flip,omitempty"`
	ConfidenceDrift *ConfidenceDriftPayload `json:"confidence_drift,omitempty"`
	ATRBandShift    *ATRBandShiftPayload    `json:"atr_band_shift,omitempty"`
	ValidityLoss    *ValidityLossPayload    `json:"validity_loss,omitempty"`
	NewCrossover    *NewCrossoverPayload    `json:"new_crossover,omitempty"`
}

// SentimentFlipPayload captures a directional change between two verdicts.
type SentimentFlipPayload struct {
	OldSentiment strategy.Sentiment `json:"old_sentiment"`
	NewSentiment strategy.Sentiment `json:"new_sentiment"`
	Deltas       map[string]float64 `json:"indicator_deltas,omitempty"`
}

// ConfidenceDriftPayload captures a material confidence move.
type ConfidenceDriftPayload struct {
	OldConfidence float64 `json:"old_confidence"`
	NewConfidence float64 `json:"new_confidence"`
	Delta         float64 `json:"delta"`
}

// ATRBandShiftPayload captures a volatility-band move with a suggested
// trailing stop.
type ATRBandShiftPayload struct {
	OldBands      strategy.ATRBands `json:"old_bands"`
	NewBands      strategy.ATRBands `json:"new_bands"`
	TrailingStop  float64           `json:"suggested_trailing_stop"`
}

// ValidityLossPayload fires when an entry thesis no longer holds.
type ValidityLossPayload struct {
	EntrySnapshot strategy.Verdict `json:"entry_snapshot"`
	Current       strategy.Verdict `json:"current_verdict"`
}

// NewCrossoverPayload carries a crossover the previous verdict lacked.
type NewCrossoverPayload struct {
	Crossover indicators.CrossoverEvent `json:"crossover"`
}

// Notifier is the delivery sink for alert events. Implementations must be
// safe for concurrent use; the scheduler calls Notify from worker
// goroutines.
type Notifier interface {
	Notify(event Event) error
}
