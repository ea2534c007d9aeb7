package indicators

import (
	"math"
	"time"
)

// CrossoverKind classifies the direction of a detected event.
type CrossoverKind string

const (
	CrossBullish CrossoverKind = "bullish"
	CrossBearish CrossoverKind = "bearish"
)

// CrossoverEvent is one line/level cross or state flip at a specific bar.
// GatingStrength is the ADX value that passed the volatility gate, 0 when
// the gate is off or ADX is unavailable at the bar.
type CrossoverEvent struct {
	Source         string        `json:"source"`
	Kind           CrossoverKind `json:"kind"`
	BarIndex       int           `json:"bar_index"`
	Timestamp      time.Time     `json:"timestamp,omitempty"`
	Value          float64       `json:"value"`
	GatingStrength float64       `json:"gating_strength"`
}

// CrossoverSettings tune the detector. ADXThreshold gates events through
// the volatility filter; Lookback bounds the scan window.
type CrossoverSettings struct {
	Enabled                 bool    `json:"enabled"`
	VolatilityFilterEnabled bool    `json:"volatility_filter_enabled"`
	ADXThreshold            float64 `json:"adx_threshold"`
	Lookback                int     `json:"lookback"`
}

// DefaultCrossoverSettings mirror the built-in detector configuration.
func DefaultCrossoverSettings() CrossoverSettings {
	return CrossoverSettings{
		Enabled:                 true,
		VolatilityFilterEnabled: true,
		ADXThreshold:            18,
		Lookback:                5,
	}
}

// Detector scans aligned series for crossovers within a bounded lookback
// window. It is stateless across calls; the caller supplies the current
// series every time.
type Detector struct {
	settings   CrossoverSettings
	adx        []float64
	timestamps []time.Time
}

// NewDetector builds a detector. adx may be nil when the volatility filter
// is disabled; timestamps may be nil and events then carry a zero time.
func NewDetector(settings CrossoverSettings, adx []float64, timestamps []time.Time) *Detector {
	if settings.Lookback <= 0 {
		settings.Lookback = 5
	}
	return &Detector{settings: settings, adx: adx, timestamps: timestamps}
}

func (d *Detector) windowStart(n int) int {
	start := n - d.settings.Lookback
	if start < 1 {
		start = 1
	}
	return start
}

// suppressed applies the ADX volatility gate. Events at bars whose ADX is
// below the threshold or still NaN from warmup are dropped; equal values
// pass.
func (d *Detector) suppressed(i int) bool {
	if !d.settings.VolatilityFilterEnabled || d.adx == nil {
		return false
	}
	if i >= len(d.adx) || math.IsNaN(d.adx[i]) {
		return true
	}
	return d.adx[i] < d.settings.ADXThreshold
}

// gate reads the ADX value backing an emitted event.
func (d *Detector) gate(i int) float64 {
	if d.adx == nil || i >= len(d.adx) || math.IsNaN(d.adx[i]) {
		return 0
	}
	return d.adx[i]
}

func (d *Detector) stamp(i int) time.Time {
	if d.timestamps != nil && i < len(d.timestamps) {
		return d.timestamps[i]
	}
	return time.Time{}
}

// DetectLine scans for crossings of series a over series b.
func (d *Detector) DetectLine(source string, a, b []float64) []CrossoverEvent {
	if !d.settings.Enabled {
		return nil
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var events []CrossoverEvent
	for i := d.windowStart(n); i < n; i++ {
		if math.IsNaN(a[i-1]) || math.IsNaN(b[i-1]) || math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		var kind CrossoverKind
		switch {
		case a[i-1] <= b[i-1] && a[i] > b[i]:
			kind = CrossBullish
		case a[i-1] >= b[i-1] && a[i] < b[i]:
			kind = CrossBearish
		default:
			continue
		}
		if d.suppressed(i) {
			continue
		}
		events = append(events, CrossoverEvent{
			Source: source, Kind: kind, BarIndex: i, Timestamp: d.stamp(i),
			Value: a[i], GatingStrength: d.gate(i),
		})
	}
	return events
}

// DetectLevel scans for crossings of series a over a constant level.
func (d *Detector) DetectLevel(source string, a []float64, level float64) []CrossoverEvent {
	if !d.settings.Enabled {
		return nil
	}
	var events []CrossoverEvent
	for i := d.windowStart(len(a)); i < len(a); i++ {
		if math.IsNaN(a[i-1]) || math.IsNaN(a[i]) {
			continue
		}
		var kind CrossoverKind
		switch {
		case a[i-1] <= level && a[i] > level:
			kind = CrossBullish
		case a[i-1] >= level && a[i] < level:
			kind = CrossBearish
		default:
			continue
		}
		if d.suppressed(i) {
			continue
		}
		events = append(events, CrossoverEvent{
			Source: source, Kind: kind, BarIndex: i, Timestamp: d.stamp(i),
			Value: a[i], GatingStrength: d.gate(i),
		})
	}
	return events
}

// DetectFlip scans a binary direction series for state changes; a flip to
// +1 is bullish and a flip to -1 is bearish.
func (d *Detector) DetectFlip(source string, direction []int, value []float64) []CrossoverEvent {
	if !d.settings.Enabled {
		return nil
	}
	var events []CrossoverEvent
	for i := d.windowStart(len(direction)); i < len(direction); i++ {
		if direction[i] == direction[i-1] {
			continue
		}
		if d.suppressed(i) {
			continue
		}
		kind := CrossBearish
		if direction[i] > 0 {
			kind = CrossBullish
		}
		v := math.NaN()
		if value != nil && i < len(value) {
			v = value[i]
		}
		events = append(events, CrossoverEvent{
			Source: source, Kind: kind, BarIndex: i, Timestamp: d.stamp(i),
			Value: v, GatingStrength: d.gate(i),
		})
	}
	return events
}

// Latest returns the most recent event from a detection pass, or nil.
func Latest(events []CrossoverEvent) *CrossoverEvent {
	if len(events) == 0 {
		return nil
	}
	latest := events[0]
	for _, ev := range events[1:] {
		if ev.BarIndex >= latest.BarIndex {
			latest = ev
		}
	}
	return &latest
}
