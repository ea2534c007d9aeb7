package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatADX(level float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = level
	}
	return out
}

// TestDetectLine_Bullish tests an upward line cross
func TestDetectLine_Bullish(t *testing.T) {
	d := NewDetector(CrossoverSettings{Enabled: true, Lookback: 5}, nil, nil)
	a := []float64{1, 1, 1, 2, 3}
	b := []float64{2, 2, 2, 1.5, 1.5}

	events := d.DetectLine("macd_signal", a, b)
	require.Len(t, events, 1)
	assert.Equal(t, CrossBullish, events[0].Kind)
	assert.Equal(t, 3, events[0].BarIndex)
	assert.Equal(t, 2.0, events[0].Value)
	assert.Equal(t, "macd_signal", events[0].Source)
}

// TestDetectLine_Bearish tests a downward line cross
func TestDetectLine_Bearish(t *testing.T) {
	d := NewDetector(CrossoverSettings{Enabled: true, Lookback: 5}, nil, nil)
	events := d.DetectLine("dmi", []float64{3, 3, 1}, []float64{2, 2, 2})
	require.Len(t, events, 1)
	assert.Equal(t, CrossBearish, events[0].Kind)
}

// TestDetectLine_ADXGateSuppresses tests that a cross in a low-ADX regime is dropped
func TestDetectLine_ADXGateSuppresses(t *testing.T) {
	settings := DefaultCrossoverSettings() // threshold 18, filter on
	d := NewDetector(settings, flatADX(12, 5), nil)

	events := d.DetectLine("stoch_kd", []float64{1, 1, 1, 2, 3}, []float64{2, 2, 2, 1.5, 1.5})
	assert.Empty(t, events)
}

// TestDetectLine_ADXEqualToThresholdPasses tests the strict < comparison:
// ADX exactly at the threshold is not suppressed
func TestDetectLine_ADXEqualToThresholdPasses(t *testing.T) {
	settings := DefaultCrossoverSettings()
	d := NewDetector(settings, flatADX(settings.ADXThreshold, 5), nil)

	events := d.DetectLine("stoch_kd", []float64{1, 1, 1, 2, 3}, []float64{2, 2, 2, 1.5, 1.5})
	assert.Len(t, events, 1)
}

// TestDetectLine_ADXWarmupNaNSuppresses tests that with the filter on, a
// cross at a bar whose ADX is still NaN never passes the gate
func TestDetectLine_ADXWarmupNaNSuppresses(t *testing.T) {
	settings := DefaultCrossoverSettings()
	nan := math.NaN()
	d := NewDetector(settings, []float64{nan, nan, nan, nan, nan}, nil)

	events := d.DetectLine("stoch_kd", []float64{1, 1, 1, 2, 3}, []float64{2, 2, 2, 1.5, 1.5})
	assert.Empty(t, events)

	// Same for level crossings and flips.
	assert.Empty(t, d.DetectLevel("rsi_oversold", []float64{25, 28, 32}, 30))
	assert.Empty(t, d.DetectFlip("supertrend_a", []int{1, 1, -1}, []float64{1, 2, 3}))

	// ADX shorter than the series behaves like warmup, not a free pass.
	short := NewDetector(settings, []float64{25, 25}, nil)
	assert.Empty(t, short.DetectLine("stoch_kd", []float64{1, 1, 1, 2, 3}, []float64{2, 2, 2, 1.5, 1.5}))
}

// TestDetectLine_FilterDisabled tests that disabling the filter ignores ADX
func TestDetectLine_FilterDisabled(t *testing.T) {
	settings := DefaultCrossoverSettings()
	settings.VolatilityFilterEnabled = false
	d := NewDetector(settings, flatADX(5, 5), nil)

	events := d.DetectLine("stoch_kd", []float64{1, 1, 1, 2, 3}, []float64{2, 2, 2, 1.5, 1.5})
	assert.Len(t, events, 1)
}

// TestDetectLine_NaNBarsSkipped tests that warmup NaNs never produce events
func TestDetectLine_NaNBarsSkipped(t *testing.T) {
	d := NewDetector(CrossoverSettings{Enabled: true, Lookback: 5}, nil, nil)
	nan := math.NaN()
	events := d.DetectLine("x", []float64{nan, nan, 3}, []float64{2, 2, 2})
	assert.Empty(t, events)
}

// TestDetectLine_LookbackWindow tests that old crosses fall outside the window
func TestDetectLine_LookbackWindow(t *testing.T) {
	d := NewDetector(CrossoverSettings{Enabled: true, Lookback: 3}, nil, nil)
	// Cross happens at index 2, window covers indexes 5..7 only.
	a := []float64{1, 1, 3, 3, 3, 3, 3, 3}
	b := []float64{2, 2, 2, 2, 2, 2, 2, 2}
	assert.Empty(t, d.DetectLine("x", a, b))
}

// TestDetectLevel tests threshold crossings in both directions
func TestDetectLevel(t *testing.T) {
	d := NewDetector(CrossoverSettings{Enabled: true, Lookback: 5}, nil, nil)

	up := d.DetectLevel("rsi_oversold", []float64{25, 28, 32}, 30)
	require.Len(t, up, 1)
	assert.Equal(t, CrossBullish, up[0].Kind)

	down := d.DetectLevel("rsi_overbought", []float64{75, 72, 68}, 70)
	require.Len(t, down, 1)
	assert.Equal(t, CrossBearish, down[0].Kind)
}

// TestDetectFlip tests direction-state flips
func TestDetectFlip(t *testing.T) {
	d := NewDetector(CrossoverSettings{Enabled: true, Lookback: 5}, nil, nil)
	dir := []int{1, 1, -1, -1, 1}
	val := []float64{10, 11, 12, 13, 14}

	events := d.DetectFlip("supertrend_a", dir, val)
	require.Len(t, events, 2)
	assert.Equal(t, CrossBearish, events[0].Kind)
	assert.Equal(t, 2, events[0].BarIndex)
	assert.Equal(t, CrossBullish, events[1].Kind)
	assert.Equal(t, 4, events[1].BarIndex)
	assert.Equal(t, 14.0, events[1].Value)
}

// TestDetector_GatingStrength tests that events carry the ADX value that
// passed the gate, and 0 when no ADX backs the bar
func TestDetector_GatingStrength(t *testing.T) {
	settings := DefaultCrossoverSettings()
	d := NewDetector(settings, []float64{20, 21, 22, 23, 24}, nil)

	events := d.DetectLine("stoch_kd", []float64{1, 1, 1, 2, 3}, []float64{2, 2, 2, 1.5, 1.5})
	require.Len(t, events, 1)
	assert.Equal(t, 23.0, events[0].GatingStrength)

	flips := d.DetectFlip("supertrend_a", []int{1, 1, -1, -1, -1}, []float64{1, 2, 3, 4, 5})
	require.Len(t, flips, 1)
	assert.Equal(t, 22.0, flips[0].GatingStrength)

	// No ADX series means no gating strength to report.
	bare := NewDetector(CrossoverSettings{Enabled: true, Lookback: 5}, nil, nil)
	levels := bare.DetectLevel("rsi_oversold", []float64{25, 35}, 30)
	require.Len(t, levels, 1)
	assert.Zero(t, levels[0].GatingStrength)
}

// TestDetector_Disabled tests that a disabled detector emits nothing
func TestDetector_Disabled(t *testing.T) {
	d := NewDetector(CrossoverSettings{Enabled: false, Lookback: 5}, nil, nil)
	assert.Empty(t, d.DetectLine("x", []float64{1, 3}, []float64{2, 2}))
	assert.Empty(t, d.DetectLevel("x", []float64{25, 35}, 30))
	assert.Empty(t, d.DetectFlip("x", []int{1, -1}, nil))
}

// TestDetector_Timestamps tests that events carry the bar timestamp when provided
func TestDetector_Timestamps(t *testing.T) {
	stamps := []time.Time{
		time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 1, 1, 0, 0, 0, time.UTC),
	}
	d := NewDetector(CrossoverSettings{Enabled: true, Lookback: 5}, nil, stamps)
	events := d.DetectLevel("rsi_oversold", []float64{25, 35}, 30)
	require.Len(t, events, 1)
	assert.Equal(t, stamps[1], events[0].Timestamp)
}

// TestLatest tests most-recent event selection
func TestLatest(t *testing.T) {
	assert.Nil(t, Latest(nil))
	events := []CrossoverEvent{
		{Source: "a", BarIndex: 3},
		{Source: "b", BarIndex: 7},
		{Source: "c", BarIndex: 5},
	}
	latest := Latest(events)
	require.NotNil(t, latest)
	assert.Equal(t, "b", latest.Source)
}
