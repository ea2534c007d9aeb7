package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRollingMean_Warmup tests that positions before a full window are NaN
func TestRollingMean_Warmup(t *testing.T) {
	out := rollingMean([]float64{1, 2, 3, 4}, 3)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-12)
	assert.InDelta(t, 3.0, out[3], 1e-12)
}

// TestRollingMean_NaNPropagation tests that a NaN inside the window poisons it
func TestRollingMean_NaNPropagation(t *testing.T) {
	out := rollingMean([]float64{1, math.NaN(), 3, 4, 5}, 3)
	assert.True(t, math.IsNaN(out[2]))
	assert.True(t, math.IsNaN(out[3]))
	assert.InDelta(t, 4.0, out[4], 1e-12)
}

// TestRollingMeanMin1 tests partial-window averaging with no warmup NaNs
func TestRollingMeanMin1(t *testing.T) {
	out := rollingMeanMin1([]float64{2, 4, 6}, 3)
	assert.InDelta(t, 2.0, out[0], 1e-12)
	assert.InDelta(t, 3.0, out[1], 1e-12)
	assert.InDelta(t, 4.0, out[2], 1e-12)
}

// TestRollingStd_Sample tests the sample (ddof=1) standard deviation
func TestRollingStd_Sample(t *testing.T) {
	out := rollingStd([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)
	// Known sample stddev of this series.
	assert.InDelta(t, 2.138, out[7], 1e-3)
}

// TestRollingMaxMin tests window extrema
func TestRollingMaxMin(t *testing.T) {
	x := []float64{3, 1, 4, 1, 5}
	maxOut := rollingMax(x, 3)
	minOut := rollingMin(x, 3)
	assert.Equal(t, 4.0, maxOut[2])
	assert.Equal(t, 4.0, maxOut[3])
	assert.Equal(t, 5.0, maxOut[4])
	assert.Equal(t, 1.0, minOut[2])
	assert.Equal(t, 1.0, minOut[4])
}

// TestEwm_SeedAndRecursion tests the adjust=False recursion seeded with x[0]
func TestEwm_SeedAndRecursion(t *testing.T) {
	out := ewm([]float64{10, 20}, 9)
	alpha := 2.0 / 10.0
	assert.Equal(t, 10.0, out[0])
	assert.InDelta(t, alpha*20+(1-alpha)*10, out[1], 1e-12)
}

// TestTrueRange_FirstBar tests that the first bar uses high-low
func TestTrueRange_FirstBar(t *testing.T) {
	tr := trueRange([]float64{105, 110}, []float64{95, 100}, []float64{100, 108})
	assert.Equal(t, 10.0, tr[0])
	// Gap up: high-prevClose dominates.
	assert.Equal(t, 10.0, tr[1])
}

// TestTrueRange_GapDown tests that a gap down uses low-prevClose
func TestTrueRange_GapDown(t *testing.T) {
	tr := trueRange([]float64{105, 90}, []float64{95, 85}, []float64{100, 88})
	assert.Equal(t, 15.0, tr[1])
}

// TestDiff tests first differences with NaN at index 0
func TestDiff(t *testing.T) {
	out := diff([]float64{1, 4, 2})
	assert.True(t, math.IsNaN(out[0]))
	assert.Equal(t, 3.0, out[1])
	assert.Equal(t, -2.0, out[2])
}
