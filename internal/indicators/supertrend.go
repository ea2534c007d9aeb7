package indicators

import "math"

// SupertrendResult carries the band value and binary direction series of a
// single Supertrend configuration.
type SupertrendResult struct {
	Value     []float64
	Direction []int
}

// Supertrend computes the ATR-band trend state indicator. The recursion is
// strictly sequential: each bar's direction depends on the previous bar's
// bands, so the loop must not be reordered.
//
// ATR here is the simple moving average of true range with min_periods=1,
// which keeps the bands finite from the very first bar.
func Supertrend(high, low, close []float64, period int, multiplier float64) SupertrendResult {
	n := len(close)
	res := SupertrendResult{
		Value:     make([]float64, n),
		Direction: make([]int, n),
	}
	if n == 0 {
		return res
	}

	atr := rollingMeanMin1(trueRange(high, low, close), period)
	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := 0; i < n; i++ {
		hl2 := (high[i] + low[i]) / 2
		upper[i] = hl2 + multiplier*atr[i]
		lower[i] = hl2 - multiplier*atr[i]
	}

	res.Direction[0] = 1
	res.Value[0] = 0
	for i := 1; i < n; i++ {
		switch {
		case close[i] > upper[i-1]:
			res.Direction[i] = 1
		case close[i] < lower[i-1]:
			res.Direction[i] = -1
		default:
			res.Direction[i] = res.Direction[i-1]
		}
		if res.Direction[i] == 1 {
			res.Value[i] = lower[i]
		} else {
			res.Value[i] = upper[i]
		}
	}
	return res
}

// LastFinite returns the last non-NaN value of a series, or NaN when the
// whole series is NaN.
func LastFinite(x []float64) float64 {
	for i := len(x) - 1; i >= 0; i-- {
		if !math.IsNaN(x[i]) {
			return x[i]
		}
	}
	return math.NaN()
}

// Last returns the final element of a series, or NaN for an empty one.
func Last(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return x[len(x)-1]
}
