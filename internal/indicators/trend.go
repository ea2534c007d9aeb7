package indicators

import "math"

const (
	DefaultADXPeriod = 14
	DefaultATRPeriod = 14
)

// ADX computes the Average Directional Index with its +DI/-DI components.
// Smoothing uses Wilder's EWM recursion seeded with the first value.
func ADX(high, low, close []float64, period int) (adx, plusDI, minusDI []float64) {
	n := len(close)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}
	tr := trueRange(high, low, close)

	// Wilder smoothing is an EWM with alpha = 1/period, i.e. span = 2*period-1.
	span := 2*period - 1
	atr := ewm(tr, span)
	smPlus := ewm(plusDM, span)
	smMinus := ewm(minusDM, span)

	plusDI = nanSeries(n)
	minusDI = nanSeries(n)
	dx := nanSeries(n)
	for i := 0; i < n; i++ {
		if atr[i] == 0 {
			continue
		}
		plusDI[i] = 100 * smPlus[i] / atr[i]
		minusDI[i] = 100 * smMinus[i] / atr[i]
		sum := plusDI[i] + minusDI[i]
		if sum == 0 {
			continue
		}
		dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / sum
	}
	adx = wilderMean(dx, span)
	return adx, plusDI, minusDI
}

// wilderMean smooths a series that may start with NaNs: the recursion is
// seeded at the first finite value and skips leading NaN entries.
func wilderMean(x []float64, span int) []float64 {
	out := nanSeries(len(x))
	alpha := 2.0 / (float64(span) + 1.0)
	seeded := false
	for i := range x {
		if math.IsNaN(x[i]) {
			continue
		}
		if !seeded {
			out[i] = x[i]
			seeded = true
			continue
		}
		prev := out[i-1]
		if math.IsNaN(prev) {
			prev = x[i]
		}
		out[i] = alpha*x[i] + (1-alpha)*prev
	}
	return out
}

// ATR computes the Average True Range with SMA smoothing over the true range.
func ATR(high, low, close []float64, period int) []float64 {
	return rollingMean(trueRange(high, low, close), period)
}

// DMIDelta returns the bar-over-bar change of +DI minus -DI, used by the
// default strategy to judge directional-movement momentum.
func DMIDelta(plusDI, minusDI []float64) []float64 {
	n := len(plusDI)
	spread := nanSeries(n)
	for i := 0; i < n; i++ {
		if math.IsNaN(plusDI[i]) || math.IsNaN(minusDI[i]) {
			continue
		}
		spread[i] = plusDI[i] - minusDI[i]
	}
	return diff(spread)
}
