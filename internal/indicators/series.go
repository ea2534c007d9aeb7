package indicators

import "math"

// Rolling-window helpers shared by the indicator families. All of them
// return a series of the same length as the input with NaN entries for
// warmup positions, so insufficient history degrades gracefully instead
// of short-circuiting downstream indicators.

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// rollingMean is a simple moving average; a window containing NaN yields NaN.
func rollingMean(x []float64, window int) []float64 {
	out := nanSeries(len(x))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(x); i++ {
		sum := 0.0
		valid := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(x[j]) {
				valid = false
				break
			}
			sum += x[j]
		}
		if valid {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// rollingMeanMin1 averages however many of the last `window` values exist,
// so the series has no warmup NaNs (pandas min_periods=1 semantics).
func rollingMeanMin1(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		sum, n := 0.0, 0
		for j := lo; j <= i; j++ {
			if !math.IsNaN(x[j]) {
				sum += x[j]
				n++
			}
		}
		if n == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// rollingStd is the sample standard deviation over the window (ddof=1).
func rollingStd(x []float64, window int) []float64 {
	out := nanSeries(len(x))
	if window <= 1 {
		return out
	}
	means := rollingMean(x, window)
	for i := window - 1; i < len(x); i++ {
		if math.IsNaN(means[i]) {
			continue
		}
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := x[j] - means[i]
			sum += d * d
		}
		out[i] = math.Sqrt(sum / float64(window-1))
	}
	return out
}

func rollingMax(x []float64, window int) []float64 {
	out := nanSeries(len(x))
	for i := window - 1; i < len(x); i++ {
		m := math.Inf(-1)
		valid := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(x[j]) {
				valid = false
				break
			}
			if x[j] > m {
				m = x[j]
			}
		}
		if valid {
			out[i] = m
		}
	}
	return out
}

func rollingMin(x []float64, window int) []float64 {
	out := nanSeries(len(x))
	for i := window - 1; i < len(x); i++ {
		m := math.Inf(1)
		valid := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(x[j]) {
				valid = false
				break
			}
			if x[j] < m {
				m = x[j]
			}
		}
		if valid {
			out[i] = m
		}
	}
	return out
}

// ewm is the recursive exponential moving average seeded with the first
// value (pandas ewm(span=..., adjust=False)).
func ewm(x []float64, span int) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = alpha*x[i] + (1-alpha)*out[i-1]
	}
	return out
}

// trueRange computes Wilder's True Range. The first bar has no previous
// close, so its range is simply high-low.
func trueRange(high, low, close []float64) []float64 {
	tr := make([]float64, len(close))
	for i := range close {
		if i == 0 {
			tr[i] = high[i] - low[i]
			continue
		}
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}

// diff returns x[i]-x[i-1] with NaN at index 0.
func diff(x []float64) []float64 {
	out := nanSeries(len(x))
	for i := 1; i < len(x); i++ {
		out[i] = x[i] - x[i-1]
	}
	return out
}
