package indicators

import "math"

const (
	DefaultBollingerPeriod = 20
	DefaultBollingerStdDev = 2.0
)

// Bollinger computes Bollinger Bands around an SMA of closes. Width is the
// band spread relative to the middle band.
func Bollinger(close []float64, period int, stddev float64) (upper, middle, lower, width []float64) {
	middle = rollingMean(close, period)
	sd := rollingStd(close, period)
	n := len(close)
	upper = nanSeries(n)
	lower = nanSeries(n)
	width = nanSeries(n)
	for i := 0; i < n; i++ {
		if math.IsNaN(middle[i]) || math.IsNaN(sd[i]) {
			continue
		}
		upper[i] = middle[i] + stddev*sd[i]
		lower[i] = middle[i] - stddev*sd[i]
		if middle[i] != 0 {
			width[i] = (upper[i] - lower[i]) / middle[i]
		}
	}
	return upper, middle, lower, width
}

// SMA is a simple moving average of closes.
func SMA(close []float64, period int) []float64 {
	return rollingMean(close, period)
}

// EMA is an exponential moving average of closes seeded with the first value.
func EMA(close []float64, period int) []float64 {
	return ewm(close, period)
}
