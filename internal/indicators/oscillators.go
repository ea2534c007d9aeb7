package indicators

import "math"

// Default periods for the oscillator families. Overridable per group/symbol
// through the recipe.
const (
	DefaultRSIPeriod        = 14
	DefaultStochKPeriod     = 14
	DefaultStochDPeriod     = 3
	DefaultStochSmoothK     = 3
	DefaultWilliamsRPeriod  = 14
	DefaultCCIPeriod        = 20
	DefaultMACDFast         = 12
	DefaultMACDSlow         = 26
	DefaultMACDSignal       = 9
	DefaultBullBearEMAspan  = 13
	DefaultRSIOverbought    = 70.0
	DefaultRSIOversold      = 30.0
)

// RSI computes the Relative Strength Index over closes. Gains and losses
// are smoothed with a simple moving average; leading entries are NaN until
// one full period of price changes exists.
func RSI(close []float64, period int) []float64 {
	n := len(close)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		d := close[i] - close[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}
	avgGain := rollingMean(gains, period)
	avgLoss := rollingMean(losses, period)
	out := nanSeries(n)
	for i := period; i < n; i++ {
		g, l := avgGain[i], avgLoss[i]
		if math.IsNaN(g) || math.IsNaN(l) {
			continue
		}
		if l == 0 {
			if g == 0 {
				continue // flat market, no momentum to measure
			}
			out[i] = 100
			continue
		}
		rs := g / l
		out[i] = 100 - (100 / (1 + rs))
	}
	return out
}

// Stochastic computes the smoothed %K and %D oscillator lines.
func Stochastic(high, low, close []float64, kPeriod, smoothK, dPeriod int) (k, d []float64) {
	lowMin := rollingMin(low, kPeriod)
	highMax := rollingMax(high, kPeriod)
	raw := nanSeries(len(close))
	for i := range close {
		if math.IsNaN(lowMin[i]) || math.IsNaN(highMax[i]) {
			continue
		}
		rng := highMax[i] - lowMin[i]
		if rng == 0 {
			continue
		}
		raw[i] = 100 * (close[i] - lowMin[i]) / rng
	}
	k = rollingMean(raw, smoothK)
	d = rollingMean(k, dPeriod)
	return k, d
}

// WilliamsR computes Williams %R in [-100, 0].
func WilliamsR(high, low, close []float64, period int) []float64 {
	highMax := rollingMax(high, period)
	lowMin := rollingMin(low, period)
	out := nanSeries(len(close))
	for i := range close {
		if math.IsNaN(highMax[i]) || math.IsNaN(lowMin[i]) {
			continue
		}
		rng := highMax[i] - lowMin[i]
		if rng == 0 {
			continue
		}
		out[i] = -100 * (highMax[i] - close[i]) / rng
	}
	return out
}

// CCI computes the Commodity Channel Index over the typical price.
func CCI(high, low, close []float64, period int) []float64 {
	n := len(close)
	tp := make([]float64, n)
	for i := range tp {
		tp[i] = (high[i] + low[i] + close[i]) / 3
	}
	sma := rollingMean(tp, period)
	dev := nanSeries(n)
	for i := range tp {
		if !math.IsNaN(sma[i]) {
			dev[i] = math.Abs(tp[i] - sma[i])
		}
	}
	meanDev := rollingMean(dev, period)
	out := nanSeries(n)
	for i := range tp {
		if math.IsNaN(sma[i]) || math.IsNaN(meanDev[i]) || meanDev[i] == 0 {
			continue
		}
		out[i] = (tp[i] - sma[i]) / (0.015 * meanDev[i])
	}
	return out
}

// MACD computes the MACD line, its signal line and the histogram.
func MACD(close []float64, fast, slow, signal int) (macd, signalLine, hist []float64) {
	fastEMA := ewm(close, fast)
	slowEMA := ewm(close, slow)
	macd = make([]float64, len(close))
	for i := range macd {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine = ewm(macd, signal)
	hist = make([]float64, len(close))
	for i := range hist {
		hist[i] = macd[i] - signalLine[i]
	}
	return macd, signalLine, hist
}

// BullBearPower computes Elder's Bull and Bear Power against an EMA-13 of
// closes.
func BullBearPower(high, low, close []float64) (bull, bear []float64) {
	ema := ewm(close, DefaultBullBearEMAspan)
	bull = make([]float64, len(close))
	bear = make([]float64, len(close))
	for i := range close {
		bull[i] = high[i] - ema[i]
		bear[i] = low[i] - ema[i]
	}
	return bull, bear
}
