package indicators

import (
	"fmt"

	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
	"github.com/ducminhle1904/market-sentinel-bot/internal/frame"
)

// Family identifies an indicator computation.
type Family string

const (
	FamilyRSI        Family = "rsi"
	FamilyStochastic Family = "stochastic"
	FamilyWilliamsR  Family = "williams_r"
	FamilyCCI        Family = "cci"
	FamilyMACD       Family = "macd"
	FamilyADX        Family = "adx"
	FamilyBollinger  Family = "bollinger"
	FamilyATR        Family = "atr"
	FamilySMA        Family = "sma"
	FamilyEMA        Family = "ema"
	FamilySupertrend Family = "supertrend"
	FamilyBullBear   Family = "bull_bear_power"
)

// Spec names one indicator instance inside a recipe. Params not supplied
// fall back to the family defaults. Label disambiguates multiple instances
// of the same family; when empty the family name is used.
type Spec struct {
	Family Family         `json:"family"`
	Label  string         `json:"label,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// Recipe is an ordered list of indicator specs.
type Recipe []Spec

// Result holds every series the recipe produced, keyed by "<label>.<output>"
// (e.g. "rsi.rsi", "macd.hist", "st_a.direction").
type Result struct {
	series     map[string][]float64
	directions map[string][]int
}

func newResult() *Result {
	return &Result{
		series:     make(map[string][]float64),
		directions: make(map[string][]int),
	}
}

// Series returns a computed series by key, or nil when absent.
func (r *Result) Series(key string) []float64 { return r.series[key] }

// Direction returns a computed direction series by key, or nil when absent.
func (r *Result) Direction(key string) []int { return r.directions[key] }

// Has reports whether a series or direction exists under key.
func (r *Result) Has(key string) bool {
	_, ok := r.series[key]
	if !ok {
		_, ok = r.directions[key]
	}
	return ok
}

// Keys lists every series key in the result.
func (r *Result) Keys() []string {
	out := make([]string, 0, len(r.series)+len(r.directions))
	for k := range r.series {
		out = append(out, k)
	}
	for k := range r.directions {
		out = append(out, k)
	}
	return out
}

func (r *Result) put(label, output string, s []float64) {
	r.series[label+"."+output] = s
}

func (r *Result) putDirection(label, output string, d []int) {
	r.directions[label+"."+output] = d
}

// Compute runs the recipe against the frame. It is pure: no I/O, no clock,
// no shared mutable state. Insufficient history yields leading NaN entries
// rather than an error.
func Compute(f *frame.Frame, recipe Recipe) (*Result, error) {
	high, low, close := f.Highs(), f.Lows(), f.Closes()
	res := newResult()
	for _, spec := range recipe {
		label := spec.Label
		if label == "" {
			label = string(spec.Family)
		}
		switch spec.Family {
		case FamilyRSI:
			period := intParam(spec.Params, "period", DefaultRSIPeriod)
			res.put(label, "rsi", RSI(close, period))

		case FamilyStochastic:
			kp := intParam(spec.Params, "k_period", DefaultStochKPeriod)
			dp := intParam(spec.Params, "d_period", DefaultStochDPeriod)
			sk := intParam(spec.Params, "smooth_k", DefaultStochSmoothK)
			k, d := Stochastic(high, low, close, kp, sk, dp)
			res.put(label, "k", k)
			res.put(label, "d", d)

		case FamilyWilliamsR:
			period := intParam(spec.Params, "period", DefaultWilliamsRPeriod)
			res.put(label, "r", WilliamsR(high, low, close, period))

		case FamilyCCI:
			period := intParam(spec.Params, "period", DefaultCCIPeriod)
			res.put(label, "cci", CCI(high, low, close, period))

		case FamilyMACD:
			fast := intParam(spec.Params, "fast", DefaultMACDFast)
			slow := intParam(spec.Params, "slow", DefaultMACDSlow)
			sig := intParam(spec.Params, "signal", DefaultMACDSignal)
			macd, signal, hist := MACD(close, fast, slow, sig)
			res.put(label, "macd", macd)
			res.put(label, "signal", signal)
			res.put(label, "hist", hist)

		case FamilyADX:
			period := intParam(spec.Params, "period", DefaultADXPeriod)
			adx, plusDI, minusDI := ADX(high, low, close, period)
			res.put(label, "adx", adx)
			res.put(label, "plus_di", plusDI)
			res.put(label, "minus_di", minusDI)

		case FamilyBollinger:
			period := intParam(spec.Params, "period", DefaultBollingerPeriod)
			sd := floatParam(spec.Params, "stddev", DefaultBollingerStdDev)
			upper, middle, lower, width := Bollinger(close, period, sd)
			res.put(label, "upper", upper)
			res.put(label, "middle", middle)
			res.put(label, "lower", lower)
			res.put(label, "width", width)

		case FamilyATR:
			period := intParam(spec.Params, "period", DefaultATRPeriod)
			res.put(label, "atr", ATR(high, low, close, period))

		case FamilySMA:
			for _, p := range periodsParam(spec.Params, "periods", []int{20, 50, 200}) {
				res.put(label, fmt.Sprintf("sma_%d", p), SMA(close, p))
			}

		case FamilyEMA:
			for _, p := range periodsParam(spec.Params, "periods", []int{9, 21, 50}) {
				res.put(label, fmt.Sprintf("ema_%d", p), EMA(close, p))
			}

		case FamilySupertrend:
			period := intParam(spec.Params, "period", 10)
			mult := floatParam(spec.Params, "multiplier", 3.0)
			st := Supertrend(high, low, close, period, mult)
			res.put(label, "value", st.Value)
			res.putDirection(label, "direction", st.Direction)

		case FamilyBullBear:
			bull, bear := BullBearPower(high, low, close)
			res.put(label, "bull", bull)
			res.put(label, "bear", bear)

		default:
			return nil, enginerr.New(enginerr.KindUnknownIndicator, "indicators", "compute",
				fmt.Sprintf("unknown indicator family %q", spec.Family))
		}
	}
	return res, nil
}

// Parameter maps arrive from JSON, so numbers may be float64 even for
// integer parameters.

func intParam(params map[string]any, key string, def int) int {
	if params == nil {
		return def
	}
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func floatParam(params map[string]any, key string, def float64) float64 {
	if params == nil {
		return def
	}
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

func periodsParam(params map[string]any, key string, def []int) []int {
	if params == nil {
		return def
	}
	raw, ok := params[key].([]any)
	if !ok {
		if ints, ok := params[key].([]int); ok {
			return ints
		}
		return def
	}
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case int:
			out = append(out, n)
		case float64:
			out = append(out, int(n))
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
