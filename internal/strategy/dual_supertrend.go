package strategy

import (
	"math"

	"github.com/ducminhle1904/market-sentinel-bot/internal/frame"
	"github.com/ducminhle1904/market-sentinel-bot/internal/indicators"
)

// DualSupertrendName is the canonical registry name of the dual-Supertrend
// strategy.
const DualSupertrendName = "dual-supertrend-check-single-timeframe"

// DualSupertrendStrategy confirms entries with two Supertrend
// configurations (a slow anchor trend and a fast trigger trend) plus RSI,
// MACD and ADX gates.
type DualSupertrendStrategy struct{}

func NewDualSupertrendStrategy() *DualSupertrendStrategy { return &DualSupertrendStrategy{} }

func (s *DualSupertrendStrategy) Name() string { return DualSupertrendName }

func (s *DualSupertrendStrategy) ParameterTemplate() Template {
	return Template{
		{Name: "supertrend_a_period", Kind: ParamInt, Default: 15, Min: 10, Max: 30, Role: "Long trend period"},
		{Name: "supertrend_a_multiplier", Kind: ParamFloat, Default: 3.142, Min: 1.0, Max: 5.0, Role: "Long trend ATR mult"},
		{Name: "supertrend_b_period", Kind: ParamInt, Default: 6, Min: 3, Max: 15, Role: "Short trend period"},
		{Name: "supertrend_b_multiplier", Kind: ParamFloat, Default: 0.66, Min: 0.5, Max: 3.0, Role: "Short trend ATR mult"},
		{Name: "confirmation_threshold", Kind: ParamInt, Default: 3, Min: 1, Max: 5, Role: "Min confirmations to enter"},
		{Name: "exit_threshold", Kind: ParamInt, Default: 2, Min: 1, Max: 5, Role: "Min confirmations to exit"},
		{Name: "atr_stop_multiplier", Kind: ParamFloat, Default: 2.0, Min: 1.0, Max: 5.0, Role: "Stop distance in ATR"},
		{Name: "atr_target_multiplier", Kind: ParamFloat, Default: 3.0, Min: 1.0, Max: 10.0, Role: "Target distance in ATR"},
		{Name: "rsi_overbought", Kind: ParamFloat, Default: 70.0, Min: 60, Max: 90, Role: "RSI ceiling"},
		{Name: "rsi_oversold", Kind: ParamFloat, Default: 30.0, Min: 10, Max: 40, Role: "RSI floor"},
		{Name: "trend_strength_threshold", Kind: ParamFloat, Default: 25.0, Min: 15, Max: 35, Role: "ADX gate"},
	}
}

func (s *DualSupertrendStrategy) Validate(params map[string]any) (map[string]any, error) {
	return s.ParameterTemplate().Validate(params)
}

// Recipe returns the parameter-independent indicators this strategy reads
// from the shared result. The two Supertrends depend on tunable periods and
// are computed inside Analyze.
func (s *DualSupertrendStrategy) Recipe() indicators.Recipe {
	return indicators.Recipe{
		{Family: indicators.FamilyRSI},
		{Family: indicators.FamilyMACD},
		{Family: indicators.FamilyADX},
		{Family: indicators.FamilyATR},
	}
}

func (s *DualSupertrendStrategy) Analyze(f *frame.Frame, params map[string]any, res *indicators.Result, det *indicators.Detector) (Verdict, error) {
	params, err := s.Validate(params)
	if err != nil {
		return Verdict{}, err
	}

	aPeriod := intOf(params, "supertrend_a_period")
	bPeriod := intOf(params, "supertrend_b_period")
	minBars := aPeriod
	if bPeriod > minBars {
		minBars = bPeriod
	}
	if !f.IsSufficientFor(minBars + 1) {
		return NeutralVerdict(s.Name(), "insufficient_history"), nil
	}

	rsi := indicators.Last(res.Series("rsi.rsi"))
	macd := indicators.Last(res.Series("macd.macd"))
	adx := indicators.Last(res.Series("adx.adx"))
	atr := indicators.Last(res.Series("atr.atr"))

	if math.IsNaN(atr) {
		return NeutralVerdict(s.Name(), "insufficient_history"), nil
	}
	// A dead-flat market zeroes the ATR before it starves the RSI, so the
	// volatility check must come first.
	if atr == 0 {
		return NeutralVerdict(s.Name(), "insufficient_volatility"), nil
	}
	if math.IsNaN(rsi) {
		return NeutralVerdict(s.Name(), "insufficient_history"), nil
	}

	high, low, close := f.Highs(), f.Lows(), f.Closes()
	stA := indicators.Supertrend(high, low, close, aPeriod, floatOf(params, "supertrend_a_multiplier"))
	stB := indicators.Supertrend(high, low, close, bPeriod, floatOf(params, "supertrend_b_multiplier"))

	n := f.Len()
	dirA := stA.Direction[n-1]
	dirB := stB.Direction[n-1]
	entryLong := dirA == 1 && dirB == 1
	entryShort := dirA == -1 && dirB == -1

	rsiOverbought := floatOf(params, "rsi_overbought")
	rsiOversold := floatOf(params, "rsi_oversold")
	adxGate := floatOf(params, "trend_strength_threshold")

	buys, sells := 0, 0
	var reasons []string
	if entryLong {
		buys++
		reasons = append(reasons, "supertrend_alignment_long")
	}
	if rsi < rsiOverbought {
		buys++
	}
	if macd > 0 {
		buys++
	}
	if !math.IsNaN(adx) && adx > adxGate {
		buys++
		sells++
		reasons = append(reasons, "trend_strength_confirmed")
	}
	if entryShort {
		sells++
		reasons = append(reasons, "supertrend_alignment_short")
	}
	if rsi > rsiOversold {
		sells++
	}
	if macd < 0 {
		sells++
	}

	confirmationThreshold := intOf(params, "confirmation_threshold")
	exitThreshold := intOf(params, "exit_threshold")

	var strength Strength
	switch {
	case buys >= 4:
		strength = StrengthStrongBuy
	case buys >= confirmationThreshold && buys > sells:
		strength = StrengthBuy
	case sells >= 4:
		strength = StrengthStrongSell
	case sells >= exitThreshold && sells > buys:
		strength = StrengthSell
	default:
		strength = StrengthNeutral
	}
	sentiment := sentimentOf(strength)

	const maxConfirmations = 4.0
	confidence := float64(buys) / maxConfirmations
	if sentiment == SentimentBearish || (sentiment == SentimentNeutral && sells > buys) {
		confidence = float64(sells) / maxConfirmations
	}
	if confidence > 1 {
		confidence = 1
	}
	if sentiment == SentimentNeutral {
		confidence = 0
	}

	closePrice := f.Last().Close
	verdict := Verdict{
		StrategyName:      s.Name(),
		Sentiment:         sentiment,
		Strength:          strength,
		Confidence:        confidence,
		ConfirmationsBuy:  buys,
		ConfirmationsSell: sells,
		Risk:              riskFromATR(closePrice, atr, floatOf(params, "atr_stop_multiplier"), floatOf(params, "atr_target_multiplier")),
		Bands:             bandsFromATR(closePrice, atr),
		Snapshot: map[string]float64{
			"rsi":                rsi,
			"macd":               macd,
			"adx":                adx,
			"atr":                atr,
			"supertrend_a_value": stA.Value[n-1],
			"supertrend_a_dir":   float64(dirA),
			"supertrend_b_value": stB.Value[n-1],
			"supertrend_b_dir":   float64(dirB),
		},
		Reasons:     reasons,
		LatestClose: closePrice,
		Timestamp:   f.Last().Timestamp,
	}

	if det != nil {
		verdict.Crossovers = append(verdict.Crossovers, det.DetectFlip("supertrend_a", stA.Direction, stA.Value)...)
		verdict.Crossovers = append(verdict.Crossovers, det.DetectFlip("supertrend_b", stB.Direction, stB.Value)...)
	}
	return verdict, nil
}
