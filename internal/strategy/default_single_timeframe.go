package strategy

import (
	"math"

	"github.com/ducminhle1904/market-sentinel-bot/internal/frame"
	"github.com/ducminhle1904/market-sentinel-bot/internal/indicators"
)

// DefaultStrategyName is the canonical registry name of the multi-indicator
// strategy.
const DefaultStrategyName = "default-check-single-timeframe"

// Oscillator status values shared by the snapshot output.
const (
	StatusBuy     = "Buy"
	StatusSell    = "Sell"
	StatusNeutral = "Neutral"
)

// Frozen interpretation constants. The default strategy deliberately has no
// configurable template; tuning happens through the dual-Supertrend strategy.
const (
	defaultATRStopMult   = 2.0
	defaultATRTargetMult = 3.0
	macdNeutralBand      = 0.02
	powerNeutralBand     = 0.05
	dmiNeutralBand       = 1e-4
)

// DefaultStrategy tallies buy/sell statuses across eight oscillators and
// grades the result.
type DefaultStrategy struct{}

func NewDefaultStrategy() *DefaultStrategy { return &DefaultStrategy{} }

func (s *DefaultStrategy) Name() string { return DefaultStrategyName }

func (s *DefaultStrategy) ParameterTemplate() Template { return Template{} }

func (s *DefaultStrategy) Validate(params map[string]any) (map[string]any, error) {
	return Template{}.Validate(params)
}

// Recipe returns the indicator recipe this strategy consumes.
func (s *DefaultStrategy) Recipe() indicators.Recipe {
	return indicators.Recipe{
		{Family: indicators.FamilyRSI},
		{Family: indicators.FamilyStochastic},
		{Family: indicators.FamilyCCI},
		{Family: indicators.FamilyMACD},
		{Family: indicators.FamilyWilliamsR},
		{Family: indicators.FamilyADX},
		{Family: indicators.FamilyATR},
		{Family: indicators.FamilyBullBear},
	}
}

func (s *DefaultStrategy) Analyze(f *frame.Frame, params map[string]any, res *indicators.Result, det *indicators.Detector) (Verdict, error) {
	rsi := res.Series("rsi.rsi")
	stochK := res.Series("stochastic.k")
	stochD := res.Series("stochastic.d")
	cci := res.Series("cci.cci")
	macd := res.Series("macd.macd")
	macdSignal := res.Series("macd.signal")
	williams := res.Series("williams_r.r")
	plusDI := res.Series("adx.plus_di")
	minusDI := res.Series("adx.minus_di")
	atr := res.Series("atr.atr")
	bull := res.Series("bull_bear_power.bull")
	bear := res.Series("bull_bear_power.bear")

	last := func(x []float64) float64 { return indicators.Last(x) }
	lastRSI := last(rsi)
	lastStochK := last(stochK)
	lastCCI := last(cci)
	lastMACD := last(macd)
	lastWilliams := last(williams)
	lastATR := last(atr)
	dmiDelta := indicators.Last(indicators.DMIDelta(plusDI, minusDI))

	if math.IsNaN(lastRSI) || math.IsNaN(lastStochK) || math.IsNaN(lastCCI) ||
		math.IsNaN(lastWilliams) || math.IsNaN(lastATR) {
		return NeutralVerdict(s.Name(), "insufficient_history"), nil
	}

	statuses := map[string]string{
		"rsi":        levelStatus(lastRSI, 30, 70),
		"stoch_k":    levelStatus(lastStochK, 20, 80),
		"cci":        levelStatus(lastCCI, -100, 100),
		"williams_r": levelStatus(lastWilliams, -80, -20),
		"macd":       bandStatus(lastMACD, macdNeutralBand),
		"bull_power": bandStatus(last(bull), powerNeutralBand),
		"bear_power": bandStatus(last(bear), powerNeutralBand),
		"dmi":        bandStatus(dmiDelta, dmiNeutralBand),
	}

	buys, sells := 0, 0
	for _, st := range statuses {
		switch st {
		case StatusBuy:
			buys++
		case StatusSell:
			sells++
		}
	}
	total := len(statuses)
	strongCut := int(math.Ceil(0.7 * float64(total)))

	var strength Strength
	switch {
	case buys >= strongCut:
		strength = StrengthStrongBuy
	case sells >= strongCut:
		strength = StrengthStrongSell
	case buys > sells:
		strength = StrengthBuy
	case sells > buys:
		strength = StrengthSell
	default:
		strength = StrengthNeutral
	}
	sentiment := sentimentOf(strength)

	confidence := float64(buys) / float64(total)
	if sells > buys {
		confidence = float64(sells) / float64(total)
	}

	closePrice := f.Last().Close
	verdict := Verdict{
		StrategyName:      s.Name(),
		Sentiment:         sentiment,
		Strength:          strength,
		Confidence:        confidence,
		ConfirmationsBuy:  buys,
		ConfirmationsSell: sells,
		Risk:              riskFromATR(closePrice, lastATR, defaultATRStopMult, defaultATRTargetMult),
		Bands:             bandsFromATR(closePrice, lastATR),
		Statuses:          statuses,
		Snapshot: map[string]float64{
			"rsi":        lastRSI,
			"stoch_k":    lastStochK,
			"stoch_d":    last(stochD),
			"cci":        lastCCI,
			"macd":       lastMACD,
			"williams_r": lastWilliams,
			"plus_di":    last(plusDI),
			"minus_di":   last(minusDI),
			"atr":        lastATR,
			"bull_power": last(bull),
			"bear_power": last(bear),
		},
		LatestClose: closePrice,
		Timestamp:   f.Last().Timestamp,
	}

	if det != nil {
		verdict.Crossovers = append(verdict.Crossovers, det.DetectLine("macd_signal", macd, macdSignal)...)
		verdict.Crossovers = append(verdict.Crossovers, det.DetectLine("stoch_kd", stochK, stochD)...)
		verdict.Crossovers = append(verdict.Crossovers, det.DetectLine("dmi", plusDI, minusDI)...)
		verdict.Crossovers = append(verdict.Crossovers, det.DetectLevel("rsi_oversold", rsi, 30)...)
		verdict.Crossovers = append(verdict.Crossovers, det.DetectLevel("rsi_overbought", rsi, 70)...)
	}
	return verdict, nil
}

// levelStatus maps an oscillator reading against oversold/overbought levels.
// Below the low level reads Buy, above the high level reads Sell.
func levelStatus(v, lowLevel, highLevel float64) string {
	switch {
	case math.IsNaN(v):
		return StatusNeutral
	case v < lowLevel:
		return StatusBuy
	case v > highLevel:
		return StatusSell
	default:
		return StatusNeutral
	}
}

// bandStatus maps a signed momentum reading with a neutral dead band.
func bandStatus(v, band float64) string {
	switch {
	case math.IsNaN(v):
		return StatusNeutral
	case v > band:
		return StatusBuy
	case v < -band:
		return StatusSell
	default:
		return StatusNeutral
	}
}

func sentimentOf(st Strength) Sentiment {
	switch st {
	case StrengthBuy, StrengthStrongBuy:
		return SentimentBullish
	case StrengthSell, StrengthStrongSell:
		return SentimentBearish
	}
	return SentimentNeutral
}

func riskFromATR(close, atr, stopMult, targetMult float64) RiskLevels {
	return RiskLevels{
		StopLong:    close - atr*stopMult,
		TargetLong:  close + atr*targetMult,
		StopShort:   close + atr*stopMult,
		TargetShort: close - atr*targetMult,
	}
}

func bandsFromATR(close, atr float64) ATRBands {
	return ATRBands{Upper: close + atr, Lower: close - atr, ATR: atr}
}
