package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/market-sentinel-bot/internal/frame"
	"github.com/ducminhle1904/market-sentinel-bot/internal/indicators"
	"github.com/ducminhle1904/market-sentinel-bot/pkg/types"
)

func frameFromOHLC(t *testing.T, high, low, close []float64) *frame.Frame {
	t.Helper()
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.OHLCV, len(close))
	for i := range close {
		open := close[i]
		if open > high[i] {
			open = high[i]
		}
		if open < low[i] {
			open = low[i]
		}
		bars[i] = types.OHLCV{
			Open: open, High: high[i], Low: low[i], Close: close[i], Volume: 100,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
		}
	}
	f, err := frame.New("EURUSD", types.Interval1h, bars)
	require.NoError(t, err)
	return f
}

// gentleDecline builds a slow, steady downtrend: momentum oscillators read
// oversold while the MACD and power readings stay inside their dead bands.
func gentleDecline(t *testing.T, n int) *frame.Frame {
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	for i := 0; i < n; i++ {
		c := 100 - 0.002*float64(i)
		close[i] = c
		high[i] = c + 0.001
		low[i] = c - 0.001
	}
	return frameFromOHLC(t, high, low, close)
}

func analyzeDefault(t *testing.T, f *frame.Frame) Verdict {
	t.Helper()
	s := NewDefaultStrategy()
	res, err := indicators.Compute(f, s.Recipe())
	require.NoError(t, err)
	verdict, err := s.Analyze(f, nil, res, nil)
	require.NoError(t, err)
	return verdict
}

// TestDefaultStrategy_OversoldReadsBullish tests that oversold oscillators
// tally into a bullish verdict with at least three buy confirmations
func TestDefaultStrategy_OversoldReadsBullish(t *testing.T) {
	verdict := analyzeDefault(t, gentleDecline(t, 80))

	assert.Equal(t, SentimentBullish, verdict.Sentiment)
	assert.Equal(t, StrengthBuy, verdict.Strength)
	assert.GreaterOrEqual(t, verdict.ConfirmationsBuy, 3)
	assert.Greater(t, verdict.ConfirmationsBuy, verdict.ConfirmationsSell)

	assert.Equal(t, StatusBuy, verdict.Statuses["rsi"])
	assert.Equal(t, StatusBuy, verdict.Statuses["stoch_k"])
	assert.Equal(t, StatusBuy, verdict.Statuses["williams_r"])
	assert.Equal(t, StatusBuy, verdict.Statuses["cci"])
}

// TestDefaultStrategy_RiskFromATR tests the frozen 2x stop / 3x target multiples
func TestDefaultStrategy_RiskFromATR(t *testing.T) {
	f := gentleDecline(t, 80)
	verdict := analyzeDefault(t, f)

	atr := verdict.Snapshot["atr"]
	close := f.Last().Close
	assert.Greater(t, atr, 0.0)
	assert.InDelta(t, close-2*atr, verdict.Risk.StopLong, 1e-9)
	assert.InDelta(t, close+3*atr, verdict.Risk.TargetLong, 1e-9)
	assert.InDelta(t, close+2*atr, verdict.Risk.StopShort, 1e-9)
	assert.InDelta(t, close-3*atr, verdict.Risk.TargetShort, 1e-9)
	assert.InDelta(t, close+atr, verdict.Bands.Upper, 1e-9)
	assert.InDelta(t, close-atr, verdict.Bands.Lower, 1e-9)
}

// TestDefaultStrategy_InsufficientHistory tests the neutral degradation path
func TestDefaultStrategy_InsufficientHistory(t *testing.T) {
	verdict := analyzeDefault(t, gentleDecline(t, 5))

	assert.Equal(t, SentimentNeutral, verdict.Sentiment)
	assert.Equal(t, StrengthNeutral, verdict.Strength)
	assert.Contains(t, verdict.Reasons, "insufficient_history")
	assert.Zero(t, verdict.Confidence)
}

// TestDefaultStrategy_ConfidenceIsWinningShare tests confidence = winners/8
func TestDefaultStrategy_ConfidenceIsWinningShare(t *testing.T) {
	verdict := analyzeDefault(t, gentleDecline(t, 80))
	assert.InDelta(t, float64(verdict.ConfirmationsBuy)/8.0, verdict.Confidence, 1e-9)
}

// TestDefaultStrategy_EmptyTemplate tests that the strategy has no tunables
// and rejects any supplied parameter
func TestDefaultStrategy_EmptyTemplate(t *testing.T) {
	s := NewDefaultStrategy()
	assert.Empty(t, s.ParameterTemplate())

	_, err := s.Validate(map[string]any{"period": 10})
	require.Error(t, err)

	normalized, err := s.Validate(nil)
	require.NoError(t, err)
	assert.Empty(t, normalized)
}

// TestDefaultStrategy_SnapshotRoundTrips tests that the verdict snapshot
// carries the readings the statuses were derived from
func TestDefaultStrategy_SnapshotRoundTrips(t *testing.T) {
	verdict := analyzeDefault(t, gentleDecline(t, 80))
	for _, key := range []string{"rsi", "stoch_k", "cci", "macd", "williams_r", "atr"} {
		_, ok := verdict.Snapshot[key]
		assert.True(t, ok, "snapshot missing %s", key)
	}
	assert.Less(t, verdict.Snapshot["rsi"], 30.0)
	assert.Equal(t, verdict.LatestClose, gentleDecline(t, 80).Last().Close)
}
