package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
	"github.com/ducminhle1904/market-sentinel-bot/pkg/types"
)

func hourlyBars(closes ...float64) []types.OHLCV {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = types.OHLCV{
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
		}
	}
	return bars
}

// TestNew_ValidBars tests frame construction from a well-formed series
func TestNew_ValidBars(t *testing.T) {
	f, err := New("EURUSD", types.Interval1h, hourlyBars(100, 101, 102))
	require.NoError(t, err)
	assert.Equal(t, "EURUSD", f.Symbol())
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, 102.0, f.Last().Close)
}

// TestNew_EmptySeries tests that an empty series is rejected
func TestNew_EmptySeries(t *testing.T) {
	_, err := New("EURUSD", types.Interval1h, nil)
	require.Error(t, err)
	assert.Equal(t, enginerr.KindInvalidFrame, enginerr.KindOf(err))
}

// TestNew_NonIncreasingTimestamps tests duplicate timestamp rejection
func TestNew_NonIncreasingTimestamps(t *testing.T) {
	bars := hourlyBars(100, 101)
	bars[1].Timestamp = bars[0].Timestamp

	_, err := New("EURUSD", types.Interval1h, bars)
	require.Error(t, err)
	assert.Equal(t, enginerr.KindInvalidFrame, enginerr.KindOf(err))
}

// TestNew_OHLCInvariant tests rejection of a close outside the high/low range
func TestNew_OHLCInvariant(t *testing.T) {
	bars := hourlyBars(100)
	bars[0].Close = bars[0].High + 5

	_, err := New("EURUSD", types.Interval1h, bars)
	require.Error(t, err)
	assert.Equal(t, enginerr.KindInvalidFrame, enginerr.KindOf(err))
}

// TestNew_NegativePrice tests rejection of negative values
func TestNew_NegativePrice(t *testing.T) {
	bars := hourlyBars(100)
	bars[0].Volume = -1

	_, err := New("EURUSD", types.Interval1h, bars)
	require.Error(t, err)
	assert.Equal(t, enginerr.KindInvalidFrame, enginerr.KindOf(err))
}

// TestNew_CopiesInput tests that mutating the source slice does not affect the frame
func TestNew_CopiesInput(t *testing.T) {
	bars := hourlyBars(100, 101)
	f, err := New("EURUSD", types.Interval1h, bars)
	require.NoError(t, err)

	bars[0].Close = 999
	assert.Equal(t, 100.0, f.Bar(0).Close)
}

// TestTail tests the bounded suffix view
func TestTail(t *testing.T) {
	f, err := New("EURUSD", types.Interval1h, hourlyBars(100, 101, 102, 103))
	require.NoError(t, err)

	tail := f.Tail(2)
	assert.Equal(t, 2, tail.Len())
	assert.Equal(t, 102.0, tail.Bar(0).Close)

	assert.Equal(t, 4, f.Tail(10).Len())
}

// TestCompleteness_FullSeries tests that a gapless series is 100% complete
func TestCompleteness_FullSeries(t *testing.T) {
	f, err := New("EURUSD", types.Interval1h, hourlyBars(100, 101, 102, 103))
	require.NoError(t, err)
	assert.Equal(t, 1.0, f.Completeness())
}

// TestCompleteness_WithGap tests that missing bars lower the ratio without interpolation
func TestCompleteness_WithGap(t *testing.T) {
	bars := hourlyBars(100, 101, 102, 103)
	// Push the last bar two extra hours out, leaving a two-bar hole.
	bars[3].Timestamp = bars[3].Timestamp.Add(2 * time.Hour)

	f, err := New("EURUSD", types.Interval1h, bars)
	require.NoError(t, err)
	assert.InDelta(t, 4.0/6.0, f.Completeness(), 1e-9)
	assert.Equal(t, 4, f.Len())
}

// TestIsSufficientFor tests the minimum-history check
func TestIsSufficientFor(t *testing.T) {
	f, err := New("EURUSD", types.Interval1h, hourlyBars(100, 101, 102))
	require.NoError(t, err)
	assert.True(t, f.IsSufficientFor(3))
	assert.False(t, f.IsSufficientFor(4))
}

// TestColumns tests the column extractors
func TestColumns(t *testing.T) {
	f, err := New("EURUSD", types.Interval1h, hourlyBars(100, 101))
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 101}, f.Closes())
	assert.Equal(t, []float64{101, 102}, f.Highs())
	assert.Equal(t, []float64{99, 100}, f.Lows())
	assert.Len(t, f.Timestamps(), 2)
}
