package frame

import (
	"fmt"
	"time"

	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
	"github.com/ducminhle1904/market-sentinel-bot/pkg/types"
)

// Frame is an immutable window of OHLCV bars for a single (symbol, interval).
// Bars are validated once at construction; no mutation afterwards.
type Frame struct {
	symbol   string
	interval types.Interval
	bars     []types.OHLCV
}

// New validates the bar series and wraps it in a Frame. Validation rejects
// non-increasing or duplicated timestamps, negative prices and bars that
// violate low <= open,close <= high.
func New(symbol string, interval types.Interval, bars []types.OHLCV) (*Frame, error) {
	if len(bars) == 0 {
		return nil, enginerr.New(enginerr.KindInvalidFrame, "frame", "new", "empty bar series")
	}
	for i, b := range bars {
		if b.Open < 0 || b.High < 0 || b.Low < 0 || b.Close < 0 || b.Volume < 0 {
			return nil, enginerr.New(enginerr.KindInvalidFrame, "frame", "new",
				fmt.Sprintf("negative value at bar %d", i))
		}
		if b.Low > b.High || b.Open < b.Low || b.Open > b.High || b.Close < b.Low || b.Close > b.High {
			return nil, enginerr.New(enginerr.KindInvalidFrame, "frame", "new",
				fmt.Sprintf("OHLC invariant violated at bar %d (o=%g h=%g l=%g c=%g)", i, b.Open, b.High, b.Low, b.Close))
		}
		if i > 0 && !bars[i-1].Timestamp.Before(b.Timestamp) {
			return nil, enginerr.New(enginerr.KindInvalidFrame, "frame", "new",
				fmt.Sprintf("non-increasing timestamp at bar %d (%s then %s)", i,
					bars[i-1].Timestamp.Format(time.RFC3339), b.Timestamp.Format(time.RFC3339)))
		}
	}
	owned := make([]types.OHLCV, len(bars))
	copy(owned, bars)
	return &Frame{symbol: symbol, interval: interval, bars: owned}, nil
}

func (f *Frame) Symbol() string           { return f.symbol }
func (f *Frame) Interval() types.Interval { return f.interval }
func (f *Frame) Len() int                 { return len(f.bars) }

// Bar returns the bar at index i.
func (f *Frame) Bar(i int) types.OHLCV { return f.bars[i] }

// Last returns the most recent bar.
func (f *Frame) Last() types.OHLCV { return f.bars[len(f.bars)-1] }

// Tail returns a new Frame holding the last n bars (or the whole frame when
// n exceeds its length).
func (f *Frame) Tail(n int) *Frame {
	if n >= len(f.bars) {
		return f
	}
	return &Frame{symbol: f.symbol, interval: f.interval, bars: f.bars[len(f.bars)-n:]}
}

// IsSufficientFor reports whether the frame holds at least minBars bars.
func (f *Frame) IsSufficientFor(minBars int) bool {
	return len(f.bars) >= minBars
}

func (f *Frame) column(pick func(types.OHLCV) float64) []float64 {
	out := make([]float64, len(f.bars))
	for i, b := range f.bars {
		out[i] = pick(b)
	}
	return out
}

func (f *Frame) Opens() []float64   { return f.column(func(b types.OHLCV) float64 { return b.Open }) }
func (f *Frame) Highs() []float64   { return f.column(func(b types.OHLCV) float64 { return b.High }) }
func (f *Frame) Lows() []float64    { return f.column(func(b types.OHLCV) float64 { return b.Low }) }
func (f *Frame) Closes() []float64  { return f.column(func(b types.OHLCV) float64 { return b.Close }) }
func (f *Frame) Volumes() []float64 { return f.column(func(b types.OHLCV) float64 { return b.Volume }) }

// Timestamps returns the timestamp column.
func (f *Frame) Timestamps() []time.Time {
	out := make([]time.Time, len(f.bars))
	for i, b := range f.bars {
		out[i] = b.Timestamp
	}
	return out
}

// Completeness reports the fraction of expected bars actually present,
// based on the nominal interval spacing between the first and last
// timestamps. Missing bars are never interpolated; they only lower this
// ratio. A single-bar frame is complete by definition.
func (f *Frame) Completeness() float64 {
	if len(f.bars) < 2 {
		return 1
	}
	step := f.interval.Duration()
	if step <= 0 {
		return 1
	}
	span := f.bars[len(f.bars)-1].Timestamp.Sub(f.bars[0].Timestamp)
	expected := int(span/step) + 1
	if expected <= len(f.bars) {
		return 1
	}
	return float64(len(f.bars)) / float64(expected)
}
