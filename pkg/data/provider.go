package data

import (
	"context"
	"fmt"

	"github.com/ducminhle1904/market-sentinel-bot/internal/frame"
	"github.com/ducminhle1904/market-sentinel-bot/pkg/types"
)

// Request identifies one historical data fetch.
type Request struct {
	Symbol     string           `json:"symbol"`
	AssetClass types.AssetClass `json:"asset_class"`
	Interval   types.Interval   `json:"interval"`
	Period     types.Period     `json:"period"`
}

// Key returns a stable cache/identity key for the request.
func (r Request) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", r.Symbol, r.AssetClass, r.Interval, r.Period)
}

// BarEstimate returns the approximate number of bars the request spans,
// used by providers that fetch by count rather than by time range.
func (r Request) BarEstimate() int {
	step := r.Interval.Duration()
	if step <= 0 {
		return 0
	}
	return int(r.Period.Duration() / step)
}

// Provider loads historical market data. Implementations are free to cache;
// callers treat them as black boxes. Fetch failures that can heal on retry
// (timeouts, rate limits, empty responses) must surface as retriable errors.
type Provider interface {
	// Fetch returns a validated frame for the request.
	Fetch(ctx context.Context, req Request) (*frame.Frame, error)

	// Name identifies the provider in logs.
	Name() string
}
