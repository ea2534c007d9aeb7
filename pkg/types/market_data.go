package types

import (
	"fmt"
	"time"
)

type OHLCV struct {
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// AssetClass identifies the kind of tradable instrument a symbol belongs to.
type AssetClass string

const (
	AssetForex   AssetClass = "forex"
	AssetStocks  AssetClass = "stocks"
	AssetCrypto  AssetClass = "crypto"
	AssetIndices AssetClass = "indices"
	AssetFutures AssetClass = "futures"
)

// ParseAssetClass validates an asset class string.
func ParseAssetClass(s string) (AssetClass, error) {
	switch AssetClass(s) {
	case AssetForex, AssetStocks, AssetCrypto, AssetIndices, AssetFutures:
		return AssetClass(s), nil
	}
	return "", fmt.Errorf("unknown asset class %q", s)
}

// Interval is a candle interval expressed as a duration enum.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval2h  Interval = "2h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
	Interval1wk Interval = "1wk"
	Interval1mo Interval = "1mo"
)

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval2h:  2 * time.Hour,
	Interval4h:  4 * time.Hour,
	Interval1d:  24 * time.Hour,
	Interval1wk: 7 * 24 * time.Hour,
	Interval1mo: 30 * 24 * time.Hour, // calendar months are approximated
}

// Duration returns the nominal bar spacing for the interval.
func (i Interval) Duration() time.Duration {
	return intervalDurations[i]
}

// ParseInterval validates an interval string.
func ParseInterval(s string) (Interval, error) {
	if _, ok := intervalDurations[Interval(s)]; !ok {
		return "", fmt.Errorf("unknown interval %q", s)
	}
	return Interval(s), nil
}

// Period is a lookback window for historical data requests.
type Period string

const (
	Period1d  Period = "1d"
	Period5d  Period = "5d"
	Period7d  Period = "7d"
	Period1wk Period = "1wk"
	Period1mo Period = "1mo"
	Period3mo Period = "3mo"
	Period6mo Period = "6mo"
	Period1y  Period = "1y"
	Period2y  Period = "2y"
	Period5y  Period = "5y"
	PeriodMax Period = "max"
)

var periodDurations = map[Period]time.Duration{
	Period1d:  24 * time.Hour,
	Period5d:  5 * 24 * time.Hour,
	Period7d:  7 * 24 * time.Hour,
	Period1wk: 7 * 24 * time.Hour,
	Period1mo: 30 * 24 * time.Hour,
	Period3mo: 90 * 24 * time.Hour,
	Period6mo: 180 * 24 * time.Hour,
	Period1y:  365 * 24 * time.Hour,
	Period2y:  2 * 365 * 24 * time.Hour,
	Period5y:  5 * 365 * 24 * time.Hour,
	PeriodMax: 10 * 365 * 24 * time.Hour,
}

// Duration returns the nominal span covered by the period.
func (p Period) Duration() time.Duration {
	return periodDurations[p]
}

// ParsePeriod validates a period string.
func ParsePeriod(s string) (Period, error) {
	if _, ok := periodDurations[Period(s)]; !ok {
		return "", fmt.Errorf("unknown period %q", s)
	}
	return Period(s), nil
}
