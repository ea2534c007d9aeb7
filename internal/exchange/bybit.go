package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
	"github.com/ducminhle1904/market-sentinel-bot/internal/frame"
	"github.com/ducminhle1904/market-sentinel-bot/pkg/data"
	"github.com/ducminhle1904/market-sentinel-bot/pkg/types"
)

// BybitConfig holds the connection settings for the Bybit data provider.
// Market data endpoints work without credentials; keys are only needed if
// the account-level rate limits are desired.
type BybitConfig struct {
	APIKey    string
	APISecret string
	Testnet   bool
}

// BybitProvider serves frames from the Bybit v5 market kline endpoint. It
// implements data.Provider for crypto symbols.
type BybitProvider struct {
	httpClient *bybit_api.Client
	category   string
}

// NewBybitProvider creates a provider against mainnet or testnet.
func NewBybitProvider(cfg BybitConfig) *BybitProvider {
	baseURL := bybit_api.MAINNET
	if cfg.Testnet {
		baseURL = bybit_api.TESTNET
	}
	httpClient := bybit_api.NewBybitHttpClient(
		cfg.APIKey,
		cfg.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)
	return &BybitProvider{httpClient: httpClient, category: "spot"}
}

func (p *BybitProvider) Name() string { return "bybit" }

// bybitIntervals maps candle intervals onto the v5 kline interval codes.
var bybitIntervals = map[types.Interval]string{
	types.Interval1m:  "1",
	types.Interval5m:  "5",
	types.Interval15m: "15",
	types.Interval30m: "30",
	types.Interval1h:  "60",
	types.Interval2h:  "120",
	types.Interval4h:  "240",
	types.Interval1d:  "D",
	types.Interval1wk: "W",
	types.Interval1mo: "M",
}

// Fetch downloads klines for the request and assembles a validated frame.
func (p *BybitProvider) Fetch(ctx context.Context, req data.Request) (*frame.Frame, error) {
	code, ok := bybitIntervals[req.Interval]
	if !ok {
		return nil, enginerr.New(enginerr.KindDataUnavailable, "exchange", "fetch",
			fmt.Sprintf("interval %s not supported by bybit", req.Interval))
	}

	limit := req.BarEstimate()
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	if limit < 2 {
		limit = 2
	}

	params := map[string]interface{}{
		"category": p.category,
		"symbol":   req.Symbol,
		"interval": code,
		"limit":    limit,
	}
	result, err := p.httpClient.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, enginerr.Wrap(err, enginerr.KindDataUnavailable, "exchange", "fetch")
	}

	bars, err := parseKlineResponse(result)
	if err != nil {
		return nil, enginerr.Wrap(err, enginerr.KindDataUnavailable, "exchange", "fetch")
	}
	if len(bars) == 0 {
		return nil, enginerr.New(enginerr.KindDataUnavailable, "exchange", "fetch",
			fmt.Sprintf("empty kline response for %s", req.Symbol))
	}
	return frame.New(req.Symbol, req.Interval, bars)
}

// parseKlineResponse decodes the v5 kline payload. Bybit returns rows as
// [startTime, open, high, low, close, volume, turnover] strings, newest
// first; the frame wants them oldest first.
func parseKlineResponse(response interface{}) ([]types.OHLCV, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return nil, fmt.Errorf("API error: %s (code: %d)", serverResp.RetMsg, serverResp.RetCode)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kline result: %w", err)
	}

	bars := make([]types.OHLCV, 0, len(klineResult.List))
	for _, item := range klineResult.List {
		if len(item) < 6 {
			continue
		}
		bars = append(bars, types.OHLCV{
			Timestamp: time.UnixMilli(parseInt64(item[0])).UTC(),
			Open:      parseFloat64(item[1]),
			High:      parseFloat64(item[2]),
			Low:       parseFloat64(item[3]),
			Close:     parseFloat64(item[4]),
			Volume:    parseFloat64(item[5]),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseFloat64(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
