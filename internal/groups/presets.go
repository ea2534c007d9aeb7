package groups

import (
	"github.com/ducminhle1904/market-sentinel-bot/pkg/types"
)

// Presets are starter groups installable from the CLI. They only use
// built-in strategy defaults; users tune from there.

func presetMember(symbol string, class types.AssetClass, interval types.Interval, period types.Period) SymbolConfig {
	return SymbolConfig{
		Symbol:     symbol,
		AssetClass: class,
		Interval:   interval,
		Period:     period,
		Enabled:    true,
	}
}

func presetGroup(id, name, description string, tags []string, members []SymbolConfig) *Group {
	g := &Group{
		ID:          id,
		Name:        name,
		Description: description,
		Tags:        tags,
		Enabled:     true,
		Members:     map[string]SymbolConfig{},
	}
	for _, m := range members {
		g.Members[SymbolKey(m.Symbol)] = m
	}
	return g
}

// BuiltinPresets returns the starter groups.
func BuiltinPresets() []*Group {
	return []*Group{
		presetGroup("forex-majors", "Forex Majors", "Major currency pairs on the hourly chart",
			[]string{"forex", "preset"},
			[]SymbolConfig{
				presetMember("EURUSD", types.AssetForex, types.Interval1h, types.Period1mo),
				presetMember("GBPUSD", types.AssetForex, types.Interval1h, types.Period1mo),
				presetMember("USDJPY", types.AssetForex, types.Interval1h, types.Period1mo),
				presetMember("USDCHF", types.AssetForex, types.Interval1h, types.Period1mo),
				presetMember("AUDUSD", types.AssetForex, types.Interval1h, types.Period1mo),
				presetMember("USDCAD", types.AssetForex, types.Interval1h, types.Period1mo),
			}),
		presetGroup("us-tech", "US Tech", "Large-cap technology stocks, daily bars",
			[]string{"stocks", "preset"},
			[]SymbolConfig{
				presetMember("AAPL", types.AssetStocks, types.Interval1d, types.Period6mo),
				presetMember("MSFT", types.AssetStocks, types.Interval1d, types.Period6mo),
				presetMember("GOOGL", types.AssetStocks, types.Interval1d, types.Period6mo),
				presetMember("AMZN", types.AssetStocks, types.Interval1d, types.Period6mo),
				presetMember("NVDA", types.AssetStocks, types.Interval1d, types.Period6mo),
			}),
		presetGroup("crypto-top", "Crypto Top", "High-liquidity crypto pairs on 4h bars",
			[]string{"crypto", "preset"},
			[]SymbolConfig{
				presetMember("BTCUSDT", types.AssetCrypto, types.Interval4h, types.Period3mo),
				presetMember("ETHUSDT", types.AssetCrypto, types.Interval4h, types.Period3mo),
				presetMember("SOLUSDT", types.AssetCrypto, types.Interval4h, types.Period3mo),
			}),
		presetGroup("world-indices", "World Indices", "Global equity indices, daily bars",
			[]string{"indices", "preset"},
			[]SymbolConfig{
				presetMember("SPX", types.AssetIndices, types.Interval1d, types.Period1y),
				presetMember("NDX", types.AssetIndices, types.Interval1d, types.Period1y),
				presetMember("DAX", types.AssetIndices, types.Interval1d, types.Period1y),
				presetMember("N225", types.AssetIndices, types.Interval1d, types.Period1y),
			}),
	}
}

// InstallPresets persists every preset that does not already exist and
// returns the ids installed.
func (m *Manager) InstallPresets() ([]string, error) {
	var installed []string
	for _, preset := range BuiltinPresets() {
		m.mu.Lock()
		_, exists := m.cache[preset.ID]
		if exists {
			m.mu.Unlock()
			continue
		}
		now := m.now().UTC()
		preset.CreatedAt = now
		preset.UpdatedAt = now
		if err := m.store.Save(preset); err != nil {
			m.mu.Unlock()
			return installed, err
		}
		m.cache[preset.ID] = preset
		m.mu.Unlock()
		installed = append(installed, preset.ID)
	}
	return installed, nil
}
