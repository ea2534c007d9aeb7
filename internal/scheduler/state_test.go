package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/market-sentinel-bot/internal/groups"
	"github.com/ducminhle1904/market-sentinel-bot/internal/strategy"
)

func sampleVerdict(sentiment strategy.Sentiment, confidence float64) strategy.Verdict {
	return strategy.Verdict{
		StrategyName: strategy.DefaultStrategyName,
		Sentiment:    sentiment,
		Strength:     strategy.StrengthBuy,
		Confidence:   confidence,
		Snapshot:     map[string]float64{"rsi": 28.5, "atr": 0.003},
		Bands:        strategy.ATRBands{Upper: 1.105, Lower: 1.095, ATR: 0.005},
		LatestClose:  1.1,
		Timestamp:    time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}
}

// TestStateStore_SaveLoadRoundTrip tests that every persisted field survives
func TestStateStore_SaveLoadRoundTrip(t *testing.T) {
	store, err := NewStateStore(t.TempDir())
	require.NoError(t, err)

	verdict := sampleVerdict(strategy.SentimentBullish, 0.75)
	state := &MonitorState{
		GroupID:             "fx",
		SymbolKey:           "EURUSD",
		LastVerdict:         &verdict,
		LastRunAt:           time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		NextDueAt:           time.Date(2026, 8, 20, 13, 0, 0, 0, time.UTC),
		ConsecutiveFailures: 2,
		EntrySnapshot:       &verdict,
		AlertsDay:           "2026-08-20",
		AlertsEmittedToday:  3,
		LastEmitted: map[groups.AlertCondition]time.Time{
			groups.CondSentimentFlip: time.Date(2026, 8, 20, 11, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, store.Save(state))

	loaded, err := store.Load("fx", "EURUSD")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, state.GroupID, loaded.GroupID)
	assert.Equal(t, state.NextDueAt, loaded.NextDueAt)
	assert.Equal(t, state.ConsecutiveFailures, loaded.ConsecutiveFailures)
	assert.Equal(t, state.AlertsEmittedToday, loaded.AlertsEmittedToday)
	require.NotNil(t, loaded.LastVerdict)
	assert.Equal(t, verdict.Sentiment, loaded.LastVerdict.Sentiment)
	assert.Equal(t, verdict.Snapshot, loaded.LastVerdict.Snapshot)
	assert.True(t, state.LastEmitted[groups.CondSentimentFlip].Equal(loaded.LastEmitted[groups.CondSentimentFlip]))
}

// TestStateStore_MissingIsNil tests that an absent state is not an error
func TestStateStore_MissingIsNil(t *testing.T) {
	store, err := NewStateStore(t.TempDir())
	require.NoError(t, err)
	loaded, err := store.Load("fx", "NOPE")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

// TestStateStore_LoadAll tests enumeration across groups
func TestStateStore_LoadAll(t *testing.T) {
	store, err := NewStateStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(&MonitorState{GroupID: "fx", SymbolKey: "EURUSD"}))
	require.NoError(t, store.Save(&MonitorState{GroupID: "fx", SymbolKey: "GBPUSD"}))
	require.NoError(t, store.Save(&MonitorState{GroupID: "crypto", SymbolKey: "BTCUSDT"}))

	all, err := store.LoadAll()
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Contains(t, all, "fx/EURUSD")
	assert.Contains(t, all, "crypto/BTCUSDT")
}

// TestStateStore_Delete tests state removal
func TestStateStore_Delete(t *testing.T) {
	store, err := NewStateStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(&MonitorState{GroupID: "fx", SymbolKey: "EURUSD"}))
	require.NoError(t, store.Delete("fx", "EURUSD"))

	loaded, err := store.Load("fx", "EURUSD")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Deleting again is a no-op.
	require.NoError(t, store.Delete("fx", "EURUSD"))
}

// TestStateStore_DeleteGroup tests that removing a group's state wipes
// every member, leaving other groups alone
func TestStateStore_DeleteGroup(t *testing.T) {
	store, err := NewStateStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(&MonitorState{GroupID: "fx", SymbolKey: "EURUSD", AlertsEmittedToday: 5}))
	require.NoError(t, store.Save(&MonitorState{GroupID: "fx", SymbolKey: "GBPUSD"}))
	require.NoError(t, store.Save(&MonitorState{GroupID: "crypto", SymbolKey: "BTCUSDT"}))

	require.NoError(t, store.DeleteGroup("fx"))

	all, err := store.LoadAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, all, "crypto/BTCUSDT")

	// A recreated group starts with a clean slate.
	loaded, err := store.Load("fx", "EURUSD")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Deleting a group with no state is a no-op.
	require.NoError(t, store.DeleteGroup("fx"))
}

// TestMonitorID tests the canonical key format
func TestMonitorID(t *testing.T) {
	assert.Equal(t, "fx/EURUSD", MonitorID("fx", "EURUSD"))
}
