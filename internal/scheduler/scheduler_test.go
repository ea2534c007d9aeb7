package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/market-sentinel-bot/internal/analyzer"
	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
	"github.com/ducminhle1904/market-sentinel-bot/internal/frame"
	"github.com/ducminhle1904/market-sentinel-bot/internal/groups"
	"github.com/ducminhle1904/market-sentinel-bot/internal/logger"
	"github.com/ducminhle1904/market-sentinel-bot/internal/monitoring"
	"github.com/ducminhle1904/market-sentinel-bot/internal/notifications"
	"github.com/ducminhle1904/market-sentinel-bot/internal/strategy"
	"github.com/ducminhle1904/market-sentinel-bot/pkg/data"
	"github.com/ducminhle1904/market-sentinel-bot/pkg/types"
)

// captureNotifier records delivered events for assertions.
type captureNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (c *captureNotifier) Notify(ev notifications.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *captureNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// stubProvider serves one synthetic frame, or a fixed error.
type stubProvider struct {
	err error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Fetch(ctx context.Context, req data.Request) (*frame.Frame, error) {
	if p.err != nil {
		return nil, p.err
	}
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.OHLCV, 60)
	for i := range bars {
		c := 100 + 0.4*float64(i)
		bars[i] = types.OHLCV{
			Open: c, High: c + 0.6, Low: c - 0.6, Close: c, Volume: 100,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
		}
	}
	return frame.New(req.Symbol, req.Interval, bars)
}

func testScheduler(t *testing.T, provider data.Provider) (*Scheduler, *groups.Manager, *captureNotifier, *StateStore) {
	t.Helper()
	dir := t.TempDir()

	store, err := groups.NewFileStore(dir)
	require.NoError(t, err)
	manager, err := groups.NewManager(store)
	require.NoError(t, err)

	_, err = manager.CreateGroup("fx", "", nil)
	require.NoError(t, err)
	enabled := true
	_, err = manager.AddSymbol("fx", groups.SymbolConfig{
		Symbol:     "EURUSD",
		AssetClass: types.AssetForex,
		Interval:   types.Interval1h,
		Period:     types.Period1mo,
		Enabled:    true,
		AlertPolicy: &groups.AlertPolicy{
			Enabled: &enabled,
		},
	})
	require.NoError(t, err)

	states, err := NewStateStore(dir)
	require.NoError(t, err)
	history, err := NewHistoryWriter(dir)
	require.NoError(t, err)

	orch := analyzer.New(provider, strategy.NewRegistry(), logger.NewDiscard())
	capture := &captureNotifier{}
	sched := New(manager, orch, capture, states, history, logger.NewDiscard(), monitoring.NewHealthChecker()).
		WithTickInterval(10 * time.Millisecond)
	return sched, manager, capture, states
}

func runBriefly(t *testing.T, s *Scheduler, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	time.Sleep(d)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

// TestScheduler_FirstRunAnchorsCadence tests that a new monitor runs on the
// first tick and is rescheduled one cadence ahead
func TestScheduler_FirstRunAnchorsCadence(t *testing.T) {
	sched, _, _, states := testScheduler(t, &stubProvider{})
	before := time.Now()
	runBriefly(t, sched, 100*time.Millisecond)

	state, err := states.Load("fx", "EURUSD")
	require.NoError(t, err)
	require.NotNil(t, state, "first run must persist monitor state")
	require.NotNil(t, state.LastVerdict)
	assert.False(t, state.LastRunAt.IsZero())
	assert.Zero(t, state.ConsecutiveFailures)

	// Next due one cadence (60m default) after the run, not after the start.
	gap := state.NextDueAt.Sub(state.LastRunAt)
	assert.InDelta(t, time.Hour.Seconds(), gap.Seconds(), 1.0)
	assert.True(t, state.NextDueAt.After(before))
}

// TestScheduler_ManyDueMonitorsDrain tests that a tick with far more due
// monitors than the pool queues hold still completes: every monitor runs
// and persists, with Summary polled concurrently throughout
func TestScheduler_ManyDueMonitorsDrain(t *testing.T) {
	sched, manager, _, states := testScheduler(t, &stubProvider{})

	enabled := true
	for i := 0; i < 49; i++ {
		_, err := manager.AddSymbol("fx", groups.SymbolConfig{
			Symbol:     fmt.Sprintf("PAIR%02d", i),
			AssetClass: types.AssetForex,
			Interval:   types.Interval1h,
			Period:     types.Period1mo,
			Enabled:    true,
			AlertPolicy: &groups.AlertPolicy{
				Enabled: &enabled,
			},
		})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Start(ctx) }()

	// Hammer the status view while monitors complete.
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				sched.Summary()
			}
		}
	}()

	deadline := time.Now().Add(10 * time.Second)
	persisted := 0
	for time.Now().Before(deadline) {
		all, err := states.LoadAll()
		require.NoError(t, err)
		persisted = len(all)
		if persisted == 50 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	<-pollDone

	assert.Equal(t, 50, persisted, "every due monitor must run and persist")
}

// TestScheduler_PastDueRunsOnRestart tests recovery of a persisted past-due monitor
func TestScheduler_PastDueRunsOnRestart(t *testing.T) {
	sched, _, _, states := testScheduler(t, &stubProvider{})

	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, states.Save(&MonitorState{
		GroupID:   "fx",
		SymbolKey: "EURUSD",
		LastRunAt: stale,
		NextDueAt: stale.Add(time.Hour), // an hour overdue
	}))

	runBriefly(t, sched, 100*time.Millisecond)

	state, err := states.Load("fx", "EURUSD")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.True(t, state.LastRunAt.After(stale), "overdue monitor must fire on the first tick")
	assert.True(t, state.NextDueAt.After(time.Now()))
}

// TestScheduler_RetriableFailureBacksOff tests the data-unavailable path
func TestScheduler_RetriableFailureBacksOff(t *testing.T) {
	provider := &stubProvider{err: enginerr.New(enginerr.KindDataUnavailable, "data", "fetch", "feed down")}
	sched, _, capture, states := testScheduler(t, provider)
	runBriefly(t, sched, 100*time.Millisecond)

	state, err := states.Load("fx", "EURUSD")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, 1, state.ConsecutiveFailures)
	assert.Nil(t, state.LastVerdict)
	assert.True(t, state.NextDueAt.After(time.Now()), "failed monitor must back off")
	assert.Zero(t, capture.count())
}

// TestScheduler_FailingAfterThreeFailures tests the Failing phase transition
// and the backoff cap
func TestScheduler_FailingAfterThreeFailures(t *testing.T) {
	sched, _, _, _ := testScheduler(t, &stubProvider{})
	cfg := groups.ResolvedConfig{
		GroupID:   "fx",
		SymbolKey: "EURUSD",
		Alert:     groups.ResolvedAlertPolicy{Enabled: true, CadenceMinutes: 60},
	}
	mon := &monitor{
		config: cfg,
		state:  &MonitorState{GroupID: "fx", SymbolKey: "EURUSD"},
		phase:  PhaseRunning,
	}
	sched.monitors["fx/EURUSD"] = mon

	failure := enginerr.New(enginerr.KindDataUnavailable, "data", "fetch", "feed down")
	now := time.Now()
	for i := 0; i < 3; i++ {
		sched.applyFailure(mon, cfg, mon.state, failure, now)
	}

	assert.Equal(t, 3, mon.state.ConsecutiveFailures)
	assert.Equal(t, PhaseFailing, mon.phase)
	// Backoff doubles per failure but never beyond one hour.
	assert.True(t, mon.state.NextDueAt.Sub(now) <= backoffCap)
}

// TestScheduler_NonRetriableHoldsCadence tests that config errors do not back off
func TestScheduler_NonRetriableHoldsCadence(t *testing.T) {
	sched, _, _, _ := testScheduler(t, &stubProvider{})
	cfg := groups.ResolvedConfig{
		GroupID:   "fx",
		SymbolKey: "EURUSD",
		Alert:     groups.ResolvedAlertPolicy{Enabled: true, CadenceMinutes: 60},
	}
	mon := &monitor{config: cfg, state: &MonitorState{GroupID: "fx", SymbolKey: "EURUSD"}, phase: PhaseRunning}
	sched.monitors["fx/EURUSD"] = mon

	now := time.Now()
	sched.applyFailure(mon, cfg, mon.state,
		enginerr.New(enginerr.KindParameterValidation, "strategy", "validate", "bad period"), now)

	assert.Zero(t, mon.state.ConsecutiveFailures)
	assert.Equal(t, PhaseIdle, mon.phase)
	assert.InDelta(t, time.Hour.Seconds(), mon.state.NextDueAt.Sub(now).Seconds(), 1.0)
}

// TestScheduler_EmitDedupPerCadence tests the one-event-per-condition-per-cadence rule
func TestScheduler_EmitDedupPerCadence(t *testing.T) {
	sched, _, capture, _ := testScheduler(t, &stubProvider{})
	cfg := groups.ResolvedConfig{
		Alert: groups.ResolvedAlertPolicy{CadenceMinutes: 60},
	}
	state := &MonitorState{GroupID: "fx", SymbolKey: "EURUSD"}
	now := time.Now()
	events := []notifications.Event{
		{Condition: groups.CondSentimentFlip, MonitorID: "fx/EURUSD", Timestamp: now},
		{Condition: groups.CondConfidenceDrift, MonitorID: "fx/EURUSD", Timestamp: now},
	}

	delivered := sched.emit(state, cfg, events, now)
	assert.Len(t, delivered, 2)
	assert.Equal(t, 2, capture.count())

	// Same conditions inside the same cadence window are suppressed.
	delivered = sched.emit(state, cfg, events, now.Add(10*time.Minute))
	assert.Empty(t, delivered)
	assert.Equal(t, 2, capture.count())

	// After a full cadence they may fire again.
	delivered = sched.emit(state, cfg, events, now.Add(61*time.Minute))
	assert.Len(t, delivered, 2)
}

// TestScheduler_EmitDailyCap tests the per-monitor daily alert budget
func TestScheduler_EmitDailyCap(t *testing.T) {
	sched, _, capture, _ := testScheduler(t, &stubProvider{})
	sched.maxAlertsPerDay = 2
	cfg := groups.ResolvedConfig{Alert: groups.ResolvedAlertPolicy{CadenceMinutes: 60}}
	state := &MonitorState{GroupID: "fx", SymbolKey: "EURUSD"}
	now := time.Now()

	events := []notifications.Event{
		{Condition: groups.CondSentimentFlip, Timestamp: now},
		{Condition: groups.CondConfidenceDrift, Timestamp: now},
		{Condition: groups.CondATRBandShift, Timestamp: now},
	}
	delivered := sched.emit(state, cfg, events, now)
	assert.Len(t, delivered, 2)
	assert.Equal(t, 2, capture.count())
	assert.Equal(t, 2, state.AlertsEmittedToday)

	// A new UTC day resets the budget.
	tomorrow := now.Add(25 * time.Hour)
	delivered = sched.emit(state, cfg,
		[]notifications.Event{{Condition: groups.CondValidityLoss, Timestamp: tomorrow}}, tomorrow)
	assert.Len(t, delivered, 1)
	assert.Equal(t, 1, state.AlertsEmittedToday)
}

// TestScheduler_StopMonitor tests detaching a single monitor
func TestScheduler_StopMonitor(t *testing.T) {
	sched, _, _, states := testScheduler(t, &stubProvider{})
	runBriefly(t, sched, 100*time.Millisecond)

	require.NoError(t, sched.StopMonitor("fx", "EURUSD"))
	state, err := states.Load("fx", "EURUSD")
	require.NoError(t, err)
	assert.Nil(t, state)
	assert.Empty(t, sched.Summary())
}

// TestScheduler_SummaryReflectsLastVerdict tests the status view
func TestScheduler_SummaryReflectsLastVerdict(t *testing.T) {
	sched, _, _, _ := testScheduler(t, &stubProvider{})
	runBriefly(t, sched, 100*time.Millisecond)

	summary := sched.Summary()
	require.Len(t, summary, 1)
	assert.Equal(t, "fx/EURUSD", summary[0].MonitorID)
	assert.False(t, summary[0].LastRunAt.IsZero())
	assert.NotEmpty(t, summary[0].LastSentiment)
}
