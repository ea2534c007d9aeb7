package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/market-sentinel-bot/internal/analyzer"
	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
	"github.com/ducminhle1904/market-sentinel-bot/internal/groups"
	"github.com/ducminhle1904/market-sentinel-bot/internal/logger"
	"github.com/ducminhle1904/market-sentinel-bot/internal/monitoring"
	"github.com/ducminhle1904/market-sentinel-bot/internal/notifications"
	"github.com/ducminhle1904/market-sentinel-bot/internal/strategy"
)

// DefaultMaxAlertsPerDay caps events per monitor per calendar day.
const DefaultMaxAlertsPerDay = 10

// defaultTickEvery is how often due monitors are re-evaluated.
const defaultTickEvery = 15 * time.Second

// monitor pairs a resolved config with its mutable state.
type monitor struct {
	config groups.ResolvedConfig
	state  *MonitorState
	phase  Phase
}

// Scheduler drives one logical monitor per (group, symbol) with an enabled
// alert policy, diffing successive verdicts and emitting events. All mutable
// monitor state lives here; orchestrator calls are fanned out through a
// bounded worker pool.
type Scheduler struct {
	manager      *groups.Manager
	orchestrator *analyzer.Orchestrator
	notifier     notifications.Notifier
	states       *StateStore
	history      *HistoryWriter
	log          *logger.Logger
	health       *monitoring.HealthChecker

	tickEvery       time.Duration
	maxAlertsPerDay int
	now             func() time.Time

	mu       sync.Mutex
	monitors map[string]*monitor
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// New assembles a scheduler.
func New(manager *groups.Manager, orch *analyzer.Orchestrator, notifier notifications.Notifier,
	states *StateStore, history *HistoryWriter, log *logger.Logger, health *monitoring.HealthChecker) *Scheduler {
	return &Scheduler{
		manager:         manager,
		orchestrator:    orch,
		notifier:        notifier,
		states:          states,
		history:         history,
		log:             log,
		health:          health,
		tickEvery:       defaultTickEvery,
		maxAlertsPerDay: DefaultMaxAlertsPerDay,
		now:             time.Now,
		monitors:        make(map[string]*monitor),
		done:            make(chan struct{}),
	}
}

// WithTickInterval overrides the tick cadence (used in tests).
func (s *Scheduler) WithTickInterval(d time.Duration) *Scheduler {
	s.tickEvery = d
	return s
}

// Start loads persisted monitor states and runs the tick loop until the
// context is cancelled or Stop is called. Monitors whose next_due_at is in
// the past fire on the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return enginerr.New(enginerr.KindStrategyInternal, "scheduler", "start", "already running")
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	persisted, err := s.states.LoadAll()
	if err != nil {
		return err
	}
	s.mu.Lock()
	for id, state := range persisted {
		s.monitors[id] = &monitor{state: state, phase: PhaseIdle}
	}
	s.mu.Unlock()

	s.log.Info("scheduler started", "persisted_monitors", len(persisted), "tick_interval", s.tickEvery.String())

	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()
	defer close(s.done)

	// Immediate first tick so past-due monitors recover without waiting.
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop cancels the tick loop. In-flight orchestrator runs finish; their
// verdicts are discarded if the monitor was torn down meanwhile.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	running := s.running
	s.running = false
	s.mu.Unlock()
	if running && cancel != nil {
		cancel()
		<-s.done
	}
}

// StopMonitor detaches a single monitor and removes its persisted state.
func (s *Scheduler) StopMonitor(groupID, symbolKey string) error {
	id := MonitorID(groupID, symbolKey)
	s.mu.Lock()
	delete(s.monitors, id)
	s.mu.Unlock()
	return s.states.Delete(groupID, symbolKey)
}

// tick refreshes configs, selects due monitors and runs them through the
// worker pool. Config changes from the manager take effect here, never
// mid-run.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	configs := s.manager.ResolvedMonitors()

	s.mu.Lock()
	// Attach new monitors, refresh configs, drop monitors whose policy or
	// membership went away.
	seen := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		id := MonitorID(cfg.GroupID, cfg.SymbolKey)
		seen[id] = true
		mon, ok := s.monitors[id]
		if !ok {
			mon = &monitor{
				state: &MonitorState{
					GroupID:   cfg.GroupID,
					SymbolKey: cfg.SymbolKey,
					NextDueAt: now, // first run fires immediately
				},
				phase: PhaseIdle,
			}
			s.monitors[id] = mon
		}
		mon.config = cfg
	}
	for id := range s.monitors {
		if !seen[id] {
			delete(s.monitors, id)
		}
	}

	var due []*monitor
	failing := 0
	for _, mon := range s.monitors {
		if mon.phase == PhaseFailing {
			failing++
		}
		if mon.phase == PhaseRunning {
			continue
		}
		if now.Before(mon.state.NextDueAt) {
			continue
		}
		if !mon.config.Alert.ActiveAt(now) {
			continue
		}
		mon.phase = PhaseDue
		due = append(due, mon)
	}
	total := len(s.monitors)
	s.mu.Unlock()

	monitoring.SetActiveMonitors(total)
	if s.health != nil {
		s.health.RecordTick(total, failing)
	}
	if len(due) == 0 {
		return
	}

	pool := newWorkerPool(ctx, poolSize(len(due)), s.orchestrator.Analyze)
	pool.start()

	jobs := make([]tickJob, 0, len(due))
	s.mu.Lock()
	for _, mon := range due {
		mon.phase = PhaseRunning
		jobs = append(jobs, tickJob{
			monitorID: MonitorID(mon.config.GroupID, mon.config.SymbolKey),
			config:    mon.config,
		})
	}
	s.mu.Unlock()

	// The collector must be draining before submission starts: with more
	// due monitors than the bounded queues hold, submit blocks until
	// results are consumed.
	go func() {
		for result := range pool.results() {
			s.applyResult(result)
		}
	}()
	go func() {
		for _, job := range jobs {
			if !pool.submit(job) {
				s.returnToIdle(job.monitorID)
			}
		}
		pool.stop()
	}()
}

// returnToIdle releases a monitor whose job never reached the pool.
func (s *Scheduler) returnToIdle(monitorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mon, ok := s.monitors[monitorID]; ok && mon.phase == PhaseRunning {
		mon.phase = PhaseIdle
	}
}

// applyResult finishes one monitor run: state machine transition, verdict
// diff, event emission, persistence.
func (s *Scheduler) applyResult(result tickResult) {
	now := s.now()

	s.mu.Lock()
	mon, ok := s.monitors[result.monitorID]
	if !ok {
		// Monitor torn down while running; discard the verdict.
		s.mu.Unlock()
		return
	}
	cfg := mon.config
	state := mon.state
	s.mu.Unlock()

	if result.err != nil {
		s.applyFailure(mon, cfg, state, result.err, now)
		return
	}

	verdict := result.analysis.Verdict
	events := diffVerdicts(now, cfg.Alert, state, cfg.GroupID, cfg.SymbolKey, verdict)
	emitted := s.emit(state, cfg, events, now)

	// Entry snapshots track the active directional thesis.
	validityFired := false
	for _, ev := range emitted {
		if ev.Condition == groups.CondValidityLoss {
			validityFired = true
		}
	}

	// Summary reads these fields under the same lock.
	s.mu.Lock()
	if validityFired {
		state.EntrySnapshot = nil
	}
	if verdict.Sentiment != strategy.SentimentNeutral {
		if state.EntrySnapshot == nil || state.EntrySnapshot.Sentiment != verdict.Sentiment {
			snap := verdict
			state.EntrySnapshot = &snap
		}
	}
	state.LastVerdict = &verdict
	state.LastRunAt = now
	// Anchoring to now rather than to the previous due time avoids drift
	// accumulation under slow providers.
	state.NextDueAt = now.Add(cfg.Alert.Cadence())
	state.ConsecutiveFailures = 0
	mon.phase = PhaseIdle
	s.mu.Unlock()

	monitoring.UpdateStrategyConfidence(cfg.SymbolKey, verdict.StrategyName, verdict.Confidence)

	if err := s.states.Save(state); err != nil {
		s.log.Error("monitor state persist failed", "monitor", result.monitorID, "error", err.Error())
	}
}

// applyFailure handles a failed run: retriable errors back off
// exponentially, everything else waits out a normal cadence.
func (s *Scheduler) applyFailure(mon *monitor, cfg groups.ResolvedConfig, state *MonitorState, runErr error, now time.Time) {
	if enginerr.IsRetryable(runErr) {
		s.mu.Lock()
		state.ConsecutiveFailures++
		backoff := cfg.Alert.Cadence()
		for i := 1; i < state.ConsecutiveFailures; i++ {
			backoff *= 2
			if backoff >= backoffCap {
				backoff = backoffCap
				break
			}
		}
		if backoff > backoffCap {
			backoff = backoffCap
		}
		state.NextDueAt = now.Add(backoff)
		if state.ConsecutiveFailures >= failuresBeforeFailing {
			mon.phase = PhaseFailing
		} else {
			mon.phase = PhaseIdle
		}
		phase := mon.phase
		failures := state.ConsecutiveFailures
		s.mu.Unlock()

		if phase == PhaseFailing {
			s.log.Warn("monitor failing",
				"monitor", MonitorID(cfg.GroupID, cfg.SymbolKey),
				"consecutive_failures", failures,
				"retry_in", backoff.String(),
				"error", runErr.Error())
		} else {
			s.log.Info("data unavailable, backing off",
				"monitor", MonitorID(cfg.GroupID, cfg.SymbolKey),
				"retry_in", backoff.String())
		}
	} else {
		// Config and frame errors do not heal on retry; log and hold cadence.
		s.mu.Lock()
		state.NextDueAt = now.Add(cfg.Alert.Cadence())
		mon.phase = PhaseIdle
		s.mu.Unlock()
		s.log.Error("analysis failed",
			"monitor", MonitorID(cfg.GroupID, cfg.SymbolKey),
			"kind", string(enginerr.KindOf(runErr)),
			"error", runErr.Error())
	}
	if s.health != nil {
		s.health.RecordErrorMessage(fmt.Sprintf("%s: %v", MonitorID(cfg.GroupID, cfg.SymbolKey), runErr))
	}

	if err := s.states.Save(state); err != nil {
		s.log.Error("monitor state persist failed", "monitor", MonitorID(cfg.GroupID, cfg.SymbolKey), "error", err.Error())
	}
}

// emit applies dedup rules and delivers surviving events. Returns the
// events actually delivered.
func (s *Scheduler) emit(state *MonitorState, cfg groups.ResolvedConfig,
	events []notifications.Event, now time.Time) []notifications.Event {

	if len(events) == 0 {
		return nil
	}

	day := now.UTC().Format("2006-01-02")
	s.mu.Lock()
	if state.AlertsDay != day {
		state.AlertsDay = day
		state.AlertsEmittedToday = 0
	}
	if state.LastEmitted == nil {
		state.LastEmitted = make(map[groups.AlertCondition]time.Time)
	}
	s.mu.Unlock()

	cadence := cfg.Alert.Cadence()
	var delivered []notifications.Event
	for _, ev := range events {
		if last, ok := state.LastEmitted[ev.Condition]; ok && now.Sub(last) < cadence {
			monitoring.RecordSuppressedAlert("cadence")
			continue
		}
		if state.AlertsEmittedToday >= s.maxAlertsPerDay {
			monitoring.RecordSuppressedAlert("daily_cap")
			continue
		}

		if err := s.notifier.Notify(ev); err != nil {
			s.log.Error("notification delivery failed", "condition", string(ev.Condition), "error", err.Error())
		}
		if s.history != nil {
			if err := s.history.Append(ev); err != nil {
				s.log.Error("alert history append failed", "error", err.Error())
			}
		}
		s.log.Alert("alert emitted",
			"monitor", ev.MonitorID,
			"condition", string(ev.Condition),
			"severity", string(ev.Severity))
		monitoring.RecordAlert(string(ev.Condition), string(ev.Severity))

		s.mu.Lock()
		state.LastEmitted[ev.Condition] = now
		state.AlertsEmittedToday++
		s.mu.Unlock()
		delivered = append(delivered, ev)
	}
	return delivered
}

// MonitorSummary is one row of the scheduler status view.
type MonitorSummary struct {
	MonitorID           string    `json:"monitor_id"`
	Phase               Phase     `json:"phase"`
	LastRunAt           time.Time `json:"last_run_at"`
	NextDueAt           time.Time `json:"next_due_at"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	AlertsEmittedToday  int       `json:"alerts_emitted_today"`
	LastSentiment       string    `json:"last_sentiment,omitempty"`
	LastConfidence      float64   `json:"last_confidence"`
}

// Summary snapshots every registered monitor.
func (s *Scheduler) Summary() []MonitorSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MonitorSummary, 0, len(s.monitors))
	for id, mon := range s.monitors {
		row := MonitorSummary{
			MonitorID:           id,
			Phase:               mon.phase,
			LastRunAt:           mon.state.LastRunAt,
			NextDueAt:           mon.state.NextDueAt,
			ConsecutiveFailures: mon.state.ConsecutiveFailures,
			AlertsEmittedToday:  mon.state.AlertsEmittedToday,
		}
		if mon.state.LastVerdict != nil {
			row.LastSentiment = string(mon.state.LastVerdict.Sentiment)
			row.LastConfidence = mon.state.LastVerdict.Confidence
		}
		out = append(out, row)
	}
	return out
}
