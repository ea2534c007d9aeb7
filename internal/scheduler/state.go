package scheduler

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
	"github.com/ducminhle1904/market-sentinel-bot/internal/groups"
	"github.com/ducminhle1904/market-sentinel-bot/internal/strategy"
)

// Phase is the lifecycle state of one monitor.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseDue     Phase = "due"
	PhaseRunning Phase = "running"
	PhaseCooling Phase = "cooling"
	PhaseFailing Phase = "failing"
)

// failuresBeforeFailing is the consecutive data_unavailable count after
// which a monitor enters Failing and logs a warning.
const failuresBeforeFailing = 3

// backoffCap bounds the exponential retry backoff.
const backoffCap = time.Hour

// MonitorState is the persisted per-monitor record. Everything the diff
// rules and recovery need survives restarts.
type MonitorState struct {
	GroupID             string                              `json:"group_id"`
	SymbolKey           string                              `json:"symbol_key"`
	LastVerdict         *strategy.Verdict                   `json:"last_verdict,omitempty"`
	LastRunAt           time.Time                           `json:"last_run_at"`
	NextDueAt           time.Time                           `json:"next_due_at"`
	ConsecutiveFailures int                                 `json:"consecutive_failures"`
	EntrySnapshot       *strategy.Verdict                   `json:"entry_snapshot,omitempty"`
	AlertsDay           string                              `json:"alerts_day,omitempty"`
	AlertsEmittedToday  int                                 `json:"alerts_emitted_today"`
	LastEmitted         map[groups.AlertCondition]time.Time `json:"last_emitted,omitempty"`
}

// MonitorID builds the canonical monitor key.
func MonitorID(groupID, symbolKey string) string {
	return groupID + "/" + symbolKey
}

// StateStore persists monitor states one file per monitor under
// <root>/monitors/<group_id>/<symbol_key>.json with atomic writes.
type StateStore struct {
	mu   sync.Mutex
	root string
}

func NewStateStore(root string) (*StateStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "monitors"), 0755); err != nil {
		return nil, enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "init")
	}
	return &StateStore{root: root}, nil
}

func (s *StateStore) path(groupID, symbolKey string) string {
	return filepath.Join(s.root, "monitors", groupID, symbolKey+".json")
}

// Save writes one monitor state atomically.
func (s *StateStore) Save(state *MonitorState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(state.GroupID, state.SymbolKey)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "save_state")
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "save_state")
	}
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "save_state")
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "save_state")
	}
	return nil
}

// Load reads one monitor state; a missing file returns (nil, nil).
func (s *StateStore) Load(groupID, symbolKey string) (*MonitorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(groupID, symbolKey))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "load_state")
	}
	var state MonitorState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "load_state")
	}
	return &state, nil
}

// LoadAll reads every persisted monitor state keyed by monitor id.
func (s *StateStore) LoadAll() (map[string]*MonitorState, error) {
	s.mu.Lock()
	base := filepath.Join(s.root, "monitors")
	s.mu.Unlock()

	out := make(map[string]*MonitorState)
	groupsDirs, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "load_all")
	}
	for _, gd := range groupsDirs {
		if !gd.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(base, gd.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || !strings.HasSuffix(name, ".json") {
				continue
			}
			key := strings.TrimSuffix(name, ".json")
			state, err := s.Load(gd.Name(), key)
			if err != nil || state == nil {
				continue
			}
			out[MonitorID(gd.Name(), key)] = state
		}
	}
	return out, nil
}

// Delete removes one monitor state file.
func (s *StateStore) Delete(groupID, symbolKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(groupID, symbolKey)); err != nil && !os.IsNotExist(err) {
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "delete_state")
	}
	return nil
}

// DeleteGroup removes every persisted monitor state for a group, including
// the per-monitor alert dedup counters. Called when the group itself is
// deleted.
func (s *StateStore) DeleteGroup(groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.RemoveAll(filepath.Join(s.root, "monitors", groupID)); err != nil {
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "delete_group_state")
	}
	return nil
}
