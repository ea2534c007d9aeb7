package scheduler

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
	"github.com/ducminhle1904/market-sentinel-bot/internal/groups"
	"github.com/ducminhle1904/market-sentinel-bot/internal/notifications"
)

// HistoryWriter appends emitted alert events to a daily JSONL file under
// <root>/alerts_history/<YYYY-MM-DD>.jsonl. The log is append-only.
type HistoryWriter struct {
	mu   sync.Mutex
	root string
}

func NewHistoryWriter(root string) (*HistoryWriter, error) {
	if err := os.MkdirAll(filepath.Join(root, "alerts_history"), 0755); err != nil {
		return nil, enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "history_init")
	}
	return &HistoryWriter{root: root}, nil
}

func (h *HistoryWriter) path(day time.Time) string {
	return filepath.Join(h.root, "alerts_history", day.UTC().Format("2006-01-02")+".jsonl")
}

// Append writes one event as a JSON line.
func (h *HistoryWriter) Append(event notifications.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := os.OpenFile(h.path(event.Timestamp), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "history_append")
	}
	defer file.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "history_append")
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "history_append")
	}
	return nil
}

// ReadDay loads every event logged on a given UTC day.
func (h *HistoryWriter) ReadDay(day time.Time) ([]notifications.Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := os.Open(h.path(day))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "history_read")
	}
	defer file.Close()

	var events []notifications.Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var ev notifications.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue // tolerate a torn trailing line
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return events, enginerr.Wrap(err, enginerr.KindPersistenceFailure, "scheduler", "history_read")
	}
	return events, nil
}

// AlertSummary aggregates alert counts over a trailing window.
type AlertSummary struct {
	From        time.Time                      `json:"from"`
	To          time.Time                      `json:"to"`
	Total       int                            `json:"total"`
	BySymbol    map[string]int                 `json:"by_symbol"`
	ByCondition map[groups.AlertCondition]int  `json:"by_condition"`
	BySeverity  map[notifications.Severity]int `json:"by_severity"`
}

// Summarize counts events emitted during the 24 hours ending at now. The
// window spans at most two daily files.
func (h *HistoryWriter) Summarize(now time.Time) (*AlertSummary, error) {
	from := now.Add(-24 * time.Hour)
	summary := &AlertSummary{
		From:        from,
		To:          now,
		BySymbol:    make(map[string]int),
		ByCondition: make(map[groups.AlertCondition]int),
		BySeverity:  make(map[notifications.Severity]int),
	}

	days := []time.Time{from}
	if from.UTC().Format("2006-01-02") != now.UTC().Format("2006-01-02") {
		days = append(days, now)
	}
	for _, day := range days {
		events, err := h.ReadDay(day)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			if ev.Timestamp.Before(from) || ev.Timestamp.After(now) {
				continue
			}
			summary.Total++
			summary.BySymbol[ev.SymbolKey]++
			summary.ByCondition[ev.Condition]++
			summary.BySeverity[ev.Severity]++
		}
	}
	return summary, nil
}
