package scheduler

import (
	"math"
	"time"

	"github.com/ducminhle1904/market-sentinel-bot/internal/groups"
	"github.com/ducminhle1904/market-sentinel-bot/internal/indicators"
	"github.com/ducminhle1904/market-sentinel-bot/internal/notifications"
	"github.com/ducminhle1904/market-sentinel-bot/internal/strategy"
)

// validityConfidenceDrop is how far confidence may fall below the entry
// confidence before the thesis is considered lost.
const validityConfidenceDrop = 0.2

// severityFor maps conditions onto the default severity grading.
func severityFor(cond groups.AlertCondition, critical []groups.AlertCondition) notifications.Severity {
	for _, c := range critical {
		if c == cond {
			return notifications.SeverityCritical
		}
	}
	switch cond {
	case groups.CondSentimentFlip, groups.CondValidityLoss:
		return notifications.SeverityWarn
	}
	return notifications.SeverityInfo
}

// diffVerdicts applies every armed diff rule independently and returns one
// event per triggered condition. last may be nil on the first run; only
// rules that need a previous verdict are skipped then.
func diffVerdicts(now time.Time, policy groups.ResolvedAlertPolicy, state *MonitorState,
	groupID, symbolKey string, next strategy.Verdict) []notifications.Event {

	monitorID := MonitorID(groupID, symbolKey)
	base := func(cond groups.AlertCondition) notifications.Event {
		return notifications.Event{
			Timestamp: now,
			GroupID:   groupID,
			SymbolKey: symbolKey,
			MonitorID: monitorID,
			Condition: cond,
			Severity:  severityFor(cond, nil),
		}
	}

	var events []notifications.Event
	last := state.LastVerdict

	if policy.HasCondition(groups.CondSentimentFlip) && last != nil {
		if flipped(last.Sentiment, next.Sentiment, last.Confidence, next.Confidence) {
			ev := base(groups.CondSentimentFlip)
			ev.SentimentFlip = &notifications.SentimentFlipPayload{
				OldSentiment: last.Sentiment,
				NewSentiment: next.Sentiment,
				Deltas:       snapshotDeltas(last.Snapshot, next.Snapshot),
			}
			events = append(events, ev)
		}
	}

	if policy.HasCondition(groups.CondConfidenceDrift) && last != nil {
		delta := next.Confidence - last.Confidence
		if math.Abs(delta) >= policy.MinConfidenceDrift {
			ev := base(groups.CondConfidenceDrift)
			ev.ConfidenceDrift = &notifications.ConfidenceDriftPayload{
				OldConfidence: last.Confidence,
				NewConfidence: next.Confidence,
				Delta:         delta,
			}
			events = append(events, ev)
		}
	}

	if policy.HasCondition(groups.CondATRBandShift) && last != nil {
		upperShift := math.Abs(next.Bands.Upper - last.Bands.Upper)
		lowerShift := math.Abs(next.Bands.Lower - last.Bands.Lower)
		if upperShift >= policy.MinBandShiftUnits || lowerShift >= policy.MinBandShiftUnits {
			ev := base(groups.CondATRBandShift)
			ev.ATRBandShift = &notifications.ATRBandShiftPayload{
				OldBands:     last.Bands,
				NewBands:     next.Bands,
				TrailingStop: trailingStop(next),
			}
			events = append(events, ev)
		}
	}

	if policy.HasCondition(groups.CondValidityLoss) && state.EntrySnapshot != nil {
		entry := state.EntrySnapshot
		disagrees := next.Sentiment != strategy.SentimentNeutral && next.Sentiment != entry.Sentiment
		confidenceFell := next.Confidence < entry.Confidence-validityConfidenceDrop
		if disagrees || confidenceFell {
			ev := base(groups.CondValidityLoss)
			ev.ValidityLoss = &notifications.ValidityLossPayload{
				EntrySnapshot: *entry,
				Current:       next,
			}
			events = append(events, ev)
		}
	}

	if policy.HasCondition(groups.CondNewCrossover) {
		var known []indicators.CrossoverEvent
		if last != nil {
			known = last.Crossovers
		}
		for _, cross := range next.Crossovers {
			if containsCrossover(known, cross) {
				continue
			}
			ev := base(groups.CondNewCrossover)
			ev.NewCrossover = &notifications.NewCrossoverPayload{Crossover: cross}
			events = append(events, ev)
		}
	}

	return events
}

// flipped implements the sentiment_flip rule: both sides non-neutral, or a
// flip involving neutral when the new confidence is strong enough.
func flipped(old, next strategy.Sentiment, oldConf, nextConf float64) bool {
	if old == next {
		return false
	}
	if old != strategy.SentimentNeutral && next != strategy.SentimentNeutral {
		return true
	}
	return nextConf >= 0.5 || oldConf >= 0.5
}

// trailingStop suggests a stop on the defensive side of the new bands.
func trailingStop(v strategy.Verdict) float64 {
	if v.Sentiment == strategy.SentimentBearish {
		return v.Bands.Upper
	}
	return v.Bands.Lower
}

// snapshotDeltas reports per-indicator changes between verdicts.
func snapshotDeltas(old, next map[string]float64) map[string]float64 {
	if old == nil || next == nil {
		return nil
	}
	out := make(map[string]float64)
	for k, nv := range next {
		if ov, ok := old[k]; ok && !math.IsNaN(ov) && !math.IsNaN(nv) && ov != nv {
			out[k] = nv - ov
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func containsCrossover(haystack []indicators.CrossoverEvent, needle indicators.CrossoverEvent) bool {
	for _, c := range haystack {
		if c.Source == needle.Source && c.Kind == needle.Kind && c.Timestamp.Equal(needle.Timestamp) {
			return true
		}
	}
	return false
}
