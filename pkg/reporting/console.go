package reporting

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/market-sentinel-bot/internal/analyzer"
	"github.com/ducminhle1904/market-sentinel-bot/internal/groups"
	"github.com/ducminhle1904/market-sentinel-bot/internal/notifications"
	"github.com/ducminhle1904/market-sentinel-bot/internal/scheduler"
	"github.com/ducminhle1904/market-sentinel-bot/internal/strategy"
)

// ConsoleReporter renders analyses, groups and scheduler status as tables.
type ConsoleReporter struct{}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

func sentimentEmoji(s strategy.Sentiment) string {
	switch s {
	case strategy.SentimentBullish:
		return "🟢"
	case strategy.SentimentBearish:
		return "🔴"
	}
	return "⚪"
}

// PrintAnalysis renders one verdict with its snapshot and risk levels.
func (r *ConsoleReporter) PrintAnalysis(a *analyzer.Analysis) {
	v := a.Verdict

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("ANALYSIS %s (%s, %s)", a.SymbolKey, a.Request.Interval, a.StrategyName))
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Sentiment", fmt.Sprintf("%s %s", sentimentEmoji(v.Sentiment), v.Sentiment)},
		{"Strength", string(v.Strength)},
		{"Confidence", fmt.Sprintf("%.2f", v.Confidence)},
		{"Confirmations", fmt.Sprintf("buy %d / sell %d", v.ConfirmationsBuy, v.ConfirmationsSell)},
		{"Latest Close", fmt.Sprintf("%.5f", v.LatestClose)},
		{"Completeness", fmt.Sprintf("%.0f%%", a.Completeness*100)},
		{"Bars", fmt.Sprintf("%d", a.Bars)},
	})
	if len(v.Reasons) > 0 {
		t.AppendRow(table.Row{"Reasons", strings.Join(v.Reasons, ", ")})
	}

	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Stop Long", fmt.Sprintf("%.5f", v.Risk.StopLong)},
		{"Target Long", fmt.Sprintf("%.5f", v.Risk.TargetLong)},
		{"Stop Short", fmt.Sprintf("%.5f", v.Risk.StopShort)},
		{"Target Short", fmt.Sprintf("%.5f", v.Risk.TargetShort)},
		{"ATR Bands", fmt.Sprintf("[%.5f, %.5f]", v.Bands.Lower, v.Bands.Upper)},
	})
	if v.Bands.ATR > 0 {
		for _, mult := range []float64{1.5, 2, 3} {
			t.AppendRow(table.Row{
				fmt.Sprintf("Band %.1fx ATR", mult),
				fmt.Sprintf("[%.5f, %.5f]", v.LatestClose-mult*v.Bands.ATR, v.LatestClose+mult*v.Bands.ATR),
			})
		}
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 15, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 45, Align: text.AlignLeft},
	})
	t.Render()

	if len(v.Statuses) > 0 {
		r.printStatuses(v)
	}
	if len(v.Crossovers) > 0 {
		r.printCrossovers(v)
	}
	fmt.Println()
}

func (r *ConsoleReporter) printStatuses(v strategy.Verdict) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("OSCILLATORS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Indicator", "Value", "Status"})

	names := make([]string, 0, len(v.Statuses))
	for name := range v.Statuses {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := "-"
		if raw, ok := v.Snapshot[name]; ok {
			value = fmt.Sprintf("%.4f", raw)
		}
		t.AppendRow(table.Row{name, value, v.Statuses[name]})
	}
	t.Render()
}

func (r *ConsoleReporter) printCrossovers(v strategy.Verdict) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("RECENT CROSSOVERS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Source", "Kind", "Bar", "When"})
	for _, c := range v.Crossovers {
		when := "-"
		if !c.Timestamp.IsZero() {
			when = c.Timestamp.Format("2006-01-02 15:04")
		}
		t.AppendRow(table.Row{c.Source, string(c.Kind), c.BarIndex, when})
	}
	t.Render()
}

// PrintGroups renders the group list.
func (r *ConsoleReporter) PrintGroups(list []*groups.Group) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("GROUPS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Name", "Members", "Enabled", "Strategy", "Updated"})
	for _, g := range list {
		strategyName := g.Defaults.StrategyName
		if strategyName == "" {
			strategyName = "(default)"
		}
		t.AppendRow(table.Row{
			g.ID, g.Name, len(g.Members), g.Enabled, strategyName,
			g.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	t.Render()
	fmt.Println()
}

// PrintGroup renders one group with its members.
func (r *ConsoleReporter) PrintGroup(g *groups.Group) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("GROUP %s — %s", g.ID, g.Name))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Class", "Interval", "Period", "Enabled", "Overrides"})

	keys := make([]string, 0, len(g.Members))
	for key := range g.Members {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		m := g.Members[key]
		overrides := len(m.IndicatorOverrides) + len(m.StrategyOverrides)
		if m.AlertPolicy != nil {
			overrides++
		}
		t.AppendRow(table.Row{key, string(m.AssetClass), string(m.Interval), string(m.Period), m.Enabled, overrides})
	}
	t.Render()
	fmt.Println()
}

// PrintMonitorSummary renders scheduler status rows.
func (r *ConsoleReporter) PrintMonitorSummary(rows []scheduler.MonitorSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("MONITORS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Monitor", "Phase", "Last Run", "Next Due", "Failures", "Alerts Today", "Sentiment", "Confidence"})
	sort.Slice(rows, func(i, j int) bool { return rows[i].MonitorID < rows[j].MonitorID })
	for _, row := range rows {
		lastRun := "-"
		if !row.LastRunAt.IsZero() {
			lastRun = row.LastRunAt.Format("15:04:05")
		}
		t.AppendRow(table.Row{
			row.MonitorID, string(row.Phase), lastRun,
			row.NextDueAt.Format("15:04:05"),
			row.ConsecutiveFailures, row.AlertsEmittedToday,
			row.LastSentiment, fmt.Sprintf("%.2f", row.LastConfidence),
		})
	}
	t.Render()
	fmt.Println()
}

// PrintAlertSummary renders last-24h alert counts.
func (r *ConsoleReporter) PrintAlertSummary(s *scheduler.AlertSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("ALERTS %s — %s (%d total)",
		s.From.UTC().Format("01-02 15:04"), s.To.UTC().Format("01-02 15:04"), s.Total))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Dimension", "Key", "Count"})

	symbols := make([]string, 0, len(s.BySymbol))
	for key := range s.BySymbol {
		symbols = append(symbols, key)
	}
	sort.Strings(symbols)
	for _, key := range symbols {
		t.AppendRow(table.Row{"symbol", key, s.BySymbol[key]})
	}
	conditions := make([]string, 0, len(s.ByCondition))
	for key := range s.ByCondition {
		conditions = append(conditions, string(key))
	}
	sort.Strings(conditions)
	for _, key := range conditions {
		t.AppendRow(table.Row{"condition", key, s.ByCondition[groups.AlertCondition(key)]})
	}
	severities := make([]string, 0, len(s.BySeverity))
	for key := range s.BySeverity {
		severities = append(severities, string(key))
	}
	sort.Strings(severities)
	for _, key := range severities {
		t.AppendRow(table.Row{"severity", key, s.BySeverity[notifications.Severity(key)]})
	}
	t.Render()
	fmt.Println()
}

// PrintTemplate renders a strategy parameter template.
func (r *ConsoleReporter) PrintTemplate(name string, tmpl strategy.Template) {
	if len(tmpl) == 0 {
		fmt.Printf("strategy %s has no configurable parameters\n", name)
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("PARAMETERS — %s", name))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Name", "Kind", "Default", "Range", "Role"})
	for _, p := range tmpl {
		rangeStr := fmt.Sprintf("[%g, %g]", p.Min, p.Max)
		if p.Kind == strategy.ParamEnum {
			rangeStr = strings.Join(p.Values, " | ")
		} else if p.Kind == strategy.ParamBool {
			rangeStr = "true | false"
		}
		t.AppendRow(table.Row{p.Name, string(p.Kind), fmt.Sprintf("%v", p.Default), rangeStr, p.Role})
	}
	t.Render()
	fmt.Println()
}
