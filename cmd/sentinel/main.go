package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/market-sentinel-bot/internal/analyzer"
	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
	"github.com/ducminhle1904/market-sentinel-bot/internal/exchange"
	"github.com/ducminhle1904/market-sentinel-bot/internal/groups"
	"github.com/ducminhle1904/market-sentinel-bot/internal/logger"
	"github.com/ducminhle1904/market-sentinel-bot/internal/monitoring"
	"github.com/ducminhle1904/market-sentinel-bot/internal/notifications"
	"github.com/ducminhle1904/market-sentinel-bot/internal/scheduler"
	"github.com/ducminhle1904/market-sentinel-bot/internal/strategy"
	"github.com/ducminhle1904/market-sentinel-bot/pkg/data"
	"github.com/ducminhle1904/market-sentinel-bot/pkg/reporting"
	"github.com/ducminhle1904/market-sentinel-bot/pkg/types"
)

// Exit codes.
const (
	exitOK       = 0
	exitConfig   = 2
	exitData     = 3
	exitInternal = 4
)

func main() {
	// .env is optional; real env vars win.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(exitConfig)
	}

	app, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(exitInternal)
	}
	defer app.close()

	os.Exit(app.dispatch(os.Args[1], os.Args[2:]))
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: sentinel <command> [flags]

commands:
  group     create | list | get | update | delete | presets | export | import
  symbol    add | remove | enable | disable
  strategy  list | template
  analyze   run one analysis for a symbol or a whole group
  monitor   start the alert scheduler
  report    write an Excel report for a group`)
}

// app bundles the long-lived collaborators every subcommand shares.
type app struct {
	log      *logger.Logger
	manager  *groups.Manager
	registry *strategy.Registry
	provider data.Provider
	orch     *analyzer.Orchestrator
	reporter *reporting.ConsoleReporter
	stateDir string
}

func newApp() (*app, error) {
	stateDir := envOr("SENTINEL_STATE_DIR", "state")
	dataDir := envOr("SENTINEL_DATA_DIR", "data")

	log, err := logger.New("sentinel", logger.LogLevelInfo)
	if err != nil {
		return nil, err
	}

	store, err := groups.NewFileStore(stateDir)
	if err != nil {
		return nil, err
	}
	manager, err := groups.NewManager(store)
	if err != nil {
		return nil, err
	}

	csv := data.NewCSVProvider(dataDir)
	bybit := exchange.NewBybitProvider(exchange.BybitConfig{
		APIKey:    os.Getenv("BYBIT_API_KEY"),
		APISecret: os.Getenv("BYBIT_API_SECRET"),
		Testnet:   os.Getenv("BYBIT_TESTNET") == "true",
	})
	router := data.NewRouterProvider(csv).Route(types.AssetCrypto, bybit)
	provider := data.NewCachedProvider(router)

	registry := strategy.NewRegistry()

	return &app{
		log:      log,
		manager:  manager,
		registry: registry,
		provider: provider,
		orch:     analyzer.New(provider, registry, log),
		reporter: reporting.NewConsoleReporter(),
		stateDir: stateDir,
	}, nil
}

func (a *app) close() {
	_ = a.log.Close()
}

func (a *app) dispatch(command string, args []string) int {
	var err error
	switch command {
	case "group":
		err = a.groupCmd(args)
	case "symbol":
		err = a.symbolCmd(args)
	case "strategy":
		err = a.strategyCmd(args)
	case "analyze":
		err = a.analyzeCmd(args)
	case "monitor":
		err = a.monitorCmd(args)
	case "report":
		err = a.reportCmd(args)
	case "help", "-h", "--help":
		usage()
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		usage()
		return exitConfig
	}
	return exitCode(err)
}

// exitCode maps the engine error taxonomy onto CLI exit codes.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	switch enginerr.KindOf(err) {
	case enginerr.KindParameterValidation, enginerr.KindUnknownStrategy, enginerr.KindUnknownIndicator:
		return exitConfig
	case enginerr.KindDataUnavailable, enginerr.KindInvalidFrame, enginerr.KindInsufficientHistory:
		return exitData
	}
	return exitInternal
}

func (a *app) groupCmd(args []string) error {
	if len(args) < 1 {
		return enginerr.New(enginerr.KindParameterValidation, "cli", "group", "missing subcommand")
	}
	sub, rest := args[0], args[1:]
	fs := flag.NewFlagSet("group "+sub, flag.ExitOnError)
	name := fs.String("name", "", "group name")
	id := fs.String("id", "", "group id")
	description := fs.String("description", "", "group description")
	tags := fs.String("tags", "", "comma-separated tags")
	enabled := fs.Bool("enabled", true, "group enabled")
	strategyName := fs.String("strategy", "", "default strategy for the group")
	paramsJSON := fs.String("params", "", "default strategy params as JSON")
	file := fs.String("file", "", "path for export/import")
	fs.Parse(rest)

	switch sub {
	case "create":
		g, err := a.manager.CreateGroup(*name, *description, splitTags(*tags))
		if err != nil {
			return err
		}
		fmt.Printf("created group %s\n", g.ID)
		return nil

	case "list":
		a.reporter.PrintGroups(a.manager.List())
		return nil

	case "get":
		g, err := a.manager.Get(*id)
		if err != nil {
			return err
		}
		a.reporter.PrintGroup(g)
		return nil

	case "update":
		_, err := a.manager.Update(*id, func(g *groups.Group) error {
			if *name != "" {
				g.Name = *name
			}
			if *description != "" {
				g.Description = *description
			}
			if *tags != "" {
				g.Tags = splitTags(*tags)
			}
			g.Enabled = *enabled
			if *strategyName != "" {
				if _, err := a.registry.Get(*strategyName); err != nil {
					return err
				}
				g.Defaults.StrategyName = *strategyName
			}
			if *paramsJSON != "" {
				var params map[string]any
				if err := json.Unmarshal([]byte(*paramsJSON), &params); err != nil {
					return enginerr.Wrap(err, enginerr.KindParameterValidation, "cli", "group_update")
				}
				g.Defaults.StrategyParams = params
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Printf("updated group %s\n", *id)
		return nil

	case "delete":
		if err := a.manager.DeleteGroup(*id); err != nil {
			return err
		}
		// Orphaned monitor state would resurrect stale dedup counters if a
		// group with the same id is recreated.
		states, err := scheduler.NewStateStore(a.stateDir)
		if err != nil {
			return err
		}
		if err := states.DeleteGroup(*id); err != nil {
			return err
		}
		fmt.Printf("deleted group %s\n", *id)
		return nil

	case "presets":
		installed, err := a.manager.InstallPresets()
		if err != nil {
			return err
		}
		fmt.Printf("installed presets: %s\n", strings.Join(installed, ", "))
		return nil

	case "export":
		if err := a.manager.Export(*id, *file); err != nil {
			return err
		}
		fmt.Printf("exported group %s to %s\n", *id, *file)
		return nil

	case "import":
		g, err := a.manager.Import(*file)
		if err != nil {
			return err
		}
		fmt.Printf("imported group %s\n", g.ID)
		return nil
	}
	return enginerr.New(enginerr.KindParameterValidation, "cli", "group",
		fmt.Sprintf("unknown subcommand %q", sub))
}

func (a *app) symbolCmd(args []string) error {
	if len(args) < 1 {
		return enginerr.New(enginerr.KindParameterValidation, "cli", "symbol", "missing subcommand")
	}
	sub, rest := args[0], args[1:]
	fs := flag.NewFlagSet("symbol "+sub, flag.ExitOnError)
	groupID := fs.String("group", "", "group id")
	symbol := fs.String("symbol", "", "instrument symbol")
	class := fs.String("class", "crypto", "asset class (forex|stocks|crypto|indices|futures)")
	interval := fs.String("interval", "1h", "candle interval")
	period := fs.String("period", "1mo", "history period")
	cadence := fs.Int("cadence", 0, "alert cadence in minutes (0 = inherit)")
	alerts := fs.Bool("alerts", false, "enable the alert policy for this symbol")
	fs.Parse(rest)

	key := groups.SymbolKey(*symbol)

	switch sub {
	case "add":
		assetClass, err := types.ParseAssetClass(*class)
		if err != nil {
			return enginerr.Wrap(err, enginerr.KindParameterValidation, "cli", "symbol_add")
		}
		iv, err := types.ParseInterval(*interval)
		if err != nil {
			return enginerr.Wrap(err, enginerr.KindParameterValidation, "cli", "symbol_add")
		}
		pd, err := types.ParsePeriod(*period)
		if err != nil {
			return enginerr.Wrap(err, enginerr.KindParameterValidation, "cli", "symbol_add")
		}
		cfg := groups.SymbolConfig{
			Symbol:     *symbol,
			AssetClass: assetClass,
			Interval:   iv,
			Period:     pd,
			Enabled:    true,
		}
		if *alerts || *cadence > 0 {
			policy := &groups.AlertPolicy{}
			on := true
			policy.Enabled = &on
			if *cadence > 0 {
				policy.CadenceMinutes = cadence
			}
			cfg.AlertPolicy = policy
		}
		if _, err := a.manager.AddSymbol(*groupID, cfg); err != nil {
			return err
		}
		fmt.Printf("added %s to %s\n", key, *groupID)
		return nil

	case "remove":
		if _, err := a.manager.RemoveSymbol(*groupID, key); err != nil {
			return err
		}
		fmt.Printf("removed %s from %s\n", key, *groupID)
		return nil

	case "enable", "disable":
		if _, err := a.manager.SetSymbolEnabled(*groupID, key, sub == "enable"); err != nil {
			return err
		}
		fmt.Printf("%sd %s in %s\n", sub, key, *groupID)
		return nil
	}
	return enginerr.New(enginerr.KindParameterValidation, "cli", "symbol",
		fmt.Sprintf("unknown subcommand %q", sub))
}

func (a *app) strategyCmd(args []string) error {
	if len(args) < 1 {
		return enginerr.New(enginerr.KindParameterValidation, "cli", "strategy", "missing subcommand")
	}
	switch args[0] {
	case "list":
		for _, name := range a.registry.Names() {
			fmt.Println(name)
		}
		return nil
	case "template":
		if len(args) < 2 {
			return enginerr.New(enginerr.KindParameterValidation, "cli", "strategy", "missing strategy name")
		}
		strat, err := a.registry.Get(args[1])
		if err != nil {
			return err
		}
		a.reporter.PrintTemplate(strat.Name(), strat.ParameterTemplate())
		return nil
	}
	return enginerr.New(enginerr.KindParameterValidation, "cli", "strategy",
		fmt.Sprintf("unknown subcommand %q", args[0]))
}

func (a *app) analyzeCmd(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	groupID := fs.String("group", "", "analyze every enabled member of this group")
	symbol := fs.String("symbol", "", "one-off symbol to analyze")
	class := fs.String("class", "crypto", "asset class")
	interval := fs.String("interval", "1h", "candle interval")
	period := fs.String("period", "1mo", "history period")
	strategyName := fs.String("strategy", strategy.DefaultStrategyName, "strategy name or alias")
	paramsJSON := fs.String("params", "", "strategy params as JSON")
	fs.Parse(args)

	ctx := context.Background()

	if *groupID != "" {
		g, err := a.manager.Get(*groupID)
		if err != nil {
			return err
		}
		for key := range g.Members {
			cfg, err := a.manager.Resolved(*groupID, key)
			if err != nil {
				return err
			}
			if !cfg.Enabled {
				continue
			}
			analysis, err := a.orch.Analyze(ctx, cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", key, err)
				continue
			}
			a.reporter.PrintAnalysis(analysis)
		}
		return nil
	}

	cfg, err := a.adhocConfig(*symbol, *class, *interval, *period, *strategyName, *paramsJSON)
	if err != nil {
		return err
	}
	analysis, err := a.orch.Analyze(ctx, cfg)
	if err != nil {
		return err
	}
	a.reporter.PrintAnalysis(analysis)
	return nil
}

// adhocConfig builds a resolved config for a one-off run outside any group.
func (a *app) adhocConfig(symbol, class, interval, period, strategyName, paramsJSON string) (groups.ResolvedConfig, error) {
	var zero groups.ResolvedConfig
	if symbol == "" {
		return zero, enginerr.New(enginerr.KindParameterValidation, "cli", "analyze", "missing -symbol")
	}
	assetClass, err := types.ParseAssetClass(class)
	if err != nil {
		return zero, enginerr.Wrap(err, enginerr.KindParameterValidation, "cli", "analyze")
	}
	iv, err := types.ParseInterval(interval)
	if err != nil {
		return zero, enginerr.Wrap(err, enginerr.KindParameterValidation, "cli", "analyze")
	}
	pd, err := types.ParsePeriod(period)
	if err != nil {
		return zero, enginerr.Wrap(err, enginerr.KindParameterValidation, "cli", "analyze")
	}
	params := map[string]any{}
	if paramsJSON != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
			return zero, enginerr.Wrap(err, enginerr.KindParameterValidation, "cli", "analyze")
		}
	}

	g := &groups.Group{
		ID:      "adhoc",
		Enabled: true,
		Members: map[string]groups.SymbolConfig{
			groups.SymbolKey(symbol): {
				Symbol:            symbol,
				AssetClass:        assetClass,
				Interval:          iv,
				Period:            pd,
				Enabled:           true,
				StrategyOverrides: params,
			},
		},
		Defaults: groups.GroupDefaults{StrategyName: strategyName},
	}
	cfg, _ := groups.Resolve(g, groups.SymbolKey(symbol))
	return cfg, nil
}

func (a *app) monitorCmd(args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	metricsAddr := fs.String("metrics", envOr("SENTINEL_METRICS_ADDR", ":9090"), "metrics/health listen address")
	fs.Parse(args)

	if len(fs.Args()) > 0 {
		switch fs.Args()[0] {
		case "start":
		case "summary":
			history, err := scheduler.NewHistoryWriter(a.stateDir)
			if err != nil {
				return err
			}
			summary, err := history.Summarize(time.Now())
			if err != nil {
				return err
			}
			a.reporter.PrintAlertSummary(summary)
			return nil
		default:
			return enginerr.New(enginerr.KindParameterValidation, "cli", "monitor",
				fmt.Sprintf("unknown subcommand %q", fs.Args()[0]))
		}
	}

	states, err := scheduler.NewStateStore(a.stateDir)
	if err != nil {
		return err
	}
	history, err := scheduler.NewHistoryWriter(a.stateDir)
	if err != nil {
		return err
	}

	notifier := buildNotifier()
	health := monitoring.NewHealthChecker()
	sched := scheduler.New(a.manager, a.orch, notifier, states, history, a.log, health)

	go func() {
		if err := monitoring.Serve(*metricsAddr, health); err != nil {
			a.log.Error("metrics server failed", "error", err.Error())
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		a.log.Info("shutdown signal received")
		cancel()
	}()

	fmt.Printf("monitoring %d configured monitor(s); metrics on %s\n",
		len(a.manager.ResolvedMonitors()), *metricsAddr)
	return sched.Start(ctx)
}

func (a *app) reportCmd(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	groupID := fs.String("group", "", "group id")
	out := fs.String("out", "report.xlsx", "output workbook path")
	fs.Parse(args)

	g, err := a.manager.Get(*groupID)
	if err != nil {
		return err
	}

	ctx := context.Background()
	analyses := make(map[string]*analyzer.Analysis, len(g.Members))
	for key := range g.Members {
		cfg, err := a.manager.Resolved(*groupID, key)
		if err != nil {
			return err
		}
		if !cfg.Enabled {
			continue
		}
		analysis, err := a.orch.Analyze(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", key, err)
			continue
		}
		analyses[key] = analysis
	}
	if len(analyses) == 0 {
		return enginerr.New(enginerr.KindDataUnavailable, "cli", "report", "no analyzable members")
	}

	if err := reporting.NewExcelReporter().WriteGroupReport(*out, g, analyses); err != nil {
		return enginerr.Wrap(err, enginerr.KindPersistenceFailure, "cli", "report")
	}
	fmt.Printf("wrote %s (%d symbols)\n", *out, len(analyses))
	return nil
}

func buildNotifier() notifications.Notifier {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatID := os.Getenv("TELEGRAM_CHAT_ID")
	console := notifications.NewConsoleNotifier()
	if token != "" && chatID != "" {
		return notifications.NewMultiNotifier(console, notifications.NewTelegramNotifier(token, chatID))
	}
	return console
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
