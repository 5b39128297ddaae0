package main

import (
	"context"
	"errors"
	"flag"
	"math"
	"os"
	ossignal "os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"mbostrength-go/internal/config"
	"mbostrength-go/internal/exchange"
	"mbostrength-go/internal/execution"
	"mbostrength-go/internal/metrics"
	"mbostrength-go/internal/paper"
	"mbostrength-go/internal/risk"
	sig "mbostrength-go/internal/signal"
	"mbostrength-go/internal/strategy"
	"mbostrength-go/internal/telemetry"
	"mbostrength-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	recordPath := flag.String("record", "", "append every feed event to this JSONL file for later replay")
	flag.Parse()

	_ = godotenv.Load()
	boot := util.NewLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		boot.Fatal().Err(err).Msg("invalid config after env overrides")
	}

	log, logCloser := util.NewFileLogger(cfg.App.LogLevel, util.FileOptions{
		Path:       cfg.App.Log.File,
		MaxSizeMB:  cfg.App.Log.MaxSizeMB,
		MaxBackups: cfg.App.Log.MaxBackups,
		MaxAgeDays: cfg.App.Log.MaxAgeDays,
		Compress:   cfg.App.Log.Compress,
	})
	defer logCloser.Close()

	step, err := decimal.NewFromString(cfg.Instrument.PriceStep)
	if err != nil || !step.IsPositive() {
		log.Fatal().Err(err).Str("price_step", cfg.Instrument.PriceStep).Msg("invalid price step")
	}

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	params := cfg.Strategy.Params
	var strat *strategy.MBOStrength
	execOpts := []execution.Option{
		execution.WithLimits(risk.Limits{MaxOrderQty: cfg.Risk.MaxOrderQty}),
		execution.WithPriceSource(func() float64 { return strat.RefPrice() }),
	}

	if cfg.Paper.Enabled {
		ledger := paper.NewLedger(1024)
		recorders := []paper.FillRecorder{ledger}
		if cfg.Paper.FillsPath != "" {
			rec, err := paper.NewJSONLRecorder(cfg.Paper.FillsPath)
			if err != nil {
				log.Fatal().Err(err).Msg("open fills recorder")
			}
			defer rec.Close()
			recorders = append(recorders, rec)
			log.Info().Str("path", rec.Path()).Msg("recording paper fills")
		}
		account := paper.NewAccount(cfg.Paper.StartingCash, cfg.Paper.MaxPositionPerSymbol)
		execOpts = append(execOpts, execution.WithRouter(paper.NewRouter(account, step.InexactFloat64(), recorders...)))
		defer func() {
			marks := map[string]float64{}
			if px := strat.RefPrice(); !math.IsNaN(px) {
				marks[cfg.Instrument.Symbol] = px * step.InexactFloat64()
			}
			snap := account.Snapshot(marks)
			log.Info().
				Float64("starting_cash", account.StartingCash()).
				Float64("equity", snap.Equity).
				Float64("realized_pnl", account.RealizedPnL()).
				Float64("position", account.Position(cfg.Instrument.Symbol)).
				Int("fills", len(ledger.Snapshot())).
				Int("closing_fills", ledger.Closing()).
				Msg("paper account")
		}()
	}

	if cfg.NATS.URL != "" {
		router, err := execution.DialNATS(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATS.URL).Msg("connect nats")
		}
		defer router.Close()
		execOpts = append(execOpts, execution.WithRouter(router))
		log.Info().Str("subject", cfg.NATS.Subject).Msg("publishing intents to nats")
	}

	exec := execution.NewExecutor(log, cfg.Instrument.Symbol, execOpts...)

	var tele *telemetry.Server
	strat = strategy.New(cfg.Instrument.Symbol,
		strategy.WithLogger(log),
		strategy.WithSink(exec),
		strategy.WithStrict(params.Strict),
		strategy.WithWindow(params.TickSize, params.SizeThreshold),
		strategy.WithMaxTicks(params.MaxTicks),
		strategy.WithOrderQty(params.OrderQty),
		strategy.WithRefreshCycle(time.Duration(params.RefreshMs)*time.Millisecond),
		strategy.WithAlpha(params.Alpha),
		strategy.WithPublishHook(func(s sig.Snapshot) { tele.Broadcast(s) }),
	)
	tele = telemetry.NewServer(strat, log)

	feed := exchange.NewFeed(cfg.Feed.Provider, cfg.Instrument.Symbol, log,
		exchange.WithURL(cfg.Feed.URL, cfg.Feed.Subscribe),
		exchange.WithReplay(cfg.Feed.ReplayPath, time.Duration(cfg.Feed.ReplayPaceMs)*time.Millisecond),
		exchange.WithStub(cfg.Feed.StubSeed, time.Duration(cfg.Feed.StubRateMs)*time.Millisecond),
		exchange.WithPriceStep(step),
	)
	events := make(chan sig.Event, 4096)

	var session *exchange.SessionRecorder
	if *recordPath != "" {
		session, err = exchange.NewSessionRecorder(*recordPath, step)
		if err != nil {
			log.Fatal().Err(err).Str("path", *recordPath).Msg("open session recorder")
		}
		defer func() {
			if err := session.Close(); err != nil {
				log.Error().Err(err).Msg("close session recorder")
			}
			log.Info().Str("path", session.Path()).Int("events", session.Count()).Msg("session recorded")
		}()
	}

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("component", name).Msg("component stopped")
				cancel()
			}
		}()
	}

	run("feed", func(ctx context.Context) error {
		err := feed.Run(ctx, events)
		close(events)
		return err
	})
	run("scheduler", strat.Scheduler().Run)
	run("timer", func(ctx context.Context) error {
		return strat.RunTimer(ctx, time.Duration(params.IntervalMs)*time.Millisecond)
	})
	if cfg.App.DashboardAddr != "" {
		run("telemetry", func(ctx context.Context) error {
			return tele.ListenAndServe(ctx, cfg.App.DashboardAddr)
		})
		log.Info().Str("addr", cfg.App.DashboardAddr).Msg("telemetry up")
	}

	log.Info().
		Str("symbol", cfg.Instrument.Symbol).
		Str("feed", cfg.Feed.Provider).
		Int("max_ticks", strat.MaxTicks()).
		Msg("mbo strength engine started")

	for ev := range events {
		if session != nil {
			if err := session.Record(ev); err != nil {
				log.Warn().Err(err).Msg("record event")
			}
		}
		_ = strat.Handle(ev)
	}
	if ctx.Err() == nil {
		log.Info().Msg("feed exhausted, waiting for signal")
		<-ctx.Done()
	}
	log.Info().Int("resting_orders", strat.Book().Orders()).Float64("ema", strat.EMA()).Msg("shutting down")
	tele.Close()
	wg.Wait()
}
