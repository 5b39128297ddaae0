package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mbostrength-go/internal/exchange"
	"mbostrength-go/internal/execution"
	"mbostrength-go/internal/paper"
	"mbostrength-go/internal/risk"
	sig "mbostrength-go/internal/signal"
	"mbostrength-go/internal/strategy"
)

const symbol = "ESZ4"

// askHeavy rests five large asks just above 100.00 and a small bid below, then prints at 100.00.
var askHeavy = []string{
	`{"type":"send","id":"a1","side":"ask","price":"100.25","size":200}`,
	`{"type":"send","id":"a2","side":"ask","price":"100.50","size":200}`,
	`{"type":"send","id":"a3","side":"ask","price":"100.75","size":200}`,
	`{"type":"send","id":"a4","side":"ask","price":"101.00","size":200}`,
	`{"type":"send","id":"a5","side":"ask","price":"101.25","size":200}`,
	`{"type":"send","id":"b1","side":"bid","price":"99.75","size":20}`,
	`{"type":"cancel","id":"ghost"}`,
	`{"type":"trade","price":"100.00","size":1}`,
}

// bidHeavy pulls the asks and stacks the bid side.
var bidHeavy = []string{
	`{"type":"cancel","id":"a1"}`,
	`{"type":"cancel","id":"a2"}`,
	`{"type":"cancel","id":"a3"}`,
	`{"type":"cancel","id":"a4"}`,
	`{"type":"cancel","id":"a5"}`,
	`{"type":"replace","id":"b1","price":"99.75","size":220}`,
	`{"type":"send","id":"b2","side":"bid","price":"99.50","size":200}`,
	`{"type":"send","id":"b3","side":"bid","price":"99.25","size":200}`,
	`{"type":"trade","price":"100.00","size":1}`,
}

func writeSession(t *testing.T, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write session: %v", err)
	}
	return path
}

func replay(t *testing.T, strat *strategy.MBOStrength, path string, step decimal.Decimal) {
	t.Helper()
	feed := exchange.NewFeed(exchange.ProviderReplay, symbol, zerolog.Nop(),
		exchange.WithReplay(path, 0),
		exchange.WithPriceStep(step),
	)
	events := make(chan sig.Event, 64)
	if err := feed.Run(context.Background(), events); err != nil {
		t.Fatalf("replay: %v", err)
	}
	close(events)
	for ev := range events {
		_ = strat.Handle(ev)
	}
	strat.Scheduler().Drain()
}

func TestReplayDrivesPaperRoundTrip(t *testing.T) {
	step := decimal.RequireFromString("0.25")

	fillsPath := filepath.Join(t.TempDir(), "fills", "fills.jsonl")
	recorder, err := paper.NewJSONLRecorder(fillsPath)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	ledger := paper.NewLedger(16)
	account := paper.NewAccount(100000, 50)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var strat *strategy.MBOStrength
	exec := execution.NewExecutor(logger, symbol,
		execution.WithLimits(risk.Limits{MaxOrderQty: 10}),
		execution.WithPriceSource(func() float64 { return strat.RefPrice() }),
		execution.WithRouter(paper.NewRouter(account, step.InexactFloat64(), ledger, recorder)),
	)
	strat = strategy.New(symbol,
		strategy.WithLogger(logger),
		strategy.WithSink(exec),
		strategy.WithMaxTicks(10),
		strategy.WithRefreshCycle(0),
	)

	replay(t, strat, writeSession(t, "open.jsonl", askHeavy), step)

	ind := strat.Indicators()
	if ind.Undefined() || ind.Strength <= strategy.EntryStrength || ind.Deviation <= strategy.EntryDeviation {
		t.Fatalf("expected ask-heavy indicators above entry thresholds, got %+v", ind)
	}
	if tr := strat.OnTick(); tr.To != strategy.Long {
		t.Fatalf("expected long entry, got %+v", tr)
	}
	if strat.EMA() != 400 {
		t.Fatalf("expected EMA seeded at the 400 tick trade, got %v", strat.EMA())
	}
	if got := account.Position(symbol); got != 10 {
		t.Fatalf("expected paper position 10, got %v", got)
	}
	fill, ok := ledger.Last()
	if !ok || fill.Side != execution.Buy || fill.Price != 100 {
		t.Fatalf("unexpected opening fill %+v", fill)
	}

	replay(t, strat, writeSession(t, "close.jsonl", bidHeavy), step)

	if tr := strat.OnTick(); tr.To != strategy.Flat || tr.Action != execution.Close {
		t.Fatalf("expected long exit, got %+v", tr)
	}
	if got := account.Position(symbol); got != 0 {
		t.Fatalf("expected flat paper position, got %v", got)
	}
	if n := strat.Book().Orders(); n != 3 {
		t.Fatalf("expected three resting bids, got %d", n)
	}
	if recorder.Path() != fillsPath {
		t.Fatalf("unexpected recorder path %s", recorder.Path())
	}
	snap := account.Snapshot(map[string]float64{symbol: 100})
	if account.StartingCash() != 100000 || snap.Equity != account.StartingCash()+account.RealizedPnL() {
		t.Fatalf("flat account equity %v should be starting cash plus realized pnl %v", snap.Equity, account.RealizedPnL())
	}
	if len(ledger.Snapshot()) != 2 || ledger.Closing() != 1 {
		t.Fatalf("expected two fills with one closing, got %d", len(ledger.Snapshot()))
	}
	if ledger.Closing() != 1 {
		t.Fatalf("expected one closing fill, got %d", ledger.Closing())
	}
	if !strings.Contains(buf.String(), "submit order") || !strings.Contains(buf.String(), "event dropped") {
		t.Fatalf("expected submit and drop logs, got %s", buf.String())
	}

	if err := recorder.Close(); err != nil {
		t.Fatalf("close recorder: %v", err)
	}
	file, err := os.Open(fillsPath)
	if err != nil {
		t.Fatalf("open fills: %v", err)
	}
	defer file.Close()
	var fills []execution.Fill
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var f execution.Fill
		if err := json.Unmarshal(scanner.Bytes(), &f); err != nil {
			t.Fatalf("decode fill: %v", err)
		}
		fills = append(fills, f)
	}
	if len(fills) != 2 || fills[1].Side != execution.Sell || !fills[1].Closing {
		t.Fatalf("unexpected recorded fills %+v", fills)
	}
}

func TestStubFeedKeepsBookConsistent(t *testing.T) {
	strat := strategy.New(symbol, strategy.WithRefreshCycle(0), strategy.WithStrict(true))
	gen := exchange.NewGenerator(11)
	for i := 0; i < 5000; i++ {
		if err := strat.Handle(gen.Next(time.Unix(int64(i), 0))); err != nil {
			t.Fatalf("event %d rejected: %v", i, err)
		}
	}
	strat.Scheduler().Drain()

	snap, ok := strat.Snapshot()
	if !ok {
		t.Fatalf("expected a published snapshot after trades")
	}
	want := (snap.Ask.VolumeStrength - snap.Bid.VolumeStrength) * 100
	if snap.Indicators.Strength != want {
		t.Fatalf("snapshot strength %v does not match its side stats %v", snap.Indicators.Strength, want)
	}
}
