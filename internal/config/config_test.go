package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "mbostrength-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.Log.File != "logs/mbo.log" || cfg.App.Log.MaxSizeMB != 10 {
		t.Fatalf("unexpected log config: %+v", cfg.App.Log)
	}
	if cfg.App.Log.MaxBackups != 5 {
		t.Fatalf("expected default max backups kept, got %d", cfg.App.Log.MaxBackups)
	}
	if cfg.Instrument.Symbol != "NQZ4" || cfg.Instrument.PriceStep != "0.25" {
		t.Fatalf("unexpected instrument: %+v", cfg.Instrument)
	}
	if cfg.Feed.Provider != "replay" || cfg.Feed.ReplayPaceMs != 5 {
		t.Fatalf("unexpected feed: %+v", cfg.Feed)
	}
	p := cfg.Strategy.Params
	if p.MaxTicks != 250 || p.OrderQty != 2 || p.Alpha != 0.9 || !p.Strict {
		t.Fatalf("unexpected strategy params: %+v", p)
	}
	if p.TickSize != 1 || p.SizeThreshold != 10 || p.IntervalMs != 1000 || p.RefreshMs != 16 {
		t.Fatalf("expected defaults for unset params, got %+v", p)
	}
	if cfg.Risk.MaxOrderQty != 5 {
		t.Fatalf("unexpected risk: %+v", cfg.Risk)
	}
	if cfg.Paper.StartingCash != 5000 {
		t.Fatalf("expected starting cash 5000, got %.2f", cfg.Paper.StartingCash)
	}
	if cfg.NATS.Subject != "intents.NQZ4" {
		t.Fatalf("unexpected nats subject %s", cfg.NATS.Subject)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	cfg.Strategy.Params.MaxTicks = 10001
	cfg.Strategy.Params.Alpha = 1.5
	cfg.Feed.Provider = "websocket"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"max_ticks", "alpha", "feed.url"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestValidateAlphaBounds(t *testing.T) {
	cases := map[float64]bool{0: true, 0.99: true, 1: true, -0.01: false, 1.01: false}
	for alpha, ok := range cases {
		cfg := Default()
		cfg.Strategy.Params.Alpha = alpha
		if err := cfg.Validate(); (err == nil) != ok {
			t.Fatalf("alpha %v: expected ok=%t, got %v", alpha, ok, err)
		}
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("strategy:\n  params:\n    max_ticks: 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected invalid max_ticks to fail")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg := Default()
	cfg.Strategy.Params.MaxTicks = 123
	if err := Save(path, &cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Strategy.Params.MaxTicks != 123 {
		t.Fatalf("expected 123, got %d", loaded.Strategy.Params.MaxTicks)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{"MBO_FEED_URL": "ws://x", "MBO_LOG_LEVEL": "debug"}
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if cfg.Feed.URL != "ws://x" || cfg.App.LogLevel != "debug" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Feed.Provider != "stub" {
		t.Fatalf("unset env must not override provider")
	}
}
