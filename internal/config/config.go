// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging.
type App struct {
	Name          string `yaml:"name"`
	Env           string `yaml:"env"`
	MetricsAddr   string `yaml:"metrics_addr"`
	DashboardAddr string `yaml:"dashboard_addr"`
	LogLevel      string `yaml:"log_level"`
	Log           Log    `yaml:"log"`
}

// Log configures optional rotating file output next to stdout.
type Log struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Instrument describes the single traded instrument.
type Instrument struct {
	Symbol string `yaml:"symbol"`
	// PriceStep is the venue price increment; feed prices divided by it give integer ticks.
	PriceStep string `yaml:"price_step"`
}

// Feed selects and configures the market-by-order event source.
type Feed struct {
	Provider     string `yaml:"provider"` // stub|websocket|replay
	URL          string `yaml:"url"`
	Subscribe    string `yaml:"subscribe"` // optional raw message sent after connect
	ReplayPath   string `yaml:"replay_path"`
	ReplayPaceMs int    `yaml:"replay_pace_ms"`
	StubSeed     int64  `yaml:"stub_seed"`
	StubRateMs   int    `yaml:"stub_rate_ms"`
}

// StrategyParams groups tunable knobs for the strength strategy.
type StrategyParams struct {
	MaxTicks      int     `yaml:"max_ticks"`
	TickSize      int     `yaml:"tick_size"`
	SizeThreshold int64   `yaml:"size_threshold"`
	OrderQty      int     `yaml:"order_qty"`
	RefreshMs     int     `yaml:"refresh_ms"`
	IntervalMs    int     `yaml:"interval_ms"`
	Alpha         float64 `yaml:"alpha"` // EMA weight of the previous average
	Strict        bool    `yaml:"strict"`
}

// Strategy specifies which strategy is active along with the parameter bundle.
type Strategy struct {
	Mode   string         `yaml:"mode"`
	Params StrategyParams `yaml:"params"`
}

// Risk encodes guard-rails for how much size the executor may send.
type Risk struct {
	MaxOrderQty int `yaml:"max_order_qty"`
}

// Paper captures paper-trading settings.
type Paper struct {
	Enabled              bool    `yaml:"enabled"`
	StartingCash         float64 `yaml:"starting_cash"`
	MaxPositionPerSymbol float64 `yaml:"max_position_per_symbol"`
	FillsPath            string  `yaml:"fills_path"`
}

// NATS configures the optional intent publisher.
type NATS struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App        App        `yaml:"app"`
	Instrument Instrument `yaml:"instrument"`
	Feed       Feed       `yaml:"feed"`
	Strategy   Strategy   `yaml:"strategy"`
	Risk       Risk       `yaml:"risk"`
	Paper      Paper      `yaml:"paper"`
	NATS       NATS       `yaml:"nats"`
}

// Default returns a configuration usable without a file: stub feed, paper fills.
func Default() Config {
	return Config{
		App: App{
			Name:          "mbostrength",
			Env:           "dev",
			MetricsAddr:   ":9102",
			DashboardAddr: ":8086",
			LogLevel:      "info",
			Log:           Log{MaxSizeMB: 50, MaxBackups: 5, MaxAgeDays: 14},
		},
		Instrument: Instrument{Symbol: "ESZ4", PriceStep: "0.25"},
		Feed:       Feed{Provider: "stub", StubSeed: 1, StubRateMs: 20},
		Strategy: Strategy{
			Mode: "mbo_strength",
			Params: StrategyParams{
				MaxTicks:      400,
				TickSize:      1,
				SizeThreshold: 10,
				OrderQty:      10,
				RefreshMs:     16,
				IntervalMs:    1000,
				Alpha:         0.99,
			},
		},
		Risk:  Risk{MaxOrderQty: 10},
		Paper: Paper{Enabled: true, FillsPath: "data/fills.jsonl"},
	}
}

// Validate checks ranges and enums.
func (c *Config) Validate() error {
	var errs []error
	p := c.Strategy.Params
	if p.MaxTicks < 1 || p.MaxTicks > 10000 {
		errs = append(errs, fmt.Errorf("strategy.params.max_ticks must be 1-10000, got %d", p.MaxTicks))
	}
	if p.TickSize < 1 {
		errs = append(errs, fmt.Errorf("strategy.params.tick_size must be >=1, got %d", p.TickSize))
	}
	if p.SizeThreshold < 0 {
		errs = append(errs, fmt.Errorf("strategy.params.size_threshold must be >=0"))
	}
	if p.OrderQty < 1 {
		errs = append(errs, fmt.Errorf("strategy.params.order_qty must be >=1, got %d", p.OrderQty))
	}
	if p.IntervalMs < 1 {
		errs = append(errs, fmt.Errorf("strategy.params.interval_ms must be >=1"))
	}
	if !(p.Alpha >= 0 && p.Alpha <= 1) {
		errs = append(errs, fmt.Errorf("strategy.params.alpha must be 0-1, got %v", p.Alpha))
	}
	switch strings.ToLower(c.Feed.Provider) {
	case "stub", "websocket", "replay":
	default:
		errs = append(errs, fmt.Errorf("feed.provider %q unknown", c.Feed.Provider))
	}
	if strings.EqualFold(c.Feed.Provider, "websocket") && c.Feed.URL == "" {
		errs = append(errs, errors.New("feed.url required for websocket provider"))
	}
	if strings.EqualFold(c.Feed.Provider, "replay") && c.Feed.ReplayPath == "" {
		errs = append(errs, errors.New("feed.replay_path required for replay provider"))
	}
	if c.Instrument.Symbol == "" {
		errs = append(errs, errors.New("instrument.symbol required"))
	}
	return errors.Join(errs...)
}

// ApplyEnv overrides selected fields from MBO_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("MBO_FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := getenv("MBO_FEED_PROVIDER"); v != "" {
		c.Feed.Provider = v
	}
	if v := getenv("MBO_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := getenv("MBO_LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
}

// Load reads a YAML file from disk over the defaults and validates the result.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
