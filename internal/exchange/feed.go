// Package exchange hosts market-by-order event sources.
package exchange

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mbostrength-go/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic order flow (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderWebsocket streams JSON market-by-order messages from a websocket endpoint.
	ProviderWebsocket = "websocket"
	// ProviderReplay reads JSON lines recorded from a websocket session.
	ProviderReplay = "replay"
)

// Feed represents a pluggable market-by-order stream for one instrument.
type Feed struct {
	provider   string
	symbol     string
	log        zerolog.Logger
	url        string
	subscribe  string
	replayPath string
	replayPace time.Duration
	priceStep  decimal.Decimal
	stubSeed   int64
	stubRate   time.Duration
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const defaultStubRate = 20 * time.Millisecond

// WithURL sets the websocket endpoint and an optional raw subscribe message.
func WithURL(url, subscribe string) Option {
	return func(f *Feed) {
		f.url = url
		f.subscribe = subscribe
	}
}

// WithReplay sets the JSONL file to replay and the delay between events.
func WithReplay(path string, pace time.Duration) Option {
	return func(f *Feed) {
		f.replayPath = path
		if pace > 0 {
			f.replayPace = pace
		}
	}
}

// WithPriceStep sets the venue price increment used to convert prices to ticks.
func WithPriceStep(step decimal.Decimal) Option {
	return func(f *Feed) {
		if step.IsPositive() {
			f.priceStep = step
		}
	}
}

// WithStub configures the synthetic generator.
func WithStub(seed int64, rate time.Duration) Option {
	return func(f *Feed) {
		f.stubSeed = seed
		if rate > 0 {
			f.stubRate = rate
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider, symbol string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:  strings.ToLower(provider),
		symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		log:       log,
		priceStep: decimal.NewFromInt(1),
		stubSeed:  1,
		stubRate:  defaultStubRate,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Symbol is the instrument this feed streams.
func (f *Feed) Symbol() string { return f.symbol }

// Run pushes events onto the provided channel until the context is canceled or a finite
// source is exhausted.
func (f *Feed) Run(ctx context.Context, out chan<- signal.Event) error {
	switch f.provider {
	case ProviderWebsocket:
		return f.runWebsocket(ctx, out)
	case ProviderReplay:
		return f.runReplay(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

func emit(ctx context.Context, out chan<- signal.Event, ev signal.Event) error {
	select {
	case out <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
