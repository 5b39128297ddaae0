// Package strategy turns the market-by-order book into strength signals and position intents.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"mbostrength-go/internal/book"
	"mbostrength-go/internal/execution"
	"mbostrength-go/internal/metrics"
	"mbostrength-go/internal/signal"
)

const (
	// MinMaxTicks and MaxMaxTicks bound the runtime-tunable scan depth.
	MinMaxTicks = 1
	MaxMaxTicks = 10000
	// DefaultMaxTicks is the scan depth used when none is configured.
	DefaultMaxTicks = 400
	// DefaultOrderQty is the quantity attached to every intent.
	DefaultOrderQty = 10
	// DefaultRefreshCycle is how long a wake waits so a burst of events lands in one pass.
	DefaultRefreshCycle = 16 * time.Millisecond
	// TopLevels is the per-side depth captured for display.
	TopLevels = 10
)

// ErrMaxTicksRange is returned when maxTicks falls outside [MinMaxTicks, MaxMaxTicks].
var ErrMaxTicksRange = errors.New("max ticks out of range")

// MBOStrength owns the book, the reference price, the published snapshot and the position
// machine for one instrument.
//
// Mutation scopes: book contents change on the event goroutine under the book lock; the
// snapshot is replaced by the scheduler goroutine inside that same lock; the position machine
// and the EMA only move on the timer goroutine.
type MBOStrength struct {
	symbol    string
	book      *book.Book
	log       zerolog.Logger
	sink      execution.Sink
	sched     *Scheduler
	machine   PositionMachine
	ema       *EMA
	emaValue  atomic.Uint64
	alpha     float64
	position  atomic.Int32
	refPrice  atomic.Uint64
	maxTicks  atomic.Int64
	tickSize  int
	threshold int64
	orderQty  int
	strict    bool
	refresh   time.Duration
	published atomic.Pointer[signal.Snapshot]
	onPublish func(signal.Snapshot)
}

// Option configures an MBOStrength.
type Option func(*MBOStrength)

// WithLogger sets the logger shared with the book and the default sink.
func WithLogger(log zerolog.Logger) Option { return func(s *MBOStrength) { s.log = log } }

// WithSink sets where position intents go. Defaults to a logging executor.
func WithSink(sink execution.Sink) Option { return func(s *MBOStrength) { s.sink = sink } }

// WithPublishHook is called after every published snapshot, outside the book lock.
func WithPublishHook(fn func(signal.Snapshot)) Option {
	return func(s *MBOStrength) { s.onPublish = fn }
}

// WithStrict panics on negative settled level sizes.
func WithStrict(strict bool) Option { return func(s *MBOStrength) { s.strict = strict } }

// WithWindow overrides the tick size and the qualifying size threshold.
func WithWindow(tickSize int, threshold int64) Option {
	return func(s *MBOStrength) {
		if tickSize > 0 {
			s.tickSize = tickSize
		}
		if threshold >= 0 {
			s.threshold = threshold
		}
	}
}

// WithMaxTicks sets the initial scan bound, clamped into range.
func WithMaxTicks(n int) Option {
	return func(s *MBOStrength) {
		s.maxTicks.Store(int64(min(max(n, MinMaxTicks), MaxMaxTicks)))
	}
}

// WithOrderQty sets the quantity of every intent; non-positive values are ignored.
func WithOrderQty(qty int) Option {
	return func(s *MBOStrength) {
		if qty > 0 {
			s.orderQty = qty
		}
	}
}

// WithAlpha sets the EMA smoothing weight, clamped into [0, 1].
func WithAlpha(alpha float64) Option { return func(s *MBOStrength) { s.alpha = alpha } }

// WithRefreshCycle sets how long the scheduler waits after a wake before recomputing.
func WithRefreshCycle(d time.Duration) Option {
	return func(s *MBOStrength) {
		if d >= 0 {
			s.refresh = d
		}
	}
}

// New builds the strategy for symbol.
func New(symbol string, opts ...Option) *MBOStrength {
	s := &MBOStrength{
		symbol:    symbol,
		log:       zerolog.Nop(),
		tickSize:  1,
		threshold: book.DefaultSizeThreshold,
		orderQty:  DefaultOrderQty,
		refresh:   DefaultRefreshCycle,
		alpha:     DefaultAlpha,
	}
	s.maxTicks.Store(DefaultMaxTicks)
	s.refPrice.Store(math.Float64bits(math.NaN()))
	s.emaValue.Store(math.Float64bits(math.NaN()))
	for _, opt := range opts {
		opt(s)
	}
	s.book = book.New(book.WithStrict(s.strict), book.WithLogger(s.log))
	if s.sink == nil {
		s.sink = execution.NewExecutor(s.log, symbol, execution.WithPriceSource(s.RefPrice))
	}
	s.ema = NewEMA(s.alpha)
	s.sched = NewScheduler(s.refresh, s.Recompute)
	return s
}

// Name returns the identifier for logging.
func (s *MBOStrength) Name() string { return "MBOStrength" }

// Book exposes the underlying order book.
func (s *MBOStrength) Book() *book.Book { return s.book }

// Scheduler exposes the debounce scheduler; run it with Scheduler().Run.
func (s *MBOStrength) Scheduler() *Scheduler { return s.sched }

// OnOrderSend adds a new resting order.
func (s *MBOStrength) OnOrderSend(id string, isBid bool, price, size int) error {
	side := signal.Ask
	if isBid {
		side = signal.Bid
	}
	if err := s.book.Send(id, side, price, size); err != nil {
		return s.reject(signal.OrderSend, err)
	}
	metrics.EventsTotal.WithLabelValues(string(signal.OrderSend)).Inc()
	s.sched.Schedule()
	return nil
}

// OnOrderReplace moves a resting order to a new price and size.
func (s *MBOStrength) OnOrderReplace(id string, price, size int) error {
	if _, err := s.book.Replace(id, price, size); err != nil {
		return s.reject(signal.OrderReplace, err)
	}
	metrics.EventsTotal.WithLabelValues(string(signal.OrderReplace)).Inc()
	s.sched.Schedule()
	return nil
}

// OnOrderCancel removes a resting order.
func (s *MBOStrength) OnOrderCancel(id string) error {
	if _, err := s.book.Cancel(id); err != nil {
		return s.reject(signal.OrderCancel, err)
	}
	metrics.EventsTotal.WithLabelValues(string(signal.OrderCancel)).Inc()
	s.sched.Schedule()
	return nil
}

// OnTrade records the last trade price used as the window reference.
func (s *MBOStrength) OnTrade(price float64, size int) {
	s.refPrice.Store(math.Float64bits(price))
	metrics.EventsTotal.WithLabelValues(string(signal.Trade)).Inc()
	s.sched.Schedule()
}

// Handle dispatches a feed event. Rejected events are logged and dropped by the caller.
func (s *MBOStrength) Handle(ev signal.Event) error {
	var err error
	switch ev.Type {
	case signal.OrderSend:
		err = s.OnOrderSend(ev.OrderID, ev.Side == signal.Bid, ev.Price, ev.Size)
	case signal.OrderReplace:
		err = s.OnOrderReplace(ev.OrderID, ev.Price, ev.Size)
	case signal.OrderCancel:
		err = s.OnOrderCancel(ev.OrderID)
	case signal.Trade:
		s.OnTrade(ev.TradePrice, ev.Size)
	default:
		err = fmt.Errorf("unknown event type %q", ev.Type)
		metrics.EventsRejected.WithLabelValues("unknown_type").Inc()
	}
	if err != nil {
		s.log.Warn().Err(err).Str("type", string(ev.Type)).Str("id", ev.OrderID).Msg("event dropped")
	}
	return err
}

func (s *MBOStrength) reject(t signal.EventType, err error) error {
	reason := "invalid"
	switch {
	case errors.Is(err, book.ErrUnknownOrder):
		reason = "unknown_order"
	case errors.Is(err, book.ErrDuplicateOrder):
		reason = "duplicate_order"
	}
	metrics.EventsRejected.WithLabelValues(reason).Inc()
	return fmt.Errorf("%s: %w", t, err)
}

// RefPrice returns the last trade price, NaN before the first trade.
func (s *MBOStrength) RefPrice() float64 { return math.Float64frombits(s.refPrice.Load()) }

// MaxTicks returns the current scan bound.
func (s *MBOStrength) MaxTicks() int { return int(s.maxTicks.Load()) }

// SetMaxTicks changes the scan bound and schedules a recompute.
func (s *MBOStrength) SetMaxTicks(n int) error {
	if n < MinMaxTicks || n > MaxMaxTicks {
		return fmt.Errorf("%d: %w", n, ErrMaxTicksRange)
	}
	s.maxTicks.Store(int64(n))
	s.sched.Schedule()
	return nil
}

// Recompute scans both sides and publishes a new snapshot. Without a reference price the
// previous snapshot is kept.
func (s *MBOStrength) Recompute() {
	ref := s.RefPrice()
	if math.IsNaN(ref) {
		s.log.Debug().Msg("no trade yet, skipping publish")
		return
	}
	p := book.WindowParams{MaxTicks: s.MaxTicks(), TickSize: s.tickSize, SizeThreshold: s.threshold}

	var snap signal.Snapshot
	s.book.View(func(lv *book.Levels) {
		bid := book.Window(lv, signal.Bid, ref, p)
		ask := book.Window(lv, signal.Ask, ref, p)
		now := time.Now()
		snap = signal.Snapshot{
			Symbol:     s.symbol,
			RefPrice:   ref,
			MaxTicks:   p.MaxTicks,
			Bids:       lv.Top(signal.Bid, TopLevels),
			Asks:       lv.Top(signal.Ask, TopLevels),
			Bid:        sideStats(bid),
			Ask:        sideStats(ask),
			Indicators: Combine(bid, ask, now),
			EMA:        s.EMA(),
			Ts:         now,
		}
		published := snap
		s.published.Store(&published)
	})

	metrics.RecomputeTotal.Inc()
	metrics.IndicatorValue.WithLabelValues("strength").Set(snap.Indicators.Strength)
	metrics.IndicatorValue.WithLabelValues("deviation").Set(snap.Indicators.Deviation)
	if s.onPublish != nil {
		s.onPublish(snap)
	}
}

// Snapshot returns the last published snapshot.
func (s *MBOStrength) Snapshot() (signal.Snapshot, bool) {
	p := s.published.Load()
	if p == nil {
		return signal.Snapshot{Symbol: s.symbol, RefPrice: s.RefPrice(), MaxTicks: s.MaxTicks(), Indicators: signal.NoIndicators(), EMA: s.EMA()}, false
	}
	snap := *p
	snap.EMA = s.EMA()
	return snap, true
}

// Indicators returns the last published pair, undefined before the first publish.
func (s *MBOStrength) Indicators() signal.Indicators {
	if p := s.published.Load(); p != nil {
		return p.Indicators
	}
	return signal.NoIndicators()
}

// EMA returns the moving average of the trade price, NaN before the first sampled trade.
func (s *MBOStrength) EMA() float64 { return math.Float64frombits(s.emaValue.Load()) }

// Position is safe to call from any goroutine.
func (s *MBOStrength) Position() PositionState { return PositionState(s.position.Load()) }

// OnTick samples the trade price into the EMA, then steps the position machine with the latest
// published pair and emits the resulting intent. Must be called from a single goroutine.
func (s *MBOStrength) OnTick() Transition {
	if v := s.ema.Step(s.RefPrice()); !math.IsNaN(v) {
		s.emaValue.Store(math.Float64bits(v))
		metrics.IndicatorValue.WithLabelValues("ema").Set(v)
	}

	ind := s.Indicators()
	tr := s.machine.Step(ind)
	if !tr.Changed() {
		return tr
	}
	s.position.Store(int32(tr.To))
	metrics.PositionState.Set(positionGauge(tr.To))

	var err error
	if tr.Action == execution.Open {
		err = s.sink.OpenPosition(tr.Direction, s.orderQty)
	} else {
		err = s.sink.ClosePosition(tr.Direction, s.orderQty, true)
	}
	if err != nil {
		s.log.Error().Err(err).Str("direction", string(tr.Direction)).Str("action", string(tr.Action)).Msg("intent not accepted")
	}
	s.log.Info().
		Str("from", tr.From.String()).
		Str("to", tr.To.String()).
		Float64("strength", ind.Strength).
		Float64("deviation", ind.Deviation).
		Msg("position transition")
	return tr
}

// RunTimer drives OnTick every interval until ctx is canceled.
func (s *MBOStrength) RunTimer(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.OnTick()
		}
	}
}

func positionGauge(p PositionState) float64 {
	switch p {
	case Long:
		return 1
	case Short:
		return -1
	default:
		return 0
	}
}
