// Package execution turns position intents into orders and hands them to routers.
package execution

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mbostrength-go/internal/metrics"
	"mbostrength-go/internal/risk"
)

// Side enumerates order directions used by the executor.
type Side string

const (
	// Buy indicates a bid-side order.
	Buy Side = "BUY"
	// Sell indicates an ask-side order.
	Sell Side = "SELL"
)

// Direction is the position direction an intent opens or closes.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// OpenSide is the order side that opens a position in this direction.
func (d Direction) OpenSide() Side {
	if d == Short {
		return Sell
	}
	return Buy
}

// CloseSide is the order side that flattens a position in this direction.
func (d Direction) CloseSide() Side {
	if d == Short {
		return Buy
	}
	return Sell
}

// Action tells whether an order opens or closes a position.
type Action string

const (
	Open  Action = "OPEN"
	Close Action = "CLOSE"
)

// Order represents a placement request the executor can process.
type Order struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	Direction   Direction `json:"direction"`
	Action      Action    `json:"action"`
	Qty         int       `json:"qty"`
	RefPrice    float64   `json:"refPrice"` // last trade at submit time, market orders only
	ClosingHint bool      `json:"closingHint"`
	Ts          time.Time `json:"ts"`
}

// Fill is an executed order as recorded by paper trading.
type Fill struct {
	OrderID string    `json:"orderId"`
	Symbol  string    `json:"symbol"`
	Side    Side      `json:"side"`
	Qty     float64   `json:"qty"`
	Price   float64   `json:"price"`
	Closing bool      `json:"closing"`
	Ts      time.Time `json:"ts"`
}

// Sink receives position intents from the signal state machine.
type Sink interface {
	OpenPosition(dir Direction, qty int) error
	ClosePosition(dir Direction, qty int, closingHint bool) error
}

// Router forwards a fully built order to a venue, bus or paper account.
type Router interface {
	Route(order Order) error
}

// Executor implements Sink by logging, counting and routing orders.
type Executor struct {
	log     zerolog.Logger
	symbol  string
	limits  risk.Limits
	routers []Router
	price   func() float64
	now     func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithLimits installs a pre-submit quantity guard.
func WithLimits(l risk.Limits) Option {
	return func(e *Executor) { e.limits = l }
}

// WithRouter appends a router; orders go to every router in order.
func WithRouter(r Router) Option {
	return func(e *Executor) {
		if r != nil {
			e.routers = append(e.routers, r)
		}
	}
}

// WithPriceSource sets the reference price stamped on each order.
func WithPriceSource(fn func() float64) Option {
	return func(e *Executor) { e.price = fn }
}

// NewExecutor wraps a zerolog logger for order submissions on symbol.
func NewExecutor(log zerolog.Logger, symbol string, opts ...Option) *Executor {
	e := &Executor{log: log, symbol: symbol, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OpenPosition submits an order opening dir.
func (executor *Executor) OpenPosition(dir Direction, qty int) error {
	return executor.Submit(Order{Side: dir.OpenSide(), Direction: dir, Action: Open, Qty: qty})
}

// ClosePosition submits an order on the opposite side of dir.
func (executor *Executor) ClosePosition(dir Direction, qty int, closingHint bool) error {
	return executor.Submit(Order{Side: dir.CloseSide(), Direction: dir, Action: Close, Qty: qty, ClosingHint: closingHint})
}

// Submit stamps, checks and routes an order.
func (executor *Executor) Submit(order Order) error {
	if err := executor.limits.Check(order.Qty); err != nil {
		executor.log.Warn().Err(err).Str("direction", string(order.Direction)).Msg("order rejected")
		return err
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.Symbol == "" {
		order.Symbol = executor.symbol
	}
	if order.Ts.IsZero() {
		order.Ts = executor.now()
	}
	if executor.price != nil && order.RefPrice == 0 {
		order.RefPrice = executor.price()
	}

	metrics.IntentsTotal.WithLabelValues(string(order.Direction), string(order.Action)).Inc()
	executor.log.Info().
		Str("id", order.ID).
		Str("sym", order.Symbol).
		Str("side", string(order.Side)).
		Str("action", string(order.Action)).
		Int("qty", order.Qty).
		Float64("px", order.RefPrice).
		Bool("closing", order.ClosingHint).
		Msg("submit order")

	var errs []error
	for _, r := range executor.routers {
		if err := r.Route(order); err != nil {
			errs = append(errs, fmt.Errorf("route %s: %w", order.ID, err))
		}
	}
	return errors.Join(errs...)
}
