package exchange

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"mbostrength-go/internal/signal"
)

const (
	stubMid       = 20000
	stubSpread    = 60
	stubMinOrders = 40
	stubMaxSize   = 60
)

type stubOrder struct {
	id    string
	side  signal.Side
	price int
}

// Generator produces a reproducible stream of market-by-order events around a drifting mid.
type Generator struct {
	rng  *rand.Rand
	mid  int
	seq  int
	live []stubOrder
}

// NewGenerator seeds a generator; equal seeds produce equal streams.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed)), mid: stubMid}
}

// Next returns the following event stamped with ts.
func (g *Generator) Next(ts time.Time) signal.Event {
	r := g.rng.Float64()
	switch {
	case len(g.live) < stubMinOrders || r < 0.45:
		return g.send(ts)
	case r < 0.65:
		return g.replace(ts)
	case r < 0.85:
		return g.cancel(ts)
	default:
		return g.trade(ts)
	}
}

func (g *Generator) send(ts time.Time) signal.Event {
	g.seq++
	side := signal.Bid
	offset := 1 + g.rng.Intn(stubSpread)
	price := g.mid - offset
	if g.rng.Intn(2) == 1 {
		side = signal.Ask
		price = g.mid + offset
	}
	o := stubOrder{id: "stub-" + strconv.Itoa(g.seq), side: side, price: price}
	g.live = append(g.live, o)
	return signal.Event{
		Type:    signal.OrderSend,
		OrderID: o.id,
		Side:    side,
		Price:   price,
		Size:    1 + g.rng.Intn(stubMaxSize),
		Ts:      ts,
	}
}

func (g *Generator) replace(ts time.Time) signal.Event {
	i := g.rng.Intn(len(g.live))
	o := &g.live[i]
	step := g.rng.Intn(3) - 1
	if o.side == signal.Bid && o.price+step < g.mid {
		o.price += step
	}
	if o.side == signal.Ask && o.price+step > g.mid {
		o.price += step
	}
	return signal.Event{
		Type:    signal.OrderReplace,
		OrderID: o.id,
		Price:   o.price,
		Size:    1 + g.rng.Intn(stubMaxSize),
		Ts:      ts,
	}
}

func (g *Generator) cancel(ts time.Time) signal.Event {
	i := g.rng.Intn(len(g.live))
	o := g.live[i]
	g.live = append(g.live[:i], g.live[i+1:]...)
	return signal.Event{Type: signal.OrderCancel, OrderID: o.id, Ts: ts}
}

func (g *Generator) trade(ts time.Time) signal.Event {
	px := float64(g.mid)
	if g.rng.Intn(2) == 1 {
		px += 0.5
	}
	g.mid += g.rng.Intn(3) - 1
	return signal.Event{
		Type:       signal.Trade,
		Size:       1 + g.rng.Intn(10),
		TradePrice: px,
		Ts:         ts,
	}
}

func (f *Feed) runStub(ctx context.Context, out chan<- signal.Event) error {
	gen := NewGenerator(f.stubSeed)
	ticker := time.NewTicker(f.stubRate)
	defer ticker.Stop()

	f.log.Info().Str("provider", ProviderStub).Str("symbol", f.symbol).Int64("seed", f.stubSeed).Msg("starting synthetic feed")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			if err := emit(ctx, out, gen.Next(ts)); err != nil {
				return err
			}
		}
	}
}
