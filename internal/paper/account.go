package paper

import (
	"errors"
	"math"
	"sync"

	"mbostrength-go/internal/execution"
)

// FillRecorder captures paper fills for later inspection.
type FillRecorder interface {
	Record(execution.Fill)
}

const epsilon = 1e-9

// positionState holds a signed quantity: positive long, negative short.
type positionState struct {
	Qty     float64
	AvgCost float64
}

// Account tracks realized PnL and signed per-symbol positions while trading in paper mode.
type Account struct {
	mu                   sync.Mutex
	startingCash         float64
	cash                 float64
	realizedPnL          float64
	maxPositionPerSymbol float64
	positions            map[string]positionState
}

// PositionSnapshot exposes a read-only view of a single symbol position.
type PositionSnapshot struct {
	Qty         float64
	AvgCost     float64
	MarketValue float64
	Unrealized  float64
}

// Snapshot represents a thread-safe view of the account state, optionally marked to market using provided prices.
type Snapshot struct {
	Cash        float64
	RealizedPnL float64
	Equity      float64
	Positions   map[string]PositionSnapshot
}

// NewAccount constructs an account populated with starting cash and optional absolute position cap.
func NewAccount(startingCash, maxPositionPerSymbol float64) *Account {
	return &Account{
		startingCash:         startingCash,
		cash:                 startingCash,
		maxPositionPerSymbol: maxPositionPerSymbol,
		positions:            make(map[string]positionState),
	}
}

// StartingCash returns the initial bankroll.
func (a *Account) StartingCash() float64 { return a.startingCash }

// MarketFill executes qty at price. Buys add to the signed position and sells subtract, so a
// sell from flat opens a short and a buy against a short covers it.
func (a *Account) MarketFill(symbol string, side execution.Side, qty, price float64) error {
	if qty <= 0 {
		return errors.New("quantity must be positive")
	}
	if price <= 0 {
		return errors.New("price must be positive")
	}

	var signed float64
	switch side {
	case execution.Buy:
		signed = qty
	case execution.Sell:
		signed = -qty
	default:
		return errors.New("unknown order side")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	state := a.positions[symbol]
	newQty := state.Qty + signed
	if a.maxPositionPerSymbol > 0 && math.Abs(newQty) > a.maxPositionPerSymbol+epsilon {
		return errors.New("position limit exceeded")
	}

	// Cash moves like a margin account: buys spend, sells receive.
	a.cash -= signed * price

	switch {
	case state.Qty == 0 || sameSign(state.Qty, signed):
		// Opening or adding.
		total := math.Abs(state.Qty) + qty
		state.AvgCost = (state.AvgCost*math.Abs(state.Qty) + price*qty) / total
		state.Qty = newQty
	default:
		// Reducing, closing or flipping.
		closed := math.Min(math.Abs(state.Qty), qty)
		dir := 1.0
		if state.Qty < 0 {
			dir = -1
		}
		a.realizedPnL += (price - state.AvgCost) * closed * dir
		state.Qty = newQty
		if qty > closed+epsilon {
			state.AvgCost = price
		}
	}

	if math.Abs(state.Qty) <= epsilon {
		delete(a.positions, symbol)
	} else {
		a.positions[symbol] = state
	}
	return nil
}

func sameSign(a, b float64) bool { return (a > 0) == (b > 0) }

// Snapshot returns a copy of balances, optionally marked using the supplied prices map.
func (a *Account) Snapshot(prices map[string]float64) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	positions := make(map[string]PositionSnapshot, len(a.positions))
	equity := a.cash
	for sym, pos := range a.positions {
		mark := prices[sym]
		marketValue := pos.Qty * mark
		unrealized := (mark - pos.AvgCost) * pos.Qty
		if mark == 0 {
			marketValue = 0
			unrealized = 0
		}
		positions[sym] = PositionSnapshot{
			Qty:         pos.Qty,
			AvgCost:     pos.AvgCost,
			MarketValue: marketValue,
			Unrealized:  unrealized,
		}
		equity += marketValue
	}

	return Snapshot{
		Cash:        a.cash,
		RealizedPnL: a.realizedPnL,
		Equity:      equity,
		Positions:   positions,
	}
}

// Position returns the signed position size for the supplied symbol.
func (a *Account) Position(symbol string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positions[symbol].Qty
}

// RealizedPnL returns total closed-trade profit and loss.
func (a *Account) RealizedPnL() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realizedPnL
}
