// Package paper simulates fills for emitted order intents at the last trade price.
package paper

import (
	"errors"
	"fmt"

	"mbostrength-go/internal/execution"
)

// ErrNoPrice is returned when an order carries no reference price to fill at.
var ErrNoPrice = errors.New("no reference price")

// Router fills every routed order against an Account and hands the fill to recorders.
type Router struct {
	account   *Account
	priceStep float64
	recorders []FillRecorder
}

// NewRouter builds a paper router. priceStep converts tick-unit prices into currency; zero means 1.
func NewRouter(account *Account, priceStep float64, recorders ...FillRecorder) *Router {
	if priceStep <= 0 {
		priceStep = 1
	}
	return &Router{account: account, priceStep: priceStep, recorders: recorders}
}

// Route implements execution.Router.
func (r *Router) Route(order execution.Order) error {
	if order.RefPrice <= 0 || order.RefPrice != order.RefPrice {
		return fmt.Errorf("paper fill %s: %w", order.ID, ErrNoPrice)
	}
	price := order.RefPrice * r.priceStep
	qty := float64(order.Qty)
	if err := r.account.MarketFill(order.Symbol, order.Side, qty, price); err != nil {
		return fmt.Errorf("paper fill %s: %w", order.ID, err)
	}
	fill := execution.Fill{
		OrderID: order.ID,
		Symbol:  order.Symbol,
		Side:    order.Side,
		Qty:     qty,
		Price:   price,
		Closing: order.ClosingHint,
		Ts:      order.Ts,
	}
	for _, rec := range r.recorders {
		rec.Record(fill)
	}
	return nil
}
