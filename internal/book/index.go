// Package book maintains the per-order index and the aggregated price levels derived from it.
package book

import (
	"errors"
	"fmt"

	"mbostrength-go/internal/signal"
)

var (
	// ErrDuplicateOrder is returned when a send reuses a live order id.
	ErrDuplicateOrder = errors.New("duplicate order id")
	// ErrUnknownOrder is returned when replace/cancel/get reference an id that is not live.
	ErrUnknownOrder = errors.New("unknown order id")
	// ErrInvalidSize is returned for negative order sizes.
	ErrInvalidSize = errors.New("invalid order size")
)

// Order is a single resting order as last reported by the feed.
type Order struct {
	ID    string
	Side  signal.Side
	Price int
	Size  int
}

// Index maps order id to the current order attributes. It is not safe for concurrent use;
// Book serializes access to it.
type Index struct {
	orders map[string]Order
}

// NewIndex creates an empty order index.
func NewIndex() *Index {
	return &Index{orders: make(map[string]Order)}
}

// Send inserts a new order.
func (ix *Index) Send(id string, side signal.Side, price, size int) error {
	if size < 0 {
		return fmt.Errorf("send %s: %w", id, ErrInvalidSize)
	}
	if _, ok := ix.orders[id]; ok {
		return fmt.Errorf("send %s: %w", id, ErrDuplicateOrder)
	}
	ix.orders[id] = Order{ID: id, Side: side, Price: price, Size: size}
	return nil
}

// Replace moves an order to a new price/size and returns the prior state. Side never changes.
func (ix *Index) Replace(id string, price, size int) (Order, error) {
	if size < 0 {
		return Order{}, fmt.Errorf("replace %s: %w", id, ErrInvalidSize)
	}
	prior, ok := ix.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("replace %s: %w", id, ErrUnknownOrder)
	}
	ix.orders[id] = Order{ID: id, Side: prior.Side, Price: price, Size: size}
	return prior, nil
}

// Cancel removes an order and returns it.
func (ix *Index) Cancel(id string) (Order, error) {
	prior, ok := ix.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("cancel %s: %w", id, ErrUnknownOrder)
	}
	delete(ix.orders, id)
	return prior, nil
}

// Get returns a copy of the order.
func (ix *Index) Get(id string) (Order, error) {
	o, ok := ix.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("get %s: %w", id, ErrUnknownOrder)
	}
	return o, nil
}

// Len reports the number of live orders.
func (ix *Index) Len() int { return len(ix.orders) }

// Each visits every live order in unspecified order.
func (ix *Index) Each(fn func(Order)) {
	for _, o := range ix.orders {
		fn(o)
	}
}
