package book

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"mbostrength-go/internal/signal"
)

// Book couples the order index with the level book under a single mutex. Every mutation
// updates the index first and then applies the matching level deltas; View grants readers
// the same exclusive region.
type Book struct {
	mu     sync.Mutex
	index  *Index
	levels *Levels
	strict bool
	log    zerolog.Logger
}

// Option configures a Book.
type Option func(*Book)

// WithStrict makes a negative settled level size panic instead of being logged.
func WithStrict(strict bool) Option {
	return func(b *Book) { b.strict = strict }
}

// WithLogger sets the logger used to report consistency errors.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Book) { b.log = log }
}

// New builds an empty book.
func New(opts ...Option) *Book {
	b := &Book{
		index:  NewIndex(),
		levels: NewLevels(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Send inserts an order and adds its size to its level.
func (b *Book) Send(id string, side signal.Side, price, size int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.index.Send(id, side, price, size); err != nil {
		return err
	}
	b.apply(side, price, int64(size))
	return nil
}

// Replace moves the full size of an order from its old level to its new one on the same side.
// The two deltas happen inside one critical section so an intermediate negative total is
// never observable.
func (b *Book) Replace(id string, price, size int) (Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prior, err := b.index.Replace(id, price, size)
	if err != nil {
		return Order{}, err
	}
	b.levels.Apply(prior.Side, prior.Price, -int64(prior.Size))
	b.apply(prior.Side, price, int64(size))
	b.check(prior.Side, prior.Price)
	return prior, nil
}

// Cancel removes an order and subtracts its size from its level.
func (b *Book) Cancel(id string) (Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prior, err := b.index.Cancel(id)
	if err != nil {
		return Order{}, err
	}
	b.apply(prior.Side, prior.Price, -int64(prior.Size))
	return prior, nil
}

// Order returns a copy of a live order.
func (b *Book) Order(id string) (Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Get(id)
}

// SizeAt returns the aggregate size at a level.
func (b *Book) SizeAt(side signal.Side, price int) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.levels.SizeAt(side, price)
}

// Orders reports the number of live orders.
func (b *Book) Orders() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Len()
}

// View runs fn while holding the book's exclusive region. fn must not retain lv.
func (b *Book) View(fn func(lv *Levels)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.levels)
}

// ViewOrders runs fn with both the index and levels under the exclusive region.
func (b *Book) ViewOrders(fn func(ix *Index, lv *Levels)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.index, b.levels)
}

func (b *Book) apply(side signal.Side, price int, delta int64) {
	b.levels.Apply(side, price, delta)
	b.check(side, price)
}

func (b *Book) check(side signal.Side, price int) {
	size := b.levels.SizeAt(side, price)
	if size >= 0 {
		return
	}
	if b.strict {
		panic(fmt.Sprintf("book: negative level size %d at %s %d", size, side, price))
	}
	b.log.Error().Str("side", side.String()).Int("price", price).Int64("size", size).Msg("negative level size")
}
