package book

import (
	"iter"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"

	"mbostrength-go/internal/signal"
)

// Levels holds aggregate resting size per price for both sides. Bids iterate highest price
// first, asks lowest price first. Levels that settle at zero are purged.
type Levels struct {
	bids *treemap.Map
	asks *treemap.Map
}

func descendingInt(a, b interface{}) int { return utils.IntComparator(b, a) }

// NewLevels creates an empty level book.
func NewLevels() *Levels {
	return &Levels{
		bids: treemap.NewWith(descendingInt),
		asks: treemap.NewWith(utils.IntComparator),
	}
}

func (l *Levels) side(s signal.Side) *treemap.Map {
	if s == signal.Bid {
		return l.bids
	}
	return l.asks
}

// Apply adds delta to the level at price and returns the resulting size. The level is
// created when absent and removed when it reaches zero. Sign is not validated here.
func (l *Levels) Apply(s signal.Side, price int, delta int64) int64 {
	m := l.side(s)
	size := delta
	if v, ok := m.Get(price); ok {
		size += v.(int64)
	}
	if size == 0 {
		m.Remove(price)
		return 0
	}
	m.Put(price, size)
	return size
}

// SizeAt returns the aggregate size at price, 0 when the level is absent.
func (l *Levels) SizeAt(s signal.Side, price int) int64 {
	if v, ok := l.side(s).Get(price); ok {
		return v.(int64)
	}
	return 0
}

// Best yields (price, size) pairs best-first. Each call to the returned sequence starts a
// fresh walk, so it can be ranged over repeatedly.
func (l *Levels) Best(s signal.Side) iter.Seq2[int, int64] {
	m := l.side(s)
	return func(yield func(int, int64) bool) {
		it := m.Iterator()
		for it.Next() {
			if !yield(it.Key().(int), it.Value().(int64)) {
				return
			}
		}
	}
}

// Depth reports the number of levels on a side.
func (l *Levels) Depth(s signal.Side) int { return l.side(s).Size() }

// Top copies up to n best levels.
func (l *Levels) Top(s signal.Side, n int) []signal.Level {
	out := make([]signal.Level, 0, min(n, l.Depth(s)))
	for price, size := range l.Best(s) {
		if len(out) >= n {
			break
		}
		out = append(out, signal.Level{Price: price, Size: size})
	}
	return out
}
