package book

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"mbostrength-go/internal/signal"
)

func TestSendReplaceCancelDeltas(t *testing.T) {
	b := New()
	if err := b.Send("a", signal.Bid, 100, 5); err != nil {
		t.Fatalf("send a: %v", err)
	}
	if err := b.Send("b", signal.Bid, 100, 7); err != nil {
		t.Fatalf("send b: %v", err)
	}
	if got := b.SizeAt(signal.Bid, 100); got != 12 {
		t.Fatalf("expected 12 at bid 100, got %d", got)
	}

	prior, err := b.Replace("a", 101, 9)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if prior.Price != 100 || prior.Size != 5 || prior.Side != signal.Bid {
		t.Fatalf("unexpected prior order %+v", prior)
	}
	if got := b.SizeAt(signal.Bid, 100); got != 7 {
		t.Fatalf("expected 7 left at 100, got %d", got)
	}
	if got := b.SizeAt(signal.Bid, 101); got != 9 {
		t.Fatalf("expected 9 moved to 101, got %d", got)
	}
	if got := b.SizeAt(signal.Ask, 101); got != 0 {
		t.Fatalf("replace must keep side, ask 101 has %d", got)
	}

	o, err := b.Order("a")
	if err != nil {
		t.Fatalf("order a: %v", err)
	}
	if o.Side != signal.Bid || o.Price != 101 || o.Size != 9 {
		t.Fatalf("unexpected stored order %+v", o)
	}

	removed, err := b.Cancel("b")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if removed.Size != 7 {
		t.Fatalf("expected cancelled size 7, got %d", removed.Size)
	}
	if got := b.SizeAt(signal.Bid, 100); got != 0 {
		t.Fatalf("expected level 100 emptied, got %d", got)
	}
	b.View(func(lv *Levels) {
		if lv.Depth(signal.Bid) != 1 {
			t.Fatalf("expected zero level purged, depth %d", lv.Depth(signal.Bid))
		}
	})
}

func TestReplaceSamePrice(t *testing.T) {
	b := New(WithStrict(true))
	if err := b.Send("a", signal.Ask, 50, 20); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := b.Replace("a", 50, 3); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got := b.SizeAt(signal.Ask, 50); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestUnknownAndDuplicateOrders(t *testing.T) {
	b := New()
	if _, err := b.Replace("missing", 1, 1); !errors.Is(err, ErrUnknownOrder) {
		t.Fatalf("expected ErrUnknownOrder on replace, got %v", err)
	}
	if _, err := b.Cancel("missing"); !errors.Is(err, ErrUnknownOrder) {
		t.Fatalf("expected ErrUnknownOrder on cancel, got %v", err)
	}
	if _, err := b.Order("missing"); !errors.Is(err, ErrUnknownOrder) {
		t.Fatalf("expected ErrUnknownOrder on get, got %v", err)
	}
	if err := b.Send("x", signal.Ask, 10, 1); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := b.Send("x", signal.Ask, 11, 1); !errors.Is(err, ErrDuplicateOrder) {
		t.Fatalf("expected ErrDuplicateOrder, got %v", err)
	}
	if got := b.SizeAt(signal.Ask, 11); got != 0 {
		t.Fatalf("rejected send must not touch levels, got %d", got)
	}
	if err := b.Send("neg", signal.Ask, 10, -1); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
}

func TestConsistencyInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	b := New(WithStrict(true))
	live := []string{}
	next := 0

	for step := 0; step < 5000; step++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(live) == 0:
			id := fmt.Sprintf("o%d", next)
			next++
			side := signal.Bid
			if rng.Intn(2) == 1 {
				side = signal.Ask
			}
			if err := b.Send(id, side, 1000+rng.Intn(30), rng.Intn(50)); err != nil {
				t.Fatalf("send: %v", err)
			}
			live = append(live, id)
		case op == 1:
			id := live[rng.Intn(len(live))]
			if _, err := b.Replace(id, 1000+rng.Intn(30), rng.Intn(50)); err != nil {
				t.Fatalf("replace: %v", err)
			}
		default:
			i := rng.Intn(len(live))
			if _, err := b.Cancel(live[i]); err != nil {
				t.Fatalf("cancel: %v", err)
			}
			live = append(live[:i], live[i+1:]...)
		}

		if step%97 == 0 {
			assertConsistent(t, b)
		}
	}
	assertConsistent(t, b)
}

func assertConsistent(t *testing.T, b *Book) {
	t.Helper()
	b.ViewOrders(func(ix *Index, lv *Levels) {
		want := map[signal.Side]map[int]int64{signal.Bid: {}, signal.Ask: {}}
		ix.Each(func(o Order) { want[o.Side][o.Price] += int64(o.Size) })
		for side, prices := range want {
			for price, size := range prices {
				if got := lv.SizeAt(side, price); got != size {
					t.Fatalf("%s %d: level %d, orders %d", side, price, got, size)
				}
			}
			for price, size := range lv.Best(side) {
				if size <= 0 {
					t.Fatalf("%s %d: non-positive settled size %d", side, price, size)
				}
				if want[side][price] != size {
					t.Fatalf("%s %d: orphan level size %d", side, price, size)
				}
			}
		}
	})
}

func TestNegativeLevelLoggedWhenLenient(t *testing.T) {
	var buf bytes.Buffer
	b := New(WithLogger(zerolog.New(&buf)))
	b.View(func(lv *Levels) { lv.Apply(signal.Bid, 10, 5) })
	if err := b.Send("a", signal.Bid, 20, 8); err != nil {
		t.Fatalf("send: %v", err)
	}
	// Corrupt the index so the cancel removes more than the level holds.
	b.View(func(lv *Levels) { lv.Apply(signal.Bid, 20, -4) })
	if _, err := b.Cancel("a"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !strings.Contains(buf.String(), "negative level size") {
		t.Fatalf("expected consistency error log, got %s", buf.String())
	}
}

func TestNegativeLevelPanicsWhenStrict(t *testing.T) {
	b := New(WithStrict(true))
	if err := b.Send("a", signal.Ask, 20, 8); err != nil {
		t.Fatalf("send: %v", err)
	}
	b.View(func(lv *Levels) { lv.Apply(signal.Ask, 20, -4) })
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on negative level in strict mode")
		}
	}()
	_, _ = b.Cancel("a")
}
