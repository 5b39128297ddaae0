package exchange

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mbostrength-go/internal/signal"
)

func TestSessionRecorderReplaysIdentically(t *testing.T) {
	step := decimal.RequireFromString("0.25")
	path := filepath.Join(t.TempDir(), "sessions", "stub.jsonl")
	rec, err := NewSessionRecorder(path, step)
	if err != nil {
		t.Fatalf("NewSessionRecorder: %v", err)
	}

	gen := NewGenerator(5)
	var want []signal.Event
	for i := 0; i < 300; i++ {
		ev := gen.Next(time.UnixMilli(1700000000000 + int64(i)))
		if err := rec.Record(ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
		want = append(want, ev)
	}
	if rec.Count() != len(want) || rec.Path() != path {
		t.Fatalf("unexpected recorder state count=%d path=%s", rec.Count(), rec.Path())
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := rec.Record(want[0]); err == nil {
		t.Fatalf("expected error recording after close")
	}

	feed := NewFeed(ProviderReplay, "ESZ4", zerolog.Nop(), WithReplay(path, 0), WithPriceStep(step))
	events := make(chan signal.Event, len(want)+1)
	if err := feed.Run(context.Background(), events); err != nil {
		t.Fatalf("replay: %v", err)
	}
	close(events)

	i := 0
	for got := range events {
		w := want[i]
		if got.Type != w.Type || got.OrderID != w.OrderID || got.Price != w.Price || got.Size != w.Size ||
			got.TradePrice != w.TradePrice || !got.Ts.Equal(w.Ts) {
			t.Fatalf("event %d: got %+v want %+v", i, got, w)
		}
		if got.Type == signal.OrderSend && got.Side != w.Side {
			t.Fatalf("event %d: side %s want %s", i, got.Side, w.Side)
		}
		i++
	}
	if i != len(want) {
		t.Fatalf("replayed %d of %d events", i, len(want))
	}
}
