package strategy

import (
	"math"
	"testing"
)

func TestEMASkipsUntilFirstPrice(t *testing.T) {
	e := NewEMA(0.5)
	if v := e.Step(math.NaN()); !math.IsNaN(v) {
		t.Fatalf("expected NaN before any price, got %v", v)
	}
	if v := e.Step(100); v != 100 {
		t.Fatalf("expected seed 100, got %v", v)
	}
	if v := e.Step(math.NaN()); v != 100 {
		t.Fatalf("NaN price must not move the average, got %v", v)
	}
}

func TestEMARecurrence(t *testing.T) {
	e := NewEMA(0.75)
	e.Step(100)
	if v := e.Step(200); v != 125 {
		t.Fatalf("expected 100*0.75+200*0.25=125, got %v", v)
	}
	if v := e.Step(125); v != 125 {
		t.Fatalf("expected fixed point 125, got %v", v)
	}
}

func TestEMAAlphaClamped(t *testing.T) {
	cases := map[float64]float64{-1: 0, 2: 1, 0.99: 0.99}
	for in, want := range cases {
		if got := NewEMA(in).Alpha(); got != want {
			t.Fatalf("alpha %v: expected %v got %v", in, want, got)
		}
	}
	if got := NewEMA(math.NaN()).Alpha(); got != DefaultAlpha {
		t.Fatalf("expected default alpha for NaN, got %v", got)
	}
	e := NewEMA(0)
	e.Step(10)
	if v := e.Step(20); v != 20 {
		t.Fatalf("alpha 0 should track the last price, got %v", v)
	}
}
