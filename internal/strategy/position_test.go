package strategy

import (
	"math"
	"testing"

	"mbostrength-go/internal/execution"
	"mbostrength-go/internal/signal"
)

func ind(strength, dev float64) signal.Indicators {
	return signal.Indicators{Strength: strength, Deviation: dev}
}

func TestPositionMachineExample(t *testing.T) {
	var m PositionMachine
	tr := m.Step(ind(120, 20))
	if tr.To != Long || tr.Action != execution.Open || tr.Direction != execution.Long {
		t.Fatalf("expected open long, got %+v", tr)
	}
	tr = m.Step(ind(40, -5))
	if tr.To != Flat || tr.Action != execution.Close || tr.Direction != execution.Long {
		t.Fatalf("expected close long, got %+v", tr)
	}
	if m.State() != Flat {
		t.Fatalf("expected flat, got %s", m.State())
	}
}

func TestPositionMachineTable(t *testing.T) {
	cases := []struct {
		name   string
		start  PositionState
		in     signal.Indicators
		want   PositionState
		action execution.Action
	}{
		{"flat stays on weak long", Flat, ind(110, 20), Flat, ""},
		{"flat stays on weak dev", Flat, ind(200, 15), Flat, ""},
		{"flat to long", Flat, ind(111, 16), Long, execution.Open},
		{"flat to short", Flat, ind(-111, -16), Short, execution.Open},
		{"flat stays on mixed", Flat, ind(200, -20), Flat, ""},
		{"long holds while strong", Long, ind(60, -1), Long, ""},
		{"long holds on positive dev", Long, ind(10, 0), Long, ""},
		{"long exits", Long, ind(49, -0.1), Flat, execution.Close},
		{"long never flips", Long, ind(-500, -500), Flat, execution.Close},
		{"short holds", Short, ind(-60, 5), Short, ""},
		{"short exits", Short, ind(-49, 0.1), Flat, execution.Close},
		{"short never flips", Short, ind(500, 500), Flat, execution.Close},
		{"nan strength", Flat, ind(math.NaN(), 100), Flat, ""},
		{"nan deviation", Long, ind(0, math.NaN()), Long, ""},
	}
	for _, tc := range cases {
		m := PositionMachine{state: tc.start}
		tr := m.Step(tc.in)
		if tr.To != tc.want || tr.Action != tc.action || m.State() != tc.want {
			t.Fatalf("%s: got %+v state %s", tc.name, tr, m.State())
		}
	}
}

func TestPositionMachineDeterministic(t *testing.T) {
	seq := []signal.Indicators{
		ind(0, 0), ind(150, 30), ind(100, 10), ind(10, -1),
		ind(-150, -30), ind(-200, -50), ind(-10, 1), signal.NoIndicators(), ind(120, 16),
	}
	run := func() ([]Transition, PositionState) {
		var m PositionMachine
		var out []Transition
		for _, in := range seq {
			if tr := m.Step(in); tr.Changed() {
				out = append(out, tr)
			}
		}
		return out, m.State()
	}
	a, sa := run()
	b, sb := run()
	if len(a) != 5 || len(a) != len(b) || sa != sb || sa != Long {
		t.Fatalf("unexpected runs %v/%v %s/%s", a, b, sa, sb)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs diverged at %d", i)
		}
	}
}
