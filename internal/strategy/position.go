package strategy

import (
	"mbostrength-go/internal/execution"
	"mbostrength-go/internal/signal"
)

// PositionState is the signal state machine's view of the strategy position.
type PositionState int

const (
	Flat PositionState = iota
	Long
	Short
)

func (p PositionState) String() string {
	switch p {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

// Entry and exit thresholds on the published pair.
const (
	EntryDeviation = 15
	EntryStrength  = 110
	ExitStrength   = 50
)

// Transition describes what one tick did. Action is empty when nothing changed.
type Transition struct {
	From      PositionState
	To        PositionState
	Direction execution.Direction
	Action    execution.Action
}

// Changed reports whether the tick moved the machine.
func (t Transition) Changed() bool { return t.Action != "" }

// PositionMachine is a Flat/Long/Short machine with no direct Long<->Short flip. It is not
// safe for concurrent use; the timer goroutine owns it.
type PositionMachine struct {
	state PositionState
}

// State returns the current position state.
func (m *PositionMachine) State() PositionState { return m.state }

// Step evaluates one tick. Undefined indicators never cause a transition.
func (m *PositionMachine) Step(ind signal.Indicators) Transition {
	tr := Transition{From: m.state, To: m.state}
	if ind.Undefined() {
		return tr
	}
	dev, str := ind.Deviation, ind.Strength

	switch m.state {
	case Flat:
		switch {
		case dev > EntryDeviation && str > EntryStrength:
			tr.To, tr.Direction, tr.Action = Long, execution.Long, execution.Open
		case dev < -EntryDeviation && str < -EntryStrength:
			tr.To, tr.Direction, tr.Action = Short, execution.Short, execution.Open
		}
	case Long:
		if dev < 0 && str < ExitStrength {
			tr.To, tr.Direction, tr.Action = Flat, execution.Long, execution.Close
		}
	case Short:
		if dev > 0 && str > -ExitStrength {
			tr.To, tr.Direction, tr.Action = Flat, execution.Short, execution.Close
		}
	}
	m.state = tr.To
	return tr
}
