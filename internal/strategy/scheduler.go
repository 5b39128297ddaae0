package strategy

import (
	"context"
	"sync/atomic"
	"time"
)

// Scheduler coalesces recompute requests so that any burst of events results in a single
// pending pass. A request made while a pass is pending is absorbed into it.
type Scheduler struct {
	pending atomic.Bool
	passes  atomic.Uint64
	wake    chan struct{}
	cycle   time.Duration
	pass    func()
}

// NewScheduler builds a scheduler running pass at most once per refresh cycle.
func NewScheduler(cycle time.Duration, pass func()) *Scheduler {
	return &Scheduler{
		wake:  make(chan struct{}, 1),
		cycle: cycle,
		pass:  pass,
	}
}

// Schedule requests a pass. It never blocks.
func (s *Scheduler) Schedule() {
	if !s.pending.CompareAndSwap(false, true) {
		return
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending reports whether a pass is waiting to run.
func (s *Scheduler) Pending() bool { return s.pending.Load() }

// Drain runs the pending pass, if any. The flag is cleared before the pass so that events
// arriving during the pass schedule a fresh one.
func (s *Scheduler) Drain() bool {
	if !s.pending.Swap(false) {
		return false
	}
	s.pass()
	s.passes.Add(1)
	return true
}

// Passes counts executed passes.
func (s *Scheduler) Passes() uint64 { return s.passes.Load() }

// Run drains requests until ctx is canceled, waiting one refresh cycle after each wake so a
// burst lands in the same pass.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		}
		if s.cycle > 0 {
			timer := time.NewTimer(s.cycle)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		s.Drain()
	}
}
