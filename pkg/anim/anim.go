// Advances a progress indicator in discrete non-blocking ticks. Each
// tick runs as a dispatched task and reschedules the next one, so the
// owning loop never sleeps through an animation.
package anim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/1F47E/go-inkwell/pkg/config"
	"github.com/1F47E/go-inkwell/pkg/dispatch"
)

type Scheduler struct {
	d     *dispatch.Dispatcher
	ticks int

	mu   sync.Mutex
	runs map[*Run]struct{}
}

// A Run is one animation in flight. Increments across all its ticks sum
// to exactly the total it was started with.
type Run struct {
	s          *Scheduler
	delay      time.Duration
	step       func(inc int)
	onComplete func()

	increments []int
	idx        int // next tick, owning goroutine only

	total    int
	done     atomic.Int64
	canceled atomic.Bool
}

func New(d *dispatch.Dispatcher) *Scheduler {
	return NewWithTicks(d, config.AnimTicks)
}

func NewWithTicks(d *dispatch.Dispatcher, ticks int) *Scheduler {
	if ticks < 1 {
		ticks = 1
	}
	return &Scheduler{
		d:     d,
		ticks: ticks,
		runs:  make(map[*Run]struct{}),
	}
}

// Start splits total into at most the scheduler's tick count and begins
// delivering increments to step, one dispatched task per tick, delay
// apart. onComplete fires once, after the last increment. Either
// callback may be nil.
func (s *Scheduler) Start(total int, delay time.Duration, step func(inc int), onComplete func()) *Run {
	r := &Run{
		s:          s,
		delay:      delay,
		step:       step,
		onComplete: onComplete,
		total:      total,
		increments: splitIncrements(total, s.ticks),
	}

	s.mu.Lock()
	s.runs[r] = struct{}{}
	s.mu.Unlock()

	if len(r.increments) == 0 {
		// nothing to animate, still complete exactly once
		s.d.Submit(r.finish)
		return r
	}
	s.d.ScheduleAfter(delay, r.tick)
	return r
}

// splitIncrements spreads total over at most ticks steps, folding the
// rounding remainder into the final step.
func splitIncrements(total, ticks int) []int {
	if total <= 0 {
		return nil
	}
	if ticks > total {
		ticks = total
	}
	base := total / ticks
	incs := make([]int, ticks)
	for i := range incs {
		incs[i] = base
	}
	incs[ticks-1] = total - base*(ticks-1)
	return incs
}

// tick runs on the owning goroutine.
func (r *Run) tick() {
	if r.canceled.Load() {
		r.s.remove(r)
		return
	}

	inc := r.increments[r.idx]
	r.idx++
	r.done.Add(int64(inc))
	if r.step != nil {
		r.step(inc)
	}

	if r.idx == len(r.increments) {
		r.finish()
		return
	}
	r.s.d.ScheduleAfter(r.delay, r.tick)
}

func (r *Run) finish() {
	r.s.remove(r)
	if r.canceled.Load() {
		return
	}
	if r.onComplete != nil {
		r.onComplete()
	}
}

// Cancel stops all future ticks. Increments already applied stay.
func (r *Run) Cancel() {
	r.canceled.Store(true)
	r.s.remove(r)
}

// Done reports the sum of increments delivered so far.
func (r *Run) Done() int {
	return int(r.done.Load())
}

func (r *Run) Total() int {
	return r.total
}

func (s *Scheduler) remove(r *Run) {
	s.mu.Lock()
	delete(s.runs, r)
	s.mu.Unlock()
}

// Active reports how many runs have not reached a terminal state.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}
