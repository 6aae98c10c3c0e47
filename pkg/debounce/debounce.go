// Coalesces bursts of repeated trigger events (resize storms and the
// like) into a single deferred action per key. At most one live timer
// per key, a new trigger replaces the pending one.
package debounce

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/1F47E/go-inkwell/pkg/dispatch"
	"github.com/1F47E/go-inkwell/pkg/logger"
)

var log = logger.Log

type pending struct {
	timer *time.Timer
	gen   uint64
}

type Debouncer struct {
	d *dispatch.Dispatcher

	mu        sync.Mutex
	timers    map[string]pending
	gens      map[string]uint64
	suspended bool

	detached atomic.Bool
}

func New(d *dispatch.Dispatcher) *Debouncer {
	return &Debouncer{
		d:      d,
		timers: make(map[string]pending),
		gens:   make(map[string]uint64),
	}
}

// Trigger schedules action to run on the owning goroutine after delay,
// replacing any pending action for the same key. Out of a burst of
// triggers only the last action ever runs.
//
// While suspended this is a no-op, no timer is started or cancelled.
// The first trigger after Resume fires normally.
func (b *Debouncer) Trigger(key string, delay time.Duration, action func()) {
	b.mu.Lock()
	if b.suspended {
		b.mu.Unlock()
		log.WithField("scope", "debounce").Debugf("suspended, dropping trigger %q", key)
		return
	}

	if p, ok := b.timers[key]; ok {
		p.timer.Stop()
	}
	b.gens[key]++
	gen := b.gens[key]
	timer := b.d.ScheduleAfter(delay, func() {
		b.fire(key, gen, action)
	})
	b.timers[key] = pending{timer: timer, gen: gen}
	b.mu.Unlock()
}

// fire runs on the owning goroutine. A fire that lost the race to a
// newer trigger, or arrived after Cancel, is dropped here.
func (b *Debouncer) fire(key string, gen uint64, action func()) {
	b.mu.Lock()
	p, ok := b.timers[key]
	if !ok || p.gen != gen {
		b.mu.Unlock()
		return
	}
	delete(b.timers, key)
	b.mu.Unlock()

	// subject gone between trigger and fire: no-op, not an error
	if b.detached.Load() {
		log.WithField("scope", "debounce").Debugf("detached, dropping fire %q", key)
		return
	}
	action()
}

// Cancel drops the pending action for key, if any.
func (b *Debouncer) Cancel(key string) {
	b.mu.Lock()
	if p, ok := b.timers[key]; ok {
		p.timer.Stop()
		delete(b.timers, key)
	}
	b.mu.Unlock()
}

// Suspend pauses triggering while the owning surface is inactive
// (minimized window, hidden view). Pending timers are left alone.
func (b *Debouncer) Suspend(flag bool) {
	b.mu.Lock()
	b.suspended = flag
	b.mu.Unlock()
}

// Detach marks the subject of all actions as gone. Pending and future
// fires become no-ops, checked at execution time.
func (b *Debouncer) Detach() {
	b.detached.Store(true)
}

// PendingCount reports how many keys have a live timer.
func (b *Debouncer) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.timers)
}
