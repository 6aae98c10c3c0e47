// Single-consumer task queue between worker goroutines and the one
// goroutine that owns all presentation state. Producers never block,
// the owner drains cooperatively between waits.
package dispatch

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1F47E/go-inkwell/pkg/logger"
)

var log = logger.Log

type Task func()

// queued task with its submitter identity, for failure reports
type queued struct {
	fn     Task
	origin uint64 // submitting goroutine id
	seq    uint64 // submission number within that goroutine
}

type Dispatcher struct {
	mu    sync.Mutex
	queue []queued
	seqs  map[uint64]uint64
	wake  chan struct{}
	owner atomic.Uint64

	// called on the owning goroutine when a task panics, after logging.
	// optional, set before Run.
	OnTaskFailure func(origin, seq uint64, reason any)
}

func New() *Dispatcher {
	return &Dispatcher{
		seqs: make(map[uint64]uint64),
		wake: make(chan struct{}, 1),
	}
}

// Submit enqueues fn for execution on the owning goroutine.
// Never blocks, safe to call from any goroutine.
// Tasks from the same goroutine run in submission order.
func (d *Dispatcher) Submit(fn Task) {
	g := goid()
	d.mu.Lock()
	d.seqs[g]++
	d.queue = append(d.queue, queued{fn: fn, origin: g, seq: d.seqs[g]})
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// ScheduleAfter enqueues fn no earlier than delay from now.
// The returned timer can be stopped to drop the task before it fires.
func (d *Dispatcher) ScheduleAfter(delay time.Duration, fn Task) *time.Timer {
	return time.AfterFunc(delay, func() {
		d.Submit(fn)
	})
}

// Run is the owning loop. The goroutine that calls Run becomes the owner
// of all state mutated by dispatched tasks. Returns when ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	d.owner.Store(goid())
	defer d.owner.Store(0)
	log.WithField("scope", "dispatch").Debug("owning loop started")

	for {
		select {
		case <-ctx.Done():
			log.WithField("scope", "dispatch").Debug("owning loop done")
			return
		case <-d.wake:
			d.drain()
		}
	}
}

// drain pops the whole backlog and executes it.
// Tasks submitted during the drain send a fresh wake token,
// so nothing here ever waits.
func (d *Dispatcher) drain() {
	d.mu.Lock()
	batch := d.queue
	d.queue = nil
	d.mu.Unlock()

	for _, q := range batch {
		d.exec(q)
	}
}

// exec runs one task. A panicking task is converted into a reported
// failure, never a crash of the owning loop.
func (d *Dispatcher) exec(q queued) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("scope", "dispatch").
				Errorf("task failed (goroutine %d seq %d): %v", q.origin, q.seq, r)
			if d.OnTaskFailure != nil {
				d.OnTaskFailure(q.origin, q.seq, r)
			}
		}
	}()
	q.fn()
}

// Owns reports whether the calling goroutine is the owning loop.
func (d *Dispatcher) Owns() bool {
	return d.owner.Load() != 0 && d.owner.Load() == goid()
}

// MustOwn panics when called off the owning goroutine. Components that
// are single-thread by contract use it to turn races into loud failures.
func (d *Dispatcher) MustOwn() {
	if !d.Owns() {
		panic("dispatch: called off the owning goroutine")
	}
}

// Pending reports the current backlog size.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// goid parses the goroutine id out of the stack header,
// "goroutine 123 [running]:". Used for identity only, never scheduling.
func goid() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	fields := strings.Fields(string(buf[:n]))
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}
