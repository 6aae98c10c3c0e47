// Core wires the concurrency pieces together: the dispatcher loop owns
// all presentation state, workers run the export pipeline, and the only
// traffic between them is dispatched tasks.
package core

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/1F47E/go-inkwell/pkg/anim"
	"github.com/1F47E/go-inkwell/pkg/cache"
	"github.com/1F47E/go-inkwell/pkg/config"
	p "github.com/1F47E/go-inkwell/pkg/core/progress"
	"github.com/1F47E/go-inkwell/pkg/debounce"
	"github.com/1F47E/go-inkwell/pkg/dispatch"
	"github.com/1F47E/go-inkwell/pkg/job"
	"github.com/1F47E/go-inkwell/pkg/logger"
	"github.com/1F47E/go-inkwell/pkg/pipeline"
	"github.com/1F47E/go-inkwell/pkg/render"
	"github.com/1F47E/go-inkwell/pkg/tui"
	"github.com/1F47E/go-inkwell/pkg/workers"
	"github.com/1F47E/go-inkwell/pkg/workspace"
)

var log = logger.Log

type Core struct {
	ctx      context.Context
	eventsCh chan tui.Event

	disp        *dispatch.Dispatcher
	debouncer   *debounce.Debouncer
	anim        *anim.Scheduler
	backgrounds *cache.Cache[string, image.Image]
	ws          *workspace.Manager
	pipe        *pipeline.Pipeline
	worker      *workers.Worker

	// presentation state, owning goroutine only
	percent   float64
	barTitle  string
	barRun    *anim.Run
	suspended bool
}

func New(ctx context.Context, renderer render.Renderer, pdf pipeline.PageWriter) *Core {
	return NewWithWorkspaceRoot(ctx, renderer, pdf, config.PathWorkspaceRoot)
}

func NewWithWorkspaceRoot(ctx context.Context, renderer render.Renderer, pdf pipeline.PageWriter, root string) *Core {
	disp := dispatch.New()
	ws := workspace.NewManager(root)
	pipe := pipeline.New(disp, ws, renderer, pdf)

	c := &Core{
		ctx:         ctx,
		eventsCh:    make(chan tui.Event, 64),
		disp:        disp,
		debouncer:   debounce.New(disp),
		anim:        anim.New(disp),
		backgrounds: cache.New[string, image.Image](disp),
		ws:          ws,
		pipe:        pipe,
	}
	pipe.Backgrounds = c.backgrounds
	c.worker = workers.NewWorker(ctx, disp, pipe)
	return c
}

// Start launches the owning loop. Everything that touches presentation
// state after this point goes through the dispatcher.
func (c *Core) Start() {
	go c.disp.Run(c.ctx)
}

func (c *Core) EventsCh() chan tui.Event {
	return c.eventsCh
}

func (c *Core) Dispatcher() *dispatch.Dispatcher {
	return c.disp
}

// Generate runs one export on the calling (worker) goroutine. Progress
// lands in the TUI as smooth animated bar updates, not raw jumps.
func (c *Core) Generate(j job.Export) pipeline.Result {
	log.WithField("scope", "core generate").Debugf("starting %s", j.Print())
	c.emitAsync(tui.NewEventSpin(fmt.Sprintf("Rendering %q...", j.Name)))

	c.prepareBackground(j.Request.Background)

	hooks := pipeline.Hooks{
		OnProgress: func(done, total int) {
			title := fmt.Sprintf("Exporting %q", j.Name)
			c.animateTo(title, float64(done)/float64(total))
		},
		OnResult: func(res pipeline.Result) {
			c.emit(resultEvent(j.Name, res))
		},
	}
	return c.pipe.Export(c.ctx, j.Request, hooks)
}

// ProcessQueue feeds the whole queue through a worker pool, one
// pipeline run per item. plain switches the progress output from TUI
// events to the progressbar (scripts, CI).
func (c *Core) ProcessQueue(items []job.Export, plain bool) []job.Result {
	total := len(items)
	if total == 0 {
		return nil
	}
	log.WithField("scope", "core queue").Debugf("processing %d items", total)

	if plain {
		p.ProgressReset(total, "Processing queue... ")
	} else {
		c.emitAsync(tui.NewEventBar(fmt.Sprintf("Queue 0/%d", total), 0))
	}

	processed := 0
	hooks := pipeline.Hooks{
		// runs on the owning goroutine, one tick per finished item
		OnResult: func(pipeline.Result) {
			processed++
			if plain {
				p.Add(1)
				return
			}
			title := fmt.Sprintf("Queue %d/%d", processed, total)
			c.animateTo(title, float64(processed)/float64(total))
		},
	}

	// ===== START WORKERS
	jobs := make(chan job.Export)
	results := make(chan job.Result, total)
	numCPU := runtime.NumCPU()

	wg := sync.WaitGroup{}
	for i := 0; i <= numCPU; i++ {
		wg.Add(1)
		i := i
		go func() {
			c.worker.WorkerExport(i, jobs, results, hooks)
			wg.Done()
		}()
	}

feed:
	for _, item := range items {
		select {
		case <-c.ctx.Done():
			break feed
		case jobs <- item:
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	out := make([]job.Result, 0, total)
	for res := range results {
		out = append(out, res)
	}

	if plain {
		p.Finish()
	} else {
		c.emitAsync(tui.NewEventDone(fmt.Sprintf("Queue finished, %d items", len(out))))
	}
	return out
}

// OnResize absorbs terminal resize storms: one clean redraw once the
// drag quiesces, nothing in between.
func (c *Core) OnResize(w, h int) {
	c.debouncer.Trigger(config.DebounceResizeKey, config.DebounceSettleDelay, func() {
		log.WithField("scope", "core").Debugf("resize settled at %dx%d", w, h)
		c.emit(tui.NewEventBar(c.barTitle, c.percent))
	})
}

// SetActive flips the suspended condition (hidden or closed surface).
// While inactive, debounce triggers are dropped and no events flow.
func (c *Core) SetActive(active bool) {
	c.debouncer.Suspend(!active)
	c.disp.Submit(func() {
		c.suspended = !active
	})
}

// Close marks the presentation surface gone for good. Pending debounced
// actions become no-ops at fire time.
func (c *Core) Close() {
	c.debouncer.Detach()
}

// prepareBackground warms the background cache through a dispatched
// task, so every worker after the first gets the decoded image for
// free. Waiting here blocks only the worker goroutine.
func (c *Core) prepareBackground(bg render.Background) {
	if bg.Kind != render.BackgroundImage {
		return
	}
	done := make(chan struct{})
	c.disp.Submit(func() {
		defer close(done)
		_, err := c.backgrounds.GetOrCreate(bg.ImagePath, func() (image.Image, error) {
			return render.LoadImage(bg.ImagePath)
		})
		if err != nil {
			// worker will fail the render stage properly, just note it
			log.WithField("scope", "core").Warnf("background prepare: %v", err)
		}
	})
	select {
	case <-done:
	case <-c.ctx.Done():
	}
}

// animateTo advances the bar to target through bounded ticks instead of
// one jump. Owning goroutine only.
func (c *Core) animateTo(title string, target float64) {
	if c.barRun != nil {
		c.barRun.Cancel()
		c.barRun = nil
	}
	c.barTitle = title

	delta := int((target - c.percent) * 1000)
	if delta <= 0 {
		c.percent = target
		c.emit(tui.NewEventBar(title, c.percent))
		return
	}
	c.barRun = c.anim.Start(delta, config.AnimTickDelay, func(inc int) {
		c.percent += float64(inc) / 1000
		c.emit(tui.NewEventBar(title, c.percent))
	}, nil)
}

// emit pushes an event to the TUI without ever blocking the owning
// loop, a busy UI just misses a frame. Owning goroutine only.
func (c *Core) emit(e tui.Event) {
	if c.suspended {
		return
	}
	select {
	case c.eventsCh <- e:
	default:
	}
}

// emitAsync is emit for worker contexts, routed through the dispatcher.
func (c *Core) emitAsync(e tui.Event) {
	c.disp.Submit(func() {
		c.emit(e)
	})
}

func resultEvent(name string, res pipeline.Result) tui.Event {
	switch res.Outcome() {
	case pipeline.OutcomeSuccess:
		return tui.NewEventDone(fmt.Sprintf("%q exported, %d artifacts", name, len(res.Artifacts)))
	case pipeline.OutcomePartial:
		return tui.NewEventDone(fmt.Sprintf("%q exported with substitutions or failures", name))
	default:
		return tui.NewEventText(fmt.Sprintf("%q failed: %v", name, res.Err))
	}
}
