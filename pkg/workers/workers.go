package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/1F47E/go-inkwell/pkg/dispatch"
	"github.com/1F47E/go-inkwell/pkg/job"
	"github.com/1F47E/go-inkwell/pkg/logger"
	"github.com/1F47E/go-inkwell/pkg/pipeline"
)

var log = logger.Log

// Worker runs export jobs off a channel, one pipeline invocation per
// job. All the heavy lifting stays on the worker goroutine, only
// notifications cross over to the owning thread.
type Worker struct {
	ctx      context.Context
	disp     *dispatch.Dispatcher
	pipeline *pipeline.Pipeline
}

func NewWorker(ctx context.Context, disp *dispatch.Dispatcher, p *pipeline.Pipeline) *Worker {
	return &Worker{
		ctx:      ctx,
		disp:     disp,
		pipeline: p,
	}
}

// WorkerExport processes jobs until the channel closes or ctx is done.
// hooks apply to every job this worker picks up.
func (w *Worker) WorkerExport(i int, jobs <-chan job.Export, results chan<- job.Result, hooks pipeline.Hooks) {
	name := fmt.Sprintf("WorkerExport #%d", i)
	log.Debugf("%s started\n", name)
	defer log.Debugf("%s finished\n", name)

	for {
		select {
		case <-w.ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			log.Debugf("%s got job %s\n", name, j.Print())

			now := time.Now()
			res := w.run(j, hooks)
			log.Debugf("%s job done. Took time: %s\n", name, time.Since(now))

			if results != nil {
				select {
				case <-w.ctx.Done():
					return
				case results <- job.Result{Name: j.Name, Res: res}:
				}
			}
		}
	}
}

// run shields the worker loop: a panicking export turns into a reported
// failure, the worker never dies silently.
func (w *Worker) run(j job.Export, hooks pipeline.Hooks) (res pipeline.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("export of %q panicked: %v", j.Name, r)
			res = pipeline.Result{Err: fmt.Errorf("export of %q panicked: %v", j.Name, r)}
			if hooks.OnResult != nil {
				out := res
				w.disp.Submit(func() { hooks.OnResult(out) })
			}
		}
	}()
	return w.pipeline.Export(w.ctx, j.Request, hooks)
}
