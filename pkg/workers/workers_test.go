package workers

import (
	"context"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1F47E/go-inkwell/pkg/dispatch"
	"github.com/1F47E/go-inkwell/pkg/job"
	"github.com/1F47E/go-inkwell/pkg/pipeline"
	"github.com/1F47E/go-inkwell/pkg/render"
	"github.com/1F47E/go-inkwell/pkg/workspace"
)

type panicRenderer struct{}

func (panicRenderer) Render(context.Context, render.Content) (*image.NRGBA, error) {
	panic("renderer bug")
}

func newWorker(t *testing.T, r render.Renderer) (*Worker, *dispatch.Dispatcher, string) {
	t.Helper()
	d := dispatch.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.Run(ctx)

	dir := t.TempDir()
	p := pipeline.New(d, workspace.NewManager(filepath.Join(dir, "runs")), r, nil)
	return NewWorker(ctx, d, p), d, dir
}

func TestWorkerProcessesJobs(t *testing.T) {
	w, _, dir := newWorker(t, render.NewScribble())

	jobs := make(chan job.Export)
	results := make(chan job.Result, 2)
	go w.WorkerExport(1, jobs, results, pipeline.Hooks{})

	jobs <- job.New("first", pipeline.Request{
		Content:    render.Content{Text: "hello"},
		Background: render.Background{Kind: render.BackgroundTransparent},
		Formats:    []pipeline.Format{pipeline.FormatPNG},
		Basename:   filepath.Join(dir, "first"),
	})
	close(jobs)

	select {
	case res := <-results:
		assert.Equal(t, "first", res.Name)
		require.NoError(t, res.Res.Err)
		assert.FileExists(t, filepath.Join(dir, "first-alpha.png"))
	case <-time.After(5 * time.Second):
		t.Fatal("worker never produced a result")
	}
}

func TestWorkerSurvivesPanic(t *testing.T) {
	w, _, dir := newWorker(t, panicRenderer{})

	jobs := make(chan job.Export)
	results := make(chan job.Result, 2)

	reported := make(chan pipeline.Result, 2)
	hooks := pipeline.Hooks{OnResult: func(r pipeline.Result) { reported <- r }}
	go w.WorkerExport(1, jobs, results, hooks)

	jobs <- job.New("boom", pipeline.Request{
		Content:  render.Content{Text: "x"},
		Formats:  []pipeline.Format{pipeline.FormatPNG},
		Basename: filepath.Join(dir, "boom"),
	})

	// the panic is converted into a reported failure on both paths
	select {
	case res := <-results:
		assert.Error(t, res.Res.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker died instead of reporting")
	}
	select {
	case r := <-reported:
		assert.Error(t, r.Err)
	case <-time.After(time.Second):
		t.Fatal("failure never dispatched to the owning thread")
	}

	// still alive for the next job
	jobs <- job.New("again", pipeline.Request{
		Content:  render.Content{Text: "y"},
		Formats:  []pipeline.Format{pipeline.FormatPNG},
		Basename: filepath.Join(dir, "again"),
	})
	select {
	case res := <-results:
		assert.Equal(t, "again", res.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
}

func TestJobNamePreview(t *testing.T) {
	j := job.New("", pipeline.Request{Content: render.Content{
		Text: "a fairly long piece of text that needs trimming",
	}})
	assert.Equal(t, "a fairly long piece ...", j.Name)

	j = job.New("custom", pipeline.Request{})
	assert.Equal(t, "custom", j.Name)
}
