// Worker-side export orchestration: render and compose the ink, write
// one artifact per requested format, report progress and the final
// result back to the owning thread through the dispatcher, never
// directly.
package pipeline

import (
	"context"
	"fmt"
	"image"

	"github.com/1F47E/go-inkwell/pkg/cache"
	"github.com/1F47E/go-inkwell/pkg/config"
	"github.com/1F47E/go-inkwell/pkg/dispatch"
	"github.com/1F47E/go-inkwell/pkg/logger"
	"github.com/1F47E/go-inkwell/pkg/render"
	"github.com/1F47E/go-inkwell/pkg/workspace"
)

var log = logger.Log

type Format string

const (
	FormatPNG Format = "png"
	FormatJPG Format = "jpg"
	FormatPDF Format = "pdf"
)

// PageWriter is the optional external vector page capability. When it
// is absent, PDF-class artifacts degrade to PNG.
type PageWriter interface {
	WritePage(img image.Image, path string) error
}

// Request is one export run: what to write, on what background, in
// which formats, and where the artifacts land. Output paths follow
// <basename>-<variant>.<ext>.
type Request struct {
	Content    render.Content
	Background render.Background
	Formats    []Format
	Quality    int // jpg only, clamped to [config.QualityMin, config.QualityMax]
	Basename   string
}

// per-request state machine, carried as a log field
type state string

const (
	statePending   state = "pending"
	stateRendering state = "rendering"
	stateWriting   state = "writing"
)

type Status int

const (
	StatusSucceeded Status = iota
	StatusFallback         // capability missing, substitute artifact written
	StatusFailed
)

// Artifact is the terminal sub-state of one requested format.
type Artifact struct {
	Format   Format
	Path     string
	Status   Status
	Fallback Format // substitute format actually written, if any
	Err      error
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomePartial
	OutcomeFailure
)

type Result struct {
	Artifacts []Artifact
	Err       error // workspace or render stage failure, fatal
}

// Outcome distinguishes full success, partial success (fallbacks or
// per-format failures) and full failure.
func (r *Result) Outcome() Outcome {
	if r.Err != nil {
		return OutcomeFailure
	}
	clean, dirty := 0, 0
	for _, a := range r.Artifacts {
		switch a.Status {
		case StatusSucceeded:
			clean++
		default:
			dirty++
		}
	}
	switch {
	case dirty == 0:
		return OutcomeSuccess
	case clean > 0 || hasFallback(r.Artifacts):
		return OutcomePartial
	default:
		return OutcomeFailure
	}
}

func hasFallback(artifacts []Artifact) bool {
	for _, a := range artifacts {
		if a.Status == StatusFallback {
			return true
		}
	}
	return false
}

// Hooks are delivered on the owning thread, one Submit per call.
type Hooks struct {
	OnProgress func(done, total int)
	OnResult   func(Result)
}

type Pipeline struct {
	disp     *dispatch.Dispatcher
	ws       *workspace.Manager
	renderer render.Renderer
	pdf      PageWriter // nil means capability unavailable

	// prepared background images, owning thread fills it, workers Peek
	Backgrounds *cache.Cache[string, image.Image]
}

func New(disp *dispatch.Dispatcher, ws *workspace.Manager, renderer render.Renderer, pdf PageWriter) *Pipeline {
	return &Pipeline{
		disp:     disp,
		ws:       ws,
		renderer: renderer,
		pdf:      pdf,
	}
}

// Export runs one request on the calling (worker) goroutine and returns
// its result. The same result and all progress ticks are also delivered
// through the dispatcher hooks. Blocking work stays here, the owning
// thread only ever sees short notification tasks.
func (p *Pipeline) Export(ctx context.Context, req Request, hooks Hooks) Result {
	l := log.WithField("scope", "pipeline").WithField("state", statePending)

	total := 1 + len(req.Formats) // render plus one tick per format
	done := 0
	progress := func() {
		done++
		d := done
		if hooks.OnProgress != nil {
			p.disp.Submit(func() { hooks.OnProgress(d, total) })
		}
	}

	ws, err := p.ws.Acquire()
	if err != nil {
		return p.report(hooks, Result{Err: &WorkspaceError{Err: err}})
	}
	// every exit path below reaches this exactly once, after all
	// formats are terminal
	defer func() {
		if err := ws.Release(); err != nil {
			l.Warnf("workspace release: %v", err)
		}
	}()

	// ===== RENDERING
	l = l.WithField("state", stateRendering)
	l.Debugf("rendering %q", req.Basename)
	ink, err := p.renderer.Render(ctx, req.Content)
	if err != nil {
		return p.report(hooks, Result{Err: &RenderError{Err: err}})
	}

	bgImage, err := p.resolveBackground(req.Background)
	if err != nil {
		return p.report(hooks, Result{Err: &RenderError{Err: err}})
	}
	composed, err := render.Compose(ink, req.Background, bgImage)
	if err != nil {
		return p.report(hooks, Result{Err: &RenderError{Err: err}})
	}
	progress()

	// ===== WRITING
	l = l.WithField("state", stateWriting)
	l.Debugf("writing %d formats", len(req.Formats))
	res := Result{Artifacts: make([]Artifact, 0, len(req.Formats))}
	quality := clampQuality(req.Quality)
	variant := req.Background.Variant()
	for _, format := range req.Formats {
		a := p.writeArtifact(ws, composed, req.Basename, variant, format, quality)
		if a.Err != nil {
			l.Warnf("artifact %s: %v", format, a.Err)
		}
		res.Artifacts = append(res.Artifacts, a)
		progress()
	}

	return p.report(hooks, res)
}

// writeArtifact brings one format to a terminal sub-state. The file is
// encoded into workspace scratch first and moved into place only when
// complete, so a failed write never leaves a partial artifact behind.
func (p *Pipeline) writeArtifact(ws *workspace.Handle, img *image.NRGBA, basename, variant string, format Format, quality int) Artifact {
	a := Artifact{Format: format}

	switch format {
	case FormatPNG:
		a.Path = artifactPath(basename, variant, "png")
		a.Err = writeMoved(ws, a.Path, func(scratch string) error {
			return writePNG(img, scratch)
		})

	case FormatJPG:
		a.Path = artifactPath(basename, variant, "jpg")
		// jpg cannot carry alpha, flatten is mandatory
		flat := render.FlattenWhite(img)
		a.Err = writeMoved(ws, a.Path, func(scratch string) error {
			return writeJPG(flat, scratch, quality)
		})

	case FormatPDF:
		if p.pdf == nil {
			// degrade to png, loudly
			a.Status = StatusFallback
			a.Fallback = FormatPNG
			a.Path = artifactPath(basename, variant, "png")
			a.Err = writeMoved(ws, a.Path, func(scratch string) error {
				return writePNG(img, scratch)
			})
			if a.Err == nil {
				log.WithField("scope", "pipeline").
					Warnf("%v, wrote %s instead", ErrCapabilityUnavailable, a.Path)
				return a
			}
		} else {
			a.Path = artifactPath(basename, variant, "pdf")
			a.Err = writeMoved(ws, a.Path, func(scratch string) error {
				return p.pdf.WritePage(img, scratch)
			})
		}

	default:
		a.Err = fmt.Errorf("unknown format %q", format)
	}

	if a.Err != nil {
		a.Status = StatusFailed
		a.Err = &WriteError{Format: format, Err: a.Err}
	}
	return a
}

// resolveBackground finds the pixels behind an image background. The
// prepared-image cache is consulted first (read-only from this worker),
// a cold key is decoded right here, worker-side.
func (p *Pipeline) resolveBackground(bg render.Background) (image.Image, error) {
	if bg.Kind != render.BackgroundImage {
		return nil, nil
	}
	if p.Backgrounds != nil {
		if img, ok := p.Backgrounds.Peek(bg.ImagePath); ok {
			return img, nil
		}
	}
	return render.LoadImage(bg.ImagePath)
}

// report delivers the final result through the dispatcher and hands it
// back to the caller. Worker failures always end up here, never as a
// silent death.
func (p *Pipeline) report(hooks Hooks, res Result) Result {
	if hooks.OnResult != nil {
		p.disp.Submit(func() { hooks.OnResult(res) })
	}
	return res
}

func artifactPath(basename, variant, ext string) string {
	return fmt.Sprintf("%s-%s.%s", basename, variant, ext)
}

// clampQuality forces the jpg quality into the valid range, out of
// range values are clamped rather than rejected.
func clampQuality(q int) int {
	if q == 0 {
		return config.QualityDefault
	}
	if q < config.QualityMin {
		return config.QualityMin
	}
	if q > config.QualityMax {
		return config.QualityMax
	}
	return q
}
