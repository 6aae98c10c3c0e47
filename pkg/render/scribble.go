package render

import (
	"context"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/1F47E/go-inkwell/pkg/config"
)

// Scribble is the built-in stand-in renderer: one wavy stroke per text
// line, shaped by the writing parameters. The real synthesis model
// plugs in behind the Renderer interface, this keeps the pipeline
// runnable without it.
type Scribble struct {
	Width  int
	Height int
}

func NewScribble() *Scribble {
	return &Scribble{Width: config.CanvasWidth, Height: config.CanvasHeight}
}

func (s *Scribble) Render(ctx context.Context, c Content) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, s.Width, s.Height))

	lineWidth := c.LineWidth
	if lineWidth <= 0 {
		lineWidth = config.DefaultLineWidth
	}
	spacing := c.LineSpacing
	if spacing <= 0 {
		spacing = config.DefaultLineSpacing
	}
	stroke := int(math.Max(1, c.StrokeWidth))

	lines := wrap(c.Text, lineWidth)
	marginX, marginY := 200, 150
	if max := (s.Height - 2*marginY) / spacing; len(lines) > max && max > 0 {
		lines = lines[:max]
	}
	// less legible writing wobbles more
	wobble := 6.0 * float64(100-c.Legibility) / 100.0

	for li, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		baseY := marginY + li*spacing
		runLen := len(line) * (s.Width - 2*marginX) / lineWidth
		if runLen <= 0 {
			continue
		}
		startX := marginX
		switch c.Align {
		case "middle":
			startX = (s.Width - runLen) / 2
		case "right":
			startX = s.Width - marginX - runLen
		}
		for x := 0; x < runLen; x++ {
			phase := float64(x)/14.0 + float64(c.StyleIndex)
			y := baseY + int(math.Sin(phase)*(10+wobble))
			dot(img, startX+x, y, stroke, c.StrokeColor)
		}
	}
	return img, nil
}

func wrap(text string, width int) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		for len(para) > width {
			cut := strings.LastIndex(para[:width], " ")
			if cut <= 0 {
				cut = width
			}
			out = append(out, strings.TrimSpace(para[:cut]))
			para = strings.TrimSpace(para[cut:])
		}
		out = append(out, para)
	}
	return out
}

func dot(img *image.NRGBA, cx, cy, r int, c color.NRGBA) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				img.Set(cx+dx, cy+dy, c)
			}
		}
	}
}
