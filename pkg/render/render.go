// Composition of handwriting ink over a requested background. The
// handwriting synthesis itself lives behind the Renderer interface,
// this package only owns what happens to the pixels afterwards.
package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// Renderer produces the composed ink layer for one piece of content.
// Strokes are laid down on a fully transparent canvas.
type Renderer interface {
	Render(ctx context.Context, c Content) (*image.NRGBA, error)
}

// Content is the logical description of what to write.
type Content struct {
	Text        string
	StyleIndex  int
	StrokeColor color.NRGBA
	StrokeWidth float64
	Legibility  int
	LineWidth   int // chars per line
	LineSpacing int
	Align       string // left | middle | right
}

type BackgroundKind int

const (
	BackgroundTransparent BackgroundKind = iota
	BackgroundSolid
	BackgroundImage
)

// Background describes what goes behind the ink.
type Background struct {
	Kind      BackgroundKind
	Color     color.NRGBA // solid backgrounds
	ImagePath string      // image backgrounds
}

var White = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Variant names the artifact for output paths: the transparent PNG is
// the "alpha" artifact, everything else is named after its background.
func (b Background) Variant() string {
	switch b.Kind {
	case BackgroundTransparent:
		return "alpha"
	case BackgroundImage:
		return "image"
	default:
		if b.Color == White {
			return "white"
		}
		return fmt.Sprintf("%02x%02x%02x", b.Color.R, b.Color.G, b.Color.B)
	}
}

// Compose puts ink over the background. For image backgrounds the
// caller resolves bgImage (from the resource cache or a worker-side
// decode), and it is scaled to the ink canvas before the ink lands.
func Compose(ink *image.NRGBA, bg Background, bgImage image.Image) (*image.NRGBA, error) {
	bounds := ink.Bounds()

	switch bg.Kind {
	case BackgroundTransparent:
		return ink, nil

	case BackgroundSolid:
		out := image.NewNRGBA(bounds)
		draw.Draw(out, bounds, image.NewUniform(bg.Color), image.Point{}, draw.Src)
		draw.Draw(out, bounds, ink, bounds.Min, draw.Over)
		return out, nil

	case BackgroundImage:
		if bgImage == nil {
			return nil, fmt.Errorf("background image not resolved: %s", bg.ImagePath)
		}
		out := image.NewNRGBA(bounds)
		xdraw.CatmullRom.Scale(out, bounds, bgImage, bgImage.Bounds(), xdraw.Src, nil)
		draw.Draw(out, bounds, ink, bounds.Min, draw.Over)
		return out, nil
	}
	return nil, fmt.Errorf("unknown background kind %d", bg.Kind)
}

// FlattenWhite drops transparency by drawing img onto solid white.
// JPEG cannot represent an alpha channel, so this is mandatory before
// encoding to it.
func FlattenWhite(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	draw.Draw(out, bounds, image.NewUniform(White), image.Point{}, draw.Src)
	draw.Draw(out, bounds, img, bounds.Min, draw.Over)
	return out
}

// LoadImage reads and decodes a png or jpeg from disk.
func LoadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open image %s: %w", path, err)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("cannot decode image %s: %w", path, err)
	}
	return img, nil
}

// ParseHexColor parses "#rrggbb" into an opaque color.
func ParseHexColor(s string) (color.NRGBA, error) {
	c := color.NRGBA{A: 0xff}
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("bad hex color %q", s)
	}
	_, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &c.R, &c.G, &c.B)
	if err != nil {
		return c, fmt.Errorf("bad hex color %q: %w", s, err)
	}
	return c, nil
}
