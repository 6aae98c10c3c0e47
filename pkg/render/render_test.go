package render

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inkSquare() *image.NRGBA {
	// 4x4 transparent canvas with an opaque blue dot at (1,1)
	ink := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	ink.SetNRGBA(1, 1, color.NRGBA{B: 0xff, A: 0xff})
	return ink
}

func TestComposeTransparentKeepsAlpha(t *testing.T) {
	ink := inkSquare()
	out, err := Compose(ink, Background{Kind: BackgroundTransparent}, nil)
	require.NoError(t, err)

	assert.Equal(t, uint8(0), out.NRGBAAt(0, 0).A, "background became opaque")
	assert.Equal(t, uint8(0xff), out.NRGBAAt(1, 1).A)
}

func TestComposeSolidFillsBackground(t *testing.T) {
	ink := inkSquare()
	red := color.NRGBA{R: 0xff, A: 0xff}
	out, err := Compose(ink, Background{Kind: BackgroundSolid, Color: red}, nil)
	require.NoError(t, err)

	assert.Equal(t, red, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{B: 0xff, A: 0xff}, out.NRGBAAt(1, 1), "ink lost during compose")
}

func TestComposeImageScalesToCanvas(t *testing.T) {
	ink := inkSquare()
	bg := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			bg.SetNRGBA(x, y, color.NRGBA{G: 0xff, A: 0xff})
		}
	}

	out, err := Compose(ink, Background{Kind: BackgroundImage, ImagePath: "x.png"}, bg)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xff), out.NRGBAAt(3, 3).A, "scaled background missing")
	assert.Equal(t, uint8(0xff), out.NRGBAAt(3, 3).G)
}

func TestComposeImageWithoutResolvedImage(t *testing.T) {
	_, err := Compose(inkSquare(), Background{Kind: BackgroundImage, ImagePath: "x.png"}, nil)
	assert.Error(t, err)
}

func TestFlattenWhite(t *testing.T) {
	flat := FlattenWhite(inkSquare())

	assert.Equal(t, White, flat.NRGBAAt(0, 0), "transparent area not flattened to white")
	got := flat.NRGBAAt(1, 1)
	assert.Equal(t, uint8(0xff), got.A)
	assert.Equal(t, uint8(0xff), got.B)
}

func TestBackgroundVariant(t *testing.T) {
	testCases := []struct {
		name string
		bg   Background
		want string
	}{
		{"transparent", Background{Kind: BackgroundTransparent}, "alpha"},
		{"white", Background{Kind: BackgroundSolid, Color: White}, "white"},
		{"custom color", Background{Kind: BackgroundSolid, Color: color.NRGBA{R: 0x00, G: 0x32, B: 0x64, A: 0xff}}, "003264"},
		{"image", Background{Kind: BackgroundImage, ImagePath: "paper.png"}, "image"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.bg.Variant())
		})
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#003264")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0x00, G: 0x32, B: 0x64, A: 0xff}, c)

	_, err = ParseHexColor("003264")
	assert.Error(t, err)
	_, err = ParseHexColor("#zzzzzz")
	assert.Error(t, err)
}

func TestWrap(t *testing.T) {
	lines := wrap("the quick brown fox jumps over the lazy dog", 10)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 10)
	}
	assert.Equal(t, "the quick", lines[0])
}

func TestScribbleRenders(t *testing.T) {
	r := &Scribble{Width: 400, Height: 300}
	img, err := r.Render(context.Background(), Content{
		Text:        "hello world",
		StrokeColor: color.NRGBA{A: 0xff},
		StrokeWidth: 2,
		Legibility:  50,
	})
	require.NoError(t, err)

	opaque := 0
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			if img.NRGBAAt(x, y).A != 0 {
				opaque++
			}
		}
	}
	assert.Greater(t, opaque, 0, "renderer produced a blank canvas")
}

func TestScribbleHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewScribble().Render(ctx, Content{Text: "hello"})
	assert.Error(t, err)
}
