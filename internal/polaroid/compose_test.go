package polaroid

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
	"time"
)

func solidSquare(c color.RGBA, size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func newTestCompositor(t *testing.T) *Compositor {
	t.Helper()
	c, err := New(Options{})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return c
}

// bandInk counts caption band pixels that are not paper white.
func bandInk(img *image.RGBA) int {
	n := 0
	for y := Padding + ImageSize; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if img.RGBAAt(x, y) != paper {
				n++
			}
		}
	}
	return n
}

func TestLayoutGeometry(t *testing.T) {
	if CaptionHeight != 220 {
		t.Errorf("CaptionHeight = %d, want 220", CaptionHeight)
	}
	if r := ImageRect(); r != image.Rect(40, 40, 760, 760) {
		t.Errorf("ImageRect() = %v", r)
	}
	if p := CaptionCenter(); p != image.Pt(400, 870) {
		t.Errorf("CaptionCenter() = %v", p)
	}
}

func TestComposeProducesFixedSizeJPEG(t *testing.T) {
	c := newTestCompositor(t)

	data, err := c.Compose(solidSquare(color.RGBA{200, 30, 30, 255}, ImageSize), "Golden hour, golden mood", false)
	if err != nil {
		t.Fatalf("Compose() unexpected error: %v", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %q, want jpeg", format)
	}
	if cfg.Width != Width || cfg.Height != Height {
		t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, Width, Height)
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	c := newTestCompositor(t)
	sq := solidSquare(color.RGBA{10, 120, 240, 255}, ImageSize)

	for _, tc := range []struct {
		caption    string
		processing bool
	}{
		{"", true},
		{"", false},
		{"Good vibes only", false},
	} {
		a, err := c.Compose(sq, tc.caption, tc.processing)
		if err != nil {
			t.Fatalf("Compose() unexpected error: %v", err)
		}
		b, err := c.Compose(sq, tc.caption, tc.processing)
		if err != nil {
			t.Fatalf("Compose() unexpected error: %v", err)
		}
		if !bytes.Equal(a, b) {
			t.Errorf("caption=%q processing=%v: outputs differ", tc.caption, tc.processing)
		}
	}
}

func TestRenderPlacesImageAtPadding(t *testing.T) {
	c := newTestCompositor(t)
	red := color.RGBA{255, 0, 0, 255}

	canvas, err := c.Render(solidSquare(red, ImageSize), "", false)
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}

	if got := canvas.RGBAAt(10, 10); got != paper {
		t.Errorf("outer padding = %v, want white", got)
	}
	if got := canvas.RGBAAt(Padding+1, Padding+1); got != red {
		t.Errorf("image interior = %v, want %v", got, red)
	}
	if got := canvas.RGBAAt(Width/2, Width/2); got != red {
		t.Errorf("image centre = %v, want %v", got, red)
	}

	edge := canvas.RGBAAt(Padding, Padding)
	if edge == red || edge.R < 200 || edge.G != 0 {
		t.Errorf("border pixel = %v, want slightly darkened red", edge)
	}
	if got := canvas.RGBAAt(Padding+ImageSize, Padding+ImageSize); got != paper {
		t.Errorf("pixel past image = %v, want white", got)
	}
}

func TestRenderScalesOtherSizes(t *testing.T) {
	c := newTestCompositor(t)
	blue := color.RGBA{0, 0, 255, 255}

	canvas, err := c.Render(solidSquare(blue, 100), "", false)
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}
	if got := canvas.RGBAAt(Width/2, Width/2); got != blue {
		t.Errorf("image centre = %v, want %v", got, blue)
	}
}

func TestRenderCaptionBand(t *testing.T) {
	c := newTestCompositor(t)
	sq := solidSquare(color.RGBA{0, 128, 0, 255}, ImageSize)

	blank, err := c.Render(sq, "", false)
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}
	if n := bandInk(blank); n != 0 {
		t.Errorf("blank band has %d inked pixels", n)
	}

	developing, err := c.Render(sq, "", true)
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}
	if bandInk(developing) == 0 {
		t.Error("placeholder was not drawn")
	}

	captioned, err := c.Render(sq, "Golden hour, golden mood", true)
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}
	if bandInk(captioned) == 0 {
		t.Error("caption was not drawn")
	}

	// Caption ink is darker than the placeholder's.
	darkest := func(img *image.RGBA) uint8 {
		d := uint8(255)
		for y := Padding + ImageSize; y < Height; y++ {
			for x := 0; x < Width; x++ {
				if r := img.RGBAAt(x, y).R; r < d {
					d = r
				}
			}
		}
		return d
	}
	if darkest(captioned) >= darkest(developing) {
		t.Errorf("caption ink (%d) should be darker than placeholder ink (%d)", darkest(captioned), darkest(developing))
	}
}

func TestRenderTextIsCentred(t *testing.T) {
	c := newTestCompositor(t)
	canvas, err := c.Render(solidSquare(color.RGBA{0, 0, 0, 255}, ImageSize), "Hello", false)
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}

	minX, maxX := Width, 0
	for y := Padding + ImageSize; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if canvas.RGBAAt(x, y) != paper {
				minX = min(minX, x)
				maxX = max(maxX, x)
			}
		}
	}
	left, right := minX, Width-1-maxX
	if diff := left - right; diff > 12 || diff < -12 {
		t.Errorf("caption not centred: left margin %d, right margin %d", left, right)
	}
}

func TestRenderRejectsNilImage(t *testing.T) {
	c := newTestCompositor(t)
	if _, err := c.Render(nil, "", false); err == nil {
		t.Error("expected error for nil image")
	}
}

func TestComposeQualityOption(t *testing.T) {
	low, err := New(Options{JPEGQuality: 10})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	high := newTestCompositor(t)

	sq := image.NewRGBA(image.Rect(0, 0, ImageSize, ImageSize))
	for i := range sq.Pix {
		sq.Pix[i] = uint8(i * 7)
		if i%4 == 3 {
			sq.Pix[i] = 0xff
		}
	}

	a, _ := low.Compose(sq, "", false)
	b, _ := high.Compose(sq, "", false)
	if len(a) >= len(b) {
		t.Errorf("quality 10 output (%d bytes) not smaller than quality 90 (%d bytes)", len(a), len(b))
	}
	if _, err := jpeg.Decode(bytes.NewReader(a)); err != nil {
		t.Errorf("low quality output does not decode: %v", err)
	}
}

func TestEncodePNG(t *testing.T) {
	sq := solidSquare(color.RGBA{1, 2, 3, 255}, 8)
	data, err := EncodePNG(sq)
	if err != nil {
		t.Fatalf("EncodePNG() unexpected error: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if r, g, b, _ := img.At(3, 3).RGBA(); r>>8 != 1 || g>>8 != 2 || b>>8 != 3 {
		t.Errorf("pixel = (%d,%d,%d), want (1,2,3)", r>>8, g>>8, b>>8)
	}
}

func TestDataURLAndFilename(t *testing.T) {
	if got := DataURL([]byte{0xff, 0xd8}); !strings.HasPrefix(got, "data:image/jpeg;base64,") || !strings.HasSuffix(got, "/9g=") {
		t.Errorf("DataURL() = %q", got)
	}

	ts := time.UnixMilli(1718000000123)
	if got := Filename(ts); got != "retro-snap-1718000000123.jpg" {
		t.Errorf("Filename() = %q", got)
	}
}
