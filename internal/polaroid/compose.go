package polaroid

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ErrEncode is returned when the finished canvas cannot be encoded.
var ErrEncode = errors.New("polaroid encode failed")

var (
	paper     = color.RGBA{0xff, 0xff, 0xff, 0xff}
	ink       = color.RGBA{0x22, 0x22, 0x22, 0xff}
	faintInk  = color.RGBA{0x99, 0x99, 0x99, 0xff}
	borderInk = color.NRGBA{0, 0, 0, 26} // rgba(0,0,0,0.1)
)

// Options configures a Compositor. Zero values select the defaults.
type Options struct {
	JPEGQuality     int
	CaptionSize     float64
	PlaceholderSize float64
}

// Compositor renders polaroids. Faces are created per call, so a Compositor
// is safe for concurrent use.
type Compositor struct {
	quality     int
	captionFont *opentype.Font
	placeFont   *opentype.Font
	captionSize float64
	placeSize   float64
}

var (
	fontsOnce   sync.Once
	handFont    *opentype.Font
	regularFont *opentype.Font
	fontsErr    error
)

func loadFonts() {
	handFont, fontsErr = opentype.Parse(goitalic.TTF)
	if fontsErr != nil {
		return
	}
	regularFont, fontsErr = opentype.Parse(goregular.TTF)
}

// New creates a Compositor.
func New(opts Options) (*Compositor, error) {
	fontsOnce.Do(loadFonts)
	if fontsErr != nil {
		return nil, fmt.Errorf("failed to load fonts: %w", fontsErr)
	}

	c := &Compositor{
		quality:     opts.JPEGQuality,
		captionFont: handFont,
		placeFont:   regularFont,
		captionSize: opts.CaptionSize,
		placeSize:   opts.PlaceholderSize,
	}
	if c.quality <= 0 || c.quality > 100 {
		c.quality = DefaultJPEGQuality
	}
	if c.captionSize <= 0 {
		c.captionSize = 48
	}
	if c.placeSize <= 0 {
		c.placeSize = 32
	}
	return c, nil
}

// Compose renders square onto a fresh canvas and returns it JPEG-encoded.
//
// A non-empty caption is drawn in the caption band; otherwise the placeholder
// is drawn when processing is true, and the band is left blank when it is not.
func (c *Compositor) Compose(square image.Image, caption string, processing bool) ([]byte, error) {
	canvas, err := c.Render(square, caption, processing)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: c.quality}); err != nil {
		log.Error().Err(err).Msg("Failed to encode polaroid")
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	log.Debug().
		Bool("has_caption", caption != "").
		Bool("processing", processing).
		Int("output_size", buf.Len()).
		Msg("Polaroid composed")

	return buf.Bytes(), nil
}

// Render draws the polaroid without encoding it.
func (c *Compositor) Render(square image.Image, caption string, processing bool) (*image.RGBA, error) {
	if square == nil {
		return nil, errors.New("no image to compose")
	}

	canvas := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(paper), image.Point{}, draw.Src)

	dst := ImageRect()
	sb := square.Bounds()
	if sb.Dx() == ImageSize && sb.Dy() == ImageSize {
		draw.Draw(canvas, dst, square, sb.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(canvas, dst, square, sb, draw.Src, nil)
	}

	drawInsetBorder(canvas, dst)

	switch {
	case caption != "":
		if err := drawCentered(canvas, c.captionFont, c.captionSize, ink, caption); err != nil {
			return nil, err
		}
	case processing:
		if err := drawCentered(canvas, c.placeFont, c.placeSize, faintInk, PlaceholderText); err != nil {
			return nil, err
		}
	}
	return canvas, nil
}

// drawInsetBorder strokes a one pixel translucent line along the inside edge of r.
func drawInsetBorder(dst draw.Image, r image.Rectangle) {
	src := image.NewUniform(borderInk)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y+1, r.Min.X+1, r.Max.Y-1),
		image.Rect(r.Max.X-1, r.Min.Y+1, r.Max.X, r.Max.Y-1),
	}
	for _, e := range edges {
		draw.Draw(dst, e, src, image.Point{}, draw.Over)
	}
}

// drawCentered draws text centred on both axes in the caption band.
func drawCentered(dst draw.Image, f *opentype.Font, size float64, col color.Color, text string) error {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()

	center := CaptionCenter()
	m := face.Metrics()
	advance := font.MeasureString(face, text)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(center.X) - advance/2,
			Y: fixed.I(center.Y) + (m.Ascent-m.Descent)/2,
		},
	}
	d.DrawString(text)
	return nil
}
