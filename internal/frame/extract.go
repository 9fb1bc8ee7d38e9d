// Package frame turns a live video frame into the square, mirrored,
// filter-applied buffer that the polaroid compositor consumes.
package frame

import (
	"errors"
	"fmt"
	"image"

	"github.com/fpang/retrosnap/internal/filter"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// ErrSourceUnavailable is returned when there is no usable frame to extract
// from, e.g. the camera has not produced its first frame yet.
var ErrSourceUnavailable = errors.New("source frame unavailable")

// Options controls extraction.
type Options struct {
	// Mirror flips the output horizontally so it matches a mirrored
	// front-facing preview.
	Mirror bool
}

// CropRegion returns the centred square crop of a width x height frame. The
// side equals min(width, height).
func CropRegion(width, height int) image.Rectangle {
	side := min(width, height)
	x := (width - side) / 2
	y := (height - side) / 2
	return image.Rect(x, y, x+side, y+side)
}

// Extract crops src to its centred square, scales it to size x size, optionally
// mirrors it and applies the descriptor's export chain. src is never modified.
func Extract(src image.Image, size int, desc filter.Descriptor, opts Options) (*image.RGBA, error) {
	if src == nil {
		return nil, ErrSourceUnavailable
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: frame is %dx%d", ErrSourceUnavailable, b.Dx(), b.Dy())
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid target size %d", size)
	}

	crop := CropRegion(b.Dx(), b.Dy()).Add(b.Min)
	dst := image.NewRGBA(image.Rect(0, 0, size, size))

	if crop.Dx() == size {
		draw.Draw(dst, dst.Bounds(), src, crop.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	}

	if opts.Mirror {
		mirror(dst)
	}
	desc.Apply(dst)

	log.Debug().
		Int("src_width", b.Dx()).
		Int("src_height", b.Dy()).
		Str("crop", crop.String()).
		Int("size", size).
		Bool("mirror", opts.Mirror).
		Str("filter", string(desc.ID)).
		Msg("Frame extracted")

	return dst, nil
}

// mirror flips img horizontally in place.
func mirror(img *image.RGBA) {
	b := img.Bounds()
	w := b.Dx()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y) : img.PixOffset(b.Min.X, y)+w*4]
		for l, r := 0, w-1; l < r; l, r = l+1, r-1 {
			li, ri := l*4, r*4
			row[li], row[ri] = row[ri], row[li]
			row[li+1], row[ri+1] = row[ri+1], row[li+1]
			row[li+2], row[ri+2] = row[ri+2], row[li+2]
			row[li+3], row[ri+3] = row[ri+3], row[li+3]
		}
	}
}
