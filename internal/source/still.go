// Package source provides frame sources for a capture session: a still photo
// read from disk, an in-memory image, and a camera device read through ffmpeg.
package source

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/fpang/retrosnap/internal/frame"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/webp"
)

// Metadata is the EXIF information read from a still photo, when present.
type Metadata struct {
	CameraMake  string
	CameraModel string
	TakenAt     time.Time
}

// Still serves one decoded photo as every frame.
type Still struct {
	path string
	img  image.Image
	meta Metadata
}

// OpenStill decodes a JPEG, PNG or WebP file.
func OpenStill(path string) (*Still, error) {
	ext := strings.ToLower(filepath.Ext(path))

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", frame.ErrSourceUnavailable, err)
	}
	defer f.Close()

	var img image.Image
	switch ext {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(f)
	case ".png":
		img, err = png.Decode(f)
	case ".webp":
		img, err = webp.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported image format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	s := &Still{path: path, img: img, meta: readMetadata(path)}

	log.Debug().
		Str("path", path).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Str("camera", strings.TrimSpace(s.meta.CameraMake+" "+s.meta.CameraModel)).
		Msg("Still photo loaded")

	return s, nil
}

// readMetadata returns whatever EXIF is available. Missing or unreadable
// metadata is not an error.
func readMetadata(path string) Metadata {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}
	}
	defer f.Close()

	exifData, err := imagemeta.Decode(f)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("No EXIF metadata")
		return Metadata{}
	}

	meta := Metadata{
		CameraMake:  strings.TrimSpace(exifData.Make),
		CameraModel: strings.TrimSpace(exifData.Model),
	}
	if t := exifData.DateTimeOriginal(); !t.IsZero() {
		meta.TakenAt = t
	} else if t := exifData.CreateDate(); !t.IsZero() {
		meta.TakenAt = t
	}
	return meta
}

// Size implements session.Source.
func (s *Still) Size() image.Point { return s.img.Bounds().Size() }

// Frame implements session.Source.
func (s *Still) Frame(context.Context) (image.Image, error) { return s.img, nil }

// Metadata returns the photo's EXIF details.
func (s *Still) Metadata() Metadata { return s.meta }

// Path returns the file the photo was read from.
func (s *Still) Path() string { return s.path }
