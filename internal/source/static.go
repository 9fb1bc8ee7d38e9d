package source

import (
	"context"
	"image"
	"sync"

	"github.com/fpang/retrosnap/internal/frame"
)

// Static is an in-memory source whose frame can be swapped at any time.
// A Static with no image reports a zero size.
type Static struct {
	mu  sync.RWMutex
	img image.Image
}

// NewStatic returns a Static serving img. img may be nil.
func NewStatic(img image.Image) *Static {
	return &Static{img: img}
}

// Set replaces the served image.
func (s *Static) Set(img image.Image) {
	s.mu.Lock()
	s.img = img
	s.mu.Unlock()
}

func (s *Static) Size() image.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.img == nil {
		return image.Point{}
	}
	return s.img.Bounds().Size()
}

func (s *Static) Frame(context.Context) (image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.img == nil {
		return nil, frame.ErrSourceUnavailable
	}
	return s.img, nil
}
