// Package polaroid renders the fixed-layout framed image: a white card with
// the square photo at the top and a caption band underneath.
package polaroid

import "image"

// Canvas geometry in pixels.
const (
	Width         = 800
	Height        = 980
	Padding       = 40
	ImageSize     = 720
	CaptionHeight = Height - Padding - ImageSize // 220
)

// DefaultJPEGQuality matches a 0.9 lossy export.
const DefaultJPEGQuality = 90

// PlaceholderText is drawn in the caption band while a caption is pending.
const PlaceholderText = "Developing..."

// ImageRect is where the square photo sits on the canvas.
func ImageRect() image.Rectangle {
	return image.Rect(Padding, Padding, Padding+ImageSize, Padding+ImageSize)
}

// CaptionCenter is the centre point of the caption band.
func CaptionCenter() image.Point {
	return image.Pt(Width/2, Padding+ImageSize+CaptionHeight/2)
}
