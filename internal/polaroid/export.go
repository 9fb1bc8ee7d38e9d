package polaroid

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"time"
)

// EncodePNG encodes img losslessly. The caption enricher receives the square
// in this form.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// DataURL wraps an encoded JPEG as a data URL for JSON transport.
func DataURL(jpegData []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegData)
}

// Filename returns the download name for a capture taken at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("retro-snap-%d.jpg", t.UnixMilli())
}
