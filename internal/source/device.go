package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/fpang/retrosnap/internal/frame"
	"github.com/rs/zerolog/log"
)

// Device defaults.
const (
	DefaultDevicePath   = "/dev/video0"
	DefaultDeviceFormat = "v4l2"
	DefaultDeviceWidth  = 1920
	DefaultDeviceHeight = 1080

	// grabTimeout bounds a single ffmpeg frame grab.
	grabTimeout = 10 * time.Second
)

// ErrDeviceClosed is returned by Frame after Close.
var ErrDeviceClosed = errors.New("device closed")

// DeviceOptions selects the camera and how ffmpeg reads it.
type DeviceOptions struct {
	// Path is the device name as ffmpeg expects it for Format, e.g.
	// "/dev/video0" for v4l2 or "0" for avfoundation.
	Path string

	// Format is the ffmpeg input format (v4l2, avfoundation, dshow).
	Format string

	// Width and Height request a capture resolution. The device may pick
	// another one; Size reports what was actually delivered.
	Width  int
	Height int

	// FFmpeg overrides the ffmpeg binary. Empty means look it up on PATH.
	FFmpeg string
}

func (o DeviceOptions) withDefaults() DeviceOptions {
	if o.Path == "" {
		o.Path = DefaultDevicePath
	}
	if o.Format == "" {
		o.Format = DefaultDeviceFormat
	}
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = DefaultDeviceWidth, DefaultDeviceHeight
	}
	return o
}

// Device grabs frames from a camera by running ffmpeg once per frame. The
// device is only held open for the duration of a grab.
type Device struct {
	opts   DeviceOptions
	ffmpeg string

	mu     sync.Mutex
	size   image.Point
	closed bool
}

// OpenDevice locates ffmpeg and grabs a first frame to learn the native size.
func OpenDevice(ctx context.Context, opts DeviceOptions) (*Device, error) {
	opts = opts.withDefaults()

	ffmpegPath := opts.FFmpeg
	if ffmpegPath == "" {
		p, err := exec.LookPath("ffmpeg")
		if err != nil {
			return nil, fmt.Errorf("%w: ffmpeg not found: camera capture requires ffmpeg: %w", frame.ErrSourceUnavailable, err)
		}
		ffmpegPath = p
	}

	d := &Device{opts: opts, ffmpeg: ffmpegPath}
	if _, err := d.Frame(ctx); err != nil {
		return nil, err
	}

	log.Info().
		Str("device", opts.Path).
		Str("format", opts.Format).
		Int("width", d.Size().X).
		Int("height", d.Size().Y).
		Msg("Camera opened")

	return d, nil
}

// grabArgs builds the ffmpeg command line for a single PNG frame on stdout.
func grabArgs(opts DeviceOptions) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", opts.Format,
		"-video_size", strconv.Itoa(opts.Width) + "x" + strconv.Itoa(opts.Height),
		"-i", opts.Path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}
}

// Size implements session.Source. It is zero before the first successful
// grab and after Close.
func (d *Device) Size() image.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

// Frame implements session.Source.
func (d *Device) Frame(ctx context.Context) (image.Image, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: %w", frame.ErrSourceUnavailable, ErrDeviceClosed)
	}

	ctx, cancel := context.WithTimeout(ctx, grabTimeout)
	defer cancel()

	start := time.Now()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.ffmpeg, grabArgs(d.opts)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg frame grab failed: %w: %s", frame.ErrSourceUnavailable, err, bytes.TrimSpace(stderr.Bytes()))
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode grabbed frame: %w", frame.ErrSourceUnavailable, err)
	}

	d.mu.Lock()
	if !d.closed {
		d.size = img.Bounds().Size()
	}
	d.mu.Unlock()

	log.Debug().
		Str("device", d.opts.Path).
		Dur("duration", time.Since(start)).
		Msg("Frame grabbed")

	return img, nil
}

// Close releases the device. Later grabs fail.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.size = image.Point{}
	return nil
}
