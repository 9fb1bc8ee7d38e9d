package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fpang/retrosnap/internal/caption"
	"github.com/fpang/retrosnap/internal/cli"
	"github.com/fpang/retrosnap/internal/config"
	"github.com/fpang/retrosnap/internal/filter"
	"github.com/fpang/retrosnap/internal/logging"
	"github.com/fpang/retrosnap/internal/polaroid"
	"github.com/fpang/retrosnap/internal/session"
	"github.com/fpang/retrosnap/internal/source"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errCaptionsDisabled = errors.New("captions disabled by --no-caption")

type snapOptions struct {
	input     string
	pick      bool
	device    string
	format    string
	filter    string
	model     string
	out       string
	noCaption bool
	noMirror  bool
	dataURL   bool
}

func newSnapCmd() *cobra.Command {
	var opts snapOptions

	cmd := &cobra.Command{
		Use:   "snap",
		Short: "Capture one polaroid and save it",
		Long: `Snap captures a single frame (from a photo or a camera device), renders the
polaroid, waits for the caption and writes the final JPEG.

Without --input, --pick or --device the configured camera (RETROSNAP_DEVICE) is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnap(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "Photo to use as the frame (JPEG, PNG or WebP)")
	f.BoolVar(&opts.pick, "pick", false, "Choose the photo with a native file dialog")
	f.StringVarP(&opts.device, "device", "d", "", "Camera device (default from RETROSNAP_DEVICE)")
	f.StringVar(&opts.format, "format", "", "ffmpeg input format for the device (default from RETROSNAP_DEVICE_FORMAT)")
	f.StringVarP(&opts.filter, "filter", "f", "", "Filter to apply (see 'retrosnap filters')")
	f.StringVarP(&opts.model, "model", "m", "", "Gemini model to use (default from GEMINI_MODEL)")
	f.StringVarP(&opts.out, "out", "o", "", "Output file or directory (default: current directory)")
	f.BoolVar(&opts.noCaption, "no-caption", false, "Skip Gemini and use the fallback caption")
	f.BoolVar(&opts.noMirror, "no-mirror", false, "Do not mirror the frame horizontally")
	f.BoolVar(&opts.dataURL, "data-url", false, "Print the polaroid as a data URL instead of writing a file")
	cmd.MarkFlagsMutuallyExclusive("input", "pick", "device")

	return cmd
}

func runSnap(cmd *cobra.Command, opts snapOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(cfg.LogLevel)

	if opts.model != "" {
		cfg.Model = opts.model
	}
	if opts.device != "" {
		cfg.Device = opts.device
	}
	if opts.format != "" {
		cfg.DeviceFormat = opts.format
	}
	active := cfg.Filter()
	if opts.filter != "" {
		if active, err = filter.Parse(opts.filter); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSrc, err := openSource(ctx, cmd, cfg, opts)
	if err != nil {
		return err
	}
	defer closeSrc()

	var enricher caption.Enricher
	if opts.noCaption {
		enricher = caption.Unavailable(errCaptionsDisabled)
	} else {
		enricher, _ = cli.InitEnricher(ctx, cli.EnricherOptions{
			Model:       cfg.Model,
			Temperature: cfg.CaptionTemperature,
		})
	}

	compositor, err := polaroid.New(polaroid.Options{JPEGQuality: cfg.JPEGQuality})
	if err != nil {
		return err
	}

	sess, err := session.New(src, enricher, session.Options{
		Filter:         active,
		DisableMirror:  opts.noMirror,
		CaptionTimeout: cfg.CaptionTimeout,
		Compositor:     compositor,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	st, err := snapOnce(ctx, sess)
	if err != nil {
		return err
	}

	art, err := sess.Download()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.dataURL {
		fmt.Fprintln(out, polaroid.DataURL(art.Data))
		return nil
	}

	path, err := writeArtifact(opts.out, art)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Saved %s\n", path)
	fmt.Fprintf(out, "  Filter:  %s\n", st.Result.Filter)
	fmt.Fprintf(out, "  Caption: %s (%s)\n", st.Result.Caption, st.Result.Status)
	return nil
}

// snapOnce captures and blocks until the caption outcome is applied.
func snapOnce(ctx context.Context, sess *session.Session) (session.State, error) {
	done := make(chan session.State, 1)
	cancel := sess.Subscribe(func(ev session.Event) {
		if ev.Kind == session.EventCaptioned || ev.Kind == session.EventFallback {
			select {
			case done <- ev.State:
			default:
			}
		}
	})
	defer cancel()

	start := time.Now()
	if _, err := sess.Capture(ctx); err != nil {
		return session.State{}, err
	}
	log.Info().Msg(session.MessageDeveloping)

	select {
	case st := <-done:
		log.Info().Dur("duration", time.Since(start)).Str("status", st.Status.String()).Msg(st.Message)
		return st, nil
	case <-ctx.Done():
		return session.State{}, ctx.Err()
	}
}

// openSource resolves the frame source from the flags. The returned close
// function is always non-nil.
func openSource(ctx context.Context, cmd *cobra.Command, cfg config.Config, opts snapOptions) (session.Source, func(), error) {
	noop := func() {}

	path := opts.input
	if opts.pick {
		picked, err := cli.PickPhoto()
		if errors.Is(err, cli.ErrCanceled) {
			return nil, noop, err
		}
		if err != nil {
			log.Warn().Err(err).Msg("Native file dialog unavailable, asking on the terminal")
			picked, err = cli.PromptForPath(cmd.InOrStdin(), cmd.ErrOrStderr(), "Photo")
			if err != nil {
				return nil, noop, err
			}
		}
		path = picked
	}

	if path != "" {
		abs, err := cli.ValidateInputFile(path)
		if err != nil {
			return nil, noop, err
		}
		still, err := source.OpenStill(abs)
		if err != nil {
			return nil, noop, err
		}
		if m := still.Metadata(); m.CameraModel != "" || !m.TakenAt.IsZero() {
			log.Info().
				Str("camera", m.CameraMake+" "+m.CameraModel).
				Time("taken_at", m.TakenAt).
				Msg("Photo metadata")
		}
		return still, noop, nil
	}

	dev, err := source.OpenDevice(ctx, source.DeviceOptions{
		Path:   cfg.Device,
		Format: cfg.DeviceFormat,
		Width:  cfg.CaptureWidth,
		Height: cfg.CaptureHeight,
	})
	if err != nil {
		return nil, noop, err
	}
	return dev, func() { dev.Close() }, nil
}

// writeArtifact writes art to out. An empty out or an existing directory
// receives the artifact's own filename.
func writeArtifact(out string, art session.Artifact) (string, error) {
	path := out
	if path == "" {
		path = art.Filename
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, art.Filename)
	}

	if err := os.WriteFile(path, art.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
