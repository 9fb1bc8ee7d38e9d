package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fpang/retrosnap/internal/cli"
	"github.com/fpang/retrosnap/internal/config"
	"github.com/fpang/retrosnap/internal/filter"
	"github.com/fpang/retrosnap/internal/logging"
	"github.com/fpang/retrosnap/internal/polaroid"
	"github.com/fpang/retrosnap/internal/session"
	"github.com/fpang/retrosnap/internal/source"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// CLI flags
var (
	addrFlag       string
	inputFlag      string
	filterFlag     string
	modelFlag      string
	noValidateFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "retrosnap-web",
	Short: "Local web surface for the RetroSnap polaroid camera",
	Long: `RetroSnap Web starts a local HTTP server driving one capture session.
It grabs frames from a camera through ffmpeg (or serves a still photo),
renders polaroids and captions them with Gemini.

Examples:
  retrosnap-web
  retrosnap-web --addr 127.0.0.1:9090 --filter Vintage
  retrosnap-web --input ./photo.jpg`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (default from RETROSNAP_ADDR)")
	rootCmd.Flags().StringVarP(&inputFlag, "input", "i", "", "Serve a still photo instead of the camera")
	rootCmd.Flags().StringVarP(&filterFlag, "filter", "f", "", "Initial filter (default from RETROSNAP_DEFAULT_FILTER)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini model to use (default from GEMINI_MODEL)")
	rootCmd.Flags().BoolVar(&noValidateFlag, "no-validate", false, "Skip the API key check at startup")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	start := time.Now()

	cfg, err := config.Load()
	if err != nil {
		logging.Init("info")
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Init(cfg.LogLevel)

	if addrFlag != "" {
		cfg.Addr = addrFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	initialFilter := cfg.Filter()
	if filterFlag != "" {
		id, err := filter.Parse(filterFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid --filter")
		}
		initialFilter = id
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enricher, captions := cli.InitEnricher(ctx, cli.EnricherOptions{
		Model:       cfg.Model,
		Temperature: cfg.CaptionTemperature,
		Validate:    !noValidateFlag,
	})

	compositor, err := polaroid.New(polaroid.Options{JPEGQuality: cfg.JPEGQuality})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise compositor")
	}

	var (
		src        session.Source
		live       *liveSource
		sourceDesc string
	)
	if inputFlag != "" {
		path, err := cli.ValidateInputFile(inputFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid --input")
		}
		still, err := source.OpenStill(path)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open photo")
		}
		src = still
		sourceDesc = "still:" + path
	} else {
		devOpts := source.DeviceOptions{
			Path:   cfg.Device,
			Format: cfg.DeviceFormat,
			Width:  cfg.CaptureWidth,
			Height: cfg.CaptureHeight,
		}
		live = newLiveSource(func(ctx context.Context) (camera, error) {
			dev, err := source.OpenDevice(ctx, devOpts)
			if err != nil {
				return nil, err
			}
			return dev, nil
		})
		src = live
		sourceDesc = cfg.DeviceFormat + ":" + cfg.Device
	}

	sess, err := session.New(src, enricher, session.Options{
		Filter:         initialFilter,
		FlashDuration:  cfg.FlashDuration,
		CaptionTimeout: cfg.CaptionTimeout,
		Compositor:     compositor,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create capture session")
	}
	defer sess.Close()

	if live != nil {
		detach := live.attach(ctx, sess)
		defer detach()
	}

	srv := &server{sess: sess, live: live}
	handler := withLogging(withCORS(gzhttp.GzipHandler(srv.routes())))

	httpSrv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	logging.NewStartupLogger("retrosnap-web").
		Version(version).
		Source(sourceDesc).
		Feature("captions", captions).
		Feature("validateKey", !noValidateFlag).
		Config("addr", cfg.Addr).
		Config("model", cfg.Model).
		Config("filter", string(initialFilter)).
		Config("captionTimeout", cfg.CaptionTimeout.String()).
		Config("jpegQuality", strconv.Itoa(cfg.JPEGQuality)).
		InitDuration(time.Since(start)).
		Log()

	fmt.Printf("\n  RetroSnap API: http://%s/api/state\n\n", displayAddr(cfg.Addr))

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, "/api/") && r.URL.Path != "/api/state" {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only local origins; the server is meant for the machine it runs on.
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
