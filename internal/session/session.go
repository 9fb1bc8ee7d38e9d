// Package session coordinates one capture at a time: it pulls a frame,
// renders the polaroid without a caption, asks the enricher for a caption in
// the background and re-renders once the caption (or a failure) arrives.
//
// State transitions:
//
//	Idle --Capture--> AwaitingCaption --caption--> Captioned
//	                                  --failure--> FallbackCaptioned
//	{AwaitingCaption, Captioned, FallbackCaptioned} --Reset--> Idle
//
// Every capture is tagged with a sequence number. A caption that resolves
// after its capture was reset (or replaced) is discarded.
package session

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/fpang/retrosnap/internal/caption"
	"github.com/fpang/retrosnap/internal/filter"
	"github.com/fpang/retrosnap/internal/frame"
	"github.com/fpang/retrosnap/internal/metrics"
	"github.com/fpang/retrosnap/internal/polaroid"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultFlashDuration is how long the shutter flash stays on.
const DefaultFlashDuration = 200 * time.Millisecond

// Status messages shown next to a result.
const (
	MessageDeveloping  = "AI is writing a caption..."
	MessageReady       = "Photo ready."
	MessageCameraError = "Unable to access camera. Please check permissions."
)

const metricsNamespace = "RetroSnap"

// Source supplies live frames. Size reports the native frame dimensions and is
// zero until the source produces frames.
type Source interface {
	Size() image.Point
	Frame(ctx context.Context) (image.Image, error)
}

// Compositor renders a square and optional caption into an encoded polaroid.
type Compositor interface {
	Compose(square image.Image, caption string, processing bool) ([]byte, error)
}

// Options configures a Session. Zero values select the defaults.
type Options struct {
	Filter         filter.ID
	ImageSize      int
	DisableMirror  bool
	FlashDuration  time.Duration
	CaptionTimeout time.Duration
	Compositor     Compositor
	Now            func() time.Time
}

// Session is the capture state machine. All methods are safe for concurrent use.
type Session struct {
	source         Source
	enricher       caption.Enricher
	compositor     Compositor
	size           int
	mirror         bool
	flashDuration  time.Duration
	captionTimeout time.Duration
	now            func() time.Time

	mu         sync.Mutex
	filter     filter.ID
	current    *capture
	processing bool
	lastErr    error
	seq        uint64
	flash      bool
	flashTimer *time.Timer
	closed     bool
	subs       map[int]func(Event)
	nextSub    int

	inflight sync.WaitGroup
}

// New creates an idle session.
func New(src Source, enricher caption.Enricher, opts Options) (*Session, error) {
	if opts.Filter == "" {
		opts.Filter = filter.Default
	}
	if _, err := filter.Lookup(opts.Filter); err != nil {
		return nil, err
	}
	if enricher == nil {
		enricher = caption.Unavailable(nil)
	}
	if opts.ImageSize <= 0 {
		opts.ImageSize = polaroid.ImageSize
	}
	if opts.FlashDuration <= 0 {
		opts.FlashDuration = DefaultFlashDuration
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Compositor == nil {
		c, err := polaroid.New(polaroid.Options{})
		if err != nil {
			return nil, err
		}
		opts.Compositor = c
	}

	return &Session{
		source:         src,
		enricher:       enricher,
		compositor:     opts.Compositor,
		size:           opts.ImageSize,
		mirror:         !opts.DisableMirror,
		flashDuration:  opts.FlashDuration,
		captionTimeout: opts.CaptionTimeout,
		now:            opts.Now,
		filter:         opts.Filter,
		subs:           make(map[int]func(Event)),
	}, nil
}

// Capture runs pass 1 synchronously and starts caption enrichment in the
// background. It returns the pending result.
//
// Capture is rejected with ErrCaptureInProgress unless the session is Idle;
// a rejected call has no side effects. ctx bounds only the frame pull: the
// caption request outlives it and ends on Reset, Close or the caption timeout.
func (s *Session) Capture(ctx context.Context) (CaptureResult, error) {
	s.mu.Lock()

	switch {
	case s.closed:
		s.mu.Unlock()
		return CaptureResult{}, ErrClosed
	case s.current != nil:
		s.mu.Unlock()
		log.Debug().Msg("Capture ignored: a capture is already showing")
		return CaptureResult{}, ErrCaptureInProgress
	case s.lastErr != nil:
		err := s.lastErr
		s.mu.Unlock()
		return CaptureResult{}, fmt.Errorf("%w: %w", frame.ErrSourceUnavailable, err)
	case s.source == nil || s.source.Size() == (image.Point{}):
		s.mu.Unlock()
		return CaptureResult{}, frame.ErrSourceUnavailable
	}

	desc, err := filter.Lookup(s.filter)
	if err != nil {
		s.mu.Unlock()
		log.Error().Err(err).Str("filter", string(s.filter)).Msg("Active filter is not registered")
		return CaptureResult{}, err
	}

	start := time.Now()
	s.seq++
	seq := s.seq
	s.startFlashLocked()
	events := []Event{{Kind: EventFlashOn, State: s.stateLocked()}}

	c, err := s.renderPassOneLocked(ctx, seq, desc)
	if err != nil {
		s.mu.Unlock()
		s.emit(events...)
		return CaptureResult{}, err
	}

	var reqCtx context.Context
	if s.captionTimeout > 0 {
		reqCtx, c.cancel = context.WithTimeout(context.Background(), s.captionTimeout)
	} else {
		reqCtx, c.cancel = context.WithCancel(context.Background())
	}

	s.current = c
	s.processing = true
	result := c.result
	events = append(events, Event{Kind: EventCaptured, State: s.stateLocked()})
	s.inflight.Add(1)
	s.mu.Unlock()

	log.Info().
		Str("capture_id", result.ID).
		Uint64("seq", seq).
		Str("filter", string(desc.ID)).
		Dur("duration", time.Since(start)).
		Msg("Capture developed, requesting caption")

	metrics.New(metricsNamespace).
		Dimension("Filter", string(desc.ID)).
		Metric("CaptureMs", float64(time.Since(start).Milliseconds()), metrics.UnitMilliseconds).
		Metric("PolaroidBytes", float64(len(result.Image)), metrics.UnitBytes).
		Count("Captures").
		Property("captureId", result.ID).
		Flush()

	s.emit(events...)
	go s.enrich(reqCtx, c, seq)

	return result, nil
}

// renderPassOneLocked pulls a frame and renders the caption-less polaroid.
func (s *Session) renderPassOneLocked(ctx context.Context, seq uint64, desc filter.Descriptor) (*capture, error) {
	img, err := s.source.Frame(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to pull frame from source")
		return nil, fmt.Errorf("%w: %w", frame.ErrSourceUnavailable, err)
	}

	square, err := frame.Extract(img, s.size, desc, frame.Options{Mirror: s.mirror})
	if err != nil {
		return nil, err
	}

	data, err := s.compositor.Compose(square, "", true)
	if err != nil {
		log.Error().Err(err).Uint64("seq", seq).Msg("Failed to compose polaroid, staying idle")
		return nil, err
	}

	takenAt := s.now()
	return &capture{
		result: CaptureResult{
			ID:       uuid.NewString(),
			Seq:      seq,
			Image:    data,
			Status:   ResultPending,
			Filter:   desc.ID,
			TakenAt:  takenAt,
			Filename: polaroid.Filename(takenAt),
		},
		square: square,
	}, nil
}

// enrich requests the caption for c and applies it.
func (s *Session) enrich(ctx context.Context, c *capture, seq uint64) {
	defer s.inflight.Done()
	defer c.cancel()

	start := time.Now()
	text, err := s.requestCaption(ctx, c.square)
	s.resolve(seq, text, err, time.Since(start))
}

func (s *Session) requestCaption(ctx context.Context, square image.Image) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("caption enricher panicked: %v", r)
		}
	}()

	png, err := polaroid.EncodePNG(square)
	if err != nil {
		return "", err
	}
	return s.enricher.Caption(ctx, png)
}

// resolve applies a caption outcome to the capture tagged seq. Outcomes for a
// capture that is no longer current are dropped.
func (s *Session) resolve(seq uint64, text string, captionErr error, elapsed time.Duration) {
	s.mu.Lock()

	c := s.current
	if c == nil || c.result.Seq != seq {
		s.mu.Unlock()
		log.Debug().Uint64("seq", seq).Err(captionErr).Msg("Discarding stale caption result")
		return
	}

	res := c.result
	kind := EventCaptioned
	res.Status = ResultCaptioned

	text = strings.TrimSpace(text)
	if captionErr != nil || text == "" {
		log.Warn().Err(captionErr).Str("capture_id", res.ID).Msg("Caption unavailable, using fallback")
		text = caption.FallbackCaption
		res.Status = ResultFallback
		kind = EventFallback
	}

	data, err := s.compositor.Compose(c.square, text, false)
	if err != nil {
		// Keep the pass-1 image untouched rather than expose a broken one.
		log.Error().Err(err).Str("capture_id", res.ID).Msg("Failed to compose captioned polaroid")
		res.Status = ResultFallback
		res.Caption = ""
		kind = EventFallback
	} else {
		res.Image = data
		res.Caption = text
	}

	c.result = res
	s.processing = false
	st := s.stateLocked()
	s.mu.Unlock()

	log.Info().
		Str("capture_id", res.ID).
		Str("status", res.Status.String()).
		Str("caption", res.Caption).
		Dur("duration", elapsed).
		Msg("Capture finished")

	metrics.New(metricsNamespace).
		Dimension("Outcome", res.Status.String()).
		Metric("CaptionMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("CaptionResult").
		Property("captureId", res.ID).
		Flush()

	s.emit(Event{Kind: kind, State: st})
}

// Reset discards the current result and returns the session to Idle. An
// in-flight caption request is cancelled and its outcome ignored.
func (s *Session) Reset() {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}

	c := s.current
	s.current = nil
	s.processing = false
	st := s.stateLocked()
	s.mu.Unlock()

	c.cancel()
	log.Info().Str("capture_id", c.result.ID).Msg("Session reset")
	s.emit(Event{Kind: EventReset, State: st})
}

// SelectFilter sets the filter used by the next capture. It is only allowed
// in Idle.
func (s *Session) SelectFilter(id filter.ID) error {
	if _, err := filter.Lookup(id); err != nil {
		return err
	}

	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return ErrNotIdle
	}
	if s.filter == id {
		s.mu.Unlock()
		return nil
	}
	s.filter = id
	st := s.stateLocked()
	s.mu.Unlock()

	log.Debug().Str("filter", string(id)).Msg("Filter selected")
	s.emit(Event{Kind: EventFilterChanged, State: st})
	return nil
}

// SetSourceError records (or, with nil, clears) a camera-level failure.
// Capture is refused while one is recorded.
func (s *Session) SetSourceError(err error) {
	s.mu.Lock()
	s.lastErr = err
	st := s.stateLocked()
	s.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Msg("Video source unavailable")
		s.emit(Event{Kind: EventSourceError, State: st})
	}
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Download returns the finished polaroid. Nothing is downloadable while the
// caption is still pending.
func (s *Session) Download() (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.result.Status == ResultPending {
		return Artifact{}, ErrNoResult
	}
	return Artifact{
		Filename:    s.current.result.Filename,
		ContentType: "image/jpeg",
		Data:        s.current.result.Image,
	}, nil
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it. fn runs on the goroutine that caused the event and must
// not block.
func (s *Session) Subscribe(fn func(Event)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close cancels any in-flight caption request and waits for it to finish.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.current != nil {
		s.current.cancel()
	}
	if s.flashTimer != nil {
		s.flashTimer.Stop()
	}
	s.mu.Unlock()

	s.inflight.Wait()
}

func (s *Session) startFlashLocked() {
	s.flash = true
	if s.flashTimer != nil {
		s.flashTimer.Stop()
	}
	s.flashTimer = time.AfterFunc(s.flashDuration, s.endFlash)
}

func (s *Session) endFlash() {
	s.mu.Lock()
	if !s.flash {
		s.mu.Unlock()
		return
	}
	s.flash = false
	st := s.stateLocked()
	s.mu.Unlock()

	s.emit(Event{Kind: EventFlashOff, State: st})
}

func (s *Session) stateLocked() State {
	st := State{
		Status:     StatusIdle,
		Filter:     s.filter,
		Processing: s.processing,
		Flash:      s.flash,
		LastError:  s.lastErr,
	}

	if s.current == nil {
		if s.lastErr != nil {
			st.Message = MessageCameraError
		}
		return st
	}

	res := s.current.result
	st.Result = &res
	switch res.Status {
	case ResultPending:
		st.Status = StatusAwaitingCaption
		st.Message = MessageDeveloping
	case ResultCaptioned:
		st.Status = StatusCaptioned
	case ResultFallback:
		st.Status = StatusFallbackCaptioned
	}
	if res.Status != ResultPending {
		st.Message = res.Caption
		if st.Message == "" {
			st.Message = MessageReady
		}
	}
	return st
}

func (s *Session) emit(events ...Event) {
	s.mu.Lock()
	subs := make([]func(Event), 0, len(s.subs))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}
