package main

import (
	"context"
	"image"
	"sync"

	"github.com/fpang/retrosnap/internal/frame"
	"github.com/fpang/retrosnap/internal/session"
	"github.com/rs/zerolog/log"
)

// camera is a frame source that is only held while its owner is live.
type camera interface {
	session.Source
	Close() error
}

// openFunc acquires the camera.
type openFunc func(ctx context.Context) (camera, error)

// liveSource owns the camera for the session: it is acquired whenever the
// session is Idle and released while a result is showing. The session reads
// it like any other source; a released liveSource reports a zero size.
type liveSource struct {
	open openFunc

	mu   sync.Mutex
	cam  camera
	sess *session.Session

	// acquiring serialises acquisitions triggered by events.
	acquiring sync.Mutex
}

func newLiveSource(open openFunc) *liveSource {
	return &liveSource{open: open}
}

// attach starts following sess and acquires the camera.
func (l *liveSource) attach(ctx context.Context, sess *session.Session) (detach func()) {
	l.mu.Lock()
	l.sess = sess
	l.mu.Unlock()

	l.acquire(ctx)

	unsubscribe := sess.Subscribe(func(ev session.Event) {
		switch ev.Kind {
		case session.EventCaptured:
			l.release()
		case session.EventReset:
			go l.acquire(ctx)
		}
	})

	return func() {
		unsubscribe()
		l.release()
	}
}

func (l *liveSource) acquire(ctx context.Context) {
	l.acquiring.Lock()
	defer l.acquiring.Unlock()

	l.mu.Lock()
	held := l.cam != nil
	sess := l.sess
	l.mu.Unlock()
	if held {
		return
	}

	cam, err := l.open(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to acquire camera")
		if sess != nil {
			sess.SetSourceError(err)
		}
		return
	}

	l.mu.Lock()
	l.cam = cam
	l.mu.Unlock()

	if sess != nil {
		sess.SetSourceError(nil)
	}
	log.Debug().Msg("Camera acquired")
}

func (l *liveSource) release() {
	l.mu.Lock()
	cam := l.cam
	l.cam = nil
	l.mu.Unlock()

	if cam == nil {
		return
	}
	if err := cam.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to release camera")
		return
	}
	log.Debug().Msg("Camera released")
}

func (l *liveSource) Size() image.Point {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cam == nil {
		return image.Point{}
	}
	return l.cam.Size()
}

func (l *liveSource) Frame(ctx context.Context) (image.Image, error) {
	l.mu.Lock()
	cam := l.cam
	l.mu.Unlock()
	if cam == nil {
		return nil, frame.ErrSourceUnavailable
	}
	return cam.Frame(ctx)
}
