package session

import (
	"errors"
	"image"
	"time"

	"github.com/fpang/retrosnap/internal/filter"
)

// Errors returned for rejected transitions.
var (
	// ErrCaptureInProgress is returned by Capture while a result is showing.
	ErrCaptureInProgress = errors.New("a capture is already in progress")

	// ErrNotIdle is returned by operations that are only allowed in Idle.
	ErrNotIdle = errors.New("session is not idle")

	// ErrNoResult is returned by Download when there is nothing to download.
	ErrNoResult = errors.New("no finished capture to download")

	// ErrClosed is returned once the session has been closed.
	ErrClosed = errors.New("session closed")
)

// Status is the state machine's externally visible state.
type Status int

const (
	StatusIdle Status = iota
	StatusAwaitingCaption
	StatusCaptioned
	StatusFallbackCaptioned
)

var statusNames = map[Status]string{
	StatusIdle:              "idle",
	StatusAwaitingCaption:   "awaiting_caption",
	StatusCaptioned:         "captioned",
	StatusFallbackCaptioned: "fallback",
}

func (s Status) String() string { return statusNames[s] }

// ResultStatus is the completion status of a CaptureResult.
type ResultStatus int

const (
	ResultPending ResultStatus = iota
	ResultCaptioned
	ResultFallback
)

var resultNames = map[ResultStatus]string{
	ResultPending:   "pending",
	ResultCaptioned: "captioned",
	ResultFallback:  "fallback",
}

func (s ResultStatus) String() string { return resultNames[s] }

// MarshalText implements encoding.TextMarshaler.
func (s ResultStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// CaptureResult is one capture as seen from outside the session. Values are
// snapshots; the session never mutates a CaptureResult it has handed out.
type CaptureResult struct {
	ID       string       `json:"id"`
	Seq      uint64       `json:"seq"`
	Image    []byte       `json:"-"`
	Caption  string       `json:"caption"`
	Status   ResultStatus `json:"status"`
	Filter   filter.ID    `json:"filter"`
	TakenAt  time.Time    `json:"takenAt"`
	Filename string       `json:"filename"`
}

// State is a snapshot of the session.
type State struct {
	Status     Status         `json:"status"`
	Filter     filter.ID      `json:"filter"`
	Result     *CaptureResult `json:"result,omitempty"`
	Processing bool           `json:"processing"`
	Flash      bool           `json:"flash"`
	LastError  error          `json:"-"`
	Message    string         `json:"message"`
}

// EventKind identifies a session event.
type EventKind int

const (
	EventCaptured EventKind = iota
	EventCaptioned
	EventFallback
	EventReset
	EventFilterChanged
	EventFlashOn
	EventFlashOff
	EventSourceError
)

var eventNames = map[EventKind]string{
	EventCaptured:      "captured",
	EventCaptioned:     "captioned",
	EventFallback:      "fallback",
	EventReset:         "reset",
	EventFilterChanged: "filter_changed",
	EventFlashOn:       "flash_on",
	EventFlashOff:      "flash_off",
	EventSourceError:   "source_error",
}

func (k EventKind) String() string { return eventNames[k] }

// Event is delivered to subscribers after the state change it describes.
type Event struct {
	Kind  EventKind
	State State
}

// Artifact is a downloadable export.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// capture is the session-internal record behind a CaptureResult. square is
// kept from pass 1 and reused for pass 2.
type capture struct {
	result CaptureResult
	square *image.RGBA
	cancel func()
}
