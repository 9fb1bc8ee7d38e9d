// Package caption is the boundary to the caption enricher: given the PNG bytes
// of a captured square it eventually returns a short caption or fails.
//
// Callers must tolerate arbitrary latency and any error. Nothing here retries.
package caption

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// Caption texts used when the enricher cannot supply one.
const (
	// EmptyReplyCaption replaces a reply that sanitises to nothing.
	EmptyReplyCaption = "Moments like this..."

	// FallbackCaption is shown when enrichment fails outright.
	FallbackCaption = "Good vibes only"
)

// ErrNoCredential means no API key was available when the client was built.
var ErrNoCredential = errors.New("caption credential not configured")

// Enricher produces a caption for an encoded image.
type Enricher interface {
	Caption(ctx context.Context, image []byte) (string, error)
}

// Func adapts a plain function to Enricher.
type Func func(ctx context.Context, image []byte) (string, error)

// Caption calls f.
func (f Func) Caption(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

// Unavailable returns an Enricher that fails every request with err. It stands
// in for a real client when construction failed, so the failure is reported
// once at startup and every capture falls back quietly.
func Unavailable(err error) Enricher {
	if err == nil {
		err = ErrNoCredential
	}
	return Func(func(context.Context, []byte) (string, error) {
		return "", err
	})
}

var quoteReplacer = strings.NewReplacer(
	`"`, "",
	"“", "",
	"”", "",
	"「", "",
	"」", "",
	"『", "",
	"』", "",
)

// Sanitize normalises model output into a single caption line: first
// non-empty line only, quotation marks and hashtags removed, whitespace collapsed.
// Markdown code fences around the reply are ignored.
func Sanitize(text string) string {
	line := ""
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "```") {
			continue
		}
		line = l
		break
	}

	line = quoteReplacer.Replace(line)

	words := strings.Fields(line)
	kept := words[:0]
	for _, w := range words {
		if strings.HasPrefix(w, "#") {
			continue
		}
		kept = append(kept, w)
	}
	out := strings.Join(kept, " ")

	return strings.TrimFunc(out, func(r rune) bool {
		return r == '\'' || r == '‘' || r == '’' || unicode.IsSpace(r)
	})
}
