// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at compile time.
package assets

import (
	_ "embed"
	"strings"
)

//go:embed prompts/caption.txt
var captionPrompt string

// CaptionPrompt is the instruction sent alongside a captured square when
// asking for a caption.
func CaptionPrompt() string {
	return strings.TrimSpace(captionPrompt)
}
