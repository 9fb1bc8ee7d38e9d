package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// ErrCanceled is returned when the user dismisses a prompt without choosing.
var ErrCanceled = errors.New("selection canceled")

// PickPhoto opens a native file dialog for a single photo.
func PickPhoto() (string, error) {
	selected, err := zenity.SelectFile(
		zenity.Title("Select a photo"),
		zenity.FileFilters{
			{
				Name:     "Photos",
				Patterns: []string{"*.jpg", "*.jpeg", "*.png", "*.webp"},
			},
		},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrCanceled
		}
		return "", fmt.Errorf("file picker failed: %w", err)
	}

	log.Info().Str("path", selected).Msg("Photo picked via native dialog")
	return selected, nil
}

// PromptForPath asks for a path on w and reads one line from r. An empty
// answer is ErrCanceled.
func PromptForPath(r io.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprintf(w, "%s: ", label)

	input, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrCanceled
	}
	return input, nil
}
