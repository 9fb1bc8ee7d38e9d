package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "retrosnap",
	Short: "Turn a camera frame or photo into a captioned retro polaroid",
	Long: `RetroSnap crops a frame to a square, applies a film-style filter, frames it
as a polaroid and asks Gemini for a short handwritten-style caption.

Examples:
  retrosnap snap --input ./photo.jpg --filter Vintage
  retrosnap snap --device /dev/video0 --out ./snaps/
  retrosnap snap --pick --no-caption
  retrosnap filters`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(newSnapCmd(), newFiltersCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
