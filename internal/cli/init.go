package cli

import (
	"context"

	"github.com/fpang/retrosnap/internal/auth"
	"github.com/fpang/retrosnap/internal/caption"
	"github.com/rs/zerolog/log"
)

// EnricherOptions configures InitEnricher.
type EnricherOptions struct {
	Model       string
	Temperature float32

	// Validate sends one small request to check the key before first use.
	Validate bool
}

// InitEnricher resolves the Gemini credential and returns a caption enricher.
// When no usable credential exists it returns caption.Unavailable and false:
// captures still work and fall back to the default caption.
func InitEnricher(ctx context.Context, opts EnricherOptions) (caption.Enricher, bool) {
	apiKey, err := auth.GetAPIKey()
	if err != nil {
		log.Warn().Err(err).Msg("No Gemini API key, captions will use the fallback text")
		return caption.Unavailable(err), false
	}

	client, err := caption.NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create Gemini client, captions will use the fallback text")
		return caption.Unavailable(err), false
	}

	log.Info().Msg("connection successful - Gemini client initialized")

	if opts.Validate {
		if err := auth.ValidateAPIKey(ctx, client, opts.Model); err != nil {
			log.Warn().Err(err).Msg(DescribeValidationError(err))
			return caption.Unavailable(err), false
		}
		log.Info().Msg("API key validation complete - captions enabled")
	}

	return caption.NewGemini(client, caption.GeminiOptions{
		Model:       opts.Model,
		Temperature: opts.Temperature,
	}), true
}
