package caption

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fpang/retrosnap/internal/assets"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model asked for captions.
const DefaultModel = "gemini-2.5-flash"

// DefaultTemperature leans slightly creative for witty captions.
const DefaultTemperature float32 = 0.8

// generator is the slice of *genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiOptions configures a Gemini enricher. Zero values select the defaults.
type GeminiOptions struct {
	Model       string
	Temperature float32
	Prompt      string
}

// Gemini asks a Gemini model for a caption.
type Gemini struct {
	models generator
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

var _ Enricher = (*Gemini)(nil)

// NewGeminiClient creates a Gemini API client. A missing key is reported here,
// once, rather than on every caption request.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, ErrNoCredential
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// NewGemini creates an enricher backed by client.
func NewGemini(client *genai.Client, opts GeminiOptions) *Gemini {
	return newGemini(client.Models, opts)
}

func newGemini(models generator, opts GeminiOptions) *Gemini {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.Prompt == "" {
		opts.Prompt = assets.CaptionPrompt()
	}
	return &Gemini{
		models: models,
		model:  opts.Model,
		prompt: opts.Prompt,
		config: &genai.GenerateContentConfig{
			Temperature: genai.Ptr(opts.Temperature),
		},
	}
}

// Caption sends the PNG-encoded image with the caption instruction.
func (g *Gemini) Caption(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.New("no image data to caption")
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "image/png", Data: image}},
			{Text: g.prompt},
		},
	}}

	log.Debug().
		Str("model", g.model).
		Int("image_size", len(image)).
		Msg("Requesting caption from Gemini")

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, contents, g.config)
	duration := time.Since(start)
	if err != nil {
		log.Warn().Err(err).Dur("duration", duration).Msg("Gemini caption request failed")
		return "", fmt.Errorf("failed to generate caption: %w", err)
	}
	if resp == nil {
		return "", errors.New("received empty response from Gemini API")
	}

	text := Sanitize(resp.Text())
	if text == "" {
		log.Debug().Dur("duration", duration).Msg("Gemini returned no caption text")
		return EmptyReplyCaption, nil
	}

	log.Debug().
		Str("caption", text).
		Dur("duration", duration).
		Msg("Caption received from Gemini")

	return text, nil
}
