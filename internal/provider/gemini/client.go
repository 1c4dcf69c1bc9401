// Package gemini implements the text, structured-output, vision, image
// synthesis, and Veo video capabilities on Google's Gemini models. Text and
// video paths go through the official SDK; image synthesis uses the REST API
// directly (see image.go).
package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/fpang/ugc-factory/internal/provider"
)

// Client wraps the Gemini SDK behind the pipeline's capability interfaces.
// All calls share one rate limiter so parallel segment generation cannot
// stampede the API.
type Client struct {
	client  *genai.Client
	limiter *rate.Limiter

	model        string
	iterateModel string
}

var (
	_ provider.IterativeTextGenerator = (*Client)(nil)
	_ provider.StructuredGenerator    = (*Client)(nil)
	_ provider.VisionAnalyzer         = (*Client)(nil)
	_ provider.MultiVisionAnalyzer    = (*Client)(nil)
)

// NewClient creates a Gemini client for the public API backend.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{
		client:       c,
		limiter:      rate.NewLimiter(rate.Every(time.Second), 2),
		model:        DefaultModelName,
		iterateModel: IterateModelName,
	}, nil
}

// Generate produces free-form text on the primary model.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string, opts provider.GenOptions) (*provider.TextResult, error) {
	return c.generate(ctx, c.model, systemPrompt, userPrompt, opts, "")
}

// Iterate produces text on the cheaper refinement tier.
func (c *Client) Iterate(ctx context.Context, systemPrompt, userPrompt string, opts provider.GenOptions) (*provider.TextResult, error) {
	return c.generate(ctx, c.iterateModel, systemPrompt, userPrompt, opts, "")
}

// GenerateStructured requests a JSON-shaped response on the primary model.
// The raw text is returned; callers parse it with jsonutil.
func (c *Client) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string, opts provider.GenOptions) (*provider.TextResult, error) {
	return c.generate(ctx, c.model, systemPrompt, userPrompt, opts, "application/json")
}

func (c *Client) generate(ctx context.Context, model, systemPrompt, userPrompt string, opts provider.GenOptions, responseMIME string) (*provider.TextResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(opts.Temperature))
	}
	if responseMIME != "" {
		config.ResponseMIMEType = responseMIME
	}

	callStart := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(userPrompt), config)
	duration := time.Since(callStart)
	if err != nil {
		log.Error().Err(err).
			Str("model", model).
			Str("task", opts.Task).
			Dur("duration", duration).
			Msg("Gemini generation failed")
		return nil, fmt.Errorf("gemini generate (%s): %w", opts.Task, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("gemini generate (%s): empty response", opts.Task)
	}

	text := resp.Text()
	log.Debug().
		Str("model", model).
		Str("task", opts.Task).
		Int("response_length", len(text)).
		Dur("duration", duration).
		Msg("Gemini response received")
	return &provider.TextResult{Text: text, Model: model}, nil
}

// AnalyzeImage answers a prompt about one image on the primary model.
func (c *Client) AnalyzeImage(ctx context.Context, image []byte, mimeType, analysisPrompt string) (*provider.TextResult, error) {
	return c.AnalyzeImages(ctx, []provider.ReferenceImage{{Data: image, MIMEType: mimeType}}, analysisPrompt)
}

// AnalyzeImages answers a prompt about several images in one call.
func (c *Client) AnalyzeImages(ctx context.Context, images []provider.ReferenceImage, analysisPrompt string) (*provider.TextResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var parts []*genai.Part
	for _, img := range images {
		mime := img.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		if img.Label != "" {
			parts = append(parts, &genai.Part{Text: img.Label})
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: mime, Data: img.Data},
		})
	}
	parts = append(parts, &genai.Part{Text: analysisPrompt})

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	callStart := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	duration := time.Since(callStart)
	if err != nil {
		log.Error().Err(err).
			Int("images", len(images)).
			Dur("duration", duration).
			Msg("Gemini image analysis failed")
		return nil, fmt.Errorf("gemini analyze image: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("gemini analyze image: empty response")
	}

	log.Debug().
		Int("images", len(images)).
		Dur("duration", duration).
		Msg("Gemini image analysis complete")
	return &provider.TextResult{Text: resp.Text(), Model: c.model}, nil
}
