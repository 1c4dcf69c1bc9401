package gemini

// Image synthesis uses the REST API directly because the SDK's image output
// support lags behind the preview image models.

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/provider"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ImageClient calls the Gemini image model via REST.
type ImageClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

var _ provider.ImageSynthesizer = (*ImageClient)(nil)

// NewImageClient creates a client for the Gemini image model.
func NewImageClient(apiKey string) *ImageClient {
	return &ImageClient{
		apiKey:  apiKey,
		model:   ModelGemini3ProImage,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // image generation can take 10-30s
		},
	}
}

// --- REST API request/response types ---

type imageRequest struct {
	Contents          []imageContent    `json:"contents"`
	SystemInstruction *imageContent     `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type imageContent struct {
	Role  string      `json:"role,omitempty"`
	Parts []imagePart `json:"parts"`
}

type imagePart struct {
	Text       string    `json:"text,omitempty"`
	InlineData *blobData `json:"inlineData,omitempty"`
}

type blobData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type imageResponse struct {
	Candidates []imageCandidate `json:"candidates"`
	Error      *apiError        `json:"error,omitempty"`
}

type imageCandidate struct {
	Content imageContent `json:"content"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// GenerateImage renders an image from the prompt, conditioned on any
// reference images (product photo, character reference). Reference images are
// sent first, each preceded by its label, then the prompt text.
func (c *ImageClient) GenerateImage(ctx context.Context, req provider.ImageRequest) (*provider.ImageResult, error) {
	startTime := time.Now()
	log.Info().
		Str("model", c.model).
		Int("reference_images", len(req.ReferenceImages)).
		Str("aspect_ratio", req.AspectRatio).
		Msg("Sending image generation request to Gemini")

	apiReq := imageRequest{
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}
	if req.AspectRatio != "" {
		apiReq.GenerationConfig.ImageConfig = &imageConfig{AspectRatio: req.AspectRatio}
	}

	var parts []imagePart
	for _, ref := range req.ReferenceImages {
		if ref.Label != "" {
			parts = append(parts, imagePart{Text: ref.Label + ":"})
		}
		mime := ref.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, imagePart{
			InlineData: &blobData{
				MIMEType: mime,
				Data:     base64.StdEncoding.EncodeToString(ref.Data),
			},
		})
	}
	parts = append(parts, imagePart{Text: req.Prompt})
	apiReq.Contents = append(apiReq.Contents, imageContent{Role: "user", Parts: parts})

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", truncate(string(respBody), 500)).
			Msg("Gemini image API returned error")
		return nil, pipeline.NewError(pipeline.KindCapability, "gemini.image",
			fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
	}

	var apiResp imageResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, pipeline.NewError(pipeline.KindCapability, "gemini.image",
			fmt.Errorf("API error: %s (code: %d)", apiResp.Error.Message, apiResp.Error.Code))
	}

	result := &provider.ImageResult{}
	for _, candidate := range apiResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil {
				decoded, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("failed to decode image data: %w", err)
				}
				result.Images = append(result.Images, decoded)
				result.MIMEType = part.InlineData.MIMEType
			}
			if part.Text != "" {
				result.Text += part.Text
			}
		}
	}

	if len(result.Images) == 0 {
		return nil, pipeline.NewError(pipeline.KindCapability, "gemini.image",
			fmt.Errorf("no image returned in response (text: %s)", truncate(result.Text, 200)))
	}

	log.Info().
		Int("images", len(result.Images)).
		Int("output_bytes", len(result.Images[0])).
		Str("output_mime", result.MIMEType).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini image generation complete")
	return result, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
