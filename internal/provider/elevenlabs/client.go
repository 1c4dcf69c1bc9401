// Package elevenlabs implements speech synthesis for voiceovers on the
// ElevenLabs text-to-speech API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/provider"
)

const defaultBaseURL = "https://api.elevenlabs.io/v1"

// DefaultVoiceID is Rachel, a natural conversational voice.
const DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

// DefaultModelID supports multilingual scripts.
const DefaultModelID = "eleven_multilingual_v2"

// DefaultSettings is the voice tuning used when the caller passes zero values.
var DefaultSettings = provider.VoiceSettings{
	Stability:       0.5,
	SimilarityBoost: 0.75,
	Style:           0.0,
	SpeakerBoost:    true,
}

const voiceCacheKey = "voices"

// Client is an ElevenLabs API client. The voice catalog changes rarely, so
// it is cached for ten minutes.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	voices     *cache.Cache
}

var _ provider.SpeechSynthesizer = (*Client)(nil)

// NewClient creates an ElevenLabs client.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("elevenlabs: API key is required")
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		voices:     cache.New(10*time.Minute, 30*time.Minute),
	}, nil
}

type voicesResponse struct {
	Voices []struct {
		VoiceID    string `json:"voice_id"`
		Name       string `json:"name"`
		Category   string `json:"category"`
		PreviewURL string `json:"preview_url"`
	} `json:"voices"`
}

// Voices returns the available voice catalog, cached for ten minutes.
func (c *Client) Voices(ctx context.Context) ([]provider.Voice, error) {
	if cached, ok := c.voices.Get(voiceCacheKey); ok {
		return cached.([]provider.Voice), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pipeline.NewError(pipeline.KindCapability, "elevenlabs.voices", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, pipeline.NewError(pipeline.KindCapability, "elevenlabs.voices",
			fmt.Errorf("API returned status %d: %s", resp.StatusCode, body))
	}

	var parsed voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("elevenlabs: parse voices: %w", err)
	}

	out := make([]provider.Voice, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		out = append(out, provider.Voice{
			ID:         v.VoiceID,
			Name:       v.Name,
			Category:   v.Category,
			PreviewURL: v.PreviewURL,
		})
	}
	c.voices.Set(voiceCacheKey, out, cache.DefaultExpiration)

	log.Debug().Int("voices", len(out)).Msg("Fetched ElevenLabs voice catalog")
	return out, nil
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Synthesize turns text into voiceover audio. An empty voiceID selects the
// default voice; zero-valued settings select the defaults.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string, settings provider.VoiceSettings) (*provider.SpeechResult, error) {
	if text == "" {
		return nil, fmt.Errorf("elevenlabs: text is required")
	}
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	if settings == (provider.VoiceSettings{}) {
		settings = DefaultSettings
	}

	body, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: DefaultModelID,
		VoiceSettings: voiceSettings{
			Stability:       settings.Stability,
			SimilarityBoost: settings.SimilarityBoost,
			Style:           settings.Style,
			UseSpeakerBoost: settings.SpeakerBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/text-to-speech/"+voiceID, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pipeline.NewError(pipeline.KindCapability, "elevenlabs.synthesize", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, pipeline.NewError(pipeline.KindCapability, "elevenlabs.synthesize",
			fmt.Errorf("API returned status %d: %s", resp.StatusCode, respBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}

	log.Info().
		Str("voiceId", voiceID).
		Int("textLength", len(text)).
		Int("audioBytes", len(audio)).
		Dur("duration", time.Since(start)).
		Msg("Voiceover synthesized")
	return &provider.SpeechResult{Audio: audio, ContentType: "audio/mpeg"}, nil
}
