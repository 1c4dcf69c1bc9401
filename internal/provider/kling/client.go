// Package kling implements asynchronous image-to-video synthesis on the
// Kling AI API. Authentication uses short-lived HS256 JWTs minted from an
// access-key/secret-key pair.
package kling

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/provider"
)

const defaultBaseURL = "https://api.klingai.com"

// Task polling parameters: Await gives a task five minutes to reach a
// terminal state, checking every five seconds.
const (
	pollInterval = 5 * time.Second
	maxWait      = 5 * time.Minute
)

// Token lifetime and the reuse buffer before expiry.
const (
	tokenTTL    = 30 * time.Minute
	tokenBuffer = 60 * time.Second
)

// Client is an authenticated Kling API client.
type Client struct {
	accessKey  string
	secretKey  string
	baseURL    string
	httpClient *http.Client

	mu          sync.Mutex
	cachedToken string
	tokenExpiry time.Time

	now          func() time.Time
	pollInterval time.Duration
	maxWait      time.Duration
}

var _ provider.VideoSynthesizer = (*Client)(nil)

// NewClient creates a Kling client. Both keys are required.
func NewClient(accessKey, secretKey string) (*Client, error) {
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("kling: access key and secret key are required")
	}
	return &Client{
		accessKey:    accessKey,
		secretKey:    secretKey,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
		pollInterval: pollInterval,
		maxWait:      maxWait,
	}, nil
}

// token returns a signed JWT, reusing the cached one until it is within 60
// seconds of expiry.
func (c *Client) token() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.cachedToken != "" && c.tokenExpiry.After(now.Add(tokenBuffer)) {
		return c.cachedToken, nil
	}

	claims := jwt.MapClaims{
		"iss": c.accessKey,
		"exp": now.Add(tokenTTL).Unix(),
		"nbf": now.Add(-5 * time.Second).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.secretKey))
	if err != nil {
		return "", fmt.Errorf("kling: sign token: %w", err)
	}
	c.cachedToken = signed
	c.tokenExpiry = now.Add(tokenTTL)
	return signed, nil
}

// --- API types ---

type createTaskRequest struct {
	ModelName      string  `json:"model_name"`
	Mode           string  `json:"mode"`
	Duration       string  `json:"duration"`
	AspectRatio    string  `json:"aspect_ratio"`
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	CfgScale       float64 `json:"cfg_scale"`
	Image          string  `json:"image,omitempty"`
}

type taskEnvelope struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Data    taskData `json:"data"`
}

type taskData struct {
	TaskID     string `json:"task_id"`
	TaskStatus string `json:"task_status"`
	TaskResult struct {
		Videos []struct {
			URL      string `json:"url"`
			Duration string `json:"duration"`
		} `json:"videos"`
	} `json:"task_result"`
}

// Submit creates an image-to-video task and returns its ID without waiting.
func (c *Client) Submit(ctx context.Context, req provider.VideoRequest) (*provider.VideoTask, error) {
	duration := "5"
	if req.DurationSeconds >= 10 {
		duration = "10"
	}
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = "9:16"
	}

	body := createTaskRequest{
		ModelName:   "kling-v2-master",
		Mode:        "std",
		Duration:    duration,
		AspectRatio: aspect,
		Prompt:      req.Prompt,
		CfgScale:    0.5,
	}
	if len(req.SourceImage) > 0 {
		body.Image = base64.StdEncoding.EncodeToString(req.SourceImage)
	}

	var env taskEnvelope
	if err := c.do(ctx, http.MethodPost, "/v1/videos/image2video", body, &env); err != nil {
		return nil, err
	}
	if env.Data.TaskID == "" {
		return nil, pipeline.NewError(pipeline.KindCapability, "kling.submit",
			fmt.Errorf("no task ID in response: %s", env.Message))
	}

	log.Info().
		Str("taskId", env.Data.TaskID).
		Str("duration", duration).
		Str("aspectRatio", aspect).
		Msg("Kling video task submitted")
	return &provider.VideoTask{ID: env.Data.TaskID, Status: mapStatus(env.Data.TaskStatus)}, nil
}

// Poll fetches the current state of a task.
func (c *Client) Poll(ctx context.Context, taskID string) (*provider.VideoTaskResult, error) {
	var env taskEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/videos/image2video/"+taskID, nil, &env); err != nil {
		return nil, err
	}

	result := &provider.VideoTaskResult{
		ID:     env.Data.TaskID,
		Status: mapStatus(env.Data.TaskStatus),
	}
	if len(env.Data.TaskResult.Videos) > 0 {
		result.ResultURL = env.Data.TaskResult.Videos[0].URL
	}
	return result, nil
}

// Await polls until the task reaches a terminal state or the wall-clock
// budget elapses, in which case the error is timeout-tagged.
func (c *Client) Await(ctx context.Context, taskID string) (*provider.VideoTaskResult, error) {
	deadline := c.now().Add(c.maxWait)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		result, err := c.Poll(ctx, taskID)
		if err != nil {
			return nil, err
		}
		switch result.Status {
		case provider.TaskSucceeded:
			log.Info().Str("taskId", taskID).Str("url", result.ResultURL).Msg("Kling video task succeeded")
			return result, nil
		case provider.TaskFailed:
			return result, pipeline.NewError(pipeline.KindCapability, "kling.await",
				fmt.Errorf("task %s failed", taskID))
		}

		if c.now().After(deadline) {
			return result, pipeline.NewError(pipeline.KindTimeout, "kling.await",
				fmt.Errorf("task %s did not complete within %s", taskID, c.maxWait))
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	token, err := c.token()
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("kling: marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("kling: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pipeline.NewError(pipeline.KindCapability, "kling.request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("kling: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return pipeline.NewError(pipeline.KindCapability, "kling.request",
			fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody)))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("kling: parse response: %w", err)
	}
	return nil
}

// mapStatus converts Kling task states to the provider taxonomy.
func mapStatus(s string) provider.TaskStatus {
	switch s {
	case "submitted":
		return provider.TaskQueued
	case "processing":
		return provider.TaskRunning
	case "succeed":
		return provider.TaskSucceeded
	case "failed":
		return provider.TaskFailed
	default:
		return provider.TaskQueued
	}
}
