// Package perplexity implements open-web research queries on the Perplexity
// Sonar models, with per-call cost computed from the provider's usage report.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/metrics"
	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/provider"
)

const defaultBaseURL = "https://api.perplexity.ai"

// Model tiers, from most thorough to cheapest.
const (
	ModelDeepResearch = "sonar-deep-research"
	ModelReasoning    = "sonar-reasoning-pro"
	ModelPro          = "sonar-pro"
	ModelBasic        = "sonar"
)

// pricing is per 1M tokens; searchQuery and requestFee are per call.
type pricing struct {
	input       float64
	output      float64
	citation    float64
	reasoning   float64
	searchQuery float64
	requestFee  float64
}

var priceTable = map[string]pricing{
	ModelDeepResearch: {input: 2, output: 8, citation: 2, reasoning: 3, searchQuery: 0.005},
	ModelReasoning:    {input: 2, output: 8, requestFee: 0.006},
	ModelPro:          {input: 3, output: 15, requestFee: 0.006},
	ModelBasic:        {input: 1, output: 1, requestFee: 0.005},
}

// Client is a Perplexity API client. The zero-value API key yields an
// unconfigured client that the research pipeline skips in favor of its
// synthesis fallback.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ provider.Searcher = (*Client)(nil)

// NewClient creates a Perplexity client defaulting to the deep-research tier.
// An empty API key is allowed; the client reports itself unconfigured.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   ModelDeepResearch,
		// Deep research runs multi-step searches and can take minutes.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// WithModel returns a copy of the client pinned to a different tier.
func (c *Client) WithModel(model string) *Client {
	clone := *c
	clone.model = model
	return &clone
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// --- API types ---

type chatRequest struct {
	Model           string        `json:"model"`
	Messages        []chatMessage `json:"messages"`
	MaxTokens       int           `json:"max_tokens"`
	ReturnCitations bool          `json:"return_citations"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
	Usage     usage    `json:"usage"`
}

type usage struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	CitationTokens  int `json:"citation_tokens"`
	ReasoningTokens int `json:"reasoning_tokens"`
	SearchQueries   int `json:"search_queries"`
}

// Search runs one research query and returns the answer with citations and
// the computed call cost.
func (c *Client) Search(ctx context.Context, systemPrompt, query string, opts provider.GenOptions) (*provider.SearchResult, error) {
	if !c.Configured() {
		return nil, pipeline.NewError(pipeline.KindCapability, "perplexity.search",
			fmt.Errorf("API key not set"))
	}
	if systemPrompt == "" {
		systemPrompt = "You are a thorough research assistant."
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: query},
		},
		MaxTokens:       maxTokens,
		ReturnCitations: true,
	})
	if err != nil {
		return nil, fmt.Errorf("perplexity: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("perplexity: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pipeline.NewError(pipeline.KindCapability, "perplexity.search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, pipeline.NewError(pipeline.KindCapability, "perplexity.search",
			fmt.Errorf("API returned status %d: %s", resp.StatusCode, respBody))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("perplexity: parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, pipeline.NewError(pipeline.KindCapability, "perplexity.search",
			fmt.Errorf("no choices in response"))
	}

	model := parsed.Model
	if model == "" {
		model = c.model
	}
	cost := computeCost(model, parsed.Usage)
	duration := time.Since(start)

	metrics.ForOperation("perplexitySearch").
		CostUSD("SearchCostUSD", cost).
		Metric("SearchDurationMs", float64(duration.Milliseconds()), metrics.UnitMilliseconds).
		Property("model", model).
		Property("task", opts.Task).
		Flush()
	log.Info().
		Str("task", opts.Task).
		Str("model", model).
		Float64("costUsd", cost).
		Int("citations", len(parsed.Citations)).
		Dur("duration", duration).
		Msg("Perplexity search complete")

	return &provider.SearchResult{
		Content:   parsed.Choices[0].Message.Content,
		Citations: parsed.Citations,
		Model:     model,
		CostUSD:   cost,
	}, nil
}

// QuickSearch runs a cheap single query on the pro tier.
func (c *Client) QuickSearch(ctx context.Context, query, task string) (*provider.SearchResult, error) {
	return c.WithModel(ModelPro).Search(ctx, "", query, provider.GenOptions{Task: task, MaxTokens: 2000})
}

// computeCost prices a call from its usage report. Deep research bills
// citation and reasoning tokens plus per-search-query fees; the other tiers
// bill tokens plus a flat request fee.
func computeCost(model string, u usage) float64 {
	prices, ok := priceTable[model]
	if !ok {
		prices = priceTable[ModelPro]
	}

	cost := float64(u.InputTokens)*prices.input/1e6 +
		float64(u.OutputTokens)*prices.output/1e6
	if model == ModelDeepResearch {
		cost += float64(u.CitationTokens)*prices.citation/1e6 +
			float64(u.ReasoningTokens)*prices.reasoning/1e6 +
			float64(u.SearchQueries)*prices.searchQuery
	} else {
		cost += prices.requestFee
	}
	return cost
}
