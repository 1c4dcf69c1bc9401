// Package textgen implements per-field text generation: one request names a
// content type (description, hook, script, ...), carries whatever project
// context exists, and yields fresh text or a refinement of the current value.
package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/metrics"
	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/prompts"
	"github.com/fpang/ugc-factory/internal/provider"
)

const maxFieldTokens = 8192

// Service routes generation requests to the right prompt template and model
// tier. Fresh generation runs on the primary tier; refinement of an existing
// value runs on the cheaper iterate tier.
type Service struct {
	gen provider.IterativeTextGenerator
}

func NewService(gen provider.IterativeTextGenerator) *Service {
	return &Service{gen: gen}
}

// Generate produces the requested field. Iterate mode without a current
// value silently falls back to fresh generation.
func (s *Service) Generate(ctx context.Context, req *pipeline.GenerationRequest) (*pipeline.GenerationResult, error) {
	mode := req.EffectiveMode()

	pctx := make(map[string]any, len(req.Context)+1)
	for k, v := range req.Context {
		pctx[k] = v
	}
	if req.CurrentValue != "" {
		pctx["currentValue"] = req.CurrentValue
	}

	contentType := req.Type
	if mode == pipeline.ModeIterate && contentType != pipeline.ContentSegment {
		// Segment refinement has its own template; everything else refines
		// through the generic template.
		contentType = pipeline.ContentRefine
	}
	prompt := prompts.Build(contentType, pctx, req.Guidance)

	opts := provider.GenOptions{
		MaxTokens: maxFieldTokens,
		Task:      fmt.Sprintf("ai-generate-%s", req.Type),
	}

	rec := metrics.ForOperation("aiGenerate")
	rec.Property("contentType", string(req.Type))
	rec.Property("mode", string(mode))
	defer rec.Flush()

	start := time.Now()
	var res *provider.TextResult
	var err error
	if mode == pipeline.ModeIterate {
		res, err = s.gen.Iterate(ctx, prompt.System, prompt.User, opts)
	} else {
		res, err = s.gen.Generate(ctx, prompt.System, prompt.User, opts)
	}
	rec.Metric("DurationMs", float64(time.Since(start).Milliseconds()), metrics.UnitMilliseconds)
	if err != nil {
		rec.Count("Failures")
		return nil, fmt.Errorf("generate %s: %w", req.Type, err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		rec.Count("Failures")
		return &pipeline.GenerationResult{
			Success: false,
			Error:   "empty response",
			Kind:    pipeline.KindCapability,
		}, nil
	}

	log.Debug().
		Str("contentType", string(req.Type)).
		Str("mode", string(mode)).
		Int("length", len(text)).
		Msg("Field generated")
	return &pipeline.GenerationResult{
		Success:  true,
		Text:     text,
		Provider: res.Model,
	}, nil
}
