// Package qc scores generated images for UGC authenticity defects with a
// vision model and repairs prompts after failed checks. It plugs into the
// genloop retry machinery as its ScoreFunc/CorrectFunc pair.
package qc

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/jsonutil"
	"github.com/fpang/ugc-factory/internal/metrics"
	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/prompts"
	"github.com/fpang/ugc-factory/internal/provider"
)

// Scorer assesses generated images against an authenticity rubric. The vision
// analyzer does the looking; an optional iterative text tier does prompt
// repair.
type Scorer struct {
	vision    provider.VisionAnalyzer
	corrector provider.IterativeTextGenerator
}

// NewScorer builds a Scorer. corrector may be nil, in which case failed
// assessments without an adjusted prompt cannot be repaired here and the
// retry loop falls back to the unchanged prompt.
func NewScorer(vision provider.VisionAnalyzer, corrector provider.IterativeTextGenerator) *Scorer {
	return &Scorer{vision: vision, corrector: corrector}
}

// Assess scores one generated image against the prompt that produced it.
//
// A scorer response that cannot be parsed as the rubric JSON is converted to
// a zero-score failing assessment rather than an error: an unreadable verdict
// counts against the asset, pushing the loop toward a retry instead of
// silently shipping an image nobody examined.
func (s *Scorer) Assess(ctx context.Context, image []byte, mimeType, originalPrompt string, purpose prompts.Purpose, segmentType pipeline.SegmentType) (*pipeline.QualityAssessment, error) {
	start := time.Now()
	userPrompt := prompts.QCUserPrompt(originalPrompt, purpose, segmentType)

	res, err := s.vision.AnalyzeImage(ctx, image, mimeType, prompts.QCSystemPrompt+"\n\n"+userPrompt)
	if err != nil {
		return nil, err
	}

	assessment, perr := jsonutil.ParseJSON[pipeline.QualityAssessment]("qc.assess", res.Text)
	if perr != nil {
		log.Warn().Err(perr).
			Str("purpose", string(purpose)).
			Msg("Quality verdict unparseable, treating as failed check")
		assessment = pipeline.QualityAssessment{
			Score:  0,
			Passed: false,
			Issues: []pipeline.Issue{{Issue: "could not analyze", Severity: pipeline.SeverityHigh}},
		}
	}
	clampScore(&assessment)

	metrics.ForOperation("qualityCheck").
		Metric("QcScore", float64(assessment.Score), metrics.UnitNone).
		Metric("QcDurationMs", float64(time.Since(start).Milliseconds()), metrics.UnitMilliseconds).
		Property("purpose", string(purpose)).
		Flush()

	log.Debug().
		Int("score", assessment.Score).
		Bool("passed", assessment.Passed).
		Int("issues", len(assessment.Issues)).
		Str("purpose", string(purpose)).
		Msg("Quality assessment complete")
	return &assessment, nil
}

// ScoreFunc adapts the scorer to the retry loop's signature for a given
// purpose and segment type. The first image of the result is the one scored.
func (s *Scorer) ScoreFunc(purpose prompts.Purpose, segmentType pipeline.SegmentType) func(ctx context.Context, result *pipeline.GenerationResult, prompt string) (*pipeline.QualityAssessment, error) {
	return func(ctx context.Context, result *pipeline.GenerationResult, prompt string) (*pipeline.QualityAssessment, error) {
		return s.Assess(ctx, result.Images[0], "image/png", prompt, purpose, segmentType)
	}
}

// CorrectPrompt rewrites a failed prompt from the scorer's issue list on the
// cheaper iterate tier. Returns the original prompt unchanged when no
// corrector is configured.
func (s *Scorer) CorrectPrompt(ctx context.Context, originalPrompt string, issues []pipeline.Issue) (string, error) {
	if s.corrector == nil {
		return originalPrompt, nil
	}
	res, err := s.corrector.Iterate(ctx, prompts.CorrectionSystemPrompt,
		prompts.CorrectionUserPrompt(originalPrompt, issues),
		provider.GenOptions{Task: "prompt-correction", MaxTokens: 2048})
	if err != nil {
		return "", err
	}
	corrected := jsonutil.StripMarkdownFences(res.Text)
	if corrected == "" {
		return originalPrompt, nil
	}
	return corrected, nil
}

func clampScore(a *pipeline.QualityAssessment) {
	if a.Score < 0 {
		a.Score = 0
	}
	if a.Score > 100 {
		a.Score = 100
	}
}
