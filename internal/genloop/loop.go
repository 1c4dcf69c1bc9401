// Package genloop implements the generation-with-quality-control retry loop:
// generate an asset, score it against acceptance criteria with a vision
// model, and conditionally regenerate with a corrected prompt, bounded by a
// retry budget. The loop degrades gracefully - when the budget is exhausted
// it returns the last attempt rather than failing the request.
package genloop

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/metrics"
	"github.com/fpang/ugc-factory/internal/pipeline"
)

// DefaultMaxRetries is the retry budget when the caller does not set one:
// up to 2 regenerations after the initial attempt.
const DefaultMaxRetries = 2

// GenerateFunc produces one asset from the current prompt. A returned error
// or an unsuccessful result is a capability failure and aborts the loop.
type GenerateFunc func(ctx context.Context, prompt string) (*pipeline.GenerationResult, error)

// ScoreFunc assesses one generated asset against the prompt that produced it.
type ScoreFunc func(ctx context.Context, result *pipeline.GenerationResult, prompt string) (*pipeline.QualityAssessment, error)

// CorrectFunc synthesizes a corrected prompt from an issue list, typically on
// a cheaper model tier. Optional; when absent or failing, the loop retries
// with the previous prompt unchanged.
type CorrectFunc func(ctx context.Context, prompt string, issues []pipeline.Issue) (string, error)

// Options tunes one loop invocation.
type Options struct {
	// MaxRetries bounds regeneration: the loop performs at most
	// MaxRetries+1 generation attempts. Negative means DefaultMaxRetries;
	// zero means exactly one attempt with no correction.
	MaxRetries int

	// DisableQC skips scoring entirely; the first successful generation is
	// accepted with a synthetic always-pass assessment.
	DisableQC bool

	// Threshold is the minimum acceptable score. Zero means 80.
	Threshold int

	// Correct rebuilds the prompt from scored issues when the assessment has
	// no adjusted prompt of its own.
	Correct CorrectFunc

	// Operation labels metrics and logs (e.g. "brollGeneration").
	Operation string
}

func (o *Options) normalize() {
	if o.MaxRetries < 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.Threshold == 0 {
		o.Threshold = 80
	}
	if o.Operation == "" {
		o.Operation = "generation"
	}
}

// Outcome is the loop's final state: the accepted result, the prompt that
// produced it, how many attempts were spent (1-indexed), and the final
// assessment. Assessment is a synthetic pass when QC was disabled or the
// asset produced no scorable payload.
type Outcome struct {
	Result     *pipeline.GenerationResult
	Prompt     string
	Attempts   int
	Assessment *pipeline.QualityAssessment
}

// Accepted reports whether the outcome cleared its quality bar (as opposed to
// being returned as best effort on budget exhaustion).
func (o *Outcome) Accepted(threshold int) bool {
	return o.Assessment != nil && o.Assessment.Meets(threshold)
}

// syntheticPass is the assessment attached when scoring was skipped.
func syntheticPass() *pipeline.QualityAssessment {
	return &pipeline.QualityAssessment{Score: 100, Passed: true}
}

// Run drives generate -> score -> (accept | correct-and-regenerate) until a
// result passes, the budget is exhausted, or generation itself fails.
//
// Retries are reserved for quality failures: a hard generation failure on any
// attempt surfaces immediately with no further attempts. When every attempt
// scores below threshold the last result is still returned - the caller
// always gets something to show, with the failing assessment attached as the
// diagnostic record.
func Run(ctx context.Context, initialPrompt string, generate GenerateFunc, score ScoreFunc, opts Options) (*Outcome, error) {
	opts.normalize()

	out := &Outcome{Prompt: initialPrompt}
	currentPrompt := initialPrompt

	defer func() {
		m := metrics.ForOperation(opts.Operation).
			Metric("GenerationAttempts", float64(out.Attempts), metrics.UnitCount)
		if out.Assessment != nil {
			m.Metric("QcScore", float64(out.Assessment.Score), metrics.UnitNone)
		}
		m.Flush()
	}()

	for out.Attempts <= opts.MaxRetries {
		out.Attempts++
		out.Prompt = currentPrompt

		result, err := generate(ctx, currentPrompt)
		if err != nil {
			log.Error().Err(err).
				Str("operation", opts.Operation).
				Int("attempt", out.Attempts).
				Msg("Generation failed, aborting loop")
			return out, err
		}
		if result == nil || !result.Success {
			errMsg := "generation returned no result"
			kind := pipeline.KindCapability
			if result != nil {
				errMsg = result.Error
				if result.Kind != "" {
					kind = result.Kind
				}
				out.Result = result
			}
			return out, pipeline.NewError(kind, opts.Operation, errorf(errMsg))
		}
		out.Result = result

		// No QC requested, or nothing scorable produced: accept as-is.
		if opts.DisableQC || !scorable(result) {
			out.Assessment = syntheticPass()
			return out, nil
		}

		assessment, err := score(ctx, result, currentPrompt)
		if err != nil || assessment == nil {
			// Scoring itself broke. Regenerating with an identical prompt
			// cannot improve anything, so accept what we have and attach the
			// degraded assessment as the diagnostic.
			log.Warn().Err(err).
				Str("operation", opts.Operation).
				Int("attempt", out.Attempts).
				Msg("Quality scoring unavailable, accepting result unscored")
			// Distinct from the scorer's "could not analyze" verdict, which
			// marks an unreadable assessment and drives a retry.
			out.Assessment = &pipeline.QualityAssessment{
				Score:  0,
				Passed: false,
				Issues: []pipeline.Issue{{Issue: "scoring unavailable, accepted without review", Severity: pipeline.SeverityHigh}},
			}
			return out, nil
		}
		out.Assessment = assessment

		if assessment.Meets(opts.Threshold) {
			log.Debug().
				Str("operation", opts.Operation).
				Int("attempt", out.Attempts).
				Int("score", assessment.Score).
				Msg("Quality check passed")
			return out, nil
		}

		if out.Attempts > opts.MaxRetries {
			log.Info().
				Str("operation", opts.Operation).
				Int("attempts", out.Attempts).
				Int("score", assessment.Score).
				Msg("Retry budget exhausted, accepting best effort")
			return out, nil
		}

		// A failing assessment with neither a corrected prompt nor issues
		// gives the loop nothing to act on; regenerating from the identical
		// prompt would burn quota for the same odds. Accept instead.
		if !assessment.Actionable() {
			log.Info().
				Str("operation", opts.Operation).
				Int("score", assessment.Score).
				Msg("Assessment failed without actionable feedback, accepting result")
			return out, nil
		}

		currentPrompt = nextPrompt(ctx, currentPrompt, assessment, opts)
		log.Info().
			Str("operation", opts.Operation).
			Int("attempt", out.Attempts).
			Int("score", assessment.Score).
			Int("issues", len(assessment.Issues)).
			Msg("Quality check failed, regenerating with corrected prompt")
	}

	return out, nil
}

// nextPrompt derives the retry prompt: the assessment's own corrected prompt
// wins; otherwise the correction model rebuilds one from the issue list; a
// failed correction keeps the previous prompt (the budget still bounds the
// loop).
func nextPrompt(ctx context.Context, current string, assessment *pipeline.QualityAssessment, opts Options) string {
	if assessment.AdjustedPrompt != "" {
		return assessment.AdjustedPrompt
	}
	if len(assessment.Issues) == 0 || opts.Correct == nil {
		return current
	}
	corrected, err := opts.Correct(ctx, current, assessment.Issues)
	if err != nil || corrected == "" {
		log.Warn().Err(err).
			Str("operation", opts.Operation).
			Msg("Prompt correction failed, retrying with unchanged prompt")
		return current
	}
	return corrected
}

// scorable reports whether the result carries a payload the scorer can look at.
func scorable(result *pipeline.GenerationResult) bool {
	return len(result.Images) > 0 && len(result.Images[0]) > 0
}

func errorf(msg string) error {
	if msg == "" {
		msg = "generation failed"
	}
	return errors.New(msg)
}
