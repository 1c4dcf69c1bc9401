package genloop

import (
	"context"
	"errors"
	"testing"

	"github.com/fpang/ugc-factory/internal/pipeline"
)

func okResult() *pipeline.GenerationResult {
	return &pipeline.GenerationResult{
		Success: true,
		Images:  [][]byte{[]byte("png-bytes")},
	}
}

// scriptedScorer returns canned assessments in order, counting calls.
type scriptedScorer struct {
	assessments []*pipeline.QualityAssessment
	calls       int
}

func (s *scriptedScorer) score(_ context.Context, _ *pipeline.GenerationResult, _ string) (*pipeline.QualityAssessment, error) {
	a := s.assessments[s.calls]
	s.calls++
	return a, nil
}

func TestRun_PassesFirstAttempt(t *testing.T) {
	gen := 0
	scorer := &scriptedScorer{assessments: []*pipeline.QualityAssessment{
		{Score: 92, Passed: true},
	}}

	out, err := Run(context.Background(), "a woman holding the product",
		func(_ context.Context, _ string) (*pipeline.GenerationResult, error) {
			gen++
			return okResult(), nil
		},
		scorer.score,
		Options{MaxRetries: 2, Threshold: 80},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gen != 1 || scorer.calls != 1 {
		t.Errorf("expected 1 generate / 1 score, got %d / %d", gen, scorer.calls)
	}
	if out.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", out.Attempts)
	}
	if !out.Accepted(80) {
		t.Error("expected outcome to be accepted")
	}
}

func TestRun_StopsOnPassMidBudget(t *testing.T) {
	gen := 0
	scorer := &scriptedScorer{assessments: []*pipeline.QualityAssessment{
		{Score: 60, Passed: false, AdjustedPrompt: "sharper focus on hands"},
		{Score: 82, Passed: true},
	}}

	out, err := Run(context.Background(), "initial",
		func(_ context.Context, _ string) (*pipeline.GenerationResult, error) {
			gen++
			return okResult(), nil
		},
		scorer.score,
		Options{MaxRetries: 5, Threshold: 75},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gen != 2 || scorer.calls != 2 {
		t.Errorf("expected exactly 2 generate / 2 score calls, got %d / %d", gen, scorer.calls)
	}
	if out.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", out.Attempts)
	}
	if out.Prompt != "sharper focus on hands" {
		t.Errorf("final prompt = %q, want the adjusted prompt", out.Prompt)
	}
}

func TestRun_AttemptsBoundedByBudget(t *testing.T) {
	const maxRetries = 3
	gen := 0
	alwaysFail := func(_ context.Context, _ *pipeline.GenerationResult, _ string) (*pipeline.QualityAssessment, error) {
		return &pipeline.QualityAssessment{
			Score:          20,
			Passed:         false,
			AdjustedPrompt: "try again differently",
		}, nil
	}

	out, err := Run(context.Background(), "initial",
		func(_ context.Context, _ string) (*pipeline.GenerationResult, error) {
			gen++
			return okResult(), nil
		},
		alwaysFail,
		Options{MaxRetries: maxRetries, Threshold: 80},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gen != maxRetries+1 {
		t.Errorf("generate calls = %d, want %d", gen, maxRetries+1)
	}
	if out.Attempts != maxRetries+1 {
		t.Errorf("Attempts = %d, want %d", out.Attempts, maxRetries+1)
	}
	// Budget exhaustion still yields the last result, flagged by its score.
	if out.Result == nil {
		t.Fatal("expected a best-effort result on budget exhaustion")
	}
	if out.Accepted(80) {
		t.Error("exhausted outcome should not report as accepted")
	}
}

func TestRun_GenerationFailureAborts(t *testing.T) {
	gen, scored := 0, 0

	_, err := Run(context.Background(), "initial",
		func(_ context.Context, _ string) (*pipeline.GenerationResult, error) {
			gen++
			return nil, errors.New("model refused request")
		},
		func(_ context.Context, _ *pipeline.GenerationResult, _ string) (*pipeline.QualityAssessment, error) {
			scored++
			return &pipeline.QualityAssessment{Score: 100, Passed: true}, nil
		},
		Options{MaxRetries: 2},
	)
	if err == nil {
		t.Fatal("expected generation error to surface")
	}
	if gen != 1 {
		t.Errorf("generate calls = %d, want 1 (no retry on hard failure)", gen)
	}
	if scored != 0 {
		t.Errorf("score calls = %d, want 0", scored)
	}
}

func TestRun_UnsuccessfulResultAborts(t *testing.T) {
	out, err := Run(context.Background(), "initial",
		func(_ context.Context, _ string) (*pipeline.GenerationResult, error) {
			return &pipeline.GenerationResult{
				Success: false,
				Error:   "quota exceeded",
				Kind:    pipeline.KindCapability,
			}, nil
		},
		nil,
		Options{MaxRetries: 2, DisableQC: true},
	)
	if err == nil {
		t.Fatal("expected error for unsuccessful result")
	}
	if pipeline.KindOf(err) != pipeline.KindCapability {
		t.Errorf("error kind = %v, want capability", pipeline.KindOf(err))
	}
	if out.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", out.Attempts)
	}
}

func TestRun_ZeroRetriesSingleAttempt(t *testing.T) {
	gen := 0
	scorer := &scriptedScorer{assessments: []*pipeline.QualityAssessment{
		{Score: 10, Passed: false, AdjustedPrompt: "unused adjustment"},
	}}

	out, err := Run(context.Background(), "initial",
		func(_ context.Context, _ string) (*pipeline.GenerationResult, error) {
			gen++
			return okResult(), nil
		},
		scorer.score,
		Options{MaxRetries: 0, Threshold: 80},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gen != 1 {
		t.Errorf("generate calls = %d, want exactly 1 with zero retries", gen)
	}
	if out.Assessment == nil || out.Assessment.Score != 10 {
		t.Error("expected the failing assessment to be attached")
	}
}

func TestRun_QCDisabledSkipsScoring(t *testing.T) {
	scored := 0
	out, err := Run(context.Background(), "initial",
		func(_ context.Context, _ string) (*pipeline.GenerationResult, error) {
			return okResult(), nil
		},
		func(_ context.Context, _ *pipeline.GenerationResult, _ string) (*pipeline.QualityAssessment, error) {
			scored++
			return nil, nil
		},
		Options{MaxRetries: 2, DisableQC: true},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if scored != 0 {
		t.Errorf("score calls = %d, want 0 when QC disabled", scored)
	}
	if out.Assessment == nil || !out.Assessment.Passed {
		t.Error("expected synthetic passing assessment")
	}
}

func TestRun_NoScorablePayloadAccepts(t *testing.T) {
	scored := 0
	out, err := Run(context.Background(), "write a script",
		func(_ context.Context, _ string) (*pipeline.GenerationResult, error) {
			return &pipeline.GenerationResult{Success: true, Text: "a text-only result"}, nil
		},
		func(_ context.Context, _ *pipeline.GenerationResult, _ string) (*pipeline.QualityAssessment, error) {
			scored++
			return nil, nil
		},
		Options{MaxRetries: 2},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if scored != 0 {
		t.Errorf("score calls = %d, want 0 for text-only payload", scored)
	}
	if out.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", out.Attempts)
	}
}

func TestRun_NonActionableFailureAccepts(t *testing.T) {
	gen := 0
	out, err := Run(context.Background(), "initial",
		func(_ context.Context, _ string) (*pipeline.GenerationResult, error) {
			gen++
			return okResult(), nil
		},
		func(_ context.Context, _ *pipeline.GenerationResult, _ string) (*pipeline.QualityAssessment, error) {
			// Failed verdict but nothing to correct with.
			return &pipeline.QualityAssessment{Score: 50, Passed: false}, nil
		},
		Options{MaxRetries: 3, Threshold: 80},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gen != 1 {
		t.Errorf("generate calls = %d, want 1 (no retry without actionable feedback)", gen)
	}
	if out.Result == nil {
		t.Error("expected the result to be returned despite the failed verdict")
	}
}

func TestRun_CorrectionBuildsRetryPrompt(t *testing.T) {
	var promptsSeen []string
	scorer := &scriptedScorer{assessments: []*pipeline.QualityAssessment{
		{Score: 40, Passed: false, Issues: []pipeline.Issue{
			{Issue: "six fingers on left hand", Severity: pipeline.SeverityHigh},
		}},
		{Score: 85, Passed: true},
	}}

	out, err := Run(context.Background(), "original prompt",
		func(_ context.Context, prompt string) (*pipeline.GenerationResult, error) {
			promptsSeen = append(promptsSeen, prompt)
			return okResult(), nil
		},
		scorer.score,
		Options{
			MaxRetries: 2,
			Threshold:  80,
			Correct: func(_ context.Context, prompt string, issues []pipeline.Issue) (string, error) {
				if len(issues) != 1 {
					t.Fatalf("correction saw %d issues, want 1", len(issues))
				}
				return prompt + " with anatomically correct hands", nil
			},
		},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "original prompt with anatomically correct hands"
	if len(promptsSeen) != 2 || promptsSeen[1] != want {
		t.Errorf("retry prompt = %q, want %q", promptsSeen[len(promptsSeen)-1], want)
	}
	if out.Prompt != want {
		t.Errorf("outcome prompt = %q, want %q", out.Prompt, want)
	}
}

func TestRun_CorrectionFailureKeepsPrompt(t *testing.T) {
	var promptsSeen []string
	scorer := &scriptedScorer{assessments: []*pipeline.QualityAssessment{
		{Score: 40, Passed: false, Issues: []pipeline.Issue{{Issue: "blurry", Severity: pipeline.SeverityMedium}}},
		{Score: 90, Passed: true},
	}}

	_, err := Run(context.Background(), "original prompt",
		func(_ context.Context, prompt string) (*pipeline.GenerationResult, error) {
			promptsSeen = append(promptsSeen, prompt)
			return okResult(), nil
		},
		scorer.score,
		Options{
			MaxRetries: 2,
			Threshold:  80,
			Correct: func(_ context.Context, _ string, _ []pipeline.Issue) (string, error) {
				return "", errors.New("correction model unavailable")
			},
		},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(promptsSeen) != 2 || promptsSeen[1] != "original prompt" {
		t.Errorf("expected unchanged prompt on correction failure, got %q", promptsSeen[len(promptsSeen)-1])
	}
}

func TestRun_ScorerErrorAcceptsUnscored(t *testing.T) {
	gen := 0
	out, err := Run(context.Background(), "initial",
		func(_ context.Context, _ string) (*pipeline.GenerationResult, error) {
			gen++
			return okResult(), nil
		},
		func(_ context.Context, _ *pipeline.GenerationResult, _ string) (*pipeline.QualityAssessment, error) {
			return nil, errors.New("vision model timeout")
		},
		Options{MaxRetries: 2, Threshold: 80},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gen != 1 {
		t.Errorf("generate calls = %d, want 1", gen)
	}
	if out.Assessment == nil || out.Assessment.Passed || out.Assessment.Score != 0 {
		t.Error("expected degraded zero-score assessment when scoring is unavailable")
	}
	// The accept-unscored diagnostic must not read like the scorer's
	// unparseable-verdict issue, which signals a retryable failed check.
	if len(out.Assessment.Issues) != 1 || out.Assessment.Issues[0].Issue != "scoring unavailable, accepted without review" {
		t.Errorf("issues = %+v", out.Assessment.Issues)
	}
}
