package qc

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/prompts"
	"github.com/fpang/ugc-factory/internal/provider"
)

type fakeVision struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeVision) AnalyzeImage(_ context.Context, _ []byte, _ string, analysisPrompt string) (*provider.TextResult, error) {
	f.lastPrompt = analysisPrompt
	if f.err != nil {
		return nil, f.err
	}
	return &provider.TextResult{Text: f.response}, nil
}

func TestAssess_ParsesVerdict(t *testing.T) {
	vision := &fakeVision{response: `Here is my analysis:
` + "```json" + `
{"score": 85, "passed": true, "issues": []}
` + "```"}
	scorer := NewScorer(vision, nil)

	a, err := scorer.Assess(context.Background(), []byte("img"), "image/png",
		"a woman at her desk", prompts.PurposeCharacter, pipeline.SegmentAroll)
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Score != 85 || !a.Passed {
		t.Errorf("assessment = %+v, want score 85 passed", a)
	}
	if !strings.Contains(vision.lastPrompt, "a woman at her desk") {
		t.Error("analysis prompt should embed the originating prompt")
	}
}

func TestAssess_UnparseableDegradesToFailure(t *testing.T) {
	vision := &fakeVision{response: "The image looks mostly fine to me, maybe an 8/10."}
	scorer := NewScorer(vision, nil)

	a, err := scorer.Assess(context.Background(), []byte("img"), "image/png",
		"prompt", prompts.PurposeBroll, pipeline.SegmentBroll)
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Score != 0 || a.Passed {
		t.Errorf("unparseable verdict should degrade to score 0 / failed, got %+v", a)
	}
	if len(a.Issues) != 1 || a.Issues[0].Issue != "could not analyze" {
		t.Errorf("expected a single 'could not analyze' issue, got %+v", a.Issues)
	}
}

func TestAssess_ClampsOutOfRangeScore(t *testing.T) {
	vision := &fakeVision{response: `{"score": 140, "passed": true}`}
	scorer := NewScorer(vision, nil)

	a, err := scorer.Assess(context.Background(), []byte("img"), "image/png",
		"prompt", prompts.PurposeGeneral, pipeline.SegmentAroll)
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Score != 100 {
		t.Errorf("score = %d, want clamped to 100", a.Score)
	}
}

func TestAssess_VisionErrorSurfaces(t *testing.T) {
	vision := &fakeVision{err: errors.New("model overloaded")}
	scorer := NewScorer(vision, nil)

	if _, err := scorer.Assess(context.Background(), []byte("img"), "image/png",
		"prompt", prompts.PurposeCharacter, pipeline.SegmentAroll); err == nil {
		t.Fatal("expected vision error to surface")
	}
}

type fakeIterator struct {
	response string
	err      error
	lastUser string
}

func (f *fakeIterator) Generate(_ context.Context, _, _ string, _ provider.GenOptions) (*provider.TextResult, error) {
	return &provider.TextResult{Text: f.response}, f.err
}

func (f *fakeIterator) Iterate(_ context.Context, _, user string, _ provider.GenOptions) (*provider.TextResult, error) {
	f.lastUser = user
	if f.err != nil {
		return nil, f.err
	}
	return &provider.TextResult{Text: f.response}, nil
}

func TestCorrectPrompt_UsesIssueList(t *testing.T) {
	it := &fakeIterator{response: "a corrected prompt with proper hands"}
	scorer := NewScorer(&fakeVision{}, it)

	corrected, err := scorer.CorrectPrompt(context.Background(), "original prompt", []pipeline.Issue{
		{Issue: "six fingers", Severity: pipeline.SeverityHigh},
		{Issue: "plastic skin", Severity: pipeline.SeverityMedium},
	})
	if err != nil {
		t.Fatalf("CorrectPrompt: %v", err)
	}
	if corrected != "a corrected prompt with proper hands" {
		t.Errorf("corrected = %q", corrected)
	}
	if !strings.Contains(it.lastUser, "six fingers") || !strings.Contains(it.lastUser, "plastic skin") {
		t.Error("correction prompt should enumerate the issues")
	}
}

func TestCorrectPrompt_NoCorrectorReturnsOriginal(t *testing.T) {
	scorer := NewScorer(&fakeVision{}, nil)
	corrected, err := scorer.CorrectPrompt(context.Background(), "original", []pipeline.Issue{{Issue: "blurry"}})
	if err != nil {
		t.Fatalf("CorrectPrompt: %v", err)
	}
	if corrected != "original" {
		t.Errorf("corrected = %q, want original prompt", corrected)
	}
}
