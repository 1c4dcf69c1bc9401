package assembly

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/provider"
)

type fakeVision struct {
	images []provider.ReferenceImage
	prompt string
	err    error
}

func (f *fakeVision) AnalyzeImages(_ context.Context, images []provider.ReferenceImage, prompt string) (*provider.TextResult, error) {
	f.images = images
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return &provider.TextResult{Text: "1. TIMELINE\nHook first, then proof shots.\n2. TRANSITIONS\nHard cuts.", Model: "fake"}, nil
}

type fakeText struct {
	response string
	err      error
	calls    int
}

func (f *fakeText) Generate(_ context.Context, _, _ string, _ provider.GenOptions) (*provider.TextResult, error) {
	return &provider.TextResult{Text: f.response, Model: "fake"}, f.err
}

func (f *fakeText) Iterate(ctx context.Context, system, user string, opts provider.GenOptions) (*provider.TextResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &provider.TextResult{Text: f.response, Model: "fake"}, nil
}

func cushionInput() Input {
	return Input{
		Segments: []pipeline.ScriptSegment{
			{Index: 0, Text: "my back is killing me by 2pm", Type: pipeline.SegmentHook, DurationSeconds: 3},
			{Index: 1, Text: "it bounces right back", Type: pipeline.SegmentBroll, DurationSeconds: 5},
		},
		Product: &pipeline.ProductAnalysis{Name: "LumbarPro Seat Cushion", ProblemSolved: "back pain when sitting"},
		Aroll:   []Clip{{Segment: 0, Frame: []byte("aroll-frame"), MIMEType: "image/png"}},
		Broll:   []Clip{{Segment: 1, Frame: []byte("broll-frame")}},
	}
}

func TestPlan_LabelsFramesAndBuildsPrompt(t *testing.T) {
	vision := &fakeVision{}
	text := &fakeText{response: "[0:00-0:03] A-ROLL 1 (Hook)\n[0:03-0:08] B-ROLL 2"}
	a := NewAnalyzer(vision, text)

	plan, err := a.Plan(context.Background(), cushionInput())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Aroll != 1 || plan.Broll != 1 {
		t.Errorf("clip count = %d/%d", plan.Aroll, plan.Broll)
	}
	if !strings.Contains(plan.Guide, "TIMELINE") {
		t.Errorf("guide = %q", plan.Guide)
	}
	if !strings.Contains(plan.Timeline, "[0:00-0:03]") {
		t.Errorf("timeline = %q", plan.Timeline)
	}

	if len(vision.images) != 2 {
		t.Fatalf("frames = %d, want 2", len(vision.images))
	}
	if vision.images[0].Label != "[A-ROLL CLIP 1 - Segment 0]:" {
		t.Errorf("aroll label = %q", vision.images[0].Label)
	}
	if vision.images[1].Label != "[B-ROLL CLIP 1 - Segment 1]:" {
		t.Errorf("broll label = %q", vision.images[1].Label)
	}
	if vision.images[1].MIMEType != "image/png" {
		t.Errorf("unset mime should default to png, got %q", vision.images[1].MIMEType)
	}

	for _, want := range []string{"my back is killing me by 2pm", "[HOOK]", "LumbarPro Seat Cushion", "1 A-roll clip(s)", "1 B-roll clip(s)", "no separate voiceover"} {
		if !strings.Contains(vision.prompt, want) {
			t.Errorf("analysis prompt missing %q", want)
		}
	}
}

func TestPlan_VoiceoverChangesAudioAdvicePrompt(t *testing.T) {
	vision := &fakeVision{}
	a := NewAnalyzer(vision, &fakeText{})

	in := cushionInput()
	in.HasVoiceover = true
	if _, err := a.Plan(context.Background(), in); err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !strings.Contains(vision.prompt, "voiceover track") {
		t.Errorf("prompt should mention the voiceover track:\n%s", vision.prompt)
	}
}

func TestPlan_TimelineFailureIsNonFatal(t *testing.T) {
	vision := &fakeVision{}
	text := &fakeText{err: errors.New("cheap tier down")}
	a := NewAnalyzer(vision, text)

	plan, err := a.Plan(context.Background(), cushionInput())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Guide == "" {
		t.Error("guide should survive a timeline extraction failure")
	}
	if plan.Timeline != "" {
		t.Errorf("timeline = %q, want empty on extraction failure", plan.Timeline)
	}
}

func TestPlan_RequiresSegmentsAndClips(t *testing.T) {
	a := NewAnalyzer(&fakeVision{}, &fakeText{})

	in := cushionInput()
	in.Segments = nil
	if _, err := a.Plan(context.Background(), in); err == nil {
		t.Error("expected error without segments")
	}

	in = cushionInput()
	in.Aroll, in.Broll = nil, nil
	if _, err := a.Plan(context.Background(), in); err == nil {
		t.Error("expected error without clip frames")
	}
}

func TestPlan_AnalysisFailureSurfaces(t *testing.T) {
	a := NewAnalyzer(&fakeVision{err: errors.New("vision down")}, &fakeText{})
	if _, err := a.Plan(context.Background(), cushionInput()); err == nil {
		t.Error("expected analysis failure to surface")
	}
}
