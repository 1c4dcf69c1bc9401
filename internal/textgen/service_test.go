package textgen

import (
	"context"
	"strings"
	"testing"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/provider"
)

type recordingGen struct {
	lastTier   string
	lastSystem string
	lastUser   string
	response   string
}

func (r *recordingGen) Generate(_ context.Context, system, user string, _ provider.GenOptions) (*provider.TextResult, error) {
	r.lastTier, r.lastSystem, r.lastUser = "primary", system, user
	return &provider.TextResult{Text: r.response, Model: "primary-model"}, nil
}

func (r *recordingGen) Iterate(_ context.Context, system, user string, _ provider.GenOptions) (*provider.TextResult, error) {
	r.lastTier, r.lastSystem, r.lastUser = "iterate", system, user
	return &provider.TextResult{Text: r.response, Model: "iterate-model"}, nil
}

func TestGenerate_FreshUsesPrimaryTier(t *testing.T) {
	gen := &recordingGen{response: "A supportive cushion that ends back pain when sitting."}
	svc := NewService(gen)

	res, err := svc.Generate(context.Background(), &pipeline.GenerationRequest{
		Type: pipeline.ContentDescription,
		Mode: pipeline.ModeFresh,
		Context: map[string]any{
			"productName": "LumbarPro Seat Cushion",
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.lastTier != "primary" {
		t.Errorf("tier = %q, want primary", gen.lastTier)
	}
	if !strings.Contains(gen.lastUser, "LumbarPro Seat Cushion") {
		t.Errorf("user prompt missing product name: %q", gen.lastUser)
	}
	if !res.Success || res.Text == "" {
		t.Errorf("result = %+v", res)
	}
}

func TestGenerate_IterateRoutesThroughRefineTemplate(t *testing.T) {
	gen := &recordingGen{response: "refined text"}
	svc := NewService(gen)

	_, err := svc.Generate(context.Background(), &pipeline.GenerationRequest{
		Type:         pipeline.ContentHook,
		Mode:         pipeline.ModeIterate,
		CurrentValue: "my back is killing me by 2pm",
		Guidance:     "make it punchier",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.lastTier != "iterate" {
		t.Errorf("tier = %q, want iterate", gen.lastTier)
	}
	if !strings.Contains(gen.lastUser, "my back is killing me by 2pm") {
		t.Errorf("user prompt missing current value: %q", gen.lastUser)
	}
	if !strings.Contains(gen.lastUser, "make it punchier") {
		t.Errorf("user prompt missing guidance: %q", gen.lastUser)
	}
	if !strings.Contains(gen.lastSystem, "refining existing content") {
		t.Errorf("system prompt = %q", gen.lastSystem)
	}
}

func TestGenerate_IterateWithoutValueFallsBackToFresh(t *testing.T) {
	gen := &recordingGen{response: "fresh text"}
	svc := NewService(gen)

	_, err := svc.Generate(context.Background(), &pipeline.GenerationRequest{
		Type: pipeline.ContentHook,
		Mode: pipeline.ModeIterate,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.lastTier != "primary" {
		t.Errorf("tier = %q, want primary (no current value to refine)", gen.lastTier)
	}
}

func TestGenerate_SegmentIterateKeepsSegmentTemplate(t *testing.T) {
	gen := &recordingGen{response: "better segment"}
	svc := NewService(gen)

	_, err := svc.Generate(context.Background(), &pipeline.GenerationRequest{
		Type:         pipeline.ContentSegment,
		Mode:         pipeline.ModeIterate,
		CurrentValue: "it bounces right back",
		Context:      map[string]any{"action": "improve"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(gen.lastSystem, "script editor") {
		t.Errorf("system prompt = %q, want segment template", gen.lastSystem)
	}
	if !strings.Contains(gen.lastUser, "it bounces right back") {
		t.Errorf("user prompt missing current value: %q", gen.lastUser)
	}
}

func TestGenerate_EmptyResponseIsFailureResult(t *testing.T) {
	gen := &recordingGen{response: "   "}
	svc := NewService(gen)

	res, err := svc.Generate(context.Background(), &pipeline.GenerationRequest{Type: pipeline.ContentGeneral})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Success {
		t.Error("expected failure result for empty response")
	}
	if res.Kind != pipeline.KindCapability {
		t.Errorf("kind = %v", res.Kind)
	}
}
