package prompts

import (
	"strings"
	"testing"

	"github.com/fpang/ugc-factory/internal/pipeline"
)

func lumbarResearch() map[string]any {
	return map[string]any{
		"painPoints": []string{
			"back pain when sitting for long hours",
			"numbness in legs during commutes",
			"chairs that flatten out after a month",
		},
		"languagePatterns": []string{
			"my lower back is killing me",
			"I can't sit through a full workday",
		},
	}
}

func TestBuild_ScriptIncludesResearchAndAnalysis(t *testing.T) {
	p := Build(pipeline.ContentScript, map[string]any{
		"productName":        "LumbarPro Seat Cushion",
		"productDescription": "Memory foam cushion that relieves tailbone pressure.",
		"targetAudience":     "office workers 25-45 with desk jobs",
		"research":           lumbarResearch(),
	}, "lean into the work-from-home angle")

	if !strings.Contains(p.System, "UGC ad script writer") {
		t.Errorf("script system prompt = %q", p.System)
	}
	for _, want := range []string{
		"LumbarPro Seat Cushion",
		"back pain when sitting",
		"office workers 25-45",
		"Guidance: lean into the work-from-home angle",
	} {
		if !strings.Contains(p.User, want) {
			t.Errorf("user prompt missing %q:\n%s", want, p.User)
		}
	}
}

func TestBuild_HookPullsNestedResearchFields(t *testing.T) {
	p := Build(pipeline.ContentHook, map[string]any{
		"productName": "LumbarPro Seat Cushion",
		"research":    lumbarResearch(),
	}, "")

	if !strings.Contains(p.User, "back pain when sitting for long hours") {
		t.Errorf("hook prompt missing pain points:\n%s", p.User)
	}
	if !strings.Contains(p.User, "my lower back is killing me") {
		t.Errorf("hook prompt missing language patterns:\n%s", p.User)
	}
	// Nested values from typed structs go through the same path.
	p2 := Build(pipeline.ContentHook, map[string]any{
		"research": &pipeline.ResearchBrief{
			PainPoints: []string{"back pain when sitting"},
		},
	}, "")
	if !strings.Contains(p2.User, "back pain when sitting") {
		t.Errorf("typed research brief not unwrapped:\n%s", p2.User)
	}
}

func TestBuild_AbsentContextLeavesNoPlaceholders(t *testing.T) {
	for _, ct := range []pipeline.ContentType{
		pipeline.ContentDescription,
		pipeline.ContentAudience,
		pipeline.ContentScript,
		pipeline.ContentHook,
		pipeline.ContentCharacter,
		pipeline.ContentBroll,
		pipeline.ContentSegment,
		pipeline.ContentRefine,
		pipeline.ContentGeneral,
	} {
		p := Build(ct, nil, "")
		if p.System == "" || p.User == "" {
			t.Errorf("%s: empty prompt half", ct)
		}
		lower := strings.ToLower(p.User)
		for _, leak := range []string{"undefined", "null", "%!s", "map["} {
			if strings.Contains(lower, leak) {
				t.Errorf("%s: placeholder %q leaked into:\n%s", ct, leak, p.User)
			}
		}
		if strings.Contains(p.User, "\n\n\n") {
			t.Errorf("%s: collapsed sections left a triple newline:\n%s", ct, p.User)
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	ctx := map[string]any{
		"productName": "LumbarPro Seat Cushion",
		"research":    lumbarResearch(),
	}
	first := Build(pipeline.ContentScript, ctx, "keep it under 45 seconds")
	second := Build(pipeline.ContentScript, ctx, "keep it under 45 seconds")
	if first != second {
		t.Errorf("identical inputs produced different prompts:\n%q\n%q", first.User, second.User)
	}
}

func TestBuild_UnknownTypeFallsBackToGeneral(t *testing.T) {
	p := Build(pipeline.ContentType("storyboard"), map[string]any{"task": "Plan the shot list"}, "")
	if p.System != registry[pipeline.ContentGeneral].system {
		t.Errorf("unknown type got system %q", p.System)
	}
	if !strings.Contains(p.User, "Plan the shot list") {
		t.Errorf("task not carried through: %s", p.User)
	}
}

func TestBuild_RefineQuotesCurrentValue(t *testing.T) {
	p := Build(pipeline.ContentRefine, map[string]any{
		"currentValue": "This cushion changed my life.",
	}, "make it less salesy")

	if !strings.Contains(p.User, `"This cushion changed my life."`) {
		t.Errorf("current value not quoted:\n%s", p.User)
	}
	if !strings.Contains(p.User, "make it less salesy") {
		t.Errorf("guidance dropped:\n%s", p.User)
	}
}

func TestBuild_SegmentImproveVsWrite(t *testing.T) {
	improve := Build(pipeline.ContentSegment, map[string]any{
		"action":       "improve",
		"currentValue": "And it has a washable cover too.",
	}, "")
	if !strings.Contains(improve.User, "Improve this segment") {
		t.Errorf("improve mode not selected:\n%s", improve.User)
	}

	fresh := Build(pipeline.ContentSegment, map[string]any{
		"segmentPurpose": "introduce the pain point",
	}, "")
	if !strings.Contains(fresh.User, "Write a segment") {
		t.Errorf("fresh mode not selected:\n%s", fresh.User)
	}
}
