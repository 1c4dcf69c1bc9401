package research

import (
	"context"
	"errors"
	"testing"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/provider"
)

// fakeSearcher scripts one response per call, in order.
type fakeSearcher struct {
	configured bool
	responses  []*provider.SearchResult
	errs       []error
	calls      int
}

func (f *fakeSearcher) Configured() bool { return f.configured }

func (f *fakeSearcher) Search(_ context.Context, _, _ string, _ provider.GenOptions) (*provider.SearchResult, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, errors.New("unscripted search call")
}

const avatarJSON = `{"demographics": {"name": "Rachel"}, "dayInLife": "long desk days"}`
const anglesJSON = `{"hookAngles": [{"angle": "problem", "hookLine": "POV: your back at 2pm", "whyItWorks": "recognition"}]}`
const evidenceJSON = `{"painPoints": ["back pain from sitting"], "praises": ["instant relief"], "languagePatterns": ["my back is killing me"]}`

func synthesisFallbacks() map[string]string {
	return map[string]string{
		"research-community-fallback": evidenceJSON,
		"research-reviews-fallback":   evidenceJSON,
		"avatar-building":             avatarJSON,
		"angle-generation":            anglesJSON,
	}
}

func TestDeepRun_SearchProviderPath(t *testing.T) {
	search := &fakeSearcher{configured: true, responses: []*provider.SearchResult{
		{Content: "Pain points:\n- back pain from long sitting\n", Model: "sonar-deep-research", CostUSD: 0.12},
		{Content: "Five-star praise themes:\n- instant relief on day one\n", Model: "sonar-deep-research", CostUSD: 0.10},
		{Content: "Her name is Rachel, 34 years old. She works as a paralegal.", Model: "sonar-pro", CostUSD: 0.02},
		{Content: "Hook 1: POV your back at 2pm", Model: "sonar-reasoning-pro", CostUSD: 0.03},
	}}
	gen := &fakeStructured{responses: map[string]string{"angle-generation": anglesJSON}}

	out, err := NewDeepPipeline(search, gen).Run(context.Background(), nil, "LumbarPro", "ergonomics", "desk workers")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Partial {
		t.Error("all steps succeeded, result should not be partial")
	}
	if len(out.Steps) != 4 {
		t.Fatalf("steps = %d, want 4", len(out.Steps))
	}
	for _, s := range out.Steps[:3] {
		if s.Source != SourceSearchProvider {
			t.Errorf("step %s source = %q, want search provider", s.Step, s.Source)
		}
	}
	if out.TotalCostUSD < 0.26 || out.TotalCostUSD > 0.28 {
		t.Errorf("total cost = %f", out.TotalCostUSD)
	}
	if out.Brief.Avatar == nil || out.Brief.Avatar.Demographics["name"] != "Rachel" {
		t.Errorf("avatar = %+v", out.Brief.Avatar)
	}
}

func TestDeepRun_FallsBackWithoutSearchProvider(t *testing.T) {
	gen := &fakeStructured{responses: synthesisFallbacks()}

	out, err := NewDeepPipeline(nil, gen).Run(context.Background(), nil, "LumbarPro", "ergonomics", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, s := range out.Steps {
		if s.Status != StepComplete {
			t.Errorf("step %s = %s (%s)", s.Step, s.Status, s.Error)
		}
		if s.Source != SourceSynthesisFallback {
			t.Errorf("step %s source = %q, want synthesis fallback", s.Step, s.Source)
		}
	}
	if len(out.Brief.PainPoints) == 0 {
		t.Error("fallback evidence should populate pain points")
	}
}

func TestDeepRun_EvidenceStepFailuresAreNonFatal(t *testing.T) {
	// Both searches fail and so do their synthesis fallbacks; avatar and
	// angles still run and succeed.
	gen := &fakeStructured{
		responses: map[string]string{
			"avatar-building":  avatarJSON,
			"angle-generation": anglesJSON,
		},
		errs: map[string]error{
			"research-community-fallback": errors.New("provider down"),
			"research-reviews-fallback":   errors.New("provider down"),
		},
	}

	out, err := NewDeepPipeline(nil, gen).Run(context.Background(), nil, "LumbarPro", "", "")
	if err != nil {
		t.Fatalf("Run should not fail when avatar/angles succeed: %v", err)
	}
	if !out.Partial {
		t.Error("failed evidence steps should mark the result partial")
	}
	byStep := map[string]StepResult{}
	for _, s := range out.Steps {
		byStep[s.Step] = s
	}
	if byStep[StepCommunity].Status != StepFailed || byStep[StepReviews].Status != StepFailed {
		t.Error("evidence steps should be recorded as failed")
	}
	if byStep[StepAvatar].Status != StepComplete || byStep[StepAngles].Status != StepComplete {
		t.Error("avatar and angles should still complete")
	}
	if out.Brief.Avatar == nil || len(out.Brief.HookAngles) == 0 {
		t.Error("partial result should still carry avatar and hook angles")
	}
}

func TestDeepRun_AllStepsFailedReturnsPartialWithError(t *testing.T) {
	boom := errors.New("everything is down")
	gen := &fakeStructured{errs: map[string]error{
		"research-community-fallback": boom,
		"research-reviews-fallback":   boom,
		"avatar-building":             boom,
		"angle-generation":            boom,
	}}

	out, err := NewDeepPipeline(nil, gen).Run(context.Background(), nil, "LumbarPro", "", "")
	if err == nil {
		t.Fatal("expected an error when no step produced output")
	}
	if out == nil {
		t.Fatal("partial result must still be returned on overall failure")
	}
	if !out.Partial {
		t.Error("result should be tagged partial")
	}
	if len(out.Steps) != 4 {
		t.Errorf("steps = %d, want 4 recorded failures", len(out.Steps))
	}
}

func TestDeepRun_MergesAnalysisPainPoints(t *testing.T) {
	gen := &fakeStructured{responses: synthesisFallbacks()}
	analysis := &pipeline.ProductAnalysis{
		Name: "LumbarPro",
		TargetDemographic: pipeline.TargetDemographic{
			PainPoints: []string{"stiff hips after long drives"},
		},
	}

	out, err := NewDeepPipeline(nil, gen).Run(context.Background(), analysis, "", "", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !contains(out.Brief.PainPoints, "stiff hips after long drives") {
		t.Errorf("analysis pain points should merge into the brief: %v", out.Brief.PainPoints)
	}
}

func TestDeepRun_UnusableSearchContentFallsBack(t *testing.T) {
	search := &fakeSearcher{configured: true, responses: []*provider.SearchResult{
		{Content: "no recognizable structure at all", Model: "sonar"},
		{Content: "still nothing extractable", Model: "sonar"},
		{Content: "Her name is Rachel.", Model: "sonar-pro"},
		{Content: "hooks prose", Model: "sonar-reasoning-pro"},
	}}
	gen := &fakeStructured{responses: synthesisFallbacks()}

	out, err := NewDeepPipeline(search, gen).Run(context.Background(), nil, "LumbarPro", "", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	byStep := map[string]StepResult{}
	for _, s := range out.Steps {
		byStep[s.Step] = s
	}
	if byStep[StepCommunity].Source != SourceSynthesisFallback {
		t.Errorf("community step source = %q, want fallback when extraction finds nothing", byStep[StepCommunity].Source)
	}
}
