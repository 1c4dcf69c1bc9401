package research

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/provider"
)

// fakeStructured scripts responses per task label.
type fakeStructured struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (f *fakeStructured) GenerateStructured(_ context.Context, _, user string, opts provider.GenOptions) (*provider.TextResult, error) {
	f.calls = append(f.calls, opts.Task)
	if err, ok := f.errs[opts.Task]; ok {
		return nil, err
	}
	if resp, ok := f.responses[opts.Task]; ok {
		return &provider.TextResult{Text: resp, Model: "fake-model"}, nil
	}
	return nil, errors.New("unscripted task: " + opts.Task + "\n" + user)
}

const briefJSON = `{
  "customerAvatar": {"demographics": {"name": "Rachel", "age": "34"}},
  "painPoints": ["back pain when sitting", "cushions that flatten"],
  "purchaseTriggers": ["PT recommendation"],
  "objections": ["might slide around"],
  "languagePatterns": ["my back is killing me"],
  "transformation": {"before": ["dreading mornings"], "after": ["pain-free meetings"]},
  "hookAngles": [{"angle": "problem", "hookLine": "POV: it is 2pm and your back is done", "whyItWorks": "instant recognition"}]
}`

func TestSynthesize_ParsesBrief(t *testing.T) {
	gen := &fakeStructured{responses: map[string]string{
		"research-synthesis": "```json\n" + briefJSON + "\n```",
	}}
	s := NewSynthesizer(gen)

	brief, err := s.Synthesize(context.Background(),
		&pipeline.ProductAnalysis{Name: "LumbarPro", Category: "ergonomics"},
		[]string{"supporting doc text"}, "desk workers")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(brief.PainPoints) != 2 {
		t.Errorf("pain points = %v", brief.PainPoints)
	}
	if brief.Avatar == nil || brief.Avatar.Demographics["name"] != "Rachel" {
		t.Errorf("avatar = %+v", brief.Avatar)
	}
	if len(brief.HookAngles) != 1 || brief.HookAngles[0].HookLine == "" {
		t.Errorf("hook angles = %+v", brief.HookAngles)
	}
}

func TestSynthesize_ParseFailureIsFatal(t *testing.T) {
	gen := &fakeStructured{responses: map[string]string{
		"research-synthesis": "I could not produce the requested research.",
	}}
	s := NewSynthesizer(gen)

	_, err := s.Synthesize(context.Background(), &pipeline.ProductAnalysis{Name: "X"}, nil, "")
	if err == nil {
		t.Fatal("expected parse failure to be fatal")
	}
	if !pipeline.IsParse(err) {
		t.Errorf("error kind = %v, want parse", pipeline.KindOf(err))
	}
}

func TestBuildEvidenceBlock_TruncatesDocuments(t *testing.T) {
	longDoc := strings.Repeat("a", maxDocChars+500)
	docs := []string{longDoc, "short", "d3", "d4", "d5", "an excluded sixth document"}

	block := buildEvidenceBlock(&pipeline.ProductAnalysis{Name: "LumbarPro"}, docs, "desk workers")

	if strings.Contains(block, "excluded sixth document") {
		t.Error("evidence block should cap at five documents")
	}
	if strings.Count(block, "a") > maxDocChars+100 {
		t.Error("long document should be truncated to the per-document budget")
	}
	if !strings.Contains(block, "TARGET AUDIENCE:\ndesk workers") {
		t.Error("audience hint missing from evidence block")
	}
	if !strings.Contains(block, "LumbarPro") {
		t.Error("product analysis missing from evidence block")
	}
}

func TestTruncateDoc_KeepsRuneBoundaries(t *testing.T) {
	// Budget boundary lands mid-rune: the cut backs off to the previous
	// rune start instead of emitting a broken byte sequence.
	doc := strings.Repeat("б", 100) // 2 bytes each
	got := truncateDoc(doc, 99)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated doc is not valid UTF-8: %q", got[len(got)-4:])
	}
	if len(got) != 98 {
		t.Errorf("len = %d, want 98 (rune boundary below the 99-byte budget)", len(got))
	}

	if got := truncateDoc("short", 99); got != "short" {
		t.Errorf("doc under budget changed: %q", got)
	}
	if got := truncateDoc(strings.Repeat("x", 10), 10); got != strings.Repeat("x", 10) {
		t.Errorf("doc at exact budget changed: %q", got)
	}
}

func TestBuildEvidenceBlock_MultiByteDocStaysValid(t *testing.T) {
	longDoc := strings.Repeat("痛みが辛い", maxDocChars/5)
	block := buildEvidenceBlock(nil, []string{longDoc}, "")
	if !utf8.ValidString(block) {
		t.Error("evidence block contains a split rune")
	}
}

func TestBuildEvidenceBlock_OmitsEmptySections(t *testing.T) {
	block := buildEvidenceBlock(nil, nil, "")
	if strings.Contains(block, "PRODUCT ANALYSIS") || strings.Contains(block, "TARGET AUDIENCE") {
		t.Errorf("empty sections should be omitted:\n%s", block)
	}
}
