package jsonutil

import (
	"strings"
	"testing"

	"github.com/fpang/ugc-factory/internal/pipeline"
)

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n[1, 2]\n```", `[1, 2]`},
		{"no fence", `{"a": 1}`, `{"a": 1}`},
		{"leading whitespace", "  \n```json\n{}\n```", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdownFences(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	raw := `Here's the scored assessment you asked for:

{"score": 8, "passed": true}

Let me know if you need anything else.`
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got != `{"score": 8, "passed": true}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractJSON_PrefersEarlierStart(t *testing.T) {
	got, err := ExtractJSON(`[{"index": 0}, {"index": 1}]`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "[") || !strings.HasSuffix(got, "]") {
		t.Errorf("array not extracted whole: %q", got)
	}
}

func TestExtractJSON_NoContent(t *testing.T) {
	if _, err := ExtractJSON("I could not produce a structured answer."); err == nil {
		t.Error("expected an error for prose with no JSON")
	}
}

func TestParseJSON_FencedObject(t *testing.T) {
	type assessment struct {
		Score  int  `json:"score"`
		Passed bool `json:"passed"`
	}
	got, err := ParseJSON[assessment]("score-image", "```json\n{\"score\": 7, \"passed\": false}\n```")
	if err != nil {
		t.Fatal(err)
	}
	if got.Score != 7 || got.Passed {
		t.Errorf("got %+v", got)
	}
}

func TestParseJSON_InvalidJSONIsParseKind(t *testing.T) {
	_, err := ParseJSON[map[string]any]("chunk-script", "```json\n{broken\n```")
	if err == nil {
		t.Fatal("expected error")
	}
	if !pipeline.IsParse(err) {
		t.Errorf("error not tagged as parse: %v", err)
	}
	if !strings.Contains(err.Error(), "chunk-script") {
		t.Errorf("operation missing from error: %v", err)
	}
}

func TestParseJSON_NoJSONIsParseKind(t *testing.T) {
	_, err := ParseJSON[map[string]any]("synthesize-research", "no structure here")
	if !pipeline.IsParse(err) {
		t.Errorf("error not tagged as parse: %v", err)
	}
}
