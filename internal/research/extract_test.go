package research

import (
	"fmt"
	"strings"
	"testing"
)

const sampleResearch = `# Community Research: LumbarPro Seat Cushion

## Pain Points and Frustrations
- Lower back pain when sitting for more than an hour
- "my back is killing me by 2pm every single day"
- Office chairs with zero lumbar support
- Foam cushions that flatten within weeks

## What Customers Love
- Instant relief within the first day of use
- "I can finally get through a full workday"
- Holds its shape after months of daily use

## Common Questions People Ask
- Does it work on mesh office chairs?
- How long until I feel a difference?

## Objections and Concerns
- Worried it will slide around on the chair
- Price feels high compared to generic cushions

## Language Patterns
- "sitting all day is destroying my back"
- "I've tried everything"

## What Made Them Buy
- Physical therapist recommended trying a cushion first
- A coworker would not stop talking about hers

## Before and After
- Dreading every workday morning
- Constant shifting and standing breaks

### After
- Sitting through meetings without noticing
- Energy left over after work
`

func TestExtractEvidence_Sections(t *testing.T) {
	ev := ExtractEvidence(sampleResearch)

	if len(ev.PainPoints) != 4 {
		t.Errorf("pain points = %d, want 4: %v", len(ev.PainPoints), ev.PainPoints)
	}
	if ev.PainPoints[0] != "Lower back pain when sitting for more than an hour" {
		t.Errorf("first pain point = %q", ev.PainPoints[0])
	}
	if len(ev.Praises) != 3 {
		t.Errorf("praises = %d, want 3: %v", len(ev.Praises), ev.Praises)
	}
	if len(ev.Questions) != 2 {
		t.Errorf("questions = %d, want 2: %v", len(ev.Questions), ev.Questions)
	}
	if len(ev.Objections) != 2 {
		t.Errorf("objections = %d, want 2: %v", len(ev.Objections), ev.Objections)
	}
	if len(ev.PurchaseTriggers) != 2 {
		t.Errorf("purchase triggers = %d, want 2: %v", len(ev.PurchaseTriggers), ev.PurchaseTriggers)
	}
}

func TestExtractEvidence_QuotesBecomeLanguagePatterns(t *testing.T) {
	ev := ExtractEvidence(sampleResearch)

	for _, want := range []string{
		"my back is killing me by 2pm every single day",
		"sitting all day is destroying my back",
		"I've tried everything",
	} {
		if !contains(ev.LanguagePatterns, want) {
			t.Errorf("language patterns missing %q: %v", want, ev.LanguagePatterns)
		}
	}
}

func TestExtractEvidence_Transformation(t *testing.T) {
	ev := ExtractEvidence(sampleResearch)

	if len(ev.Transformation.Before) != 2 {
		t.Errorf("before arm = %v", ev.Transformation.Before)
	}
	if len(ev.Transformation.After) != 2 {
		t.Errorf("after arm = %v", ev.Transformation.After)
	}
	if ev.Transformation.After[0] != "Sitting through meetings without noticing" {
		t.Errorf("after[0] = %q", ev.Transformation.After[0])
	}
}

func TestExtractEvidence_CapsLists(t *testing.T) {
	var b strings.Builder
	b.WriteString("Pain Points:\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "- distinct complaint number %d about the product\n", i)
	}
	ev := ExtractEvidence(b.String())

	if len(ev.PainPoints) != maxItemsPerSection {
		t.Errorf("pain points = %d, want capped at %d", len(ev.PainPoints), maxItemsPerSection)
	}
}

func TestExtractEvidence_QuoteCapAndDedup(t *testing.T) {
	var b strings.Builder
	b.WriteString("Language patterns people use:\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "They say \"unique customer phrase number %d\" a lot.\n", i)
	}
	b.WriteString("They say \"unique customer phrase number 0\" a lot.\n")
	ev := ExtractEvidence(b.String())

	if len(ev.LanguagePatterns) != maxLanguagePatterns {
		t.Errorf("language patterns = %d, want capped at %d", len(ev.LanguagePatterns), maxLanguagePatterns)
	}
	seen := map[string]int{}
	for _, p := range ev.LanguagePatterns {
		seen[p]++
		if seen[p] > 1 {
			t.Errorf("duplicate pattern %q", p)
		}
	}
}

func TestExtractEvidence_IgnoresUnsectionedBullets(t *testing.T) {
	ev := ExtractEvidence("Random preamble.\n- a bullet before any recognized header\n")
	if !ev.Empty() {
		t.Errorf("expected empty evidence, got %+v", ev)
	}
}

func TestExtractQuotes_LengthBounds(t *testing.T) {
	content := `"ok"  "this one is long enough" "` + strings.Repeat("x", 150) + `"`
	quotes := ExtractQuotes(content, 0)
	if len(quotes) != 1 || quotes[0] != "this one is long enough" {
		t.Errorf("quotes = %v", quotes)
	}
}

func TestExtractAvatar_FromNarrative(t *testing.T) {
	content := `Meet the customer. Her name is Rachel, 34 years old, and she lives in Austin.
She works as a paralegal and earns $68,000.

Her values
- family time
- doing things properly

Her fears
- chronic pain getting worse

The problem as she experiences it:
Every afternoon her lower back seizes up and she loses an hour of focus to the ache.

A typical day
She commutes forty minutes each way and spends nine hours at a desk before the evening school run.
`
	avatar := ExtractAvatar(content, "desk workers")

	if avatar.Demographics["name"] != "Rachel" {
		t.Errorf("name = %q", avatar.Demographics["name"])
	}
	if avatar.Demographics["age"] != "34" {
		t.Errorf("age = %q", avatar.Demographics["age"])
	}
	if avatar.Demographics["occupation"] == "working professional" {
		t.Error("occupation should be extracted, not the fallback")
	}
	if len(avatar.Psychographics["values"]) != 2 {
		t.Errorf("values = %v", avatar.Psychographics["values"])
	}
	if avatar.Problem["experience"] == "" {
		t.Error("expected a problem paragraph")
	}
	if avatar.DayInLife == "" {
		t.Error("expected a day-in-life paragraph")
	}
	if avatar.Demographics["audience"] != "desk workers" {
		t.Errorf("audience = %q", avatar.Demographics["audience"])
	}
}

func TestExtractAvatar_FallbacksWhenSparse(t *testing.T) {
	avatar := ExtractAvatar("Nothing useful here.", "")
	if avatar.Demographics["name"] == "" || avatar.Demographics["age"] == "" {
		t.Error("sparse input should still yield placeholder demographics")
	}
}
