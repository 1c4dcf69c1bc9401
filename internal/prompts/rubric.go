package prompts

import (
	"fmt"
	"strings"

	"github.com/fpang/ugc-factory/internal/pipeline"
)

// Purpose tells the quality rubric which acceptance profile applies.
type Purpose string

const (
	PurposeCharacter Purpose = "character"
	PurposeBroll     Purpose = "broll"
	PurposeGeneral   Purpose = "general"
)

// Threshold returns the acceptance score for a purpose: 75 for b-roll,
// 80 for character and general images.
func (p Purpose) Threshold() int {
	if p == PurposeBroll {
		return 75
	}
	return 80
}

// QCUserPrompt builds the vision-analysis request used to score a generated
// image against its originating prompt. Paired with QCSystemPrompt.
func QCUserPrompt(originalPrompt string, purpose Purpose, segmentType pipeline.SegmentType) string {
	seg := string(segmentType)
	if seg == "" {
		seg = "general"
	}

	var b strings.Builder
	b.WriteString("Analyze this AI-generated image for authenticity issues.\n\n")
	fmt.Fprintf(&b, "ORIGINAL PROMPT: %s\n\n", originalPrompt)
	fmt.Fprintf(&b, "CONTEXT: %s (%s)\n\n", purpose, seg)
	b.WriteString("Check if this could pass as authentic iPhone UGC content.\n")
	b.WriteString("Return JSON with score, specific issues, and exact prompt modifications to fix each issue.\n\n")
	fmt.Fprintf(&b, `{
  "score": 0-100,
  "passed": true/false (threshold: %d),
  "issues": [
    { "issue": "...", "severity": "high/medium/low", "location": "..." }
  ],
  "regenerate": true/false,
  "adjustedPrompt": "full corrected prompt if regeneration needed"
}`, purpose.Threshold())
	return b.String()
}

// CorrectionUserPrompt builds the prompt-repair request from a failed
// assessment's issue list. Paired with CorrectionSystemPrompt and sent to
// the cheaper iteration model.
func CorrectionUserPrompt(originalPrompt string, issues []pipeline.Issue) string {
	var b strings.Builder
	b.WriteString("Fix this image generation prompt based on quality issues found:\n\n")
	b.WriteString("ORIGINAL PROMPT:\n")
	b.WriteString(originalPrompt)
	b.WriteString("\n\nISSUES FOUND:\n")
	for _, issue := range issues {
		fmt.Fprintf(&b, "- %s (%s)\n", issue.Issue, issue.Severity)
	}
	b.WriteString("\nGenerate a corrected prompt that addresses ALL issues while maintaining the original intent.\n")
	b.WriteString("Focus on adding anti-AI-gloss modifiers and natural imperfections.")
	return b.String()
}
