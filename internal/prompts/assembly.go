package prompts

import (
	"fmt"
	"strings"

	"github.com/fpang/ugc-factory/internal/pipeline"
)

// AssemblyUserPrompt builds the editing-plan analysis request. Paired with
// AssemblySystemPrompt; the clip frames are attached as labeled images in the
// same call.
func AssemblyUserPrompt(segments []pipeline.ScriptSegment, product *pipeline.ProductAnalysis, arollClips, brollClips int, hasVoiceover bool) string {
	var b strings.Builder
	b.WriteString("Analyze these generated clips and produce the editing plan.\n\n")

	b.WriteString("SCRIPT:\n")
	for _, seg := range segments {
		marker := ""
		if seg.Type == pipeline.SegmentHook {
			marker = " [HOOK]"
		}
		fmt.Fprintf(&b, "%d. (%s, ~%.0fs)%s %s\n", seg.Index, seg.Type, seg.DurationSeconds, marker, seg.Text)
	}

	if product != nil {
		fmt.Fprintf(&b, "\nPRODUCT: %s\n", product.Name)
		if product.ProblemSolved != "" {
			fmt.Fprintf(&b, "Solves: %s\n", product.ProblemSolved)
		}
	}

	b.WriteString("\nAVAILABLE ASSETS:\n")
	fmt.Fprintf(&b, "- %d A-roll clip(s) (character speaking to camera)\n", arollClips)
	fmt.Fprintf(&b, "- %d B-roll clip(s) (product proof shots)\n", brollClips)
	if hasVoiceover {
		b.WriteString("- separately recorded voiceover track\n")
	} else {
		b.WriteString("- no separate voiceover; A-roll native audio carries the dialogue\n")
	}

	b.WriteString("\nThe attached frames are labeled per clip, in the order listed above.")
	return b.String()
}

// TimelineUserPrompt asks the cheap tier to compress an editing plan into a
// bracket-notation timeline, e.g. [0:00-0:03] A-ROLL 1 (Hook).
func TimelineUserPrompt(guide string, segments []pipeline.ScriptSegment) string {
	var b strings.Builder
	b.WriteString("Extract a simple timeline from this editing plan.\n\n")
	b.WriteString("EDITING PLAN:\n")
	b.WriteString(guide)
	fmt.Fprintf(&b, "\n\nThe script has %d segments.\n", len(segments))
	b.WriteString("\nOutput ONLY the timeline, one line per clip, in this exact format:\n")
	b.WriteString("[0:00-0:03] A-ROLL 1 (Hook)\n")
	b.WriteString("[0:03-0:06] B-ROLL 2 (overlay, voiceover continues)\n")
	b.WriteString("No commentary before or after.")
	return b.String()
}
