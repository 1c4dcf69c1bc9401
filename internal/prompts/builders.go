package prompts

import (
	"fmt"
	"strings"

	"github.com/fpang/ugc-factory/internal/pipeline"
)

// CameraView distinguishes selfie-style from third-person framing.
type CameraView string

const (
	ViewSelfie      CameraView = "selfie"
	ViewThirdPerson CameraView = "third-person"
)

// CharacterContext carries the framing choices for character and A-roll
// prompt building.
type CharacterContext struct {
	TargetAudience  string
	CameraView      CameraView
	ProductPosition string // "holding" or "wearing"
	Setting         string
	Accent          string
}

// CharacterUserPrompt builds the user half of the character image prompt
// request. It is paired with CharacterSystemPrompt.
func CharacterUserPrompt(product *pipeline.ProductAnalysis, cc CharacterContext) string {
	setting := cc.Setting
	if setting == "" {
		setting = "home"
	}

	camera := "Third-person shot (filmed by someone else with phone)"
	if cc.CameraView == ViewSelfie {
		camera = "Front-facing iPhone selfie (subject holding phone)"
	}

	var b strings.Builder
	b.WriteString("Create a hyper-realistic UGC character prompt for:\n\n")
	b.WriteString(ProductContext(product))
	fmt.Fprintf(&b, "\n\nTARGET AUDIENCE: %s\n", cc.TargetAudience)
	b.WriteString("\nFRAMING:\n")
	fmt.Fprintf(&b, "- Camera: %s\n", camera)
	fmt.Fprintf(&b, "- Product: Subject is %s the product\n", cc.ProductPosition)
	fmt.Fprintf(&b, "- Setting: %s\n", setting)
	b.WriteString("\nThe attached product image must be referenced exactly in the prompt. Generate a prompt that will create an image looking like authentic UGC content from a real person.\n")
	b.WriteString("\nRemember: This should look like something you'd see scrolling TikTok - NOT a professional ad.")
	return b.String()
}

// ProductContext flattens a product analysis into the context block shared by
// several builders. Falls back to name-only when the analysis is sparse.
func ProductContext(product *pipeline.ProductAnalysis) string {
	if product == nil {
		return "PRODUCT: (unknown)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "PRODUCT: %s", product.Name)

	if product.Category != "" {
		fmt.Fprintf(&b, "\nCategory: %s", product.Category)
		if product.Subcategory != "" {
			fmt.Fprintf(&b, " > %s", product.Subcategory)
		}
	}

	vf := product.VisualFeatures
	if len(vf.Colors) > 0 {
		fmt.Fprintf(&b, "\nColors: %s", strings.Join(vf.Colors, ", "))
	}
	if len(vf.Materials) > 0 {
		fmt.Fprintf(&b, "\nMaterials: %s", strings.Join(vf.Materials, ", "))
	}
	if vf.DesignStyle != "" {
		fmt.Fprintf(&b, "\nDesign: %s", vf.DesignStyle)
	}

	if len(product.Features) > 0 {
		fmt.Fprintf(&b, "\nKey Features: %s", strings.Join(product.Features, "; "))
	}
	if product.Benefits.Primary != "" {
		fmt.Fprintf(&b, "\nPrimary Benefit: %s", product.Benefits.Primary)
	}
	if len(product.Benefits.Secondary) > 0 {
		fmt.Fprintf(&b, "\nSecondary Benefits: %s", strings.Join(product.Benefits.Secondary, "; "))
	}
	if len(product.Benefits.Emotional) > 0 {
		fmt.Fprintf(&b, "\nEmotional Benefits: %s", strings.Join(product.Benefits.Emotional, "; "))
	}
	if product.ProblemSolved != "" {
		fmt.Fprintf(&b, "\nProblem Solved: %s", product.ProblemSolved)
	}
	if product.Positioning.USP != "" {
		fmt.Fprintf(&b, "\nUSP: %s", product.Positioning.USP)
	}

	return b.String()
}

// VeoUserPrompt builds the animation prompt request for one A-roll dialogue
// segment. Paired with VeoSystemPrompt.
func VeoUserPrompt(segment pipeline.ScriptSegment, cc CharacterContext) string {
	accent := cc.Accent
	if accent == "" {
		accent = "neutral American"
	}
	position := "Subject is wearing the product"
	if cc.ProductPosition == "holding" {
		position = "Subject is holding the product"
	}

	var b strings.Builder
	b.WriteString("Generate a Veo 3.1 prompt for this dialogue segment:\n\n")
	fmt.Fprintf(&b, "DIALOGUE: %q\n", segment.Text)
	fmt.Fprintf(&b, "CAMERA VIEW: %s\n", cc.CameraView)
	fmt.Fprintf(&b, "PRODUCT POSITION: %s\n", position)
	fmt.Fprintf(&b, "ACCENT: %s\n", accent)
	fmt.Fprintf(&b, "SEGMENT TYPE: %s\n", segment.Type)
	b.WriteString("\nCreate a single-paragraph prompt starting with the subject speaking.")
	return b.String()
}

// BrollUserPrompt builds the still-image prompt request for one B-roll
// segment. Paired with BrollSystemPrompt.
func BrollUserPrompt(segment pipeline.ScriptSegment, product *pipeline.ProductAnalysis) string {
	var b strings.Builder
	b.WriteString("Create a B-roll image prompt for this script segment:\n\n")
	fmt.Fprintf(&b, "SCRIPT LINE: %q\n", segment.Text)
	fmt.Fprintf(&b, "SEGMENT TYPE: %s\n\n", segment.Type)
	if product != nil {
		fmt.Fprintf(&b, "PRODUCT: %s\n", product.Name)
		if product.ProblemSolved != "" {
			fmt.Fprintf(&b, "%s\n", product.ProblemSolved)
		}
		if product.Category != "" {
			fmt.Fprintf(&b, "PRODUCT TYPE: %s (%s)\n", product.Category, usageOr(product, "holdable"))
		}
	}
	b.WriteString("\nThe image should VISUALLY PROVE the claim in the script line.\n")
	b.WriteString("Use iPhone UGC aesthetic. Real textures. Natural lighting.\n")
	b.WriteString("The subject/hands should match the A-roll character reference.")
	return b.String()
}

func usageOr(product *pipeline.ProductAnalysis, def string) string {
	if product.Usage != "" {
		return product.Usage
	}
	return def
}

// KlingUserPrompt builds the motion-direction prompt for animating one
// B-roll image. Paired with KlingSystemPrompt. The image prompt is supplied
// as context only; the system prompt forbids redescribing it.
func KlingUserPrompt(imagePrompt string, segment pipeline.ScriptSegment) string {
	var b strings.Builder
	b.WriteString("Create a Kling animation prompt for this B-roll image:\n\n")
	fmt.Fprintf(&b, "B-ROLL IMAGE CONTEXT (don't redescribe this, just know what's there): %s\n\n", imagePrompt)
	fmt.Fprintf(&b, "CORRESPONDING SCRIPT LINE: %q\n\n", segment.Text)
	b.WriteString("IMPORTANT: Only describe MOTION. Kling already sees the image.\n")
	b.WriteString("Include:\n")
	b.WriteString("- What moves and how fast (use words like \"slowly\", \"briskly\")\n")
	b.WriteString("- Camera movement with position (\"tracking from side at 6ft\")\n")
	b.WriteString("- Where the motion settles at the end\n\n")
	b.WriteString("The motion should enhance/prove the script claim.\n")
	b.WriteString("Single flowing paragraph. Motion instructions only.")
	return b.String()
}

// ChunkUserPrompt builds the script segmentation request. Paired with
// ScriptChunkSystemPrompt.
func ChunkUserPrompt(fullScript string) string {
	return fmt.Sprintf("Split this UGC ad script into 5-8 second segments:\n\n%q\n\nRemember: NEVER break mid-sentence. Natural pauses only.", fullScript)
}
