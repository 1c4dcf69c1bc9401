package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fpang/ugc-factory/internal/pipeline"
)

// Prompt is a system/user prompt pair ready to send to a text generator.
type Prompt struct {
	System string
	User   string
}

// Build maps a content type plus a context object to a prompt pair. Unknown
// content types fall back to the general template rather than erroring.
// Absent context fields are simply omitted from the user prompt; no
// placeholder text ever leaks into the output.
func Build(contentType pipeline.ContentType, ctx map[string]any, guidance string) Prompt {
	b, ok := registry[contentType]
	if !ok {
		b = registry[pipeline.ContentGeneral]
	}
	return Prompt{System: b.system, User: b.user(ctx, guidance)}
}

type builder struct {
	system string
	user   func(ctx map[string]any, guidance string) string
}

var registry = map[pipeline.ContentType]builder{
	pipeline.ContentDescription: {
		system: `You are a product copywriter. Write concise, benefit-focused product descriptions.
Keep it under 100 words. Focus on what makes the product valuable to the customer.
Don't use marketing fluff. Be specific and authentic.`,
		user: func(ctx map[string]any, guidance string) string {
			var w sectionWriter
			w.linef("Write a product description for: %s", strOr(ctx, "productName", "this product"))
			w.blank()
			w.labeled("Product info", str(ctx, "productInfo"))
			w.guidance(guidance)
			w.blank()
			w.line("Write 2-3 sentences. Focus on benefits, not features.")
			return w.String()
		},
	},

	pipeline.ContentAudience: {
		system: `You are a marketing strategist. Define target audiences with specificity.
Include demographics, psychographics, and pain points.
Be specific - vague audiences don't convert.`,
		user: func(ctx map[string]any, guidance string) string {
			var w sectionWriter
			w.linef("Define the target audience for: %s", strOr(ctx, "productName", "this product"))
			w.blank()
			w.labeled("Product", str(ctx, "productInfo"))
			w.labeled("Description", str(ctx, "productDescription"))
			w.guidance(guidance)
			w.blank()
			w.line("Format: Age range, gender (if relevant), key characteristics, pain points they have.")
			w.line("Keep it under 50 words but be specific.")
			return w.String()
		},
	},

	pipeline.ContentScript: {
		system: `You are a UGC ad script writer creating for TikTok/Instagram.

Write like a real person talking to camera - not an ad. Use:
- Conversational language (contractions, casual tone)
- Specific details from the research (real pain points, real language)
- Natural flow that sounds authentic
- A hook that stops the scroll
- One clear benefit/transformation
- Soft CTA

Target length: 30-60 seconds when read aloud (75-150 words).`,
		user: func(ctx map[string]any, guidance string) string {
			var w sectionWriter
			w.linef("Write a UGC ad script for: %s", strOr(ctx, "productName", "this product"))
			w.blank()
			w.labeled("Product", str(ctx, "productDescription"))
			w.labeled("Target audience", str(ctx, "targetAudience"))
			w.block("Research insights", ctx["research"])
			w.block("Product analysis", ctx["productAnalysis"])
			w.guidance(guidance)
			w.blank()
			w.line("Write a natural, conversational script that sounds like a real person discovered this product and wants to share it. Start with a hook that connects to a real pain point.")
			return w.String()
		},
	},

	pipeline.ContentHook: {
		system: `You are a hook specialist for UGC ads. Write scroll-stopping first lines.

Hooks should:
- Pattern interrupt or create curiosity
- Speak directly to a specific pain point
- Sound like a real person, not an ad
- Make them NEED to watch more
- Be under 10 words ideally`,
		user: func(ctx map[string]any, guidance string) string {
			var w sectionWriter
			w.linef("Write 5 hook options for a UGC ad about: %s", strOr(ctx, "productName", "this product"))
			w.blank()
			w.labeled("Audience", str(ctx, "targetAudience"))
			w.block("Pain points from research", nested(ctx, "research", "painPoints"))
			w.block("Language patterns", nested(ctx, "research", "languagePatterns"))
			w.guidance(guidance)
			w.blank()
			w.line("Give me 5 different hook angles. Each should feel like something a real person would say to their phone camera.")
			return w.String()
		},
	},

	pipeline.ContentCharacter: {
		system: `You are a creative director for AI image generation. Write prompts that generate realistic UGC-style photos.

Focus on:
- Natural, authentic poses (not model poses)
- Real-world settings with lived-in details
- Lighting that looks like phone/natural light
- Expressions that feel genuine
- Product integration that looks natural`,
		user: func(ctx map[string]any, guidance string) string {
			var w sectionWriter
			w.line("Create an image generation prompt for a UGC character.")
			w.blank()
			w.linef("Product: %s", strOr(ctx, "productName", "the product"))
			w.labeled("Description", str(ctx, "productDescription"))
			w.linef("Target audience: %s", strOr(ctx, "targetAudience", "general consumer"))
			w.linef("Camera view: %s", strOr(ctx, "cameraView", "selfie"))
			w.linef("Product position: %s", strOr(ctx, "productPosition", "holding"))
			w.linef("Setting: %s", strOr(ctx, "setting", "bedroom"))
			w.guidance(guidance)
			w.blank()
			w.line("Write a detailed prompt that would generate a realistic, authentic-looking UGC creator photo. Make them look like a real customer, not a model.")
			return w.String()
		},
	},

	pipeline.ContentBroll: {
		system: `You are a visual director for UGC ads. Describe B-roll scenes that PROVE script claims.
- Describe a single frozen moment (not motion)
- Include specific details about lighting, angle, environment
- Make it look like authentic iPhone footage
- Focus on product visibility`,
		user: func(ctx map[string]any, guidance string) string {
			var w sectionWriter
			w.line("Describe a B-roll image for this script line:")
			w.blank()
			line := str(ctx, "scriptLine")
			if line == "" {
				line = str(ctx, "currentValue")
			}
			w.linef("%q", line)
			w.blank()
			w.labeled("Product", str(ctx, "productInfo"))
			w.guidance(guidance)
			w.blank()
			w.line("Describe a single image that visually proves this claim. One paragraph.")
			return w.String()
		},
	},

	pipeline.ContentSegment: {
		system: `You are a UGC script editor. Write or improve individual script segments.
- Keep natural conversational tone
- Each segment should be 5-8 seconds when spoken
- Make sure it flows naturally`,
		user: func(ctx map[string]any, guidance string) string {
			improve := str(ctx, "action") == "improve"
			var w sectionWriter
			if improve {
				w.line("Improve this segment for a UGC ad.")
			} else {
				w.line("Write a segment for a UGC ad.")
			}
			w.blank()
			if cur := str(ctx, "currentValue"); cur != "" {
				w.linef("Current: %q", cur)
			}
			if prev := str(ctx, "previousSegment"); prev != "" {
				w.linef("Previous segment: %q", prev)
			}
			w.labeled("Purpose", str(ctx, "segmentPurpose"))
			w.guidance(guidance)
			w.blank()
			if improve {
				w.line("Rewrite to be more engaging and natural.")
			} else {
				w.line("Write a 5-8 second segment.")
			}
			return w.String()
		},
	},

	pipeline.ContentRefine: {
		system: `You are refining existing content. Make targeted improvements while keeping the core message.
- Maintain the original intent
- Improve clarity, engagement, or naturalness as requested
- Keep similar length unless asked to change`,
		user: func(ctx map[string]any, guidance string) string {
			var w sectionWriter
			w.line("Refine this content:")
			w.blank()
			w.linef("%q", str(ctx, "currentValue"))
			w.blank()
			if guidance != "" {
				w.linef("Changes requested: %s", guidance)
			} else {
				w.line("Make it better - more natural, more engaging.")
			}
			w.blank()
			w.line("Provide the improved version only.")
			return w.String()
		},
	},

	pipeline.ContentGeneral: {
		system: `You are a helpful assistant for UGC ad creation.
Be concise and practical. Focus on what converts.`,
		user: func(ctx map[string]any, guidance string) string {
			var w sectionWriter
			w.line(strOr(ctx, "task", "Help me with this"))
			w.blank()
			w.labeled("Current content", str(ctx, "currentValue"))
			w.guidance(guidance)
			w.blank()
			w.line("Be concise.")
			return w.String()
		},
	},
}

// --- context access helpers ---

// str returns ctx[key] as a string, or "" when absent or not string-like.
// Slices and maps are rendered as indented JSON so research structures can be
// passed straight through as context values.
func str(ctx map[string]any, key string) string {
	if ctx == nil {
		return ""
	}
	return render(ctx[key])
}

// strOr is str with a default for the absent case.
func strOr(ctx map[string]any, key, def string) string {
	if s := str(ctx, key); s != "" {
		return s
	}
	return def
}

// nested looks up ctx[outer][inner], tolerating both map[string]any context
// values and typed structs (via JSON round-trip).
func nested(ctx map[string]any, outer, inner string) any {
	if ctx == nil {
		return nil
	}
	v, ok := ctx[outer]
	if !ok || v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		// Re-shape typed values (e.g. *pipeline.ResearchBrief) through JSON.
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil
		}
	}
	return m[inner]
}

// render converts a context value to prompt text. Nil renders empty;
// composites render as indented JSON.
func render(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return ""
		}
		s := string(data)
		if s == "null" || s == "{}" || s == "[]" {
			return ""
		}
		return s
	}
}

// sectionWriter accumulates user-prompt lines, skipping empty sections so
// absent context never leaves placeholder artifacts behind. Consecutive
// blank separators collapse to one.
type sectionWriter struct {
	lines []string
}

func (w *sectionWriter) line(s string) {
	w.lines = append(w.lines, s)
}

func (w *sectionWriter) linef(format string, args ...any) {
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func (w *sectionWriter) blank() {
	if n := len(w.lines); n > 0 && w.lines[n-1] != "" {
		w.lines = append(w.lines, "")
	}
}

// labeled writes "Label: value" and skips the line entirely when the value
// is empty.
func (w *sectionWriter) labeled(label, value string) {
	if value == "" {
		return
	}
	w.linef("%s: %s", label, value)
}

// block writes a labeled multi-line block ("Label:\n<json>"), skipping absent
// values.
func (w *sectionWriter) block(label string, v any) {
	s := render(v)
	if s == "" {
		return
	}
	w.blank()
	w.linef("%s:", label)
	w.line(s)
}

// guidance appends the optional free-text user guidance section.
func (w *sectionWriter) guidance(g string) {
	if g == "" {
		return
	}
	w.blank()
	w.linef("Guidance: %s", g)
}

func (w *sectionWriter) String() string {
	return strings.TrimSpace(strings.Join(w.lines, "\n"))
}
