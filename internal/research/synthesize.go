// Package research turns a product analysis and raw supporting material into
// a structured customer ResearchBrief. Two modes exist: a single large
// structured-output call (Synthesizer), and a four-step deep pipeline backed
// by a search provider with per-step fallback (DeepPipeline).
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/jsonutil"
	"github.com/fpang/ugc-factory/internal/metrics"
	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/prompts"
	"github.com/fpang/ugc-factory/internal/provider"
)

// Per-document truncation budget and document count cap for the evidence
// block, keeping the synthesis call inside model context limits.
const (
	maxDocChars = 8000
	maxDocs     = 5
)

// Synthesizer produces a complete ResearchBrief in one structured call.
type Synthesizer struct {
	gen provider.StructuredGenerator
}

func NewSynthesizer(gen provider.StructuredGenerator) *Synthesizer {
	return &Synthesizer{gen: gen}
}

// Synthesize concatenates the product analysis, up to five supporting
// documents (each truncated to 8,000 characters), and the audience hint into
// one evidence block, then asks for the full brief in a single call.
//
// There is no partial-credit extraction here: if the model's output does not
// parse as the expected shape the whole synthesis fails and the caller
// decides whether to retry.
func (s *Synthesizer) Synthesize(ctx context.Context, analysis *pipeline.ProductAnalysis, supportingDocs []string, audienceHint string) (*pipeline.ResearchBrief, error) {
	start := time.Now()

	res, err := s.gen.GenerateStructured(ctx, prompts.ResearchSynthesisSystemPrompt,
		buildEvidenceBlock(analysis, supportingDocs, audienceHint),
		provider.GenOptions{Task: "research-synthesis", MaxTokens: 16384})
	if err != nil {
		return nil, fmt.Errorf("research synthesis call: %w", err)
	}

	brief, perr := jsonutil.ParseJSON[pipeline.ResearchBrief]("research.synthesize", res.Text)
	if perr != nil {
		return nil, perr
	}

	metrics.ForOperation("researchSynthesis").
		Metric("SynthesisDurationMs", float64(time.Since(start).Milliseconds()), metrics.UnitMilliseconds).
		Metric("PainPoints", float64(len(brief.PainPoints)), metrics.UnitCount).
		Metric("HookAngles", float64(len(brief.HookAngles)), metrics.UnitCount).
		Flush()

	log.Info().
		Int("painPoints", len(brief.PainPoints)).
		Int("hookAngles", len(brief.HookAngles)).
		Int("languagePatterns", len(brief.LanguagePatterns)).
		Dur("duration", time.Since(start)).
		Msg("Research brief synthesized")
	return &brief, nil
}

// buildEvidenceBlock assembles everything we know into one labeled text
// block. Sections with no content are omitted entirely.
func buildEvidenceBlock(analysis *pipeline.ProductAnalysis, supportingDocs []string, audienceHint string) string {
	var b strings.Builder

	if analysis != nil {
		b.WriteString("PRODUCT ANALYSIS:\n")
		if raw, err := json.MarshalIndent(analysis, "", "  "); err == nil {
			b.Write(raw)
		}
		b.WriteString("\n\n")
	}

	docs := supportingDocs
	if len(docs) > maxDocs {
		log.Warn().Int("provided", len(docs)).Int("used", maxDocs).
			Msg("Truncating supporting document list")
		docs = docs[:maxDocs]
	}
	for i, doc := range docs {
		doc = strings.TrimSpace(doc)
		if doc == "" {
			continue
		}
		doc = truncateDoc(doc, maxDocChars)
		fmt.Fprintf(&b, "SUPPORTING DOCUMENT %d:\n%s\n\n", i+1, doc)
	}

	if audienceHint != "" {
		fmt.Fprintf(&b, "TARGET AUDIENCE:\n%s\n\n", audienceHint)
	}

	b.WriteString("Synthesize the research brief from the evidence above.")
	return b.String()
}

// truncateDoc cuts a document to at most max bytes without splitting a
// multi-byte rune at the boundary.
func truncateDoc(doc string, max int) string {
	if len(doc) <= max {
		return doc
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(doc[cut]) {
		cut--
	}
	return doc[:cut]
}
