package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/jsonutil"
	"github.com/fpang/ugc-factory/internal/metrics"
	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/provider"
)

// Step names, in pipeline order.
const (
	StepCommunity = "community"
	StepReviews   = "reviews"
	StepAvatar    = "avatar"
	StepAngles    = "angles"
)

// Provenance values recorded per step.
const (
	SourceSearchProvider    = "search-provider"
	SourceSynthesisFallback = "synthesis-fallback"
)

// StepStatus is the terminal state of one pipeline step.
type StepStatus string

const (
	StepComplete StepStatus = "complete"
	StepFailed   StepStatus = "failed"
)

// StepResult records one step's outcome for observability: which path
// produced it, what it cost, and how long it took.
type StepResult struct {
	Step     string        `json:"step"`
	Status   StepStatus    `json:"status"`
	Source   string        `json:"source,omitempty"`
	Model    string        `json:"model,omitempty"`
	Error    string        `json:"error,omitempty"`
	CostUSD  float64       `json:"costUsd,omitempty"`
	Duration time.Duration `json:"-"`
}

// DeepResult is the multi-step pipeline's output: the assembled brief plus
// per-step accounting. Partial is true when at least one step failed; the
// brief still carries whatever the surviving steps produced.
type DeepResult struct {
	Brief        *pipeline.ResearchBrief `json:"research"`
	Steps        []StepResult            `json:"steps"`
	Partial      bool                    `json:"partial,omitempty"`
	TotalCostUSD float64                 `json:"totalCostUsd"`
}

// Complete reports whether the pipeline produced some usable output.
func (r *DeepResult) Complete() bool {
	return r.Brief != nil && (len(r.Brief.PainPoints) > 0 || r.Brief.Avatar != nil || len(r.Brief.HookAngles) > 0)
}

// DeepPipeline runs the four-step research flow: community discussion search,
// review-pattern search, avatar construction, and angle generation. Steps 1
// and 2 are independently non-fatal; each step that cannot use the search
// provider falls back to the structured-generation capability with the same
// output shape.
type DeepPipeline struct {
	search provider.Searcher
	gen    provider.StructuredGenerator
}

func NewDeepPipeline(search provider.Searcher, gen provider.StructuredGenerator) *DeepPipeline {
	return &DeepPipeline{search: search, gen: gen}
}

func (p *DeepPipeline) searchEnabled() bool {
	return p.search != nil && p.search.Configured()
}

// Run executes all four steps in order. The partial result is always
// returned, even when every step failed, so the caller can inspect per-step
// errors and decide whether to re-run.
func (p *DeepPipeline) Run(ctx context.Context, analysis *pipeline.ProductAnalysis, productName, category, targetAudience string) (*DeepResult, error) {
	if productName == "" && analysis != nil {
		productName = analysis.Name
	}
	if category == "" && analysis != nil {
		category = analysis.Category
	}
	log.Info().
		Str("product", productName).
		Bool("searchProvider", p.searchEnabled()).
		Msg("Starting deep research pipeline")

	out := &DeepResult{Brief: &pipeline.ResearchBrief{}}

	community := p.runEvidenceStep(ctx, out, StepCommunity, communityQuery(productName, category), p.communityFallback(productName, category))
	reviews := p.runEvidenceStep(ctx, out, StepReviews, reviewQuery(productName, category), p.reviewFallback(productName, category))

	mergeEvidence(out.Brief, community)
	mergeEvidence(out.Brief, reviews)

	// Pain points the product analysis already identified belong in the brief
	// even when the searches came back empty.
	if analysis != nil {
		for _, pp := range analysis.TargetDemographic.PainPoints {
			if !contains(out.Brief.PainPoints, pp) {
				out.Brief.PainPoints = append(out.Brief.PainPoints, pp)
			}
		}
	}

	p.runAvatarStep(ctx, out, productName, targetAudience)
	p.runAnglesStep(ctx, out, productName)

	for _, s := range out.Steps {
		out.TotalCostUSD += s.CostUSD
		if s.Status == StepFailed {
			out.Partial = true
		}
	}

	metrics.ForOperation("deepResearch").
		CostUSD("ResearchCostUSD", out.TotalCostUSD).
		Metric("FailedSteps", float64(countFailed(out.Steps)), metrics.UnitCount).
		Property("partial", out.Partial).
		Flush()
	log.Info().
		Float64("costUsd", out.TotalCostUSD).
		Bool("partial", out.Partial).
		Msg("Deep research pipeline finished")

	if !out.Complete() {
		return out, pipeline.NewError(pipeline.KindCapability, "research.deep",
			fmt.Errorf("no research step produced usable output"))
	}
	return out, nil
}

// runEvidenceStep executes one search-backed evidence step (community or
// reviews). Failure is recorded and swallowed; the pipeline continues.
func (p *DeepPipeline) runEvidenceStep(ctx context.Context, out *DeepResult, step, query string, fallbackUser string) *Evidence {
	start := time.Now()
	rec := StepResult{Step: step}

	if p.searchEnabled() {
		res, err := p.search.Search(ctx, evidenceSearchSystem, query,
			provider.GenOptions{Task: "research-" + step})
		if err == nil {
			ev := ExtractEvidence(res.Content)
			if !ev.Empty() {
				rec.Status, rec.Source, rec.Model = StepComplete, SourceSearchProvider, res.Model
				rec.CostUSD, rec.Duration = res.CostUSD, time.Since(start)
				out.Steps = append(out.Steps, rec)
				return ev
			}
			log.Warn().Str("step", step).Msg("Search response yielded no extractable evidence, falling back")
		} else {
			log.Warn().Err(err).Str("step", step).Msg("Search provider failed, falling back to synthesis")
		}
	}

	res, err := p.gen.GenerateStructured(ctx, evidenceFallbackSystem, fallbackUser,
		provider.GenOptions{Task: "research-" + step + "-fallback", MaxTokens: 8192})
	if err != nil {
		rec.Status, rec.Error, rec.Duration = StepFailed, err.Error(), time.Since(start)
		out.Steps = append(out.Steps, rec)
		return nil
	}
	ev, perr := jsonutil.ParseJSON[Evidence]("research."+step, res.Text)
	if perr != nil {
		rec.Status, rec.Error, rec.Duration = StepFailed, perr.Error(), time.Since(start)
		out.Steps = append(out.Steps, rec)
		return nil
	}
	rec.Status, rec.Source, rec.Model = StepComplete, SourceSynthesisFallback, res.Model
	rec.Duration = time.Since(start)
	out.Steps = append(out.Steps, rec)
	return &ev
}

func (p *DeepPipeline) runAvatarStep(ctx context.Context, out *DeepResult, productName, targetAudience string) {
	start := time.Now()
	rec := StepResult{Step: StepAvatar}
	evidence := briefContext(out.Brief)

	if p.searchEnabled() {
		query := fmt.Sprintf("Build a detailed, named customer avatar for %q targeting %s. Cover demographics, psychographics, the problem as they experience it, their buying journey, and the exact language they use.\n\nRESEARCH SO FAR:\n%s",
			productName, fallback(targetAudience, "general consumer"), evidence)
		res, err := p.search.Search(ctx, avatarSearchSystem, query,
			provider.GenOptions{Task: "research-avatar"})
		if err == nil && strings.TrimSpace(res.Content) != "" {
			out.Brief.Avatar = ExtractAvatar(res.Content, targetAudience)
			rec.Status, rec.Source, rec.Model = StepComplete, SourceSearchProvider, res.Model
			rec.CostUSD, rec.Duration = res.CostUSD, time.Since(start)
			out.Steps = append(out.Steps, rec)
			return
		}
		log.Warn().Err(err).Msg("Search provider failed for avatar, falling back to synthesis")
	}

	user := fmt.Sprintf(`Create a detailed customer avatar for %q.

TARGET AUDIENCE: %s

RESEARCH INSIGHTS:
%s

Create a SPECIFIC, NAMED avatar with:
1. DEMOGRAPHICS - name, age, location, income, family, occupation
2. PSYCHOGRAPHICS - values, fears, aspirations, frustrations
3. THE PROBLEM - how they experience it, when it is worst, what they have tried
4. BUYING JOURNEY - trigger, alternatives considered, objections, what convinced them
5. LANGUAGE PROFILE - how they describe the problem, phrases that resonate, search terms
6. DAY IN LIFE - typical day, when the problem is worst, failed solutions

Return as a JSON object with keys demographics, psychographics, problem, buyingJourney, languageProfile, dayInLife.`,
		productName, fallback(targetAudience, "general consumer"), evidence)

	res, err := p.gen.GenerateStructured(ctx, "You are an expert at creating detailed customer personas that feel like real people.", user,
		provider.GenOptions{Task: "avatar-building", MaxTokens: 8192})
	if err != nil {
		rec.Status, rec.Error, rec.Duration = StepFailed, err.Error(), time.Since(start)
		out.Steps = append(out.Steps, rec)
		return
	}
	avatar, perr := jsonutil.ParseJSON[pipeline.Avatar]("research.avatar", res.Text)
	if perr != nil {
		rec.Status, rec.Error, rec.Duration = StepFailed, perr.Error(), time.Since(start)
		out.Steps = append(out.Steps, rec)
		return
	}
	out.Brief.Avatar = &avatar
	rec.Status, rec.Source, rec.Model = StepComplete, SourceSynthesisFallback, res.Model
	rec.Duration = time.Since(start)
	out.Steps = append(out.Steps, rec)
}

func (p *DeepPipeline) runAnglesStep(ctx context.Context, out *DeepResult, productName string) {
	start := time.Now()
	rec := StepResult{Step: StepAngles}

	raw := ""
	if p.searchEnabled() {
		query := fmt.Sprintf("Generate 15+ scroll-stopping UGC ad hooks for %q. Mix problem, curiosity, social proof, transformation, and story angles. For each hook give the exact opening line, a visual suggestion, and why it works psychologically.\n\nCONTEXT:\n%s",
			productName, briefContext(out.Brief))
		res, err := p.search.Search(ctx, anglesSearchSystem, query,
			provider.GenOptions{Task: "research-angles"})
		if err == nil && strings.TrimSpace(res.Content) != "" {
			raw = res.Content
			rec.Source, rec.Model, rec.CostUSD = SourceSearchProvider, res.Model, res.CostUSD
		} else {
			log.Warn().Err(err).Msg("Search provider failed for angles, falling back to synthesis")
		}
	}

	// Whether the raw hooks came from search or we start cold, a structured
	// call produces the final shape.
	user := anglesStructureUser(productName, out.Brief, raw)
	res, err := p.gen.GenerateStructured(ctx, "You are an expert at creating high-converting UGC ad hooks that sound authentic.", user,
		provider.GenOptions{Task: "angle-generation", MaxTokens: 8192})
	if err != nil {
		rec.Status, rec.Error, rec.Duration = StepFailed, err.Error(), time.Since(start)
		out.Steps = append(out.Steps, rec)
		return
	}
	parsed, perr := jsonutil.ParseJSON[struct {
		HookAngles []pipeline.HookAngle `json:"hookAngles"`
	}]("research.angles", res.Text)
	if perr != nil {
		rec.Status, rec.Error, rec.Duration = StepFailed, perr.Error(), time.Since(start)
		out.Steps = append(out.Steps, rec)
		return
	}
	out.Brief.HookAngles = parsed.HookAngles
	rec.Status, rec.Duration = StepComplete, time.Since(start)
	if rec.Source == "" {
		rec.Source = SourceSynthesisFallback
	}
	rec.Model = res.Model
	out.Steps = append(out.Steps, rec)
}

func (p *DeepPipeline) communityFallback(productName, category string) string {
	return fmt.Sprintf(`Based on your knowledge of online community discussions about %s products, generate realistic customer research for %q.

Return a JSON object with keys:
- painPoints: 10-15 specific frustrations people voice about this product category
- praises: what people say they love
- questions: what people commonly ask before buying
- objections: hesitations and concerns
- languagePatterns: 15+ verbatim-sounding phrases customers actually use
- purchaseTriggers: what finally made them buy
- transformation: {"before": [...], "after": [...]}`, fallback(category, "consumer"), productName)
}

func (p *DeepPipeline) reviewFallback(productName, category string) string {
	return fmt.Sprintf(`You are a review analyst. Generate realistic, detailed customer review insights for %q (category: %s).

Return a JSON object with keys:
- praises: recurring five-star themes, as customers phrase them
- painPoints: recurring one- and two-star complaints
- objections: concerns mentioned even in positive reviews
- languagePatterns: 15+ verbatim-sounding phrases pulled from review language
- purchaseTriggers: what reviewers say convinced them
- transformation: {"before": [...], "after": [...]}`, productName, fallback(category, "general"))
}

const (
	evidenceSearchSystem   = "You are a market research analyst. Search community discussions and review sites for authentic customer voice. Organize findings under clear section headers (Pain Points, What Customers Love, Common Questions, Objections, Language Patterns, Purchase Triggers, Before/After) with bullet points, quoting customers verbatim where possible."
	evidenceFallbackSystem = "You are a market research analyst producing structured customer insights. Respond with a single JSON object and nothing else."
	avatarSearchSystem     = "You are a customer persona researcher. Ground the avatar in real discussion and review patterns you find. Write in clearly labeled narrative sections."
	anglesSearchSystem     = "You are a direct-response creative strategist researching what hook styles currently perform for this product category."
)

func anglesStructureUser(productName string, brief *pipeline.ResearchBrief, rawHooks string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate UGC ad hook angles for %q.\n\n", productName)
	if brief.Avatar != nil {
		if raw, err := json.MarshalIndent(brief.Avatar, "", "  "); err == nil {
			fmt.Fprintf(&b, "CUSTOMER AVATAR:\n%s\n\n", raw)
		}
	}
	if len(brief.PainPoints) > 0 {
		fmt.Fprintf(&b, "PAIN POINTS:\n%s\n\n", bulletList(brief.PainPoints))
	}
	if len(brief.LanguagePatterns) > 0 {
		fmt.Fprintf(&b, "LANGUAGE PATTERNS:\n%s\n\n", bulletList(brief.LanguagePatterns))
	}
	if len(brief.Praises) > 0 {
		fmt.Fprintf(&b, "WHAT CUSTOMERS LOVE:\n%s\n\n", bulletList(brief.Praises))
	}
	if rawHooks != "" {
		fmt.Fprintf(&b, "RAW HOOK RESEARCH:\n%s\n\n", rawHooks)
	}
	b.WriteString(`Produce 15+ hook angles mixing problem, curiosity, social proof, transformation, controversy, and story hooks.

Return a JSON object:
{"hookAngles": [{"angle": "...", "hookLine": "...", "whyItWorks": "...", "visualSuggestion": "...", "format": "..."}]}`)
	return b.String()
}

// briefContext renders the evidence gathered so far for use in later steps.
func briefContext(brief *pipeline.ResearchBrief) string {
	var b strings.Builder
	if len(brief.PainPoints) > 0 {
		fmt.Fprintf(&b, "PAIN POINTS DISCOVERED:\n%s\n\n", bulletList(brief.PainPoints))
	}
	if len(brief.Praises) > 0 {
		fmt.Fprintf(&b, "WHAT CUSTOMERS LOVE:\n%s\n\n", bulletList(brief.Praises))
	}
	if len(brief.PurchaseTriggers) > 0 {
		fmt.Fprintf(&b, "PURCHASE TRIGGERS:\n%s\n\n", bulletList(brief.PurchaseTriggers))
	}
	if len(brief.LanguagePatterns) > 0 {
		fmt.Fprintf(&b, "LANGUAGE PATTERNS:\n%s\n\n", bulletList(brief.LanguagePatterns))
	}
	if b.Len() == 0 {
		return "(no prior research available)"
	}
	return strings.TrimSpace(b.String())
}

// mergeEvidence folds one step's extracted evidence into the brief,
// de-duplicating and respecting the extraction caps.
func mergeEvidence(brief *pipeline.ResearchBrief, ev *Evidence) {
	if ev == nil {
		return
	}
	brief.PainPoints = mergeCapped(brief.PainPoints, ev.PainPoints, maxItemsPerSection)
	brief.Praises = mergeCapped(brief.Praises, ev.Praises, maxItemsPerSection)
	brief.Objections = mergeCapped(brief.Objections, append(ev.Objections, ev.Questions...), maxItemsPerSection)
	brief.PurchaseTriggers = mergeCapped(brief.PurchaseTriggers, ev.PurchaseTriggers, maxItemsPerSection)
	brief.LanguagePatterns = mergeCapped(brief.LanguagePatterns, ev.LanguagePatterns, maxLanguagePatterns)
	brief.Transformation.Before = mergeCapped(brief.Transformation.Before, ev.Transformation.Before, maxTransformationArm)
	brief.Transformation.After = mergeCapped(brief.Transformation.After, ev.Transformation.After, maxTransformationArm)
}

func mergeCapped(dst, src []string, limit int) []string {
	for _, s := range src {
		if len(dst) >= limit {
			break
		}
		if !contains(dst, s) {
			dst = append(dst, s)
		}
	}
	return dst
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func communityQuery(productName, category string) string {
	return fmt.Sprintf("What do people in online communities (Reddit, forums, Facebook groups) say about %s products like %q? Cover pain points and frustrations, what they love, common questions before buying, objections, the exact language they use, and what finally made them buy.",
		fallback(category, "consumer"), productName)
}

func reviewQuery(productName, category string) string {
	return fmt.Sprintf("Analyze customer review patterns for %q (%s category). What themes recur in five-star reviews? What do one- and two-star reviews complain about? What concerns appear even in positive reviews? Quote the review language verbatim.",
		productName, fallback(category, "general"))
}

func countFailed(steps []StepResult) int {
	n := 0
	for _, s := range steps {
		if s.Status == StepFailed {
			n++
		}
	}
	return n
}
