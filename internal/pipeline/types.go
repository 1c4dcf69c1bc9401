// Package pipeline defines the shared data model and error taxonomy for the
// UGC ad generation pipeline. Every stage (research synthesis, prompt build,
// generation with quality control, script chunking) takes and returns these
// plain values; no stage holds hidden state.
package pipeline

// ContentType identifies which prompt template and generation behavior a
// request wants. Unknown values fall back to ContentGeneral.
type ContentType string

const (
	ContentDescription ContentType = "description"
	ContentAudience    ContentType = "audience"
	ContentScript      ContentType = "script"
	ContentHook        ContentType = "hook"
	ContentCharacter   ContentType = "character"
	ContentBroll       ContentType = "broll"
	ContentSegment     ContentType = "segment"
	ContentRefine      ContentType = "refine"
	ContentGeneral     ContentType = "general"
)

// GenerationMode selects between fresh creation and refinement of an
// existing value.
type GenerationMode string

const (
	ModeFresh   GenerationMode = "fresh"
	ModeIterate GenerationMode = "iterate"
)

// GenerationRequest is the input to a per-field AI generation call.
type GenerationRequest struct {
	Type     ContentType    `json:"type"`
	Mode     GenerationMode `json:"mode"`
	Context  map[string]any `json:"context,omitempty"`
	Guidance string         `json:"guidance,omitempty"`
	// CurrentValue is the existing field value when Mode is ModeIterate.
	// Iterate without a current value falls back to fresh generation.
	CurrentValue string `json:"currentValue,omitempty"`
}

// EffectiveMode resolves the iterate-without-value fallback.
func (r *GenerationRequest) EffectiveMode() GenerationMode {
	if r.Mode == ModeIterate && r.CurrentValue != "" {
		return ModeIterate
	}
	return ModeFresh
}

// GenerationResult is the uniform tagged result of one provider generation
// call. Exactly one of the payload fields is set depending on the capability.
// The result is owned by the caller that issued the request.
type GenerationResult struct {
	Success bool     `json:"success"`
	Text    string   `json:"text,omitempty"`
	Images  [][]byte `json:"-"`
	Audio   []byte   `json:"-"`
	// TaskID references an asynchronous video synthesis task.
	TaskID   string    `json:"taskId,omitempty"`
	Provider string    `json:"provider,omitempty"`
	Error    string    `json:"error,omitempty"`
	Kind     ErrorKind `json:"errorKind,omitempty"`
}

// IssueSeverity grades a single quality issue.
type IssueSeverity string

const (
	SeverityHigh   IssueSeverity = "high"
	SeverityMedium IssueSeverity = "medium"
	SeverityLow    IssueSeverity = "low"
)

// Issue is one defect found by the quality scorer, in rubric order.
type Issue struct {
	Issue    string        `json:"issue"`
	Severity IssueSeverity `json:"severity"`
	Location string        `json:"location,omitempty"`
}

// QualityAssessment is the scorer's verdict on one generated image.
type QualityAssessment struct {
	Score  int     `json:"score"`
	Passed bool    `json:"passed"`
	Issues []Issue `json:"issues,omitempty"`
	// AdjustedPrompt is a full corrected prompt to use on the next attempt,
	// when the scorer could produce one.
	AdjustedPrompt string `json:"adjustedPrompt,omitempty"`
}

// Meets reports whether the assessment clears the given threshold, either by
// score or by the scorer's explicit pass flag.
func (a *QualityAssessment) Meets(threshold int) bool {
	return a.Score >= threshold || a.Passed
}

// Actionable reports whether the assessment gives the retry loop anything to
// work with: a corrected prompt or at least one enumerated issue.
func (a *QualityAssessment) Actionable() bool {
	return a.AdjustedPrompt != "" || len(a.Issues) > 0
}

// SegmentType classifies a script segment's role in the final ad.
type SegmentType string

const (
	SegmentHook  SegmentType = "hook"
	SegmentAroll SegmentType = "aroll"
	SegmentBroll SegmentType = "broll"
)

// ScriptSegment is one speakable chunk of the ad script. Index ordering is
// the temporal order of the final ad and must be preserved.
type ScriptSegment struct {
	Index           int         `json:"segment"`
	Text            string      `json:"text"`
	Type            SegmentType `json:"type"`
	DurationSeconds float64     `json:"durationEstimateSeconds,omitempty"`
}

// HookAngle is one creative opening for the ad, with its rationale.
type HookAngle struct {
	Angle            string `json:"angle"`
	HookLine         string `json:"hookLine"`
	WhyItWorks       string `json:"whyItWorks"`
	VisualSuggestion string `json:"visualSuggestion,omitempty"`
	Format           string `json:"format,omitempty"`
}

// Transformation holds before/after framing statements.
type Transformation struct {
	Before []string `json:"before,omitempty"`
	After  []string `json:"after,omitempty"`
}

// Avatar is the synthesized customer persona. Demographics and psychographics
// are kept loosely typed because both the structured-output path and the
// free-text extraction path populate them.
type Avatar struct {
	Demographics   map[string]string   `json:"demographics,omitempty"`
	Psychographics map[string][]string `json:"psychographics,omitempty"`
	Problem        map[string]string   `json:"problem,omitempty"`
	BuyingJourney  map[string]string   `json:"buyingJourney,omitempty"`
	Language       map[string][]string `json:"languageProfile,omitempty"`
	DayInLife      string              `json:"dayInLife,omitempty"`
}

// ResearchBrief is the structured customer-research artifact produced once
// per product. Immutable once produced; downstream prompt builders only read
// from it.
type ResearchBrief struct {
	Avatar           *Avatar        `json:"customerAvatar,omitempty"`
	PainPoints       []string       `json:"painPoints,omitempty"`
	Praises          []string       `json:"praises,omitempty"`
	PurchaseTriggers []string       `json:"purchaseTriggers,omitempty"`
	Objections       []string       `json:"objections,omitempty"`
	LanguagePatterns []string       `json:"languagePatterns,omitempty"`
	HookAngles       []HookAngle    `json:"hookAngles,omitempty"`
	Transformation   Transformation `json:"transformation,omitempty"`
}

// ProductAnalysis is the structured record extracted from a product image by
// the vision analyzer. Field names mirror the analysis prompt's JSON schema.
type ProductAnalysis struct {
	Name              string            `json:"name"`
	Category          string            `json:"category"`
	Subcategory       string            `json:"subcategory,omitempty"`
	VisualFeatures    VisualFeatures    `json:"visualFeatures,omitempty"`
	Features          []string          `json:"functionalFeatures,omitempty"`
	Usage             string            `json:"usage,omitempty"`
	ProblemSolved     string            `json:"problemSolved,omitempty"`
	Benefits          Benefits          `json:"benefits,omitempty"`
	TargetDemographic TargetDemographic `json:"targetDemographic,omitempty"`
	Positioning       Positioning       `json:"positioning,omitempty"`
	AdHooks           []AdHook          `json:"adHooks,omitempty"`
}

// VisualFeatures describes what is visible in the product image.
type VisualFeatures struct {
	Colors            []string `json:"colors,omitempty"`
	Materials         []string `json:"materials,omitempty"`
	DesignStyle       string   `json:"designStyle,omitempty"`
	QualityIndicators []string `json:"qualityIndicators,omitempty"`
}

// Benefits translates product features into customer value.
type Benefits struct {
	Primary   string   `json:"primary,omitempty"`
	Secondary []string `json:"secondary,omitempty"`
	Emotional []string `json:"emotional,omitempty"`
}

// TargetDemographic sketches who buys the product.
type TargetDemographic struct {
	AgeRange   string   `json:"ageRange,omitempty"`
	Gender     string   `json:"gender,omitempty"`
	Lifestyle  []string `json:"lifestyle,omitempty"`
	PainPoints []string `json:"painPoints,omitempty"`
}

// Positioning captures market placement.
type Positioning struct {
	PricePoint         string `json:"pricePoint,omitempty"`
	CompetitorCategory string `json:"competitorCategory,omitempty"`
	USP                string `json:"usp,omitempty"`
}

// AdHook is a hook suggestion produced directly by product analysis.
type AdHook struct {
	Angle string `json:"angle"`
	Hook  string `json:"hook"`
}
