// Package assembly turns the finished clips of a project into an editing
// plan: a multimodal pass over the clip frames and the script produces a
// step-by-step guide, and a cheap second call compresses it into a timeline.
package assembly

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/metrics"
	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/prompts"
	"github.com/fpang/ugc-factory/internal/provider"
)

// Clip is one generated clip's representative frame, labeled by the segment
// it covers.
type Clip struct {
	Segment  int
	Frame    []byte
	MIMEType string
}

// Input is everything the analyzer looks at for one project.
type Input struct {
	Segments []pipeline.ScriptSegment
	Product  *pipeline.ProductAnalysis
	Aroll    []Clip
	Broll    []Clip
	// HasVoiceover indicates a separately recorded voiceover track exists,
	// which changes the audio mixing advice.
	HasVoiceover bool
}

// Plan is the analyzer's output: the full editing guide and, when the
// timeline extraction succeeds, a compact bracket-notation timeline.
type Plan struct {
	Guide    string `json:"guide"`
	Timeline string `json:"timeline,omitempty"`
	Aroll    int    `json:"arollClips"`
	Broll    int    `json:"brollClips"`
}

// Analyzer produces editing plans. The vision analyzer reads the clip frames;
// the text tier's cheap model extracts the timeline.
type Analyzer struct {
	vision provider.MultiVisionAnalyzer
	text   provider.IterativeTextGenerator
}

func NewAnalyzer(vision provider.MultiVisionAnalyzer, text provider.IterativeTextGenerator) *Analyzer {
	return &Analyzer{vision: vision, text: text}
}

// Plan analyzes the project's clips against the script and returns the
// editing plan. At least one clip frame and one script segment are required.
// Timeline extraction is best effort: a failure there logs and returns the
// plan without a timeline rather than discarding the guide.
func (a *Analyzer) Plan(ctx context.Context, in Input) (*Plan, error) {
	if len(in.Segments) == 0 {
		return nil, fmt.Errorf("analyze assembly: no script segments")
	}
	if len(in.Aroll)+len(in.Broll) == 0 {
		return nil, fmt.Errorf("analyze assembly: no clip frames to analyze")
	}

	start := time.Now()
	images := labeledFrames(in)
	userPrompt := prompts.AssemblyUserPrompt(in.Segments, in.Product, len(in.Aroll), len(in.Broll), in.HasVoiceover)

	res, err := a.vision.AnalyzeImages(ctx, images, prompts.AssemblySystemPrompt+"\n\n"+userPrompt)
	if err != nil {
		return nil, fmt.Errorf("assembly analysis: %w", err)
	}

	plan := &Plan{Guide: res.Text, Aroll: len(in.Aroll), Broll: len(in.Broll)}
	plan.Timeline = a.timeline(ctx, res.Text, in.Segments)

	metrics.ForOperation("assemblyAnalysis").
		Metric("ClipsAnalyzed", float64(len(images)), metrics.UnitCount).
		Metric("AnalysisDurationMs", float64(time.Since(start).Milliseconds()), metrics.UnitMilliseconds).
		Flush()

	log.Info().
		Int("aroll", len(in.Aroll)).
		Int("broll", len(in.Broll)).
		Bool("timeline", plan.Timeline != "").
		Dur("duration", time.Since(start)).
		Msg("Assembly plan produced")
	return plan, nil
}

func (a *Analyzer) timeline(ctx context.Context, guide string, segments []pipeline.ScriptSegment) string {
	if a.text == nil {
		return ""
	}
	res, err := a.text.Iterate(ctx, "", prompts.TimelineUserPrompt(guide, segments), provider.GenOptions{
		Task:      "assembly-timeline",
		MaxTokens: 1024,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Timeline extraction failed, returning plan without one")
		return ""
	}
	return res.Text
}

// labeledFrames flattens the clips into the analyzer's image list, labeling
// each frame so the model can tie it back to the asset inventory.
func labeledFrames(in Input) []provider.ReferenceImage {
	var images []provider.ReferenceImage
	for i, clip := range in.Aroll {
		images = append(images, frame(clip, fmt.Sprintf("[A-ROLL CLIP %d - Segment %d]:", i+1, clip.Segment)))
	}
	for i, clip := range in.Broll {
		images = append(images, frame(clip, fmt.Sprintf("[B-ROLL CLIP %d - Segment %d]:", i+1, clip.Segment)))
	}
	return images
}

func frame(clip Clip, label string) provider.ReferenceImage {
	mime := clip.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return provider.ReferenceImage{Data: clip.Frame, MIMEType: mime, Label: label}
}
