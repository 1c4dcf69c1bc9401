// Package visuals composes prompt engineering, image synthesis, and quality
// control into the asset generation flows: character stills, B-roll stills,
// B-roll animation, A-roll dialogue clips, and voiceover.
package visuals

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/genloop"
	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/prompts"
	"github.com/fpang/ugc-factory/internal/provider"
	"github.com/fpang/ugc-factory/internal/qc"
)

// DefaultAspectRatio is the vertical short-form format all assets target.
const DefaultAspectRatio = "9:16"

// Generator wires the prompt builders, the image provider, and the quality
// scorer into the per-asset generation flows.
type Generator struct {
	text   provider.IterativeTextGenerator
	images provider.ImageSynthesizer
	video  provider.VideoSynthesizer
	avatar provider.AvatarVideoSynthesizer
	speech provider.SpeechSynthesizer
	scorer *qc.Scorer
}

// NewGenerator creates a generator. video, avatar, and speech may be nil when
// those providers are not configured; the corresponding flows return
// capability errors.
func NewGenerator(text provider.IterativeTextGenerator, images provider.ImageSynthesizer, video provider.VideoSynthesizer, avatar provider.AvatarVideoSynthesizer, speech provider.SpeechSynthesizer, scorer *qc.Scorer) *Generator {
	return &Generator{
		text:   text,
		images: images,
		video:  video,
		avatar: avatar,
		speech: speech,
		scorer: scorer,
	}
}

// QCOptions tunes the quality control loop for one generation.
type QCOptions struct {
	Disable bool
	// MaxRetries overrides the retry budget when non-nil. A pointer to zero
	// means exactly one generation attempt with no regeneration; nil means
	// the loop default.
	MaxRetries *int
}

// CharacterResult is the outcome of one character generation.
type CharacterResult struct {
	Image    []byte
	MIMEType string
	// Prompt is the engineered image prompt that produced the accepted image.
	Prompt     string
	Attempts   int
	Assessment *pipeline.QualityAssessment
}

// Character engineers a UGC character prompt from the product analysis, then
// generates the character still against the product reference image with
// quality control.
func (g *Generator) Character(ctx context.Context, product *pipeline.ProductAnalysis, cc prompts.CharacterContext, productImage provider.ReferenceImage, opts QCOptions) (*CharacterResult, error) {
	promptRes, err := g.text.Generate(ctx, prompts.CharacterSystemPrompt, prompts.CharacterUserPrompt(product, cc), provider.GenOptions{
		Task:      "character-prompt",
		MaxTokens: 2048,
	})
	if err != nil {
		return nil, fmt.Errorf("character prompt engineering: %w", err)
	}
	imagePrompt := prompts.EnforceRealism(promptRes.Text)

	outcome, err := g.generateImage(ctx, imagePrompt, []provider.ReferenceImage{productImage}, prompts.PurposeCharacter, pipeline.SegmentHook, "generate-character", opts)
	if err != nil {
		return nil, err
	}
	return &CharacterResult{
		Image:      outcome.Result.Images[0],
		MIMEType:   "image/png",
		Prompt:     outcome.Prompt,
		Attempts:   outcome.Attempts,
		Assessment: outcome.Assessment,
	}, nil
}

// BrollResult is the outcome of one B-roll still generation.
type BrollResult struct {
	Image      []byte
	MIMEType   string
	Prompt     string
	Attempts   int
	Assessment *pipeline.QualityAssessment
}

// Broll engineers a proof-shot prompt for one script segment, then generates
// the still conditioned on both the character and product references so
// hands, skin, and product match across cuts.
func (g *Generator) Broll(ctx context.Context, segment pipeline.ScriptSegment, product *pipeline.ProductAnalysis, refs []provider.ReferenceImage, opts QCOptions) (*BrollResult, error) {
	promptRes, err := g.text.Generate(ctx, prompts.BrollSystemPrompt, prompts.BrollUserPrompt(segment, product), provider.GenOptions{
		Task:      "broll-prompt",
		MaxTokens: 2048,
	})
	if err != nil {
		return nil, fmt.Errorf("broll prompt engineering: %w", err)
	}
	imagePrompt := prompts.EnforceRealism(promptRes.Text)

	outcome, err := g.generateImage(ctx, imagePrompt, refs, prompts.PurposeBroll, segment.Type, "generate-broll", opts)
	if err != nil {
		return nil, err
	}
	return &BrollResult{
		Image:      outcome.Result.Images[0],
		MIMEType:   "image/png",
		Prompt:     outcome.Prompt,
		Attempts:   outcome.Attempts,
		Assessment: outcome.Assessment,
	}, nil
}

func (g *Generator) generateImage(ctx context.Context, imagePrompt string, refs []provider.ReferenceImage, purpose prompts.Purpose, segType pipeline.SegmentType, operation string, opts QCOptions) (*genloop.Outcome, error) {
	generate := func(ctx context.Context, prompt string) (*pipeline.GenerationResult, error) {
		res, err := g.images.GenerateImage(ctx, provider.ImageRequest{
			Prompt:          prompt,
			ReferenceImages: refs,
			AspectRatio:     DefaultAspectRatio,
		})
		if err != nil {
			return nil, err
		}
		return &pipeline.GenerationResult{
			Success:  true,
			Images:   res.Images,
			Provider: "gemini",
		}, nil
	}

	var score genloop.ScoreFunc
	var correct genloop.CorrectFunc
	if g.scorer != nil {
		score = g.scorer.ScoreFunc(purpose, segType)
		correct = g.scorer.CorrectPrompt
	}

	outcome, err := genloop.Run(ctx, imagePrompt, generate, score, genloop.Options{
		MaxRetries: maxRetriesOrDefault(opts),
		DisableQC:  opts.Disable || g.scorer == nil,
		Threshold:  purpose.Threshold(),
		Correct:    correct,
		Operation:  operation,
	})
	if err != nil {
		return nil, err
	}
	if len(outcome.Result.Images) == 0 {
		return nil, &pipeline.Error{Kind: pipeline.KindCapability, Op: operation, Err: fmt.Errorf("no image in accepted result")}
	}
	return outcome, nil
}

func maxRetriesOrDefault(opts QCOptions) int {
	if opts.Disable {
		return 0
	}
	if opts.MaxRetries != nil && *opts.MaxRetries >= 0 {
		return *opts.MaxRetries
	}
	return genloop.DefaultMaxRetries
}

// ArollPrompt engineers the dialogue video prompt for one A-roll segment.
// Aroll uses it before rendering; it is also exported on its own so callers
// can inspect or hand-edit prompts before committing render budget.
func (g *Generator) ArollPrompt(ctx context.Context, segment pipeline.ScriptSegment, cc prompts.CharacterContext) (string, error) {
	res, err := g.text.Generate(ctx, prompts.VeoSystemPrompt, prompts.VeoUserPrompt(segment, cc), provider.GenOptions{
		Task:      "aroll-prompt",
		MaxTokens: 1024,
	})
	if err != nil {
		return "", fmt.Errorf("aroll prompt engineering: %w", err)
	}
	return res.Text, nil
}

// ArollResult is the outcome of one talking-head clip generation.
type ArollResult struct {
	Video    []byte
	MIMEType string
	// Prompt is the dialogue video prompt that produced the clip.
	Prompt string
	Model  string
}

// Aroll renders the talking-head clip for one dialogue segment: engineer the
// dialogue video prompt (unless the caller supplies one), then synthesize the
// clip against the character reference still so the speaker stays consistent
// across segments.
func (g *Generator) Aroll(ctx context.Context, segment pipeline.ScriptSegment, cc prompts.CharacterContext, character provider.ReferenceImage, customPrompt string) (*ArollResult, error) {
	if g.avatar == nil {
		return nil, &pipeline.Error{Kind: pipeline.KindCapability, Op: "generate-aroll", Err: fmt.Errorf("avatar video provider not configured")}
	}

	prompt := customPrompt
	if prompt == "" {
		engineered, err := g.ArollPrompt(ctx, segment, cc)
		if err != nil {
			return nil, err
		}
		prompt = engineered
	}

	start := time.Now()
	res, err := g.avatar.SynthesizeAvatarVideo(ctx, prompt, character)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("segment", segment.Index).
		Int("videoBytes", len(res.Video)).
		Dur("duration", time.Since(start)).
		Msg("A-roll clip rendered")
	return &ArollResult{Video: res.Video, MIMEType: res.MIMEType, Prompt: prompt, Model: res.Model}, nil
}

// AnimateResult is the outcome of submitting one animation task.
type AnimateResult struct {
	TaskID string
	// MotionPrompt is the engineered motion direction sent to the provider.
	MotionPrompt string
}

// Animate engineers a motion-only prompt for an approved B-roll still and
// submits the image-to-video task. Callers poll or await the task separately.
func (g *Generator) Animate(ctx context.Context, image []byte, imagePrompt string, segment pipeline.ScriptSegment) (*AnimateResult, error) {
	if g.video == nil {
		return nil, &pipeline.Error{Kind: pipeline.KindCapability, Op: "animate-broll", Err: fmt.Errorf("video provider not configured")}
	}

	promptRes, err := g.text.Generate(ctx, prompts.KlingSystemPrompt, prompts.KlingUserPrompt(imagePrompt, segment), provider.GenOptions{
		Task:      "kling-prompt",
		MaxTokens: 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("animation prompt engineering: %w", err)
	}

	duration := 5
	if segment.DurationSeconds > 5 {
		duration = 10
	}
	task, err := g.video.Submit(ctx, provider.VideoRequest{
		Prompt:          promptRes.Text,
		SourceImage:     image,
		DurationSeconds: duration,
		AspectRatio:     DefaultAspectRatio,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("taskId", task.ID).
		Int("segment", segment.Index).
		Int("durationSeconds", duration).
		Msg("Animation task submitted")
	return &AnimateResult{TaskID: task.ID, MotionPrompt: promptRes.Text}, nil
}

// AwaitAnimation blocks until the animation task completes or times out.
func (g *Generator) AwaitAnimation(ctx context.Context, taskID string) (*provider.VideoTaskResult, error) {
	if g.video == nil {
		return nil, &pipeline.Error{Kind: pipeline.KindCapability, Op: "animate-broll", Err: fmt.Errorf("video provider not configured")}
	}
	return g.video.Await(ctx, taskID)
}

// PollAnimation fetches the current state of an animation task.
func (g *Generator) PollAnimation(ctx context.Context, taskID string) (*provider.VideoTaskResult, error) {
	if g.video == nil {
		return nil, &pipeline.Error{Kind: pipeline.KindCapability, Op: "animate-broll", Err: fmt.Errorf("video provider not configured")}
	}
	return g.video.Poll(ctx, taskID)
}

// Voiceover synthesizes voiceover audio for one script segment.
func (g *Generator) Voiceover(ctx context.Context, segment pipeline.ScriptSegment, voiceID string, settings provider.VoiceSettings) (*provider.SpeechResult, error) {
	if g.speech == nil {
		return nil, &pipeline.Error{Kind: pipeline.KindCapability, Op: "generate-voice", Err: fmt.Errorf("speech provider not configured")}
	}
	start := time.Now()
	res, err := g.speech.Synthesize(ctx, segment.Text, voiceID, settings)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("segment", segment.Index).
		Int("audioBytes", len(res.Audio)).
		Dur("duration", time.Since(start)).
		Msg("Voiceover synthesized")
	return res, nil
}

// Voices lists the speech provider's voice catalog.
func (g *Generator) Voices(ctx context.Context) ([]provider.Voice, error) {
	if g.speech == nil {
		return nil, &pipeline.Error{Kind: pipeline.KindCapability, Op: "voices", Err: fmt.Errorf("speech provider not configured")}
	}
	return g.speech.Voices(ctx)
}
