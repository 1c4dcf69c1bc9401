// Package provider defines the narrow capability interfaces the pipeline
// consumes. Each external generative service (text, vision, image, video,
// speech, search) sits behind one of these contracts; core components take
// them as parameters so they can be exercised with fakes in tests. Concrete
// clients live in the subpackages (gemini, kling, elevenlabs, perplexity).
package provider

import "context"

// GenOptions tunes a text generation call. Zero values mean provider defaults.
type GenOptions struct {
	MaxTokens   int
	Temperature float64
	// Task labels the call for logging and metrics (e.g. "generate-hook").
	Task string
}

// TextResult is the outcome of a text generation call.
type TextResult struct {
	Text string
	// Model identifies which concrete model produced the text.
	Model string
}

// TextGenerator produces free-form text from a system/user prompt pair.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenOptions) (*TextResult, error)
}

// IterativeTextGenerator additionally offers a cheaper/faster model tier for
// refinements, corrections, and regenerations.
type IterativeTextGenerator interface {
	TextGenerator
	Iterate(ctx context.Context, systemPrompt, userPrompt string, opts GenOptions) (*TextResult, error)
}

// StructuredGenerator produces text expected to contain a JSON object. The
// raw text is returned; callers parse it with jsonutil so parse failures are
// tagged uniformly.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, systemPrompt, userPrompt string, opts GenOptions) (*TextResult, error)
}

// VisionAnalyzer answers a prompt about one or more images.
type VisionAnalyzer interface {
	AnalyzeImage(ctx context.Context, image []byte, mimeType, analysisPrompt string) (*TextResult, error)
}

// MultiVisionAnalyzer answers a prompt about several images in one call,
// e.g. judging a set of clip frames together.
type MultiVisionAnalyzer interface {
	AnalyzeImages(ctx context.Context, images []ReferenceImage, analysisPrompt string) (*TextResult, error)
}

// ReferenceImage conditions an image synthesis call on an existing asset,
// e.g. the product photo or the character reference.
type ReferenceImage struct {
	Data     []byte
	MIMEType string
	Label    string
}

// ImageRequest describes one image synthesis call.
type ImageRequest struct {
	Prompt          string
	ReferenceImages []ReferenceImage
	AspectRatio     string
}

// ImageResult holds the synthesized image bytes.
type ImageResult struct {
	Images [][]byte
	// MIMEType applies to every returned image.
	MIMEType string
	// Text is any commentary the model returned alongside the image.
	Text string
}

// ImageSynthesizer renders an image from a prompt, optionally conditioned on
// reference images.
type ImageSynthesizer interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
}

// TaskStatus is the lifecycle state of an asynchronous video task.
type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// VideoTask references a submitted video synthesis task.
type VideoTask struct {
	ID     string
	Status TaskStatus
}

// VideoTaskResult is a poll response for an asynchronous video task.
type VideoTaskResult struct {
	ID        string
	Status    TaskStatus
	ResultURL string
}

// VideoRequest describes one image-to-video synthesis task.
type VideoRequest struct {
	Prompt string
	// SourceImage is the still frame to animate.
	SourceImage []byte
	// DurationSeconds is the clip length (provider-specific set of allowed values).
	DurationSeconds int
	AspectRatio     string
}

// AvatarVideoResult holds one rendered talking-head clip.
type AvatarVideoResult struct {
	Video    []byte
	MIMEType string
	// Model identifies which concrete model rendered the clip.
	Model string
}

// AvatarVideoSynthesizer renders a dialogue clip of the character speaking to
// camera, conditioned on the character reference still. Implementations block
// until the clip is ready or the wall-clock budget elapses, in which case
// they return a timeout-tagged pipeline error.
type AvatarVideoSynthesizer interface {
	SynthesizeAvatarVideo(ctx context.Context, prompt string, character ReferenceImage) (*AvatarVideoResult, error)
}

// VideoSynthesizer submits asynchronous image-to-video tasks and polls them.
// Await blocks until the task reaches a terminal state or the wall-clock
// budget elapses, in which case it returns a timeout-tagged pipeline error.
type VideoSynthesizer interface {
	Submit(ctx context.Context, req VideoRequest) (*VideoTask, error)
	Poll(ctx context.Context, taskID string) (*VideoTaskResult, error)
	Await(ctx context.Context, taskID string) (*VideoTaskResult, error)
}

// VoiceSettings tunes a speech synthesis call.
type VoiceSettings struct {
	Stability       float64
	SimilarityBoost float64
	Style           float64
	SpeakerBoost    bool
}

// Voice is one entry from the speech provider's catalog.
type Voice struct {
	ID         string
	Name       string
	Category   string
	PreviewURL string
}

// SpeechResult holds synthesized audio.
type SpeechResult struct {
	Audio       []byte
	ContentType string
}

// SpeechSynthesizer turns script text into voiceover audio.
type SpeechSynthesizer interface {
	Voices(ctx context.Context) ([]Voice, error)
	Synthesize(ctx context.Context, text, voiceID string, settings VoiceSettings) (*SpeechResult, error)
}

// SearchResult is the outcome of an open-web research query.
type SearchResult struct {
	Content   string
	Citations []string
	Model     string
	// CostUSD is the computed cost of the call from the provider's usage
	// report, for per-step research accounting.
	CostUSD float64
}

// Searcher runs open-web-style research queries. A nil/unconfigured Searcher
// makes the research pipeline fall back to pure synthesis.
type Searcher interface {
	Search(ctx context.Context, systemPrompt, query string, opts GenOptions) (*SearchResult, error)
	// Configured reports whether the provider has credentials and should be
	// attempted at all.
	Configured() bool
}
