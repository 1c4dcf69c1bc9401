package gemini

// Model names. Preview models rotate; keep these in one place.
const (
	// ModelGemini3FlashPreview is best for speed + intelligence.
	ModelGemini3FlashPreview = "gemini-3-flash-preview"

	// ModelGemini25Pro is stable, for high-reasoning tasks.
	ModelGemini25Pro = "gemini-2.5-pro"

	// ModelGemini25FlashLite is for high-throughput, lowest cost. Used for
	// prompt corrections and field refinements.
	ModelGemini25FlashLite = "gemini-2.5-flash-lite"

	// ModelGemini3ProImage is for image generation and editing.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"

	// ModelVeo31 renders talking-head dialogue video with native audio.
	ModelVeo31 = "veo-3.1"
)

// DefaultModelName is the primary text/vision model.
const DefaultModelName = ModelGemini3FlashPreview

// IterateModelName is the cheaper tier for refinement calls.
const IterateModelName = ModelGemini25FlashLite
