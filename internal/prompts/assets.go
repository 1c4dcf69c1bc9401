// Package prompts holds every prompt the pipeline sends to a generative
// model: the per-field template registry, the specialist image/video prompt
// builders, the quality-control rubric, and the research prompts.
//
// All builders are pure functions over plain context values - no I/O, no
// hidden state - so identical inputs always produce identical prompts.
// System prompts are stored as text files under assets/ and embedded at
// compile time.
package prompts

import _ "embed"

// CharacterSystemPrompt drives hyper-realistic UGC character image prompts.
//
//go:embed assets/character-system.txt
var CharacterSystemPrompt string

// ScriptChunkSystemPrompt drives script segmentation into 5-8 second chunks.
//
//go:embed assets/script-chunk-system.txt
var ScriptChunkSystemPrompt string

// VeoSystemPrompt drives A-roll talking-head animation prompts.
//
//go:embed assets/veo-system.txt
var VeoSystemPrompt string

// BrollSystemPrompt drives B-roll still image prompts that prove script claims.
//
//go:embed assets/broll-system.txt
var BrollSystemPrompt string

// KlingSystemPrompt drives motion-only prompts for B-roll animation.
//
//go:embed assets/kling-system.txt
var KlingSystemPrompt string

// QCSystemPrompt drives the vision model's authenticity scoring of generated
// images. The checklist is configuration, not logic: edit the file to tune
// the rubric.
//
//go:embed assets/qc-system.txt
var QCSystemPrompt string

// CorrectionSystemPrompt drives prompt repair after a failed quality check.
//
//go:embed assets/correction-system.txt
var CorrectionSystemPrompt string

// ProductAnalysisPrompt extracts a structured product record from an image.
//
//go:embed assets/product-analysis.txt
var ProductAnalysisPrompt string

// ResearchSynthesisSystemPrompt drives the single-call research brief
// synthesis.
//
//go:embed assets/research-synthesis-system.txt
var ResearchSynthesisSystemPrompt string

// AssemblySystemPrompt drives the multimodal editing-plan analysis of the
// finished clips.
//
//go:embed assets/assembly-system.txt
var AssemblySystemPrompt string
