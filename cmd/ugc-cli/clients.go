package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/provider"
	"github.com/fpang/ugc-factory/internal/provider/elevenlabs"
	"github.com/fpang/ugc-factory/internal/provider/gemini"
	"github.com/fpang/ugc-factory/internal/provider/kling"
	"github.com/fpang/ugc-factory/internal/provider/perplexity"
	"github.com/fpang/ugc-factory/internal/qc"
	"github.com/fpang/ugc-factory/internal/visuals"
)

// Artifact filenames within the working directory.
const (
	analysisFile  = "analysis.json"
	researchFile  = "research.json"
	scriptFile    = "script.txt"
	segmentsFile  = "segments.json"
	characterFile = "character.png"
	productFile   = "product-reference"
)

// newGeminiClient creates the text/vision client, fatally when the key is
// missing since every stage needs it.
func newGeminiClient(ctx context.Context) *gemini.Client {
	client, err := gemini.NewClient(ctx, os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client (is GEMINI_API_KEY set?)")
	}
	return client
}

func newImageClient() *gemini.ImageClient {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		log.Fatal().Msg("GEMINI_API_KEY is required")
	}
	return gemini.NewImageClient(key)
}

func newPerplexityClient() *perplexity.Client {
	return perplexity.NewClient(os.Getenv("PERPLEXITY_API_KEY"))
}

func newKlingClient() *kling.Client {
	ak, sk := os.Getenv("KLING_ACCESS_KEY"), os.Getenv("KLING_SECRET_KEY")
	if ak == "" || sk == "" {
		log.Fatal().Msg("KLING_ACCESS_KEY and KLING_SECRET_KEY are required for animation")
	}
	client, err := kling.NewClient(ak, sk)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Kling client")
	}
	return client
}

func newElevenLabsClient() *elevenlabs.Client {
	client, err := elevenlabs.NewClient(os.Getenv("ELEVENLABS_API_KEY"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ElevenLabs client (is ELEVENLABS_API_KEY set?)")
	}
	return client
}

// newGenerator wires the visual generation flows for CLI use. Video and
// speech are optional; pass nil for stages that don't need them. The Gemini
// client itself renders A-roll clips.
func newGenerator(g *gemini.Client, video provider.VideoSynthesizer, speech provider.SpeechSynthesizer, disableQC bool) *visuals.Generator {
	var scorer *qc.Scorer
	if !disableQC {
		scorer = qc.NewScorer(g, g)
	}
	return visuals.NewGenerator(g, newImageClient(), video, g, speech, scorer)
}

// --- artifact I/O ---

func artifactPath(name string) string {
	return filepath.Join(workdirFlag, name)
}

func writeJSON(name string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Str("file", name).Msg("Failed to encode artifact")
	}
	path := artifactPath(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to write artifact")
	}
	fmt.Printf("  wrote %s\n", path)
}

func readJSON(name string, v any) {
	path := artifactPath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Missing artifact — run the earlier stages first")
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to parse artifact")
	}
}

func writeBytes(name string, data []byte) string {
	path := artifactPath(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to write file")
	}
	fmt.Printf("  wrote %s\n", path)
	return path
}

func loadAnalysis() *pipeline.ProductAnalysis {
	var analysis pipeline.ProductAnalysis
	readJSON(analysisFile, &analysis)
	return &analysis
}

func loadSegments() []pipeline.ScriptSegment {
	var segments []pipeline.ScriptSegment
	readJSON(segmentsFile, &segments)
	return segments
}

// loadProductReference reads the archived product photo written by analyze.
func loadProductReference() provider.ReferenceImage {
	for _, ext := range []string{".jpg", ".png", ".webp"} {
		path := artifactPath(productFile + ext)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return provider.ReferenceImage{Data: data, MIMEType: mimeForExt(ext), Label: "Product reference:"}
	}
	log.Fatal().Msg("Product reference image missing — run analyze first")
	return provider.ReferenceImage{}
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
