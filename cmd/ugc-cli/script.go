package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/script"
	"github.com/fpang/ugc-factory/internal/textgen"
)

var (
	generateTypeFlag    string
	generateGuideFlag   string
	generateCurrentFlag string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate or refine one text field (script, hook, description, ...)",
	Long: `Generate produces one text field from the accumulated project context.
The analysis and research artifacts in the working directory are passed as
context automatically. With --current, the field is refined instead of
regenerated.

Types: description, audience, script, hook, character, broll, segment, refine.

Generated scripts are written to script.txt; other types print to stdout.`,
	Run: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateTypeFlag, "type", "t", "script", "Content type to generate")
	generateCmd.Flags().StringVarP(&generateGuideFlag, "guidance", "g", "", "Extra guidance for the generation")
	generateCmd.Flags().StringVar(&generateCurrentFlag, "current", "", "Existing value to refine")
	generateCmd.Flags().StringVarP(&audienceFlag, "audience", "a", "", "Target audience hint")
}

func runGenerate(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc := textgen.NewService(newGeminiClient(ctx))

	pctx := map[string]any{}
	var analysis pipeline.ProductAnalysis
	if data, err := os.ReadFile(artifactPath(analysisFile)); err == nil {
		readJSON(analysisFile, &analysis)
		pctx["productName"] = analysis.Name
		pctx["productAnalysis"] = string(data)
	}
	if data, err := os.ReadFile(artifactPath(researchFile)); err == nil {
		pctx["research"] = string(data)
	}
	if audienceFlag != "" {
		pctx["targetAudience"] = audienceFlag
	}

	mode := pipeline.ModeFresh
	if generateCurrentFlag != "" {
		mode = pipeline.ModeIterate
	}

	result, err := svc.Generate(ctx, &pipeline.GenerationRequest{
		Type:         pipeline.ContentType(generateTypeFlag),
		Mode:         mode,
		Context:      pctx,
		Guidance:     generateGuideFlag,
		CurrentValue: generateCurrentFlag,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Generation failed")
	}
	if !result.Success {
		log.Fatal().Str("error", result.Error).Msg("Generation failed")
	}

	if generateTypeFlag == string(pipeline.ContentScript) {
		writeBytes(scriptFile, []byte(result.Text+"\n"))
	}
	fmt.Println()
	fmt.Println(result.Text)
}

var chunkScriptFlag string

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Split the ad script into 5-8 second segments",
	Long: `Chunk splits the full script into speakable 5-8 second segments at
natural pause points, writes segments.json, and prints the cut list. The
first segment is always typed as the hook.`,
	Run: runChunk,
}

func init() {
	chunkCmd.Flags().StringVar(&chunkScriptFlag, "script", "", "Script file (default: script.txt in the working directory)")
}

func runChunk(cmd *cobra.Command, args []string) {
	path := chunkScriptFlag
	if path == "" {
		path = artifactPath(scriptFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read script — run generate --type script first")
	}

	ctx := context.Background()
	segments, err := script.NewChunker(newGeminiClient(ctx)).Chunk(ctx, string(data))
	if err != nil {
		log.Fatal().Err(err).Msg("Script chunking failed")
	}

	writeJSON(segmentsFile, segments)

	fmt.Println()
	var total float64
	for _, seg := range segments {
		fmt.Printf("  %2d. [%-5s] %4.1fs  %s\n", seg.Index, seg.Type, seg.DurationSeconds, seg.Text)
		total += seg.DurationSeconds
	}
	fmt.Printf("\nTotal: %d segments, ~%.0fs\n", len(segments), total)
}
