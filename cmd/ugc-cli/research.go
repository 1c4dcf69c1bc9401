package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/research"
)

var (
	audienceFlag string
	docsFlag     []string
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Build the customer research brief",
	Long: `Research builds the customer research brief that grounds every later
stage: pain points, praises, purchase triggers, objections, customer
language, hook angles, and a synthesized customer avatar.

With PERPLEXITY_API_KEY set, each research step queries the open web and the
brief records real community evidence. Without it, or for steps that fail,
the brief is synthesized from the product analysis. Supplying --doc files
skips the open-web path and synthesizes from your own documents instead.`,
	Run: runResearch,
}

func init() {
	researchCmd.Flags().StringVarP(&audienceFlag, "audience", "a", "", "Target audience hint (e.g. \"office workers with back pain\")")
	researchCmd.Flags().StringSliceVar(&docsFlag, "doc", nil, "Supporting document path (repeatable; switches to synthesis mode)")
}

func runResearch(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	client := newGeminiClient(ctx)
	analysis := loadAnalysis()

	if len(docsFlag) > 0 {
		var docs []string
		for _, path := range docsFlag {
			data, err := os.ReadFile(path)
			if err != nil {
				log.Fatal().Err(err).Str("path", path).Msg("Failed to read supporting document")
			}
			docs = append(docs, string(data))
		}

		fmt.Printf("Synthesizing research brief from %d document(s)...\n", len(docs))
		brief, err := research.NewSynthesizer(client).Synthesize(ctx, analysis, docs, audienceFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Research synthesis failed")
		}
		writeJSON(researchFile, brief)
		printBriefSummary(brief.PainPoints, brief.HookAngles, 0)
		return
	}

	pplx := newPerplexityClient()
	if !pplx.Configured() {
		fmt.Println("PERPLEXITY_API_KEY not set — research will be synthesized from the product analysis.")
	}

	fmt.Printf("Running deep research for %s...\n", analysis.Name)
	result, err := research.NewDeepPipeline(pplx, client).Run(ctx, analysis, analysis.Name, analysis.Category, audienceFlag)
	if result == nil || result.Brief == nil {
		log.Fatal().Err(err).Msg("Research failed")
	}
	if err != nil {
		log.Warn().Err(err).Msg("Research completed with failures")
	}

	writeJSON(researchFile, result.Brief)

	for _, step := range result.Steps {
		marker := "ok"
		if step.Status == research.StepFailed {
			marker = "FAILED"
		}
		fmt.Printf("  %-10s %-6s source=%s cost=$%.4f\n", step.Step, marker, step.Source, step.CostUSD)
	}
	printBriefSummary(result.Brief.PainPoints, result.Brief.HookAngles, result.TotalCostUSD)
}

func printBriefSummary(painPoints []string, hooks []pipeline.HookAngle, costUSD float64) {
	fmt.Println()
	fmt.Println("============================================")
	fmt.Printf("Pain points: %d\n", len(painPoints))
	for i, p := range painPoints {
		if i >= 3 {
			fmt.Println("  ...")
			break
		}
		fmt.Printf("  - %s\n", p)
	}
	fmt.Printf("Hook angles: %d\n", len(hooks))
	for i, h := range hooks {
		if i >= 3 {
			fmt.Println("  ...")
			break
		}
		fmt.Printf("  - %s\n", h.HookLine)
	}
	if costUSD > 0 {
		fmt.Printf("Research cost: $%.4f\n", costUSD)
	}
	fmt.Println("============================================")
}
