package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ugc-factory/internal/assembly"
	"github.com/fpang/ugc-factory/internal/pipeline"
)

var assembleVoiceoverFlag bool

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Analyze the generated clips and produce an editing plan",
	Long: `Assemble runs a multimodal pass over the generated stills and the script
and writes a step-by-step CapCut editing plan plus a compact timeline. The
character still stands in for the A-roll clips and the B-roll stills for
their animations. Writes assembly-plan.md.`,
	Run: runAssemble,
}

func init() {
	assembleCmd.Flags().BoolVar(&assembleVoiceoverFlag, "voiceover", false, "Plan around a separately recorded voiceover track")
}

func runAssemble(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	segments := loadSegments()
	analysis := loadAnalysis()

	var aroll, broll []assembly.Clip
	characterStill, err := os.ReadFile(artifactPath(characterFile))
	if err != nil {
		log.Warn().Msg("No character still found — A-roll clips will not be represented in the plan")
	}
	for _, seg := range segments {
		if seg.Type == pipeline.SegmentBroll {
			if data, err := os.ReadFile(artifactPath(fmt.Sprintf("broll-%03d.png", seg.Index))); err == nil {
				broll = append(broll, assembly.Clip{Segment: seg.Index, Frame: data, MIMEType: "image/png"})
			}
			continue
		}
		if len(characterStill) > 0 {
			aroll = append(aroll, assembly.Clip{Segment: seg.Index, Frame: characterStill, MIMEType: "image/png"})
		}
	}
	if len(aroll)+len(broll) == 0 {
		log.Fatal().Msg("No generated stills found — run character and broll first")
	}

	g := newGeminiClient(ctx)
	analyzer := assembly.NewAnalyzer(g, g)
	plan, err := analyzer.Plan(ctx, assembly.Input{
		Segments:     segments,
		Product:      analysis,
		Aroll:        aroll,
		Broll:        broll,
		HasVoiceover: assembleVoiceoverFlag,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Assembly analysis failed")
	}

	content := "# Editing plan\n\n" + plan.Guide + "\n"
	if plan.Timeline != "" {
		content += "\n## Timeline\n\n```\n" + plan.Timeline + "\n```\n"
	}
	writeBytes("assembly-plan.md", []byte(content))

	if plan.Timeline != "" {
		fmt.Printf("\n%s\n", plan.Timeline)
	}
	fmt.Printf("\nAnalyzed %d A-roll and %d B-roll clip(s)\n", plan.Aroll, plan.Broll)
}
