package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/prompts"
	"github.com/fpang/ugc-factory/internal/provider"
	"github.com/fpang/ugc-factory/internal/visuals"
)

var (
	disableQCFlag  bool
	maxRetriesFlag int
	cameraViewFlag string
	positionFlag   string
	settingFlag    string
	accentFlag     string
	brollLimitFlag int
)

var characterCmd = &cobra.Command{
	Use:   "character",
	Short: "Generate the UGC character still",
	Long: `Character engineers a creator persona from the product analysis, then
generates the character still against the product reference photo. The image
is scored and retried until it passes quality control. Writes character.png
and character-prompt.txt.`,
	Run: runCharacter,
}

var brollCmd = &cobra.Command{
	Use:   "broll",
	Short: "Generate B-roll stills for every non-dialogue segment",
	Long: `Broll generates one proof-shot still per B-roll segment, conditioned on
the character still and the product reference so hands, skin, and product
stay consistent across cuts. Segments are generated concurrently. Writes
broll-NNN.png and broll-prompt-NNN.txt per segment.`,
	Run: runBroll,
}

func init() {
	for _, cmd := range []*cobra.Command{characterCmd, brollCmd} {
		cmd.Flags().BoolVar(&disableQCFlag, "no-qc", false, "Skip quality scoring and accept the first image")
		cmd.Flags().IntVar(&maxRetriesFlag, "max-retries", -1, "Max QC regeneration attempts (0 = single attempt, -1 = default)")
	}
	characterCmd.Flags().StringVar(&cameraViewFlag, "camera", "", "Camera framing (e.g. \"selfie, arm's length\")")
	characterCmd.Flags().StringVar(&positionFlag, "position", "holding", "Product position relative to the character")
	characterCmd.Flags().StringVar(&settingFlag, "setting", "", "Scene setting (e.g. \"home office\")")
	characterCmd.Flags().StringVar(&accentFlag, "accent", "", "Creator accent / locale")
	characterCmd.Flags().StringVarP(&audienceFlag, "audience", "a", "", "Target audience the creator should embody")
	brollCmd.Flags().IntVar(&brollLimitFlag, "concurrency", 3, "Max segments generated in parallel")
}

// qcOptions translates the shared flags; -1 leaves the retry budget at the
// loop default, 0 and above pin it exactly.
func qcOptions() visuals.QCOptions {
	opts := visuals.QCOptions{Disable: disableQCFlag}
	if maxRetriesFlag >= 0 {
		opts.MaxRetries = &maxRetriesFlag
	}
	return opts
}

func runCharacter(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	analysis := loadAnalysis()
	productRef := loadProductReference()

	gen := newGenerator(newGeminiClient(ctx), nil, nil, disableQCFlag)
	result, err := gen.Character(ctx, analysis, prompts.CharacterContext{
		TargetAudience:  audienceFlag,
		CameraView:      prompts.CameraView(cameraViewFlag),
		ProductPosition: positionFlag,
		Setting:         settingFlag,
		Accent:          accentFlag,
	}, productRef, qcOptions())
	if err != nil {
		log.Fatal().Err(err).Msg("Character generation failed")
	}

	writeBytes(characterFile, result.Image)
	writeBytes("character-prompt.txt", []byte(result.Prompt+"\n"))
	fmt.Printf("\nAccepted after %d attempt(s)", result.Attempts)
	if result.Assessment != nil {
		fmt.Printf(", score %d/100", result.Assessment.Score)
	}
	fmt.Println()
}

func runBroll(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	analysis := loadAnalysis()
	segments := loadSegments()

	refs := []provider.ReferenceImage{loadProductReference()}
	if data, err := os.ReadFile(artifactPath(characterFile)); err == nil {
		refs = append([]provider.ReferenceImage{{
			Data:     data,
			MIMEType: "image/png",
			Label:    "Character reference:",
		}}, refs...)
	} else {
		log.Warn().Msg("No character still found — B-roll will not be identity-matched")
	}

	var targets []pipeline.ScriptSegment
	for _, seg := range segments {
		if seg.Type == pipeline.SegmentBroll {
			targets = append(targets, seg)
		}
	}
	if len(targets) == 0 {
		log.Fatal().Msg("No B-roll segments in segments.json")
	}
	fmt.Printf("Generating %d B-roll still(s)...\n", len(targets))

	gen := newGenerator(newGeminiClient(ctx), nil, nil, disableQCFlag)
	opts := qcOptions()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(brollLimitFlag)
	for _, seg := range targets {
		g.Go(func() error {
			result, err := gen.Broll(gctx, seg, analysis, refs, opts)
			if err != nil {
				return fmt.Errorf("segment %d: %w", seg.Index, err)
			}
			mu.Lock()
			defer mu.Unlock()
			writeBytes(fmt.Sprintf("broll-%03d.png", seg.Index), result.Image)
			writeBytes(fmt.Sprintf("broll-prompt-%03d.txt", seg.Index), []byte(result.Prompt+"\n"))
			fmt.Printf("  segment %2d: accepted after %d attempt(s)\n", seg.Index, result.Attempts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("B-roll generation failed")
	}
	fmt.Println("\nAll B-roll stills generated")
}
