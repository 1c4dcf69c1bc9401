package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/prompts"
	"github.com/fpang/ugc-factory/internal/provider"
)

var (
	arollPromptOnlyFlag bool
	arollSegmentFlag    int
)

var arollCmd = &cobra.Command{
	Use:   "aroll",
	Short: "Render talking-head clips for dialogue segments",
	Long: `Aroll engineers a Veo dialogue prompt for every hook and A-roll segment,
then renders the talking-head clip against the character still so the speaker
matches across cuts. Writes aroll-NNN.mp4 and aroll-prompt-NNN.txt per
segment. With --prompt-only, only the prompts are written for hand-editing
before committing render budget; a later run picks the edited prompts up.`,
	Run: runAroll,
}

func init() {
	arollCmd.Flags().StringVar(&cameraViewFlag, "camera", string(prompts.ViewSelfie), "Camera framing: selfie or third-person")
	arollCmd.Flags().StringVar(&positionFlag, "position", "holding", "Product position relative to the character")
	arollCmd.Flags().StringVar(&accentFlag, "accent", "", "Creator accent / locale")
	arollCmd.Flags().BoolVar(&arollPromptOnlyFlag, "prompt-only", false, "Engineer prompts without rendering video")
	arollCmd.Flags().IntVarP(&arollSegmentFlag, "segment", "s", -1, "Render only this segment index")
}

func runAroll(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	gen := newGenerator(newGeminiClient(ctx), nil, nil, true)
	cc := prompts.CharacterContext{
		CameraView:      prompts.CameraView(cameraViewFlag),
		ProductPosition: positionFlag,
		Accent:          accentFlag,
	}

	var character provider.ReferenceImage
	if !arollPromptOnlyFlag {
		data, err := os.ReadFile(artifactPath(characterFile))
		if err != nil {
			log.Fatal().Err(err).Msg("Character still missing — run character first (or pass --prompt-only)")
		}
		character = provider.ReferenceImage{Data: data, MIMEType: "image/png"}
	}

	count := 0
	for _, seg := range loadSegments() {
		if seg.Type == pipeline.SegmentBroll {
			continue
		}
		if arollSegmentFlag >= 0 && seg.Index != arollSegmentFlag {
			continue
		}
		promptFile := fmt.Sprintf("aroll-prompt-%03d.txt", seg.Index)

		if arollPromptOnlyFlag {
			prompt, err := gen.ArollPrompt(ctx, seg, cc)
			if err != nil {
				log.Fatal().Err(err).Int("segment", seg.Index).Msg("A-roll prompt engineering failed")
			}
			writeBytes(promptFile, []byte(prompt+"\n"))
			count++
			continue
		}

		// A prompt file from an earlier --prompt-only run (possibly
		// hand-edited) wins over fresh engineering.
		customPrompt := ""
		if data, err := os.ReadFile(artifactPath(promptFile)); err == nil {
			customPrompt = strings.TrimSpace(string(data))
		}

		result, err := gen.Aroll(ctx, seg, cc, character, customPrompt)
		if err != nil {
			log.Fatal().Err(err).Int("segment", seg.Index).Msg("A-roll clip generation failed")
		}
		writeBytes(fmt.Sprintf("aroll-%03d.mp4", seg.Index), result.Video)
		if customPrompt == "" {
			writeBytes(promptFile, []byte(result.Prompt+"\n"))
		}
		count++
	}
	if count == 0 {
		log.Fatal().Msg("No matching dialogue segments in segments.json")
	}

	if arollPromptOnlyFlag {
		fmt.Printf("\nEngineered %d A-roll prompt(s)\n", count)
		return
	}
	fmt.Printf("\nRendered %d A-roll clip(s)\n", count)
}
