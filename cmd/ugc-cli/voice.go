package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ugc-factory/internal/provider"
)

var (
	voiceIDFlag        string
	voiceSegmentFlag   int
	voiceStabilityFlag float64
	voiceSimilarity    float64
	voiceStyleFlag     float64
)

var voiceCmd = &cobra.Command{
	Use:   "voice",
	Short: "Synthesize voiceover audio for script segments",
	Long: `Voice synthesizes the voiceover for every dialogue-bearing segment in
segments.json (or a single segment with --segment) and writes one
voice-NNN.mp3 per segment.`,
	Run: runVoice,
}

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the available voices",
	Run:   runVoices,
}

func init() {
	voiceCmd.Flags().StringVar(&voiceIDFlag, "voice", "", "Voice ID to synthesize with")
	voiceCmd.Flags().IntVarP(&voiceSegmentFlag, "segment", "s", -1, "Only synthesize this segment index")
	voiceCmd.Flags().Float64Var(&voiceStabilityFlag, "stability", 0.5, "Voice stability (0-1)")
	voiceCmd.Flags().Float64Var(&voiceSimilarity, "similarity", 0.75, "Similarity boost (0-1)")
	voiceCmd.Flags().Float64Var(&voiceStyleFlag, "style", 0, "Style exaggeration (0-1)")
	voiceCmd.MarkFlagRequired("voice")
}

func runVoice(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	client := newElevenLabsClient()
	settings := provider.VoiceSettings{
		Stability:       voiceStabilityFlag,
		SimilarityBoost: voiceSimilarity,
		Style:           voiceStyleFlag,
		SpeakerBoost:    true,
	}

	count := 0
	for _, seg := range loadSegments() {
		if voiceSegmentFlag >= 0 && seg.Index != voiceSegmentFlag {
			continue
		}
		if seg.Text == "" {
			continue
		}
		result, err := client.Synthesize(ctx, seg.Text, voiceIDFlag, settings)
		if err != nil {
			log.Fatal().Err(err).Int("segment", seg.Index).Msg("Voiceover synthesis failed")
		}
		writeBytes(fmt.Sprintf("voice-%03d.mp3", seg.Index), result.Audio)
		count++
	}
	if count == 0 {
		log.Fatal().Msg("No matching segments to synthesize")
	}
	fmt.Printf("\nSynthesized %d voiceover clip(s)\n", count)
}

func runVoices(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	voices, err := newElevenLabsClient().Voices(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list voices")
	}
	for _, v := range voices {
		fmt.Printf("  %-24s %-12s %s\n", v.ID, v.Category, v.Name)
	}
	fmt.Printf("\n%d voice(s)\n", len(voices))
}
