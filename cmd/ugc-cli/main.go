// Package main provides a local CLI for the UGC ad generation pipeline.
//
// The CLI runs the same stages as the API Lambda but works against local
// files: product photos in, JSON artifacts and generated media out. Provider
// API keys come from the environment or a .env file; no AWS resources are
// required.
//
// Typical flow:
//
//	ugc-cli analyze  -w workdir -i product.jpg
//	ugc-cli research -w workdir --audience "office workers with back pain"
//	ugc-cli generate -w workdir --type script
//	ugc-cli chunk    -w workdir
//	ugc-cli character -w workdir
//	ugc-cli broll    -w workdir
//	ugc-cli aroll    -w workdir
//	ugc-cli animate  -w workdir --segment 3
//	ugc-cli voice    -w workdir
//	ugc-cli assemble -w workdir
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ugc-factory/internal/logging"
)

// Persistent flags
var (
	workdirFlag string
	envFileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "ugc-cli",
	Short: "AI-generated UGC video ads from a product photo",
	Long: `ugc-cli turns a product photo into the building blocks of a UGC-style
video ad: structured product analysis, customer research, an ad script cut
into 5-8 second segments, character and B-roll stills with automated quality
control, A-roll talking-head clips, B-roll animation, voiceover, and an
assembly plan for the edit.

Artifacts are plain files in the working directory (default "."), so every
stage can be inspected and re-run independently.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
		if err := godotenv.Load(envFileFlag); err != nil && envFileFlag != ".env" {
			log.Fatal().Err(err).Str("file", envFileFlag).Msg("Failed to load env file")
		}
		if err := os.MkdirAll(workdirFlag, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", workdirFlag).Msg("Failed to create working directory")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workdirFlag, "workdir", "w", ".", "Working directory for pipeline artifacts")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", ".env", "Env file with provider API keys")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(characterCmd)
	rootCmd.AddCommand(brollCmd)
	rootCmd.AddCommand(arollCmd)
	rootCmd.AddCommand(animateCmd)
	rootCmd.AddCommand(voiceCmd)
	rootCmd.AddCommand(voicesCmd)
	rootCmd.AddCommand(assembleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
