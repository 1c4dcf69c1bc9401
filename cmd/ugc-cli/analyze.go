package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ugc-factory/internal/provider"
)

var analyzeImagesFlag []string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Extract a structured product analysis from product photos",
	Long: `Analyze sends one or more product photos to the vision model and writes
the structured analysis (name, category, features, benefits, target
demographic, ad hooks) to analysis.json. The first photo is archived in the
working directory as the reference image for later generation stages.`,
	Run: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringSliceVarP(&analyzeImagesFlag, "image", "i", nil, "Product photo path (repeatable for multiple angles)")
	analyzeCmd.MarkFlagRequired("image")
}

func runAnalyze(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	client := newGeminiClient(ctx)

	var images []provider.ReferenceImage
	for _, path := range analyzeImagesFlag {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to read product photo")
		}
		images = append(images, provider.ReferenceImage{
			Data:     data,
			MIMEType: mimeForExt(filepath.Ext(path)),
		})
	}

	fmt.Printf("Analyzing %d product photo(s)...\n", len(images))
	analysis, err := client.AnalyzeProduct(ctx, images)
	if err != nil {
		log.Fatal().Err(err).Msg("Product analysis failed")
	}

	writeJSON(analysisFile, analysis)

	// Archive the primary photo for reference-image conditioning later.
	ext := strings.ToLower(filepath.Ext(analyzeImagesFlag[0]))
	if ext != ".png" && ext != ".webp" {
		ext = ".jpg"
	}
	writeBytes(productFile+ext, images[0].Data)

	fmt.Println()
	fmt.Println("============================================")
	fmt.Printf("Product:  %s\n", analysis.Name)
	fmt.Printf("Category: %s\n", analysis.Category)
	if analysis.ProblemSolved != "" {
		fmt.Printf("Solves:   %s\n", analysis.ProblemSolved)
	}
	if analysis.Positioning.USP != "" {
		fmt.Printf("USP:      %s\n", analysis.Positioning.USP)
	}
	fmt.Println("============================================")
}
