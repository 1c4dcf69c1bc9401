package gemini

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/jsonutil"
	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/prompts"
	"github.com/fpang/ugc-factory/internal/provider"
)

// AnalyzeProduct extracts a structured product record from one or more
// product photos. Additional angles of the same product sharpen the visual
// feature extraction; all images are sent in a single call.
func (c *Client) AnalyzeProduct(ctx context.Context, images []provider.ReferenceImage) (*pipeline.ProductAnalysis, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("analyze product: at least one image is required")
	}

	prompt := prompts.ProductAnalysisPrompt
	if len(images) > 1 {
		prompt = fmt.Sprintf("The %d images show the same product from different angles.\n\n%s", len(images), prompt)
	}

	res, err := c.AnalyzeImages(ctx, images, prompt)
	if err != nil {
		return nil, fmt.Errorf("analyze product: %w", err)
	}

	analysis, perr := jsonutil.ParseJSON[pipeline.ProductAnalysis]("gemini.analyzeProduct", res.Text)
	if perr != nil {
		return nil, perr
	}
	if analysis.Name == "" {
		analysis.Name = "Unknown Product"
	}

	log.Info().
		Str("product", analysis.Name).
		Str("category", analysis.Category).
		Int("images", len(images)).
		Msg("Product analysis complete")
	return &analysis, nil
}
