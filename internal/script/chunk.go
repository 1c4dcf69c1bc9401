// Package script splits a full ad script into speakable segments suitable
// for clip-by-clip video generation.
package script

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/jsonutil"
	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/prompts"
	"github.com/fpang/ugc-factory/internal/provider"
)

// Speaking-rate assumption for duration estimates.
const wordsPerMinute = 150

// Target clip length bounds in seconds.
const (
	MinSegmentSeconds = 5
	MaxSegmentSeconds = 8
)

// Chunker splits scripts with a structured model call.
type Chunker struct {
	gen provider.StructuredGenerator
}

func NewChunker(gen provider.StructuredGenerator) *Chunker {
	return &Chunker{gen: gen}
}

// Chunk splits fullScript into 5-8 second segments, never breaking
// mid-sentence. The first segment is the hook. Segments come back in temporal
// order with 1-based indices and a duration estimate attached.
func (c *Chunker) Chunk(ctx context.Context, fullScript string) ([]pipeline.ScriptSegment, error) {
	fullScript = strings.TrimSpace(fullScript)
	if fullScript == "" {
		return nil, fmt.Errorf("chunk script: empty script")
	}

	res, err := c.gen.GenerateStructured(ctx, prompts.ScriptChunkSystemPrompt,
		prompts.ChunkUserPrompt(fullScript),
		provider.GenOptions{Task: "chunk-script", MaxTokens: 4096})
	if err != nil {
		return nil, fmt.Errorf("chunk script: %w", err)
	}

	segments, perr := jsonutil.ParseJSON[[]pipeline.ScriptSegment]("script.chunk", res.Text)
	if perr != nil {
		return nil, perr
	}
	if len(segments) == 0 {
		return nil, pipeline.NewError(pipeline.KindParse, "script.chunk",
			fmt.Errorf("model returned no segments"))
	}

	normalize(segments)
	log.Info().
		Int("segments", len(segments)).
		Float64("totalSeconds", totalDuration(segments)).
		Msg("Script chunked")
	return segments, nil
}

// normalize re-sorts by the model's segment numbers, reassigns contiguous
// 1-based indices, defaults missing types, forces the first segment to hook,
// and fills duration estimates.
func normalize(segments []pipeline.ScriptSegment) {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Index < segments[j].Index
	})
	for i := range segments {
		segments[i].Index = i + 1
		segments[i].Text = strings.TrimSpace(segments[i].Text)
		if segments[i].Type == "" {
			segments[i].Type = pipeline.SegmentAroll
		}
		if segments[i].DurationSeconds == 0 {
			segments[i].DurationSeconds = EstimateDuration(segments[i].Text)
		}
	}
	segments[0].Type = pipeline.SegmentHook
}

// EstimateDuration approximates speaking time at 150 words per minute.
func EstimateDuration(text string) float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return float64(words) / wordsPerMinute * 60
}

// FitsInClip reports whether a segment's estimated duration sits within the
// target clip bounds. Segments outside the band still generate; this is a
// lint signal for the caller, not a hard constraint.
func FitsInClip(seg pipeline.ScriptSegment) bool {
	d := seg.DurationSeconds
	if d == 0 {
		d = EstimateDuration(seg.Text)
	}
	return d >= MinSegmentSeconds && d <= MaxSegmentSeconds
}

func totalDuration(segments []pipeline.ScriptSegment) float64 {
	var total float64
	for _, s := range segments {
		total += s.DurationSeconds
	}
	return total
}
