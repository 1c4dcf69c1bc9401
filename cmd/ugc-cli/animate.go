package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ugc-factory/internal/pipeline"
)

var (
	animateSegmentFlag int
	animateNoWaitFlag  bool
)

var animateCmd = &cobra.Command{
	Use:   "animate",
	Short: "Animate one B-roll still into a video clip",
	Long: `Animate submits the B-roll still for a segment to the image-to-video
provider with an engineered motion prompt, waits for completion, and
downloads the clip as broll-NNN.mp4. Use --no-wait to submit and exit;
result URLs from the provider expire, so the clip is downloaded as soon
as the task finishes.`,
	Run: runAnimate,
}

func init() {
	animateCmd.Flags().IntVarP(&animateSegmentFlag, "segment", "s", 0, "Segment index to animate")
	animateCmd.Flags().BoolVar(&animateNoWaitFlag, "no-wait", false, "Submit the task and print its ID without waiting")
	animateCmd.MarkFlagRequired("segment")
}

func runAnimate(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	var segment *pipeline.ScriptSegment
	for _, seg := range loadSegments() {
		if seg.Index == animateSegmentFlag {
			segment = &seg
			break
		}
	}
	if segment == nil {
		log.Fatal().Int("segment", animateSegmentFlag).Msg("Segment not found in segments.json")
	}
	if segment.Type != pipeline.SegmentBroll {
		log.Fatal().Int("segment", animateSegmentFlag).Str("type", string(segment.Type)).Msg("Only B-roll segments are animated")
	}

	still, err := os.ReadFile(artifactPath(fmt.Sprintf("broll-%03d.png", segment.Index)))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read B-roll still — run broll first")
	}
	promptData, err := os.ReadFile(artifactPath(fmt.Sprintf("broll-prompt-%03d.txt", segment.Index)))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read B-roll prompt sidecar — run broll first")
	}

	gen := newGenerator(newGeminiClient(ctx), newKlingClient(), nil, true)
	result, err := gen.Animate(ctx, still, strings.TrimSpace(string(promptData)), *segment)
	if err != nil {
		log.Fatal().Err(err).Msg("Animation submit failed")
	}
	fmt.Printf("Task %s submitted\nMotion prompt: %s\n", result.TaskID, result.MotionPrompt)
	if animateNoWaitFlag {
		return
	}

	fmt.Println("Waiting for the clip to render...")
	task, err := gen.AwaitAnimation(ctx, result.TaskID)
	if err != nil {
		log.Fatal().Err(err).Str("taskId", result.TaskID).Msg("Animation failed")
	}
	path := downloadClip(ctx, task.ResultURL, fmt.Sprintf("broll-%03d.mp4", segment.Index))
	fmt.Printf("Clip ready: %s\n", path)
}

func downloadClip(ctx context.Context, url, name string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build download request")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal().Err(err).Msg("Clip download failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal().Int("status", resp.StatusCode).Str("url", url).Msg("Clip download failed")
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatal().Err(err).Msg("Clip download failed")
	}
	return writeBytes(name, data)
}
