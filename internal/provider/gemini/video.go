package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/provider"
)

// Veo renders through a long-running operation. Poll every 10s and give a
// clip eight minutes end to end before declaring a timeout.
const (
	videoPollInterval = 10 * time.Second
	videoMaxWait      = 8 * time.Minute
)

// A-roll clips are fixed-length vertical segments; the script chunker caps
// dialogue at 8 seconds to fit them.
const avatarClipSeconds = 8

var _ provider.AvatarVideoSynthesizer = (*Client)(nil)

// SynthesizeAvatarVideo renders a talking-head dialogue clip on Veo,
// conditioned on the character reference still so the speaker matches the
// approved character across segments. Blocks until the operation completes,
// downloading the clip bytes before returning.
func (c *Client) SynthesizeAvatarVideo(ctx context.Context, prompt string, character provider.ReferenceImage) (*provider.AvatarVideoResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	mime := character.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	image := &genai.Image{ImageBytes: character.Data, MIMEType: mime}
	config := &genai.GenerateVideosConfig{
		AspectRatio:     "9:16",
		DurationSeconds: genai.Ptr(int32(avatarClipSeconds)),
	}

	callStart := time.Now()
	op, err := c.client.Models.GenerateVideos(ctx, ModelVeo31, prompt, image, config)
	if err != nil {
		log.Error().Err(err).Str("model", ModelVeo31).Msg("Veo video submission failed")
		return nil, fmt.Errorf("gemini generate video: %w", err)
	}

	deadline := callStart.Add(videoMaxWait)
	for !op.Done {
		if time.Now().After(deadline) {
			return nil, pipeline.NewError(pipeline.KindTimeout, "gemini.video",
				fmt.Errorf("operation %s did not complete within %s", op.Name, videoMaxWait))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(videoPollInterval):
		}
		op, err = c.client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return nil, fmt.Errorf("gemini poll video operation: %w", err)
		}
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return nil, pipeline.NewError(pipeline.KindCapability, "gemini.video",
			fmt.Errorf("operation %s completed without a video", op.Name))
	}
	video := op.Response.GeneratedVideos[0].Video
	if video == nil {
		return nil, pipeline.NewError(pipeline.KindCapability, "gemini.video",
			fmt.Errorf("operation %s returned an empty video slot", op.Name))
	}
	if len(video.VideoBytes) == 0 {
		data, err := c.client.Files.Download(ctx, video, nil)
		if err != nil {
			return nil, fmt.Errorf("gemini download video: %w", err)
		}
		if len(data) > 0 {
			video.VideoBytes = data
		}
	}
	if len(video.VideoBytes) == 0 {
		return nil, pipeline.NewError(pipeline.KindCapability, "gemini.video",
			fmt.Errorf("video %s has no retrievable bytes", video.URI))
	}

	mimeType := video.MIMEType
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	log.Info().
		Str("model", ModelVeo31).
		Int("videoBytes", len(video.VideoBytes)).
		Dur("duration", time.Since(callStart)).
		Msg("Veo video rendered")
	return &provider.AvatarVideoResult{Video: video.VideoBytes, MIMEType: mimeType, Model: ModelVeo31}, nil
}
