// Package main provides the Lambda entry point for the UGC ad generation API.
//
// It fronts the full pipeline behind API Gateway: product analysis, market
// research, per-field text generation, script chunking, and visual asset
// generation. Project state lives in DynamoDB; generated media and research
// archives live in S3.
//
// Endpoints:
//
//	GET  /api/health                  — health check
//	POST /api/project                 — create a project
//	GET  /api/project/{id}            — project metadata + analysis
//	GET  /api/project/{id}/assets     — generated asset records
//	GET  /api/project/{id}/segments   — chunked script segments
//	POST /api/analyze-product         — extract structured analysis from product photos
//	POST /api/research/start          — start deep market research (async)
//	GET  /api/research/{id}/results   — poll research job
//	POST /api/ai-generate             — per-field text generation / refinement
//	POST /api/chunk-script            — split a script into 5-8s segments
//	POST /api/generate-character      — character still with quality control
//	POST /api/generate-broll          — B-roll still with quality control
//	POST /api/generate-aroll          — talking-head clip for one dialogue segment
//	POST /api/animate-broll           — submit image-to-video animation
//	GET  /api/task/{taskId}           — poll an animation task
//	POST /api/generate-voice          — voiceover for one segment
//	GET  /api/voices                  — speech provider voice catalog
//	POST /api/analyze-assembly        — multimodal editing plan for finished clips
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/assembly"
	"github.com/fpang/ugc-factory/internal/lambdaboot"
	"github.com/fpang/ugc-factory/internal/logging"
	"github.com/fpang/ugc-factory/internal/provider"
	"github.com/fpang/ugc-factory/internal/provider/elevenlabs"
	"github.com/fpang/ugc-factory/internal/provider/gemini"
	"github.com/fpang/ugc-factory/internal/provider/kling"
	"github.com/fpang/ugc-factory/internal/provider/perplexity"
	"github.com/fpang/ugc-factory/internal/qc"
	"github.com/fpang/ugc-factory/internal/research"
	"github.com/fpang/ugc-factory/internal/script"
	"github.com/fpang/ugc-factory/internal/store"
	"github.com/fpang/ugc-factory/internal/textgen"
	"github.com/fpang/ugc-factory/internal/visuals"
)

// Clients and services initialized at cold start.
var (
	geminiClient *gemini.Client
	imageClient  *gemini.ImageClient
	klingClient  *kling.Client
	elevenClient *elevenlabs.Client
	pplxClient   *perplexity.Client

	projects *store.DynamoStore
	assets   *store.AssetStore

	textService  *textgen.Service
	chunker      *script.Chunker
	synthesizer  *research.Synthesizer
	deepPipeline *research.DeepPipeline
	generator    *visuals.Generator
	assembler    *assembly.Analyzer

	originVerifySecret string
)

func init() {
	initStart := time.Now()
	logging.InitJSON()

	aws := lambdaboot.InitAWS()
	lambdaboot.LoadProviderKeys(aws.SSM)

	s3c := lambdaboot.InitS3(aws.Config, "ASSETS_BUCKET_NAME")
	assets = s3c.AssetStore()
	projects = lambdaboot.InitDynamo(aws.Config, "PROJECTS_TABLE_NAME")

	ctx := context.Background()
	geminiKey := os.Getenv("GEMINI_API_KEY")

	var err error
	geminiClient, err = gemini.NewClient(ctx, geminiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	imageClient = gemini.NewImageClient(geminiKey)

	if ak, sk := os.Getenv("KLING_ACCESS_KEY"), os.Getenv("KLING_SECRET_KEY"); ak != "" && sk != "" {
		klingClient, err = kling.NewClient(ak, sk)
		if err != nil {
			log.Warn().Err(err).Msg("Kling client init failed — animation disabled")
		}
	}
	if key := os.Getenv("ELEVENLABS_API_KEY"); key != "" {
		elevenClient, err = elevenlabs.NewClient(key)
		if err != nil {
			log.Warn().Err(err).Msg("ElevenLabs client init failed — voiceover disabled")
		}
	}
	pplxClient = perplexity.NewClient(os.Getenv("PERPLEXITY_API_KEY"))

	textService = textgen.NewService(geminiClient)
	chunker = script.NewChunker(geminiClient)
	synthesizer = research.NewSynthesizer(geminiClient)
	deepPipeline = research.NewDeepPipeline(pplxClient, geminiClient)
	scorer := qc.NewScorer(geminiClient, geminiClient)
	generator = visuals.NewGenerator(geminiClient, imageClient, videoOrNil(), geminiClient, speechOrNil(), scorer)
	assembler = assembly.NewAnalyzer(geminiClient, geminiClient)

	originVerifySecret = os.Getenv("ORIGIN_VERIFY_SECRET")
	if originVerifySecret == "" {
		log.Warn().Msg("ORIGIN_VERIFY_SECRET not set — origin verification disabled")
	}

	lambdaboot.StartupLog("ad-lambda", initStart).
		S3Bucket("assets", s3c.Bucket).
		DynamoTable("projects", os.Getenv("PROJECTS_TABLE_NAME")).
		Provider("gemini", geminiKey != "").
		Provider("perplexity", pplxClient.Configured()).
		Provider("kling", klingClient != nil).
		Provider("elevenlabs", elevenClient != nil).
		Log()
}

// videoOrNil avoids a typed-nil interface when Kling is unconfigured.
func videoOrNil() provider.VideoSynthesizer {
	if klingClient == nil {
		return nil
	}
	return klingClient
}

func speechOrNil() provider.SpeechSynthesizer {
	if elevenClient == nil {
		return nil
	}
	return elevenClient
}

// withOriginVerify rejects requests lacking the shared CloudFront header so
// direct API Gateway access is blocked.
func withOriginVerify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if originVerifySecret == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("x-origin-verify") != originVerifySecret {
			log.Warn().Str("path", r.URL.Path).Msg("Blocked request: missing or invalid x-origin-verify header")
			httpError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", handleHealth)
	mux.HandleFunc("/api/project", handleProjectCreate)
	mux.HandleFunc("/api/project/", handleProjectRoutes)
	mux.HandleFunc("/api/analyze-product", handleAnalyzeProduct)
	mux.HandleFunc("/api/research/start", handleResearchStart)
	mux.HandleFunc("/api/research/", handleResearchRoutes)
	mux.HandleFunc("/api/ai-generate", handleAIGenerate)
	mux.HandleFunc("/api/chunk-script", handleChunkScript)
	mux.HandleFunc("/api/generate-character", handleGenerateCharacter)
	mux.HandleFunc("/api/generate-broll", handleGenerateBroll)
	mux.HandleFunc("/api/generate-aroll", handleGenerateAroll)
	mux.HandleFunc("/api/animate-broll", handleAnimateBroll)
	mux.HandleFunc("/api/task/", handleTaskStatus)
	mux.HandleFunc("/api/generate-voice", handleGenerateVoice)
	mux.HandleFunc("/api/voices", handleVoices)
	mux.HandleFunc("/api/analyze-assembly", handleAnalyzeAssembly)

	handler := withOriginVerify(mux)

	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "ugc-factory",
	})
}
