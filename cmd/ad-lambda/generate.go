package main

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/prompts"
	"github.com/fpang/ugc-factory/internal/provider"
	"github.com/fpang/ugc-factory/internal/store"
	"github.com/fpang/ugc-factory/internal/visuals"
)

// qcRequest is the quality-control knob shared by the visual endpoints.
// maxRetries is a pointer so an explicit 0 (single attempt, no regeneration)
// survives decoding; an omitted field means the loop default.
type qcRequest struct {
	DisableQC  bool `json:"disableQc"`
	MaxRetries *int `json:"maxRetries"`
}

func (q qcRequest) options() visuals.QCOptions {
	return visuals.QCOptions{Disable: q.DisableQC, MaxRetries: q.MaxRetries}
}

// POST /api/generate-character
// Body: {"projectId": "uuid", "targetAudience": "...", "cameraView": "selfie",
//
//	"productPosition": "holding", "setting": "home office", "disableQc": false}
func handleGenerateCharacter(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		ProjectID       string `json:"projectId"`
		TargetAudience  string `json:"targetAudience"`
		CameraView      string `json:"cameraView"`
		ProductPosition string `json:"productPosition"`
		Setting         string `json:"setting"`
		Accent          string `json:"accent"`
		qcRequest
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateProjectID(req.ProjectID); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := projects.GetProject(r.Context(), req.ProjectID)
	if err != nil || project == nil {
		httpError(w, http.StatusNotFound, "not found")
		return
	}
	if project.Analysis == nil {
		httpError(w, http.StatusConflict, "analyze the product before generating a character")
		return
	}
	productRef, err := loadProductReference(r.Context(), project)
	if err != nil {
		httpError(w, http.StatusConflict, "product reference image unavailable", err.Error())
		return
	}

	position := req.ProductPosition
	if position == "" {
		position = "holding"
	}
	cc := prompts.CharacterContext{
		TargetAudience:  req.TargetAudience,
		CameraView:      prompts.CameraView(req.CameraView),
		ProductPosition: position,
		Setting:         req.Setting,
		Accent:          req.Accent,
	}

	result, err := generator.Character(r.Context(), project.Analysis, cc, productRef, req.options())
	if err != nil {
		httpError(w, http.StatusBadGateway, "character generation failed", err.Error())
		return
	}

	rec := &store.AssetRecord{
		Kind:     store.AssetCharacter,
		Segment:  0,
		Provider: "gemini",
		Prompt:   result.Prompt,
		Attempts: result.Attempts,
	}
	if result.Assessment != nil {
		rec.Score = result.Assessment.Score
	}
	url, err := persistImageAsset(r, req.ProjectID, rec, result.Image, result.MIMEType)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to save character", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"asset":      rec,
		"url":        url,
		"assessment": result.Assessment,
	})
}

// POST /api/generate-broll
// Body: {"projectId": "uuid", "segment": 3, "scriptLine": "...", "disableQc": false}
func handleGenerateBroll(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		ProjectID  string `json:"projectId"`
		Segment    int    `json:"segment"`
		ScriptLine string `json:"scriptLine"`
		qcRequest
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateProjectID(req.ProjectID); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := projects.GetProject(r.Context(), req.ProjectID)
	if err != nil || project == nil {
		httpError(w, http.StatusNotFound, "not found")
		return
	}

	segment, ok := segmentForProject(r, req.ProjectID, req.Segment, req.ScriptLine, pipeline.SegmentBroll)
	if !ok {
		httpError(w, http.StatusBadRequest, "segment not found; chunk the script or supply scriptLine")
		return
	}

	refs := referenceImages(r, project)
	result, err := generator.Broll(r.Context(), segment, project.Analysis, refs, req.options())
	if err != nil {
		httpError(w, http.StatusBadGateway, "broll generation failed", err.Error())
		return
	}

	rec := &store.AssetRecord{
		Kind:     store.AssetBroll,
		Segment:  segment.Index,
		Provider: "gemini",
		Prompt:   result.Prompt,
		Attempts: result.Attempts,
	}
	if result.Assessment != nil {
		rec.Score = result.Assessment.Score
	}
	url, err := persistImageAsset(r, req.ProjectID, rec, result.Image, result.MIMEType)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to save broll", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"asset":      rec,
		"url":        url,
		"assessment": result.Assessment,
	})
}

// POST /api/generate-aroll
// Body: {"projectId": "uuid", "segment": 1, "text": "...", "customPrompt": "...",
//
//	"cameraView": "selfie", "productPosition": "holding", "accent": "..."}
//
// Renders the talking-head clip for one dialogue segment on Veo, conditioned
// on the approved character still.
func handleGenerateAroll(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		ProjectID       string `json:"projectId"`
		Segment         int    `json:"segment"`
		Text            string `json:"text"`
		CustomPrompt    string `json:"customPrompt"`
		CameraView      string `json:"cameraView"`
		ProductPosition string `json:"productPosition"`
		Accent          string `json:"accent"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateProjectID(req.ProjectID); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	charRec, err := projects.GetAsset(r.Context(), req.ProjectID, store.AssetCharacter, 0)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load character asset", err.Error())
		return
	}
	if charRec == nil || charRec.S3Key == "" {
		httpError(w, http.StatusConflict, "generate the character before rendering a-roll")
		return
	}
	characterImage, err := assets.Download(r.Context(), charRec.S3Key)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load character image", err.Error())
		return
	}

	segment, ok := segmentForProject(r, req.ProjectID, req.Segment, req.Text, pipeline.SegmentAroll)
	if !ok && req.CustomPrompt == "" {
		httpError(w, http.StatusBadRequest, "segment not found; chunk the script, supply text, or supply customPrompt")
		return
	}

	cc := prompts.CharacterContext{
		CameraView:      prompts.CameraView(req.CameraView),
		ProductPosition: req.ProductPosition,
		Accent:          req.Accent,
	}
	result, err := generator.Aroll(r.Context(), segment, cc, provider.ReferenceImage{
		Data:     characterImage,
		MIMEType: "image/png",
	}, req.CustomPrompt)
	if err != nil {
		httpError(w, http.StatusBadGateway, "aroll generation failed", err.Error())
		return
	}

	rec := &store.AssetRecord{
		Kind:     store.AssetAroll,
		Segment:  segment.Index,
		Provider: "gemini",
		Prompt:   result.Prompt,
	}
	key := store.AssetKey(req.ProjectID, store.AssetAroll, segment.Index, ".mp4")
	if _, err := assets.Upload(r.Context(), key, result.MIMEType, result.Video); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to save aroll clip", err.Error())
		return
	}
	rec.S3Key = key
	if err := projects.PutAsset(r.Context(), req.ProjectID, rec); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to save aroll record", err.Error())
		return
	}

	url, _ := assets.PresignGet(r.Context(), key)
	respondJSON(w, http.StatusOK, map[string]any{
		"asset":  rec,
		"url":    url,
		"prompt": result.Prompt,
	})
}

// referenceImages assembles the conditioning set for B-roll: the approved
// character still (identity continuity) plus the product photo.
func referenceImages(r *http.Request, project *store.Project) []provider.ReferenceImage {
	var refs []provider.ReferenceImage
	if char, err := projects.GetAsset(r.Context(), project.ProjectID, store.AssetCharacter, 0); err == nil && char != nil && char.S3Key != "" {
		if data, err := assets.Download(r.Context(), char.S3Key); err == nil {
			refs = append(refs, provider.ReferenceImage{Data: data, MIMEType: "image/png", Label: "Character reference:"})
		}
	}
	if ref, err := loadProductReference(r.Context(), project); err == nil {
		refs = append(refs, ref)
	}
	return refs
}

// POST /api/animate-broll
// Body: {"projectId": "uuid", "segment": 3}
func handleAnimateBroll(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		ProjectID string `json:"projectId"`
		Segment   int    `json:"segment"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateProjectID(req.ProjectID); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	brollRec, err := projects.GetAsset(r.Context(), req.ProjectID, store.AssetBroll, req.Segment)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load broll asset", err.Error())
		return
	}
	if brollRec == nil || brollRec.S3Key == "" {
		httpError(w, http.StatusConflict, "generate the broll still before animating it")
		return
	}
	image, err := assets.Download(r.Context(), brollRec.S3Key)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load broll image", err.Error())
		return
	}

	segment, ok := segmentForProject(r, req.ProjectID, req.Segment, "", pipeline.SegmentBroll)
	if !ok {
		httpError(w, http.StatusConflict, "segment not found; chunk the script first")
		return
	}

	result, err := generator.Animate(r.Context(), image, brollRec.Prompt, segment)
	if err != nil {
		status := http.StatusBadGateway
		if pipeline.KindOf(err) == pipeline.KindCapability && generatorVideoMissing() {
			status = http.StatusNotImplemented
		}
		httpError(w, status, "animation failed", err.Error())
		return
	}

	if err := projects.PutAsset(r.Context(), req.ProjectID, &store.AssetRecord{
		Kind:     store.AssetVideo,
		Segment:  segment.Index,
		TaskID:   result.TaskID,
		Provider: "kling",
		Prompt:   result.MotionPrompt,
	}); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to save animation task", err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"taskId":       result.TaskID,
		"motionPrompt": result.MotionPrompt,
	})
}

func generatorVideoMissing() bool {
	return klingClient == nil
}

// GET /api/task/{taskId}
func handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	taskID := strings.TrimPrefix(r.URL.Path, "/api/task/")
	if taskID == "" || strings.Contains(taskID, "/") {
		httpError(w, http.StatusNotFound, "not found")
		return
	}

	result, err := generator.PollAnimation(r.Context(), taskID)
	if err != nil {
		httpError(w, http.StatusBadGateway, "task poll failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"taskId":    result.ID,
		"status":    result.Status,
		"resultUrl": result.ResultURL,
	})
}

// POST /api/generate-voice
// Body: {"projectId": "uuid", "segment": 1, "voiceId": "...", "settings": {...}}
func handleGenerateVoice(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		ProjectID string `json:"projectId"`
		Segment   int    `json:"segment"`
		Text      string `json:"text"`
		VoiceID   string `json:"voiceId"`
		Settings  *struct {
			Stability       float64 `json:"stability"`
			SimilarityBoost float64 `json:"similarityBoost"`
			Style           float64 `json:"style"`
			SpeakerBoost    bool    `json:"speakerBoost"`
		} `json:"settings"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateProjectID(req.ProjectID); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	segment, ok := segmentForProject(r, req.ProjectID, req.Segment, req.Text, pipeline.SegmentAroll)
	if !ok {
		httpError(w, http.StatusBadRequest, "segment not found; chunk the script or supply text")
		return
	}

	var settings provider.VoiceSettings
	if req.Settings != nil {
		settings = provider.VoiceSettings{
			Stability:       req.Settings.Stability,
			SimilarityBoost: req.Settings.SimilarityBoost,
			Style:           req.Settings.Style,
			SpeakerBoost:    req.Settings.SpeakerBoost,
		}
	}

	result, err := generator.Voiceover(r.Context(), segment, req.VoiceID, settings)
	if err != nil {
		httpError(w, http.StatusBadGateway, "voiceover failed", err.Error())
		return
	}

	rec := &store.AssetRecord{
		Kind:     store.AssetVoice,
		Segment:  segment.Index,
		Provider: "elevenlabs",
	}
	key := store.AssetKey(req.ProjectID, store.AssetVoice, segment.Index, ".mp3")
	if _, err := assets.Upload(r.Context(), key, result.ContentType, result.Audio); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to save voiceover", err.Error())
		return
	}
	rec.S3Key = key
	if err := projects.PutAsset(r.Context(), req.ProjectID, rec); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to save voiceover record", err.Error())
		return
	}

	url, _ := assets.PresignGet(r.Context(), key)
	respondJSON(w, http.StatusOK, map[string]any{
		"asset": rec,
		"url":   url,
	})
}

// GET /api/voices
func handleVoices(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	voices, err := generator.Voices(r.Context())
	if err != nil {
		httpError(w, http.StatusBadGateway, "failed to list voices", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"voices": voices})
}

// persistImageAsset uploads the image, fills in the record's S3 key, stores
// the record, and returns a presigned URL for immediate display.
func persistImageAsset(r *http.Request, projectID string, rec *store.AssetRecord, image []byte, mimeType string) (string, error) {
	ext := ".png"
	if mimeType == "image/jpeg" {
		ext = ".jpg"
	}
	key := store.AssetKey(projectID, rec.Kind, rec.Segment, ext)
	if _, err := assets.Upload(r.Context(), key, mimeType, image); err != nil {
		return "", err
	}
	rec.S3Key = key
	if err := projects.PutAsset(r.Context(), projectID, rec); err != nil {
		return "", err
	}

	url, err := assets.PresignGet(r.Context(), key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Presign failed; asset stored without URL")
		return "", nil
	}
	return url, nil
}
