package main

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/script"
	"github.com/fpang/ugc-factory/internal/store"
)

// POST /api/ai-generate
// Body: {"type": "hook", "mode": "fresh", "context": {...}, "guidance": "...", "currentValue": "..."}
func handleAIGenerate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req pipeline.GenerationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Type == "" {
		httpError(w, http.StatusBadRequest, "type is required")
		return
	}

	result, err := textService.Generate(r.Context(), &req)
	if err != nil {
		httpError(w, http.StatusBadGateway, "generation failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// POST /api/chunk-script
// Body: {"projectId": "uuid", "script": "full script text"}
//
// projectId is optional; when present the segments are persisted.
func handleChunkScript(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		ProjectID string `json:"projectId"`
		Script    string `json:"script"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Script) == "" {
		httpError(w, http.StatusBadRequest, "script is required")
		return
	}
	if req.ProjectID != "" {
		if err := validateProjectID(req.ProjectID); err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	segments, err := chunker.Chunk(r.Context(), req.Script)
	if err != nil {
		if pipeline.IsParse(err) {
			httpError(w, http.StatusBadGateway, "script chunking returned an unreadable result", err.Error())
			return
		}
		httpError(w, http.StatusBadGateway, "script chunking failed", err.Error())
		return
	}

	var total float64
	for _, seg := range segments {
		total += seg.DurationSeconds
	}

	if req.ProjectID != "" {
		if err := projects.PutScript(r.Context(), req.ProjectID, &store.ScriptRecord{
			FullScript:    req.Script,
			SegmentCount:  len(segments),
			TotalDuration: total,
		}); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save script", err.Error())
			return
		}
		if err := projects.PutSegments(r.Context(), req.ProjectID, segments); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save segments", err.Error())
			return
		}
		log.Info().Str("projectId", req.ProjectID).Int("segments", len(segments)).Msg("Script chunked and saved")
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"segments":             segments,
		"totalDurationSeconds": total,
	})
}

// segmentForProject resolves a stored segment by index, or rebuilds one from
// inline text when the project has no stored script.
func segmentForProject(r *http.Request, projectID string, index int, inlineText string, segType pipeline.SegmentType) (pipeline.ScriptSegment, bool) {
	if projectID != "" {
		segments, err := projects.ListSegments(r.Context(), projectID)
		if err == nil {
			for _, seg := range segments {
				if seg.Index == index {
					return seg, true
				}
			}
		}
	}
	if inlineText == "" {
		return pipeline.ScriptSegment{}, false
	}
	if segType == "" {
		segType = pipeline.SegmentAroll
	}
	return pipeline.ScriptSegment{
		Index:           index,
		Text:            inlineText,
		Type:            segType,
		DurationSeconds: script.EstimateDuration(inlineText),
	}, true
}
