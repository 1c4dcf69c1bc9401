package main

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/fpang/ugc-factory/internal/assembly"
)

// clipRequest is one clip reference in the assembly request. The frame is a
// representative still of the clip, base64 encoded; the server stores videos,
// not frames, so the caller supplies them.
type clipRequest struct {
	Segment  int    `json:"segment"`
	Frame    string `json:"frame"` // base64
	MIMEType string `json:"mimeType"`
}

// POST /api/analyze-assembly
// Body: {"projectId": "uuid", "arollClips": [{"segment": 0, "frame": "base64...", "mimeType": "image/png"}],
//
//	"brollClips": [...], "hasVoiceover": true}
func handleAnalyzeAssembly(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		ProjectID    string        `json:"projectId"`
		ArollClips   []clipRequest `json:"arollClips"`
		BrollClips   []clipRequest `json:"brollClips"`
		HasVoiceover bool          `json:"hasVoiceover"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateProjectID(req.ProjectID); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.ArollClips)+len(req.BrollClips) == 0 {
		httpError(w, http.StatusBadRequest, "no clips supplied")
		return
	}

	project, err := projects.GetProject(r.Context(), req.ProjectID)
	if err != nil || project == nil {
		httpError(w, http.StatusNotFound, "not found")
		return
	}
	segments, err := projects.ListSegments(r.Context(), req.ProjectID)
	if err != nil || len(segments) == 0 {
		httpError(w, http.StatusConflict, "chunk the script before analyzing assembly")
		return
	}

	aroll, err := decodeClips(req.ArollClips)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid aroll clip", err.Error())
		return
	}
	broll, err := decodeClips(req.BrollClips)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid broll clip", err.Error())
		return
	}

	plan, err := assembler.Plan(r.Context(), assembly.Input{
		Segments:     segments,
		Product:      project.Analysis,
		Aroll:        aroll,
		Broll:        broll,
		HasVoiceover: req.HasVoiceover,
	})
	if err != nil {
		httpError(w, http.StatusBadGateway, "assembly analysis failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

func decodeClips(clips []clipRequest) ([]assembly.Clip, error) {
	out := make([]assembly.Clip, 0, len(clips))
	for i, c := range clips {
		data, err := base64.StdEncoding.DecodeString(c.Frame)
		if err != nil {
			return nil, fmt.Errorf("clip %d: invalid base64 frame", i+1)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("clip %d: empty frame", i+1)
		}
		out = append(out, assembly.Clip{Segment: c.Segment, Frame: data, MIMEType: c.MIMEType})
	}
	return out, nil
}
