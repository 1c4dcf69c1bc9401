package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/provider"
	"github.com/fpang/ugc-factory/internal/store"
)

// uuidRegex matches UUID v4 format: 8-4-4-4-12 lowercase hex with dashes.
var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func validateProjectID(id string) error {
	if !uuidRegex.MatchString(id) {
		return fmt.Errorf("invalid projectId: must be a UUID")
	}
	return nil
}

// allowedImageTypes is the content-type allowlist for product photo uploads.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

const maxProductImageSize = 10 * 1024 * 1024 // 10 MB decoded

// POST /api/project
// Body: {"name": "LumbarPro Seat Cushion"}
func handleProjectCreate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httpError(w, http.StatusBadRequest, "name is required")
		return
	}

	project := &store.Project{
		ProjectID: uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Status:    "created",
	}
	if err := projects.PutProject(r.Context(), project); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to create project", err.Error())
		return
	}

	log.Info().Str("projectId", project.ProjectID).Str("name", project.Name).Msg("Project created")
	respondJSON(w, http.StatusCreated, project)
}

// GET /api/project/{id}
// GET /api/project/{id}/assets
// GET /api/project/{id}/segments
func handleProjectRoutes(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/project/"), "/")
	projectID := parts[0]
	if err := validateProjectID(projectID); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(parts) == 1 || parts[1] == "" {
		handleProjectGet(w, r, projectID)
		return
	}
	switch parts[1] {
	case "assets":
		handleProjectAssets(w, r, projectID)
	case "segments":
		handleProjectSegments(w, r, projectID)
	default:
		httpError(w, http.StatusNotFound, "not found")
	}
}

func handleProjectGet(w http.ResponseWriter, r *http.Request, projectID string) {
	project, err := projects.GetProject(r.Context(), projectID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load project", err.Error())
		return
	}
	if project == nil {
		httpError(w, http.StatusNotFound, "not found")
		return
	}

	resp := map[string]any{"project": project}
	if research, err := projects.GetResearch(r.Context(), projectID); err == nil && research != nil {
		resp["research"] = research
	}
	if scriptRec, err := projects.GetScript(r.Context(), projectID); err == nil && scriptRec != nil {
		resp["script"] = scriptRec
	}
	respondJSON(w, http.StatusOK, resp)
}

func handleProjectAssets(w http.ResponseWriter, r *http.Request, projectID string) {
	kind := r.URL.Query().Get("kind")
	records, err := projects.ListAssets(r.Context(), projectID, kind)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to list assets", err.Error())
		return
	}

	type assetWithURL struct {
		store.AssetRecord
		URL string `json:"url,omitempty"`
	}
	out := make([]assetWithURL, 0, len(records))
	for _, rec := range records {
		item := assetWithURL{AssetRecord: rec}
		if rec.S3Key != "" {
			if url, err := assets.PresignGet(r.Context(), rec.S3Key); err == nil {
				item.URL = url
			}
		}
		out = append(out, item)
	}
	respondJSON(w, http.StatusOK, map[string]any{"assets": out})
}

func handleProjectSegments(w http.ResponseWriter, r *http.Request, projectID string) {
	segments, err := projects.ListSegments(r.Context(), projectID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to list segments", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"segments": segments})
}

// imagePayload is one inline-uploaded product photo.
type imagePayload struct {
	Data     string `json:"data"` // base64
	MIMEType string `json:"mimeType"`
}

func decodeImages(payloads []imagePayload) ([]provider.ReferenceImage, error) {
	var images []provider.ReferenceImage
	for i, p := range payloads {
		if !allowedImageTypes[p.MIMEType] {
			return nil, fmt.Errorf("image %d: unsupported content type %q", i+1, p.MIMEType)
		}
		data, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			return nil, fmt.Errorf("image %d: invalid base64 data", i+1)
		}
		if len(data) == 0 || len(data) > maxProductImageSize {
			return nil, fmt.Errorf("image %d: size out of range", i+1)
		}
		images = append(images, provider.ReferenceImage{Data: data, MIMEType: p.MIMEType})
	}
	return images, nil
}

// POST /api/analyze-product
// Body: {"projectId": "uuid", "images": [{"data": "...", "mimeType": "image/jpeg"}]}
func handleAnalyzeProduct(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		ProjectID string         `json:"projectId"`
		Images    []imagePayload `json:"images"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateProjectID(req.ProjectID); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Images) == 0 {
		httpError(w, http.StatusBadRequest, "at least one image is required")
		return
	}

	images, err := decodeImages(req.Images)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	analysis, err := geminiClient.AnalyzeProduct(r.Context(), images)
	if err != nil {
		if pipeline.IsParse(err) {
			httpError(w, http.StatusBadGateway, "product analysis returned an unreadable result", err.Error())
			return
		}
		httpError(w, http.StatusBadGateway, "product analysis failed", err.Error())
		return
	}

	if err := saveAnalysis(r.Context(), req.ProjectID, analysis, images[0]); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to save analysis", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"analysis": analysis})
}

// saveAnalysis persists the analysis on the project record and archives the
// primary product photo for later reference-image use.
func saveAnalysis(ctx context.Context, projectID string, analysis *pipeline.ProductAnalysis, primary provider.ReferenceImage) error {
	project, err := projects.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return fmt.Errorf("project %s not found", projectID)
	}

	ext := ".jpg"
	if primary.MIMEType == "image/png" {
		ext = ".png"
	}
	key := fmt.Sprintf("projects/%s/product/reference%s", projectID, ext)
	if _, err := assets.Upload(ctx, key, primary.MIMEType, primary.Data); err != nil {
		return err
	}

	project.Analysis = analysis
	project.ProductImageKey = key
	project.Status = "analyzed"
	return projects.PutProject(ctx, project)
}

// loadProductReference fetches the archived product photo for a project.
func loadProductReference(ctx context.Context, project *store.Project) (provider.ReferenceImage, error) {
	if project.ProductImageKey == "" {
		return provider.ReferenceImage{}, fmt.Errorf("project has no product image; analyze the product first")
	}
	data, err := assets.Download(ctx, project.ProductImageKey)
	if err != nil {
		return provider.ReferenceImage{}, err
	}
	mime := "image/jpeg"
	if strings.HasSuffix(project.ProductImageKey, ".png") {
		mime = "image/png"
	}
	return provider.ReferenceImage{Data: data, MIMEType: mime, Label: "Product reference:"}, nil
}
