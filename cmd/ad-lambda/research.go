package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/jobs"
	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/research"
	"github.com/fpang/ugc-factory/internal/store"
)

// --- Research Job Management ---

type researchJob struct {
	mu        sync.Mutex
	id        string
	projectID string
	status    string // "pending", "processing", "complete", "error"
	brief     *pipeline.ResearchBrief
	steps     []research.StepResult
	partial   bool
	costUSD   float64
	errMsg    string
}

var (
	jobsMu       sync.Mutex
	researchJobs = make(map[string]*researchJob)
)

func newJob(projectID string) *researchJob {
	jobsMu.Lock()
	defer jobsMu.Unlock()
	j := &researchJob{
		id:        jobs.GenerateID("research-"),
		projectID: projectID,
		status:    "pending",
	}
	researchJobs[j.id] = j
	return j
}

func getJob(id string) *researchJob {
	jobsMu.Lock()
	defer jobsMu.Unlock()
	return researchJobs[id]
}

func setJobError(job *researchJob, msg string) {
	job.mu.Lock()
	defer job.mu.Unlock()
	job.status = "error"
	job.errMsg = msg
	log.Error().Str("job", job.id).Str("error", msg).Msg("Research job failed")
}

// POST /api/research/start
// Body: {"projectId": "uuid", "targetAudience": "...", "supportingDocs": ["..."]}
//
// Runs deep open-web research when the search provider is configured and
// falls back to structured synthesis from the product analysis (plus any
// supplied supporting documents) when it is not.
func handleResearchStart(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		ProjectID      string   `json:"projectId"`
		TargetAudience string   `json:"targetAudience"`
		SupportingDocs []string `json:"supportingDocs"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateProjectID(req.ProjectID); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := projects.GetProject(r.Context(), req.ProjectID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load project", err.Error())
		return
	}
	if project == nil {
		httpError(w, http.StatusNotFound, "not found")
		return
	}
	if project.Analysis == nil {
		httpError(w, http.StatusConflict, "analyze the product before running research")
		return
	}

	job := newJob(req.ProjectID)
	go runResearchJob(job, project, req.TargetAudience, req.SupportingDocs)

	respondJSON(w, http.StatusAccepted, map[string]string{"id": job.id})
}

// GET /api/research/{id}/results?projectId=...
func handleResearchRoutes(w http.ResponseWriter, r *http.Request) {
	jobID, action, ok := jobs.ParseRoute(r.URL.Path, "/api/research/", "research-")
	if !ok || action != "results" {
		httpError(w, http.StatusNotFound, "not found")
		return
	}
	if !requireGet(w, r) {
		return
	}

	// Generic "not found" on both unknown job and ownership mismatch to
	// prevent job ID probing.
	job := getJob(jobID)
	if job == nil || !jobs.Authorized(r, job.projectID) {
		httpError(w, http.StatusNotFound, "not found")
		return
	}

	job.mu.Lock()
	defer job.mu.Unlock()
	resp := map[string]any{
		"id":      job.id,
		"status":  job.status,
		"partial": job.partial,
		"costUsd": job.costUSD,
	}
	if job.brief != nil {
		resp["brief"] = job.brief
	}
	if len(job.steps) > 0 {
		resp["steps"] = job.steps
	}
	if job.errMsg != "" {
		resp["error"] = job.errMsg
	}
	respondJSON(w, http.StatusOK, resp)
}

func runResearchJob(job *researchJob, project *store.Project, targetAudience string, supportingDocs []string) {
	job.mu.Lock()
	job.status = "processing"
	job.mu.Unlock()

	ctx := context.Background()

	// Caller-supplied documents take the synthesis path; otherwise run the
	// deep pipeline, which degrades to synthesis internally when the search
	// provider is unconfigured.
	var rec *store.ResearchRecord
	if len(supportingDocs) == 0 {
		result, err := deepPipeline.Run(ctx, project.Analysis, project.Analysis.Name, project.Analysis.Category, targetAudience)
		if result == nil {
			setJobError(job, "research failed: "+err.Error())
			return
		}
		if err != nil && result.Brief == nil {
			setJobError(job, "research failed: "+err.Error())
			return
		}
		job.mu.Lock()
		job.brief = result.Brief
		job.steps = result.Steps
		job.partial = result.Partial
		job.costUSD = result.TotalCostUSD
		job.mu.Unlock()
		rec = &store.ResearchRecord{
			Brief:   result.Brief,
			Partial: result.Partial,
			CostUSD: result.TotalCostUSD,
		}
	} else {
		brief, err := synthesizer.Synthesize(ctx, project.Analysis, supportingDocs, targetAudience)
		if err != nil {
			setJobError(job, "research synthesis failed: "+err.Error())
			return
		}
		job.mu.Lock()
		job.brief = brief
		job.mu.Unlock()
		rec = &store.ResearchRecord{Brief: brief}
	}

	if err := persistResearch(ctx, job, rec, supportingDocs); err != nil {
		setJobError(job, "failed to persist research: "+err.Error())
		return
	}

	job.mu.Lock()
	job.status = "complete"
	job.mu.Unlock()
	log.Info().
		Str("job", job.id).
		Str("projectId", job.projectID).
		Bool("partial", job.partial).
		Float64("costUsd", job.costUSD).
		Msg("Research job complete")
}

// persistResearch stores the brief record in DynamoDB and archives the full
// job output (brief, step provenance, supporting documents) in S3.
func persistResearch(ctx context.Context, job *researchJob, rec *store.ResearchRecord, supportingDocs []string) error {
	if err := projects.PutResearch(ctx, job.projectID, rec); err != nil {
		return err
	}

	rawDocs := make(map[string]string)
	job.mu.Lock()
	if len(job.steps) > 0 {
		if stepJSON, err := json.MarshalIndent(job.steps, "", "  "); err == nil {
			rawDocs["steps"] = string(stepJSON)
		}
	}
	job.mu.Unlock()
	for i, doc := range supportingDocs {
		rawDocs[fmt.Sprintf("supporting-%02d", i+1)] = doc
	}

	if _, err := assets.ArchiveResearch(ctx, job.projectID, rec, rawDocs); err != nil {
		return err
	}
	return projects.UpdateProjectStatus(ctx, job.projectID, "researched")
}
