// Package jobs provides the shared plumbing for asynchronous Lambda jobs:
// unguessable job IDs, route parsing for /api/{area}/{id}/{action} paths,
// and project-scoped ownership checks.
package jobs

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// GenerateID creates a new cryptographically random job ID with the given
// prefix. The prefix should include a trailing dash, e.g. "research-".
// Random IDs prevent sequential enumeration of other projects' jobs.
func GenerateID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Fatal().Err(err).Msgf("Failed to generate random %s job ID", prefix)
	}
	return prefix + hex.EncodeToString(b)
}

// ParseRoute extracts the job ID and action from a URL path like
// /api/research/{id}/{action}. apiPrefix should be like "/api/research/",
// idPrefix like "research-". The ID prefix is restored when the caller
// passed a bare hex ID.
func ParseRoute(path, apiPrefix, idPrefix string) (jobID, action string, ok bool) {
	parts := strings.Split(strings.TrimPrefix(path, apiPrefix), "/")
	if len(parts) < 2 {
		return "", "", false
	}

	jobID = parts[0]
	if !strings.HasPrefix(jobID, idPrefix) {
		jobID = idPrefix + jobID
	}
	return jobID, parts[1], true
}

// Authorized verifies the projectId query param matches the project that
// started the job. Callers respond with a generic "not found" on failure so
// the check is indistinguishable from an unknown job ID.
func Authorized(r *http.Request, ownerProjectID string) bool {
	projectID := r.URL.Query().Get("projectId")
	return projectID != "" && projectID == ownerProjectID
}
