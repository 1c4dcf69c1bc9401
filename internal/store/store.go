// Package store persists project state for the ad generation pipeline:
// product analysis, research brief, script segments, and references to
// generated assets. The pipeline core never touches this package; handlers
// pass plain values in and out.
//
// Records use a single-table DynamoDB design. All records for a project
// share a partition key (PROJECT#{projectId}); sort keys distinguish record
// types: META, RESEARCH, SCRIPT, SEGMENT#, and ASSET#. Records are
// versioned with last-write-wins semantics — projects are edited by one
// user at a time, not a high-contention system. A TTL attribute
// (expiresAt) auto-deletes records after 30 days, matching the S3 asset
// lifecycle policy.
package store

import (
	"context"
	"time"

	"github.com/fpang/ugc-factory/internal/pipeline"
)

// ProjectTTL is the default time-to-live for all DynamoDB records.
// Matches the S3 asset bucket lifecycle policy (30 days).
const ProjectTTL = 30 * 24 * time.Hour

// Asset kinds for ASSET# records.
const (
	AssetCharacter = "character"
	AssetBroll     = "broll"
	AssetAroll     = "aroll"
	AssetVideo     = "video"
	AssetVoice     = "voice"
)

// Project is the top-level metadata record.
type Project struct {
	ProjectID string    `dynamodbav:"projectId" json:"projectId"`
	Name      string    `dynamodbav:"name" json:"name"`
	Status    string    `dynamodbav:"status" json:"status"`
	Version   int       `dynamodbav:"version" json:"version"`
	CreatedAt time.Time `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `dynamodbav:"updatedAt" json:"updatedAt"`

	// Analysis is the structured product record from the vision analyzer.
	Analysis *pipeline.ProductAnalysis `dynamodbav:"analysis,omitempty" json:"analysis,omitempty"`
	// ProductImageKey references the uploaded product photo in S3.
	ProductImageKey string `dynamodbav:"productImageKey,omitempty" json:"productImageKey,omitempty"`
}

// ResearchRecord wraps the brief with its provenance for storage.
type ResearchRecord struct {
	Brief     *pipeline.ResearchBrief `dynamodbav:"brief" json:"brief"`
	Partial   bool                    `dynamodbav:"partial,omitempty" json:"partial,omitempty"`
	CostUSD   float64                 `dynamodbav:"costUsd,omitempty" json:"costUsd,omitempty"`
	Version   int                     `dynamodbav:"version" json:"version"`
	UpdatedAt time.Time               `dynamodbav:"updatedAt" json:"updatedAt"`
}

// ScriptRecord holds the full script text; its segments are stored as
// separate SEGMENT# records so they can be updated individually.
type ScriptRecord struct {
	FullScript    string    `dynamodbav:"fullScript" json:"fullScript"`
	SegmentCount  int       `dynamodbav:"segmentCount" json:"segmentCount"`
	TotalDuration float64   `dynamodbav:"totalDurationSeconds,omitempty" json:"totalDurationSeconds,omitempty"`
	Version       int       `dynamodbav:"version" json:"version"`
	UpdatedAt     time.Time `dynamodbav:"updatedAt" json:"updatedAt"`
}

// AssetRecord references one generated asset in S3 plus the generation
// diagnostics that produced it.
type AssetRecord struct {
	Kind    string `dynamodbav:"kind" json:"kind"`
	Segment int    `dynamodbav:"segment" json:"segment"`
	S3Key   string `dynamodbav:"s3Key,omitempty" json:"s3Key,omitempty"`
	// TaskID references an asynchronous video task still in flight.
	TaskID    string    `dynamodbav:"taskId,omitempty" json:"taskId,omitempty"`
	Provider  string    `dynamodbav:"provider,omitempty" json:"provider,omitempty"`
	Prompt    string    `dynamodbav:"prompt,omitempty" json:"prompt,omitempty"`
	Score     int       `dynamodbav:"score,omitempty" json:"score,omitempty"`
	Attempts  int       `dynamodbav:"attempts,omitempty" json:"attempts,omitempty"`
	Version   int       `dynamodbav:"version" json:"version"`
	CreatedAt time.Time `dynamodbav:"createdAt" json:"createdAt"`
}

// ProjectStore is the persistence interface for project state. Each method
// is safe for concurrent use. Get methods return (nil, nil) when the record
// does not exist; Put methods perform full-item replacement and bump the
// record's version.
type ProjectStore interface {
	PutProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, projectID string) (*Project, error)
	// UpdateProjectStatus updates only the status field without overwriting
	// concurrent edits to other fields.
	UpdateProjectStatus(ctx context.Context, projectID, status string) error
	DeleteProject(ctx context.Context, projectID string) error

	PutResearch(ctx context.Context, projectID string, rec *ResearchRecord) error
	GetResearch(ctx context.Context, projectID string) (*ResearchRecord, error)

	PutScript(ctx context.Context, projectID string, rec *ScriptRecord) error
	GetScript(ctx context.Context, projectID string) (*ScriptRecord, error)

	// PutSegments replaces the full segment list for a project.
	PutSegments(ctx context.Context, projectID string, segments []pipeline.ScriptSegment) error
	ListSegments(ctx context.Context, projectID string) ([]pipeline.ScriptSegment, error)

	PutAsset(ctx context.Context, projectID string, rec *AssetRecord) error
	GetAsset(ctx context.Context, projectID, kind string, segment int) (*AssetRecord, error)
	ListAssets(ctx context.Context, projectID, kind string) ([]AssetRecord, error)
}
