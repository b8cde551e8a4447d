package driven

import (
	"context"

	"github.com/ericfisherdev/autopatch/internal/domain/model"
)

// AssessmentRequest carries one commit's changed files to the assessor.
type AssessmentRequest struct {
	RepoFullName string
	CommitID     string
	Files        []model.FileSnapshot
}

// PatchRequest asks the assessor for automatic fixes scoped to a subset
// of files, using previously found issues as context.
type PatchRequest struct {
	RepoFullName string
	CommitID     string
	Files        []model.FileSnapshot
	Issues       []model.Issue
}

// SecurityAssessor defines the driven port for the external reasoning
// service. Implementations must tolerate partially-specified or
// malformed responses by substituting safe defaults (empty issue and
// patch lists, the neutral fallback score).
type SecurityAssessor interface {
	// Assess produces a verdict for one commit's changed files.
	Assess(ctx context.Context, req AssessmentRequest) (*model.Verdict, error)
	// GeneratePatches is the narrower second stage: produce patches for
	// the given files and issues. An empty result is terminal.
	GeneratePatches(ctx context.Context, req PatchRequest) ([]model.Patch, error)
	// GenerateAuthorReport writes a narrative security report from
	// pre-computed author statistics.
	GenerateAuthorReport(ctx context.Context, stats model.AuthorStats) (*model.AuthorReport, error)
}
