package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/autopatch/internal/domain/model"
	"github.com/ericfisherdev/autopatch/internal/domain/port/driven"
)

// fileFetchConcurrency bounds the changed-file content fan-out.
const fileFetchConcurrency = 4

// Outcome tags how processing a single commit ended.
type Outcome string

const (
	// OutcomeAlreadyAnalyzed means the ledger already has this commit.
	OutcomeAlreadyAnalyzed Outcome = "already_analyzed"
	// OutcomeNoFileChanges means the commit changed no assessable files
	// and nothing was recorded.
	OutcomeNoFileChanges Outcome = "no_file_changes"
	// OutcomeAnalyzed means a verdict was recorded but no remediation
	// happened (score at or above threshold, no patches, or the
	// remediation round failed after the record was written).
	OutcomeAnalyzed Outcome = "analyzed"
	// OutcomeRemediated means a verdict was recorded and a PR exists.
	OutcomeRemediated Outcome = "remediated"
	// OutcomeFailed means processing aborted before a ledger write.
	OutcomeFailed Outcome = "failed"
)

// CommitService runs the per-commit pipeline: dedup check, file fetch,
// assessment, persistence, and the score-gated remediation handoff.
type CommitService struct {
	ghClient   driven.GitHubClient
	store      driven.AnalysisStore
	assessor   driven.SecurityAssessor
	remediator *Remediator
	threshold  int
}

// NewCommitService creates a CommitService with all required dependencies.
func NewCommitService(
	ghClient driven.GitHubClient,
	store driven.AnalysisStore,
	assessor driven.SecurityAssessor,
	remediator *Remediator,
	threshold int,
) *CommitService {
	return &CommitService{
		ghClient:   ghClient,
		store:      store,
		assessor:   assessor,
		remediator: remediator,
		threshold:  threshold,
	}
}

// Process runs one commit through the pipeline. Failures before the
// ledger write return OutcomeFailed with the cause; once the analysis is
// persisted, remediation trouble degrades to OutcomeAnalyzed instead of
// an error so the record survives.
func (s *CommitService) Process(ctx context.Context, commit model.CommitRef) (Outcome, error) {
	exists, err := s.store.Exists(ctx, commit.SHA)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("check ledger for %s: %w", commit.ShortSHA(), err)
	}
	if exists {
		slog.Debug("commit already analyzed", "repo", commit.FullName(), "commit", commit.ShortSHA())
		return OutcomeAlreadyAnalyzed, nil
	}

	detail, err := s.ghClient.FetchCommit(ctx, commit.Owner, commit.Repo, commit.SHA)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("fetch commit %s: %w", commit.ShortSHA(), err)
	}

	// Prefer the commit's own author identity over whatever the caller
	// carried; push events and listings can disagree with the commit.
	if detail.AuthorName != "" {
		commit.AuthorName = detail.AuthorName
	}
	if detail.AuthorAvatar != "" {
		commit.AuthorAvatar = detail.AuthorAvatar
	}

	files := assessableFiles(detail.Files)
	if len(files) == 0 {
		slog.Info("commit has no assessable file changes", "repo", commit.FullName(), "commit", commit.ShortSHA())
		return OutcomeNoFileChanges, nil
	}

	snapshots, err := s.fetchFileContents(ctx, commit, files)
	if err != nil {
		// Leave the commit unrecorded; a later sync round retries it
		// rather than persisting a verdict over a partial file set.
		return OutcomeFailed, fmt.Errorf("fetch contents for %s: %w", commit.ShortSHA(), err)
	}

	verdict, err := s.assessor.Assess(ctx, driven.AssessmentRequest{
		RepoFullName: commit.FullName(),
		CommitID:     commit.SHA,
		Files:        snapshots,
	})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("assess %s: %w", commit.ShortSHA(), err)
	}

	patches := verdict.Patches
	if verdict.OverallScore < s.threshold && len(patches) == 0 && len(verdict.Issues) > 0 {
		patches, err = s.generatePatches(ctx, commit, snapshots, verdict.Issues)
		if err != nil {
			return OutcomeFailed, fmt.Errorf("generate patches for %s: %w", commit.ShortSHA(), err)
		}
	}

	stored, err := s.store.Insert(ctx, model.Analysis{
		CommitID:     commit.SHA,
		RepoFullName: commit.FullName(),
		OverallScore: verdict.OverallScore,
		AuthorName:   model.NormalizeAuthorName(commit.AuthorName),
		AuthorAvatar: commit.AuthorAvatar,
		Issues:       verdict.Issues,
	})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("persist analysis for %s: %w", commit.ShortSHA(), err)
	}

	slog.Info("commit analyzed",
		"repo", commit.FullName(),
		"commit", commit.ShortSHA(),
		"score", stored.OverallScore,
		"issues", len(stored.Issues),
	)

	if stored.OverallScore >= s.threshold {
		return OutcomeAnalyzed, nil
	}

	if len(patches) == 0 {
		slog.Info("score below threshold but no safe patches",
			"repo", commit.FullName(), "commit", commit.ShortSHA(), "score", stored.OverallScore)
		return OutcomeAnalyzed, nil
	}

	prURL, err := s.remediator.Remediate(ctx, commit, *stored, patches)
	if err != nil {
		// The analysis is already on record; a failed round is retried
		// naturally by the next low-scoring commit.
		slog.Error("remediation failed",
			"repo", commit.FullName(), "commit", commit.ShortSHA(), "error", err)
		return OutcomeAnalyzed, nil
	}

	slog.Info("commit remediated",
		"repo", commit.FullName(), "commit", commit.ShortSHA(), "pr_url", prURL)

	return OutcomeRemediated, nil
}

// fetchFileContents fetches each changed file's content at the commit,
// concurrently but order-preserving. Any file that cannot be read fails
// the whole fetch; a verdict must cover every changed file.
func (s *CommitService) fetchFileContents(ctx context.Context, commit model.CommitRef, files []model.CommitFileMeta) ([]model.FileSnapshot, error) {
	snapshots := make([]model.FileSnapshot, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fileFetchConcurrency)

	for i, file := range files {
		g.Go(func() error {
			content, err := s.ghClient.FetchFileContent(gctx, commit.Owner, commit.Repo, file.Path, commit.SHA)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", file.Path, err)
			}
			snapshots[i] = model.FileSnapshot{Path: file.Path, Content: content}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snapshots, nil
}

// generatePatches runs the narrower second-stage patch request, scoped to
// source files the assessor can rewrite whole.
func (s *CommitService) generatePatches(ctx context.Context, commit model.CommitRef, snapshots []model.FileSnapshot, issues []model.Issue) ([]model.Patch, error) {
	patchable := make([]model.FileSnapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if isPatchablePath(snap.Path) {
			patchable = append(patchable, snap)
		}
	}
	if len(patchable) == 0 {
		return nil, nil
	}

	return s.assessor.GeneratePatches(ctx, driven.PatchRequest{
		RepoFullName: commit.FullName(),
		CommitID:     commit.SHA,
		Files:        patchable,
		Issues:       issues,
	})
}

// assessableFiles drops removed files; they have no content to assess.
func assessableFiles(files []model.CommitFileMeta) []model.CommitFileMeta {
	kept := make([]model.CommitFileMeta, 0, len(files))
	for _, file := range files {
		if file.Status == model.FileStatusRemoved {
			continue
		}
		kept = append(kept, file)
	}
	return kept
}

// isPatchablePath reports whether automatic whole-file rewriting is
// supported for the path.
func isPatchablePath(path string) bool {
	return strings.HasSuffix(path, ".js") || strings.HasSuffix(path, ".ts")
}
