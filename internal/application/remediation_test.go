package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/autopatch/internal/application"
	"github.com/ericfisherdev/autopatch/internal/domain/model"
	"github.com/ericfisherdev/autopatch/internal/domain/port/driven"
)

func testCommit() model.CommitRef {
	return model.CommitRef{
		Owner:        "acme",
		Repo:         "widgets",
		SHA:          "0123456789abcdef",
		TargetBranch: "main",
		AuthorName:   "Alice",
	}
}

func testAnalysis() model.Analysis {
	return model.Analysis{
		ID:           1,
		CommitID:     "0123456789abcdef",
		RepoFullName: "acme/widgets",
		OverallScore: 35,
		Issues: []model.Issue{
			{Title: "SQL injection", Severity: model.SeverityCritical, FilePath: "db.js", Line: 12},
		},
	}
}

func TestRemediate_ResetsBotBranchToTargetTip(t *testing.T) {
	writer := &mockGitHubWriter{branchHeads: map[string]string{"main": "tip-sha"}}
	store := &mockAnalysisStore{}
	rem := application.NewRemediator(writer, store)

	url, err := rem.Remediate(context.Background(), testCommit(), testAnalysis(),
		[]model.Patch{{FilePath: "db.js", PatchedContent: "fixed"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"tip-sha"}, writer.forceUpdates)
	assert.Empty(t, writer.created)
	assert.Equal(t, "https://github.test/pr/1", url)
}

func TestRemediate_CreatesBotBranchWhenMissing(t *testing.T) {
	writer := &mockGitHubWriter{
		branchHeads: map[string]string{"main": "tip-sha"},
		forceErr:    driven.ErrRefNotFound,
	}
	store := &mockAnalysisStore{}
	rem := application.NewRemediator(writer, store)

	_, err := rem.Remediate(context.Background(), testCommit(), testAnalysis(),
		[]model.Patch{{FilePath: "db.js", PatchedContent: "fixed"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"tip-sha"}, writer.created)
}

func TestRemediate_ResetFailureAbortsBeforeAnyWrite(t *testing.T) {
	writer := &mockGitHubWriter{
		branchHeads: map[string]string{"main": "tip-sha"},
		forceErr:    errors.New("boom"),
	}
	store := &mockAnalysisStore{}
	rem := application.NewRemediator(writer, store)

	_, err := rem.Remediate(context.Background(), testCommit(), testAnalysis(),
		[]model.Patch{{FilePath: "db.js", PatchedContent: "fixed"}})
	require.Error(t, err)

	assert.Empty(t, writer.putFiles)
	assert.Empty(t, store.attaches)
}

func TestRemediate_PatchCommitMessageAndBlobSHA(t *testing.T) {
	writer := &mockGitHubWriter{
		branchHeads: map[string]string{"main": "tip-sha"},
		fileSHAs:    map[string]string{"existing.js": "blob-123"},
	}
	store := &mockAnalysisStore{}
	rem := application.NewRemediator(writer, store)

	_, err := rem.Remediate(context.Background(), testCommit(), testAnalysis(), []model.Patch{
		{FilePath: "existing.js", PatchedContent: "patched existing"},
		{FilePath: "brand-new.js", PatchedContent: "patched new"},
	})
	require.NoError(t, err)

	require.Len(t, writer.putFiles, 2)

	existing := writer.putFiles[0]
	assert.Equal(t, "auto-patch", existing.Branch)
	assert.Equal(t, "blob-123", existing.BlobSHA)
	assert.Equal(t, "[AutoPatch] Fix: existing.js (from commit 0123456)", existing.Message)

	fresh := writer.putFiles[1]
	assert.Empty(t, fresh.BlobSHA)
	assert.Equal(t, "[AutoPatch] Fix: brand-new.js (from commit 0123456)", fresh.Message)
}

func TestRemediate_PartialPublishStillOpensPR(t *testing.T) {
	writer := &mockGitHubWriter{
		branchHeads: map[string]string{"main": "tip-sha"},
		putErr: func(path string) error {
			if path == "bad.js" {
				return errors.New("write rejected")
			}
			return nil
		},
	}
	store := &mockAnalysisStore{}
	rem := application.NewRemediator(writer, store)

	url, err := rem.Remediate(context.Background(), testCommit(), testAnalysis(), []model.Patch{
		{FilePath: "bad.js", PatchedContent: "x"},
		{FilePath: "good.js", PatchedContent: "y"},
	})
	require.NoError(t, err)

	require.Len(t, writer.putFiles, 1)
	assert.Equal(t, "good.js", writer.putFiles[0].Path)
	assert.NotEmpty(t, url)
}

func TestRemediate_AllPublishesFailingIsAnError(t *testing.T) {
	writer := &mockGitHubWriter{
		branchHeads: map[string]string{"main": "tip-sha"},
		putErr:      func(string) error { return errors.New("write rejected") },
	}
	store := &mockAnalysisStore{}
	rem := application.NewRemediator(writer, store)

	_, err := rem.Remediate(context.Background(), testCommit(), testAnalysis(),
		[]model.Patch{{FilePath: "a.js", PatchedContent: "x"}})
	require.Error(t, err)

	assert.Empty(t, writer.createdPRs)
	assert.Empty(t, store.attaches)
}

func TestRemediate_ReusesOpenPullRequest(t *testing.T) {
	writer := &mockGitHubWriter{
		branchHeads: map[string]string{"main": "tip-sha"},
		openPRs:     []model.PullRequestRef{{Number: 7, URL: "https://github.test/pr/7"}},
	}
	store := &mockAnalysisStore{}
	rem := application.NewRemediator(writer, store)

	url, err := rem.Remediate(context.Background(), testCommit(), testAnalysis(),
		[]model.Patch{{FilePath: "db.js", PatchedContent: "fixed"}})
	require.NoError(t, err)

	assert.Equal(t, "https://github.test/pr/7", url)
	assert.Empty(t, writer.createdPRs)

	require.Len(t, store.attaches, 1)
	assert.Equal(t, "0123456789abcdef", store.attaches[0].CommitID)
	assert.Equal(t, "https://github.test/pr/7", store.attaches[0].URL)
}

func TestRemediate_NewPullRequestBodyListsIssues(t *testing.T) {
	writer := &mockGitHubWriter{branchHeads: map[string]string{"main": "tip-sha"}}
	store := &mockAnalysisStore{}
	rem := application.NewRemediator(writer, store)

	_, err := rem.Remediate(context.Background(), testCommit(), testAnalysis(),
		[]model.Patch{{FilePath: "db.js", PatchedContent: "fixed"}})
	require.NoError(t, err)

	require.Len(t, writer.createdPRs, 1)
	assert.Contains(t, writer.lastPRBody, "0123456")
	assert.Contains(t, writer.lastPRBody, "35/100")
	assert.Contains(t, writer.lastPRBody, "[CRITICAL]")
	assert.Contains(t, writer.lastPRBody, "SQL injection")
	assert.Contains(t, writer.lastPRBody, "db.js")
}

func TestRemediate_NoPatchesIsAnError(t *testing.T) {
	writer := &mockGitHubWriter{branchHeads: map[string]string{"main": "tip-sha"}}
	rem := application.NewRemediator(writer, &mockAnalysisStore{})

	_, err := rem.Remediate(context.Background(), testCommit(), testAnalysis(), nil)
	require.Error(t, err)

	assert.Empty(t, writer.forceUpdates)
}
