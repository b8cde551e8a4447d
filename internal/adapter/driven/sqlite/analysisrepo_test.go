package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/autopatch/internal/domain/model"
	"github.com/ericfisherdev/autopatch/internal/domain/port/driven"
)

func makeAnalysis(commitID string, score int) model.Analysis {
	return model.Analysis{
		CommitID:     commitID,
		RepoFullName: "octocat/hello-world",
		OverallScore: score,
		AuthorName:   "MalakAbed",
		AuthorAvatar: "https://avatars.githubusercontent.com/u/1",
		CreatedAt:    time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC),
		Issues: []model.Issue{
			{
				Title:       "Hardcoded secret",
				Severity:    model.SeverityCritical,
				Description: "An API key is committed in plain text.",
				FilePath:    "src/config.js",
				Line:        12,
			},
			{
				Title:       "SQL injection",
				Severity:    model.SeverityHigh,
				Description: "Raw string concatenation in a query.",
				FilePath:    "src/db.js",
				Line:        40,
			},
		},
	}
}

func TestAnalysisRepo_InsertAndExists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepo(db)
	ctx := context.Background()

	exists, err := repo.Exists(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, exists)

	stored, err := repo.Insert(ctx, makeAnalysis("abc123", 45))
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.NotZero(t, stored.ID)
	assert.Len(t, stored.Issues, 2)
	for _, issue := range stored.Issues {
		assert.Equal(t, stored.ID, issue.AnalysisID)
		assert.NotZero(t, issue.ID)
	}

	exists, err = repo.Exists(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAnalysisRepo_Insert_DuplicateCommitFails(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepo(db)
	ctx := context.Background()

	_, err := repo.Insert(ctx, makeAnalysis("abc123", 45))
	require.NoError(t, err)

	_, err = repo.Insert(ctx, makeAnalysis("abc123", 90))
	require.Error(t, err, "commit_id is the dedup anchor and must be unique")
}

func TestAnalysisRepo_Insert_NoIssues(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepo(db)
	ctx := context.Background()

	a := makeAnalysis("clean01", 95)
	a.Issues = nil

	stored, err := repo.Insert(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, stored.Issues)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Empty(t, all[0].Issues)
}

func TestAnalysisRepo_AttachPullRequestURL(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepo(db)
	ctx := context.Background()

	_, err := repo.Insert(ctx, makeAnalysis("abc123", 45))
	require.NoError(t, err)

	prURL := "https://github.com/octocat/hello-world/pull/7"
	require.NoError(t, repo.AttachPullRequestURL(ctx, "abc123", prURL))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, prURL, all[0].PRURL)
}

func TestAnalysisRepo_AttachPullRequestURL_UnknownCommit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepo(db)

	err := repo.AttachPullRequestURL(context.Background(), "nope", "https://example.com/pr/1")
	assert.ErrorIs(t, err, driven.ErrNotFound)
}

func TestAnalysisRepo_ListAll_NewestFirstWithIssues(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepo(db)
	ctx := context.Background()

	older := makeAnalysis("old001", 70)
	older.CreatedAt = time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	newer := makeAnalysis("new001", 40)
	newer.CreatedAt = time.Date(2026, 1, 22, 8, 0, 0, 0, time.UTC)

	_, err := repo.Insert(ctx, older)
	require.NoError(t, err)
	_, err = repo.Insert(ctx, newer)
	require.NoError(t, err)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, "new001", all[0].CommitID)
	assert.Equal(t, "old001", all[1].CommitID)
	assert.Len(t, all[0].Issues, 2)
	assert.Equal(t, model.SeverityCritical, all[0].Issues[0].Severity)
}

func TestAnalysisRepo_ListByAuthor(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepo(db)
	ctx := context.Background()

	mine := makeAnalysis("mine01", 50)
	theirs := makeAnalysis("other1", 80)
	theirs.AuthorName = "SomeoneElse"

	_, err := repo.Insert(ctx, mine)
	require.NoError(t, err)
	_, err = repo.Insert(ctx, theirs)
	require.NoError(t, err)

	got, err := repo.ListByAuthor(ctx, "MalakAbed")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "mine01", got[0].CommitID)

	none, err := repo.ListByAuthor(ctx, "Nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAnalysisRepo_IssuesCascadeWithAnalysis(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalysisRepo(db)
	ctx := context.Background()

	stored, err := repo.Insert(ctx, makeAnalysis("abc123", 45))
	require.NoError(t, err)

	_, err = db.Writer.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, stored.ID)
	require.NoError(t, err)

	var count int
	err = db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues WHERE analysis_id = ?`, stored.ID).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count, "issues must cascade-delete with their analysis")
}
