package application_test

import (
	"context"
	"sync"

	"github.com/ericfisherdev/autopatch/internal/domain/model"
	"github.com/ericfisherdev/autopatch/internal/domain/port/driven"
)

// --- Mock implementations of the driven ports ---

type mockGitHubClient struct {
	listRecentCommits  func(ctx context.Context, owner, repo string, limit int) ([]model.CommitRef, error)
	fetchCommit        func(ctx context.Context, owner, repo, sha string) (*model.CommitDetail, error)
	fetchFileContent   func(ctx context.Context, owner, repo, path, ref string) (string, error)
	fetchDefaultBranch func(ctx context.Context, owner, repo string) (string, error)
}

func (m *mockGitHubClient) ListRecentCommits(ctx context.Context, owner, repo string, limit int) ([]model.CommitRef, error) {
	return m.listRecentCommits(ctx, owner, repo, limit)
}

func (m *mockGitHubClient) FetchCommit(ctx context.Context, owner, repo, sha string) (*model.CommitDetail, error) {
	return m.fetchCommit(ctx, owner, repo, sha)
}

func (m *mockGitHubClient) FetchFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	return m.fetchFileContent(ctx, owner, repo, path, ref)
}

func (m *mockGitHubClient) FetchDefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	if m.fetchDefaultBranch != nil {
		return m.fetchDefaultBranch(ctx, owner, repo)
	}
	return "main", nil
}

type attachCall struct {
	CommitID string
	URL      string
}

// mockAnalysisStore keeps inserted analyses in memory and records calls.
// It is safe for the concurrent use the services make of it.
type mockAnalysisStore struct {
	mu       sync.Mutex
	existing map[string]bool
	inserted []model.Analysis
	attaches []attachCall

	insertErr error
	listed    []model.Analysis
	listErr   error
}

func (m *mockAnalysisStore) Exists(_ context.Context, commitID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existing[commitID] {
		return true, nil
	}
	for _, a := range m.inserted {
		if a.CommitID == commitID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAnalysisStore) Insert(_ context.Context, analysis model.Analysis) (*model.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	analysis.ID = int64(len(m.inserted) + 1)
	m.inserted = append(m.inserted, analysis)
	stored := analysis
	return &stored, nil
}

func (m *mockAnalysisStore) AttachPullRequestURL(_ context.Context, commitID string, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attaches = append(m.attaches, attachCall{CommitID: commitID, URL: url})
	return nil
}

func (m *mockAnalysisStore) ListAll(_ context.Context) ([]model.Analysis, error) {
	return m.listed, m.listErr
}

func (m *mockAnalysisStore) ListByAuthor(_ context.Context, _ string) ([]model.Analysis, error) {
	return m.listed, m.listErr
}

type mockAssessor struct {
	assess           func(ctx context.Context, req driven.AssessmentRequest) (*model.Verdict, error)
	generatePatches  func(ctx context.Context, req driven.PatchRequest) ([]model.Patch, error)
	generateReport   func(ctx context.Context, stats model.AuthorStats) (*model.AuthorReport, error)
	assessCalls      []driven.AssessmentRequest
	patchCalls       []driven.PatchRequest
	reportStatsCalls []model.AuthorStats
}

func (m *mockAssessor) Assess(ctx context.Context, req driven.AssessmentRequest) (*model.Verdict, error) {
	m.assessCalls = append(m.assessCalls, req)
	return m.assess(ctx, req)
}

func (m *mockAssessor) GeneratePatches(ctx context.Context, req driven.PatchRequest) ([]model.Patch, error) {
	m.patchCalls = append(m.patchCalls, req)
	if m.generatePatches != nil {
		return m.generatePatches(ctx, req)
	}
	return nil, nil
}

func (m *mockAssessor) GenerateAuthorReport(ctx context.Context, stats model.AuthorStats) (*model.AuthorReport, error) {
	m.reportStatsCalls = append(m.reportStatsCalls, stats)
	return m.generateReport(ctx, stats)
}

type putFileCall struct {
	Branch  string
	Path    string
	Message string
	Content string
	BlobSHA string
}

// mockGitHubWriter simulates the remote's branch, file, and PR state.
type mockGitHubWriter struct {
	branchHeads map[string]string // branch -> SHA
	fileSHAs    map[string]string // path -> blob SHA on the bot branch
	openPRs     []model.PullRequestRef

	headErr      error
	forceErr     error
	createErr    error
	putErr       func(path string) error
	listPRErr    error
	createPRErr  error
	forceUpdates []string // SHAs the bot branch was reset to
	created      []string // SHAs the bot branch was created at
	putFiles     []putFileCall
	createdPRs   []model.PullRequestRef
	lastPRBody   string
}

func (m *mockGitHubWriter) GetBranchHead(_ context.Context, _, _, branch string) (string, error) {
	if m.headErr != nil {
		return "", m.headErr
	}
	return m.branchHeads[branch], nil
}

func (m *mockGitHubWriter) ForceUpdateBranch(_ context.Context, _, _, _, sha string) error {
	if m.forceErr != nil {
		return m.forceErr
	}
	m.forceUpdates = append(m.forceUpdates, sha)
	return nil
}

func (m *mockGitHubWriter) CreateBranch(_ context.Context, _, _, _, sha string) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, sha)
	return nil
}

func (m *mockGitHubWriter) GetFileSHA(_ context.Context, _, _, path, _ string) (string, error) {
	if sha, ok := m.fileSHAs[path]; ok {
		return sha, nil
	}
	return "", driven.ErrNotFound
}

func (m *mockGitHubWriter) PutFile(_ context.Context, _, _, branch, path, message, content, blobSHA string) error {
	if m.putErr != nil {
		if err := m.putErr(path); err != nil {
			return err
		}
	}
	m.putFiles = append(m.putFiles, putFileCall{
		Branch: branch, Path: path, Message: message, Content: content, BlobSHA: blobSHA,
	})
	return nil
}

func (m *mockGitHubWriter) ListOpenPullRequests(_ context.Context, _, _, _ string) ([]model.PullRequestRef, error) {
	if m.listPRErr != nil {
		return nil, m.listPRErr
	}
	return m.openPRs, nil
}

func (m *mockGitHubWriter) CreatePullRequest(_ context.Context, _, _, _, _, _, body string) (*model.PullRequestRef, error) {
	if m.createPRErr != nil {
		return nil, m.createPRErr
	}
	pr := model.PullRequestRef{Number: len(m.createdPRs) + 1, URL: "https://github.test/pr/1"}
	m.createdPRs = append(m.createdPRs, pr)
	m.lastPRBody = body
	return &pr, nil
}
