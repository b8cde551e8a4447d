// Package github implements the repository gateway ports using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/autopatch/internal/domain/model"
	"github.com/ericfisherdev/autopatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// Client implements the repository gateway ports using the go-github library.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// ListRecentCommits returns up to limit commits on the repository's default
// branch, most recent first as reported by the GitHub API.
func (c *Client) ListRecentCommits(ctx context.Context, owner, repo string, limit int) ([]model.CommitRef, error) {
	opts := &gh.CommitsListOptions{
		ListOptions: gh.ListOptions{PerPage: limit},
	}

	commits, resp, err := c.gh.Repositories.ListCommits(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("listing commits for %s/%s: %w", owner, repo, err)
	}

	logRateLimit(resp, owner+"/"+repo+" commits", len(commits))

	refs := make([]model.CommitRef, 0, len(commits))
	for _, commit := range commits {
		refs = append(refs, model.CommitRef{
			Owner:        owner,
			Repo:         repo,
			SHA:          commit.GetSHA(),
			AuthorName:   commitAuthorName(commit),
			AuthorAvatar: commit.GetAuthor().GetAvatarURL(),
		})
	}

	return refs, nil
}

// FetchCommit returns one commit's author identity and file-level change list.
// The file list may be empty for merge commits; callers decide what that means.
func (c *Client) FetchCommit(ctx context.Context, owner, repo, sha string) (*model.CommitDetail, error) {
	commit, resp, err := c.gh.Repositories.GetCommit(ctx, owner, repo, sha, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching commit %s/%s@%s: %w", owner, repo, model.ShortSHA(sha), err)
	}

	logRateLimit(resp, owner+"/"+repo+" commit", len(commit.Files))

	detail := &model.CommitDetail{
		AuthorName:   commitAuthorName(commit),
		AuthorAvatar: commit.GetAuthor().GetAvatarURL(),
	}

	for _, f := range commit.Files {
		detail.Files = append(detail.Files, model.CommitFileMeta{
			Path:   f.GetFilename(),
			Status: f.GetStatus(),
		})
	}

	return detail, nil
}

// FetchFileContent returns a file's decoded content at the given ref.
func (c *Client) FetchFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	file, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, &gh.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", fmt.Errorf("fetching content of %s at %s: %w", path, model.ShortSHA(ref), err)
	}
	if file == nil {
		return "", fmt.Errorf("fetching content of %s at %s: path is a directory", path, model.ShortSHA(ref))
	}

	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding content of %s at %s: %w", path, model.ShortSHA(ref), err)
	}

	return content, nil
}

// FetchDefaultBranch returns the repository's default branch name.
func (c *Client) FetchDefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	repository, _, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", fmt.Errorf("fetching repository %s/%s: %w", owner, repo, err)
	}

	branch := repository.GetDefaultBranch()
	if branch == "" {
		return "", fmt.Errorf("repository %s/%s has no default branch", owner, repo)
	}

	return branch, nil
}

// commitAuthorName resolves the best author identity for a commit: the
// GitHub login when the commit is linked to an account, otherwise the
// git author name.
func commitAuthorName(commit *gh.RepositoryCommit) string {
	if login := commit.GetAuthor().GetLogin(); login != "" {
		return login
	}
	return commit.GetCommit().GetAuthor().GetName()
}

// logRateLimit logs remaining API quota at debug level and warns when low.
func logRateLimit(resp *gh.Response, endpoint string, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
