package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/autopatch/internal/domain/model"
	"github.com/ericfisherdev/autopatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubWriter = (*Client)(nil)

// GetBranchHead returns the tip commit SHA of a branch.
func (c *Client) GetBranchHead(ctx context.Context, owner, repo, branch string) (string, error) {
	ref, _, err := c.gh.Git.GetRef(ctx, owner, repo, "heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("getting ref heads/%s in %s/%s: %w", branch, owner, repo, err)
	}

	sha := ref.GetObject().GetSHA()
	if sha == "" {
		return "", fmt.Errorf("ref heads/%s in %s/%s has no object SHA", branch, owner, repo)
	}

	return sha, nil
}

// ForceUpdateBranch moves a branch reference to the given SHA, discarding any
// commits not reachable from it. GitHub reports a missing branch as 404 or as
// a 422 validation failure; both map to driven.ErrRefNotFound so the caller
// can create the branch instead.
func (c *Client) ForceUpdateBranch(ctx context.Context, owner, repo, branch, sha string) error {
	_, _, err := c.gh.Git.UpdateRef(ctx, owner, repo, "heads/"+branch, gh.UpdateRef{SHA: sha, Force: gh.Ptr(true)})
	if err != nil {
		if isStatus(err, http.StatusNotFound) || isStatus(err, http.StatusUnprocessableEntity) {
			return fmt.Errorf("updating ref heads/%s in %s/%s: %w", branch, owner, repo, driven.ErrRefNotFound)
		}
		return fmt.Errorf("updating ref heads/%s in %s/%s: %w", branch, owner, repo, err)
	}

	return nil
}

// CreateBranch creates a new branch reference pointing at the given SHA.
func (c *Client) CreateBranch(ctx context.Context, owner, repo, branch, sha string) error {
	_, _, err := c.gh.Git.CreateRef(ctx, owner, repo, gh.CreateRef{Ref: "refs/heads/" + branch, SHA: sha})
	if err != nil {
		return fmt.Errorf("creating ref refs/heads/%s in %s/%s: %w", branch, owner, repo, err)
	}

	return nil
}

// GetFileSHA returns the blob SHA of a file on a branch. A 404 maps to
// driven.ErrNotFound; the caller treats that as "file does not exist yet".
func (c *Client) GetFileSHA(ctx context.Context, owner, repo, path, branch string) (string, error) {
	file, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, &gh.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return "", fmt.Errorf("getting blob SHA of %s on %s: %w", path, branch, driven.ErrNotFound)
		}
		return "", fmt.Errorf("getting blob SHA of %s on %s: %w", path, branch, err)
	}
	if file == nil {
		return "", fmt.Errorf("getting blob SHA of %s on %s: path is a directory", path, branch)
	}

	return file.GetSHA(), nil
}

// PutFile writes full file content as a single commit on a branch. An empty
// blobSHA creates the file; a non-empty one updates it, so the write fails
// rather than silently clobbering a file changed since the SHA was read.
func (c *Client) PutFile(ctx context.Context, owner, repo, branch, path, message, content, blobSHA string) error {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: []byte(content),
		Branch:  gh.Ptr(branch),
	}

	var err error
	if blobSHA == "" {
		_, _, err = c.gh.Repositories.CreateFile(ctx, owner, repo, path, opts)
	} else {
		opts.SHA = gh.Ptr(blobSHA)
		_, _, err = c.gh.Repositories.UpdateFile(ctx, owner, repo, path, opts)
	}
	if err != nil {
		return fmt.Errorf("writing %s on %s in %s/%s: %w", path, branch, owner, repo, err)
	}

	return nil
}

// ListOpenPullRequests returns the open pull requests whose head is the given branch.
func (c *Client) ListOpenPullRequests(ctx context.Context, owner, repo, headBranch string) ([]model.PullRequestRef, error) {
	opts := &gh.PullRequestListOptions{
		State:       "open",
		Head:        owner + ":" + headBranch,
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	prs, _, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("listing open PRs with head %s in %s/%s: %w", headBranch, owner, repo, err)
	}

	refs := make([]model.PullRequestRef, 0, len(prs))
	for _, pr := range prs {
		refs = append(refs, model.PullRequestRef{
			Number: pr.GetNumber(),
			URL:    pr.GetHTMLURL(),
		})
	}

	return refs, nil
}

// CreatePullRequest opens a pull request from head into base.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo, head, base, title, body string) (*model.PullRequestRef, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, owner, repo, &gh.NewPullRequest{
		Title: gh.Ptr(title),
		Head:  gh.Ptr(head),
		Base:  gh.Ptr(base),
		Body:  gh.Ptr(body),
	})
	if err != nil {
		return nil, fmt.Errorf("creating PR %s -> %s in %s/%s: %w", head, base, owner, repo, err)
	}

	return &model.PullRequestRef{
		Number: pr.GetNumber(),
		URL:    pr.GetHTMLURL(),
	}, nil
}

// isStatus reports whether err is a GitHub API error with the given HTTP status.
func isStatus(err error, status int) bool {
	var ghErr *gh.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == status
}
