package driven

import (
	"context"

	"github.com/ericfisherdev/autopatch/internal/domain/model"
)

// GitHubWriter defines the write side of the remote repository gateway.
// All writes are scoped to the bot's integration branch.
type GitHubWriter interface {
	// GetBranchHead returns the tip commit SHA of a branch.
	GetBranchHead(ctx context.Context, owner, repo, branch string) (string, error)
	// ForceUpdateBranch moves a branch reference to the given SHA,
	// discarding any commits not reachable from it. Returns
	// ErrRefNotFound when the branch does not exist yet.
	ForceUpdateBranch(ctx context.Context, owner, repo, branch, sha string) error
	// CreateBranch creates a new branch reference pointing at the given SHA.
	CreateBranch(ctx context.Context, owner, repo, branch, sha string) error
	// GetFileSHA returns the blob SHA of a file on a branch, or
	// ErrNotFound when the file does not exist there.
	GetFileSHA(ctx context.Context, owner, repo, path, branch string) (string, error)
	// PutFile writes full file content as a single commit on a branch.
	// blobSHA must be the file's current blob SHA for updates and empty
	// for new files.
	PutFile(ctx context.Context, owner, repo, branch, path, message, content, blobSHA string) error
	// ListOpenPullRequests returns the open pull requests whose head is
	// the given branch.
	ListOpenPullRequests(ctx context.Context, owner, repo, headBranch string) ([]model.PullRequestRef, error)
	// CreatePullRequest opens a pull request from head into base.
	CreatePullRequest(ctx context.Context, owner, repo, head, base, title, body string) (*model.PullRequestRef, error)
}
