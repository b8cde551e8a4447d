package driven

import (
	"context"

	"github.com/ericfisherdev/autopatch/internal/domain/model"
)

// GitHubClient defines the read side of the remote repository gateway.
type GitHubClient interface {
	// ListRecentCommits returns up to limit commits on the repository's
	// default branch, most recent first as reported by the API.
	ListRecentCommits(ctx context.Context, owner, repo string, limit int) ([]model.CommitRef, error)
	// FetchCommit returns one commit's author identity and file-level
	// change list. Merge commits may carry an empty file list.
	FetchCommit(ctx context.Context, owner, repo, sha string) (*model.CommitDetail, error)
	// FetchFileContent returns a file's decoded content at the given ref.
	FetchFileContent(ctx context.Context, owner, repo, path, ref string) (string, error)
	// FetchDefaultBranch returns the repository's default branch name.
	FetchDefaultBranch(ctx context.Context, owner, repo string) (string, error)
}
