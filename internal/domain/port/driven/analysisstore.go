package driven

import (
	"context"

	"github.com/ericfisherdev/autopatch/internal/domain/model"
)

// AnalysisStore defines the driven port for the commit ledger: the
// durable record of which commits have been analyzed, their verdicts,
// and any pull request attached.
type AnalysisStore interface {
	// Exists reports whether the commit has already been analyzed.
	Exists(ctx context.Context, commitID string) (bool, error)
	// Insert persists an analysis together with its issues in a single
	// transaction and returns the stored aggregate with IDs assigned.
	Insert(ctx context.Context, analysis model.Analysis) (*model.Analysis, error)
	// AttachPullRequestURL records the remediation PR opened (or updated)
	// for the given commit. Non-destructive: only the pr_url column changes.
	AttachPullRequestURL(ctx context.Context, commitID string, url string) error
	// ListAll returns every analysis with its issues joined, newest first.
	ListAll(ctx context.Context) ([]model.Analysis, error)
	// ListByAuthor returns the analyses attributed to the given normalized
	// author name, newest first, with issues joined.
	ListByAuthor(ctx context.Context, authorName string) ([]model.Analysis, error)
}
