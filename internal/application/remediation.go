package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/autopatch/internal/domain/model"
	"github.com/ericfisherdev/autopatch/internal/domain/port/driven"
)

// BotBranch is the integration branch all remediation commits land on.
// The reconciler owns it completely: every round force-resets it to the
// target branch tip before publishing.
const BotBranch = "auto-patch"

const pullRequestTitle = "[Auto-Patch] Automated Security Fixes"

// Remediator resets the bot branch, publishes patched files onto it, and
// makes sure an open pull request points at the target branch.
type Remediator struct {
	writer driven.GitHubWriter
	store  driven.AnalysisStore
}

// NewRemediator creates a Remediator with its required dependencies.
func NewRemediator(writer driven.GitHubWriter, store driven.AnalysisStore) *Remediator {
	return &Remediator{
		writer: writer,
		store:  store,
	}
}

// Remediate runs one remediation round for an analyzed commit: reset the
// bot branch to the target branch tip, write every patch as its own
// commit, ensure an open PR exists, and record its URL on the analysis.
// Publish failures after the reset are reported but already-written file
// commits are not rolled back.
func (r *Remediator) Remediate(ctx context.Context, commit model.CommitRef, analysis model.Analysis, patches []model.Patch) (string, error) {
	if len(patches) == 0 {
		return "", fmt.Errorf("remediate %s: no patches to publish", commit.ShortSHA())
	}

	if err := r.resetBotBranch(ctx, commit); err != nil {
		return "", err
	}

	published := 0
	for _, patch := range patches {
		if err := r.publishPatch(ctx, commit, patch); err != nil {
			slog.Error("patch publish failed",
				"repo", commit.FullName(),
				"commit", commit.ShortSHA(),
				"file", patch.FilePath,
				"error", err,
			)
			continue
		}
		published++
	}
	if published == 0 {
		return "", fmt.Errorf("remediate %s: no patches could be published", commit.ShortSHA())
	}

	prURL, err := r.ensurePullRequest(ctx, commit, analysis)
	if err != nil {
		return "", err
	}

	if err := r.store.AttachPullRequestURL(ctx, commit.SHA, prURL); err != nil {
		return "", fmt.Errorf("record PR URL for %s: %w", commit.ShortSHA(), err)
	}

	slog.Info("remediation round complete",
		"repo", commit.FullName(),
		"commit", commit.ShortSHA(),
		"patches", published,
		"pr_url", prURL,
	)

	return prURL, nil
}

// resetBotBranch force-moves the bot branch to the target branch tip,
// creating it when it does not exist yet. Stale bot-branch commits from
// earlier rounds are discarded on purpose.
func (r *Remediator) resetBotBranch(ctx context.Context, commit model.CommitRef) error {
	tip, err := r.writer.GetBranchHead(ctx, commit.Owner, commit.Repo, commit.TargetBranch)
	if err != nil {
		return fmt.Errorf("resolve %s tip: %w", commit.TargetBranch, err)
	}

	err = r.writer.ForceUpdateBranch(ctx, commit.Owner, commit.Repo, BotBranch, tip)
	if errors.Is(err, driven.ErrRefNotFound) {
		if err := r.writer.CreateBranch(ctx, commit.Owner, commit.Repo, BotBranch, tip); err != nil {
			return fmt.Errorf("create %s branch: %w", BotBranch, err)
		}
		slog.Info("bot branch created", "repo", commit.FullName(), "base_sha", model.ShortSHA(tip))
		return nil
	}
	if err != nil {
		return fmt.Errorf("reset %s branch: %w", BotBranch, err)
	}

	return nil
}

// publishPatch writes one patched file to the bot branch as a single
// commit, choosing create or update by whether the file already exists
// there.
func (r *Remediator) publishPatch(ctx context.Context, commit model.CommitRef, patch model.Patch) error {
	blobSHA, err := r.writer.GetFileSHA(ctx, commit.Owner, commit.Repo, patch.FilePath, BotBranch)
	if errors.Is(err, driven.ErrNotFound) {
		blobSHA = ""
	} else if err != nil {
		return fmt.Errorf("look up %s on %s: %w", patch.FilePath, BotBranch, err)
	}

	message := fmt.Sprintf("[AutoPatch] Fix: %s (from commit %s)", patch.FilePath, commit.ShortSHA())
	if err := r.writer.PutFile(ctx, commit.Owner, commit.Repo, BotBranch, patch.FilePath, message, patch.PatchedContent, blobSHA); err != nil {
		return fmt.Errorf("write %s to %s: %w", patch.FilePath, BotBranch, err)
	}

	return nil
}

// ensurePullRequest returns the URL of the open bot-branch PR, creating
// one when none exists. Reusing the open PR keeps successive rounds from
// piling up duplicates.
func (r *Remediator) ensurePullRequest(ctx context.Context, commit model.CommitRef, analysis model.Analysis) (string, error) {
	open, err := r.writer.ListOpenPullRequests(ctx, commit.Owner, commit.Repo, BotBranch)
	if err != nil {
		return "", fmt.Errorf("list open %s PRs: %w", BotBranch, err)
	}
	if len(open) > 0 {
		return open[0].URL, nil
	}

	pr, err := r.writer.CreatePullRequest(ctx, commit.Owner, commit.Repo,
		BotBranch, commit.TargetBranch, pullRequestTitle, pullRequestBody(commit, analysis))
	if err != nil {
		return "", fmt.Errorf("create %s PR: %w", BotBranch, err)
	}

	return pr.URL, nil
}

// pullRequestBody renders the PR description: originating commit, its
// score, and every recorded issue.
func pullRequestBody(commit model.CommitRef, analysis model.Analysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Automated security fixes generated for commit `%s`.\n\n", commit.ShortSHA())
	fmt.Fprintf(&b, "**Security score:** %d/100\n\n", analysis.OverallScore)

	if len(analysis.Issues) > 0 {
		b.WriteString("## Issues addressed\n\n")
		for _, issue := range analysis.Issues {
			fmt.Fprintf(&b, "- **[%s]** %s", strings.ToUpper(string(issue.Severity)), issue.Title)
			if issue.FilePath != "" {
				fmt.Fprintf(&b, " (`%s`", issue.FilePath)
				if issue.Line > 0 {
					fmt.Fprintf(&b, ":%d", issue.Line)
				}
				b.WriteString(")")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Review each change carefully before merging.\n")

	return b.String()
}
