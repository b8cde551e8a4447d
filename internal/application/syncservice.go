// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ericfisherdev/autopatch/internal/domain/model"
	"github.com/ericfisherdev/autopatch/internal/domain/port/driven"
)

// ErrSyncBusy is returned when a sync round is already running.
var ErrSyncBusy = errors.New("sync already in progress")

// PushBatch is the relevant slice of a GitHub push event: where it
// landed and which commits it introduced.
type PushBatch struct {
	Owner   string
	Repo    string
	Ref     string
	Commits []PushCommit
}

// PushCommit is one commit inside a push event. Distinct is false for
// commits the push merely made reachable again (already on the remote).
type PushCommit struct {
	SHA          string
	Distinct     bool
	AuthorName   string
	AuthorAvatar string
}

// SyncService owns commit intake. Both entry points, webhook pushes and
// on-demand discovery syncs, funnel through a single-slot guard so at
// most one round runs per process, and commits inside a round are
// processed strictly one at a time.
type SyncService struct {
	ghClient driven.GitHubClient
	commits  *CommitService
	pageSize int

	mu sync.Mutex
}

// NewSyncService creates a SyncService with all required dependencies.
func NewSyncService(ghClient driven.GitHubClient, commits *CommitService, pageSize int) *SyncService {
	return &SyncService{
		ghClient: ghClient,
		commits:  commits,
		pageSize: pageSize,
	}
}

// Sync discovers the repository's most recent commits and processes the
// ones the ledger does not know yet, oldest first. Returns ErrSyncBusy
// without doing anything when another round holds the guard.
func (s *SyncService) Sync(ctx context.Context, owner, repo string) error {
	if !s.mu.TryLock() {
		return ErrSyncBusy
	}
	defer s.mu.Unlock()

	start := time.Now()

	branch, err := s.ghClient.FetchDefaultBranch(ctx, owner, repo)
	if err != nil {
		return fmt.Errorf("resolve default branch for %s/%s: %w", owner, repo, err)
	}

	recent, err := s.ghClient.ListRecentCommits(ctx, owner, repo, s.pageSize)
	if err != nil {
		return fmt.Errorf("list commits for %s/%s: %w", owner, repo, err)
	}

	// The API reports newest first; process oldest first so the ledger
	// and the bot branch advance in history order.
	counts := map[Outcome]int{}
	for i := len(recent) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		commit := recent[i]
		commit.TargetBranch = branch

		outcome, err := s.commits.Process(ctx, commit)
		if err != nil {
			slog.Error("commit processing failed",
				"repo", commit.FullName(), "commit", commit.ShortSHA(), "error", err)
		}
		counts[outcome]++
	}

	slog.Info("sync round complete",
		"repo", owner+"/"+repo,
		"commits", len(recent),
		"analyzed", counts[OutcomeAnalyzed],
		"remediated", counts[OutcomeRemediated],
		"skipped", counts[OutcomeAlreadyAnalyzed]+counts[OutcomeNoFileChanges],
		"failed", counts[OutcomeFailed],
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

// HandlePush processes a push event's distinct commits in delivery
// order. Pushes to the bot branch are the service's own writes and are
// ignored, as is any push arriving while a round is running; dropped
// events are recovered by the next discovery sync.
func (s *SyncService) HandlePush(ctx context.Context, batch PushBatch) {
	if strings.Contains(batch.Ref, BotBranch) {
		slog.Debug("ignoring push to bot branch", "repo", batch.Owner+"/"+batch.Repo, "ref", batch.Ref)
		return
	}

	if !s.mu.TryLock() {
		slog.Warn("push dropped, sync in progress",
			"repo", batch.Owner+"/"+batch.Repo, "ref", batch.Ref, "commits", len(batch.Commits))
		return
	}
	defer s.mu.Unlock()

	branch := strings.TrimPrefix(batch.Ref, "refs/heads/")

	for _, pc := range batch.Commits {
		if ctx.Err() != nil {
			return
		}
		if !pc.Distinct {
			slog.Debug("skipping non-distinct commit",
				"repo", batch.Owner+"/"+batch.Repo, "commit", model.ShortSHA(pc.SHA))
			continue
		}

		commit := model.CommitRef{
			Owner:        batch.Owner,
			Repo:         batch.Repo,
			SHA:          pc.SHA,
			TargetBranch: branch,
			AuthorName:   pc.AuthorName,
			AuthorAvatar: pc.AuthorAvatar,
		}

		outcome, err := s.commits.Process(ctx, commit)
		if err != nil {
			slog.Error("commit processing failed",
				"repo", commit.FullName(), "commit", commit.ShortSHA(), "error", err)
			continue
		}

		slog.Debug("push commit processed",
			"repo", commit.FullName(), "commit", commit.ShortSHA(), "outcome", string(outcome))
	}
}
