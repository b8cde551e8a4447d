package httphandler

import (
	"context"
	"net/http"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/autopatch/internal/application"
)

// GitHubWebhook receives GitHub event deliveries. The raw body is HMAC
// validated against the configured secret before any parsing. Push
// events are handed to the sync service asynchronously; the delivery is
// acknowledged immediately so GitHub never waits on an LLM round trip.
func (h *Handler) GitHubWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := gh.ValidatePayload(r, h.webhookSecret)
	if err != nil {
		h.logger.Warn("webhook signature rejected", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	event, err := gh.ParseWebHook(gh.WebHookType(r), payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unparseable payload")
		return
	}

	push, ok := event.(*gh.PushEvent)
	if !ok {
		writeJSON(w, http.StatusAccepted, WebhookResponse{Status: "ignored"})
		return
	}

	batch := pushBatchFrom(push)
	h.logger.Info("push event received",
		"repo", batch.Owner+"/"+batch.Repo,
		"ref", batch.Ref,
		"commits", len(batch.Commits),
	)

	// The request context dies with the response; processing continues
	// on its own.
	go h.syncSvc.HandlePush(context.Background(), batch)

	writeJSON(w, http.StatusAccepted, WebhookResponse{Status: "accepted"})
}

// pushBatchFrom maps the wire event to the application's push batch.
func pushBatchFrom(push *gh.PushEvent) application.PushBatch {
	commits := make([]application.PushCommit, 0, len(push.Commits))
	for _, c := range push.Commits {
		commits = append(commits, application.PushCommit{
			SHA:        c.GetID(),
			Distinct:   c.GetDistinct(),
			AuthorName: c.GetAuthor().GetName(),
		})
	}

	return application.PushBatch{
		Owner:   push.GetRepo().GetOwner().GetLogin(),
		Repo:    push.GetRepo().GetName(),
		Ref:     push.GetRef(),
		Commits: commits,
	}
}
