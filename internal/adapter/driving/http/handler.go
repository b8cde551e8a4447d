// Package httphandler is the HTTP driving adapter: the REST API and the
// GitHub webhook endpoint.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/autopatch/internal/application"
	"github.com/ericfisherdev/autopatch/internal/domain/model"
	"github.com/ericfisherdev/autopatch/internal/domain/port/driven"
)

// Handler serves the REST API.
type Handler struct {
	store         driven.AnalysisStore
	syncSvc       *application.SyncService
	reportSvc     *application.ReportService
	webhookSecret []byte
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	store driven.AnalysisStore,
	syncSvc *application.SyncService,
	reportSvc *application.ReportService,
	webhookSecret string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		store:         store,
		syncSvc:       syncSvc,
		reportSvc:     reportSvc,
		webhookSecret: []byte(webhookSecret),
		logger:        logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /webhook/github", h.GitHubWebhook)
	mux.HandleFunc("GET /api/v1/analyses", h.ListAnalyses)
	mux.HandleFunc("GET /api/v1/reports/{username}", h.AuthorReport)
	mux.HandleFunc("POST /api/v1/sync", h.TriggerSync)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListAnalyses returns recorded analyses with their issues, newest first.
// An optional ?author= query filters to one normalized author name.
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	var (
		analyses []model.Analysis
		err      error
	)

	if author := r.URL.Query().Get("author"); author != "" {
		analyses, err = h.store.ListByAuthor(r.Context(), model.NormalizeAuthorName(author))
	} else {
		analyses, err = h.store.ListAll(r.Context())
	}
	if err != nil {
		h.logger.Error("failed to list analyses", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]AnalysisResponse, 0, len(analyses))
	for _, a := range analyses {
		resp = append(resp, toAnalysisResponse(a))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AuthorReport generates and returns a security report for one author.
func (h *Handler) AuthorReport(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	report, err := h.reportSvc.GenerateAuthorReport(r.Context(), username)
	if err != nil {
		h.logger.Error("failed to generate report", "author", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toReportResponse(*report))
}

// TriggerSync runs a discovery sync for the requested repository. The
// round runs inside the request; a concurrent round answers 503.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !isValidRepoPart(req.Owner) || !isValidRepoPart(req.Repo) {
		writeError(w, http.StatusBadRequest, "owner and repo are required")
		return
	}

	if err := h.syncSvc.Sync(r.Context(), req.Owner, req.Repo); err != nil {
		if errors.Is(err, application.ErrSyncBusy) {
			writeError(w, http.StatusServiceUnavailable, "sync already in progress")
			return
		}
		h.logger.Error("sync failed", "owner", req.Owner, "repo", req.Repo, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusAccepted, SyncResponse{Status: "completed"})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// isValidRepoPart returns true if s is a plausible repository owner or
// name: non-empty, alphanumerics plus hyphen, dot, and underscore.
func isValidRepoPart(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		ok := (ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '-' || ch == '.' || ch == '_'
		if !ok {
			return false
		}
	}
	return true
}
