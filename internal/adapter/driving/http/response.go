package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/autopatch/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// AnalysisResponse is the JSON representation of one analyzed commit.
type AnalysisResponse struct {
	ID           int64           `json:"id"`
	CommitID     string          `json:"commit_id"`
	Repository   string          `json:"repository"`
	OverallScore int             `json:"overall_score"`
	Author       string          `json:"author"`
	AuthorAvatar string          `json:"author_avatar,omitempty"`
	PRURL        string          `json:"pr_url,omitempty"`
	CreatedAt    string          `json:"created_at"`
	Issues       []IssueResponse `json:"issues"`
}

// IssueResponse is the JSON representation of a single security issue.
type IssueResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Severity    string `json:"severity"`
	Description string `json:"description,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	Line        int    `json:"line,omitempty"`
}

// ReportResponse is the JSON representation of an author security report.
// SummaryHTML is the summary rendered through markdown and sanitized.
type ReportResponse struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	SummaryHTML     string   `json:"summary_html"`
	RiskLevel       string   `json:"risk_level"`
	Recommendations []string `json:"recommendations"`
	TopIssues       []string `json:"top_issues"`
	GeneratedAt     string   `json:"generated_at"`
}

// SyncRequest is the JSON body for the manual sync endpoint.
type SyncRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// SyncResponse is the JSON body answered by the manual sync endpoint.
type SyncResponse struct {
	Status string `json:"status"`
}

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	Status string `json:"status"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toAnalysisResponse converts a domain Analysis to its JSON representation.
func toAnalysisResponse(a model.Analysis) AnalysisResponse {
	issues := make([]IssueResponse, 0, len(a.Issues))
	for _, issue := range a.Issues {
		issues = append(issues, IssueResponse{
			ID:          issue.ID,
			Title:       issue.Title,
			Severity:    string(issue.Severity),
			Description: issue.Description,
			FilePath:    issue.FilePath,
			Line:        issue.Line,
		})
	}

	return AnalysisResponse{
		ID:           a.ID,
		CommitID:     a.CommitID,
		Repository:   a.RepoFullName,
		OverallScore: a.OverallScore,
		Author:       a.AuthorName,
		AuthorAvatar: a.AuthorAvatar,
		PRURL:        a.PRURL,
		CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339),
		Issues:       issues,
	}
}

// toReportResponse converts a domain AuthorReport to its JSON representation.
func toReportResponse(r model.AuthorReport) ReportResponse {
	recommendations := r.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}
	topIssues := r.TopIssues
	if topIssues == nil {
		topIssues = []string{}
	}

	return ReportResponse{
		Title:           r.Title,
		Summary:         r.Summary,
		SummaryHTML:     RenderMarkdown(r.Summary),
		RiskLevel:       string(r.RiskLevel),
		Recommendations: recommendations,
		TopIssues:       topIssues,
		GeneratedAt:     r.GeneratedAt.UTC().Format(time.RFC3339),
	}
}
