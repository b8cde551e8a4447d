package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/autopatch/internal/domain/model"
	"github.com/ericfisherdev/autopatch/internal/domain/port/driven"
)

// topIssueLimit caps how many issue titles seed and appear in a report.
const topIssueLimit = 3

// ReportService produces per-author security reports from the ledger.
type ReportService struct {
	store    driven.AnalysisStore
	assessor driven.SecurityAssessor
}

// NewReportService creates a ReportService with its required dependencies.
func NewReportService(store driven.AnalysisStore, assessor driven.SecurityAssessor) *ReportService {
	return &ReportService{
		store:    store,
		assessor: assessor,
	}
}

// GenerateAuthorReport aggregates an author's analyses and asks the
// assessor for a narrative report. When the assessor is unavailable the
// report falls back to a deterministic summary so the endpoint keeps
// working.
func (s *ReportService) GenerateAuthorReport(ctx context.Context, username string) (*model.AuthorReport, error) {
	username = model.NormalizeAuthorName(username)

	analyses, err := s.store.ListByAuthor(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("load analyses for %s: %w", username, err)
	}

	if len(analyses) == 0 {
		return &model.AuthorReport{
			Title:           "Security Report for " + username,
			Summary:         "No commits analyzed for this author yet.",
			RiskLevel:       model.RiskLow,
			Recommendations: []string{},
			TopIssues:       []string{},
			GeneratedAt:     time.Now().UTC(),
		}, nil
	}

	stats := computeAuthorStats(username, analyses)

	report, err := s.assessor.GenerateAuthorReport(ctx, stats)
	if err != nil {
		slog.Error("report generation failed, using fallback", "author", username, "error", err)
		return fallbackReport(stats), nil
	}
	if report.Title == "" {
		report.Title = "Security Report for " + username
	}

	return report, nil
}

// computeAuthorStats folds an author's analyses into the aggregates the
// report prompt consumes.
func computeAuthorStats(username string, analyses []model.Analysis) model.AuthorStats {
	stats := model.AuthorStats{
		Username:          username,
		CommitsCount:      len(analyses),
		SeverityBreakdown: map[model.Severity]int{},
		IssueTypeCounts:   map[string]int{},
	}

	total := 0
	for _, a := range analyses {
		total += a.OverallScore
		for _, issue := range a.Issues {
			stats.SeverityBreakdown[issue.Severity]++
			if issue.Title != "" {
				stats.IssueTypeCounts[issue.Title]++
			}
		}
	}
	stats.AverageScore = total / len(analyses)

	return stats
}

// fallbackReport builds a deterministic report straight from the stats.
func fallbackReport(stats model.AuthorStats) *model.AuthorReport {
	risk := model.RiskLevelForScore(stats.AverageScore)

	return &model.AuthorReport{
		Title: "Security Report for " + stats.Username,
		Summary: fmt.Sprintf(
			"Analyzed %d commits with an average security score of %d/100. Risk level: %s.",
			stats.CommitsCount, stats.AverageScore, risk,
		),
		RiskLevel: risk,
		Recommendations: []string{
			"Review flagged commits and apply the suggested fixes.",
			"Keep security scores above the remediation threshold.",
		},
		TopIssues:   stats.TopIssueTitles(topIssueLimit),
		GeneratedAt: time.Now().UTC(),
	}
}
