package model

import "time"

// AuthorReport is an LLM-generated summary of one author's security
// posture across all of their analyzed commits.
type AuthorReport struct {
	Title           string
	Summary         string
	RiskLevel       RiskLevel
	Recommendations []string
	TopIssues       []string
	GeneratedAt     time.Time
}

// AuthorStats are the aggregates computed from the ledger that seed an
// author report.
type AuthorStats struct {
	Username          string
	CommitsCount      int
	AverageScore      int
	SeverityBreakdown map[Severity]int
	IssueTypeCounts   map[string]int
}

// TopIssueTitles returns the most frequent issue titles, highest count
// first, capped at limit.
func (s AuthorStats) TopIssueTitles(limit int) []string {
	type entry struct {
		title string
		count int
	}

	entries := make([]entry, 0, len(s.IssueTypeCounts))
	for title, count := range s.IssueTypeCounts {
		entries = append(entries, entry{title: title, count: count})
	}

	// Insertion sort by count descending, title ascending for stable output.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0; j-- {
			a, b := entries[j-1], entries[j]
			if b.count > a.count || (b.count == a.count && b.title < a.title) {
				entries[j-1], entries[j] = b, a
			} else {
				break
			}
		}
	}

	if limit > len(entries) {
		limit = len(entries)
	}

	titles := make([]string, 0, limit)
	for _, e := range entries[:limit] {
		titles = append(titles, e.title)
	}
	return titles
}
