// Package model contains domain entities shared across the application
// and adapter layers.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Analysis is one ledger entry: the recorded verdict for a single
// commit, plus the remediation PR attached to it, if any.
type Analysis struct {
	ID           int64
	CommitID     string
	RepoFullName string
	OverallScore int
	AuthorName   string
	AuthorAvatar string
	PRURL        string
	CreatedAt    time.Time
	Issues       []Issue
}

// Issue is one security finding within an analysis.
type Issue struct {
	ID          int64
	AnalysisID  int64
	Title       string
	Severity    Severity
	Description string
	FilePath    string
	Line        int
}

// Verdict is the assessor's answer for one commit before it is
// persisted. Raw retains the extracted response JSON for audit.
type Verdict struct {
	OverallScore int
	Issues       []Issue
	Patches      []Patch
	Raw          json.RawMessage
}

// Patch is a full-file replacement proposed by the assessor.
type Patch struct {
	FilePath       string
	PatchedContent string
}

// FileSnapshot is one file's content as fetched at a commit.
type FileSnapshot struct {
	Path    string
	Content string
}

// ScoreFallback is the neutral score recorded when the assessor's
// response carries no usable number.
const ScoreFallback = 60

// ClampScore bounds a score to the [0, 100] range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// NormalizeAuthorName strips all whitespace from an author name and maps
// an empty result to "Unknown". Spellings like "Malak Abed" and
// "MalakAbed" must land on the same ledger author.
func NormalizeAuthorName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "Unknown"
	}
	return strings.Join(fields, "")
}
