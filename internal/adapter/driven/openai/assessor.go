// Package openai implements the security assessor port against an
// OpenAI-compatible chat-completions API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ericfisherdev/autopatch/internal/domain/model"
	"github.com/ericfisherdev/autopatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecurityAssessor = (*Assessor)(nil)

// maxPromptFileBytes caps how much of each file is embedded in the
// prompt. Larger files are truncated, not skipped.
const maxPromptFileBytes = 4000

const systemPrompt = "You are a strict JSON-only responder."

// Assessor asks a chat-completions model for security verdicts, patches,
// and author reports. All responses are parsed defensively: a malformed
// body degrades to safe defaults instead of an error, because the call
// itself succeeded.
type Assessor struct {
	client openai.Client
	model  string
}

// New creates an Assessor for the given API key, base URL, and model.
func New(apiKey, baseURL, model string) *Assessor {
	return &Assessor{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		),
		model: model,
	}
}

// NewWithClient creates an Assessor around an existing client. Intended
// for tests that point the client at an httptest server.
func NewWithClient(client openai.Client, model string) *Assessor {
	return &Assessor{client: client, model: model}
}

// Assess produces a verdict for one commit's changed files.
func (a *Assessor) Assess(ctx context.Context, req driven.AssessmentRequest) (*model.Verdict, error) {
	payload, err := json.MarshalIndent(assessmentPayload(req), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal assessment payload: %w", err)
	}

	content, err := a.complete(ctx, buildAssessPrompt(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("assess commit %s: %w", model.ShortSHA(req.CommitID), err)
	}

	return parseVerdict(content), nil
}

// GeneratePatches is the narrower second stage: it asks only for
// patches, using the first stage's issues as context. An empty result is
// terminal; the caller must not retry.
func (a *Assessor) GeneratePatches(ctx context.Context, req driven.PatchRequest) ([]model.Patch, error) {
	payload, err := json.MarshalIndent(patchPayload(req), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal patch payload: %w", err)
	}

	content, err := a.complete(ctx, buildPatchPrompt(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("generate patches for %s: %w", model.ShortSHA(req.CommitID), err)
	}

	verdict := parseVerdict(content)
	return verdict.Patches, nil
}

// GenerateAuthorReport writes a narrative security report from
// pre-computed author statistics.
func (a *Assessor) GenerateAuthorReport(ctx context.Context, stats model.AuthorStats) (*model.AuthorReport, error) {
	content, err := a.complete(ctx, buildReportPrompt(stats))
	if err != nil {
		return nil, fmt.Errorf("generate report for %s: %w", stats.Username, err)
	}

	return parseAuthorReport(content), nil
}

// complete runs one chat completion and returns the raw message content.
func (a *Assessor) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(a.model),
		Temperature: openai.Float(0.2),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: response has no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// promptFile is the per-file shape embedded in prompts.
type promptFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// promptIssue is the per-issue shape embedded in the patch prompt.
type promptIssue struct {
	Title       string `json:"title"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	FilePath    string `json:"filePath"`
	Line        int    `json:"line"`
}

func assessmentPayload(req driven.AssessmentRequest) map[string]any {
	return map[string]any{
		"repository": req.RepoFullName,
		"commitId":   req.CommitID,
		"files":      promptFiles(req.Files),
	}
}

func patchPayload(req driven.PatchRequest) map[string]any {
	issues := make([]promptIssue, 0, len(req.Issues))
	for _, issue := range req.Issues {
		issues = append(issues, promptIssue{
			Title:       issue.Title,
			Severity:    string(issue.Severity),
			Description: issue.Description,
			FilePath:    issue.FilePath,
			Line:        issue.Line,
		})
	}

	return map[string]any{
		"repository": req.RepoFullName,
		"commitId":   req.CommitID,
		"files":      promptFiles(req.Files),
		"issues":     issues,
	}
}

func promptFiles(files []model.FileSnapshot) []promptFile {
	out := make([]promptFile, 0, len(files))
	for _, f := range files {
		content := f.Content
		if len(content) > maxPromptFileBytes {
			content = content[:maxPromptFileBytes]
		}
		out = append(out, promptFile{Path: f.Path, Content: content})
	}
	return out
}

// rawVerdict is the tolerant wire shape of an assessment response.
// overall_score is accepted as any JSON type and coerced afterwards.
type rawVerdict struct {
	OverallScore any        `json:"overall_score"`
	Issues       []rawIssue `json:"issues"`
	Patches      []rawPatch `json:"patches"`
}

type rawIssue struct {
	Title       string `json:"title"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	FilePath    string `json:"filePath"`
	Line        any    `json:"line"`
}

type rawPatch struct {
	FilePath       string `json:"filePath"`
	PatchedContent string `json:"patchedContent"`
}

// parseVerdict converts raw model output into a Verdict, substituting
// safe defaults for anything missing or malformed. The extracted JSON
// object (possibly nil) is retained for audit.
func parseVerdict(content string) *model.Verdict {
	verdict := &model.Verdict{
		OverallScore: model.ScoreFallback,
		Issues:       []model.Issue{},
		Patches:      []model.Patch{},
	}

	extracted := extractJSONObject(content)
	if extracted == nil {
		return verdict
	}
	verdict.Raw = json.RawMessage(extracted)

	var raw rawVerdict
	if err := json.Unmarshal(extracted, &raw); err != nil {
		return verdict
	}

	verdict.OverallScore = coerceScore(raw.OverallScore)

	for _, issue := range raw.Issues {
		verdict.Issues = append(verdict.Issues, model.Issue{
			Title:       issue.Title,
			Severity:    model.NormalizeSeverity(issue.Severity),
			Description: issue.Description,
			FilePath:    issue.FilePath,
			Line:        coerceInt(issue.Line),
		})
	}

	for _, patch := range raw.Patches {
		if patch.FilePath == "" || patch.PatchedContent == "" {
			continue
		}
		verdict.Patches = append(verdict.Patches, model.Patch{
			FilePath:       patch.FilePath,
			PatchedContent: patch.PatchedContent,
		})
	}

	return verdict
}

// rawReport is the tolerant wire shape of an author report response.
type rawReport struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	RiskLevel       string   `json:"riskLevel"`
	Recommendations []string `json:"recommendations"`
	TopIssues       []string `json:"topIssues"`
}

func parseAuthorReport(content string) *model.AuthorReport {
	report := &model.AuthorReport{
		RiskLevel:       model.RiskMedium,
		Recommendations: []string{},
		TopIssues:       []string{},
		GeneratedAt:     time.Now().UTC(),
	}

	extracted := extractJSONObject(content)
	if extracted == nil {
		return report
	}

	var raw rawReport
	if err := json.Unmarshal(extracted, &raw); err != nil {
		return report
	}

	report.Title = raw.Title
	report.Summary = raw.Summary
	if raw.RiskLevel != "" {
		switch model.RiskLevel(raw.RiskLevel) {
		case model.RiskLow, model.RiskMedium, model.RiskHigh, model.RiskCritical:
			report.RiskLevel = model.RiskLevel(raw.RiskLevel)
		}
	}
	if raw.Recommendations != nil {
		report.Recommendations = raw.Recommendations
	}
	if raw.TopIssues != nil {
		report.TopIssues = raw.TopIssues
	}

	return report
}

// extractJSONObject returns the outermost {...} span in text, tolerating
// models that wrap JSON in prose or markdown fences. Returns nil when no
// object is present.
func extractJSONObject(text string) []byte {
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last == -1 || last <= first {
		return nil
	}
	return []byte(text[first : last+1])
}

// coerceScore turns whatever the model put in overall_score into a
// clamped [0,100] integer. Non-numeric values yield the neutral fallback.
func coerceScore(v any) int {
	switch n := v.(type) {
	case float64:
		return model.ClampScore(int(n))
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return model.ClampScore(int(parsed))
		}
	case json.Number:
		if parsed, err := n.Float64(); err == nil {
			return model.ClampScore(int(parsed))
		}
	}
	return model.ScoreFallback
}

// coerceInt parses a possibly mistyped integer field, defaulting to 0.
func coerceInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return parsed
		}
	}
	return 0
}

func buildAssessPrompt(payload string) string {
	return strings.TrimSpace(`
You are an expert application security reviewer.

You will receive a JSON object with metadata about a commit and a list of changed files.
Each file has a "path" and "content" string (up to ~4000 characters).

Your job is to:
1. Analyze the code for security vulnerabilities and risky patterns.
2. Produce a numeric overall security score from 0 to 100 (higher is more secure).
3. List concrete issues found.
4. For each issue that can be automatically fixed, produce a fully patched file.

RETURN ONLY A SINGLE JSON OBJECT, with this exact shape:

{
  "overall_score": 0-100 number,
  "issues": [
    {
      "title": "short issue summary",
      "severity": "info|low|medium|high|critical",
      "description": "one or two sentences describing the vulnerability",
      "filePath": "path/to/file.js",
      "line": 123
    }
  ],
  "patches": [
    {
      "filePath": "path/to/file.js",
      "patchedContent": "FULL new content of the file after applying all security fixes"
    }
  ]
}

Important rules:
- The patches array may be empty if no automatic fix is safe.
- patchedContent must be the full file, not a diff.
- Make sure patchedContent is valid JavaScript/TypeScript where applicable.
- Respond with JSON only, no markdown, no comments.

Here is the commit to analyze:

`) + "\n\n" + payload
}

func buildPatchPrompt(payload string) string {
	return strings.TrimSpace(`
You are an expert application security engineer producing automatic fixes.

You will receive a JSON object with a commit's files and the security issues
already found in them. Produce a patched version of each file whose issues can
be fixed safely and mechanically.

RETURN ONLY A SINGLE JSON OBJECT, with this exact shape:

{
  "patches": [
    {
      "filePath": "path/to/file.js",
      "patchedContent": "FULL new content of the file after applying all security fixes"
    }
  ]
}

Important rules:
- Only include a file when you are confident the fix is safe.
- patchedContent must be the full file, not a diff.
- The patches array may be empty.
- Respond with JSON only, no markdown, no comments.

Here are the files and issues:

`) + "\n\n" + payload
}

func buildReportPrompt(stats model.AuthorStats) string {
	breakdown, _ := json.Marshal(stats.SeverityBreakdown)
	issueTypes, _ := json.Marshal(stats.IssueTypeCounts)

	return strings.TrimSpace(fmt.Sprintf(`
You are a security report generator. Generate a professional security report summary based on the following data:

- Username: %s
- Total Commits Analyzed: %d
- Average Security Score: %d/100
- Issue Severity Breakdown: %s
- Most Common Issue Types: %s

Generate a JSON response with this structure:
{
  "title": "Security Report for [username]",
  "summary": "A brief 2-3 sentence summary of the security posture",
  "riskLevel": "low|medium|high|critical",
  "recommendations": ["recommendation 1", "recommendation 2", "recommendation 3"],
  "topIssues": ["issue 1", "issue 2", "issue 3"]
}

Respond with JSON only, no markdown.
`, stats.Username, stats.CommitsCount, stats.AverageScore, breakdown, issueTypes))
}
