package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ericfisherdev/autopatch/internal/domain/model"
	"github.com/ericfisherdev/autopatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AnalysisStore = (*AnalysisRepo)(nil)

// AnalysisRepo is the SQLite implementation of the AnalysisStore port.
type AnalysisRepo struct {
	db *DB
}

// NewAnalysisRepo creates a new AnalysisRepo backed by the given DB.
func NewAnalysisRepo(db *DB) *AnalysisRepo {
	return &AnalysisRepo{db: db}
}

// Exists reports whether an analysis row exists for the commit.
func (r *AnalysisRepo) Exists(ctx context.Context, commitID string) (bool, error) {
	const query = `SELECT 1 FROM analyses WHERE commit_id = ?`

	var one int
	err := r.db.Reader.QueryRowContext(ctx, query, commitID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check analysis exists for %s: %w", commitID, err)
	}

	return true, nil
}

// Insert persists the analysis and its issues in one transaction. Either
// the parent row and every issue land together, or nothing does.
func (r *AnalysisRepo) Insert(ctx context.Context, analysis model.Analysis) (*model.Analysis, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert analysis: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createdAt := analysis.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	const insertAnalysis = `
		INSERT INTO analyses (commit_id, repo_full_name, overall_score, author_name, author_avatar, pr_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	authorName := analysis.AuthorName
	if authorName == "" {
		authorName = "Unknown"
	}

	res, err := tx.ExecContext(ctx, insertAnalysis,
		analysis.CommitID, analysis.RepoFullName, analysis.OverallScore,
		authorName, nullString(analysis.AuthorAvatar), nullString(analysis.PRURL),
		createdAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert analysis for %s: %w", analysis.CommitID, err)
	}

	analysisID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert analysis id for %s: %w", analysis.CommitID, err)
	}

	const insertIssue = `
		INSERT INTO issues (analysis_id, title, severity, description, file_path, line)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	stored := analysis
	stored.ID = analysisID
	stored.AuthorName = authorName
	stored.CreatedAt = createdAt.UTC()
	stored.Issues = make([]model.Issue, 0, len(analysis.Issues))

	for _, issue := range analysis.Issues {
		res, err := tx.ExecContext(ctx, insertIssue,
			analysisID, issue.Title, string(issue.Severity), issue.Description, issue.FilePath, issue.Line,
		)
		if err != nil {
			return nil, fmt.Errorf("insert issue %q for %s: %w", issue.Title, analysis.CommitID, err)
		}

		issueID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert issue id for %s: %w", analysis.CommitID, err)
		}

		issue.ID = issueID
		issue.AnalysisID = analysisID
		stored.Issues = append(stored.Issues, issue)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert analysis for %s: %w", analysis.CommitID, err)
	}

	return &stored, nil
}

// AttachPullRequestURL records the remediation PR URL for a commit.
func (r *AnalysisRepo) AttachPullRequestURL(ctx context.Context, commitID string, url string) error {
	const query = `UPDATE analyses SET pr_url = ? WHERE commit_id = ?`

	res, err := r.db.Writer.ExecContext(ctx, query, url, commitID)
	if err != nil {
		return fmt.Errorf("attach PR URL for %s: %w", commitID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("attach PR URL rows for %s: %w", commitID, err)
	}
	if affected == 0 {
		return fmt.Errorf("attach PR URL for %s: %w", commitID, driven.ErrNotFound)
	}

	return nil
}

// ListAll returns every analysis with its issues joined, newest first.
func (r *AnalysisRepo) ListAll(ctx context.Context) ([]model.Analysis, error) {
	const query = `
		SELECT id, commit_id, repo_full_name, overall_score, author_name, author_avatar, pr_url, created_at
		FROM analyses
		ORDER BY created_at DESC, id DESC
	`

	return r.queryAnalyses(ctx, query)
}

// ListByAuthor returns the analyses for one author, newest first.
func (r *AnalysisRepo) ListByAuthor(ctx context.Context, authorName string) ([]model.Analysis, error) {
	const query = `
		SELECT id, commit_id, repo_full_name, overall_score, author_name, author_avatar, pr_url, created_at
		FROM analyses
		WHERE author_name = ?
		ORDER BY created_at DESC, id DESC
	`

	return r.queryAnalyses(ctx, query, authorName)
}

// queryAnalyses runs an analyses query and joins each row's issues.
func (r *AnalysisRepo) queryAnalyses(ctx context.Context, query string, args ...any) ([]model.Analysis, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	analyses := []model.Analysis{}
	indexByID := map[int64]int{}

	for rows.Next() {
		var (
			a      model.Analysis
			avatar sql.NullString
			prURL  sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.CommitID, &a.RepoFullName, &a.OverallScore,
			&a.AuthorName, &avatar, &prURL, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}

		a.AuthorAvatar = avatar.String
		a.PRURL = prURL.String
		a.Issues = []model.Issue{}

		indexByID[a.ID] = len(analyses)
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}

	if len(analyses) == 0 {
		return analyses, nil
	}

	if err := r.attachIssues(ctx, analyses, indexByID); err != nil {
		return nil, err
	}

	return analyses, nil
}

// attachIssues loads the issues belonging to the given analyses and
// assigns each to its parent.
func (r *AnalysisRepo) attachIssues(ctx context.Context, analyses []model.Analysis, indexByID map[int64]int) error {
	query := `
		SELECT id, analysis_id, title, severity, description, file_path, line
		FROM issues
		WHERE analysis_id IN (?` + repeatPlaceholder(len(analyses)-1) + `)
		ORDER BY id
	`

	args := make([]any, 0, len(analyses))
	for _, a := range analyses {
		args = append(args, a.ID)
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			issue       model.Issue
			severity    string
			description sql.NullString
			filePath    sql.NullString
			line        sql.NullInt64
		)
		if err := rows.Scan(&issue.ID, &issue.AnalysisID, &issue.Title, &severity,
			&description, &filePath, &line); err != nil {
			return fmt.Errorf("scan issue: %w", err)
		}

		issue.Severity = model.Severity(severity)
		issue.Description = description.String
		issue.FilePath = filePath.String
		issue.Line = int(line.Int64)

		if idx, ok := indexByID[issue.AnalysisID]; ok {
			analyses[idx].Issues = append(analyses[idx].Issues, issue)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate issues: %w", err)
	}

	return nil
}

// repeatPlaceholder returns n copies of ", ?" for IN clauses.
func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}

// nullString maps an empty string to SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
