package model

// CommitRef identifies one commit to process: where it lives, which
// branch remediation targets, and who authored it. Constructed from a
// push event or a commit listing; read-only within the pipeline.
type CommitRef struct {
	Owner        string
	Repo         string
	SHA          string
	TargetBranch string
	AuthorName   string
	AuthorAvatar string
}

// FullName returns the repository's "owner/name" form.
func (c CommitRef) FullName() string {
	return c.Owner + "/" + c.Repo
}

// ShortSHA returns the abbreviated commit identifier used in logs and
// commit messages.
func (c CommitRef) ShortSHA() string {
	return ShortSHA(c.SHA)
}

// ShortSHA abbreviates a commit SHA to seven characters.
func ShortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// CommitDetail is the metadata fetched for one commit: the resolved
// author identity and the file-level change list. A merge commit
// typically has no file list.
type CommitDetail struct {
	AuthorName   string
	AuthorAvatar string
	Files        []CommitFileMeta
}

// CommitFileMeta describes one changed file within a commit.
type CommitFileMeta struct {
	Path   string
	Status string // "added", "modified", "removed", ...
}

// FileStatusRemoved marks a file deleted by the commit; deleted files
// have no content to assess.
const FileStatusRemoved = "removed"

// PullRequestRef is the minimal identity of a pull request on the
// remote repository.
type PullRequestRef struct {
	Number int
	URL    string
}
