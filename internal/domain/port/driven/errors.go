package driven

import "errors"

// Sentinel errors shared across driven ports so application code can
// react to well-known conditions without inspecting adapter internals.
var (
	// ErrNotFound reports that a requested object (file, analysis) does
	// not exist. For file lookups on the bot branch this is an expected,
	// non-fatal condition.
	ErrNotFound = errors.New("not found")

	// ErrRefNotFound reports that a branch reference does not exist yet.
	// The branch reconciler responds by creating the reference instead.
	ErrRefNotFound = errors.New("ref not found")
)
