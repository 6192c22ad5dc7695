// Package search implements the planner, predicate pipeline, and text
// matchers that turn a SearchQuery into a streamed SearchResult over an
// Index snapshot.
package search

import (
	"time"

	"github.com/standardbeagle/volumefind/internal/record"
)

// Query describes one search request. Every field is optional; a zero
// Query is invalid (Search returns a failed Result for it — at least one
// positive criterion, see HasPositiveCriterion, is required).
type Query struct {
	Text                  string
	CaseSensitive         bool
	UseRegex              bool
	SearchFilenameOnly    bool
	BasePath              string
	IncludeSubdirectories bool
	ExtensionFilter       string

	// IncludeFiles and IncludeDirectories select which record kinds
	// appear in results. The zero value of both (the common case, and
	// what every Query not naming these fields gets) means files only;
	// set both to get files and directories, or IncludeDirectories alone
	// (IncludeFiles false) for a directories-only search.
	IncludeFiles       bool
	IncludeDirectories bool

	// IncludeHidden and IncludeSystem opt a candidate back in; by
	// default (false) hidden and system records are excluded, mirroring
	// IndexingOptions.IncludeHidden/IncludeSystem at ingest time.
	IncludeHidden bool
	IncludeSystem bool

	MinSize *uint64
	MaxSize *uint64

	ModifiedAfter  *time.Time
	ModifiedBefore *time.Time

	// RequireAttributes must all be set on a candidate; ExcludeAttributes
	// must all be clear.
	RequireAttributes record.Attributes
	ExcludeAttributes record.Attributes

	// ExcludedPaths are doublestar glob patterns matched against a
	// candidate's full path; any match excludes the candidate.
	ExcludedPaths []string

	MaxResults int
}

// HasPositiveCriterion reports whether the query names at least one of
// text, base path, or extension filter — spec.md's minimum bar for a
// valid query.
func (q Query) HasPositiveCriterion() bool {
	return q.Text != "" || q.BasePath != "" || q.ExtensionFilter != ""
}

// Result streams matching FullRecords. Files yields (false, nil) once
// the stream is exhausted or MaxResults has been reached (HasMore then
// reports whether more results existed beyond the truncation point).
type Result struct {
	next    func() (record.FullRecord, bool, error)
	matched int64

	Failed         bool
	FailureMessage string
	HasMore        bool
	IsComplete     bool
}

// Files returns the next matching record, or ok=false when the stream
// ends (err is non-nil only for enumeration failures; IsComplete is then
// false).
func (r *Result) Files() (record.FullRecord, bool, error) {
	if r.next == nil {
		return record.FullRecord{}, false, nil
	}
	return r.next()
}

// TotalMatches is a non-decreasing count of records yielded so far.
func (r *Result) TotalMatches() int64 { return r.matched }

// failedResult constructs a Result carrying a synchronous validation failure.
func failedResult(message string) *Result {
	return &Result{Failed: true, FailureMessage: message, IsComplete: true}
}
