package search

import (
	"regexp"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/volumefind/internal/record"
)

// predicate reports whether full matches the query's filters. Predicates
// run in the declared short-circuit order (cheapest first, per
// spec.md §4.7): attributes, size window, time windows, extension,
// text/wildcard/regex, base-path containment, excluded-paths.
type predicate func(full record.FullRecord) bool

// compiledQuery precomputes everything a predicate chain needs once per
// Search call instead of once per candidate.
type compiledQuery struct {
	q       Query
	re      *regexp.Regexp
	hasGlob bool
}

func compile(q Query) (*compiledQuery, error) {
	cq := &compiledQuery{q: q}
	if q.UseRegex && q.Text != "" {
		flags := ""
		if !q.CaseSensitive {
			flags = "(?i)"
		}
		re, err := regexp.Compile(flags + q.Text)
		if err != nil {
			return nil, err
		}
		cq.re = re
	} else if q.Text != "" {
		cq.hasGlob = ContainsGlobMeta(q.Text)
	}
	return cq, nil
}

func (cq *compiledQuery) predicate() predicate {
	q := cq.q
	return func(full record.FullRecord) bool {
		if full.IsDirectory() {
			if !q.IncludeDirectories {
				return false
			}
		} else if q.IncludeDirectories && !q.IncludeFiles {
			return false
		}
		if !q.IncludeHidden && full.Attributes.Has(record.AttrHidden) {
			return false
		}
		if !q.IncludeSystem && full.Attributes.Has(record.AttrSystem) {
			return false
		}
		if q.RequireAttributes != 0 && full.Attributes&q.RequireAttributes != q.RequireAttributes {
			return false
		}
		if q.ExcludeAttributes != 0 && full.Attributes&q.ExcludeAttributes != 0 {
			return false
		}
		if q.MinSize != nil && full.Size < *q.MinSize {
			return false
		}
		if q.MaxSize != nil && full.Size > *q.MaxSize {
			return false
		}
		if q.ModifiedAfter != nil && full.Modified.Before(*q.ModifiedAfter) {
			return false
		}
		if q.ModifiedBefore != nil && full.Modified.After(*q.ModifiedBefore) {
			return false
		}
		if q.ExtensionFilter != "" && !extensionEquals(full.Extension, q.ExtensionFilter) {
			return false
		}
		if !cq.matchesText(full) {
			return false
		}
		if q.BasePath != "" && !withinBasePath(full.Path, q.BasePath, q.IncludeSubdirectories) {
			return false
		}
		if excludedByGlobs(full.Path, q.ExcludedPaths) {
			return false
		}
		return true
	}
}

func (cq *compiledQuery) matchesText(full record.FullRecord) bool {
	q := cq.q
	if q.Text == "" {
		return true
	}
	haystack := full.Name
	if !q.SearchFilenameOnly {
		haystack = full.Path
	}
	switch {
	case cq.re != nil:
		return cq.re.MatchString(haystack)
	case cq.hasGlob:
		return MatchGlobCased(q.Text, haystack, q.CaseSensitive)
	default:
		return MatchText(haystack, q.Text, q.CaseSensitive)
	}
}

func extensionEquals(a, b string) bool {
	norm := func(s string) string {
		if s != "" && s[0] != '.' {
			s = "." + s
		}
		return s
	}
	return lowerASCII(norm(a)) == lowerASCII(norm(b))
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func withinBasePath(path, basePath string, includeSubdirectories bool) bool {
	if len(path) < len(basePath) || path[:len(basePath)] != basePath {
		return false
	}
	rest := path[len(basePath):]
	if rest == "" {
		return true
	}
	if rest[0] != '/' {
		return false
	}
	if !includeSubdirectories {
		return !containsAfterFirst(rest[1:], '/')
	}
	return true
}

func containsAfterFirst(s string, sep byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return true
		}
	}
	return false
}

func excludedByGlobs(path string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}
