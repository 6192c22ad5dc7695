package search

import (
	"context"
	"errors"
	"strings"

	volerrors "github.com/standardbeagle/volumefind/internal/errors"
	"github.com/standardbeagle/volumefind/internal/index"
	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/stringpool"
)

// Strategy names the planner's chosen candidate source, exposed for
// observability/tests, not for callers to pick directly.
type Strategy int

const (
	StrategyExtensionLookup Strategy = iota
	StrategyTriePrefix
	StrategyTextScan
	StrategyFullScan
)

// minFingerprintTextLen is spec.md §4.7's threshold for the
// fingerprint-eligible text scan strategy.
const minFingerprintTextLen = 3

// Plan picks the candidate-source strategy a query should use, per
// spec.md §4.7's priority order.
func Plan(q Query) Strategy {
	switch {
	case q.ExtensionFilter != "" && q.Text == "":
		return StrategyExtensionLookup
	case q.BasePath != "":
		return StrategyTriePrefix
	case len(q.Text) >= minFingerprintTextLen && !q.UseRegex:
		return StrategyTextScan
	default:
		return StrategyFullScan
	}
}

// Search evaluates q against idx and returns a lazily-streamed Result.
func Search(ctx context.Context, idx *index.Index, q Query) *Result {
	if !q.HasPositiveCriterion() {
		return failedResult("query must set at least one of text, base_path, or extension_filter")
	}
	cq, err := compile(q)
	if err != nil {
		return failedResult(err.Error())
	}

	candidates := candidateSource(idx, q)
	pred := cq.predicate()

	result := &Result{IsComplete: true}
	yielded := 0
	limited := q.MaxResults > 0

	result.next = func() (record.FullRecord, bool, error) {
		for {
			select {
			case <-ctx.Done():
				result.IsComplete = false
				return record.FullRecord{}, false, ctx.Err()
			default:
			}
			if limited && yielded >= q.MaxResults {
				if _, more := candidates(); more {
					result.HasMore = true
				}
				return record.FullRecord{}, false, nil
			}
			ref, ok := candidates()
			if !ok {
				return record.FullRecord{}, false, nil
			}
			rec, ok := idx.Store.Get(ref)
			if !ok {
				continue
			}
			full, err := idx.Store.ToFull(rec)
			if err != nil {
				var notResolvable *volerrors.PathNotResolvableError
				if errors.As(err, &notResolvable) {
					continue
				}
				result.IsComplete = false
				return record.FullRecord{}, false, err
			}
			if !pred(full) {
				continue
			}
			yielded++
			result.matched++
			return full, true, nil
		}
	}
	return result
}

// candidateSource returns a closure yielding successive FileRefs from the
// strategy Plan(q) selects. It never re-validates the query's other
// filters; narrowing is a size optimization, correctness is enforced by
// the predicate chain in Search.
func candidateSource(idx *index.Index, q Query) func() (record.FileRef, bool) {
	switch Plan(q) {
	case StrategyExtensionLookup:
		extID, ok := idx.Pool.Extensions.TryGetFromSpan([]byte(normalizeExtensionFilter(q.ExtensionFilter)))
		if !ok {
			return exhausted()
		}
		bucket := idx.Ext.Bucket(extID)
		return sliceSource(bucket)
	case StrategyTriePrefix:
		segs, ok := basePathSegments(idx, q.BasePath)
		if !ok {
			return exhausted()
		}
		node := idx.Trie.Lookup(segs)
		if node == nil {
			return exhausted()
		}
		if q.IncludeSubdirectories {
			return sliceSource(node.ListRecursive())
		}
		return sliceSource(node.DirectFiles())
	default:
		return fullScanSource(idx)
	}
}

// fullScanSource snapshots every live FileRef in the store. This is
// strategy 4, the fallback when no narrower candidate source applies.
func fullScanSource(idx *index.Index) func() (record.FileRef, bool) {
	refs := make([]record.FileRef, 0, idx.Stats().RecordCount)
	idx.Store.Range(func(rec record.CompactRecord) bool {
		refs = append(refs, rec.FileRef)
		return true
	})
	return sliceSource(refs)
}

func sliceSource(refs []record.FileRef) func() (record.FileRef, bool) {
	i := 0
	return func() (record.FileRef, bool) {
		if i >= len(refs) {
			return 0, false
		}
		r := refs[i]
		i++
		return r, true
	}
}

func exhausted() func() (record.FileRef, bool) {
	return func() (record.FileRef, bool) { return 0, false }
}

func normalizeExtensionFilter(ext string) string {
	if ext == "" {
		return ext
	}
	if ext[0] != '.' {
		ext = "." + ext
	}
	return lowerASCII(ext)
}

// basePathSegments splits a "/"-separated base path into the same
// Paths-subpool ids the trie was built with, so the lookup key matches
// regardless of leading/trailing slashes.
func basePathSegments(idx *index.Index, basePath string) ([]stringpool.StringId, bool) {
	trimmed := strings.Trim(basePath, "/")
	if trimmed == "" {
		return nil, true // root
	}
	parts := strings.Split(trimmed, "/")
	segs := make([]stringpool.StringId, 0, len(parts))
	for _, part := range parts {
		id, ok := idx.Pool.Paths.TryGetFromSpan([]byte(part))
		if !ok {
			return nil, false
		}
		segs = append(segs, id)
	}
	return segs, true
}
