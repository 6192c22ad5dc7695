// Package sizeindex implements the Index aggregate's optional
// size-sorted secondary structure (spec.md §4.4b): a fixed set of
// power-of-two size buckets, each a slice sorted by size, so a
// min_size/max_size predicate that is the most selective criterion in a
// query can narrow the candidate set without a full table scan.
package sizeindex

import (
	"sort"
	"sync"

	"github.com/standardbeagle/volumefind/internal/record"
)

// Boundaries are the upper bound (exclusive) of each bucket, in bytes.
// The last bucket is unbounded above.
var Boundaries = []uint64{
	0,                   // bucket 0: size == 0 (directories, unknown size)
	1024,                // bucket 1: (0, 1KiB)
	1024 * 1024,         // bucket 2: [1KiB, 1MiB)
	1024 * 1024 * 1024,  // bucket 3: [1MiB, 1GiB)
	// bucket 4: [1GiB, +inf)
}

type entry struct {
	ref  record.FileRef
	size uint64
}

type bucket struct {
	mu      sync.RWMutex
	entries []entry
	sorted  bool
}

// Index is the size-range secondary index.
type Index struct {
	buckets []*bucket
}

// New creates an empty size Index.
func New() *Index {
	idx := &Index{buckets: make([]*bucket, len(Boundaries)+1)}
	for i := range idx.buckets {
		idx.buckets[i] = &bucket{}
	}
	return idx
}

func bucketFor(size uint64) int {
	if size == 0 {
		return 0
	}
	for i, b := range Boundaries[1:] {
		if size < b {
			return i + 1
		}
	}
	return len(Boundaries)
}

// Add records fileRef at size.
func (idx *Index) Add(fileRef record.FileRef, size uint64) {
	b := idx.buckets[bucketFor(size)]
	b.mu.Lock()
	b.entries = append(b.entries, entry{ref: fileRef, size: size})
	b.sorted = false
	b.mu.Unlock()
}

// Remove deletes fileRef (at size) from its bucket.
func (idx *Index) Remove(fileRef record.FileRef, size uint64) {
	b := idx.buckets[bucketFor(size)]
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.entries {
		if e.ref == fileRef {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return
		}
	}
}

// Range returns every FileRef whose recorded size falls within
// [minSize, maxSize]. Buckets entirely outside the window are skipped
// without inspection.
func (idx *Index) Range(minSize, maxSize uint64) []record.FileRef {
	var out []record.FileRef
	for i, b := range idx.buckets {
		lo := uint64(0)
		if i > 0 {
			lo = Boundaries[i-1]
		}
		hi := uint64(1<<63 - 1)
		if i < len(Boundaries) {
			hi = Boundaries[i]
		}
		if i == 0 {
			hi = 1 // bucket 0 holds size 0 only: [0, 1)
		}
		if hi <= minSize || lo > maxSize {
			continue // bucket's whole range is outside the window
		}

		b.mu.RLock()
		if !b.sorted {
			// Caller holds RLock; sort under a (brief) write upgrade instead
			// to keep readers mostly lock-free. We drop and re-acquire since
			// sort.Slice must run under the exclusive lock.
			b.mu.RUnlock()
			b.mu.Lock()
			sort.Slice(b.entries, func(x, y int) bool { return b.entries[x].size < b.entries[y].size })
			b.sorted = true
			b.mu.Unlock()
			b.mu.RLock()
		}
		for _, e := range b.entries {
			if e.size >= minSize && e.size <= maxSize {
				out = append(out, e.ref)
			}
		}
		b.mu.RUnlock()
	}
	return out
}
