// Package extindex implements the extension bucket index: a mapping from
// extension StringId to the compact list of FileRefs carrying that
// extension, so extension-only queries can iterate one bucket directly
// without touching the path trie or scanning the whole record set.
package extindex

import (
	"sync"

	"github.com/standardbeagle/volumefind/internal/alloc"
	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/stringpool"
)

const shardCount = 32
const shardMask = shardCount - 1

// noExtension is the synthetic bucket key for files with no extension.
const noExtension stringpool.StringId = 0

type shard struct {
	mu      sync.RWMutex
	buckets map[stringpool.StringId][]record.FileRef
}

// Index maps extension ids to FileRef lists. Every record in the store
// appears in exactly one bucket (or the no-extension bucket).
type Index struct {
	shards [shardCount]*shard
	files  *alloc.SlabAllocator[record.FileRef]
}

// New creates an empty extension Index.
func New() *Index {
	idx := &Index{files: alloc.NewFileRefSlabAllocator[record.FileRef]()}
	for i := range idx.shards {
		idx.shards[i] = &shard{buckets: make(map[stringpool.StringId][]record.FileRef)}
	}
	return idx
}

func (idx *Index) shardFor(ext stringpool.StringId) *shard {
	return idx.shards[uint32(ext)&shardMask]
}

// Add appends fileRef to the bucket for ext (or the no-extension bucket
// if ext is stringpool.Empty).
func (idx *Index) Add(ext stringpool.StringId, fileRef record.FileRef) {
	sh := idx.shardFor(ext)
	sh.mu.Lock()
	sh.buckets[ext] = idx.files.GrowSlice(sh.buckets[ext], 1)
	sh.buckets[ext] = append(sh.buckets[ext], fileRef)
	sh.mu.Unlock()
}

// Remove deletes fileRef from the bucket for ext, if present.
func (idx *Index) Remove(ext stringpool.StringId, fileRef record.FileRef) {
	sh := idx.shardFor(ext)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	list := sh.buckets[ext]
	for i, f := range list {
		if f == fileRef {
			sh.buckets[ext] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Bucket returns a copy of the FileRef list for ext. The extension-lookup
// search path (spec.md §4.7 planner, strategy 1) iterates this directly.
func (idx *Index) Bucket(ext stringpool.StringId) []record.FileRef {
	sh := idx.shardFor(ext)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	list := sh.buckets[ext]
	out := make([]record.FileRef, len(list))
	copy(out, list)
	return out
}

// BucketSize returns the number of entries in ext's bucket without
// copying the underlying slice.
func (idx *Index) BucketSize(ext stringpool.StringId) int {
	sh := idx.shardFor(ext)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.buckets[ext])
}

// NoExtensionBucket returns the bucket for files without an extension.
func (idx *Index) NoExtensionBucket() []record.FileRef {
	return idx.Bucket(noExtension)
}
