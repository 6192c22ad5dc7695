package record

import (
	"path"
	"strings"
	"sync"

	vferrors "github.com/standardbeagle/volumefind/internal/errors"
	"github.com/standardbeagle/volumefind/internal/stringpool"
)

const storeShardCount = 64
const storeShardMask = storeShardCount - 1

type recordShard struct {
	mu sync.RWMutex
	m  map[FileRef]CompactRecord
}

// Store is the authoritative file_ref -> CompactRecord table (spec.md
// §4.2). It also maintains the file_ref -> path side map the spec's Open
// Questions call for: USN deletion records carry only the leaf name, so
// without a side map a delete cannot be resolved back to a full path once
// the record is gone.
type Store struct {
	shards   [storeShardCount]*recordShard
	pool     *stringpool.StringPool
	rootRef  FileRef
	maxDepth int

	pathMu   sync.RWMutex
	pathByFR map[FileRef]string
}

// NewStore creates a record Store. rootRef is the synthetic reference that
// terminates parent-chain walks (the volume root).
func NewStore(pool *stringpool.StringPool, rootRef FileRef) *Store {
	s := &Store{
		pool:     pool,
		rootRef:  rootRef,
		maxDepth: 4096,
		pathByFR: make(map[FileRef]string),
	}
	for i := range s.shards {
		s.shards[i] = &recordShard{m: make(map[FileRef]CompactRecord)}
	}
	return s
}

func shardIndex(ref FileRef) int {
	h := uint64(ref)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return int(h & storeShardMask)
}

func (s *Store) shardFor(ref FileRef) *recordShard {
	return s.shards[shardIndex(ref)]
}

// InsertOrReplace atomically inserts rec, or replaces the existing record
// sharing its FileRef.
func (s *Store) InsertOrReplace(rec CompactRecord) {
	sh := s.shardFor(rec.FileRef)
	sh.mu.Lock()
	sh.m[rec.FileRef] = rec
	sh.mu.Unlock()

	// Invalidate any stale cached path; it is rebuilt lazily on next ToFull.
	s.pathMu.Lock()
	delete(s.pathByFR, rec.FileRef)
	s.pathMu.Unlock()
}

// Get returns the record for ref, if present.
func (s *Store) Get(ref FileRef) (CompactRecord, bool) {
	sh := s.shardFor(ref)
	sh.mu.RLock()
	rec, ok := sh.m[ref]
	sh.mu.RUnlock()
	return rec, ok
}

// Contains reports whether ref is present in the store.
func (s *Store) Contains(ref FileRef) bool {
	_, ok := s.Get(ref)
	return ok
}

// Remove deletes ref from the store. The last known full path, if it had
// ever been materialized, remains queryable via LastKnownPath so deletion
// handling can still report which path disappeared.
func (s *Store) Remove(ref FileRef) {
	sh := s.shardFor(ref)
	sh.mu.Lock()
	delete(sh.m, ref)
	sh.mu.Unlock()
}

// Range calls fn for every record currently in the store, in shard order.
// fn must not call back into the Store (it runs under the shard's read
// lock). Used by the full-scan search strategy.
func (s *Store) Range(fn func(CompactRecord) bool) {
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, rec := range sh.m {
			if !fn(rec) {
				sh.mu.RUnlock()
				return
			}
		}
		sh.mu.RUnlock()
	}
}

// Len returns the number of records currently in the store.
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.m)
		sh.mu.RUnlock()
	}
	return total
}

// LastKnownPath returns the most recently computed full path for ref, if
// any was ever cached by ToFull. Used by deletion handling, where the
// record is already gone by the time the path is needed.
func (s *Store) LastKnownPath(ref FileRef) (string, bool) {
	s.pathMu.RLock()
	defer s.pathMu.RUnlock()
	p, ok := s.pathByFR[ref]
	return p, ok
}

// ToFull materializes rec into a FullRecord, walking the parent_ref chain
// through the store to reconstruct the full path, cutting at the volume
// root. Returns PathNotResolvableError if the chain is broken (a parent
// reference that isn't itself in the store and isn't the root).
func (s *Store) ToFull(rec CompactRecord) (FullRecord, error) {
	name := s.pool.Names.Resolve(rec.NameID)

	segments := make([]string, 0, 16)
	segments = append(segments, name)

	cur := rec.ParentRef
	depth := 0
	for cur != s.rootRef {
		if depth >= s.maxDepth {
			return FullRecord{}, &vferrors.PathNotResolvableError{FileRef: uint64(rec.FileRef)}
		}
		parent, ok := s.Get(cur)
		if !ok {
			return FullRecord{}, &vferrors.PathNotResolvableError{FileRef: uint64(rec.FileRef)}
		}
		parentName := s.pool.Names.Resolve(parent.NameID)
		segments = append(segments, parentName)
		cur = parent.ParentRef
		depth++
	}

	// segments was built leaf-first; reverse into root-first order.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	fullPath := path.Join(segments...)
	if len(segments) > 0 && !strings.HasPrefix(fullPath, "/") {
		fullPath = "/" + fullPath
	}

	full := FullRecord{
		FileRef:    rec.FileRef,
		ParentRef:  rec.ParentRef,
		Name:       name,
		Path:       fullPath,
		Extension:  extensionOf(name),
		Attributes: rec.Attributes,
		Size:       rec.Size,
		Modified:   rec.Modified(),
		Created:    rec.Modified(),
		Accessed:   rec.Modified(),
	}

	s.pathMu.Lock()
	s.pathByFR[rec.FileRef] = full.Path
	s.pathMu.Unlock()

	return full, nil
}

func extensionOf(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx:])
}
