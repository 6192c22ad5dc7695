// Package index composes the StringPool, record Store, path Trie,
// extension Index, and size Index into the Index aggregate the spec's
// data model describes: every CompactRecord in the Store is reachable
// through exactly one trie leaf and exactly one extension bucket.
//
// Ingest is two-phase, matching how a raw MFT scan actually behaves: MFT
// records arrive in record-number order, not parent-before-child order,
// so a record's ancestor chain is not reliably resolvable until the whole
// table has been loaded. Ingest populates the Store/extension/size
// indexes as records stream in; BuildTrie makes a single pass over the
// now-complete Store to attach every record to the path trie. Live
// updates after the initial build (USN create/modify/delete) go through
// ApplyCreate/ApplyUpdate/ApplyRemove, which keep the trie in sync
// incrementally since a live create's parent directory is already
// indexed by the time the create event arrives.
package index

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/standardbeagle/volumefind/internal/extindex"
	"github.com/standardbeagle/volumefind/internal/logging"
	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/sizeindex"
	"github.com/standardbeagle/volumefind/internal/stringpool"
	"github.com/standardbeagle/volumefind/internal/trie"
)

// Stats mirrors the totals + storage-size shape IndexPersistence.statistics()
// and SearchEngine.indexing_stats() both need.
type Stats struct {
	RecordCount     int64
	DirectoryCount  int64
	FileCount       int64
	TotalBytes      int64
	TrieAttachFails int64
}

// Config bundles the construction-time options for an Index.
type Config struct {
	CaseInsensitiveVolume bool
	Logger                *zap.SugaredLogger
}

// Index is the lock-free-reads, batched-writes concurrent index combining
// a path-prefix trie, an extension bucket index, and a size-range index
// over the shared record Store.
type Index struct {
	Pool  *stringpool.StringPool
	Store *record.Store
	Trie  *trie.Trie
	Ext   *extindex.Index
	Size  *sizeindex.Index

	log *zap.SugaredLogger

	// writeMu serializes structural writers (bulk ingest, journal sync
	// adapter) per spec.md §5: a single ingest writer per volume during
	// bulk build, the sync adapter as sole writer during steady state.
	// Readers never take this lock.
	writeMu sync.Mutex

	recordCount    atomic.Int64
	directoryCount atomic.Int64
	totalBytes     atomic.Int64
	trieFailures   atomic.Int64
}

// New creates an empty Index. The Store, trie, and extension index all
// resolve names and path segments through one shared StringPool.
func New(cfg Config) *Index {
	pool := stringpool.New(cfg.CaseInsensitiveVolume)
	return &Index{
		Pool:  pool,
		Store: record.NewStore(pool, record.RootRef),
		Trie:  trie.New(),
		Ext:   extindex.New(),
		Size:  sizeindex.New(),
		log:   logging.OrNop(cfg.Logger),
	}
}

// Ingest adds rec to the Store, extension index, and size index. It does
// not touch the trie; call BuildTrie once the full batch/volume has been
// ingested.
func (idx *Index) Ingest(rec record.CompactRecord) {
	idx.Store.InsertOrReplace(rec)
	idx.trackNewRecord(rec)

	name := idx.Pool.Names.Resolve(rec.NameID)
	extID := idx.Pool.InternExtension(extensionOf(name))
	idx.Ext.Add(extID, rec.FileRef)
	idx.Size.Add(rec.FileRef, rec.Size)
}

func (idx *Index) trackNewRecord(rec record.CompactRecord) {
	idx.recordCount.Add(1)
	if rec.IsDirectory() {
		idx.directoryCount.Add(1)
	}
	idx.totalBytes.Add(int64(rec.Size))
}

// BuildTrie makes a single pass over the Store, attaching every record to
// the path trie now that every ancestor is guaranteed present. It is the
// second phase of a bulk volume ingest. Cancellable via ctx.
func (idx *Index) BuildTrie(ctx context.Context, refs []record.FileRef) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	for _, ref := range refs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		rec, ok := idx.Store.Get(ref)
		if !ok {
			continue
		}
		idx.attachToTrie(rec)
	}
	return nil
}

func (idx *Index) attachToTrie(rec record.CompactRecord) {
	segments, ok := idx.pathSegmentsFor(rec.ParentRef)
	if !ok {
		idx.trieFailures.Add(1)
		idx.log.Debugw("trie attach skipped: unresolved ancestor", "file_ref", uint64(rec.FileRef))
		return
	}
	name := idx.Pool.Names.Resolve(rec.NameID)
	leafPathID := idx.Pool.Paths.Intern(name)
	idx.Trie.Insert(segments, leafPathID, rec.FileRef, rec.IsDirectory())
}

// pathSegmentsFor returns the Paths-subpool ids from the volume root down
// to and including ref's own name, for use as a trie lookup/insert key.
// The second return is false if any ancestor in the chain is missing.
func (idx *Index) pathSegmentsFor(ref record.FileRef) ([]stringpool.StringId, bool) {
	if ref == record.RootRef {
		return nil, true
	}
	rec, ok := idx.Store.Get(ref)
	if !ok {
		return nil, false
	}
	parentSegs, ok := idx.pathSegmentsFor(rec.ParentRef)
	if !ok {
		return nil, false
	}
	name := idx.Pool.Names.Resolve(rec.NameID)
	segID := idx.Pool.Paths.Intern(name)
	return append(parentSegs, segID), true
}

// ApplyCreate handles a live USN/journal create: it behaves like Ingest
// followed by an immediate trie attach, since a live create's parent
// directory is already indexed.
func (idx *Index) ApplyCreate(rec record.CompactRecord) {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	idx.Store.InsertOrReplace(rec)
	idx.trackNewRecord(rec)
	name := idx.Pool.Names.Resolve(rec.NameID)
	extID := idx.Pool.InternExtension(extensionOf(name))
	idx.Ext.Add(extID, rec.FileRef)
	idx.Size.Add(rec.FileRef, rec.Size)
	idx.attachToTrie(rec)
}

// ApplyUpdate handles a modify or rename: if the name or parent changed,
// the record is detached from its old trie node/extension bucket and
// reattached under the new one; otherwise it is a plain value replace.
func (idx *Index) ApplyUpdate(rec record.CompactRecord) {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	old, existed := idx.Store.Get(rec.FileRef)
	idx.Store.InsertOrReplace(rec)

	if !existed {
		idx.trackNewRecord(rec)
		name := idx.Pool.Names.Resolve(rec.NameID)
		extID := idx.Pool.InternExtension(extensionOf(name))
		idx.Ext.Add(extID, rec.FileRef)
		idx.Size.Add(rec.FileRef, rec.Size)
		idx.attachToTrie(rec)
		return
	}

	if old.Size != rec.Size {
		idx.totalBytes.Add(int64(rec.Size) - int64(old.Size))
		idx.Size.Remove(rec.FileRef, old.Size)
		idx.Size.Add(rec.FileRef, rec.Size)
	}

	if old.NameID == rec.NameID && old.ParentRef == rec.ParentRef {
		return
	}

	oldName := idx.Pool.Names.Resolve(old.NameID)
	newName := idx.Pool.Names.Resolve(rec.NameID)
	oldExt := idx.Pool.InternExtension(extensionOf(oldName))
	newExt := idx.Pool.InternExtension(extensionOf(newName))
	if oldExt != newExt {
		idx.Ext.Remove(oldExt, rec.FileRef)
		idx.Ext.Add(newExt, rec.FileRef)
	}

	if oldSegs, ok := idx.pathSegmentsFor(old.ParentRef); ok {
		if node := idx.Trie.Lookup(oldSegs); node != nil {
			node.RemoveFile(rec.FileRef)
		}
	}
	idx.attachToTrie(rec)
}

// ApplyRemove handles a USN delete: the record is removed from every
// sub-index it was reachable from.
func (idx *Index) ApplyRemove(ref record.FileRef) {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	rec, ok := idx.Store.Get(ref)
	if !ok {
		return
	}

	name := idx.Pool.Names.Resolve(rec.NameID)
	extID := idx.Pool.InternExtension(extensionOf(name))
	idx.Ext.Remove(extID, ref)
	idx.Size.Remove(ref, rec.Size)
	if segs, ok := idx.pathSegmentsFor(rec.ParentRef); ok {
		if node := idx.Trie.Lookup(segs); node != nil {
			node.RemoveFile(ref)
		}
	}
	// Cache the path before removing from the store so LastKnownPath still
	// resolves it afterward (per spec.md §9's file_ref -> path side map).
	_, _ = idx.Store.ToFull(rec)
	idx.Store.Remove(ref)

	idx.recordCount.Add(-1)
	if rec.IsDirectory() {
		idx.directoryCount.Add(-1)
	}
	idx.totalBytes.Add(-int64(rec.Size))
}

// Stats returns a point-in-time snapshot of index totals.
func (idx *Index) Stats() Stats {
	total := idx.recordCount.Load()
	dirs := idx.directoryCount.Load()
	return Stats{
		RecordCount:     total,
		DirectoryCount:  dirs,
		FileCount:       total - dirs,
		TotalBytes:      idx.totalBytes.Load(),
		TrieAttachFails: idx.trieFailures.Load(),
	}
}

func extensionOf(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			if i == 0 || i == len(name)-1 {
				return ""
			}
			return toLowerASCII(name[i:])
		}
	}
	return ""
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
