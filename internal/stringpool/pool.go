// Package stringpool interns the strings behind every indexed path, name,
// and extension into 32-bit StringIds, fitting each CompactRecord into 40
// bytes by replacing owned strings with pool handles. Interning is
// sharded by content hash so any number of readers and writers can operate
// concurrently without serializing on a single map.
package stringpool

import (
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// StringId is an opaque 32-bit handle into a sub-pool. Id 0 is the
// reserved empty string and is never allocated to real content. Ids are
// monotonically non-decreasing and stable for the life of the process.
type StringId uint32

// Empty is the reserved id for the empty string.
const Empty StringId = 0

const shardCount = 64
const shardMask = shardCount - 1

type shard struct {
	mu  sync.RWMutex
	ids map[string]StringId
}

// Pool interns strings into StringIds under a single normalization rule.
// A volumefind StringPool (below) wraps three independently-numbered Pool
// instances — one per sub-pool — since the spec only requires id stability
// within a sub-pool, not a single shared namespace.
type Pool struct {
	shards    [shardCount]*shard
	mu        sync.Mutex // protects reverse; also orders id allocation
	reverse   []string   // reverse[id-1] == the normalized string for id
	normalize func(string) string
}

func newPool(normalize func(string) string) *Pool {
	p := &Pool{normalize: normalize}
	for i := range p.shards {
		p.shards[i] = &shard{ids: make(map[string]StringId)}
	}
	// ids start at 1 (0 is Empty), so id's string lives at reverse[id-1].
	p.reverse = make([]string, 0, 1024)
	return p
}

func (p *Pool) shardFor(s string) *shard {
	h := xxhash.Sum64String(s)
	return p.shards[h&shardMask]
}

// Intern interns an owned string, applying the sub-pool's normalization
// rule first. Always succeeds: an empty (post-normalization) string
// returns Empty.
func (p *Pool) Intern(s string) StringId {
	norm := p.normalize(s)
	if norm == "" {
		return Empty
	}
	return p.internNormalized(norm)
}

// InternFromSpan interns a byte span without requiring the caller to
// allocate an owned string first, on the read path. It must return the
// same id an equal owned-string Intern call would. When the span is
// already in normal form the lookup is allocation-free; only a miss pays
// for a normalization pass and a single allocation to store the new
// entry.
func (p *Pool) InternFromSpan(b []byte) StringId {
	if id, ok := p.tryGetNormalizedSpan(b); ok {
		return id
	}
	return p.Intern(string(b))
}

// TryGetFromSpan performs a read-only lookup by byte span: it never
// inserts. Returns (0, false) if the span (after normalization) is not
// yet interned.
func (p *Pool) TryGetFromSpan(b []byte) (StringId, bool) {
	return p.tryGetNormalizedSpan(b)
}

// tryGetNormalizedSpan looks the span up using the Go-compiler-recognized
// `map[string(b)]` idiom, which elides the string allocation for a
// lookup-only map index expression. If the span isn't already in the
// pool's normal form (e.g. mixed-case content destined for a
// case-folded sub-pool), or the zero-alloc lookup misses, this falls back
// to an allocating normalize+look up, since the shard map is keyed by
// normalized content.
func (p *Pool) tryGetNormalizedSpan(b []byte) (StringId, bool) {
	if len(b) == 0 {
		return Empty, true
	}
	if isNormalizedSpan(b, p.normalize) {
		sh := p.shardForSpan(b)
		sh.mu.RLock()
		id, ok := sh.ids[string(b)] // zero-alloc lookup idiom
		sh.mu.RUnlock()
		if ok {
			return id, true
		}
	}
	norm := p.normalize(string(b))
	if norm == "" {
		return Empty, true
	}
	sh := p.shardFor(norm)
	sh.mu.RLock()
	id, ok := sh.ids[norm]
	sh.mu.RUnlock()
	return id, ok
}

func (p *Pool) shardForSpan(b []byte) *shard {
	h := xxhash.Sum64(b)
	return p.shards[h&shardMask]
}

// isNormalizedSpan is a cheap heuristic: for the common case (ASCII
// lowercase paths/extensions already normalized by the caller, or names
// which are never transformed) this avoids the normalize() allocation
// entirely. A wrong guess either way (e.g. a dot-less extension span,
// which the Extensions pool stores with a leading dot) just costs an
// extra allocation, never incorrectness, because a miss on the fast path
// is retried with the normalized form.
func isNormalizedSpan(b []byte, normalize func(string) string) bool {
	for _, c := range b {
		if c == '\\' || (c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

func (p *Pool) internNormalized(norm string) StringId {
	sh := p.shardFor(norm)

	sh.mu.RLock()
	if id, ok := sh.ids[norm]; ok {
		sh.mu.RUnlock()
		return id
	}
	sh.mu.RUnlock()

	sh.mu.Lock()
	if id, ok := sh.ids[norm]; ok {
		// Lost the race to another writer; their id is the id of record.
		sh.mu.Unlock()
		return id
	}
	id := p.appendReverse(norm)
	sh.ids[norm] = id
	sh.mu.Unlock()

	return id
}

// appendReverse allocates the next id and stores norm at reverse[id-1] as
// one atomic step: the lock that decides the new index is the same lock
// that performs the append, so two concurrent callers can never acquire
// ids out of order with respect to where their strings land in reverse.
func (p *Pool) appendReverse(norm string) StringId {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reverse = append(p.reverse, norm)
	return StringId(len(p.reverse))
}

// Resolve returns the normalized string for id, or "" for id 0 or an
// unknown id.
func (p *Pool) Resolve(id StringId) string {
	if id == Empty {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := int(id) - 1
	if idx < 0 || idx >= len(p.reverse) {
		return ""
	}
	return p.reverse[idx]
}

// Len returns the number of distinct strings interned (excluding Empty).
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reverse)
}

// StringPool is the process-wide string interner with the three
// sub-pools the data model requires: paths (separator-canonicalized,
// case-folded on case-insensitive volumes), names (case preserved), and
// extensions (lower-cased, leading dot retained).
type StringPool struct {
	Paths      *Pool
	Names      *Pool
	Extensions *Pool

	// caseInsensitive controls path normalization; set per volume at
	// construction time per the Open Question in spec.md §9 (the source
	// defaults to insensitive on Windows).
	caseInsensitive bool
}

// New creates a StringPool. caseInsensitive governs the Paths sub-pool's
// case folding and should reflect the volume's actual case sensitivity.
func New(caseInsensitive bool) *StringPool {
	sp := &StringPool{caseInsensitive: caseInsensitive}
	sp.Paths = newPool(sp.normalizePath)
	sp.Names = newPool(normalizeName)
	sp.Extensions = newPool(normalizeExtension)
	return sp
}

func (sp *StringPool) normalizePath(s string) string {
	s = strings.ReplaceAll(s, "\\", "/")
	if sp.caseInsensitive {
		s = strings.ToLower(s)
	}
	return s
}

func normalizeName(s string) string {
	// Names preserve case; only trim any stray separator noise.
	return s
}

func normalizeExtension(s string) string {
	s = strings.ToLower(s)
	if s != "" && s[0] != '.' {
		s = "." + s
	}
	return s
}

// InternPath interns an owned path string into the Paths sub-pool.
func (sp *StringPool) InternPath(s string) StringId { return sp.Paths.Intern(s) }

// InternName interns an owned leaf-name string into the Names sub-pool.
func (sp *StringPool) InternName(s string) StringId { return sp.Names.Intern(s) }

// InternExtension interns an owned extension string into the Extensions
// sub-pool.
func (sp *StringPool) InternExtension(s string) StringId { return sp.Extensions.Intern(s) }

// InternNameFromSpan interns a leaf name from a UTF-8 byte span without an
// intermediate allocation on the common (already-seen) path. Used by the
// volume reader, which decodes UTF-16LE filenames into a scratch buffer.
func (sp *StringPool) InternNameFromSpan(b []byte) StringId { return sp.Names.InternFromSpan(b) }
