// Package trie implements the path-prefix index: one node per path
// component, each holding the FileRefs of records directly contained in
// it. It answers "everything under base path P" in time proportional to
// the size of the answer plus the depth of P.
package trie

import (
	"sync"

	"github.com/standardbeagle/volumefind/internal/alloc"
	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/stringpool"
)

// Node is one path component. Children are keyed by the StringId of the
// next segment; ordering among siblings is irrelevant. A node's mutex
// guards both its children map and its direct file list — single writer
// per volume during bulk ingest, any number of concurrent readers.
// Locking a node provides the acquire/release pairing the spec requires:
// a reader that takes the RLock after a writer's Unlock observes every
// write that preceded it.
type Node struct {
	mu       sync.RWMutex
	children map[stringpool.StringId]*Node
	files    []record.FileRef
	descCount int64 // aggregate count of all descendant files, for hot-path prefix stats
}

func newNode() *Node {
	return &Node{children: make(map[stringpool.StringId]*Node)}
}

// Trie is the path-prefix index rooted at a volume.
type Trie struct {
	root  *Node
	files *alloc.SlabAllocator[record.FileRef]
}

// New creates an empty Trie.
func New() *Trie {
	return &Trie{
		root:  newNode(),
		files: alloc.NewFileRefSlabAllocator[record.FileRef](),
	}
}

// Root returns the trie's root node (the volume root directory).
func (t *Trie) Root() *Node { return t.root }

// Insert adds fileRef under the path described by segments (StringIds of
// each path component, root-first). The final segment names the node the
// file list is appended to (i.e. segments describes the file's own
// directory path, not including its own name) when dir is true the
// inserted ref is itself a directory and also becomes a new child node
// keyed by leafName so descendants can be inserted under it later.
func (t *Trie) Insert(segments []stringpool.StringId, leafName stringpool.StringId, fileRef record.FileRef, isDir bool) {
	node := t.root
	for _, seg := range segments {
		node = t.childFor(node, seg)
	}

	node.mu.Lock()
	node.files = t.files.GrowSlice(node.files, 1)
	node.files = append(node.files, fileRef)
	node.mu.Unlock()

	t.bumpDescendantCounts(segments)

	if isDir {
		// Ensure the directory has its own node so later inserts with this
		// directory as a path segment find somewhere to attach.
		t.childFor(node, leafName)
	}
}

func (t *Trie) childFor(node *Node, seg stringpool.StringId) *Node {
	node.mu.RLock()
	child, ok := node.children[seg]
	node.mu.RUnlock()
	if ok {
		return child
	}

	node.mu.Lock()
	defer node.mu.Unlock()
	if child, ok = node.children[seg]; ok {
		return child
	}
	child = newNode()
	node.children[seg] = child
	return child
}

func (t *Trie) bumpDescendantCounts(segments []stringpool.StringId) {
	node := t.root
	node.bumpDesc()
	for _, seg := range segments {
		node.mu.RLock()
		child := node.children[seg]
		node.mu.RUnlock()
		if child == nil {
			return
		}
		child.bumpDesc()
		node = child
	}
}

func (n *Node) bumpDesc() {
	n.mu.Lock()
	n.descCount++
	n.mu.Unlock()
}

// DescendantCount returns the aggregate number of files reachable from n
// (including n's own direct files).
func (n *Node) DescendantCount() int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.descCount
}

// Lookup resolves a root-first path-segment sequence to its Node, or nil
// if any segment is missing.
func (t *Trie) Lookup(segments []stringpool.StringId) *Node {
	node := t.root
	for _, seg := range segments {
		node.mu.RLock()
		child, ok := node.children[seg]
		node.mu.RUnlock()
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// DirectFiles returns a copy of node's own file list (records directly
// contained, not in subdirectories).
func (n *Node) DirectFiles() []record.FileRef {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]record.FileRef, len(n.files))
	copy(out, n.files)
	return out
}

// ListRecursive returns node's own file list followed by a breadth-first
// traversal of every descendant's file list, matching the spec's
// "subdirectories included" semantics.
func (n *Node) ListRecursive() []record.FileRef {
	out := n.DirectFiles()

	queue := n.childNodes()
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur.DirectFiles()...)
		queue = append(queue, cur.childNodes()...)
	}
	return out
}

func (n *Node) childNodes() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	return out
}

// RemoveFile deletes fileRef from node's direct file list, if present.
// Used by incremental deletion handling; it does not remove now-empty
// child nodes, since a later create under the same directory should reuse
// them.
func (n *Node) RemoveFile(fileRef record.FileRef) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, f := range n.files {
		if f == fileRef {
			n.files = append(n.files[:i], n.files[i+1:]...)
			n.descCount--
			return
		}
	}
}
