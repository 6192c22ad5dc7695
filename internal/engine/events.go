package engine

import (
	"sync"
	"time"

	"github.com/standardbeagle/volumefind/internal/journal"
)

// FileChangeKind classifies a FileChanged event (spec.md §6's
// created/modified/deleted/renamed taxonomy).
type FileChangeKind int

const (
	FileCreated FileChangeKind = iota
	FileModified
	FileDeleted
	FileRenamed
)

func (k FileChangeKind) String() string {
	switch k {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	case FileRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileChanged is the event subscribe_changes() callers receive. OldPath
// is only set for FileRenamed.
type FileChanged struct {
	Kind      FileChangeKind
	OldPath   string
	NewPath   string
	Timestamp time.Time
}

// changeBroadcaster fans one journal/fsprovider ChangeRecord stream out
// to any number of subscribers, each with its own buffered channel so a
// slow subscriber can't stall the others or the sync adapter upstream.
type changeBroadcaster struct {
	mu   sync.Mutex
	subs map[int]chan FileChanged
	next int
}

func newChangeBroadcaster() *changeBroadcaster {
	return &changeBroadcaster{subs: make(map[int]chan FileChanged)}
}

// subscribe returns a channel of future events and an unsubscribe func.
func (b *changeBroadcaster) subscribe(buffer int) (<-chan FileChanged, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan FileChanged, buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
		b.mu.Unlock()
	}
}

// publish delivers ev to every current subscriber, dropping it for any
// subscriber whose buffer is full rather than blocking the caller.
func (b *changeBroadcaster) publish(ev FileChanged) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *changeBroadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// fileChangedFromRecord translates a raw journal.ChangeRecord into the
// public FileChanged shape, resolving paths through resolvePath (usually
// idx.Store.ToFull/LastKnownPath).
func fileChangedFromRecord(rec journal.ChangeRecord, resolvePath func() (string, bool)) (FileChanged, bool) {
	path, ok := resolvePath()
	if !ok {
		return FileChanged{}, false
	}

	ev := FileChanged{NewPath: path, Timestamp: rec.Timestamp}
	switch rec.Reason {
	case journal.ReasonCreated:
		ev.Kind = FileCreated
	case journal.ReasonDeleted:
		ev.Kind = FileDeleted
	case journal.ReasonRenamedNew:
		ev.Kind = FileRenamed
	case journal.ReasonDataModified, journal.ReasonAttrsChanged:
		ev.Kind = FileModified
	default:
		return FileChanged{}, false
	}
	return ev, true
}
