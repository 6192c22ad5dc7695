package journal

import (
	"context"
	"errors"
)

// ErrEntryDeleted is returned by Reader.Read when the requested USN
// range has fallen off the journal (the journal wrapped): the caller's
// cursor must be reset to the journal's current LowestValidUSN and the
// volume re-enumerated.
var ErrEntryDeleted = errors.New("usn journal entries deleted: journal wrapped")

// Cursor identifies a volume's journal and the caller's read position
// within it.
type Cursor struct {
	JournalID      uint64
	NextUSN        uint64
	LowestValidUSN uint64
}

// Reader drives the three journal-specific IOCTLs (query, create, read).
// Like volume.Reader, every platform implements it; on non-Windows builds
// every method fails with NotPermittedError, so the monitor's state
// machine goes straight to Error rather than hanging.
type Reader interface {
	// Query issues FSCTL_QUERY_USN_JOURNAL. ok is false if no journal
	// exists yet (the monitor then tries Create).
	Query(ctx context.Context, volumeID string) (cursor Cursor, ok bool, err error)
	// Create issues FSCTL_CREATE_USN_JOURNAL.
	Create(ctx context.Context, volumeID string) error
	// Read issues FSCTL_READ_USN_JOURNAL starting at cursor.NextUSN and
	// returns the decoded records plus the cursor to resume from. An
	// empty result with no error means "caught up"; the caller should
	// wait out the poll interval before calling again.
	Read(ctx context.Context, volumeID string, cursor Cursor) ([]ChangeRecord, Cursor, error)
}
