// Package volume implements the raw-volume enumerator: draining an NTFS
// volume's Master File Table into CompactRecords via the platform's
// block-device IOCTLs, plus the byte-exact USN_RECORD_V2/V3 parser
// shared by the one-shot MFT enumeration path and the live journal
// monitor (internal/journal).
package volume

import (
	"context"

	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/stringpool"
)

// ID identifies a volume: a drive letter on Windows ("C:"), a synthetic
// id elsewhere.
type ID string

// Info describes a volume's on-disk geometry, used to size enumeration
// buffers and estimate progress.
type Info struct {
	ID                  ID
	BytesPerSector      uint32
	BytesPerCluster     uint32
	BytesPerMFTRecord   uint32
	EstimatedRecordCount uint64
	CaseInsensitive     bool
}

// BufferSize clamps requested to the [64KiB, 4MiB] range and rounds up to
// the nearest 4KiB multiple, per spec.md §4.5.
func BufferSize(requested int) int {
	const (
		minSize   = 64 * 1024
		maxSize   = 4 * 1024 * 1024
		alignment = 4 * 1024
	)
	if requested < minSize {
		requested = minSize
	}
	if requested > maxSize {
		requested = maxSize
	}
	if rem := requested % alignment; rem != 0 {
		requested += alignment - rem
	}
	return requested
}

// DefaultBufferSize is the spec's 1MiB default, already aligned.
const DefaultBufferSize = 1024 * 1024

// Reader is the raw-volume reader contract (spec.md §4.5 / §6). A
// platform that cannot open raw volumes (every non-Windows build, or a
// Windows process without elevated rights) still implements Reader:
// IsAvailable returns false and every other method fails with
// NotPermittedError, so callers uniformly probe IsAvailable before using
// the other methods.
type Reader interface {
	// IsAvailable reports whether the process holds the privileges
	// required to open raw volumes on this platform.
	IsAvailable() bool

	// Volumes enumerates local fixed NTFS volumes.
	Volumes(ctx context.Context) ([]ID, error)

	// VolumeInfo returns geometry and size estimates for id.
	VolumeInfo(ctx context.Context, id ID) (Info, error)

	// Enumerate streams every live record on id in MFT order. Names are
	// interned into pool as they are decoded. Each call starts a fresh
	// enumeration from the beginning; cancelling ctx stops it within
	// O(record-parse-time).
	Enumerate(ctx context.Context, id ID, pool *stringpool.StringPool) (Stream, error)
}

// Stream is a finite, single-consumer, cancellable sequence of
// CompactRecords drained from a volume or the journal.
type Stream interface {
	// Next blocks until the next record is available, the stream ends
	// (ok=false, err=nil), or ctx passed to the originating call is
	// cancelled (err wraps context.Canceled).
	Next() (rec record.CompactRecord, ok bool, err error)
	// Close releases any buffers and handles the stream holds. Safe to
	// call multiple times.
	Close() error
}
