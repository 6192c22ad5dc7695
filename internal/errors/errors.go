// Package errors defines the distinct error kinds volumefind signals across
// volume enumeration, journal monitoring, search, and persistence, each with
// its own type so callers can errors.As/errors.Is on the failure they care
// about rather than string-matching messages.
package errors

import (
	"fmt"
	"time"
)

// Kind classifies which subsystem produced an error.
type Kind string

const (
	KindNotPermitted      Kind = "not_permitted"
	KindUnsupportedVolume Kind = "unsupported_volume"
	KindCorruptVolume     Kind = "corrupt_volume"
	KindCorruptRecord     Kind = "corrupt_record"
	KindJournalRewound    Kind = "journal_rewound"
	KindVolumeIO          Kind = "volume_io"
	KindInvalidQuery      Kind = "invalid_query"
	KindPathNotResolvable Kind = "path_not_resolvable"
	KindPersistence       Kind = "persistence"
	KindCancelled         Kind = "cancelled"
)

// NotPermittedError signals that raw-volume access was denied; the caller
// must downgrade to the filesystem provider.
type NotPermittedError struct {
	VolumeID string
}

func (e *NotPermittedError) Error() string {
	return fmt.Sprintf("raw access to volume %s not permitted", e.VolumeID)
}

// UnsupportedVolumeError signals a volume that is not NTFS or is otherwise
// unreadable; the volume is skipped with a warning, other volumes continue.
type UnsupportedVolumeError struct {
	VolumeID string
	Reason   string
}

func (e *UnsupportedVolumeError) Error() string {
	return fmt.Sprintf("volume %s unsupported: %s", e.VolumeID, e.Reason)
}

// CorruptVolumeError is raised once 16 consecutive malformed records have
// been observed during enumeration; earlier malformed records are skipped
// silently and counted (see CorruptRecordError).
type CorruptVolumeError struct {
	VolumeID          string
	ConsecutiveErrors int
}

func (e *CorruptVolumeError) Error() string {
	return fmt.Sprintf("volume %s: %d consecutive corrupt records, aborting enumeration", e.VolumeID, e.ConsecutiveErrors)
}

// CorruptRecordError describes a single malformed binary record; it is
// recovered locally (enumeration continues from the next declared offset)
// and only surfaced in aggregate via statistics, except when it tips the
// stream into CorruptVolumeError.
type CorruptRecordError struct {
	Offset int
	Reason string
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record at offset %d: %s", e.Offset, e.Reason)
}

// JournalRewoundError signals that the USN journal wrapped (EntryDeleted)
// between From and To; the caller should schedule a full re-enumeration of
// the volume.
type JournalRewoundError struct {
	VolumeID string
	From     uint64
	To       uint64
}

func (e *JournalRewoundError) Error() string {
	return fmt.Sprintf("volume %s: journal rewound from usn %d to %d", e.VolumeID, e.From, e.To)
}

// VolumeIOError wraps any other OS I/O failure opening or reading a volume
// or its journal. Fatal for that volume only; other volumes continue.
type VolumeIOError struct {
	VolumeID string
	Code     int
	Op       string
	Err      error
}

func (e *VolumeIOError) Error() string {
	return fmt.Sprintf("volume %s: %s failed (code %d): %v", e.VolumeID, e.Op, e.Code, e.Err)
}

func (e *VolumeIOError) Unwrap() error { return e.Err }

// InvalidQueryError is returned synchronously from Search when a
// SearchQuery fails validation (no positive criterion set).
type InvalidQueryError struct {
	Message string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Message)
}

// PathNotResolvableError is returned when Store.ToFull cannot walk
// an unbroken parent_ref chain to the volume root; the offending record is
// dropped from the result stream, not the whole search.
type PathNotResolvableError struct {
	FileRef uint64
}

func (e *PathNotResolvableError) Error() string {
	return fmt.Sprintf("path not resolvable for file_ref %d: broken parent chain", e.FileRef)
}

// PersistenceError wraps a failure surfaced verbatim from an
// IndexPersistence sink. The pipeline retries the batch once before
// failing the build.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Cancelled is returned by long-running operations when their
// cancellation handle fires. It is not treated as an error at the API
// surface (callers check errors.Is(err, Cancelled) to distinguish it from
// real failures).
var Cancelled = &cancelledError{}

type cancelledError struct{}

func (e *cancelledError) Error() string { return "operation cancelled" }

// Stats accumulates per-session error counts, surfaced through the
// pipeline's run Stats (its Errors field) so per-record/per-volume
// recoveries remain observable
// without aborting the overall build.
type Stats struct {
	CorruptRecords   int64
	SkippedVolumes   int64
	PersistenceRetry int64
	LastError        error
	LastErrorAt      time.Time
}

// Record appends err to s and stamps the time it was observed.
func (s *Stats) Record(err error) {
	if err == nil {
		return
	}
	s.LastError = err
	s.LastErrorAt = time.Now()
	switch err.(type) {
	case *CorruptRecordError:
		s.CorruptRecords++
	case *UnsupportedVolumeError, *CorruptVolumeError, *VolumeIOError:
		s.SkippedVolumes++
	case *PersistenceError:
		s.PersistenceRetry++
	}
}
