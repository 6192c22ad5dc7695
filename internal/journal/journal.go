// Package journal drives the per-volume USN Change Journal state machine:
// after an initial full enumeration of a volume, it keeps polling the
// journal and turning raw records into ChangeRecords an index sync
// adapter (SyncAdapter) can apply incrementally, without a second full
// scan.
package journal

import (
	"time"

	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/volume"
)

// Reason groups the low-level USN_REASON_* bits into the coarse buckets
// the sync adapter cares about.
type Reason int

const (
	ReasonUnknown Reason = iota
	ReasonCreated
	ReasonDeleted
	ReasonRenamedOld
	ReasonRenamedNew
	ReasonDataModified
	ReasonAttrsChanged
	ReasonClosed
)

// Raw USN_REASON_* bit values, per the Windows DDK.
const (
	usnReasonDataOverwrite  = 0x00000001
	usnReasonDataExtend     = 0x00000002
	usnReasonDataTruncation = 0x00000004
	usnReasonNamedDataOverw = 0x00000010
	usnReasonFileCreate     = 0x00000100
	usnReasonFileDelete     = 0x00000200
	usnReasonAttrsChange    = 0x00000400
	usnReasonRenameOldName  = 0x00001000
	usnReasonRenameNewName  = 0x00002000
	usnReasonClose          = 0x80000000
)

// ClassifyReason maps a raw reason bitmask to the single most relevant
// Reason bucket, preferring structural changes (create/delete/rename)
// over content/attribute changes over the bare close marker.
func ClassifyReason(raw uint32) Reason {
	switch {
	case raw&usnReasonFileCreate != 0:
		return ReasonCreated
	case raw&usnReasonFileDelete != 0:
		return ReasonDeleted
	case raw&usnReasonRenameOldName != 0:
		return ReasonRenamedOld
	case raw&usnReasonRenameNewName != 0:
		return ReasonRenamedNew
	case raw&(usnReasonDataOverwrite|usnReasonDataExtend|usnReasonDataTruncation|usnReasonNamedDataOverw) != 0:
		return ReasonDataModified
	case raw&usnReasonAttrsChange != 0:
		return ReasonAttrsChanged
	case raw&usnReasonClose != 0:
		return ReasonClosed
	default:
		return ReasonUnknown
	}
}

// ChangeRecord is one decoded USN journal entry.
type ChangeRecord struct {
	USN        uint64
	FileRef    record.FileRef
	ParentRef  record.FileRef
	Reason     Reason
	RawReason  uint32
	Attributes record.Attributes
	Name       string
	Timestamp  time.Time
}

// State is a volume's position in the journal monitor's state machine
// (spec.md §4.6): NotOpened -> Querying -> {Running, Creating -> Running}
// with a terminal Error state reachable from Querying or Creating.
type State int

const (
	StateNotOpened State = iota
	StateQuerying
	StateCreating
	StateRunning
	StateError
)

func (s State) String() string {
	switch s {
	case StateNotOpened:
		return "not_opened"
	case StateQuerying:
		return "querying"
	case StateCreating:
		return "creating"
	case StateRunning:
		return "running"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

func fromVolumeRecord(rec volume.Record) ChangeRecord {
	return ChangeRecord{
		USN:        rec.USN,
		FileRef:    record.FileRef(rec.FileRef),
		ParentRef:  record.FileRef(rec.ParentRef),
		Reason:     ClassifyReason(rec.Reason),
		RawReason:  rec.Reason,
		Attributes: record.Attributes(rec.Attributes),
		Name:       rec.NameSpan(),
		Timestamp:  record.TicksToTime(rec.TimestampTicks),
	}
}
