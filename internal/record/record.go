// Package record defines the 40-byte CompactRecord value type and its wider
// FullRecord counterpart, along with the opaque FileRef handle the rest of
// volumefind passes around instead of raw NTFS file-reference integers.
package record

import (
	"time"

	"github.com/standardbeagle/volumefind/internal/stringpool"
)

// FileRef is an NTFS file reference: the low 48 bits are the MFT record
// number, the high 16 bits are the sequence number. It is exposed as an
// opaque type with accessors rather than a bare uint64 so call sites
// cannot accidentally do arithmetic on it (per the REDESIGN FLAGS guidance
// against exposing bit-packed reference numbers directly).
type FileRef uint64

// RootRef is the synthetic parent of every volume root directory.
const RootRef FileRef = 0

const recordNumberMask = 0x0000_FFFF_FFFF_FFFF

// NewFileRef packs a record number and sequence number into a FileRef.
func NewFileRef(recordNumber uint64, sequence uint16) FileRef {
	return FileRef((recordNumber & recordNumberMask) | uint64(sequence)<<48)
}

// RecordNumber returns the low 48 bits: the MFT record number.
func (r FileRef) RecordNumber() uint64 { return uint64(r) & recordNumberMask }

// Sequence returns the high 16 bits: the MFT sequence number.
func (r FileRef) Sequence() uint16 { return uint16(uint64(r) >> 48) }

// IsRoot reports whether r is the synthetic volume-root reference.
func (r FileRef) IsRoot() bool { return r == RootRef }

// Attributes is a bit-set of NTFS file attributes. The low bits mirror the
// real Windows FILE_ATTRIBUTE_* values so the volume reader can copy them
// directly out of the low 32 bits of a USN/MFT record without translation.
type Attributes uint32

const (
	AttrReadOnly   Attributes = 1 << 0  // 0x0001 FILE_ATTRIBUTE_READONLY
	AttrHidden     Attributes = 1 << 1  // 0x0002 FILE_ATTRIBUTE_HIDDEN
	AttrSystem     Attributes = 1 << 2  // 0x0004 FILE_ATTRIBUTE_SYSTEM
	AttrDirectory  Attributes = 1 << 4  // 0x0010 FILE_ATTRIBUTE_DIRECTORY
	AttrArchive    Attributes = 1 << 5  // 0x0020 FILE_ATTRIBUTE_ARCHIVE
	AttrCompressed Attributes = 1 << 11 // 0x0800 FILE_ATTRIBUTE_COMPRESSED
	AttrEncrypted  Attributes = 1 << 14 // 0x4000 FILE_ATTRIBUTE_ENCRYPTED
)

func (a Attributes) Has(flag Attributes) bool { return a&flag != 0 }

// CompactRecord is the 40-byte fixed-layout value describing one
// filesystem object. Field order matters: the two 4-byte fields sit
// together so the struct needs no padding to stay 8-byte aligned —
// verified by TestCompactRecordSize.
type CompactRecord struct {
	FileRef       FileRef             // 8
	ParentRef     FileRef             // 8
	NameID        stringpool.StringId // 4
	Attributes    Attributes          // 4
	Size          uint64              // 8
	ModifiedTicks uint64              // 8
}

// IsDirectory reports whether the directory attribute bit is set.
func (r CompactRecord) IsDirectory() bool { return r.Attributes.Has(AttrDirectory) }

// RecordNumber is a convenience accessor for FileRef.RecordNumber().
func (r CompactRecord) RecordNumber() uint64 { return r.FileRef.RecordNumber() }

// Modified converts ModifiedTicks (100ns ticks since the NTFS FILETIME
// epoch, 1601-01-01) to a UTC time.Time.
func (r CompactRecord) Modified() time.Time { return TicksToTime(r.ModifiedTicks) }

// ntfsEpoch is 1601-01-01T00:00:00Z, the zero point for FILETIME and USN
// timestamps.
var ntfsEpoch = time.Date(1601, 1, 1, 0, 0, 0, 0, time.UTC)

// ntfsEpochUnixSeconds is ntfsEpoch.Unix(). Conversions split ticks into
// whole seconds plus a remainder because a time.Duration cannot span the
// four centuries between the NTFS epoch and present-day timestamps.
const ntfsEpochUnixSeconds = -11644473600

// TicksToTime converts 100ns ticks since the NTFS epoch to a UTC
// time.Time. Exported so the journal and volume packages can decode USN
// record timestamps the same way CompactRecord does.
func TicksToTime(ticks uint64) time.Time {
	if ticks == 0 {
		return time.Time{}
	}
	return time.Unix(int64(ticks/1e7)+ntfsEpochUnixSeconds, int64(ticks%1e7)*100).UTC()
}

// TimeToTicks is TicksToTime's inverse.
func TimeToTicks(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	secs := t.Unix() - ntfsEpochUnixSeconds
	if secs < 0 {
		return 0
	}
	return uint64(secs)*1e7 + uint64(t.Nanosecond()/100)
}

// FullRecord is the wider, API-boundary representation of a filesystem
// object: it adds created/accessed timestamps and materialized strings.
// Never stored in hot containers — construct on demand via ToFull.
type FullRecord struct {
	FileRef    FileRef
	ParentRef  FileRef
	Name       string
	Path       string
	Extension  string
	Attributes Attributes
	Size       uint64
	Modified   time.Time
	Created    time.Time
	Accessed   time.Time
}

func (r FullRecord) IsDirectory() bool { return r.Attributes.Has(AttrDirectory) }

// FromFull rebuilds the fields a CompactRecord can carry from a FullRecord.
// Any strings and created/accessed timestamps are dropped, matching the
// spec's round-trip law: created/accessed default to modified after a
// compact round-trip.
func FromFull(full FullRecord, nameID stringpool.StringId) CompactRecord {
	return CompactRecord{
		FileRef:       full.FileRef,
		ParentRef:     full.ParentRef,
		NameID:        nameID,
		Attributes:    full.Attributes,
		Size:          full.Size,
		ModifiedTicks: TimeToTicks(full.Modified),
	}
}
