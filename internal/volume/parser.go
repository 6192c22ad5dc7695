package volume

import (
	"encoding/binary"
	"unicode/utf16"

	volerrors "github.com/standardbeagle/volumefind/internal/errors"
)

// Field offsets within a USN_RECORD_V2/V3 buffer, per spec.md §4.5. Only
// the fields volumefind needs are decoded; SecurityId and SourceInfo are
// skipped over.
const (
	offRecordLength = 0
	offMajorVersion = 4
	offFileRef      = 8
	offParentRef    = 16
	offUSN          = 24
	offTimestamp    = 32
	offReason       = 40
	offAttributes   = 52
	offNameLength   = 56
	offNameOffset   = 58

	minRecordLength = 60
)

// Record is a single parsed MFT/USN record. NameUTF16 aliases the caller's
// buffer and is only valid until the next read into that buffer; callers
// that need to retain the name must copy it (InternFromSpan does this by
// copying into the StringPool's shard).
type Record struct {
	Length      int
	MajorVersion uint16
	FileRef     uint64
	ParentRef   uint64
	USN         uint64
	TimestampTicks uint64
	Reason      uint32
	Attributes  uint32
	NameUTF16   []byte
}

// ParseRecord decodes one record from the head of buf and returns it
// along with the number of bytes consumed (buf[consumed:] is the next
// record, if any). buf must contain at least one full record; ParseRecord
// never reads past buf's declared RecordLength. offset is the buffer's
// absolute position, used only to annotate CorruptRecordError.
func ParseRecord(buf []byte, offset int) (Record, int, error) {
	if len(buf) < minRecordLength {
		return Record{}, 0, &volerrors.CorruptRecordError{Offset: offset, Reason: "buffer shorter than minimum record header"}
	}

	length := int(binary.LittleEndian.Uint32(buf[offRecordLength:]))
	if length < minRecordLength {
		return Record{}, 0, &volerrors.CorruptRecordError{Offset: offset, Reason: "declared record length below minimum"}
	}
	if length > len(buf) {
		return Record{}, 0, &volerrors.CorruptRecordError{Offset: offset, Reason: "declared record length exceeds buffer"}
	}

	major := binary.LittleEndian.Uint16(buf[offMajorVersion:])
	if major != 2 && major != 3 {
		return Record{}, 0, &volerrors.CorruptRecordError{Offset: offset, Reason: "unsupported USN_RECORD major version"}
	}

	nameLength := int(binary.LittleEndian.Uint16(buf[offNameLength:]))
	nameOffset := int(binary.LittleEndian.Uint16(buf[offNameOffset:]))
	if nameLength == 0 || nameOffset < minRecordLength || nameOffset+nameLength > length {
		return Record{}, 0, &volerrors.CorruptRecordError{Offset: offset, Reason: "filename span out of bounds"}
	}

	rec := Record{
		Length:         length,
		MajorVersion:   major,
		FileRef:        binary.LittleEndian.Uint64(buf[offFileRef:]),
		ParentRef:      binary.LittleEndian.Uint64(buf[offParentRef:]),
		USN:            binary.LittleEndian.Uint64(buf[offUSN:]),
		TimestampTicks: binary.LittleEndian.Uint64(buf[offTimestamp:]),
		Reason:         binary.LittleEndian.Uint32(buf[offReason:]),
		Attributes:     binary.LittleEndian.Uint32(buf[offAttributes:]),
		NameUTF16:      buf[nameOffset : nameOffset+nameLength],
	}
	return rec, length, nil
}

// IsSystemMetadata reports whether the record's name starts with '$', the
// NTFS convention for metadata files ($MFT, $LogFile, $Bitmap, ...) that
// every component in this module skips.
func (r Record) IsSystemMetadata() bool {
	if len(r.NameUTF16) < 2 {
		return false
	}
	return r.NameUTF16[0] == '$' && r.NameUTF16[1] == 0
}

// NameScalar decodes NameUTF16 one code unit at a time. It is the
// reference implementation used to validate NameSpan's faster path.
func (r Record) NameScalar() string {
	return decodeUTF16LEScalar(r.NameUTF16)
}

// NameSpan decodes NameUTF16 by reading each code unit with
// binary.LittleEndian and passing the units to unicode/utf16.Decode,
// instead of the scalar path's hand-written byte shifts. Used on the hot
// ingest path; NameScalar exists to prove the two stay byte-identical.
func (r Record) NameSpan() string {
	return decodeUTF16LESpan(r.NameUTF16)
}

func decodeUTF16LEScalar(b []byte) string {
	n := len(b) / 2
	units := make([]uint16, n)
	for i := 0; i < n; i++ {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return string(utf16.Decode(units))
}

func decodeUTF16LESpan(b []byte) string {
	n := len(b) / 2
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units))
}
