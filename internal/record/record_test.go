package record

import (
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/volumefind/internal/stringpool"
)

func TestCompactRecordSize(t *testing.T) {
	assert.Equal(t, uintptr(40), unsafe.Sizeof(CompactRecord{}))
}

func TestFileRefPacking(t *testing.T) {
	ref := NewFileRef(0x0000_1234_5678, 0xABCD)
	assert.Equal(t, uint64(0x0000_1234_5678), ref.RecordNumber())
	assert.Equal(t, uint16(0xABCD), ref.Sequence())
}

func TestIsDirectoryBit(t *testing.T) {
	rec := CompactRecord{Attributes: AttrDirectory | AttrHidden}
	assert.True(t, rec.IsDirectory())

	file := CompactRecord{Attributes: AttrArchive}
	assert.False(t, file.IsDirectory())
}

func TestModifiedTicksRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := CompactRecord{ModifiedTicks: TimeToTicks(now)}
	assert.WithinDuration(t, now, rec.Modified(), time.Microsecond)
}

func TestFromFullDropsStringsAndExtraTimestamps(t *testing.T) {
	sp := stringpool.New(true)
	modified := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	full := FullRecord{
		FileRef:   NewFileRef(1, 1),
		ParentRef: NewFileRef(0, 1),
		Name:      "test.txt",
		Path:      "/vol/test.txt",
		Extension: ".txt",
		Size:      1024,
		Modified:  modified,
		Created:   modified.Add(-time.Hour),
	}
	nameID := sp.InternName(full.Name)
	compact := FromFull(full, nameID)

	assert.Equal(t, full.FileRef, compact.FileRef)
	assert.Equal(t, full.ParentRef, compact.ParentRef)
	assert.Equal(t, full.Size, compact.Size)
	assert.WithinDuration(t, modified, compact.Modified(), time.Microsecond)
}
