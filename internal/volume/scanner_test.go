package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	volerrors "github.com/standardbeagle/volumefind/internal/errors"
)

func TestScannerEmitsEveryRecord(t *testing.T) {
	buf := append(append([]byte{}, buildRecord("a.txt", 1, 0)...), buildRecord("b.txt", 2, 0)...)
	s := NewScanner("C:", nil)

	var names []string
	err := s.ScanBuffer(buf, func(rec Record) { names = append(names, rec.NameScalar()) })
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)
}

func TestScannerSkipsSystemMetadata(t *testing.T) {
	buf := append(append([]byte{}, buildRecord("$MFT", 1, 0)...), buildRecord("real.txt", 2, 0)...)
	s := NewScanner("C:", nil)

	var names []string
	err := s.ScanBuffer(buf, func(rec Record) { names = append(names, rec.NameScalar()) })
	require.NoError(t, err)
	assert.Equal(t, []string{"real.txt"}, names)
}

func TestScannerAbortsAfterConsecutiveCorruption(t *testing.T) {
	stats := &volerrors.Stats{}
	s := NewScanner("C:", stats)

	garbage := make([]byte, minRecordLength) // all-zero: declared length 0, always corrupt
	var buf []byte
	for i := 0; i < maxConsecutiveCorruptRecords; i++ {
		buf = append(buf, garbage...)
	}

	var err error
	for offset := 0; offset < len(buf); offset += minRecordLength {
		err = s.ScanBuffer(buf[offset:offset+minRecordLength], func(Record) {})
		if err != nil {
			break
		}
	}
	var corruptVol *volerrors.CorruptVolumeError
	assert.ErrorAs(t, err, &corruptVol)
	assert.EqualValues(t, maxConsecutiveCorruptRecords, stats.CorruptRecords)
}
