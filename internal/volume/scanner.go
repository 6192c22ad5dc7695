package volume

import (
	"errors"

	volerrors "github.com/standardbeagle/volumefind/internal/errors"
)

// maxConsecutiveCorruptRecords is the spec.md §4.5 threshold: once this
// many malformed records are seen back to back, the whole volume is
// abandoned rather than risk walking off into garbage indefinitely.
const maxConsecutiveCorruptRecords = 16

// Scanner walks the USN/MFT records packed into a sequence of buffers,
// recovering from individual corrupt records by skipping to the next
// buffer and counting consecutive failures toward CorruptVolumeError.
type Scanner struct {
	volumeID          string
	consecutiveErrors int
	stats             *volerrors.Stats
}

// NewScanner creates a Scanner that attributes errors to volumeID and
// records recoverable ones in stats (may be nil to discard).
func NewScanner(volumeID string, stats *volerrors.Stats) *Scanner {
	return &Scanner{volumeID: volumeID, stats: stats}
}

// ScanBuffer decodes every record packed into buf, calling emit for each
// one that parses and is not NTFS system metadata. It returns
// CorruptVolumeError once maxConsecutiveCorruptRecords malformed records
// have been seen in a row across the scanner's lifetime.
func (s *Scanner) ScanBuffer(buf []byte, emit func(Record)) error {
	offset := 0
	for offset < len(buf) {
		rec, consumed, err := ParseRecord(buf[offset:], offset)
		if err != nil {
			var corrupt *volerrors.CorruptRecordError
			if !errors.As(err, &corrupt) {
				return err
			}
			if s.stats != nil {
				s.stats.Record(corrupt)
			}
			s.consecutiveErrors++
			if s.consecutiveErrors >= maxConsecutiveCorruptRecords {
				return &volerrors.CorruptVolumeError{VolumeID: s.volumeID, ConsecutiveErrors: s.consecutiveErrors}
			}
			// Can't determine a safe resync point without the declared
			// length; give up on the rest of this buffer.
			return nil
		}
		s.consecutiveErrors = 0
		if !rec.IsSystemMetadata() {
			emit(rec)
		}
		offset += consumed
	}
	return nil
}
