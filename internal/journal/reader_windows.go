//go:build windows

package journal

import (
	"context"
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"

	volerrors "github.com/standardbeagle/volumefind/internal/errors"
	"github.com/standardbeagle/volumefind/internal/volume"
)

const (
	fsctlQueryUSNJournal  = 0x000900f4
	fsctlCreateUSNJournal = 0x000900e7
	fsctlReadUSNJournal   = 0x000900bb

	defaultJournalMaxSize     = 32 * 1024 * 1024
	defaultJournalAllocDelta  = 4 * 1024 * 1024
	readBufferSize            = 64 * 1024
)

type usnJournalDataV0 struct {
	UsnJournalID    uint64
	FirstUsn        int64
	NextUsn         int64
	LowestValidUsn  int64
	MaxUsn          int64
	MaximumSize     uint64
	AllocationDelta uint64
}

type createUSNJournalData struct {
	MaximumSize     uint64
	AllocationDelta uint64
}

type readUSNJournalDataV0 struct {
	StartUSN          int64
	ReasonMask        uint32
	ReturnOnlyOnClose uint32
	Timeout           uint64
	BytesToWaitFor    uint64
	UsnJournalID      uint64
}

const allReasonsMask uint32 = 0xFFFFFFFF

// errnoJournalNotActive is ERROR_JOURNAL_NOT_ACTIVE (1179), not exported
// by golang.org/x/sys/windows.
const errnoJournalNotActive = windows.Errno(1179)

type windowsReader struct{}

// NewReader returns the Windows journal Reader.
func NewReader() Reader { return &windowsReader{} }

func openVolume(volumeID string) (windows.Handle, error) {
	path := fmt.Sprintf(`\\.\%s`, strings.TrimSuffix(volumeID, `\`))
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, &volerrors.VolumeIOError{VolumeID: volumeID, Op: "UTF16PtrFromString", Err: err}
	}
	h, err := windows.CreateFile(
		p, windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil, windows.OPEN_EXISTING, windows.FILE_FLAG_BACKUP_SEMANTICS, 0,
	)
	if err != nil {
		return 0, &volerrors.VolumeIOError{VolumeID: volumeID, Op: "CreateFile", Err: err}
	}
	return h, nil
}

func (r *windowsReader) Query(ctx context.Context, volumeID string) (Cursor, bool, error) {
	h, err := openVolume(volumeID)
	if err != nil {
		return Cursor{}, false, err
	}
	defer windows.CloseHandle(h)

	var data usnJournalDataV0
	var bytesReturned uint32
	err = windows.DeviceIoControl(
		h, fsctlQueryUSNJournal,
		nil, 0,
		(*byte)(unsafe.Pointer(&data)), uint32(unsafe.Sizeof(data)),
		&bytesReturned, nil,
	)
	if err != nil {
		if err == windows.ERROR_INVALID_FUNCTION || err == errnoJournalNotActive {
			return Cursor{}, false, nil
		}
		return Cursor{}, false, &volerrors.VolumeIOError{VolumeID: volumeID, Op: "FSCTL_QUERY_USN_JOURNAL", Err: err}
	}
	return Cursor{
		JournalID:      data.UsnJournalID,
		NextUSN:        uint64(data.NextUsn),
		LowestValidUSN: uint64(data.LowestValidUsn),
	}, true, nil
}

func (r *windowsReader) Create(ctx context.Context, volumeID string) error {
	h, err := openVolume(volumeID)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(h)

	in := createUSNJournalData{MaximumSize: defaultJournalMaxSize, AllocationDelta: defaultJournalAllocDelta}
	var bytesReturned uint32
	err = windows.DeviceIoControl(
		h, fsctlCreateUSNJournal,
		(*byte)(unsafe.Pointer(&in)), uint32(unsafe.Sizeof(in)),
		nil, 0,
		&bytesReturned, nil,
	)
	if err != nil {
		return &volerrors.VolumeIOError{VolumeID: volumeID, Op: "FSCTL_CREATE_USN_JOURNAL", Err: err}
	}
	return nil
}

func (r *windowsReader) Read(ctx context.Context, volumeID string, cursor Cursor) ([]ChangeRecord, Cursor, error) {
	h, err := openVolume(volumeID)
	if err != nil {
		return nil, cursor, err
	}
	defer windows.CloseHandle(h)

	in := readUSNJournalDataV0{
		StartUSN:     int64(cursor.NextUSN),
		ReasonMask:   allReasonsMask,
		UsnJournalID: cursor.JournalID,
	}
	buf := make([]byte, readBufferSize)
	var bytesReturned uint32
	err = windows.DeviceIoControl(
		h, fsctlReadUSNJournal,
		(*byte)(unsafe.Pointer(&in)), uint32(unsafe.Sizeof(in)),
		&buf[0], uint32(len(buf)),
		&bytesReturned, nil,
	)
	if err != nil {
		return nil, cursor, &volerrors.VolumeIOError{VolumeID: volumeID, Op: "FSCTL_READ_USN_JOURNAL", Err: err}
	}
	if bytesReturned <= 8 {
		return nil, cursor, nil
	}

	nextUSN := *(*uint64)(unsafe.Pointer(&buf[0]))
	cursor.NextUSN = nextUSN

	var out []ChangeRecord
	scanner := volume.NewScanner(volumeID, nil)
	err = scanner.ScanBuffer(buf[8:bytesReturned], func(rec volume.Record) {
		out = append(out, fromVolumeRecord(rec))
	})
	if err != nil {
		return nil, cursor, err
	}
	return out, cursor, nil
}
