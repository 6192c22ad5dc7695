//go:build windows

package volume

import (
	"context"
	"fmt"
	"strings"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	volerrors "github.com/standardbeagle/volumefind/internal/errors"
	"github.com/standardbeagle/volumefind/internal/logging"
	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/stringpool"
)

// IOCTL codes, per the Windows DDK (winioctl.h). Only the subset raw MFT
// enumeration needs.
const (
	fsctlGetNTFSVolumeData = 0x00090064
	fsctlEnumUSNData       = 0x000900b3
	fsctlQueryUSNJournal   = 0x000900f4
)

// ntfsVolumeData mirrors NTFS_VOLUME_DATA_BUFFER; only the leading fields
// volumefind reads are declared, the struct is over-read by
// DeviceIoControl's OutBuffer size, not by Go field count.
type ntfsVolumeData struct {
	VolumeSerialNumber           int64
	NumberSectors                int64
	TotalClusters                int64
	FreeClusters                 int64
	TotalReserved                int64
	BytesPerSector               uint32
	BytesPerCluster              uint32
	BytesPerFileRecordSegment    uint32
	ClustersPerFileRecordSegment uint32
	MftValidDataLength           int64
	MftStartLcn                  int64
	Mft2StartLcn                 int64
	MftZoneStart                 int64
	MftZoneEnd                   int64
}

// mftEnumDataV0 mirrors MFT_ENUM_DATA_V0, the input struct to
// FSCTL_ENUM_USN_DATA.
type mftEnumDataV0 struct {
	StartFileReferenceNumber uint64
	LowUSN                   int64
	HighUSN                  int64
}

type usnJournalData struct {
	UsnJournalID    uint64
	FirstUSN        int64
	NextUSN         int64
	LowestValidUSN  int64
	MaxUSN          int64
	MaximumSize     uint64
	AllocationDelta uint64
}

// rawReader opens volumes with GENERIC_READ|FILE_SHARE_READ|FILE_SHARE_WRITE
// and drives FSCTL_ENUM_USN_DATA to drain the MFT in record-number order.
type rawReader struct {
	log     *zap.SugaredLogger
	buffers *bufferPool
}

// NewReader returns the platform's Reader implementation.
func NewReader(log *zap.SugaredLogger) Reader {
	return &rawReader{log: logging.OrNop(log), buffers: newBufferPool(DefaultBufferSize)}
}

func (r *rawReader) IsAvailable() bool {
	h, err := r.openVolume("C:")
	if err != nil {
		return false
	}
	windows.CloseHandle(h)
	return true
}

func (r *rawReader) openVolume(id string) (windows.Handle, error) {
	path := fmt.Sprintf(`\\.\%s`, strings.TrimSuffix(string(id), `\`))
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, &volerrors.VolumeIOError{VolumeID: id, Op: "UTF16PtrFromString", Err: err}
	}
	h, err := windows.CreateFile(
		p,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		if err == windows.ERROR_ACCESS_DENIED {
			return 0, &volerrors.NotPermittedError{VolumeID: id}
		}
		return 0, &volerrors.VolumeIOError{VolumeID: id, Op: "CreateFile", Err: err}
	}
	return h, nil
}

func (r *rawReader) Volumes(ctx context.Context) ([]ID, error) {
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return nil, &volerrors.VolumeIOError{VolumeID: "*", Op: "GetLogicalDrives", Err: err}
	}
	var out []ID
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		letter := string(rune('A' + i))
		root := letter + `:\`
		driveType := windows.GetDriveType(windows.StringToUTF16Ptr(root))
		if driveType != windows.DRIVE_FIXED {
			continue
		}
		if !r.isNTFS(root) {
			continue
		}
		out = append(out, ID(letter+":"))
	}
	return out, nil
}

func (r *rawReader) isNTFS(root string) bool {
	var fsNameBuf [windows.MAX_PATH + 1]uint16
	err := windows.GetVolumeInformation(
		windows.StringToUTF16Ptr(root),
		nil, 0,
		nil, nil, nil,
		&fsNameBuf[0], uint32(len(fsNameBuf)),
	)
	if err != nil {
		return false
	}
	return windows.UTF16ToString(fsNameBuf[:]) == "NTFS"
}

func (r *rawReader) VolumeInfo(ctx context.Context, id ID) (Info, error) {
	h, err := r.openVolume(string(id))
	if err != nil {
		return Info{}, err
	}
	defer windows.CloseHandle(h)

	var data ntfsVolumeData
	var bytesReturned uint32
	err = windows.DeviceIoControl(
		h, fsctlGetNTFSVolumeData,
		nil, 0,
		(*byte)(unsafe.Pointer(&data)), uint32(unsafe.Sizeof(data)),
		&bytesReturned, nil,
	)
	if err != nil {
		return Info{}, &volerrors.VolumeIOError{VolumeID: string(id), Op: "FSCTL_GET_NTFS_VOLUME_DATA", Err: err}
	}

	return Info{
		ID:                   id,
		BytesPerSector:       data.BytesPerSector,
		BytesPerCluster:      data.BytesPerCluster,
		BytesPerMFTRecord:    data.BytesPerFileRecordSegment,
		EstimatedRecordCount: uint64(data.MftValidDataLength) / uint64(maxUint32(data.BytesPerFileRecordSegment, 1)),
		CaseInsensitive:      true,
	}, nil
}

func maxUint32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func (r *rawReader) Enumerate(ctx context.Context, id ID, pool *stringpool.StringPool) (Stream, error) {
	h, err := r.openVolume(string(id))
	if err != nil {
		return nil, err
	}
	return &mftStream{
		ctx:      ctx,
		handle:   h,
		volID:    string(id),
		scanner:  NewScanner(string(id), nil),
		buf:      r.buffers.get(),
		bufPool:  r.buffers,
		strPool:  pool,
		next:     mftEnumDataV0{HighUSN: 1<<63 - 1},
	}, nil
}

// mftStream drives repeated FSCTL_ENUM_USN_DATA calls, each one resuming
// from the last record number returned, and decodes the resulting buffer
// with a Scanner. It buffers decoded records between Next() calls.
type mftStream struct {
	ctx     context.Context
	handle  windows.Handle
	volID   string
	scanner *Scanner
	buf     []byte
	bufPool *bufferPool
	strPool *stringpool.StringPool
	next    mftEnumDataV0
	pending []record.CompactRecord
	done    bool
}

func (s *mftStream) Next() (record.CompactRecord, bool, error) {
	for {
		if len(s.pending) > 0 {
			rec := s.pending[0]
			s.pending = s.pending[1:]
			return rec, true, nil
		}
		if s.done {
			return record.CompactRecord{}, false, nil
		}
		select {
		case <-s.ctx.Done():
			return record.CompactRecord{}, false, s.ctx.Err()
		default:
		}
		if err := s.fill(); err != nil {
			return record.CompactRecord{}, false, err
		}
	}
}

func (s *mftStream) fill() error {
	var bytesReturned uint32
	err := windows.DeviceIoControl(
		s.handle, fsctlEnumUSNData,
		(*byte)(unsafe.Pointer(&s.next)), uint32(unsafe.Sizeof(s.next)),
		&s.buf[0], uint32(len(s.buf)),
		&bytesReturned, nil,
	)
	if err != nil {
		if err == windows.ERROR_HANDLE_EOF {
			s.done = true
			return nil
		}
		return &volerrors.VolumeIOError{VolumeID: s.volID, Op: "FSCTL_ENUM_USN_DATA", Err: err}
	}
	if bytesReturned <= 8 {
		s.done = true
		return nil
	}

	// The first 8 bytes of the output buffer are the next call's starting
	// file reference number.
	s.next.StartFileReferenceNumber = *(*uint64)(unsafe.Pointer(&s.buf[0]))
	return s.scanner.ScanBuffer(s.buf[8:bytesReturned], func(rec Record) {
		s.pending = append(s.pending, s.toCompactRecord(rec))
	})
}

func (s *mftStream) Close() error {
	s.bufPool.put(s.buf)
	return windows.CloseHandle(s.handle)
}

func (s *mftStream) toCompactRecord(rec Record) record.CompactRecord {
	nameID := s.strPool.Names.Intern(rec.NameSpan())
	return record.CompactRecord{
		FileRef:       record.FileRef(rec.FileRef),
		ParentRef:     record.FileRef(rec.ParentRef),
		NameID:        nameID,
		Attributes:    record.Attributes(rec.Attributes),
		ModifiedTicks: rec.TimestampTicks,
	}
}
