// Package fsprovider implements the FileSystemProvider fallback: a plain
// directory walk used when the raw-volume reader reports
// IsAvailable() == false (no elevated rights, or a non-NTFS/non-Windows
// target). It produces the same record.CompactRecord shape the raw-MFT
// enumerator does, so internal/pipeline can treat both sources
// uniformly, and a filesystem-notification monitor that feeds the same
// kind of change records internal/journal's SyncAdapter already knows
// how to apply.
package fsprovider

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/standardbeagle/volumefind/internal/logging"
	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/stringpool"
)

// fileRefMask keeps the hashed record number inside FileRef's 48-bit
// record-number field; the sequence number is fixed at 1 since a plain
// directory walk has no NTFS-style rename-reuse generation counter.
const fileRefMask = 0x0000_FFFF_FFFF_FFFF

// RefForPath derives a stable synthetic FileRef from a filesystem path.
// Unlike an MFT record number, this is a content-free hash: it is stable
// across repeated walks of the same path but carries no volume
// relationship to the real filesystem's inode/file-id numbers.
func RefForPath(path string) record.FileRef {
	h := xxhash.Sum64String(filepath.ToSlash(path))
	return record.NewFileRef(h&fileRefMask, 1)
}

// Config bundles Provider construction options.
type Config struct {
	Logger *zap.SugaredLogger
}

// Provider walks one or more root directories, in the teacher's
// filepath.Walk + channel-handoff style (see pipeline_scanner's
// ScanDirectory), but yielding record.CompactRecord instead of file
// tasks, and symlink-cycle safe the same way.
type Provider struct {
	log *zap.SugaredLogger
}

// NewProvider creates a filesystem-walk provider. Always available: there
// is no privilege gate equivalent to raw-volume access.
func NewProvider(cfg Config) *Provider {
	return &Provider{log: logging.OrNop(cfg.Logger)}
}

// IsAvailable always reports true; a plain directory walk never requires
// elevated rights.
func (p *Provider) IsAvailable() bool { return true }

// Stream is the filesystem-walk counterpart of volume.Stream: same
// Next/Close shape, satisfied structurally so internal/pipeline can
// consume either without importing internal/volume.
type Stream interface {
	Next() (record.CompactRecord, bool, error)
	Close() error
}

// Enumerate walks root and streams every file and directory under it as
// a CompactRecord. Names are interned into pool as they are discovered.
func (p *Provider) Enumerate(ctx context.Context, root string, pool *stringpool.StringPool) (Stream, error) {
	out := make(chan walkItem, 256)
	walkCtx, cancel := context.WithCancel(ctx)

	ws := &walkStream{out: out, cancel: cancel}

	go p.walk(walkCtx, root, pool, out)

	return ws, nil
}

type walkItem struct {
	rec record.CompactRecord
	err error
}

type walkStream struct {
	out    <-chan walkItem
	cancel context.CancelFunc
	closed bool
}

func (ws *walkStream) Next() (record.CompactRecord, bool, error) {
	item, ok := <-ws.out
	if !ok {
		return record.CompactRecord{}, false, nil
	}
	if item.err != nil {
		return record.CompactRecord{}, false, item.err
	}
	return item.rec, true, nil
}

func (ws *walkStream) Close() error {
	if !ws.closed {
		ws.cancel()
		ws.closed = true
	}
	return nil
}

// walk drives filepath.WalkDir, emitting one CompactRecord per entry.
// Every visited directory's FileRef is cached so children can look up
// their parent's synthetic reference; WalkDir guarantees a directory is
// visited before its children so the cache is always populated in time.
func (p *Provider) walk(ctx context.Context, root string, pool *stringpool.StringPool, out chan<- walkItem) {
	defer close(out)

	refByPath := make(map[string]record.FileRef)
	visitedDirs := make(map[string]bool)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if walkErr != nil {
			p.log.Debugw("fsprovider: walk error, skipping", "path", path, "error", walkErr)
			return nil
		}

		if d.IsDir() {
			realPath, err := filepath.EvalSymlinks(path)
			if err != nil {
				return nil
			}
			if visitedDirs[realPath] {
				return filepath.SkipDir
			}
			visitedDirs[realPath] = true
		}

		info, err := d.Info()
		if err != nil {
			p.log.Debugw("fsprovider: stat failed, skipping", "path", path, "error", err)
			return nil
		}

		parentRef := record.RootRef
		if parent := filepath.Dir(path); parent != path {
			if ref, ok := refByPath[parent]; ok {
				parentRef = ref
			}
		}

		ref := RefForPath(path)
		refByPath[path] = ref

		rec := toCompactRecord(ref, parentRef, d.Name(), info, pool)
		select {
		case out <- walkItem{rec: rec}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})
	if err != nil && err != context.Canceled {
		select {
		case out <- walkItem{err: err}:
		default:
		}
	}
}

func toCompactRecord(ref, parentRef record.FileRef, name string, info fs.FileInfo, pool *stringpool.StringPool) record.CompactRecord {
	attrs := record.Attributes(0)
	if info.IsDir() {
		attrs |= record.AttrDirectory
	}
	if info.Mode()&0200 == 0 {
		attrs |= record.AttrReadOnly
	}

	var size uint64
	if !info.IsDir() {
		size = uint64(info.Size())
	}

	return record.CompactRecord{
		FileRef:       ref,
		ParentRef:     parentRef,
		NameID:        pool.InternName(name),
		Attributes:    attrs,
		Size:          size,
		ModifiedTicks: record.TimeToTicks(info.ModTime()),
	}
}
