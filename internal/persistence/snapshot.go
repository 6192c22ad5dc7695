package persistence

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	volerrors "github.com/standardbeagle/volumefind/internal/errors"
	"github.com/standardbeagle/volumefind/internal/logging"
	"github.com/standardbeagle/volumefind/internal/record"
)

const snapshotFileName = "index.snapshot"

// snapshot header: 1 byte compression flag, 8 byte little-endian xxhash64
// checksum of everything that follows.
const (
	flagRaw  = 0
	flagZstd = 1
)

// Config bundles SnapshotStore construction options.
type Config struct {
	Dir      string
	Compress bool
	Logger   *zap.SugaredLogger
}

// SnapshotStore is the reference IndexPersistence sink: the full record
// set held in memory keyed by path, mirrored to a single checksummed,
// optionally zstd-compressed snapshot file on every AddBatch/Optimize,
// so a restart can resume without a full re-enumeration.
type SnapshotStore struct {
	dir      string
	compress bool
	log      *zap.SugaredLogger

	mu      sync.RWMutex
	records map[string]record.FullRecord
}

// New creates a SnapshotStore. Call Initialize before use.
func New(cfg Config) *SnapshotStore {
	return &SnapshotStore{
		dir:      cfg.Dir,
		compress: cfg.Compress,
		log:      logging.OrNop(cfg.Logger),
		records:  make(map[string]record.FullRecord),
	}
}

func (s *SnapshotStore) path() string { return filepath.Join(s.dir, snapshotFileName) }

// Initialize creates the snapshot directory and loads any existing
// snapshot file.
func (s *SnapshotStore) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &volerrors.PersistenceError{Op: "initialize", Err: err}
	}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return &volerrors.PersistenceError{Op: "initialize", Err: err}
	}
	return nil
}

// Clear empties the in-memory snapshot and removes the on-disk file.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.records = make(map[string]record.FullRecord)
	s.mu.Unlock()

	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return &volerrors.PersistenceError{Op: "clear", Err: err}
	}
	return nil
}

// Optimize rewrites the snapshot file compactly. This reference
// implementation never fragments the file beyond a single flat encode,
// so Optimize and a plain save are equivalent; it exists to exercise the
// contract's operation.
func (s *SnapshotStore) Optimize(ctx context.Context) error {
	return s.save()
}

// AddBatch inserts or replaces every record, keyed by path, and flushes
// the snapshot to disk.
func (s *SnapshotStore) AddBatch(ctx context.Context, records []record.FullRecord) (int, error) {
	s.mu.Lock()
	for _, r := range records {
		s.records[r.Path] = r
	}
	s.mu.Unlock()

	if err := s.save(); err != nil {
		return 0, err
	}
	return len(records), nil
}

// AddFromStream drains stream in batches of bufferSize, calling progress
// after each flushed batch, per spec.md §6's add_from_stream contract.
func (s *SnapshotStore) AddFromStream(ctx context.Context, stream RecordStream, bufferSize int, progress func(int)) (int, error) {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	batch := make([]record.FullRecord, 0, bufferSize)
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.AddBatch(ctx, batch)
		if err != nil {
			return err
		}
		total += n
		if progress != nil {
			progress(total)
		}
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}
		rec, ok, err := stream.Next()
		if err != nil {
			return total, err
		}
		if !ok {
			break
		}
		batch = append(batch, rec)
		if len(batch) >= bufferSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// Update replaces a single record and flushes the snapshot.
func (s *SnapshotStore) Update(ctx context.Context, rec record.FullRecord) error {
	s.mu.Lock()
	s.records[rec.Path] = rec
	s.mu.Unlock()
	return s.save()
}

// Delete removes a record by path and flushes the snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	delete(s.records, path)
	s.mu.Unlock()
	return s.save()
}

// GetByExtension returns every persisted record with the given
// extension.
func (s *SnapshotStore) GetByExtension(ctx context.Context, ext string) (RecordStream, error) {
	norm := normalizeExt(ext)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]record.FullRecord, 0)
	for _, r := range s.records {
		if normalizeExt(r.Extension) == norm {
			out = append(out, r)
		}
	}
	return newSliceStream(out), nil
}

// Search evaluates q's minimal filter set against the persisted
// snapshot. See Query's doc comment: this is a reduced-feature
// reference search, not the primary engine (internal/search).
func (s *SnapshotStore) Search(ctx context.Context, q Query) (RecordStream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]record.FullRecord, 0)
	for _, r := range s.records {
		if q.ExtensionFilter != "" && normalizeExt(r.Extension) != normalizeExt(q.ExtensionFilter) {
			continue
		}
		if q.Text != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(q.Text)) {
			continue
		}
		if q.MinSize != nil && r.Size < *q.MinSize {
			continue
		}
		if q.MaxSize != nil && r.Size > *q.MaxSize {
			continue
		}
		out = append(out, r)
	}
	return newSliceStream(out), nil
}

// Statistics returns totals and the on-disk snapshot file size.
func (s *SnapshotStore) Statistics(ctx context.Context) (Statistics, error) {
	s.mu.RLock()
	var totalBytes int64
	for _, r := range s.records {
		totalBytes += int64(r.Size)
	}
	count := int64(len(s.records))
	s.mu.RUnlock()

	var storageSize int64
	if fi, err := os.Stat(s.path()); err == nil {
		storageSize = fi.Size()
	}
	return Statistics{
		RecordCount: count,
		TotalBytes:  totalBytes,
		StorageSize: storageSize,
		SavedAt:     time.Now(),
	}, nil
}

// Close flushes one final snapshot.
func (s *SnapshotStore) Close() error {
	return s.save()
}

func (s *SnapshotStore) save() error {
	s.mu.RLock()
	values := make([]record.FullRecord, 0, len(s.records))
	for _, r := range s.records {
		values = append(values, r)
	}
	s.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(values); err != nil {
		return &volerrors.PersistenceError{Op: "save", Err: err}
	}

	payload := buf.Bytes()
	flag := byte(flagRaw)
	if s.compress {
		var zbuf bytes.Buffer
		zw, err := zstd.NewWriter(&zbuf)
		if err != nil {
			return &volerrors.PersistenceError{Op: "save", Err: err}
		}
		if _, err := zw.Write(payload); err != nil {
			zw.Close()
			return &volerrors.PersistenceError{Op: "save", Err: err}
		}
		if err := zw.Close(); err != nil {
			return &volerrors.PersistenceError{Op: "save", Err: err}
		}
		payload = zbuf.Bytes()
		flag = flagZstd
	}

	checksum := xxhash.Sum64(payload)
	var header [9]byte
	header[0] = flag
	binary.LittleEndian.PutUint64(header[1:], checksum)

	tmp := s.path() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return &volerrors.PersistenceError{Op: "save", Err: err}
	}
	if _, err := f.Write(header[:]); err != nil {
		f.Close()
		return &volerrors.PersistenceError{Op: "save", Err: err}
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		return &volerrors.PersistenceError{Op: "save", Err: err}
	}
	if err := f.Close(); err != nil {
		return &volerrors.PersistenceError{Op: "save", Err: err}
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return &volerrors.PersistenceError{Op: "save", Err: err}
	}
	return nil
}

func (s *SnapshotStore) load() error {
	f, err := os.Open(s.path())
	if err != nil {
		return err
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return &volerrors.PersistenceError{Op: "load", Err: err}
	}
	if len(raw) < 9 {
		return &volerrors.PersistenceError{Op: "load", Err: fmt.Errorf("snapshot file truncated")}
	}
	flag := raw[0]
	wantChecksum := binary.LittleEndian.Uint64(raw[1:9])
	payload := raw[9:]
	if xxhash.Sum64(payload) != wantChecksum {
		return &volerrors.PersistenceError{Op: "load", Err: fmt.Errorf("snapshot checksum mismatch")}
	}

	if flag == flagZstd {
		zr, err := zstd.NewReader(bytes.NewReader(payload))
		if err != nil {
			return &volerrors.PersistenceError{Op: "load", Err: err}
		}
		defer zr.Close()
		decoded, err := io.ReadAll(zr)
		if err != nil {
			return &volerrors.PersistenceError{Op: "load", Err: err}
		}
		payload = decoded
	}

	var values []record.FullRecord
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&values); err != nil {
		return &volerrors.PersistenceError{Op: "load", Err: err}
	}

	s.mu.Lock()
	s.records = make(map[string]record.FullRecord, len(values))
	for _, r := range values {
		s.records[r.Path] = r
	}
	s.mu.Unlock()
	return nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	return ext
}
