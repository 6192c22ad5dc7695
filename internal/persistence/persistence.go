// Package persistence defines the IndexPersistence sink contract
// (spec.md §6) and ships one concrete implementation, SnapshotStore, so
// the contract is actually exercised end to end rather than left as a
// bare interface. The real sink a production deployment would plug in
// (SQLite, a remote store, ...) is an external collaborator; this one
// favors simplicity over scale.
package persistence

import (
	"context"
	"time"

	"github.com/standardbeagle/volumefind/internal/record"
)

// RecordStream is a finite, pull-based sequence of FullRecords, the same
// shape internal/search and internal/volume use for lazy results.
type RecordStream interface {
	Next() (rec record.FullRecord, ok bool, err error)
}

// Statistics mirrors IndexStatistics (spec.md §3): totals plus the
// persisted storage footprint.
type Statistics struct {
	RecordCount int64
	TotalBytes  int64
	StorageSize int64
	SavedAt     time.Time
}

// Query is the minimal filter set SnapshotStore.Search evaluates
// directly against the persisted snapshot. It intentionally covers only
// the cheap, index-free filters; a caller wanting the full predicate
// pipeline (regex, glob, base-path, attributes, time windows) should
// query internal/search's in-memory Index instead — this sink's search
// exists only to exercise the IndexPersistence contract end to end, not
// to replace the primary engine.
type Query struct {
	ExtensionFilter string
	Text            string
	MinSize         *uint64
	MaxSize         *uint64
}

// IndexPersistence is the sink the pipeline orchestrator bulk-applies
// batches to, spec.md §6's out-of-core collaborator.
type IndexPersistence interface {
	Initialize(ctx context.Context) error
	Clear(ctx context.Context) error
	Optimize(ctx context.Context) error

	AddBatch(ctx context.Context, records []record.FullRecord) (int, error)
	AddFromStream(ctx context.Context, stream RecordStream, bufferSize int, progress func(count int)) (int, error)

	Update(ctx context.Context, rec record.FullRecord) error
	Delete(ctx context.Context, path string) error

	GetByExtension(ctx context.Context, ext string) (RecordStream, error)
	Search(ctx context.Context, q Query) (RecordStream, error)

	Statistics(ctx context.Context) (Statistics, error)
	Close() error
}

// sliceStream adapts a pre-built slice to RecordStream, for the
// Get*/Search methods that can answer from an in-memory snapshot
// without further I/O.
type sliceStream struct {
	records []record.FullRecord
	i       int
}

func newSliceStream(records []record.FullRecord) *sliceStream {
	return &sliceStream{records: records}
}

func (s *sliceStream) Next() (record.FullRecord, bool, error) {
	if s.i >= len(s.records) {
		return record.FullRecord{}, false, nil
	}
	r := s.records[s.i]
	s.i++
	return r, true, nil
}
