package journal

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/standardbeagle/volumefind/internal/index"
	"github.com/standardbeagle/volumefind/internal/logging"
	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/stringpool"
)

// maxBatchSize and maxBatchDelay are the sync adapter's batching
// parameters, per spec.md §4.6: up to 100 items or 500ms, whichever
// comes first.
const (
	maxBatchSize  = 100
	maxBatchDelay = 500 * time.Millisecond
)

// SyncAdapter is the Index's sole writer during steady state: it drains
// a Monitor's Changes channel, batches records, and applies each batch
// record by record through Index.ApplyCreate/ApplyUpdate/ApplyRemove.
// Each of those calls is atomic on its own; a batch as a whole is not,
// so readers can observe a batch partly applied.
type SyncAdapter struct {
	idx  *index.Index
	pool *stringpool.StringPool
	in   <-chan ChangeRecord
	log  *zap.SugaredLogger

	mu      sync.Mutex
	applied int64
}

// NewSyncAdapter creates a SyncAdapter that applies changes from in to
// idx, interning names through pool (normally idx.Pool).
func NewSyncAdapter(idx *index.Index, pool *stringpool.StringPool, in <-chan ChangeRecord, log *zap.SugaredLogger) *SyncAdapter {
	return &SyncAdapter{idx: idx, pool: pool, in: in, log: logging.OrNop(log)}
}

// Run drains the channel until ctx is cancelled or the channel closes,
// applying a batch whenever it reaches maxBatchSize items or
// maxBatchDelay elapses since the first item in the batch arrived.
func (a *SyncAdapter) Run(ctx context.Context) {
	batch := make([]ChangeRecord, 0, maxBatchSize)
	timer := time.NewTimer(maxBatchDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		a.applyBatch(batch)
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case rec, ok := <-a.in:
			if !ok {
				flush()
				return
			}
			if len(batch) == 0 {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(maxBatchDelay)
			}
			batch = append(batch, rec)
			if len(batch) >= maxBatchSize {
				flush()
			}
		case <-timer.C:
			flush()
			timer.Reset(maxBatchDelay)
		}
	}
}

// AppliedCount returns how many ChangeRecords have been applied so far.
func (a *SyncAdapter) AppliedCount() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.applied
}

func (a *SyncAdapter) applyBatch(batch []ChangeRecord) {
	a.mu.Lock()
	a.applied += int64(len(batch))
	a.mu.Unlock()

	for _, rec := range batch {
		switch rec.Reason {
		case ReasonCreated:
			a.applyCreate(rec)
		case ReasonDeleted:
			a.idx.ApplyRemove(rec.FileRef)
		case ReasonRenamedNew, ReasonDataModified, ReasonAttrsChanged:
			a.applyUpdate(rec)
		case ReasonRenamedOld, ReasonClosed, ReasonUnknown:
			// RenamedOld carries the pre-rename name and is superseded by
			// the paired RenamedNew record; Closed and Unknown carry no
			// structural change worth applying on their own.
		}
	}
}

func (a *SyncAdapter) applyCreate(rec ChangeRecord) {
	a.idx.ApplyCreate(record.CompactRecord{
		FileRef:       rec.FileRef,
		ParentRef:     rec.ParentRef,
		NameID:        a.pool.Names.Intern(rec.Name),
		Attributes:    rec.Attributes,
		ModifiedTicks: record.TimeToTicks(rec.Timestamp),
	})
}

func (a *SyncAdapter) applyUpdate(rec ChangeRecord) {
	// The journal does not carry size; preserve whatever size the index
	// already has on file rather than zeroing it out.
	size := uint64(0)
	if existing, ok := a.idx.Store.Get(rec.FileRef); ok {
		size = existing.Size
	}
	a.idx.ApplyUpdate(record.CompactRecord{
		FileRef:       rec.FileRef,
		ParentRef:     rec.ParentRef,
		NameID:        a.pool.Names.Intern(rec.Name),
		Attributes:    rec.Attributes,
		Size:          size,
		ModifiedTicks: record.TimeToTicks(rec.Timestamp),
	})
}
