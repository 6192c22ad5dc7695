package pipeline

import (
	"context"
	"errors"

	volerrors "github.com/standardbeagle/volumefind/internal/errors"
	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/volume"
)

// ingestVolume drains a raw-MFT enumeration of id, batching Ingest calls
// by Options.BatchSize, and returns every FileRef it ingested so the
// caller can BuildTrie and persist them once the volume is fully drained.
func (o *Orchestrator) ingestVolume(ctx context.Context, id volume.ID) ([]record.FileRef, error) {
	stream, err := o.volumeRdr.Enumerate(ctx, id, o.idx.Pool)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	return o.drainIntoIndex(ctx, stream)
}

// ingestDirectory is ingestVolume's filesystem-walk counterpart.
func (o *Orchestrator) ingestDirectory(ctx context.Context, root string) ([]record.FileRef, error) {
	stream, err := o.fsProvider.Enumerate(ctx, root, o.idx.Pool)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	return o.drainIntoIndex(ctx, stream)
}

// drainIntoIndex pulls every record off stream, applying the
// size/hidden/system IndexingOptions filters inline before Ingest, batching by Options.BatchSize purely for the progress
// callback cadence (Ingest itself is safe to call record-by-record).
func (o *Orchestrator) drainIntoIndex(ctx context.Context, stream recordStream) ([]record.FileRef, error) {
	refs := make([]record.FileRef, 0, 4096)
	batchCount := 0

	flushCount := func() {
		if batchCount > 0 {
			o.recordsIndexed.Add(int64(batchCount))
			o.reportProgressNow()
			batchCount = 0
		}
	}

	for {
		select {
		case <-ctx.Done():
			flushCount()
			return refs, ctx.Err()
		default:
		}

		rec, ok, err := stream.Next()
		if err != nil {
			flushCount()
			return refs, err
		}
		if !ok {
			flushCount()
			return refs, nil
		}

		if !o.passesOptionsFilter(rec) {
			continue
		}

		o.idx.Ingest(rec)
		refs = append(refs, rec.FileRef)
		batchCount++

		if batchCount >= o.opts.BatchSize {
			o.recordsIndexed.Add(int64(batchCount))
			o.reportProgressNow()
			batchCount = 0
		}
	}
}

// passesOptionsFilter applies the cheap, name/attribute-only
// IndexingOptions filters (max_file_size, include_hidden/system) that
// can be evaluated before a record's full path is resolvable.
// IndexingOptions.ExcludedPaths is not applied anywhere in the build;
// internal/search only filters on a Query's own ExcludedPaths.
func (o *Orchestrator) passesOptionsFilter(rec record.CompactRecord) bool {
	cfg := o.opts.Config
	if !cfg.IncludeHidden && rec.Attributes.Has(record.AttrHidden) {
		return false
	}
	if !cfg.IncludeSystem && rec.Attributes.Has(record.AttrSystem) {
		return false
	}
	if cfg.MaxFileSize != nil && !rec.IsDirectory() && rec.Size > uint64(*cfg.MaxFileSize) {
		return false
	}
	return true
}

// persistRefs replays every ref's now-resolvable FullRecord into the
// persistence sink, in Options.BatchSize chunks. Records whose ancestor
// chain still doesn't resolve (a parent dropped by passesOptionsFilter)
// are skipped rather than failing the batch.
func (o *Orchestrator) persistRefs(ctx context.Context, refs []record.FileRef) error {
	batch := make([]record.FullRecord, 0, o.opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := o.persist.AddBatch(ctx, batch); err != nil {
			// One retry of the same batch before giving up.
			if _, err = o.persist.AddBatch(ctx, batch); err != nil {
				return err
			}
		}
		batch = batch[:0]
		return nil
	}

	for _, ref := range refs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		rec, ok := o.idx.Store.Get(ref)
		if !ok {
			continue
		}
		full, err := o.idx.Store.ToFull(rec)
		if err != nil {
			var notResolvable *volerrors.PathNotResolvableError
			if errors.As(err, &notResolvable) {
				continue
			}
			return err
		}
		batch = append(batch, full)
		if len(batch) >= o.opts.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}
