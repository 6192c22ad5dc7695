// Package pipeline drives a full initial index build (spec.md §4.8): for
// every volume or directory in scope it picks a provider (raw-MFT when
// the platform allows it, otherwise a filesystem walk), drains the
// resulting record stream in batches, bulk-applies each batch to the
// Index, and once the path trie can resolve full paths, replays the
// same batches into the external IndexPersistence sink. Grounded on the
// teacher's pipeline.go/pipeline_scanner.go channel-handoff shape, with
// golang.org/x/sync/errgroup replacing its hand-rolled goroutine/WaitGroup
// bookkeeping for per-volume structured concurrency, and
// pipeline_progress.go's atomic-counter progress tracker reduced to the
// single RecordsIndexed/VolumesDone pair this orchestrator needs.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/volumefind/internal/config"
	volerrors "github.com/standardbeagle/volumefind/internal/errors"
	"github.com/standardbeagle/volumefind/internal/fsprovider"
	"github.com/standardbeagle/volumefind/internal/index"
	"github.com/standardbeagle/volumefind/internal/logging"
	"github.com/standardbeagle/volumefind/internal/persistence"
	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/volume"
)

// DefaultBatchSize is spec.md §4.8's batch size for bulk index/persistence
// application.
const DefaultBatchSize = 5000

// DefaultProgressInterval is spec.md §4.8's progress reporting cadence.
const DefaultProgressInterval = 500 * time.Millisecond

// recordStream is the shape both volume.Stream and fsprovider.Stream
// satisfy; the pipeline treats either provider's output identically.
type recordStream interface {
	Next() (record.CompactRecord, bool, error)
	Close() error
}

// Options configures one orchestrator run.
type Options struct {
	Config           config.IndexingOptions
	Logger           *zap.SugaredLogger
	BatchSize        int
	ProgressInterval time.Duration
	OnProgress       func(Progress)
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = DefaultProgressInterval
	}
	return o
}

// Progress is a point-in-time snapshot reported at most every
// ProgressInterval, and unconditionally at every batch boundary.
type Progress struct {
	VolumesTotal   int
	VolumesDone    int64
	RecordsIndexed int64
	Elapsed        time.Duration
}

// Stats summarizes a completed Run.
type Stats struct {
	VolumesIndexed int
	RecordCount    int64
	TotalBytes     int64
	Duration       time.Duration
	Errors         *volerrors.Stats
}

// Orchestrator drives one indexing build across every in-scope volume or
// directory, per Options.Config.
type Orchestrator struct {
	idx        *index.Index
	volumeRdr  volume.Reader
	fsProvider *fsprovider.Provider
	persist    persistence.IndexPersistence
	log        *zap.SugaredLogger
	opts       Options

	volumesTotal   int
	volumesDone    atomic.Int64
	recordsIndexed atomic.Int64
	runStart       time.Time
}

// New creates an Orchestrator. persist may be nil to run index-only
// (skip the persistence replay pass).
func New(idx *index.Index, volumeRdr volume.Reader, fsProvider *fsprovider.Provider, persist persistence.IndexPersistence, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	return &Orchestrator{
		idx:        idx,
		volumeRdr:  volumeRdr,
		fsProvider: fsProvider,
		persist:    persist,
		log:        logging.OrNop(opts.Logger),
		opts:       opts,
	}
}

// Run picks raw-MFT volumes when the reader reports IsAvailable(), else
// falls back to a filesystem walk over Options.Config.SpecificDirectories
// (or the current directory when none are configured). Each in-scope
// source is enumerated by its own goroutine under an errgroup bounded by
// Options.Config.ParallelThreads.
func (o *Orchestrator) Run(ctx context.Context) (Stats, error) {
	o.runStart = time.Now()
	o.volumesDone.Store(0)
	o.recordsIndexed.Store(0)
	stats := &volerrors.Stats{}

	sources, useVolumes, err := o.discoverSources(ctx)
	if err != nil {
		return Stats{}, err
	}
	o.volumesTotal = len(sources)

	stopTicker := o.startProgressTicker(ctx)
	defer stopTicker()

	g, gctx := errgroup.WithContext(ctx)
	if n := o.opts.Config.ParallelThreads; n > 0 {
		g.SetLimit(n)
	}

	var mu sync.Mutex
	var totalBytes int64

	for _, src := range sources {
		src := src
		g.Go(func() error {
			var refs []record.FileRef
			var err error
			if useVolumes {
				refs, err = o.ingestVolume(gctx, volume.ID(src))
			} else {
				refs, err = o.ingestDirectory(gctx, src)
			}
			if err != nil {
				stats.Record(err)
				o.log.Warnw("pipeline: source failed", "source", src, "error", err)
				return nil
			}

			if err := o.idx.BuildTrie(gctx, refs); err != nil {
				stats.Record(err)
				return nil
			}

			if o.persist != nil {
				if err := o.persistRefs(gctx, refs); err != nil {
					return &volerrors.PersistenceError{Op: "add_batch", Err: err}
				}
			}

			mu.Lock()
			for _, ref := range refs {
				if rec, ok := o.idx.Store.Get(ref); ok {
					totalBytes += int64(rec.Size)
				}
			}
			mu.Unlock()

			o.volumesDone.Add(1)
			o.reportProgressNow()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	return Stats{
		VolumesIndexed: int(o.volumesDone.Load()),
		RecordCount:    o.recordsIndexed.Load(),
		TotalBytes:     totalBytes,
		Duration:       time.Since(o.runStart),
		Errors:         stats,
	}, nil
}

func (o *Orchestrator) discoverSources(ctx context.Context) (sources []string, useVolumes bool, err error) {
	if len(o.opts.Config.DriveLetters) > 0 {
		return o.opts.Config.DriveLetters, true, nil
	}
	if o.volumeRdr != nil && o.volumeRdr.IsAvailable() {
		ids, err := o.volumeRdr.Volumes(ctx)
		if err != nil {
			return nil, false, err
		}
		out := make([]string, len(ids))
		for i, id := range ids {
			out[i] = string(id)
		}
		return out, true, nil
	}
	if len(o.opts.Config.SpecificDirectories) > 0 {
		return o.opts.Config.SpecificDirectories, false, nil
	}
	return []string{"."}, false, nil
}

// startProgressTicker fires OnProgress every ProgressInterval for
// long-running individual batches; the returned func stops it. Batch
// boundaries report separately via reportProgressNow in drainIntoIndex.
func (o *Orchestrator) startProgressTicker(ctx context.Context) func() {
	if o.opts.OnProgress == nil {
		return func() {}
	}
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(o.opts.ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				o.reportProgressNow()
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() { close(stop) }
}

func (o *Orchestrator) reportProgressNow() {
	if o.opts.OnProgress == nil {
		return
	}
	o.opts.OnProgress(Progress{
		VolumesTotal:   o.volumesTotal,
		VolumesDone:    o.volumesDone.Load(),
		RecordsIndexed: o.recordsIndexed.Load(),
		Elapsed:        time.Since(o.runStart),
	})
}
