// Package engine composes the index, pipeline orchestrator, journal/
// filesystem monitors, and search planner into the single façade spec.md
// §6 calls create_engine/SearchEngine: start_indexing, stop_indexing,
// search, get_file, indexing_stats, search_stats, subscribe_changes.
// Grounded on the teacher's server package, which plays the same role of
// wiring independently-testable internal packages behind one public
// entry point and owning their lifecycle.
package engine

import (
	"context"
	"path"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/standardbeagle/volumefind/internal/config"
	"github.com/standardbeagle/volumefind/internal/fsprovider"
	"github.com/standardbeagle/volumefind/internal/index"
	"github.com/standardbeagle/volumefind/internal/journal"
	"github.com/standardbeagle/volumefind/internal/logging"
	"github.com/standardbeagle/volumefind/internal/persistence"
	"github.com/standardbeagle/volumefind/internal/pipeline"
	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/search"
	"github.com/standardbeagle/volumefind/internal/volume"
)

// Config bundles the collaborators and options a new Engine needs. Every
// field has a usable zero value except Logger, which defaults to a nop
// logger like the rest of the module.
type Config struct {
	Logger      *zap.SugaredLogger
	Persistence persistence.IndexPersistence // nil runs index-only, no durable sink
	VolumeRdr   volume.Reader                // nil picks the platform default
	JournalRdr  journal.Reader               // nil picks the platform default
}

// IndexingStats is indexing_stats()'s return shape: the live Index
// totals plus the most recent pipeline.Progress, if a build is running
// or just finished.
type IndexingStats struct {
	index.Stats
	Progress pipeline.Progress
	Running  bool
}

// SearchStats is search_stats()'s return shape.
type SearchStats struct {
	TotalSearches int64
	TotalMatches  int64
}

// Engine is the concrete type behind SearchEngine. Zero value is not
// usable; construct with New.
type Engine struct {
	idx        *index.Index
	volumeRdr  volume.Reader
	journalRdr journal.Reader
	fsProvider *fsprovider.Provider
	persist    persistence.IndexPersistence
	log        *zap.SugaredLogger

	broadcaster *changeBroadcaster

	mu              sync.Mutex
	cancelIndexing  context.CancelFunc
	indexingRunning bool
	lastProgress    pipeline.Progress

	searchCount atomic.Int64
	matchCount  atomic.Int64

	journalMon *journal.Monitor
	fsMon      *fsprovider.Monitor
	syncDone   chan struct{}
}

// New creates an Engine over a fresh, empty Index. cfg's nil fields pick
// platform defaults.
func New(cfg Config) *Engine {
	log := logging.OrNop(cfg.Logger)

	volumeRdr := cfg.VolumeRdr
	if volumeRdr == nil {
		volumeRdr = volume.NewReader(cfg.Logger)
	}
	journalRdr := cfg.JournalRdr
	if journalRdr == nil {
		journalRdr = journal.NewReader()
	}

	idx := index.New(index.Config{CaseInsensitiveVolume: true, Logger: cfg.Logger})

	return &Engine{
		idx:         idx,
		volumeRdr:   volumeRdr,
		journalRdr:  journalRdr,
		fsProvider:  fsprovider.NewProvider(fsprovider.Config{Logger: cfg.Logger}),
		persist:     cfg.Persistence,
		log:         log,
		broadcaster: newChangeBroadcaster(),
	}
}

// StartIndexing runs one full pipeline build over opts, then, if
// opts.EnableMonitoring, starts incremental monitoring (the USN journal
// on volumes the raw reader can reach, an fsnotify watch over
// opts.SpecificDirectories otherwise). It returns once the initial build
// completes; monitoring continues in the background until StopIndexing
// or ctx is cancelled.
func (e *Engine) StartIndexing(ctx context.Context, opts config.IndexingOptions) (pipeline.Stats, error) {
	if err := opts.Validate(); err != nil {
		return pipeline.Stats{}, err
	}

	e.mu.Lock()
	if e.indexingRunning {
		e.mu.Unlock()
		return pipeline.Stats{}, &alreadyRunningError{}
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancelIndexing = cancel
	e.indexingRunning = true
	e.mu.Unlock()

	if e.persist != nil {
		if err := e.persist.Initialize(runCtx); err != nil {
			e.finishIndexingRun()
			return pipeline.Stats{}, err
		}
	}

	orch := pipeline.New(e.idx, e.volumeRdr, e.fsProvider, e.persist, pipeline.Options{
		Config:     opts,
		Logger:     e.log,
		OnProgress: e.recordProgress,
	})

	stats, err := orch.Run(runCtx)
	if err != nil {
		e.finishIndexingRun()
		return stats, err
	}

	if opts.EnableMonitoring {
		if startErr := e.startMonitoring(runCtx, opts); startErr != nil {
			e.log.Warnw("engine: monitoring unavailable, staying on one-shot index", "error", startErr)
			cancel()
			e.finishIndexingRun()
		}
	} else {
		cancel()
		e.finishIndexingRun()
	}

	return stats, nil
}

// StopIndexing cancels any running monitoring and marks the engine idle.
// The Index itself is left intact; a later StartIndexing rebuilds it.
func (e *Engine) StopIndexing() {
	e.mu.Lock()
	cancel := e.cancelIndexing
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if e.journalMon != nil {
		e.journalMon.Stop()
	}
	if e.fsMon != nil {
		e.fsMon.Stop()
	}
	if e.syncDone != nil {
		<-e.syncDone
	}
	e.finishIndexingRun()
}

func (e *Engine) finishIndexingRun() {
	e.mu.Lock()
	e.indexingRunning = false
	e.cancelIndexing = nil
	e.mu.Unlock()
}

func (e *Engine) recordProgress(p pipeline.Progress) {
	e.mu.Lock()
	e.lastProgress = p
	e.mu.Unlock()
}

// startMonitoring picks the raw USN journal path when the volume reader
// reports real volumes, otherwise an fsnotify walk over the configured
// directories, and wires either one through the same relay/broadcast
// pipeline.
func (e *Engine) startMonitoring(ctx context.Context, opts config.IndexingOptions) error {
	if e.volumeRdr != nil && e.volumeRdr.IsAvailable() {
		ids, err := e.volumeRdr.Volumes(ctx)
		if err == nil && len(ids) > 0 {
			volIDs := make([]string, len(ids))
			for i, id := range ids {
				volIDs[i] = string(id)
			}
			e.journalMon = journal.New(journal.Config{Reader: e.journalRdr, Logger: e.log})
			e.journalMon.Start(ctx, volIDs)
			e.runRelay(ctx, e.journalMon.Changes())
			return nil
		}
	}

	roots := opts.SpecificDirectories
	if len(roots) == 0 {
		roots = []string{"."}
	}
	mon, err := fsprovider.NewMonitor(fsprovider.Config{Logger: e.log})
	if err != nil {
		return err
	}
	if err := mon.Start(ctx, roots); err != nil {
		return err
	}
	e.fsMon = mon
	e.runRelay(ctx, mon.Changes())
	return nil
}

// runRelay applies every incoming ChangeRecord to the Index via the same
// batching SyncAdapter uses, and separately resolves + broadcasts a
// FileChanged event per record. It owns e.syncDone, closed once in
// (both the adapter and relay exit on ctx cancellation).
func (e *Engine) runRelay(ctx context.Context, in <-chan journal.ChangeRecord) {
	e.syncDone = make(chan struct{})
	relayed := make(chan journal.ChangeRecord, cap(in))
	adapter := journal.NewSyncAdapter(e.idx, e.idx.Pool, relayed, e.log)

	oldPaths := struct {
		mu sync.Mutex
		m  map[record.FileRef]string
	}{m: make(map[record.FileRef]string)}

	go func() {
		defer close(e.syncDone)
		defer close(relayed)
		for {
			select {
			case <-ctx.Done():
				return
			case rec, ok := <-in:
				if !ok {
					return
				}

				switch rec.Reason {
				case journal.ReasonRenamedOld:
					if p, ok := resolveLivePath(e.idx, rec.ParentRef, rec.Name); ok {
						oldPaths.mu.Lock()
						oldPaths.m[rec.FileRef] = p
						oldPaths.mu.Unlock()
					}
				case journal.ReasonDeleted:
					if p, ok := e.idx.Store.LastKnownPath(rec.FileRef); ok {
						e.broadcaster.publish(FileChanged{Kind: FileDeleted, NewPath: p, Timestamp: rec.Timestamp})
					} else if p, ok := resolveLivePath(e.idx, rec.ParentRef, rec.Name); ok {
						e.broadcaster.publish(FileChanged{Kind: FileDeleted, NewPath: p, Timestamp: rec.Timestamp})
					}
				case journal.ReasonCreated:
					if p, ok := resolveLivePath(e.idx, rec.ParentRef, rec.Name); ok {
						e.broadcaster.publish(FileChanged{Kind: FileCreated, NewPath: p, Timestamp: rec.Timestamp})
					}
				case journal.ReasonRenamedNew:
					if p, ok := resolveLivePath(e.idx, rec.ParentRef, rec.Name); ok {
						oldPaths.mu.Lock()
						old := oldPaths.m[rec.FileRef]
						delete(oldPaths.m, rec.FileRef)
						oldPaths.mu.Unlock()
						e.broadcaster.publish(FileChanged{Kind: FileRenamed, OldPath: old, NewPath: p, Timestamp: rec.Timestamp})
					}
				case journal.ReasonDataModified, journal.ReasonAttrsChanged:
					if p, ok := resolveLivePath(e.idx, rec.ParentRef, rec.Name); ok {
						e.broadcaster.publish(FileChanged{Kind: FileModified, NewPath: p, Timestamp: rec.Timestamp})
					}
				}

				select {
				case relayed <- rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	go adapter.Run(ctx)
}

// resolveLivePath resolves parentRef+name to a full path through the
// Index's Store, the way Store.ToFull does for a CompactRecord already
// in the Store. Used for events arriving before (create) or in place of
// (delete) a Store entry for the changed record itself.
func resolveLivePath(idx *index.Index, parentRef record.FileRef, name string) (string, bool) {
	if parentRef == record.RootRef {
		return "/" + name, true
	}
	parent, ok := idx.Store.Get(parentRef)
	if !ok {
		if p, ok := idx.Store.LastKnownPath(parentRef); ok {
			return path.Join(p, name), true
		}
		return "", false
	}
	full, err := idx.Store.ToFull(parent)
	if err != nil {
		return "", false
	}
	return path.Join(full.Path, name), true
}

// SearchResult wraps a search.Result to tally search_stats() as the
// caller pulls records off it.
type SearchResult struct {
	*search.Result
	engine *Engine
}

// Files delegates to the wrapped Result, counting every successfully
// yielded record toward SearchStats.TotalMatches.
func (r *SearchResult) Files() (record.FullRecord, bool, error) {
	rec, ok, err := r.Result.Files()
	if ok {
		r.engine.matchCount.Add(1)
	}
	return rec, ok, err
}

// Search evaluates q against the live Index and tallies search_stats().
func (e *Engine) Search(ctx context.Context, q search.Query) *SearchResult {
	e.searchCount.Add(1)
	return &SearchResult{Result: search.Search(ctx, e.idx, q), engine: e}
}

// GetFile looks up the single record at fullPath, or ok=false if no such
// path is currently indexed.
func (e *Engine) GetFile(ctx context.Context, fullPath string) (record.FullRecord, bool) {
	dir := path.Dir(fullPath)
	base := path.Base(fullPath)
	if dir == "." {
		dir = "/"
	}

	result := search.Search(ctx, e.idx, search.Query{
		BasePath:              dir,
		IncludeSubdirectories: false,
		Text:                  base,
		SearchFilenameOnly:    true,
		CaseSensitive:         false,
	})
	if result.Failed {
		return record.FullRecord{}, false
	}
	for {
		rec, ok, err := result.Files()
		if err != nil || !ok {
			return record.FullRecord{}, false
		}
		if rec.Path == fullPath {
			return rec, true
		}
	}
}

// IndexingStats reports the Index's live totals plus the last reported
// pipeline progress.
func (e *Engine) IndexingStats() IndexingStats {
	e.mu.Lock()
	progress := e.lastProgress
	running := e.indexingRunning
	e.mu.Unlock()

	return IndexingStats{
		Stats:    e.idx.Stats(),
		Progress: progress,
		Running:  running,
	}
}

// SearchStats reports cumulative search call/match counters.
func (e *Engine) SearchStats() SearchStats {
	return SearchStats{
		TotalSearches: e.searchCount.Load(),
		TotalMatches:  e.matchCount.Load(),
	}
}

// SubscribeChanges returns a channel of future FileChanged events and an
// unsubscribe func the caller must eventually call. buffer sizes the
// per-subscriber channel; 0 picks a default.
func (e *Engine) SubscribeChanges(buffer int) (<-chan FileChanged, func()) {
	return e.broadcaster.subscribe(buffer)
}

// Close stops indexing/monitoring and releases the persistence sink, if
// any.
func (e *Engine) Close() error {
	e.StopIndexing()
	e.broadcaster.closeAll()
	if e.persist != nil {
		return e.persist.Close()
	}
	return nil
}

// alreadyRunningError is returned by StartIndexing when called while a
// run is already in progress.
type alreadyRunningError struct{}

func (e *alreadyRunningError) Error() string { return "engine: indexing already running" }
