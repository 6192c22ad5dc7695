package journal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	volerrors "github.com/standardbeagle/volumefind/internal/errors"
	"github.com/standardbeagle/volumefind/internal/logging"
)

// DefaultPollInterval is the journal poller's default cadence
// (spec.md §4.6).
const DefaultPollInterval = 100 * time.Millisecond

// RewoundEvent is fired when a volume's journal has wrapped: the
// consumer's cursor predates the journal's lowest valid USN and a full
// re-enumeration is required.
type RewoundEvent struct {
	VolumeID string
	From     uint64
	To       uint64
}

// Monitor runs the per-volume USN journal state machine and poll loop. A
// single Monitor can track any number of volumes; each gets its own
// goroutine and cursor.
type Monitor struct {
	reader       Reader
	pollInterval time.Duration
	log          *zap.SugaredLogger

	out     chan ChangeRecord
	rewound chan RewoundEvent

	mu       sync.Mutex
	states   map[string]State
	shutdown atomic.Bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Config bundles Monitor construction options.
type Config struct {
	Reader       Reader
	PollInterval time.Duration
	Logger       *zap.SugaredLogger
}

// New creates a Monitor. Changes publish to Changes(); journal wraps
// publish to Rewound().
func New(cfg Config) *Monitor {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		reader:       cfg.Reader,
		pollInterval: interval,
		log:          logging.OrNop(cfg.Logger),
		out:          make(chan ChangeRecord, 4096),
		rewound:      make(chan RewoundEvent, 16),
		states:       make(map[string]State),
		stopCh:       make(chan struct{}),
	}
}

// Changes returns the shared channel every volume's poll loop publishes
// decoded ChangeRecords to, in per-volume FIFO order.
func (m *Monitor) Changes() <-chan ChangeRecord { return m.out }

// Rewound returns the channel JournalRewound notifications publish to.
func (m *Monitor) Rewound() <-chan RewoundEvent { return m.rewound }

// State returns volumeID's current state machine position.
func (m *Monitor) State(volumeID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[volumeID]
}

func (m *Monitor) setState(volumeID string, s State) {
	m.mu.Lock()
	m.states[volumeID] = s
	m.mu.Unlock()
}

// Start launches one poll-loop goroutine per volume in volumeIDs.
func (m *Monitor) Start(ctx context.Context, volumeIDs []string) {
	for _, id := range volumeIDs {
		m.setState(id, StateNotOpened)
		m.wg.Add(1)
		go m.run(ctx, id)
	}
}

// Stop signals every poll loop to exit and waits for them to return.
func (m *Monitor) Stop() {
	if !m.shutdown.CompareAndSwap(false, true) {
		return
	}
	close(m.stopCh)
	m.wg.Wait()
}

// IsRunning reports whether volumeID's state machine has reached Running.
func (m *Monitor) IsRunning(volumeID string) bool {
	return m.State(volumeID) == StateRunning
}

func (m *Monitor) run(ctx context.Context, volumeID string) {
	defer m.wg.Done()

	m.setState(volumeID, StateQuerying)
	cursor, ok, err := m.reader.Query(ctx, volumeID)
	if err != nil {
		m.log.Errorw("journal query failed", "volume_id", volumeID, "error", err)
		m.setState(volumeID, StateError)
		return
	}
	if !ok {
		m.setState(volumeID, StateCreating)
		if err := m.reader.Create(ctx, volumeID); err != nil {
			m.log.Errorw("journal create failed", "volume_id", volumeID, "error", err)
			m.setState(volumeID, StateError)
			return
		}
		cursor, ok, err = m.reader.Query(ctx, volumeID)
		if err != nil || !ok {
			m.setState(volumeID, StateError)
			return
		}
	}
	m.setState(volumeID, StateRunning)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			cursor = m.poll(ctx, volumeID, cursor)
		}
	}
}

func (m *Monitor) poll(ctx context.Context, volumeID string, cursor Cursor) Cursor {
	records, next, err := m.reader.Read(ctx, volumeID, cursor)
	if err != nil {
		if errors.Is(err, ErrEntryDeleted) {
			select {
			case m.rewound <- RewoundEvent{VolumeID: volumeID, From: cursor.NextUSN, To: next.LowestValidUSN}:
			default:
			}
			next.NextUSN = next.LowestValidUSN
			return next
		}
		var vioErr *volerrors.VolumeIOError
		if errors.As(err, &vioErr) {
			m.log.Warnw("journal read failed", "volume_id", volumeID, "error", err)
		}
		return cursor
	}
	for _, rec := range records {
		select {
		case m.out <- rec:
		case <-ctx.Done():
			return next
		}
	}
	return next
}

