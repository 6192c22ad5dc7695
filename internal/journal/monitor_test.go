package journal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader is a scripted Reader: the first Query reports no journal,
// Create succeeds, the second Query succeeds, and Read returns one
// queued batch of records per call (empty afterward) until told to
// return ErrEntryDeleted once.
type fakeReader struct {
	mu          sync.Mutex
	queried     int
	created     bool
	batches     [][]ChangeRecord
	rewindOnce  bool
	rewindFired bool
}

func (f *fakeReader) Query(ctx context.Context, volumeID string) (Cursor, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried++
	if f.queried == 1 {
		return Cursor{}, false, nil
	}
	return Cursor{JournalID: 1, NextUSN: 100, LowestValidUSN: 0}, true, nil
}

func (f *fakeReader) Create(ctx context.Context, volumeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = true
	return nil
}

func (f *fakeReader) Read(ctx context.Context, volumeID string, cursor Cursor) ([]ChangeRecord, Cursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rewindOnce && !f.rewindFired {
		f.rewindFired = true
		return nil, Cursor{LowestValidUSN: 500}, ErrEntryDeleted
	}
	if len(f.batches) == 0 {
		return nil, cursor, nil
	}
	next := f.batches[0]
	f.batches = f.batches[1:]
	cursor.NextUSN += uint64(len(next))
	return next, cursor, nil
}

func TestMonitorRunsThroughCreatingToRunning(t *testing.T) {
	reader := &fakeReader{}
	m := New(Config{Reader: reader, PollInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx, []string{"C:"})
	require.Eventually(t, func() bool { return m.IsRunning("C:") }, time.Second, time.Millisecond)
	assert.True(t, reader.created)

	m.Stop()
}

func TestMonitorPublishesChangeRecords(t *testing.T) {
	reader := &fakeReader{batches: [][]ChangeRecord{
		{{FileRef: 1, Reason: ReasonCreated}, {FileRef: 2, Reason: ReasonDeleted}},
	}}
	m := New(Config{Reader: reader, PollInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx, []string{"C:"})

	var got []ChangeRecord
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case rec := <-m.Changes():
			got = append(got, rec)
		case <-timeout:
			t.Fatal("timed out waiting for change records")
		}
	}
	m.Stop()
	assert.EqualValues(t, 1, got[0].FileRef)
	assert.EqualValues(t, 2, got[1].FileRef)
}

func TestMonitorPublishesRewoundEvent(t *testing.T) {
	reader := &fakeReader{rewindOnce: true}
	m := New(Config{Reader: reader, PollInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx, []string{"C:"})

	select {
	case ev := <-m.Rewound():
		assert.Equal(t, "C:", ev.VolumeID)
		assert.EqualValues(t, 500, ev.To)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for rewound event")
	}
	m.Stop()
}
