package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/volumefind/internal/record"
)

func sampleRecord(path string, size uint64) record.FullRecord {
	return record.FullRecord{
		Name:      path[len(path)-1:],
		Path:      path,
		Extension: ".txt",
		Size:      size,
	}
}

func drainAll(t *testing.T, s RecordStream) []record.FullRecord {
	t.Helper()
	var out []record.FullRecord
	for {
		r, ok, err := s.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, r)
	}
}

func TestSnapshotStoreAddBatchAndGetByExtension(t *testing.T) {
	ctx := context.Background()
	store := New(Config{Dir: t.TempDir()})
	require.NoError(t, store.Initialize(ctx))

	n, err := store.AddBatch(ctx, []record.FullRecord{
		sampleRecord("/a/1.txt", 10),
		sampleRecord("/a/2.txt", 20),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stream, err := store.GetByExtension(ctx, "txt")
	require.NoError(t, err)
	assert.Len(t, drainAll(t, stream), 2)
}

func TestSnapshotStorePersistsAcrossReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := New(Config{Dir: dir, Compress: true})
	require.NoError(t, store.Initialize(ctx))
	_, err := store.AddBatch(ctx, []record.FullRecord{sampleRecord("/a/1.txt", 10)})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reloaded := New(Config{Dir: dir, Compress: true})
	require.NoError(t, reloaded.Initialize(ctx))

	stats, err := reloaded.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.RecordCount)
}

func TestSnapshotStoreDeleteRemovesRecord(t *testing.T) {
	ctx := context.Background()
	store := New(Config{Dir: t.TempDir()})
	require.NoError(t, store.Initialize(ctx))

	_, err := store.AddBatch(ctx, []record.FullRecord{sampleRecord("/a/1.txt", 10)})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "/a/1.txt"))

	stats, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.RecordCount)
}

func TestSnapshotStoreAddFromStreamReportsProgress(t *testing.T) {
	ctx := context.Background()
	store := New(Config{Dir: t.TempDir()})
	require.NoError(t, store.Initialize(ctx))

	records := []record.FullRecord{
		sampleRecord("/a/1.txt", 1),
		sampleRecord("/a/2.txt", 2),
		sampleRecord("/a/3.txt", 3),
	}
	src := newSliceStream(records)

	var progressCalls []int
	n, err := store.AddFromStream(ctx, src, 2, func(count int) {
		progressCalls = append(progressCalls, count)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{2, 3}, progressCalls)
}
