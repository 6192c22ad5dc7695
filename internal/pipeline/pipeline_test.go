package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/volumefind/internal/config"
	"github.com/standardbeagle/volumefind/internal/index"
	"github.com/standardbeagle/volumefind/internal/persistence"
	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/stringpool"
	"github.com/standardbeagle/volumefind/internal/volume"
)

// fakeVolumeReader reports IsAvailable from its available field, lists
// ids as the volumes, and streams records for every volume it enumerates.
type fakeVolumeReader struct {
	available bool
	ids       []volume.ID
	records   []record.CompactRecord
}

func (f *fakeVolumeReader) IsAvailable() bool { return f.available }
func (f *fakeVolumeReader) Volumes(ctx context.Context) ([]volume.ID, error) {
	return f.ids, nil
}
func (f *fakeVolumeReader) VolumeInfo(ctx context.Context, id volume.ID) (volume.Info, error) {
	return volume.Info{ID: id}, nil
}
func (f *fakeVolumeReader) Enumerate(ctx context.Context, id volume.ID, pool *stringpool.StringPool) (volume.Stream, error) {
	return &fakeStream{records: f.records}, nil
}

type fakeStream struct {
	records []record.CompactRecord
	i       int
}

func (s *fakeStream) Next() (record.CompactRecord, bool, error) {
	if s.i >= len(s.records) {
		return record.CompactRecord{}, false, nil
	}
	r := s.records[s.i]
	s.i++
	return r, true, nil
}
func (s *fakeStream) Close() error { return nil }

func TestOrchestratorIngestsVolume(t *testing.T) {
	idx := index.New(index.Config{CaseInsensitiveVolume: true})

	root := record.CompactRecord{FileRef: record.NewFileRef(1, 1), ParentRef: record.RootRef, NameID: idx.Pool.InternName("Top"), Attributes: record.AttrDirectory}
	child := record.CompactRecord{FileRef: record.NewFileRef(2, 1), ParentRef: root.FileRef, NameID: idx.Pool.InternName("file.txt"), Size: 100}

	reader := &fakeVolumeReader{available: true, ids: []volume.ID{"C:"}, records: []record.CompactRecord{root, child}}

	store := persistence.New(persistence.Config{Dir: t.TempDir()})
	require.NoError(t, store.Initialize(context.Background()))

	opts := Options{Config: config.Defaults(), BatchSize: 10}
	orch := New(idx, reader, nil, store, opts)

	stats, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.RecordCount)
	assert.Equal(t, 1, stats.VolumesIndexed)

	pstats, err := store.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), pstats.RecordCount)
}

func TestOrchestratorFallsBackToFilesystem(t *testing.T) {
	idx := index.New(index.Config{CaseInsensitiveVolume: true})
	reader := &fakeVolumeReader{available: false}

	dir := t.TempDir()
	require.NoError(t, writeFile(dir+"/a.txt", "hi"))

	cfg := config.Defaults()
	cfg.SpecificDirectories = []string{dir}
	opts := Options{Config: cfg, BatchSize: 10}

	orch := New(idx, reader, newTestFsProvider(), nil, opts)
	stats, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.RecordCount, int64(1))
}
