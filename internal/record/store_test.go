package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vferrors "github.com/standardbeagle/volumefind/internal/errors"
	"github.com/standardbeagle/volumefind/internal/stringpool"
)

func TestStoreInsertGetRemove(t *testing.T) {
	pool := stringpool.New(true)
	s := NewStore(pool, RootRef)

	rec := CompactRecord{
		FileRef:   NewFileRef(10, 1),
		ParentRef: RootRef,
		NameID:    pool.InternName("b.txt"),
	}
	s.InsertOrReplace(rec)

	got, ok := s.Get(rec.FileRef)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	s.Remove(rec.FileRef)
	_, ok = s.Get(rec.FileRef)
	assert.False(t, ok)
}

func TestToFullWalksParentChain(t *testing.T) {
	pool := stringpool.New(true)
	s := NewStore(pool, RootRef)

	dirA := CompactRecord{FileRef: NewFileRef(1, 1), ParentRef: RootRef, NameID: pool.InternName("A"), Attributes: AttrDirectory}
	dirSubA := CompactRecord{FileRef: NewFileRef(2, 1), ParentRef: dirA.FileRef, NameID: pool.InternName("SubA"), Attributes: AttrDirectory}
	file := CompactRecord{FileRef: NewFileRef(3, 1), ParentRef: dirSubA.FileRef, NameID: pool.InternName("test_a1.txt"), Size: 10}

	s.InsertOrReplace(dirA)
	s.InsertOrReplace(dirSubA)
	s.InsertOrReplace(file)

	full, err := s.ToFull(file)
	require.NoError(t, err)
	assert.Equal(t, "/A/SubA/test_a1.txt", full.Path)
	assert.Equal(t, ".txt", full.Extension)
}

func TestToFullBrokenChainReturnsPathNotResolvable(t *testing.T) {
	pool := stringpool.New(true)
	s := NewStore(pool, RootRef)

	orphan := CompactRecord{FileRef: NewFileRef(5, 1), ParentRef: NewFileRef(999, 1), NameID: pool.InternName("orphan.txt")}
	s.InsertOrReplace(orphan)

	_, err := s.ToFull(orphan)
	require.Error(t, err)
	var pnr *vferrors.PathNotResolvableError
	assert.ErrorAs(t, err, &pnr)
}

func TestLastKnownPathSurvivesRemoval(t *testing.T) {
	pool := stringpool.New(true)
	s := NewStore(pool, RootRef)

	rec := CompactRecord{FileRef: NewFileRef(7, 1), ParentRef: RootRef, NameID: pool.InternName("gone.txt")}
	s.InsertOrReplace(rec)
	_, err := s.ToFull(rec)
	require.NoError(t, err)

	s.Remove(rec.FileRef)
	p, ok := s.LastKnownPath(rec.FileRef)
	assert.True(t, ok)
	assert.Equal(t, "/gone.txt", p)
}
