package sizeindex

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/volumefind/internal/record"
)

func TestRangeFindsMatchingSizes(t *testing.T) {
	idx := New()
	small := record.NewFileRef(1, 1)
	medium := record.NewFileRef(2, 1)
	large := record.NewFileRef(3, 1)

	idx.Add(small, 500)
	idx.Add(medium, 5*1024*1024)
	idx.Add(large, 5*1024*1024*1024)

	result := idx.Range(0, 1024)
	assert.Contains(t, result, small)
	assert.NotContains(t, result, medium)
	assert.NotContains(t, result, large)
}

func TestRangeAcrossBucketBoundary(t *testing.T) {
	idx := New()
	a := record.NewFileRef(1, 1)
	b := record.NewFileRef(2, 1)
	idx.Add(a, 900)               // bucket 1
	idx.Add(b, 2*1024*1024)       // bucket 3

	result := idx.Range(800, 3*1024*1024)
	assert.Contains(t, result, a)
	assert.Contains(t, result, b)
}

func TestRemove(t *testing.T) {
	idx := New()
	ref := record.NewFileRef(1, 1)
	idx.Add(ref, 42)
	idx.Remove(ref, 42)
	assert.NotContains(t, idx.Range(0, 100), ref)
}

func TestZeroSizeBucket(t *testing.T) {
	idx := New()
	dir := record.NewFileRef(9, 1)
	idx.Add(dir, 0)
	assert.Contains(t, idx.Range(0, 0), dir)
}
