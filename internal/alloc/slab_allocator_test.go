package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlabAllocatorGetPut(t *testing.T) {
	sa := NewFileRefSlabAllocator[uint64]()

	s := sa.get(10)
	assert.Equal(t, 0, len(s))
	assert.GreaterOrEqual(t, cap(s), 10)

	s = append(s, 1, 2, 3)
	sa.put(s)

	reused := sa.get(10)
	assert.GreaterOrEqual(t, cap(reused), 10)
}

func TestSlabAllocatorOversizeFallsThrough(t *testing.T) {
	sa := NewFileRefSlabAllocator[uint64]()
	s := sa.get(100000)
	assert.GreaterOrEqual(t, cap(s), 100000)
	sa.put(s) // no matching tier, should not panic
}

func TestGrowSlice(t *testing.T) {
	sa := NewFileRefSlabAllocator[uint64]()
	s := sa.get(4)
	s = append(s, 1, 2)
	grown := sa.GrowSlice(s, 100)
	assert.GreaterOrEqual(t, cap(grown), 102)
	assert.Equal(t, []uint64{1, 2}, grown)
}
