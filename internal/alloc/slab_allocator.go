package alloc

import "sync"

// SlabAllocator is a generic slab allocator for reducing allocation
// overhead on the hot growth path of FileRef slices (trie node file
// lists, extension buckets). It keeps a sync.Pool per size tier and
// exposes GrowSlice as its only entry point: callers never pick a tier
// themselves.
type SlabAllocator[T any] struct {
	pools []*poolTier[T]
}

// poolTier represents a single size tier in the slab allocator.
type poolTier[T any] struct {
	capacity int
	pool     sync.Pool
}

// SlabTierConfig defines the configuration for a single slab tier.
type SlabTierConfig struct {
	Capacity int
	Weight   float64 // relative weight for this tier, for documentation only
}

// FileRefTierConfigs is sized for FileRef slices: path-trie node children
// lists and extension-bucket lists, both of which are typically small
// (most directories and extensions hold a handful of entries) with a long
// tail (system32, node_modules, .go files).
var FileRefTierConfigs = []SlabTierConfig{
	{Capacity: 8, Weight: 0.45},    // most directory nodes hold a few files
	{Capacity: 16, Weight: 0.25},   //
	{Capacity: 64, Weight: 0.15},   //
	{Capacity: 256, Weight: 0.10},  //
	{Capacity: 1024, Weight: 0.05}, // extension buckets for .go, .txt, etc.
}

// NewSlabAllocator creates a new slab allocator with the given tier configurations.
func NewSlabAllocator[T any](configs []SlabTierConfig) *SlabAllocator[T] {
	sa := &SlabAllocator[T]{pools: make([]*poolTier[T], len(configs))}
	for i, config := range configs {
		capacity := config.Capacity // capture for closure
		sa.pools[i] = &poolTier[T]{
			capacity: capacity,
			pool: sync.Pool{
				New: func() any { return make([]T, 0, capacity) },
			},
		}
	}
	return sa
}

// NewFileRefSlabAllocator creates a slab allocator tuned for FileRef slices
// used by the path trie and extension index.
func NewFileRefSlabAllocator[T any]() *SlabAllocator[T] {
	return NewSlabAllocator[T](FileRefTierConfigs)
}

// get returns a slice with at least the requested capacity and length 0.
func (sa *SlabAllocator[T]) get(capacity int) []T {
	if capacity <= 0 {
		return make([]T, 0)
	}
	for _, tier := range sa.pools {
		if tier.capacity >= capacity {
			return sa.getFromPool(tier)
		}
	}
	return make([]T, 0, capacity)
}

// put returns a slice to the pool for its exact capacity tier for reuse.
// Slices that don't match any tier capacity are discarded.
func (sa *SlabAllocator[T]) put(slice []T) {
	if slice == nil || cap(slice) == 0 {
		return
	}
	capacity := cap(slice)
	for _, tier := range sa.pools {
		if tier.capacity == capacity {
			tier.pool.Put(slice[:0])
			return
		}
	}
}

func (sa *SlabAllocator[T]) getFromPool(tier *poolTier[T]) []T {
	if slice := tier.pool.Get(); slice != nil {
		return slice.([]T)
	}
	return make([]T, 0, tier.capacity)
}

// GrowSlice grows slice to accommodate additionalCapacity more elements,
// using the slab pools when the current backing array is too small. The
// old backing array, if it came from a pool tier, is returned for reuse.
func (sa *SlabAllocator[T]) GrowSlice(slice []T, additionalCapacity int) []T {
	if additionalCapacity <= 0 {
		return slice
	}

	currentLen := len(slice)
	requiredCap := currentLen + additionalCapacity
	if cap(slice) >= requiredCap {
		return slice
	}

	newSlice := sa.get(requiredCap)
	newSlice = append(newSlice, slice...)
	sa.put(slice)
	return newSlice
}
