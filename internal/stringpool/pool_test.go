package stringpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternResolveRoundTrip(t *testing.T) {
	sp := New(true)
	id := sp.InternPath(`C:\Users\test`)
	assert.Equal(t, "c:/users/test", sp.Paths.Resolve(id))
}

func TestInternIsIdempotent(t *testing.T) {
	sp := New(true)
	a := sp.InternPath(`C:\Windows`)
	b := sp.InternPath(`c:\windows`)
	assert.Equal(t, a, b)
}

func TestInternFromSpanMatchesOwned(t *testing.T) {
	sp := New(false)
	owned := sp.InternName("README.md")
	span := sp.InternNameFromSpan([]byte("README.md"))
	assert.Equal(t, owned, span)
}

func TestEmptyStringReturnsReservedID(t *testing.T) {
	sp := New(true)
	assert.Equal(t, Empty, sp.InternPath(""))
	assert.Equal(t, "", sp.Paths.Resolve(Empty))
}

func TestTryGetFromSpanDoesNotInsert(t *testing.T) {
	sp := New(true)
	_, ok := sp.Paths.TryGetFromSpan([]byte("not-yet-interned"))
	assert.False(t, ok)
	assert.Equal(t, 0, sp.Paths.Len())

	sp.InternPath("not-yet-interned")
	id, ok := sp.Paths.TryGetFromSpan([]byte("not-yet-interned"))
	require.True(t, ok)
	assert.Equal(t, "not-yet-interned", sp.Paths.Resolve(id))
}

func TestExtensionNormalization(t *testing.T) {
	sp := New(true)
	withDot := sp.InternExtension(".TXT")
	withoutDot := sp.InternExtension("txt")
	assert.Equal(t, withDot, withoutDot)
	assert.Equal(t, ".txt", sp.Extensions.Resolve(withDot))
}

func TestNamesPreserveCase(t *testing.T) {
	sp := New(true)
	lower := sp.InternName("readme.md")
	upper := sp.InternName("README.MD")
	assert.NotEqual(t, lower, upper)
	assert.Equal(t, "readme.md", sp.Names.Resolve(lower))
	assert.Equal(t, "README.MD", sp.Names.Resolve(upper))
}

func TestConcurrentInternProducesStableIDs(t *testing.T) {
	sp := New(true)
	const goroutines = 32
	ids := make([]StringId, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			ids[i] = sp.InternPath(`C:\shared\path`)
		}(i)
	}
	wg.Wait()
	for i := 1; i < goroutines; i++ {
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestIDsMonotonicallyIncrease(t *testing.T) {
	sp := New(true)
	a := sp.InternPath("/a")
	b := sp.InternPath("/b")
	c := sp.InternPath("/c")
	assert.Less(t, uint32(a), uint32(b))
	assert.Less(t, uint32(b), uint32(c))
}
