package fsprovider

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/stringpool"
)

func TestRefForPathIsStable(t *testing.T) {
	a := RefForPath("/a/b/c.txt")
	b := RefForPath("/a/b/c.txt")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, RefForPath("/a/b/d.txt"))
}

func TestProviderEnumeratesTree(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "nested.txt"), []byte("yy"), 0o644))

	pool := stringpool.New(false)
	p := NewProvider(Config{})

	stream, err := p.Enumerate(context.Background(), dir, pool)
	require.NoError(t, err)
	defer stream.Close()

	var names []string
	var parents = make(map[record.FileRef]bool)
	for {
		rec, ok, err := stream.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		names = append(names, pool.Names.Resolve(rec.NameID))
		parents[rec.ParentRef] = true
	}

	assert.Contains(t, names, "top.txt")
	assert.Contains(t, names, "sub")
	assert.Contains(t, names, "nested.txt")
}

func TestProviderIsAlwaysAvailable(t *testing.T) {
	p := NewProvider(Config{})
	assert.True(t, p.IsAvailable())
}
