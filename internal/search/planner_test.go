package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/volumefind/internal/index"
	"github.com/standardbeagle/volumefind/internal/record"
)

func buildTestIndex(t *testing.T) *index.Index {
	t.Helper()
	idx := index.New(index.Config{CaseInsensitiveVolume: true})

	panel1 := record.CompactRecord{FileRef: record.NewFileRef(1, 1), ParentRef: record.RootRef, NameID: idx.Pool.InternName("Panel1"), Attributes: record.AttrDirectory}
	reportTxt := record.CompactRecord{FileRef: record.NewFileRef(2, 1), ParentRef: panel1.FileRef, NameID: idx.Pool.InternName("report.txt"), Size: 2048}
	subA := record.CompactRecord{FileRef: record.NewFileRef(3, 1), ParentRef: panel1.FileRef, NameID: idx.Pool.InternName("SubA"), Attributes: record.AttrDirectory}
	notesA := record.CompactRecord{FileRef: record.NewFileRef(4, 1), ParentRef: subA.FileRef, NameID: idx.Pool.InternName("notes.txt"), Size: 10}
	photo := record.CompactRecord{FileRef: record.NewFileRef(5, 1), ParentRef: subA.FileRef, NameID: idx.Pool.InternName("photo.jpg"), Size: 5_000_000}

	all := []record.CompactRecord{panel1, reportTxt, subA, notesA, photo}
	refs := make([]record.FileRef, 0, len(all))
	for _, r := range all {
		idx.Ingest(r)
		refs = append(refs, r.FileRef)
	}
	require.NoError(t, idx.BuildTrie(context.Background(), refs))
	return idx
}

func drain(t *testing.T, res *Result) []record.FullRecord {
	t.Helper()
	var out []record.FullRecord
	for {
		full, ok, err := res.Files()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, full)
	}
}

func TestPlanSelectsExtensionLookup(t *testing.T) {
	assert.Equal(t, StrategyExtensionLookup, Plan(Query{ExtensionFilter: ".txt"}))
}

func TestPlanSelectsTriePrefix(t *testing.T) {
	assert.Equal(t, StrategyTriePrefix, Plan(Query{BasePath: "/Panel1"}))
}

func TestPlanSelectsTextScan(t *testing.T) {
	assert.Equal(t, StrategyTextScan, Plan(Query{Text: "rep"}))
}

func TestPlanFallsBackToFullScan(t *testing.T) {
	assert.Equal(t, StrategyFullScan, Plan(Query{Text: "re"}))
}

func TestSearchByExtension(t *testing.T) {
	idx := buildTestIndex(t)
	res := Search(context.Background(), idx, Query{ExtensionFilter: ".txt"})
	got := drain(t, res)
	assert.Len(t, got, 2)
}

func TestSearchByBasePathRecursive(t *testing.T) {
	idx := buildTestIndex(t)
	res := Search(context.Background(), idx, Query{BasePath: "/Panel1", IncludeSubdirectories: true})
	got := drain(t, res)
	names := make([]string, len(got))
	for i, f := range got {
		names[i] = f.Name
	}
	assert.Contains(t, names, "report.txt")
	assert.Contains(t, names, "notes.txt")
	assert.Contains(t, names, "photo.jpg")
}

func TestSearchByBasePathNonRecursive(t *testing.T) {
	idx := buildTestIndex(t)
	res := Search(context.Background(), idx, Query{BasePath: "/Panel1", IncludeSubdirectories: false})
	got := drain(t, res)
	for _, f := range got {
		assert.NotEqual(t, "notes.txt", f.Name)
	}
}

func TestSearchTextMatch(t *testing.T) {
	idx := buildTestIndex(t)
	res := Search(context.Background(), idx, Query{Text: "note", SearchFilenameOnly: true})
	got := drain(t, res)
	require.Len(t, got, 1)
	assert.Equal(t, "notes.txt", got[0].Name)
}

func TestSearchGlobMatch(t *testing.T) {
	idx := buildTestIndex(t)
	res := Search(context.Background(), idx, Query{Text: "*.jpg", SearchFilenameOnly: true})
	got := drain(t, res)
	require.Len(t, got, 1)
	assert.Equal(t, "photo.jpg", got[0].Name)
}

func TestSearchSizeFilter(t *testing.T) {
	idx := buildTestIndex(t)
	min := uint64(1_000_000)
	res := Search(context.Background(), idx, Query{Text: "photo", SearchFilenameOnly: true, MinSize: &min})
	got := drain(t, res)
	require.Len(t, got, 1)
	assert.Equal(t, "photo.jpg", got[0].Name)
}

func TestSearchMaxResultsSetsHasMore(t *testing.T) {
	idx := buildTestIndex(t)
	res := Search(context.Background(), idx, Query{BasePath: "/Panel1", IncludeSubdirectories: true, MaxResults: 1})
	got := drain(t, res)
	assert.Len(t, got, 1)
	assert.True(t, res.HasMore)
}

func TestSearchFullPathHitOnDirectoryNameExcludesDirectory(t *testing.T) {
	idx := buildTestIndex(t)
	res := Search(context.Background(), idx, Query{Text: "SubA", BasePath: "/Panel1", IncludeSubdirectories: true})
	got := drain(t, res)
	require.Len(t, got, 2)
	for _, f := range got {
		assert.False(t, f.IsDirectory())
		assert.NotEqual(t, "SubA", f.Name)
	}
}

func TestSearchIncludeDirectoriesAddsDirectoryRecords(t *testing.T) {
	idx := buildTestIndex(t)
	res := Search(context.Background(), idx, Query{Text: "SubA", BasePath: "/Panel1", IncludeSubdirectories: true, IncludeDirectories: true, IncludeFiles: true})
	got := drain(t, res)
	require.Len(t, got, 3)
	var sawDir bool
	for _, f := range got {
		if f.Name == "SubA" {
			sawDir = true
			assert.True(t, f.IsDirectory())
		}
	}
	assert.True(t, sawDir)
}

func TestSearchHiddenExcludedByDefault(t *testing.T) {
	idx := buildTestIndex(t)
	secret := record.CompactRecord{FileRef: record.NewFileRef(6, 1), ParentRef: record.RootRef, NameID: idx.Pool.InternName("secret.txt"), Attributes: record.AttrHidden}
	idx.Ingest(secret)
	require.NoError(t, idx.BuildTrie(context.Background(), []record.FileRef{secret.FileRef}))

	res := Search(context.Background(), idx, Query{Text: "secret", SearchFilenameOnly: true})
	assert.Empty(t, drain(t, res))

	res = Search(context.Background(), idx, Query{Text: "secret", SearchFilenameOnly: true, IncludeHidden: true})
	got := drain(t, res)
	require.Len(t, got, 1)
	assert.Equal(t, "secret.txt", got[0].Name)
}

func TestSearchInvalidQueryFails(t *testing.T) {
	idx := buildTestIndex(t)
	res := Search(context.Background(), idx, Query{})
	assert.True(t, res.Failed)
	assert.NotEmpty(t, res.FailureMessage)
}
