package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/stringpool"
)

// buildPanelTree mirrors the spec.md §8 end-to-end fixture:
// Panel1/test.txt, Panel1/SubA/{test_a1.txt,test_a2.txt}, Panel1/SubB/test_b1.txt,
// Panel1/SubB/Deep/test_deep.txt
func buildPanelTree(t *testing.T) (*Trie, *stringpool.StringPool, []stringpool.StringId) {
	t.Helper()
	sp := stringpool.New(true)
	tr := New()

	seg := func(s string) stringpool.StringId { return sp.InternPath(s) }
	panel1 := seg("panel1")
	subA := seg("suba")
	subB := seg("subb")
	deep := seg("deep")

	tr.Insert(nil, panel1, record.NewFileRef(1, 1), true)
	tr.Insert([]stringpool.StringId{panel1}, sp.InternName("test.txt"), record.NewFileRef(2, 1), false)
	tr.Insert([]stringpool.StringId{panel1}, subA, record.NewFileRef(3, 1), true)
	tr.Insert([]stringpool.StringId{panel1, subA}, sp.InternName("test_a1.txt"), record.NewFileRef(4, 1), false)
	tr.Insert([]stringpool.StringId{panel1, subA}, sp.InternName("test_a2.txt"), record.NewFileRef(5, 1), false)
	tr.Insert([]stringpool.StringId{panel1}, subB, record.NewFileRef(6, 1), true)
	tr.Insert([]stringpool.StringId{panel1, subB}, sp.InternName("test_b1.txt"), record.NewFileRef(7, 1), false)
	tr.Insert([]stringpool.StringId{panel1, subB}, deep, record.NewFileRef(8, 1), true)
	tr.Insert([]stringpool.StringId{panel1, subB, deep}, sp.InternName("test_deep.txt"), record.NewFileRef(9, 1), false)

	return tr, sp, []stringpool.StringId{panel1}
}

func TestListRecursiveUnderPanel1(t *testing.T) {
	tr, _, path := buildPanelTree(t)
	node := tr.Lookup(path)
	assert.NotNil(t, node)

	files := node.ListRecursive()
	// test.txt + suba node (dir) + test_a1 + test_a2 + subb node (dir) + test_b1 + deep node (dir) + test_deep
	// direct files at panel1 node are only the leaf-level inserts recorded there: test.txt, suba-dir-ref, subb-dir-ref
	assert.Contains(t, fileRefSet(files), record.NewFileRef(2, 1)) // test.txt
	assert.Contains(t, fileRefSet(files), record.NewFileRef(4, 1)) // test_a1.txt
	assert.Contains(t, fileRefSet(files), record.NewFileRef(5, 1)) // test_a2.txt
	assert.Contains(t, fileRefSet(files), record.NewFileRef(7, 1)) // test_b1.txt
	assert.Contains(t, fileRefSet(files), record.NewFileRef(9, 1)) // test_deep.txt
}

func TestDirectFilesOnlyAtRootLevel(t *testing.T) {
	tr, _, path := buildPanelTree(t)
	node := tr.Lookup(path)
	direct := node.DirectFiles()
	assert.Contains(t, fileRefSet(direct), record.NewFileRef(2, 1)) // test.txt
	assert.NotContains(t, fileRefSet(direct), record.NewFileRef(4, 1))
}

func TestLookupMissingSegmentReturnsNil(t *testing.T) {
	tr, sp, _ := buildPanelTree(t)
	missing := tr.Lookup([]stringpool.StringId{sp.InternPath("doesnotexist")})
	assert.Nil(t, missing)
}

func TestSubATwoFiles(t *testing.T) {
	tr, sp, path := buildPanelTree(t)
	subA := append(append([]stringpool.StringId{}, path...), sp.InternPath("suba"))
	node := tr.Lookup(subA)
	assert.NotNil(t, node)
	files := node.DirectFiles()
	assert.Len(t, files, 2)
}

func fileRefSet(refs []record.FileRef) map[record.FileRef]bool {
	m := make(map[record.FileRef]bool, len(refs))
	for _, r := range refs {
		m[r] = true
	}
	return m
}
