package diffutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kesh-io/satchel/object"
	"github.com/kesh-io/satchel/pool"
)

func newTestPool(t *testing.T) *pool.Pool {
	t.Helper()
	p, err := pool.Open(t.TempDir())
	require.NoError(t, err)
	return p
}

func ingestTreeWithFile(t *testing.T, p *pool.Pool, name, content string) object.Ref {
	t.Helper()
	blobRef, _, _, err := p.Ingest(strings.NewReader(content))
	require.NoError(t, err)
	tree := object.NewTree()
	tree.Add(name, object.Item{"type": "blob", "ref": string(blobRef), "filetype": "regular"})
	ref, _, _, err := p.IngestTree(tree)
	require.NoError(t, err)
	return ref
}

func TestTreesIdenticalProducesNoOutput(t *testing.T) {
	p := newTestPool(t)
	ref := ingestTreeWithFile(t, p, "f", "hello")
	var buf bytes.Buffer
	require.NoError(t, Trees(p, ref, ref, Output(&buf)))
	assert.Empty(t, buf.String())
}

func TestTreesModifiedBlobProducesHunk(t *testing.T) {
	p := newTestPool(t)
	aRef := ingestTreeWithFile(t, p, "f", "hello\n")
	bRef := ingestTreeWithFile(t, p, "f", "world\n")
	var buf bytes.Buffer
	require.NoError(t, Trees(p, aRef, bRef, Output(&buf)))
	out := buf.String()
	assert.Contains(t, out, "--- a/f")
	assert.Contains(t, out, "+++ b/f")
	assert.Contains(t, out, "-hello")
	assert.Contains(t, out, "+world")
}

func TestTreesNamesOnlyListsChangedPathOnly(t *testing.T) {
	p := newTestPool(t)
	aRef := ingestTreeWithFile(t, p, "f", "hello\n")
	bRef := ingestTreeWithFile(t, p, "f", "world\n")
	var buf bytes.Buffer
	require.NoError(t, Trees(p, aRef, bRef, Output(&buf), NamesOnly(true)))
	assert.Equal(t, "f\n", buf.String())
}

func TestTreesAddedFile(t *testing.T) {
	p := newTestPool(t)
	aRef := ingestTreeWithFile(t, p, "f", "hello\n")
	bTree, err := p.GetTree(aRef)
	require.NoError(t, err)
	blobRef, _, _, err := p.Ingest(strings.NewReader("new\n"))
	require.NoError(t, err)
	bTree.Add("g", object.Item{"type": "blob", "ref": string(blobRef), "filetype": "regular"})
	bRef, _, _, err := p.IngestTree(bTree)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Trees(p, aRef, bRef, Output(&buf), NamesOnly(true)))
	assert.Equal(t, "+ g\n", buf.String())
}

func TestTreesMaxSizeOmitsLargeDiff(t *testing.T) {
	p := newTestPool(t)
	aRef := ingestTreeWithFile(t, p, "f", strings.Repeat("a", 100))
	bRef := ingestTreeWithFile(t, p, "f", strings.Repeat("b", 100))
	var buf bytes.Buffer
	require.NoError(t, Trees(p, aRef, bRef, Output(&buf), MaxSize(10)))
	assert.Contains(t, buf.String(), "omitting diff for large file")
}
