package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kesh-io/satchel/object"
	"github.com/kesh-io/satchel/pool"
)

func newTestPool(t *testing.T) *pool.Pool {
	t.Helper()
	tp, err := pool.Open(t.TempDir())
	require.NoError(t, err)
	return tp
}

func TestSplitPathTrimsSlashesAndHandlesRoot(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitPath("/a/b/"))
	assert.Nil(t, splitPath("/"))
	assert.Nil(t, splitPath(""))
}

func TestDescendFindsNestedBlob(t *testing.T) {
	p = newTestPool(t)
	blobRef, _, _, err := p.Ingest(strings.NewReader("hello"))
	require.NoError(t, err)

	sub := object.NewTree()
	sub.Add("g", object.Item{"type": "blob", "ref": string(blobRef), "filetype": "regular"})
	subRef, _, _, err := p.IngestTree(sub)
	require.NoError(t, err)

	root := object.NewTree()
	root.Add("sub", object.Item{"type": "tree", "ref": string(subRef), "filetype": "directory"})

	item, err := descend(root, "sub/g")
	require.NoError(t, err)
	assert.Equal(t, blobRef, item.Ref())
}

func TestDescendRejectsDescendingThroughABlob(t *testing.T) {
	p = newTestPool(t)
	blobRef, _, _, err := p.Ingest(strings.NewReader("hello"))
	require.NoError(t, err)

	root := object.NewTree()
	root.Add("f", object.Item{"type": "blob", "ref": string(blobRef), "filetype": "regular"})

	_, err = descend(root, "f/g")
	assert.Error(t, err)
}

func TestDescendMissingComponent(t *testing.T) {
	p = newTestPool(t)
	root := object.NewTree()
	_, err := descend(root, "missing")
	assert.Error(t, err)
}
