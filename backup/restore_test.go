package backup

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestoreMaterializesTreeAndBlobs(t *testing.T) {
	p := newTestWalkerPool(t)
	src := newFakeRemote()
	src.addFile("/f", "hello", 1)
	src.addFile("/sub/g", "world", 1)

	w := &Walker{Pool: p, Remote: src}
	_, backupRecord, err := w.Run("")
	require.NoError(t, err)

	tree, err := p.GetTree(backupRecord.Root)
	require.NoError(t, err)

	dst := newFakeRemote()
	r := &Restorer{Pool: p, Remote: dst}
	require.NoError(t, r.Run(tree, "/"))

	assert.True(t, dst.initialized)
	assert.True(t, dst.shutdown)

	rc, err := dst.Blob("/f")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	rc2, err := dst.Blob("/sub/g")
	require.NoError(t, err)
	data2, err := io.ReadAll(rc2)
	require.NoError(t, err)
	assert.Equal(t, "world", string(data2))
}
