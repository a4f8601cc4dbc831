package remote

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalTreeListsRegularFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("hello"), 0644))

	l := NewLocal(LocalConfig{Root: dir})
	tree, err := l.Tree("/")
	require.NoError(t, err)

	item, ok := tree.Get("f")
	require.True(t, ok)
	assert.Equal(t, "blob", item.Type())
	assert.Equal(t, "regular", item.Filetype())
	assert.EqualValues(t, 5, item.Size())
}

func TestLocalTreeListsSubdirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	l := NewLocal(LocalConfig{Root: dir})
	tree, err := l.Tree("/")
	require.NoError(t, err)

	item, ok := tree.Get("sub")
	require.True(t, ok)
	assert.Equal(t, "tree", item.Type())
	assert.Equal(t, "directory", item.Filetype())
}

func TestLocalBlobReadsContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("hello"), 0644))

	l := NewLocal(LocalConfig{Root: dir})
	r, err := l.Blob("/f")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestLocalChecksumMatchesPoolHash(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("hello"), 0644))

	l := NewLocal(LocalConfig{Root: dir})
	digest, ok, err := l.Checksum("/f")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", digest)
}

func TestLocalPutTreeAndPutBlobRestoreContent(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("hello"), 0644))
	srcRemote := NewLocal(LocalConfig{Root: src})
	tree, err := srcRemote.Tree("/")
	require.NoError(t, err)

	dst := t.TempDir()
	dstRemote := NewLocal(LocalConfig{Root: dst})
	require.NoError(t, dstRemote.PutTree(tree, "/"))

	blobReader, err := srcRemote.Blob("/f")
	require.NoError(t, err)
	defer blobReader.Close()
	require.NoError(t, dstRemote.PutBlob(blobReader, "/f"))

	data, err := os.ReadFile(filepath.Join(dst, "f"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestLocalNewerComparesOnlyMtime(t *testing.T) {
	l := NewLocal(LocalConfig{})
	oldItem := map[string]interface{}{"mtime": int64(1)}
	newItem := map[string]interface{}{"mtime": int64(2)}
	assert.True(t, l.Newer(newItem, oldItem))
	assert.False(t, l.Newer(oldItem, oldItem))
}

func TestLocalFullPathTrimsLeadingSeparator(t *testing.T) {
	l := NewLocal(LocalConfig{Root: "/data"})
	assert.True(t, strings.HasSuffix(l.fullPath("/a/b"), "/data/a/b"))
}
