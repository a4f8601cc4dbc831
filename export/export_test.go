package export

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
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

func buildTree(t *testing.T, p *pool.Pool) object.Ref {
	t.Helper()
	blobRef, _, _, err := p.Ingest(strings.NewReader("hello"))
	require.NoError(t, err)
	sub := object.NewTree()
	sub.Add("g", object.Item{"type": "blob", "ref": string(blobRef), "filetype": "regular"})
	subRef, _, _, err := p.IngestTree(sub)
	require.NoError(t, err)
	root := object.NewTree()
	root.Add("f", object.Item{"type": "blob", "ref": string(blobRef), "filetype": "regular", "mode": int64(0640)})
	root.Add("sub", object.Item{"type": "tree", "ref": string(subRef), "filetype": "directory"})
	ref, _, _, err := p.IngestTree(root)
	require.NoError(t, err)
	return ref
}

func TestTreeExportDir(t *testing.T) {
	p := newTestPool(t)
	ref := buildTree(t, p)
	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Tree(p, ref, FormatDir, out))

	data, err := os.ReadFile(filepath.Join(out, "f"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = os.ReadFile(filepath.Join(out, "sub", "g"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestTreeExportTar(t *testing.T) {
	p := newTestPool(t)
	ref := buildTree(t, p)
	out := filepath.Join(t.TempDir(), "out.tar")
	require.NoError(t, Tree(p, ref, FormatTar, out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	tr := tar.NewReader(f)
	names := map[string]bool{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names[hdr.Name] = true
	}
	assert.True(t, names["f"])
	assert.True(t, names["sub/"])
	assert.True(t, names["sub/g"])
}

func TestTreeExportUnsupportedFormat(t *testing.T) {
	p := newTestPool(t)
	ref := buildTree(t, p)
	err := Tree(p, ref, FormatTarBz2, filepath.Join(t.TempDir(), "out.tar.bz2"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
